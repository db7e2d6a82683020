// Package bot answers chat messages against the shared todo store.
//
// Plain text becomes a new todo tagged with the telegram source, /list
// replies with the pending todos and /start or /help reply with a welcome.
// Any other slash command is ignored.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/arthur-debert/nanotodo/todo"
)

// Commands understood by the listener; matching is exact
const (
	CmdStart = "/start"
	CmdHelp  = "/help"
	CmdList  = "/list"
)

// Reply texts
const (
	WelcomeText    = "Welcome to the todo app! Send me a message to add a todo."
	ListHeader     = "Todo list:"
	NoPendingText  = "You have no pending todos."
	ListFailedText = "Something went wrong while fetching the list."
	AddFailedText  = "Something went wrong while adding the todo."
)

// AddedText is the confirmation sent after text was stored
func AddedText(text string) string {
	return `"` + text + `" was added to your todo list!`
}

// Message is one inbound chat message
type Message struct {
	ChatID int64
	Text   string
}

// Transport delivers inbound messages and sends replies
type Transport interface {
	// Messages streams inbound messages until ctx ends, then closes the channel
	Messages(ctx context.Context) (<-chan Message, error)
	Send(ctx context.Context, chatID int64, text string) error
}

// Listener processes messages one at a time, in arrival order
type Listener struct {
	store     todo.Store
	transport Transport
	logger    *slog.Logger
}

// Option configures a Listener
type Option func(*Listener)

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(lst *Listener) {
		lst.logger = l
	}
}

// NewListener creates a listener that reads from transport and writes to store
func NewListener(store todo.Store, transport Transport, opts ...Option) *Listener {
	l := &Listener{store: store, transport: transport, logger: slog.Default()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Run handles messages until ctx is cancelled or the transport closes its
// channel. Failures while handling a message never stop the loop.
func (l *Listener) Run(ctx context.Context) error {
	msgs, err := l.transport.Messages(ctx)
	if err != nil {
		return fmt.Errorf("failed to subscribe to messages: %w", err)
	}
	l.logger.Info("bot listener started")
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("bot listener stopped")
			return nil
		case msg, ok := <-msgs:
			if !ok {
				l.logger.Info("bot transport closed")
				return nil
			}
			l.Handle(ctx, msg)
		}
	}
}

// Handle processes one message and sends its reply, if any
func (l *Listener) Handle(ctx context.Context, msg Message) {
	reply, ok := l.Reply(ctx, msg.Text)
	if !ok {
		return
	}
	if err := l.transport.Send(ctx, msg.ChatID, reply); err != nil {
		l.logger.Error("failed to send reply", "chat_id", msg.ChatID, "error", err)
	}
}

// Reply computes the answer to text. ok is false when the message is ignored.
func (l *Listener) Reply(ctx context.Context, text string) (reply string, ok bool) {
	switch {
	case text == CmdStart, text == CmdHelp:
		return WelcomeText, true
	case text == CmdList:
		return l.list(ctx), true
	case strings.HasPrefix(text, "/"):
		l.logger.Debug("ignoring unknown command", "command", text)
		return "", false
	case strings.TrimSpace(text) == "":
		return "", false
	}
	return l.add(ctx, text), true
}

func (l *Listener) list(ctx context.Context) string {
	pending, err := l.store.List(ctx, todo.Pending())
	if err != nil {
		l.logger.Error("failed to list todos", "error", err)
		return ListFailedText
	}
	if len(pending) == 0 {
		return NoPendingText
	}

	var b strings.Builder
	b.WriteString(ListHeader)
	b.WriteString("\n")
	for i, t := range pending {
		fmt.Fprintf(&b, "\n%d. %s", i+1, t.Text)
	}
	return b.String()
}

func (l *Listener) add(ctx context.Context, text string) string {
	created, err := l.store.Create(ctx, text, todo.SourceTelegram)
	if err != nil {
		l.logger.Error("failed to add todo", "error", err)
		return AddFailedText
	}
	l.logger.Info("todo added from chat", "id", created.ID)
	return AddedText(text)
}
