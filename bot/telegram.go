package bot

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// PollTimeout is the long-polling timeout in seconds
const PollTimeout = 60

// Telegram is a Transport backed by the Telegram Bot API with long polling
type Telegram struct {
	api    *tgbotapi.BotAPI
	logger *slog.Logger
}

// NewTelegram authenticates with token
func NewTelegram(token string, logger *slog.Logger) (*Telegram, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram token is required")
	}
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to telegram: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("connected to telegram", "bot", api.Self.UserName)
	return &Telegram{api: api, logger: logger}, nil
}

// Messages starts polling for updates. Polling stops when ctx ends.
func (t *Telegram) Messages(ctx context.Context) (<-chan Message, error) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = PollTimeout
	updates := t.api.GetUpdatesChan(u)

	out := make(chan Message)
	go func() {
		defer close(out)
		defer t.api.StopReceivingUpdates()
		for {
			select {
			case <-ctx.Done():
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				msg, ok := messageFromUpdate(update)
				if !ok {
					continue
				}
				select {
				case out <- msg:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// Send posts text to the chat
func (t *Telegram) Send(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := t.api.Send(tgbotapi.NewMessage(chatID, text))
	return err
}

// messageFromUpdate keeps updates that carry a chat message. Messages
// without text (stickers, photos) come through with an empty Text.
func messageFromUpdate(u tgbotapi.Update) (Message, bool) {
	if u.Message == nil || u.Message.Chat == nil {
		return Message{}, false
	}
	return Message{ChatID: u.Message.Chat.ID, Text: u.Message.Text}, true
}
