// Package tui is a terminal front end over client.Controller.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/arthur-debert/nanotodo/client"
	"github.com/arthur-debert/nanotodo/formats"
	"github.com/arthur-debert/nanotodo/render"
	"github.com/arthur-debert/nanotodo/todo"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// Confirmer answers client delete confirmations from inside the running UI:
// each request is surfaced as a prompt and blocks until the user presses y
// or n.
type Confirmer struct {
	requests chan confirmRequest
}

type confirmRequest struct {
	todo   todo.Todo
	answer chan bool
}

// NewConfirmer creates a Confirmer
func NewConfirmer() *Confirmer {
	return &Confirmer{requests: make(chan confirmRequest)}
}

func (c *Confirmer) Confirm(ctx context.Context, t todo.Todo) (bool, error) {
	req := confirmRequest{todo: t, answer: make(chan bool, 1)}
	select {
	case c.requests <- req:
	case <-ctx.Done():
		return false, ctx.Err()
	}
	select {
	case ok := <-req.answer:
		return ok, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

type (
	changedMsg struct{}
	confirmMsg confirmRequest
	doneMsg    struct{ err error }
)

// Model is the bubbletea model
type Model struct {
	ctx     context.Context
	ctl     *client.Controller
	confirm *Confirmer
	changes chan struct{}

	input   textinput.Model
	adding  bool
	cursor  int
	pending *confirmRequest
	width   int
}

// New creates a model driving a controller over api. Controller options are
// passed through; the delete confirmation is always the UI prompt.
func New(ctx context.Context, api client.API, opts ...client.Option) Model {
	conf := NewConfirmer()
	ctl := client.NewController(api, append(opts, client.WithConfirmer(conf))...)

	changes := make(chan struct{}, 1)
	ctl.OnChange(func() {
		select {
		case changes <- struct{}{}:
		default:
		}
	})

	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "What needs to be done?"
	ti.CharLimit = 500

	return Model{
		ctx:     ctx,
		ctl:     ctl,
		confirm: conf,
		changes: changes,
		input:   ti,
	}
}

// Run starts the UI and blocks until the user quits
func Run(ctx context.Context, api client.API, opts ...client.Option) error {
	p := tea.NewProgram(New(ctx, api, opts...), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

// Controller exposes the underlying controller
func (m Model) Controller() *client.Controller {
	return m.ctl
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.run(m.ctl.Init), m.waitForChange(), m.waitForConfirm())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case changedMsg:
		m.clampCursor()
		return m, m.waitForChange()
	case confirmMsg:
		req := confirmRequest(msg)
		m.pending = &req
		return m, m.waitForConfirm()
	case doneMsg:
		m.clampCursor()
		return m, nil
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch {
		case m.pending != nil:
			return m.updateConfirm(msg)
		case m.adding:
			return m.updateAdding(msg)
		default:
			return m.updateList(msg)
		}
	}

	if m.adding {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		m.pending.answer <- true
		m.pending = nil
	case "n", "N", "esc", "q":
		m.pending.answer <- false
		m.pending = nil
	}
	return m, nil
}

func (m Model) updateAdding(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.ctl.SetInput(m.input.Value())
		m.input.SetValue("")
		m.input.Blur()
		m.adding = false
		return m, m.run(m.ctl.Add)
	case "esc":
		m.input.SetValue("")
		m.input.Blur()
		m.adding = false
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	visible := m.ctl.Visible()

	switch msg.String() {
	case "q", "esc":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(visible)-1 {
			m.cursor++
		}
	case " ", "enter", "x":
		if t, ok := m.selected(visible); ok {
			return m, m.run(func(ctx context.Context) error {
				return m.ctl.Toggle(ctx, t.ID, !t.Completed)
			})
		}
	case "d", "delete":
		if t, ok := m.selected(visible); ok {
			return m, m.run(func(ctx context.Context) error {
				_, err := m.ctl.Delete(ctx, t.ID)
				return err
			})
		}
	case "a":
		m.adding = true
		m.input.SetValue(m.ctl.Input())
		return m, m.input.Focus()
	case "tab", "f":
		m.ctl.SetFilter(nextFilter(m.ctl.Filter()))
		m.cursor = 0
	case "1":
		m.ctl.SetFilter(todo.FilterAll)
		m.cursor = 0
	case "2":
		m.ctl.SetFilter(todo.FilterActive)
		m.cursor = 0
	case "3":
		m.ctl.SetFilter(todo.FilterCompleted)
		m.cursor = 0
	case "r":
		return m, m.run(m.ctl.Reload)
	case "c":
		m.ctl.DismissError()
	}
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder

	stats := m.ctl.Stats()
	fmt.Fprintf(&b, "%s   %s %d  %s %d  %s %d\n",
		titleStyle.Render("Todos"),
		accentStyle.Render("Total:"), stats.Total,
		pendingStyle.Render("Active:"), stats.Active,
		successStyle.Render("Completed:"), stats.Completed,
	)

	tabs := make([]string, 0, len(todo.Filters))
	for _, f := range todo.Filters {
		label := render.FilterLabel(f)
		if f == m.ctl.Filter() {
			tabs = append(tabs, activeTab.Render(label))
		} else {
			tabs = append(tabs, mutedStyle.Render(label))
		}
	}
	b.WriteString(strings.Join(tabs, "  "))
	b.WriteString("\n\n")

	visible := m.ctl.Visible()
	if len(visible) == 0 {
		b.WriteString(mutedStyle.Render("  " + render.EmptyMessage(m.ctl.Filter())))
		b.WriteString("\n")
	}
	for i, t := range visible {
		b.WriteString(m.row(i, t))
		b.WriteString("\n")
	}

	if msg := m.ctl.Error(); msg != "" {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render("✖ " + msg))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	switch {
	case m.pending != nil:
		fmt.Fprintf(&b, "Delete %q? %s", m.pending.todo.Text, helpStyle.Render("(y/n)"))
	case m.adding:
		b.WriteString(m.input.View())
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("enter add • esc cancel"))
	default:
		b.WriteString(helpStyle.Render("↑/↓ move • space toggle • a add • d delete • tab filter • r reload • q quit"))
	}
	b.WriteString("\n")
	return b.String()
}

func (m Model) row(i int, t todo.Todo) string {
	box := mutedStyle.Render(boxUnchecked)
	text := t.Text
	if t.Completed {
		box = successStyle.Render(boxChecked)
		text = doneStyle.Render(text)
	}
	prefix := "  "
	if i == m.cursor {
		prefix = selectedStyle.Render(">") + " "
	}
	return fmt.Sprintf("%s%s %s %s", prefix, box, text, mutedStyle.Render("("+formats.SourceLabel(t.Source)+")"))
}

func (m Model) selected(visible []todo.Todo) (todo.Todo, bool) {
	if m.cursor < 0 || m.cursor >= len(visible) {
		return todo.Todo{}, false
	}
	return visible[m.cursor], true
}

func (m *Model) clampCursor() {
	n := len(m.ctl.Visible())
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// run executes a controller call off the UI goroutine
func (m Model) run(fn func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		return doneMsg{err: fn(m.ctx)}
	}
}

func (m Model) waitForChange() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-m.changes:
			return changedMsg{}
		case <-m.ctx.Done():
			return nil
		}
	}
}

func (m Model) waitForConfirm() tea.Cmd {
	return func() tea.Msg {
		select {
		case req := <-m.confirm.requests:
			return confirmMsg(req)
		case <-m.ctx.Done():
			return nil
		}
	}
}

func nextFilter(f todo.Filter) todo.Filter {
	for i, candidate := range todo.Filters {
		if candidate == f {
			return todo.Filters[(i+1)%len(todo.Filters)]
		}
	}
	return todo.FilterAll
}
