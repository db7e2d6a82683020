package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/arthur-debert/nanotodo/render"
	"github.com/arthur-debert/nanotodo/todo"
)

// ErrorTimeout is how long an error stays visible
const ErrorTimeout = 5 * time.Second

// MsgEmptyInput is shown when adding with a blank input field
const MsgEmptyInput = "Please enter a todo"

// ErrEmptyInput is returned by Add when the input field is blank
var ErrEmptyInput = errors.New(MsgEmptyInput)

// API is the server surface the controller needs; *HTTPClient implements it
type API interface {
	List(ctx context.Context) ([]todo.Todo, error)
	Create(ctx context.Context, text string) (todo.Todo, error)
	SetCompleted(ctx context.Context, id string, completed bool) (todo.Todo, error)
	Delete(ctx context.Context, id string) error
}

// Confirmer asks the user whether t should really be deleted
type Confirmer interface {
	Confirm(ctx context.Context, t todo.Todo) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer
type ConfirmFunc func(ctx context.Context, t todo.Todo) (bool, error)

func (f ConfirmFunc) Confirm(ctx context.Context, t todo.Todo) (bool, error) {
	return f(ctx, t)
}

// AlwaysConfirm approves every deletion
var AlwaysConfirm = ConfirmFunc(func(context.Context, todo.Todo) (bool, error) { return true, nil })

// Controller holds the state of one client session: the last loaded list,
// the active filter, the add-field input and the visible error. The list is
// only ever replaced by a full reload from the server.
type Controller struct {
	api       API
	confirmer Confirmer
	renderer  *render.Renderer
	afterFunc func(time.Duration, func())
	logger    *slog.Logger

	mu       sync.Mutex
	todos    []todo.Todo
	filter   todo.Filter
	input    string
	errMsg   string
	errSeq   uint64
	onChange []func()
}

// Option configures a Controller
type Option func(*Controller)

// WithConfirmer sets the delete confirmation step
func WithConfirmer(c Confirmer) Option {
	return func(ctl *Controller) {
		ctl.confirmer = c
	}
}

// WithRenderer sets the renderer used by View
func WithRenderer(r *render.Renderer) Option {
	return func(ctl *Controller) {
		ctl.renderer = r
	}
}

// WithAfterFunc replaces the timer used to expire errors
func WithAfterFunc(fn func(time.Duration, func())) Option {
	return func(ctl *Controller) {
		ctl.afterFunc = fn
	}
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(ctl *Controller) {
		ctl.logger = l
	}
}

// NewController creates a controller talking to api. Without a Confirmer,
// deletions are approved.
func NewController(api API, opts ...Option) *Controller {
	c := &Controller{
		api:       api,
		confirmer: AlwaysConfirm,
		afterFunc: func(d time.Duration, f func()) { time.AfterFunc(d, f) },
		logger:    slog.Default(),
		todos:     []todo.Todo{},
		filter:    todo.FilterAll,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.renderer == nil {
		c.renderer = render.New()
	}
	return c
}

// Init loads the initial list
func (c *Controller) Init(ctx context.Context) error {
	return c.reload(ctx, "Load")
}

// Reload fetches the list again
func (c *Controller) Reload(ctx context.Context) error {
	return c.reload(ctx, "Load")
}

// SetInput replaces the add-field content
func (c *Controller) SetInput(s string) {
	c.mu.Lock()
	c.input = s
	c.mu.Unlock()
}

// Input returns the add-field content
func (c *Controller) Input() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.input
}

// Add creates a todo from the input field. The field is cleared only when
// the server accepted the todo.
func (c *Controller) Add(ctx context.Context) error {
	text := strings.TrimSpace(c.Input())
	if text == "" {
		c.showError(MsgEmptyInput)
		return ErrEmptyInput
	}

	if _, err := c.api.Create(ctx, text); err != nil {
		c.fail("Add", err)
		return err
	}

	c.mu.Lock()
	c.input = ""
	c.mu.Unlock()
	return c.reload(ctx, "Load")
}

// Toggle sets the completion state of id
func (c *Controller) Toggle(ctx context.Context, id string, completed bool) error {
	if _, err := c.api.SetCompleted(ctx, id, completed); err != nil {
		c.fail("Update", err)
		return err
	}
	return c.reload(ctx, "Load")
}

// Delete removes id after the Confirmer approves. It reports whether the
// todo was deleted; a declined confirmation is not an error.
func (c *Controller) Delete(ctx context.Context, id string) (bool, error) {
	t, ok := c.find(id)
	if !ok {
		t = todo.Todo{ID: id}
	}
	confirmed, err := c.confirmer.Confirm(ctx, t)
	if err != nil {
		return false, err
	}
	if !confirmed {
		c.logger.Debug("delete declined", "id", id)
		return false, nil
	}

	if err := c.api.Delete(ctx, id); err != nil {
		c.fail("Delete", err)
		return false, err
	}
	return true, c.reload(ctx, "Load")
}

// SetFilter switches the active filter. The list is not reloaded.
func (c *Controller) SetFilter(f todo.Filter) {
	c.mu.Lock()
	c.filter = f
	c.mu.Unlock()
	c.notify()
}

// Filter returns the active filter
func (c *Controller) Filter() todo.Filter {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filter
}

// Todos returns a copy of the full list, newest first
func (c *Controller) Todos() []todo.Todo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]todo.Todo(nil), c.todos...)
}

// Visible returns the todos matching the active filter
func (c *Controller) Visible() []todo.Todo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filter.Apply(c.todos)
}

// Stats counts the full list, independent of the filter
func (c *Controller) Stats() todo.Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return todo.Count(c.todos)
}

// Error returns the visible error message, or ""
func (c *Controller) Error() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errMsg
}

// DismissError hides the visible error
func (c *Controller) DismissError() {
	c.mu.Lock()
	c.errMsg = ""
	c.errSeq++
	c.mu.Unlock()
	c.notify()
}

// OnChange registers fn to run after every state change
func (c *Controller) OnChange(fn func()) {
	c.mu.Lock()
	c.onChange = append(c.onChange, fn)
	c.mu.Unlock()
}

// Resolve finds a todo by id, or by its 1-based position in the visible list
func (c *Controller) Resolve(ref string) (todo.Todo, error) {
	if t, ok := c.find(ref); ok {
		return t, nil
	}
	todos := c.Visible()
	if n, err := strconv.Atoi(ref); err == nil {
		if n >= 1 && n <= len(todos) {
			return todos[n-1], nil
		}
		return todo.Todo{}, fmt.Errorf("index %d out of range (1-%d): %w", n, len(todos), todo.ErrNotFound)
	}
	return todo.Todo{}, fmt.Errorf("%q: %w", ref, todo.ErrNotFound)
}

// View renders the current state as a full page
func (c *Controller) View() (string, error) {
	c.mu.Lock()
	page := render.Page{
		Todos:  append([]todo.Todo(nil), c.todos...),
		Filter: c.filter,
		Input:  c.input,
		Error:  c.errMsg,
	}
	c.mu.Unlock()
	return c.renderer.PageString(page)
}

func (c *Controller) reload(ctx context.Context, action string) error {
	todos, err := c.api.List(ctx)
	if err != nil {
		c.fail(action, err)
		return err
	}
	if todos == nil {
		todos = []todo.Todo{}
	}
	c.mu.Lock()
	c.todos = todos
	c.mu.Unlock()
	c.notify()
	return nil
}

func (c *Controller) find(id string) (todo.Todo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range c.todos {
		if t.ID == id {
			return t, true
		}
	}
	return todo.Todo{}, false
}

func (c *Controller) fail(action string, err error) {
	c.logger.Warn("request failed", "action", action, "error", err)
	c.showError(fmt.Sprintf("%s failed: %s", action, reason(err)))
}

// showError replaces the visible error and schedules its expiry. An expiry
// only clears the error it was scheduled for.
func (c *Controller) showError(msg string) {
	c.mu.Lock()
	c.errMsg = msg
	c.errSeq++
	seq := c.errSeq
	c.mu.Unlock()
	c.notify()

	c.afterFunc(ErrorTimeout, func() {
		c.mu.Lock()
		if c.errSeq != seq {
			c.mu.Unlock()
			return
		}
		c.errMsg = ""
		c.mu.Unlock()
		c.notify()
	})
}

func (c *Controller) notify() {
	c.mu.Lock()
	fns := append([]func(){}, c.onChange...)
	c.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func reason(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Error()
	}
	return err.Error()
}
