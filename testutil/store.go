// Package testutil holds fixtures and assertions shared by the package tests.
package testutil

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/arthur-debert/nanotodo/store"
	"github.com/arthur-debert/nanotodo/todo"
)

// Epoch is the first instant handed out by a Clock
var Epoch = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

// Clock is a deterministic time source that advances one minute per call,
// so records created in sequence are strictly ordered
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock creates a clock starting at Epoch
func NewClock() *Clock {
	return &Clock{now: Epoch}
}

// Now advances the clock and returns the new time
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Minute)
	return c.now
}

// NewStore returns an empty JSON store on an in-memory file system
func NewStore(t *testing.T) todo.Store {
	t.Helper()
	s, err := store.NewJSONFile("todos.json",
		store.WithFileSystem(store.NewMockFileSystem()),
		store.WithFileLockFactory(store.NewMockFileLockFactory()),
		store.WithTimeFunc(NewClock().Now),
	)
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// Seed describes a record to create before a test
type Seed struct {
	Text      string
	Source    todo.Source
	Completed bool
}

// SeedStore creates the seeds in order (so the last one is the newest) and
// returns the created records in the same order
func SeedStore(t *testing.T, s todo.Store, seeds ...Seed) []todo.Todo {
	t.Helper()
	ctx := context.Background()
	out := make([]todo.Todo, 0, len(seeds))
	for _, seed := range seeds {
		created, err := s.Create(ctx, seed.Text, seed.Source)
		if err != nil {
			t.Fatalf("failed to seed %q: %v", seed.Text, err)
		}
		if seed.Completed {
			created, err = s.Update(ctx, created.ID, true)
			if err != nil {
				t.Fatalf("failed to complete %q: %v", seed.Text, err)
			}
		}
		out = append(out, created)
	}
	return out
}

// MixedSeeds are five records, two of them completed, from both sources
func MixedSeeds() []Seed {
	return []Seed{
		{Text: "Buy milk", Source: todo.SourceWeb},
		{Text: "Call bank", Source: todo.SourceTelegram, Completed: true},
		{Text: "Write report", Source: todo.SourceWeb},
		{Text: "Book flights", Source: todo.SourceTelegram},
		{Text: "Pay rent", Source: todo.SourceWeb, Completed: true},
	}
}

// ErrBroken is the failure reported by FailingStore by default
var ErrBroken = errors.New("connection refused")

// FailingStore is a todo.Store whose every operation fails with Err
type FailingStore struct {
	Err error
}

func (f FailingStore) err() error {
	if f.Err != nil {
		return f.Err
	}
	return &todo.StoreError{Op: "test", Err: ErrBroken}
}

func (f FailingStore) Create(context.Context, string, todo.Source) (todo.Todo, error) {
	return todo.Todo{}, f.err()
}

func (f FailingStore) List(context.Context, todo.ListOptions) ([]todo.Todo, error) {
	return nil, f.err()
}

func (f FailingStore) Update(context.Context, string, bool) (todo.Todo, error) {
	return todo.Todo{}, f.err()
}

func (f FailingStore) Delete(context.Context, string) (todo.Todo, error) {
	return todo.Todo{}, f.err()
}

func (f FailingStore) Close() error { return nil }
