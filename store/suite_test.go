package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/arthur-debert/nanotodo/todo"
	"github.com/google/go-cmp/cmp"
)

// stepClock returns a time one minute later on every call
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func newStepClock() *stepClock {
	return &stepClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Minute)
	return c.now
}

type storeFactory func(t *testing.T, now func() time.Time) todo.Store

// runStoreSuite checks the todo.Store contract against one backend
func runStoreSuite(t *testing.T, open storeFactory) {
	ctx := context.Background()

	newStore := func(t *testing.T) todo.Store {
		t.Helper()
		s := open(t, newStepClock().Now)
		t.Cleanup(func() { _ = s.Close() })
		return s
	}

	texts := func(todos []todo.Todo) []string {
		out := []string{}
		for _, td := range todos {
			out = append(out, td.Text)
		}
		return out
	}

	t.Run("create assigns id, time and defaults", func(t *testing.T) {
		s := newStore(t)
		web, err := s.Create(ctx, "Buy milk", todo.SourceWeb)
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if web.ID == "" {
			t.Error("expected an assigned id")
		}
		if web.CreatedAt.IsZero() {
			t.Error("expected an assigned creation time")
		}
		if web.Completed {
			t.Error("new records must not be completed")
		}
		if web.Source != todo.SourceWeb {
			t.Errorf("expected source web, got %q", web.Source)
		}

		bot, err := s.Create(ctx, "Call bank", todo.SourceTelegram)
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if bot.Source != todo.SourceTelegram {
			t.Errorf("expected source telegram, got %q", bot.Source)
		}
		if bot.ID == web.ID {
			t.Error("ids must be unique")
		}
	})

	t.Run("create rejects blank text without storing anything", func(t *testing.T) {
		s := newStore(t)
		for _, text := range []string{"", "   ", "\u3000", "\u00a0\v"} {
			_, err := s.Create(ctx, text, todo.SourceWeb)
			if !todo.IsValidation(err) {
				t.Errorf("create(%q): expected validation error, got %v", text, err)
			}
		}
		all, err := s.List(ctx, todo.ListOptions{})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(all) != 0 {
			t.Errorf("expected empty store, got %d records", len(all))
		}
	})

	t.Run("list is newest first across sources", func(t *testing.T) {
		s := newStore(t)
		for _, c := range []struct {
			text   string
			source todo.Source
		}{
			{"first", todo.SourceWeb},
			{"second", todo.SourceTelegram},
			{"third", todo.SourceWeb},
			{"fourth", todo.SourceTelegram},
		} {
			if _, err := s.Create(ctx, c.text, c.source); err != nil {
				t.Fatalf("create %s: %v", c.text, err)
			}
		}

		all, err := s.List(ctx, todo.ListOptions{})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		want := []string{"fourth", "third", "second", "first"}
		if diff := cmp.Diff(want, texts(all)); diff != "" {
			t.Errorf("order mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("list can select pending records", func(t *testing.T) {
		s := newStore(t)
		a, _ := s.Create(ctx, "a", todo.SourceWeb)
		if _, err := s.Create(ctx, "b", todo.SourceWeb); err != nil {
			t.Fatalf("create: %v", err)
		}
		if _, err := s.Update(ctx, a.ID, true); err != nil {
			t.Fatalf("update: %v", err)
		}

		pending, err := s.List(ctx, todo.Pending())
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if diff := cmp.Diff([]string{"b"}, texts(pending)); diff != "" {
			t.Errorf("pending mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("toggling twice restores the original state", func(t *testing.T) {
		s := newStore(t)
		created, err := s.Create(ctx, "toggle me", todo.SourceWeb)
		if err != nil {
			t.Fatalf("create: %v", err)
		}

		on, err := s.Update(ctx, created.ID, !created.Completed)
		if err != nil {
			t.Fatalf("first update: %v", err)
		}
		if !on.Completed {
			t.Error("expected completed after first toggle")
		}
		off, err := s.Update(ctx, created.ID, !on.Completed)
		if err != nil {
			t.Fatalf("second update: %v", err)
		}
		if diff := cmp.Diff(created, off); diff != "" {
			t.Errorf("record changed after round trip (-want +got):\n%s", diff)
		}
	})

	t.Run("delete removes the record for good", func(t *testing.T) {
		s := newStore(t)
		keep, _ := s.Create(ctx, "keep", todo.SourceWeb)
		gone, err := s.Create(ctx, "gone", todo.SourceTelegram)
		if err != nil {
			t.Fatalf("create: %v", err)
		}

		deleted, err := s.Delete(ctx, gone.ID)
		if err != nil {
			t.Fatalf("delete: %v", err)
		}
		if diff := cmp.Diff(gone, deleted); diff != "" {
			t.Errorf("deleted record mismatch (-want +got):\n%s", diff)
		}

		all, err := s.List(ctx, todo.ListOptions{})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(all) != 1 || all[0].ID != keep.ID {
			t.Errorf("expected only %q to remain, got %v", keep.ID, texts(all))
		}

		if _, err := s.Update(ctx, gone.ID, true); !errors.Is(err, todo.ErrNotFound) {
			t.Errorf("update after delete: expected ErrNotFound, got %v", err)
		}
		if _, err := s.Delete(ctx, gone.ID); !errors.Is(err, todo.ErrNotFound) {
			t.Errorf("delete after delete: expected ErrNotFound, got %v", err)
		}
	})

	t.Run("unknown ids are not found", func(t *testing.T) {
		s := newStore(t)
		for _, id := range []string{"does-not-exist", "65f1c0c0c0c0c0c0c0c0c0c0"} {
			if _, err := s.Update(ctx, id, true); !errors.Is(err, todo.ErrNotFound) {
				t.Errorf("update %s: expected ErrNotFound, got %v", id, err)
			}
			if _, err := s.Delete(ctx, id); !errors.Is(err, todo.ErrNotFound) {
				t.Errorf("delete %s: expected ErrNotFound, got %v", id, err)
			}
		}
	})
}
