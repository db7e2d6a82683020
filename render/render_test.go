package render

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/arthur-debert/nanotodo/todo"
)

func sample() []todo.Todo {
	at := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	return []todo.Todo{
		{ID: "3", Text: "Write report", CreatedAt: at.Add(3 * time.Minute), Source: todo.SourceWeb},
		{ID: "2", Text: "Call bank", Completed: true, CreatedAt: at.Add(2 * time.Minute), Source: todo.SourceTelegram},
		{ID: "1", Text: "Buy milk", CreatedAt: at.Add(time.Minute), Source: todo.SourceWeb},
	}
}

func renderList(t *testing.T, todos []todo.Todo, f todo.Filter) string {
	t.Helper()
	var buf bytes.Buffer
	if err := New().List(&buf, todos, f); err != nil {
		t.Fatalf("render list: %v", err)
	}
	return buf.String()
}

func TestList(t *testing.T) {
	t.Run("rows follow list order with checkbox, badge and delete control", func(t *testing.T) {
		out := renderList(t, sample(), todo.FilterAll)

		report := strings.Index(out, "Write report")
		bank := strings.Index(out, "Call bank")
		milk := strings.Index(out, "Buy milk")
		if report < 0 || bank < 0 || milk < 0 {
			t.Fatalf("expected all three rows, got:\n%s", out)
		}
		if !(report < bank && bank < milk) {
			t.Errorf("rows out of order:\n%s", out)
		}
		if got := strings.Count(out, `class="todo-checkbox"`); got != 3 {
			t.Errorf("expected 3 checkboxes, got %d", got)
		}
		if got := strings.Count(out, "delete-btn"); got != 3 {
			t.Errorf("expected 3 delete controls, got %d", got)
		}
		if got := strings.Count(out, " checked"); got != 1 {
			t.Errorf("expected exactly one checked box, got %d", got)
		}
		if !strings.Contains(out, `<span class="todo-source telegram">telegram</span>`) {
			t.Errorf("missing telegram badge:\n%s", out)
		}
		if strings.Contains(out, "No todos yet") {
			t.Error("empty message must not show with rows present")
		}
	})

	t.Run("filters select the visible rows", func(t *testing.T) {
		active := renderList(t, sample(), todo.FilterActive)
		if strings.Contains(active, "Call bank") || !strings.Contains(active, "Buy milk") {
			t.Errorf("active view wrong:\n%s", active)
		}
		done := renderList(t, sample(), todo.FilterCompleted)
		if !strings.Contains(done, "Call bank") || strings.Contains(done, "Buy milk") {
			t.Errorf("completed view wrong:\n%s", done)
		}
	})

	t.Run("text is escaped", func(t *testing.T) {
		todos := []todo.Todo{{ID: "x", Text: "<b>x</b>", Source: todo.SourceWeb}}
		out := renderList(t, todos, todo.FilterAll)
		if strings.Contains(out, "<b>x</b>") {
			t.Errorf("markup must not be interpreted:\n%s", out)
		}
		if !strings.Contains(out, "&lt;b&gt;x&lt;/b&gt;") {
			t.Errorf("expected escaped text:\n%s", out)
		}
	})

	t.Run("empty states depend on the filter", func(t *testing.T) {
		allDone := []todo.Todo{{ID: "1", Text: "done", Completed: true, Source: todo.SourceWeb}}
		noneDone := []todo.Todo{{ID: "1", Text: "open", Source: todo.SourceWeb}}

		tests := []struct {
			name   string
			todos  []todo.Todo
			filter todo.Filter
			want   string
		}{
			{"nothing stored", nil, todo.FilterAll, EmptyAll},
			{"nothing active", allDone, todo.FilterActive, EmptyActive},
			{"nothing completed", noneDone, todo.FilterCompleted, EmptyCompleted},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				out := renderList(t, tt.todos, tt.filter)
				if !strings.Contains(out, tt.want) {
					t.Errorf("expected %q in:\n%s", tt.want, out)
				}
			})
		}
	})
}

func TestStats(t *testing.T) {
	var buf bytes.Buffer
	if err := New().Stats(&buf, todo.Stats{Total: 5, Active: 3, Completed: 2}); err != nil {
		t.Fatalf("render stats: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Total: 5", "Active: 3", "Completed: 2"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in:\n%s", want, out)
		}
	}
}

func TestFilters(t *testing.T) {
	var buf bytes.Buffer
	if err := New().Filters(&buf, todo.FilterActive); err != nil {
		t.Fatalf("render filters: %v", err)
	}
	out := buf.String()
	if got := strings.Count(out, "filter active"); got != 1 {
		t.Errorf("expected one marked control, got %d:\n%s", got, out)
	}
	if !strings.Contains(out, `class="filter active" data-filter="active">Active</a>`) {
		t.Errorf("active control not marked:\n%s", out)
	}
	for _, label := range []string{">All<", ">Completed<"} {
		if !strings.Contains(out, label) {
			t.Errorf("missing control %s:\n%s", label, out)
		}
	}
}

func TestError(t *testing.T) {
	r := New()

	var empty bytes.Buffer
	if err := r.Error(&empty, ""); err != nil {
		t.Fatalf("render error: %v", err)
	}
	if empty.Len() != 0 {
		t.Errorf("expected no banner, got %q", empty.String())
	}

	var buf bytes.Buffer
	if err := r.Error(&buf, "Add failed: <oops>"); err != nil {
		t.Fatalf("render error: %v", err)
	}
	if !strings.Contains(buf.String(), "Add failed: &lt;oops&gt;") {
		t.Errorf("unexpected banner: %s", buf.String())
	}
}

func TestPage(t *testing.T) {
	out, err := New().PageString(Page{Todos: sample(), Filter: todo.FilterCompleted, Error: "Load failed: boom"})
	if err != nil {
		t.Fatalf("render page: %v", err)
	}

	for _, want := range []string{
		"<!DOCTYPE html>",
		"<title>" + DefaultTitle + "</title>",
		`id="todoInput"`,
		"Load failed: boom",
		"Call bank",
		"Total: 3",
		"Active: 2",
		"Completed: 1",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in page", want)
		}
	}
	if strings.Contains(out, "Buy milk") {
		t.Error("active rows must be hidden under the completed filter")
	}
}

func TestFilterLabel(t *testing.T) {
	if got := FilterLabel(todo.FilterCompleted); got != "Completed" {
		t.Errorf("expected Completed, got %q", got)
	}

	t.Run("concurrent pages", func(t *testing.T) {
		r := New()
		var wg sync.WaitGroup
		errs := make(chan error, 30)
		for i := 0; i < 30; i++ {
			wg.Add(1)
			go func(f todo.Filter) {
				defer wg.Done()
				_, err := r.PageString(Page{Todos: sample(), Filter: f})
				errs <- err
			}(todo.Filters[i%len(todo.Filters)])
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			if err != nil {
				t.Errorf("page: %v", err)
			}
		}
	})
}
