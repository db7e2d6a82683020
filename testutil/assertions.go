package testutil

import (
	"testing"

	"github.com/arthur-debert/nanotodo/todo"
	"github.com/google/go-cmp/cmp"
)

// Texts returns the texts of todos in order
func Texts(todos []todo.Todo) []string {
	out := make([]string, 0, len(todos))
	for _, t := range todos {
		out = append(out, t.Text)
	}
	return out
}

// AssertTexts checks the texts of todos, in order
func AssertTexts(t *testing.T, todos []todo.Todo, want ...string) {
	t.Helper()
	if want == nil {
		want = []string{}
	}
	if diff := cmp.Diff(want, Texts(todos)); diff != "" {
		t.Errorf("texts mismatch (-want +got):\n%s", diff)
	}
}

// AssertTodoExists verifies that a record with the given id is in todos
func AssertTodoExists(t *testing.T, todos []todo.Todo, id string) {
	t.Helper()
	for _, td := range todos {
		if td.ID == id {
			return
		}
	}
	t.Errorf("todo %s not found in results", id)
}

// AssertTodoNotExists verifies that no record with the given id is in todos
func AssertTodoNotExists(t *testing.T, todos []todo.Todo, id string) {
	t.Helper()
	for _, td := range todos {
		if td.ID == id {
			t.Errorf("todo %s should not be in results", id)
			return
		}
	}
}
