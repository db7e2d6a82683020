// Package todo defines the shared data model of nanotodo: the Todo record,
// its provenance tag, the store contract both write paths converge on, and
// the filtering and counting helpers used by every front end.
package todo

import (
	"slices"
	"time"
)

// Source records which input surface created a record
type Source string

const (
	// SourceWeb marks records created through the REST API
	SourceWeb Source = "web"
	// SourceTelegram marks records created through the chat bot
	SourceTelegram Source = "telegram"
)

// Valid reports whether s is one of the known sources
func (s Source) Valid() bool {
	return s == SourceWeb || s == SourceTelegram
}

// Todo is the single persisted entity. Only Completed changes after creation.
type Todo struct {
	ID        string    `json:"id" yaml:"id" toml:"id"`
	Text      string    `json:"text" yaml:"text" toml:"text"`
	Completed bool      `json:"completed" yaml:"completed" toml:"completed"`
	CreatedAt time.Time `json:"createdAt" yaml:"createdAt" toml:"createdAt"`
	Source    Source    `json:"source" yaml:"source" toml:"source"`
}

// New builds a record for a store that has already assigned id and
// createdAt. An empty source defaults to SourceWeb. The result is validated
// against the record schema; a *ValidationError is returned on failure.
func New(id, text string, source Source, createdAt time.Time) (Todo, error) {
	if source == "" {
		source = SourceWeb
	}
	t := Todo{
		ID:        id,
		Text:      text,
		Completed: false,
		CreatedAt: createdAt,
		Source:    source,
	}
	if err := Validate(t); err != nil {
		return Todo{}, err
	}
	return t, nil
}

// SortNewestFirst orders todos by creation time, newest first. Records
// created at the same instant keep their relative order.
func SortNewestFirst(todos []Todo) {
	slices.SortStableFunc(todos, func(a, b Todo) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
}

// ListOptions narrows a store listing
type ListOptions struct {
	// Completed restricts the listing to records with this completion
	// state. nil lists everything.
	Completed *bool
}

// Matches reports whether t passes the options
func (o ListOptions) Matches(t Todo) bool {
	return o.Completed == nil || *o.Completed == t.Completed
}

// Pending returns options selecting records that are not completed
func Pending() ListOptions {
	completed := false
	return ListOptions{Completed: &completed}
}
