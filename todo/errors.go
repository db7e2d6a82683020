package todo

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when no record matches an id
var ErrNotFound = errors.New("todo not found")

// ValidationError reports a record that violates the schema, such as a
// missing text. It is the caller's fault and safe to show to the caller.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid todo: " + e.Message
	}
	return fmt.Sprintf("invalid todo %s: %s", e.Field, e.Message)
}

// StoreError wraps an unexpected persistence failure
type StoreError struct {
	Op  string // create, list, update, delete, open, close
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// WrapStoreError wraps err in a *StoreError unless it is nil, a validation
// error, or a not-found condition, which callers must still be able to tell
// apart from failures.
func WrapStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	var ve *ValidationError
	var se *StoreError
	if errors.Is(err, ErrNotFound) || errors.As(err, &ve) || errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

// IsValidation reports whether err carries a *ValidationError
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
