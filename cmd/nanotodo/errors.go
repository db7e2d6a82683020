package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/arthur-debert/nanotodo/client"
	"github.com/arthur-debert/nanotodo/todo"
)

// CLIError represents a user-friendly CLI error with context and suggestions
type CLIError struct {
	Operation   string   // The operation that failed (e.g., "add", "list", "serve")
	Cause       string   // The underlying cause (e.g., "todo not found")
	Details     string   // Additional technical details
	Suggestions []string // Helpful suggestions for the user
	Underlying  error    // Original error for debugging
}

// Error implements the error interface
func (e *CLIError) Error() string {
	var msg strings.Builder

	if e.Operation != "" {
		msg.WriteString(fmt.Sprintf("Failed to %s", e.Operation))
	} else {
		msg.WriteString("Operation failed")
	}

	if e.Cause != "" {
		msg.WriteString(fmt.Sprintf(": %s", e.Cause))
	}

	if e.Details != "" {
		msg.WriteString(fmt.Sprintf(" (%s)", e.Details))
	}

	if len(e.Suggestions) > 0 {
		msg.WriteString("\n\nSuggestions:")
		for i, suggestion := range e.Suggestions {
			msg.WriteString(fmt.Sprintf("\n  %d. %s", i+1, suggestion))
		}
	}

	return msg.String()
}

// Unwrap returns the underlying error for error chain compatibility
func (e *CLIError) Unwrap() error {
	return e.Underlying
}

// NewConfigError creates an error for configuration issues
func NewConfigError(operation string, underlying error, suggestions ...string) *CLIError {
	return &CLIError{
		Operation:   operation,
		Cause:       fmt.Sprintf("configuration error: %v", underlying),
		Suggestions: suggestions,
		Underlying:  underlying,
	}
}

// NewNotFoundError creates an error for a todo reference that matches nothing
func NewNotFoundError(operation, ref string, underlying error) *CLIError {
	return &CLIError{
		Operation: operation,
		Cause:     fmt.Sprintf("no todo matches %q", ref),
		Suggestions: []string{
			CommonSuggestions.CheckRef,
		},
		Underlying: underlying,
	}
}

// NewRequestError creates an error for a failed call to the server
func NewRequestError(operation, server string, underlying error) *CLIError {
	e := &CLIError{
		Operation:  operation,
		Underlying: underlying,
	}

	var apiErr *client.APIError
	switch {
	case errors.As(underlying, &apiErr):
		e.Cause = apiErr.Error()
		e.Details = fmt.Sprintf("HTTP %d", apiErr.Status)
	case errors.Is(underlying, client.ErrEmptyInput):
		e.Cause = underlying.Error()
	default:
		e.Cause = "server unreachable"
		e.Details = underlying.Error()
		e.Suggestions = []string{
			fmt.Sprintf("Check that 'nanotodo serve' is running at %s", server),
			CommonSuggestions.CheckServer,
		}
	}
	return e
}

// NewStoreError creates an error for direct store access failures
func NewStoreError(operation string, underlying error, suggestions ...string) *CLIError {
	cause := "store operation failed"
	details := ""

	if underlying != nil {
		details = underlying.Error()

		errStr := strings.ToLower(underlying.Error())
		switch {
		case errors.Is(underlying, todo.ErrNotFound):
			cause = "todo not found"
		case strings.Contains(errStr, "no such file"):
			cause = "data file not found"
		case strings.Contains(errStr, "permission denied"):
			cause = "insufficient permissions to access the data file"
		case strings.Contains(errStr, "database is locked"), strings.Contains(errStr, "lock"):
			cause = "data file is currently locked by another process"
		case strings.Contains(errStr, "connect"):
			cause = "database unreachable"
		}
	}

	return &CLIError{
		Operation:   operation,
		Cause:       cause,
		Details:     details,
		Suggestions: suggestions,
		Underlying:  underlying,
	}
}

// WrapError wraps an existing error with CLI-friendly context
func WrapError(operation string, err error, suggestions ...string) error {
	if err == nil {
		return nil
	}

	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		if cliErr.Operation == "" {
			cliErr.Operation = operation
		}
		return cliErr
	}

	return NewStoreError(operation, err, suggestions...)
}

// CommonSuggestions are reused across commands
var CommonSuggestions = struct {
	CheckConfig string
	CheckServer string
	CheckStore  string
	CheckRef    string
	CheckToken  string
}{
	CheckConfig: "Check your configuration file or NANOTODO_* environment variables",
	CheckServer: "Use --server or NANOTODO_SERVER to point at another server",
	CheckStore:  "Check --store-driver, --store-path and --store-uri",
	CheckRef:    "Use an id or a 1-based index from 'nanotodo list'",
	CheckToken:  "Set TELEGRAM_BOT_TOKEN or --telegram-token",
}
