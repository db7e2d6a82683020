// Package formats writes todo lists in the output formats offered by the
// CLI: json, yaml, toml and a human-readable table.
package formats

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/arthur-debert/nanotodo/todo"
)

// Format defines how a list of todos is written out
type Format struct {
	// Name is the format identifier (alphanumeric, dashes, underscores, lowercase)
	Name string

	// Extension is the file extension including the dot (e.g., ".json")
	Extension string

	// Encode writes todos, in the given order, to w
	Encode func(w io.Writer, todos []todo.Todo) error
}

// Document is the envelope used by the structured formats
type Document struct {
	Todos []todo.Todo `json:"todos" yaml:"todos" toml:"todos"`
}

// registry holds all available formats
var registry = make(map[string]*Format)

// Register adds a new format to the registry
func Register(format *Format) error {
	if !isValidFormatName(format.Name) {
		return fmt.Errorf("invalid format name %q: must be lowercase alphanumeric with dashes and underscores only", format.Name)
	}

	if !strings.HasPrefix(format.Extension, ".") {
		format.Extension = "." + format.Extension
	}

	if _, exists := registry[format.Name]; exists {
		return fmt.Errorf("format %q already registered", format.Name)
	}

	registry[format.Name] = format
	return nil
}

// Get returns a format by name
func Get(name string) (*Format, error) {
	format, exists := registry[strings.ToLower(name)]
	if !exists {
		return nil, fmt.Errorf("unknown format %q (want one of %s)", name, strings.Join(List(), ", "))
	}
	return format, nil
}

// List returns all registered format names, sorted
func List() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Write encodes todos to w in the named format
func Write(w io.Writer, name string, todos []todo.Todo) error {
	format, err := Get(name)
	if err != nil {
		return err
	}
	if todos == nil {
		todos = []todo.Todo{}
	}
	return format.Encode(w, todos)
}

// isValidFormatName checks if a format name is valid
func isValidFormatName(name string) bool {
	if name == "" {
		return false
	}

	for _, r := range name {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '-' && r != '_' {
			return false
		}
	}
	return true
}

func mustRegister(format *Format) {
	if err := Register(format); err != nil {
		panic(fmt.Sprintf("failed to register %s format: %v", format.Name, err))
	}
}
