package todo

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

const schemaURL = "https://nanotodo.dev/schemas/todo.json"

// recordSchema mirrors the persisted shape of a Todo
const recordSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["id", "text", "completed", "createdAt", "source"],
  "properties": {
    "id":        {"type": "string", "minLength": 1},
    "text":      {"type": "string", "pattern": "\\S"},
    "completed": {"type": "boolean"},
    "createdAt": {"type": "string", "format": "date-time"},
    "source":    {"type": "string", "enum": ["web", "telegram"]}
  }
}`

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.AssertFormat = true
		if err := compiler.AddResource(schemaURL, strings.NewReader(recordSchema)); err != nil {
			schemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}
		schema, schemaErr = compiler.Compile(schemaURL)
	})
	return schema, schemaErr
}

// Validate checks t against the record schema
func Validate(t Todo) error {
	s, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("compile todo schema: %w", err)
	}

	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal todo: %w", err)
	}
	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("unmarshal todo: %w", err)
	}

	if err := s.Validate(doc); err != nil {
		ve, ok := err.(*jsonschema.ValidationError)
		if !ok {
			return err
		}
		return toValidationError(ve)
	}
	// the schema pattern only knows ASCII whitespace
	if strings.TrimSpace(t.Text) == "" {
		return &ValidationError{Field: "text", Message: "text is required"}
	}
	return nil
}

// toValidationError reports the first leaf cause, which names the offending
// property rather than the root object
func toValidationError(ve *jsonschema.ValidationError) *ValidationError {
	leaf := ve
	for len(leaf.Causes) > 0 {
		leaf = leaf.Causes[0]
	}

	field := strings.TrimPrefix(leaf.InstanceLocation, "/")
	if field == "" && strings.HasPrefix(leaf.Message, "missing properties") {
		// e.g. missing properties: "text"
		if i := strings.Index(leaf.Message, `"`); i >= 0 {
			field = strings.Trim(leaf.Message[i:], `"`)
			if j := strings.Index(field, `"`); j >= 0 {
				field = field[:j]
			}
		}
	}

	switch field {
	case "text":
		return &ValidationError{Field: field, Message: "text is required"}
	case "source":
		return &ValidationError{Field: field, Message: "source must be web or telegram"}
	}
	return &ValidationError{Field: field, Message: leaf.Message}
}
