package formats

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/arthur-debert/nanotodo/todo"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// JSON writes {"todos": [...]} indented
var JSON = &Format{
	Name:      "json",
	Extension: ".json",
	Encode: func(w io.Writer, todos []todo.Todo) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(Document{Todos: todos})
	},
}

// YAML writes a todos sequence
var YAML = &Format{
	Name:      "yaml",
	Extension: ".yaml",
	Encode: func(w io.Writer, todos []todo.Todo) error {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(Document{Todos: todos}); err != nil {
			return err
		}
		return enc.Close()
	},
}

// TOML writes an array of [[todos]] tables
var TOML = &Format{
	Name:      "toml",
	Extension: ".toml",
	Encode: func(w io.Writer, todos []todo.Todo) error {
		return toml.NewEncoder(w).Encode(Document{Todos: todos})
	},
}

// Table writes a numbered table for terminals. Numbers are 1-based
// positions in the given order.
var Table = &Format{
	Name:      "table",
	Extension: ".txt",
	Encode: func(w io.Writer, todos []todo.Todo) error {
		if len(todos) == 0 {
			_, err := fmt.Fprintln(w, "No todos.")
			return err
		}
		rows := make([][]string, 0, len(todos))
		for i, t := range todos {
			rows = append(rows, []string{
				strconv.Itoa(i + 1),
				Checkbox(t.Completed),
				t.Text,
				SourceLabel(t.Source),
				t.CreatedAt.Local().Format(time.DateTime),
				t.ID,
			})
		}
		tbl := table.New().
			Border(lipgloss.NormalBorder()).
			Headers("#", "Done", "Text", "Source", "Created", "ID").
			Rows(rows...)
		_, err := fmt.Fprintln(w, tbl.String())
		return err
	},
}

// SourceLabel is the display name of a source, e.g. "Telegram". Safe for
// concurrent use.
func SourceLabel(s todo.Source) string {
	return cases.Title(language.English).String(string(s))
}

// Checkbox renders a completion flag
func Checkbox(completed bool) string {
	if completed {
		return "[x]"
	}
	return "[ ]"
}

func init() {
	for _, f := range []*Format{JSON, YAML, TOML, Table} {
		mustRegister(f)
	}
}
