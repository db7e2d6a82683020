// Package render turns client state into HTML fragments and pages.
//
// All user-provided text goes through html/template, so todo text is always
// escaped and never interpreted as markup.
package render

import (
	"bytes"
	"embed"
	"html/template"
	"io"

	"github.com/arthur-debert/nanotodo/todo"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// DefaultTitle is used when a page has no title
const DefaultTitle = "Todo App"

// Empty-state messages, one per filter
const (
	EmptyAll       = "No todos yet"
	EmptyActive    = "No active todos"
	EmptyCompleted = "No completed todos"
)

// EmptyMessage returns the placeholder shown when nothing matches f
func EmptyMessage(f todo.Filter) string {
	switch f {
	case todo.FilterActive:
		return EmptyActive
	case todo.FilterCompleted:
		return EmptyCompleted
	default:
		return EmptyAll
	}
}

// FilterLabel is the caption of a filter control. A Caser is stateful, so
// each call gets its own.
func FilterLabel(f todo.Filter) string {
	return cases.Title(language.English).String(string(f))
}

// Renderer executes the embedded templates
type Renderer struct {
	tmpl *template.Template
}

// New parses the embedded templates
func New() *Renderer {
	funcs := template.FuncMap{
		"emptyMessage": EmptyMessage,
		"filterLabel":  FilterLabel,
	}
	tmpl := template.Must(template.New("render").Funcs(funcs).ParseFS(templateFS, "templates/*.tmpl"))
	return &Renderer{tmpl: tmpl}
}

type listData struct {
	Visible []todo.Todo
	Filter  todo.Filter
}

type filterData struct {
	Filters []todo.Filter
	Active  todo.Filter
}

// Page is everything a full document shows
type Page struct {
	Title  string
	Todos  []todo.Todo // full list, newest first
	Filter todo.Filter
	Input  string
	Error  string
}

type pageData struct {
	Title     string
	Input     string
	Error     string
	FilterBar filterData
	List      listData
	Stats     todo.Stats
}

// List writes the rows of the todos visible under f, or the matching
// empty-state message
func (r *Renderer) List(w io.Writer, todos []todo.Todo, f todo.Filter) error {
	return r.tmpl.ExecuteTemplate(w, "list", listData{Visible: f.Apply(todos), Filter: f})
}

// Stats writes the counters line
func (r *Renderer) Stats(w io.Writer, s todo.Stats) error {
	return r.tmpl.ExecuteTemplate(w, "stats", s)
}

// Filters writes the filter controls with active marked
func (r *Renderer) Filters(w io.Writer, active todo.Filter) error {
	return r.tmpl.ExecuteTemplate(w, "filters", filterData{Filters: todo.Filters, Active: active})
}

// Error writes the error banner, or nothing when msg is empty
func (r *Renderer) Error(w io.Writer, msg string) error {
	return r.tmpl.ExecuteTemplate(w, "error", msg)
}

// Page writes a complete HTML document
func (r *Renderer) Page(w io.Writer, p Page) error {
	if p.Title == "" {
		p.Title = DefaultTitle
	}
	if p.Filter == "" {
		p.Filter = todo.FilterAll
	}
	data := pageData{
		Title:     p.Title,
		Input:     p.Input,
		Error:     p.Error,
		FilterBar: filterData{Filters: todo.Filters, Active: p.Filter},
		List:      listData{Visible: p.Filter.Apply(p.Todos), Filter: p.Filter},
		Stats:     todo.Count(p.Todos),
	}
	return r.tmpl.ExecuteTemplate(w, "page", data)
}

// PageString is Page into a string
func (r *Renderer) PageString(p Page) (string, error) {
	var buf bytes.Buffer
	if err := r.Page(&buf, p); err != nil {
		return "", err
	}
	return buf.String(), nil
}
