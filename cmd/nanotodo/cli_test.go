package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/arthur-debert/nanotodo/api"
	"github.com/arthur-debert/nanotodo/client"
	"github.com/arthur-debert/nanotodo/formats"
	"github.com/arthur-debert/nanotodo/internal/logging"
	"github.com/arthur-debert/nanotodo/store"
	"github.com/arthur-debert/nanotodo/testutil"
	"github.com/arthur-debert/nanotodo/todo"
	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"
)

type result struct {
	out    string
	errOut string
	err    error
}

// isolate keeps the developer's config and environment out of the test
func isolate(t *testing.T) {
	t.Helper()
	for _, env := range []string{
		"NANOTODO_CONFIG", "PORT", "MONGODB_URI", "TELEGRAM_BOT_TOKEN",
		"NANOTODO_PORT", "NANOTODO_SERVER", "NANOTODO_STORE_DRIVER", "NANOTODO_STORE_PATH",
		"NANOTODO_STORE_URI", "NANOTODO_TELEGRAM_TOKEN", "NANOTODO_LOG_LEVEL", "NANOTODO_LOG_FILE",
	} {
		t.Setenv(env, "")
		_ = os.Unsetenv(env)
	}
	t.Setenv("HOME", t.TempDir())
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func run(t *testing.T, stdin string, args ...string) result {
	t.Helper()
	var out, errOut bytes.Buffer
	err := NewCLI(strings.NewReader(stdin), &out, &errOut).Execute(context.Background(), args)
	return result{out: out.String(), errOut: errOut.String(), err: err}
}

// newServer serves a seeded in-memory store and returns its URL
func newServer(t *testing.T, seeds ...testutil.Seed) (string, todo.Store) {
	t.Helper()
	isolate(t)
	s := testutil.NewStore(t)
	testutil.SeedStore(t, s, seeds...)
	srv := httptest.NewServer(api.NewRouter(s, api.WithLogger(logging.Discard())))
	t.Cleanup(srv.Close)
	return srv.URL, s
}

func stored(t *testing.T, s todo.Store) []todo.Todo {
	t.Helper()
	all, err := s.List(context.Background(), todo.ListOptions{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	return all
}

func TestList(t *testing.T) {
	t.Run("table with stats", func(t *testing.T) {
		url, _ := newServer(t, testutil.MixedSeeds()...)
		res := run(t, "", "list", "--server", url)
		if res.err != nil {
			t.Fatalf("list: %v", res.err)
		}
		for _, want := range []string{"Pay rent", "Buy milk", "Telegram", "[x]", "Total: 5  Active: 3  Completed: 2"} {
			if !strings.Contains(res.out, want) {
				t.Errorf("expected %q in output:\n%s", want, res.out)
			}
		}
		if strings.Index(res.out, "Pay rent") > strings.Index(res.out, "Buy milk") {
			t.Error("newest todo must come first")
		}
	})

	t.Run("filtered json", func(t *testing.T) {
		url, _ := newServer(t, testutil.MixedSeeds()...)
		res := run(t, "", "list", "--server", url, "--filter", "completed", "--format", "json")
		if res.err != nil {
			t.Fatalf("list: %v", res.err)
		}
		var doc formats.Document
		if err := json.Unmarshal([]byte(res.out), &doc); err != nil {
			t.Fatalf("output is not json: %v\n%s", err, res.out)
		}
		testutil.AssertTexts(t, doc.Todos, "Pay rent", "Call bank")
	})

	t.Run("empty list", func(t *testing.T) {
		url, _ := newServer(t)
		res := run(t, "", "list", "--server", url)
		if res.err != nil {
			t.Fatalf("list: %v", res.err)
		}
		if !strings.Contains(res.out, "No todos.") {
			t.Errorf("expected empty message:\n%s", res.out)
		}
	})

	t.Run("unknown filter", func(t *testing.T) {
		url, _ := newServer(t)
		res := run(t, "", "list", "--server", url, "--filter", "someday")
		var cliErr *CLIError
		if !errors.As(res.err, &cliErr) || cliErr.Operation != "list todos" {
			t.Fatalf("expected a list CLIError, got %v", res.err)
		}
	})

	t.Run("unknown format", func(t *testing.T) {
		url, _ := newServer(t)
		res := run(t, "", "list", "--server", url, "--format", "xml")
		if res.err == nil || !strings.Contains(res.err.Error(), "json|table|toml|yaml") {
			t.Errorf("expected the known formats in the error, got %v", res.err)
		}
	})
}

func TestAdd(t *testing.T) {
	t.Run("joins arguments", func(t *testing.T) {
		url, s := newServer(t)
		res := run(t, "", "add", "--server", url, "Buy", "milk")
		if res.err != nil {
			t.Fatalf("add: %v", res.err)
		}
		all := stored(t, s)
		testutil.AssertTexts(t, all, "Buy milk")
		if all[0].Source != todo.SourceWeb {
			t.Errorf("expected web source, got %q", all[0].Source)
		}
		if diff := cmp.Diff("Added \"Buy milk\"\n", res.out); diff != "" {
			t.Errorf("output mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("blank text is refused locally", func(t *testing.T) {
		url, s := newServer(t)
		res := run(t, "", "add", "--server", url, "   ")
		if !errors.Is(res.err, client.ErrEmptyInput) {
			t.Errorf("expected the empty-input error, got %v", res.err)
		}
		if len(stored(t, s)) != 0 {
			t.Error("nothing must be stored")
		}
	})

	t.Run("unreachable server", func(t *testing.T) {
		isolate(t)
		srv := httptest.NewServer(nil)
		url := srv.URL
		srv.Close()

		res := run(t, "", "add", "--server", url, "Buy milk")
		var cliErr *CLIError
		if !errors.As(res.err, &cliErr) {
			t.Fatalf("expected CLIError, got %v", res.err)
		}
		if cliErr.Cause != "server unreachable" || len(cliErr.Suggestions) == 0 {
			t.Errorf("unexpected error: %+v", cliErr)
		}
	})
}

func TestDone(t *testing.T) {
	t.Run("by index toggles both ways", func(t *testing.T) {
		url, s := newServer(t, testutil.Seed{Text: "Buy milk"}, testutil.Seed{Text: "Call bank"})

		res := run(t, "", "done", "--server", url, "1")
		if res.err != nil {
			t.Fatalf("done: %v", res.err)
		}
		if !strings.Contains(res.out, `Marked "Call bank" as completed`) {
			t.Errorf("unexpected output %q", res.out)
		}
		if all := stored(t, s); !all[0].Completed || all[1].Completed {
			t.Errorf("only the newest todo must be completed: %+v", all)
		}

		res = run(t, "", "done", "--server", url, "1")
		if res.err != nil {
			t.Fatalf("done: %v", res.err)
		}
		if stored(t, s)[0].Completed {
			t.Error("second call must reopen the todo")
		}
	})

	t.Run("index follows the filter", func(t *testing.T) {
		url, s := newServer(t, testutil.MixedSeeds()...)
		res := run(t, "", "done", "--server", url, "--filter", "completed", "2")
		if res.err != nil {
			t.Fatalf("done: %v", res.err)
		}
		for _, tt := range stored(t, s) {
			if tt.Text == "Call bank" && tt.Completed {
				t.Error("Call bank must be reopened")
			}
		}
	})

	t.Run("by id", func(t *testing.T) {
		url, s := newServer(t, testutil.Seed{Text: "Buy milk"})
		id := stored(t, s)[0].ID
		if res := run(t, "", "done", "--server", url, id); res.err != nil {
			t.Fatalf("done: %v", res.err)
		}
		if !stored(t, s)[0].Completed {
			t.Error("todo must be completed")
		}
	})

	t.Run("unknown reference", func(t *testing.T) {
		url, _ := newServer(t, testutil.Seed{Text: "Buy milk"})
		res := run(t, "", "done", "--server", url, "7")
		if !errors.Is(res.err, todo.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", res.err)
		}
	})
}

func TestRemove(t *testing.T) {
	tests := []struct {
		name    string
		stdin   string
		args    []string
		deleted bool
		prompt  bool
	}{
		{"declined", "n\n", nil, false, true},
		{"no answer", "", nil, false, true},
		{"confirmed", "y\n", nil, true, true},
		{"skipped with --yes", "", []string{"--yes"}, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			url, s := newServer(t, testutil.Seed{Text: "Buy milk"})
			args := append([]string{"rm", "--server", url, "1"}, tt.args...)
			res := run(t, tt.stdin, args...)
			if res.err != nil {
				t.Fatalf("rm: %v", res.err)
			}
			if got := len(stored(t, s)) == 0; got != tt.deleted {
				t.Errorf("deleted = %v, want %v", got, tt.deleted)
			}
			if got := strings.Contains(res.errOut, `Delete "Buy milk"? [y/N]`); got != tt.prompt {
				t.Errorf("prompt shown = %v, want %v (stderr %q)", got, tt.prompt, res.errOut)
			}
		})
	}
}

func TestExport(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "todos.json")
	s, err := store.NewJSONFile(path, store.WithTimeFunc(testutil.NewClock().Now))
	if err != nil {
		t.Fatal(err)
	}
	testutil.SeedStore(t, s, testutil.MixedSeeds()...)
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	t.Run("stdout defaults to json", func(t *testing.T) {
		res := run(t, "", "export", "--store-path", path)
		if res.err != nil {
			t.Fatalf("export: %v", res.err)
		}
		var doc formats.Document
		if err := json.Unmarshal([]byte(res.out), &doc); err != nil {
			t.Fatalf("output is not json: %v", err)
		}
		testutil.AssertTexts(t, doc.Todos, "Pay rent", "Book flights", "Write report", "Call bank", "Buy milk")
	})

	t.Run("file format from the extension", func(t *testing.T) {
		out := filepath.Join(t.TempDir(), "pending.yaml")
		res := run(t, "", "export", "--store-path", path, "--pending", "-o", out)
		if res.err != nil {
			t.Fatalf("export: %v", res.err)
		}
		data, err := os.ReadFile(out)
		if err != nil {
			t.Fatal(err)
		}
		var doc formats.Document
		if err := yaml.Unmarshal(data, &doc); err != nil {
			t.Fatalf("file is not yaml: %v\n%s", err, data)
		}
		testutil.AssertTexts(t, doc.Todos, "Book flights", "Write report", "Buy milk")
	})

	t.Run("config file selects the store", func(t *testing.T) {
		cfg := filepath.Join(t.TempDir(), "nanotodo.toml")
		content := "[store]\ndriver = \"json\"\npath = \"" + filepath.ToSlash(path) + "\"\n"
		if err := os.WriteFile(cfg, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		res := run(t, "", "export", "--config", cfg, "--format", "table")
		if res.err != nil {
			t.Fatalf("export: %v", res.err)
		}
		if !strings.Contains(res.out, "Write report") {
			t.Errorf("expected the stored todos:\n%s", res.out)
		}
	})

	t.Run("yml extension selects yaml", func(t *testing.T) {
		out := filepath.Join(t.TempDir(), "todos.yml")
		if res := run(t, "", "export", "--store-path", path, "-o", out); res.err != nil {
			t.Fatalf("export: %v", res.err)
		}
		data, err := os.ReadFile(out)
		if err != nil {
			t.Fatal(err)
		}
		var doc formats.Document
		if err := yaml.Unmarshal(data, &doc); err != nil {
			t.Fatalf("file is not yaml: %v\n%s", err, data)
		}
		if strings.HasPrefix(strings.TrimSpace(string(data)), "{") {
			t.Errorf("expected yaml, got json:\n%s", data)
		}
		if len(doc.Todos) != 5 {
			t.Errorf("expected 5 todos, got %d", len(doc.Todos))
		}
	})

	t.Run("failed close fails the export", func(t *testing.T) {
		orig := createFile
		t.Cleanup(func() { createFile = orig })
		createFile = func(string) (io.WriteCloser, error) {
			return failingCloser{}, nil
		}

		res := run(t, "", "export", "--store-path", path, "-o", filepath.Join(t.TempDir(), "out.json"))
		if !errors.Is(res.err, errFullDisk) {
			t.Errorf("expected the close error, got %v", res.err)
		}
	})
}

var errFullDisk = errors.New("disk full")

// failingCloser accepts writes and fails on close
type failingCloser struct{}

func (failingCloser) Write(p []byte) (int, error) {
	return len(p), nil
}

func (failingCloser) Close() error {
	return errFullDisk
}

func TestFormatForPath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"out.json", "json"},
		{"out.YAML", "yaml"},
		{"out.yml", "yaml"},
		{"out.toml", "toml"},
		{"out.txt", "table"},
		{"out", "json"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := formatForPath(tt.path, "json"); got != tt.want {
				t.Errorf("formatForPath(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestConfigurationErrors(t *testing.T) {
	t.Run("unknown driver", func(t *testing.T) {
		isolate(t)
		res := run(t, "", "export", "--store-driver", "postgres")
		var cliErr *CLIError
		if !errors.As(res.err, &cliErr) || cliErr.Operation != "load configuration" {
			t.Errorf("expected a configuration error, got %v", res.err)
		}
	})

	t.Run("bot without a token", func(t *testing.T) {
		isolate(t)
		res := run(t, "", "bot")
		if res.err == nil || !strings.Contains(res.err.Error(), "no Telegram token configured") {
			t.Errorf("expected a token error, got %v", res.err)
		}
	})
}

func TestCLIErrorFormat(t *testing.T) {
	err := &CLIError{
		Operation:   "delete todo",
		Cause:       "no todo matches \"9\"",
		Details:     "index 9 out of range (1-2)",
		Suggestions: []string{CommonSuggestions.CheckRef},
	}
	want := "Failed to delete todo: no todo matches \"9\" (index 9 out of range (1-2))\n\n" +
		"Suggestions:\n  1. " + CommonSuggestions.CheckRef
	if diff := cmp.Diff(want, err.Error()); diff != "" {
		t.Errorf("message mismatch (-want +got):\n%s", diff)
	}

	wrapped := WrapError("export", todo.ErrNotFound)
	if !errors.Is(wrapped, todo.ErrNotFound) {
		t.Error("wrapped error must keep its cause")
	}
	if WrapError("export", nil) != nil {
		t.Error("nil must stay nil")
	}
}
