package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/arthur-debert/nanotodo/todo"
	"github.com/google/uuid"
)

// fileData is the on-disk layout of the JSON backend
type fileData struct {
	Todos    []todo.Todo `json:"todos"`
	Metadata Metadata    `json:"metadata"`
}

// Metadata describes the JSON data file
type Metadata struct {
	Version   string    `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

const dataVersion = "1.0"

// Constants for file locking
const (
	lockTimeout    = 3 * time.Second
	lockMaxRetries = 3
	lockRetryDelay = 100 * time.Millisecond
)

// jsonFileStore keeps every record in one JSON file. Each operation reloads
// the file under the cross-process lock so writes made by other processes
// sharing the file are never lost.
type jsonFileStore struct {
	filePath string
	fs       FileSystem
	fileLock FileLock
	now      func() time.Time

	// mu serializes operations within the process; the file lock is a
	// single handle and cannot be shared between goroutines
	mu sync.Mutex
}

// NewJSONFile opens (or prepares) the JSON data file at filePath
func NewJSONFile(filePath string, opts ...Option) (todo.Store, error) {
	s := newSettings(opts)
	store := &jsonFileStore{
		filePath: filePath,
		fs:       s.fs,
		fileLock: s.lockFactory.New(filePath + ".lock"),
		now:      s.now,
	}

	// Fail early on an unreadable or corrupt file
	if err := store.withFile(context.Background(), false, func(*fileData) error { return nil }); err != nil {
		return nil, todo.WrapStoreError("open", err)
	}
	return store, nil
}

// acquireLock attempts to acquire the file lock with retry logic
func (s *jsonFileStore) acquireLock(ctx context.Context) error {
	for i := 0; i < lockMaxRetries; i++ {
		locked, err := s.fileLock.TryLockContext(ctx, lockRetryDelay)
		if err != nil {
			return fmt.Errorf("failed to acquire lock: %w", err)
		}
		if locked {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(lockRetryDelay):
		}
	}

	return fmt.Errorf("failed to acquire lock after %d attempts", lockMaxRetries)
}

// withFile runs fn on freshly loaded data while holding both locks, and
// saves the result when write is set
func (s *jsonFileStore) withFile(ctx context.Context, write bool, fn func(*fileData) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lockCtx, cancel := context.WithTimeout(ctx, lockTimeout)
	defer cancel()
	if err := s.acquireLock(lockCtx); err != nil {
		return err
	}
	defer func() { _ = s.fileLock.Unlock() }()

	data, err := s.load()
	if err != nil {
		return err
	}
	if err := fn(data); err != nil {
		return err
	}
	if !write {
		return nil
	}
	return s.save(data)
}

// load reads the JSON file; a missing or empty file is an empty store
func (s *jsonFileStore) load() (*fileData, error) {
	now := s.now()
	empty := &fileData{
		Todos:    []todo.Todo{},
		Metadata: Metadata{Version: dataVersion, CreatedAt: now, UpdatedAt: now},
	}

	if _, err := s.fs.Stat(s.filePath); errors.Is(err, os.ErrNotExist) {
		return empty, nil
	}

	raw, err := s.fs.ReadFile(s.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if len(raw) == 0 {
		return empty, nil
	}

	var data fileData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	if data.Todos == nil {
		data.Todos = []todo.Todo{}
	}
	return &data, nil
}

// save writes data atomically: temp file first, then rename
func (s *jsonFileStore) save(data *fileData) error {
	data.Metadata.UpdatedAt = s.now()

	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	tmpFile := s.filePath + ".tmp"
	if err := s.fs.WriteFile(tmpFile, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := s.fs.Rename(tmpFile, s.filePath); err != nil {
		_ = s.fs.Remove(tmpFile)
		return fmt.Errorf("failed to rename file: %w", err)
	}
	return nil
}

func (s *jsonFileStore) Create(ctx context.Context, text string, source todo.Source) (todo.Todo, error) {
	t, err := todo.New(uuid.NewString(), text, source, s.now())
	if err != nil {
		return todo.Todo{}, err
	}

	err = s.withFile(ctx, true, func(data *fileData) error {
		data.Todos = append(data.Todos, t)
		return nil
	})
	if err != nil {
		return todo.Todo{}, todo.WrapStoreError("create", err)
	}
	return t, nil
}

func (s *jsonFileStore) List(ctx context.Context, opts todo.ListOptions) ([]todo.Todo, error) {
	result := []todo.Todo{}
	err := s.withFile(ctx, false, func(data *fileData) error {
		for _, t := range data.Todos {
			if opts.Matches(t) {
				result = append(result, t)
			}
		}
		return nil
	})
	if err != nil {
		return nil, todo.WrapStoreError("list", err)
	}
	todo.SortNewestFirst(result)
	return result, nil
}

func (s *jsonFileStore) Update(ctx context.Context, id string, completed bool) (todo.Todo, error) {
	var updated todo.Todo
	err := s.withFile(ctx, true, func(data *fileData) error {
		i := indexOf(data.Todos, id)
		if i < 0 {
			return todo.ErrNotFound
		}
		data.Todos[i].Completed = completed
		updated = data.Todos[i]
		return nil
	})
	if err != nil {
		return todo.Todo{}, todo.WrapStoreError("update", err)
	}
	return updated, nil
}

func (s *jsonFileStore) Delete(ctx context.Context, id string) (todo.Todo, error) {
	var deleted todo.Todo
	err := s.withFile(ctx, true, func(data *fileData) error {
		i := indexOf(data.Todos, id)
		if i < 0 {
			return todo.ErrNotFound
		}
		deleted = data.Todos[i]
		data.Todos = append(data.Todos[:i], data.Todos[i+1:]...)
		return nil
	})
	if err != nil {
		return todo.Todo{}, todo.WrapStoreError("delete", err)
	}
	return deleted, nil
}

// Close is a no-op: the file and its lock are only held during operations
func (s *jsonFileStore) Close() error {
	return nil
}

func indexOf(todos []todo.Todo, id string) int {
	for i, t := range todos {
		if t.ID == id {
			return i
		}
	}
	return -1
}
