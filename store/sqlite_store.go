package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/arthur-debert/nanotodo/todo"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//go:embed sql/schema.sql
var sqliteSchemaSQL string

var todoColumns = []string{"id", "text", "completed", "created_at", "source"}

// sqliteStore keeps records in a SQLite table. Atomicity of each operation
// is left to SQLite transactions.
type sqliteStore struct {
	db  *sql.DB
	sq  squirrel.StatementBuilderType
	now func() time.Time
}

// NewSQLite opens the database at dbPath and applies the schema
func NewSQLite(ctx context.Context, dbPath string, opts ...Option) (todo.Store, error) {
	s := newSettings(opts)

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, todo.WrapStoreError("open", fmt.Errorf("failed to open database: %w", err))
	}

	// Set busy timeout first to help with concurrent access during initialization
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		_ = db.Close()
		return nil, todo.WrapStoreError("open", fmt.Errorf("failed to set busy timeout: %w", err))
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			// Another connection may already have switched the journal mode
			if strings.Contains(pragma, "journal_mode") && strings.Contains(err.Error(), "database is locked") {
				continue
			}
			_ = db.Close()
			return nil, todo.WrapStoreError("open", fmt.Errorf("failed to execute %s: %w", pragma, err))
		}
	}

	// Single writer connection for SQLite
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.ExecContext(ctx, sqliteSchemaSQL); err != nil {
		_ = db.Close()
		return nil, todo.WrapStoreError("open", fmt.Errorf("failed to create schema: %w", err))
	}

	return &sqliteStore{
		db:  db,
		sq:  squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
		now: s.now,
	}, nil
}

func (s *sqliteStore) Create(ctx context.Context, text string, source todo.Source) (todo.Todo, error) {
	t, err := todo.New(uuid.NewString(), text, source, s.now())
	if err != nil {
		return todo.Todo{}, err
	}

	query, args, err := s.sq.Insert("todos").
		Columns(todoColumns...).
		Values(t.ID, t.Text, boolToInt(t.Completed), t.CreatedAt.UnixNano(), string(t.Source)).
		ToSql()
	if err != nil {
		return todo.Todo{}, todo.WrapStoreError("create", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return todo.Todo{}, todo.WrapStoreError("create", fmt.Errorf("failed to insert todo: %w", err))
	}
	return t, nil
}

func (s *sqliteStore) List(ctx context.Context, opts todo.ListOptions) ([]todo.Todo, error) {
	// rowid keeps insertion order among records created at the same instant
	sel := s.sq.Select(todoColumns...).From("todos").OrderBy("created_at DESC", "rowid ASC")
	if opts.Completed != nil {
		sel = sel.Where(squirrel.Eq{"completed": boolToInt(*opts.Completed)})
	}

	query, args, err := sel.ToSql()
	if err != nil {
		return nil, todo.WrapStoreError("list", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, todo.WrapStoreError("list", fmt.Errorf("failed to query todos: %w", err))
	}
	defer func() { _ = rows.Close() }()

	result := []todo.Todo{}
	for rows.Next() {
		t, err := scanTodo(rows)
		if err != nil {
			return nil, todo.WrapStoreError("list", err)
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, todo.WrapStoreError("list", err)
	}
	return result, nil
}

func (s *sqliteStore) Update(ctx context.Context, id string, completed bool) (todo.Todo, error) {
	var updated todo.Todo
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		query, args, err := s.sq.Update("todos").
			Set("completed", boolToInt(completed)).
			Where(squirrel.Eq{"id": id}).
			ToSql()
		if err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("failed to update todo: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return todo.ErrNotFound
		}
		updated, err = s.get(ctx, tx, id)
		return err
	})
	if err != nil {
		return todo.Todo{}, todo.WrapStoreError("update", err)
	}
	return updated, nil
}

func (s *sqliteStore) Delete(ctx context.Context, id string) (todo.Todo, error) {
	var deleted todo.Todo
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		deleted, err = s.get(ctx, tx, id)
		if err != nil {
			return err
		}
		query, args, err := s.sq.Delete("todos").Where(squirrel.Eq{"id": id}).ToSql()
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to delete todo: %w", err)
		}
		return nil
	})
	if err != nil {
		return todo.Todo{}, todo.WrapStoreError("delete", err)
	}
	return deleted, nil
}

// Close releases database resources
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

func (s *sqliteStore) get(ctx context.Context, tx *sql.Tx, id string) (todo.Todo, error) {
	query, args, err := s.sq.Select(todoColumns...).From("todos").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return todo.Todo{}, err
	}
	t, err := scanTodo(tx.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return todo.Todo{}, todo.ErrNotFound
	}
	return t, err
}

func (s *sqliteStore) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTodo(row rowScanner) (todo.Todo, error) {
	var (
		t         todo.Todo
		completed int64
		createdAt int64
		source    string
	)
	if err := row.Scan(&t.ID, &t.Text, &completed, &createdAt, &source); err != nil {
		return todo.Todo{}, err
	}
	t.Completed = completed != 0
	t.CreatedAt = time.Unix(0, createdAt).UTC()
	t.Source = todo.Source(source)
	return t, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
