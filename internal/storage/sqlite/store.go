package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"regexp"
	"strings"

	_ "modernc.org/sqlite"

	"chronicle/internal/storage"
)

const memoryPath = ":memory:"

var placeholder = regexp.MustCompile(`\$([0-9]+)`)

// Store provides SQLite persistence through database/sql.
type Store struct {
	db *sql.DB
}

var _ storage.Store = (*Store)(nil)

// Open opens a SQLite database. An empty path or ":memory:" opens a private in-memory database.
func Open(ctx context.Context, path string) (*Store, error) {
	path = strings.TrimSpace(path)
	dsn := memoryPath
	if path != "" && path != memoryPath {
		dsn = filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, &storage.PersistenceError{Op: "open", Err: err}
	}
	// One connection keeps an in-memory database alive and serialises writers.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, &storage.PersistenceError{Op: "ping", Err: err}
	}
	return &Store{db: db}, nil
}

func (s *Store) Dialect() storage.Dialect {
	return storage.SQLite
}

func (s *Store) Close() {
	if s.db != nil {
		_ = s.db.Close()
	}
}

func (s *Store) ExecDDL(ctx context.Context, stmt string) error {
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return &storage.PersistenceError{Op: "ddl", Err: err}
	}
	return nil
}

func (s *Store) Exec(ctx context.Context, stmt string, args ...any) (int64, error) {
	res, err := s.db.ExecContext(ctx, rebind(stmt), args...)
	if err != nil {
		return 0, &storage.PersistenceError{Op: "exec", Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, &storage.PersistenceError{Op: "rows affected", Err: err}
	}
	return n, nil
}

func (s *Store) Query(ctx context.Context, stmt string, args ...any) (storage.Rows, error) {
	rows, err := s.db.QueryContext(ctx, rebind(stmt), args...)
	if err != nil {
		return nil, &storage.PersistenceError{Op: "query", Err: err}
	}
	return sqlRows{rows}, nil
}

// Upsert runs an INSERT ... ON CONFLICT statement.
func (s *Store) Upsert(ctx context.Context, u storage.Upsert) error {
	stmt, err := u.Statement()
	if err != nil {
		return &storage.PersistenceError{Op: "upsert " + u.Table, Err: err}
	}
	if _, err := s.db.ExecContext(ctx, rebind(stmt), u.Values...); err != nil {
		return &storage.PersistenceError{Op: "upsert " + u.Table, Err: err}
	}
	return nil
}

// rebind turns $N placeholders into SQLite's ?N form.
func rebind(stmt string) string {
	return placeholder.ReplaceAllString(stmt, "?${1}")
}

type sqlRows struct {
	*sql.Rows
}

func (r sqlRows) Close() {
	_ = r.Rows.Close()
}
