package storage

import (
	"context"
	"fmt"
	"time"
)

// Dialect names the SQL flavour behind a Store.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// IdentityColumn returns the auto-incrementing primary key definition.
func (d Dialect) IdentityColumn() string {
	if d == SQLite {
		return "id INTEGER PRIMARY KEY AUTOINCREMENT"
	}
	return "id BIGSERIAL PRIMARY KEY"
}

// Rows iterates a query result.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close()
}

// Store is the persistence port used by one task. Statements use $N placeholders.
type Store interface {
	Dialect() Dialect
	ExecDDL(ctx context.Context, stmt string) error
	Exec(ctx context.Context, stmt string, args ...any) (int64, error)
	Query(ctx context.Context, stmt string, args ...any) (Rows, error)
	Upsert(ctx context.Context, u Upsert) error
	Close()
}

// PersistenceError reports a failed store round trip.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Count runs a single-value count query.
func Count(ctx context.Context, s Store, stmt string, args ...any) (int64, error) {
	rows, err := s.Query(ctx, stmt, args...)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	var n int64
	if rows.Next() {
		if err := rows.Scan(&n); err != nil {
			return 0, &PersistenceError{Op: "scan count", Err: err}
		}
	}
	if err := rows.Err(); err != nil {
		return 0, &PersistenceError{Op: "count", Err: err}
	}
	return n, nil
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// ParseTime converts a scanned timestamp column into a time.Time.
func ParseTime(v any) (time.Time, error) {
	switch x := v.(type) {
	case nil:
		return time.Time{}, nil
	case time.Time:
		return x.UTC(), nil
	case []byte:
		return ParseTime(string(x))
	case string:
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, x); err == nil {
				return t.UTC(), nil
			}
		}
		return time.Time{}, fmt.Errorf("unsupported timestamp %q", x)
	case int64:
		return time.Unix(x, 0).UTC(), nil
	default:
		return time.Time{}, fmt.Errorf("unsupported timestamp type %T", v)
	}
}
