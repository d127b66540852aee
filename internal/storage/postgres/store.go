package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"chronicle/internal/storage"
)

// Store provides Postgres persistence over a pgx pool.
type Store struct {
	pool *pgxpool.Pool
}

var _ storage.Store = (*Store)(nil)

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, &storage.PersistenceError{Op: "connect", Err: err}
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, &storage.PersistenceError{Op: "ping", Err: err}
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Dialect() storage.Dialect {
	return storage.Postgres
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *Store) ExecDDL(ctx context.Context, stmt string) error {
	if _, err := s.pool.Exec(ctx, stmt); err != nil {
		return &storage.PersistenceError{Op: "ddl", Err: err}
	}
	return nil
}

func (s *Store) Exec(ctx context.Context, stmt string, args ...any) (int64, error) {
	tag, err := s.pool.Exec(ctx, stmt, args...)
	if err != nil {
		return 0, &storage.PersistenceError{Op: "exec", Err: err}
	}
	return tag.RowsAffected(), nil
}

func (s *Store) Query(ctx context.Context, stmt string, args ...any) (storage.Rows, error) {
	rows, err := s.pool.Query(ctx, stmt, args...)
	if err != nil {
		return nil, &storage.PersistenceError{Op: "query", Err: err}
	}
	return rows, nil
}

// Upsert runs an INSERT ... ON CONFLICT statement.
func (s *Store) Upsert(ctx context.Context, u storage.Upsert) error {
	stmt, err := u.Statement()
	if err != nil {
		return &storage.PersistenceError{Op: "upsert " + u.Table, Err: err}
	}
	if _, err := s.pool.Exec(ctx, stmt, u.Values...); err != nil {
		return &storage.PersistenceError{Op: "upsert " + u.Table, Err: err}
	}
	return nil
}
