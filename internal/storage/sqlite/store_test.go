package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"chronicle/internal/storage"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(store.Close)
	return store
}

func TestRebind(t *testing.T) {
	require.Equal(t, "SELECT * FROM t WHERE a = ?1 AND b = ?12", rebind("SELECT * FROM t WHERE a = $1 AND b = $12"))
}

func TestStoreUpsertAndQuery(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	require.Equal(t, storage.SQLite, store.Dialect())

	require.NoError(t, store.ExecDDL(ctx, `CREATE TABLE IF NOT EXISTS kv (`+store.Dialect().IdentityColumn()+`, k TEXT UNIQUE, v TEXT)`))

	upsert := storage.Upsert{
		Table:   "kv",
		Key:     "k",
		Columns: []string{"k", "v"},
		Values:  []any{"a", "1"},
		Update:  []string{"v"},
	}
	require.NoError(t, store.Upsert(ctx, upsert))
	upsert.Values = []any{"a", "2"}
	require.NoError(t, store.Upsert(ctx, upsert))

	n, err := storage.Count(ctx, store, `SELECT COUNT(*) FROM kv WHERE k = $1`, "a")
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	rows, err := store.Query(ctx, `SELECT v FROM kv WHERE k = $1`, "a")
	require.NoError(t, err)
	defer rows.Close()
	require.True(t, rows.Next())
	var v string
	require.NoError(t, rows.Scan(&v))
	require.Equal(t, "2", v)
	require.NoError(t, rows.Err())
}

func TestStoreUpsertDoNothing(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	require.NoError(t, store.ExecDDL(ctx, `CREATE TABLE kv (k TEXT UNIQUE, v TEXT)`))

	for _, v := range []string{"first", "second"} {
		require.NoError(t, store.Upsert(ctx, storage.Upsert{
			Table:   "kv",
			Key:     "k",
			Columns: []string{"k", "v"},
			Values:  []any{"a", v},
		}))
	}

	rows, err := store.Query(ctx, `SELECT v FROM kv`)
	require.NoError(t, err)
	defer rows.Close()
	require.True(t, rows.Next())
	var v string
	require.NoError(t, rows.Scan(&v))
	require.Equal(t, "first", v)
}

func TestStoreErrorsArePersistenceErrors(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	_, err := store.Exec(ctx, `INSERT INTO missing (a) VALUES ($1)`, 1)
	var perr *storage.PersistenceError
	require.True(t, errors.As(err, &perr))
	require.Equal(t, "exec", perr.Op)

	_, err = store.Query(ctx, `SELECT * FROM missing`)
	require.True(t, errors.As(err, &perr))
}
