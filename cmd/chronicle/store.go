package main

import (
	"context"
	"fmt"
	"strings"

	"chronicle/internal/storage"
	"chronicle/internal/storage/postgres"
	"chronicle/internal/storage/sqlite"
)

const sqliteScheme = "sqlite://"

// openStore selects the backend from the database URL scheme.
func openStore(ctx context.Context, dbURL string) (storage.Store, error) {
	dbURL = strings.TrimSpace(dbURL)
	switch {
	case strings.HasPrefix(dbURL, "postgres://"), strings.HasPrefix(dbURL, "postgresql://"):
		store, err := postgres.NewStore(ctx, dbURL)
		if err != nil {
			return nil, err
		}
		return store, nil
	case strings.HasPrefix(dbURL, sqliteScheme):
		store, err := sqlite.Open(ctx, strings.TrimPrefix(dbURL, sqliteScheme))
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported db url %q: want postgres:// or sqlite://", dbURL)
	}
}
