package indexer

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"chronicle/internal/metrics"
	"chronicle/internal/storage"
)

const checkpointTable = "indexer_checkpoint"

// EnsureCheckpointTable creates the checkpoint table if it is missing.
func EnsureCheckpointTable(ctx context.Context, store storage.Store) error {
	stmt := `CREATE TABLE IF NOT EXISTS ` + checkpointTable + ` (
	source TEXT PRIMARY KEY,
	last_block_number BIGINT NOT NULL,
	updated_at TEXT NOT NULL
)`
	if err := store.ExecDDL(ctx, stmt); err != nil {
		return fmt.Errorf("create %s: %w", checkpointTable, err)
	}
	return nil
}

// Scope is the checkpoint key of a source: the lower-cased contract and
// event signature.
func Scope(contract common.Address, signature common.Hash) string {
	return strings.ToLower(contract.Hex()) + ":" + strings.ToLower(signature.Hex())
}

// Checkpoint tracks the last processed block of one source scope.
type Checkpoint struct {
	store  storage.Store
	scope  string
	logger *zap.Logger

	mu      sync.Mutex
	last    uint64
	written bool
}

func NewCheckpoint(store storage.Store, scope string, logger *zap.Logger) *Checkpoint {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Checkpoint{store: store, scope: scope, logger: logger}
}

func (c *Checkpoint) Scope() string {
	return c.scope
}

// Get returns the stored block, or 0 if the scope was never recorded.
func (c *Checkpoint) Get(ctx context.Context) (uint64, error) {
	rows, err := c.store.Query(ctx, `SELECT last_block_number FROM `+checkpointTable+` WHERE source = $1`, c.scope)
	if err != nil {
		return 0, fmt.Errorf("load checkpoint: %w", err)
	}
	defer rows.Close()

	var block int64
	if rows.Next() {
		if err := rows.Scan(&block); err != nil {
			return 0, &storage.PersistenceError{Op: "scan checkpoint", Err: err}
		}
	}
	if err := rows.Err(); err != nil {
		return 0, &storage.PersistenceError{Op: "load checkpoint", Err: err}
	}
	if block < 0 {
		return 0, fmt.Errorf("checkpoint %s is negative: %d", c.scope, block)
	}
	return uint64(block), nil
}

// Set records block. Values below the last one written by this Checkpoint
// are ignored, so the stored block never moves backwards within a run.
func (c *Checkpoint) Set(ctx context.Context, block uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.written && block <= c.last {
		if block < c.last {
			c.logger.Debug("ignore checkpoint regression", zap.Uint64("last", c.last), zap.Uint64("block", block))
		}
		return nil
	}

	err := c.store.Upsert(ctx, storage.Upsert{
		Table:   checkpointTable,
		Key:     "source",
		Columns: []string{"source", "last_block_number", "updated_at"},
		Values:  []any{c.scope, int64(block), time.Now().UTC().Format(time.RFC3339Nano)},
		Update:  []string{"last_block_number", "updated_at"},
	})
	if err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}

	c.last = block
	c.written = true
	metrics.CheckpointBlock.WithLabelValues(c.scope).Set(float64(block))
	return nil
}
