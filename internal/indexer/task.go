package indexer

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"chronicle/internal/chain"
	"chronicle/internal/projection"
	"chronicle/internal/storage"
)

// ConnectorFactory dials the chain endpoint of a source.
type ConnectorFactory func(ctx context.Context, source Source) (Connector, error)

// StoreFactory opens a persistence port for one task.
type StoreFactory func(ctx context.Context) (storage.Store, error)

// ChainConnector dials sources through chain.Dial.
func ChainConnector(opts chain.Options) ConnectorFactory {
	return func(ctx context.Context, source Source) (Connector, error) {
		client, err := chain.Dial(ctx, source.Backend, source.RPCURL, opts)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
}

// Task runs one source under the supervisor with its own connector and store.
type Task struct {
	source   Source
	registry *projection.Registry
	cfg      projection.RouterConfig
	dial     ConnectorFactory
	open     StoreFactory
	logger   *zap.Logger
}

func NewTask(source Source, registry *projection.Registry, cfg projection.RouterConfig, dial ConnectorFactory, open StoreFactory, logger *zap.Logger) *Task {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Task{
		source:   source,
		registry: registry,
		cfg:      cfg,
		dial:     dial,
		open:     open,
		logger:   logger,
	}
}

func (t *Task) Name() string {
	return t.source.Name()
}

// Run opens the store, dials the connector and runs a Controller.
func (t *Task) Run(ctx context.Context) error {
	store, err := t.open(ctx)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	connector, err := t.dial(ctx, t.source)
	if err != nil {
		store.Close()
		return fmt.Errorf("dial %s: %w", t.source.RPCURL, err)
	}
	return NewController(t.source, connector, store, t.registry, t.cfg, t.logger).Run(ctx)
}
