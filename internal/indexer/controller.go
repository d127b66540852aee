package indexer

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"chronicle/internal/chain"
	"chronicle/internal/metrics"
	"chronicle/internal/model"
	"chronicle/internal/projection"
	"chronicle/internal/storage"
)

// Connector serves historical and live logs for one source.
type Connector interface {
	HistoricalLogs(ctx context.Context, address common.Address, signature common.Hash, fromBlock uint64) ([]model.RawEvent, error)
	SubscribeLogs(ctx context.Context, addresses []common.Address, signature common.Hash) (chain.LogStream, error)
	Close()
}

// State is the lifecycle position of a Controller.
type State int32

const (
	StateInit State = iota
	StateCatchup
	StateLive
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateCatchup:
		return "catchup"
	case StateLive:
		return "live"
	case StateTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Controller drives one source: it replays history from the checkpoint,
// then follows the live subscription until its context is cancelled.
type Controller struct {
	source     Source
	connector  Connector
	store      storage.Store
	checkpoint *Checkpoint
	router     *projection.Router
	logger     *zap.Logger

	state     atomic.Int32
	stream    chain.LogStream
	closeOnce sync.Once
}

// NewController builds a Controller that owns connector and store and
// releases both when Run returns.
func NewController(source Source, connector Connector, store storage.Store, registry *projection.Registry, cfg projection.RouterConfig, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("source", source.Name()))
	checkpoint := NewCheckpoint(store, Scope(source.Contract, source.Signature), logger)
	return &Controller{
		source:     source,
		connector:  connector,
		store:      store,
		checkpoint: checkpoint,
		router:     projection.NewRouter(cfg, registry, store, checkpoint, logger),
		logger:     logger,
	}
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	return State(c.state.Load())
}

func (c *Controller) setState(s State) {
	c.state.Store(int32(s))
	metrics.ControllerState.WithLabelValues(c.source.Name()).Set(float64(s))
	c.logger.Info("controller state", zap.Stringer("state", s))
}

// Run executes the controller until ctx is cancelled or a connector or
// store failure occurs. Cancellation returns nil.
func (c *Controller) Run(ctx context.Context) error {
	defer c.terminate()

	err := c.run(ctx)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func (c *Controller) run(ctx context.Context) error {
	c.setState(StateInit)
	from, err := c.resumeBlock(ctx)
	if err != nil {
		return err
	}

	c.setState(StateCatchup)
	events, err := c.connector.HistoricalLogs(ctx, c.source.Contract, c.source.Signature, from)
	if err != nil {
		return fmt.Errorf("historical logs from %d: %w", from, err)
	}
	c.logger.Info("catch up", zap.Uint64("from", from), zap.Int("events", len(events)))
	for _, ev := range events {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := c.router.Dispatch(ctx, ev); err != nil {
			return err
		}
	}

	c.setState(StateLive)
	stream, err := c.connector.SubscribeLogs(ctx, []common.Address{c.source.Contract}, c.source.Signature)
	if err != nil {
		return fmt.Errorf("subscribe logs: %w", err)
	}
	c.stream = stream

	for {
		ev, err := stream.Next(ctx)
		if err != nil {
			return err
		}
		if ev.Removed {
			c.logger.Warn("removed log delivered", zap.Uint64("block", ev.BlockNumber), zap.String("tx", ev.TxHash.Hex()))
		}
		if err := c.router.Dispatch(ctx, ev); err != nil {
			return err
		}
	}
}

// resumeBlock resolves the first block of the catch-up query.
func (c *Controller) resumeBlock(ctx context.Context) (uint64, error) {
	if err := EnsureCheckpointTable(ctx, c.store); err != nil {
		return 0, err
	}
	last, err := c.checkpoint.Get(ctx)
	if err != nil {
		return 0, err
	}
	if last > c.source.StartBlock {
		c.logger.Info("resume from checkpoint", zap.Uint64("last_processed", last), zap.Uint64("from", last+1))
		return last + 1, nil
	}
	if err := c.checkpoint.Set(ctx, c.source.StartBlock); err != nil {
		return 0, err
	}
	return c.source.StartBlock, nil
}

func (c *Controller) terminate() {
	c.closeOnce.Do(func() {
		if c.stream != nil {
			c.stream.Close()
		}
		c.connector.Close()
		c.store.Close()
		c.setState(StateTerminated)
	})
}
