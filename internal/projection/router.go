package projection

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"chronicle/internal/decoder"
	"chronicle/internal/metrics"
	"chronicle/internal/model"
	"chronicle/internal/storage"
)

// CheckpointWriter records the last processed block.
type CheckpointWriter interface {
	Set(ctx context.Context, block uint64) error
}

// Archive receives every dispatched log in raw form.
type Archive interface {
	PutLogBatch(logs []model.LogRecord) error
}

// RouterConfig holds optional Router behaviour.
type RouterConfig struct {
	// SkipMalformed logs and skips events that fail to decode instead of
	// returning the DecodeError.
	SkipMalformed bool
	Archive       Archive
}

// Router dispatches raw events to the handler registered for their signature
// and advances the checkpoint after each one.
type Router struct {
	cfg        RouterConfig
	registry   *Registry
	store      storage.Store
	checkpoint CheckpointWriter
	logger     *zap.Logger
	ensured    map[common.Hash]bool
}

func NewRouter(cfg RouterConfig, registry *Registry, store storage.Store, checkpoint CheckpointWriter, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		cfg:        cfg,
		registry:   registry,
		store:      store,
		checkpoint: checkpoint,
		logger:     logger,
		ensured:    make(map[common.Hash]bool),
	}
}

// Dispatch projects ev. Unregistered signatures are a no-op; the checkpoint
// advances to ev.BlockNumber either way. A failed projection leaves the
// checkpoint untouched.
func (r *Router) Dispatch(ctx context.Context, ev model.RawEvent) error {
	start := time.Now()

	if r.cfg.Archive != nil {
		if err := r.cfg.Archive.PutLogBatch([]model.LogRecord{model.NewLogRecord(ev)}); err != nil {
			return fmt.Errorf("archive log: %w", err)
		}
	}

	label := "unrecognized"
	handler, ok := r.registry.Lookup(ev.Signature)
	if !ok {
		metrics.EventsUnrecognized.Inc()
		r.logger.Debug("unrecognized event",
			zap.String("signature", ev.Signature.Hex()),
			zap.Uint64("block_number", ev.BlockNumber),
		)
	} else {
		label = handler.Name()
		if err := r.project(ctx, handler, ev); err != nil {
			var decodeErr *decoder.DecodeError
			malformed := errors.As(err, &decodeErr)
			if malformed {
				metrics.DecodeFailures.WithLabelValues(label, strconv.FormatBool(r.cfg.SkipMalformed)).Inc()
			}
			if !malformed || !r.cfg.SkipMalformed {
				return fmt.Errorf("%s at block %d tx %s: %w", handler.Name(), ev.BlockNumber, ev.TxHash.Hex(), err)
			}
			r.logger.Warn("skip malformed event",
				zap.String("event", handler.Name()),
				zap.Uint64("block_number", ev.BlockNumber),
				zap.String("tx_hash", ev.TxHash.Hex()),
				zap.Uint64("log_index", ev.LogIndex),
				zap.Error(err),
			)
		} else {
			metrics.EventsDispatched.WithLabelValues(label).Inc()
		}
	}

	if err := r.checkpoint.Set(ctx, ev.BlockNumber); err != nil {
		return fmt.Errorf("advance checkpoint to %d: %w", ev.BlockNumber, err)
	}

	metrics.DispatchDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())
	return nil
}

func (r *Router) project(ctx context.Context, handler Handler, ev model.RawEvent) error {
	if !r.ensured[handler.Signature()] {
		if err := handler.EnsureTable(ctx, r.store); err != nil {
			return fmt.Errorf("ensure table %s: %w", handler.Table(), err)
		}
		r.ensured[handler.Signature()] = true
	}

	decoded, err := decoder.Decode(ev.Topics, ev.Data, handler.Schema())
	if err != nil {
		return err
	}
	return handler.Apply(ctx, r.store, ev, decoded)
}
