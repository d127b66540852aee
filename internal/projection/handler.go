package projection

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"chronicle/internal/decoder"
	"chronicle/internal/model"
	"chronicle/internal/storage"
)

// Handler projects one event signature into its table. Apply reads decoded
// fields by schema position; that order is fixed per signature.
type Handler interface {
	Name() string
	Signature() common.Hash
	Schema() decoder.Schema
	Table() string
	// EnsureTable creates the handler's table if it does not exist.
	EnsureTable(ctx context.Context, store storage.Store) error
	Apply(ctx context.Context, store storage.Store, ev model.RawEvent, decoded *decoder.DecodedEvent) error
}

// Registry maps event signatures to handlers.
type Registry struct {
	bySignature map[common.Hash]Handler
	ordered     []Handler
}

// NewRegistry builds a registry. Registering a signature twice is an error.
func NewRegistry(handlers ...Handler) (*Registry, error) {
	r := &Registry{bySignature: make(map[common.Hash]Handler, len(handlers))}
	for _, h := range handlers {
		if _, ok := r.bySignature[h.Signature()]; ok {
			return nil, fmt.Errorf("duplicate handler for signature %s", h.Signature().Hex())
		}
		r.bySignature[h.Signature()] = h
		r.ordered = append(r.ordered, h)
	}
	return r, nil
}

// DefaultRegistry returns the brand, pool, reward and redemption handlers.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(
		RedemptionHandler{},
		PoolHandler{},
		BrandHandler{},
		RewardHandler{},
	)
	if err != nil {
		panic(err)
	}
	return r
}

// Lookup returns the handler registered for signature.
func (r *Registry) Lookup(signature common.Hash) (Handler, bool) {
	h, ok := r.bySignature[signature]
	return h, ok
}

// Handlers returns every handler in registration order.
func (r *Registry) Handlers() []Handler {
	return append([]Handler(nil), r.ordered...)
}

// Bootstrap creates every handler table.
func (r *Registry) Bootstrap(ctx context.Context, store storage.Store) error {
	for _, h := range r.ordered {
		if err := h.EnsureTable(ctx, store); err != nil {
			return fmt.Errorf("ensure %s table: %w", h.Table(), err)
		}
	}
	return nil
}
