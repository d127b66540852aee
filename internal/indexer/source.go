package indexer

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"chronicle/internal/chain"
	"chronicle/internal/decoder"
	"chronicle/internal/projection"
)

// Source is one indexing task: a single event signature on a single contract.
type Source struct {
	EventName  string
	Backend    chain.Backend
	RPCURL     string
	Contract   common.Address
	Signature  common.Hash
	StartBlock uint64
	// Schema, when set, must match the schema of the handler registered
	// for Signature.
	Schema *decoder.Schema
}

// Name identifies the source in logs and errors.
func (s Source) Name() string {
	if s.EventName != "" {
		return s.EventName
	}
	return Scope(s.Contract, s.Signature)
}

// Validate checks s against the handlers in registry.
func (s Source) Validate(registry *projection.Registry) error {
	if strings.TrimSpace(s.RPCURL) == "" {
		return fmt.Errorf("source %s: rpc url is required", s.Name())
	}
	if s.Contract == (common.Address{}) {
		return fmt.Errorf("source %s: contract address is required", s.Name())
	}
	if s.Signature == (common.Hash{}) {
		return fmt.Errorf("source %s: event signature is required", s.Name())
	}
	handler, ok := registry.Lookup(s.Signature)
	if !ok {
		return fmt.Errorf("source %s: no handler for signature %s", s.Name(), s.Signature.Hex())
	}
	if s.Schema != nil && !s.Schema.Equal(handler.Schema()) {
		return fmt.Errorf("source %s: schema %s does not match handler %s schema %s",
			s.Name(), s.Schema, handler.Name(), handler.Schema())
	}
	return nil
}

// DefaultSources returns the four OpenReward sources sharing one endpoint
// and start block.
func DefaultSources(backend chain.Backend, rpcURL string, contract common.Address, startBlock uint64) []Source {
	if contract == (common.Address{}) {
		contract = projection.OpenRewardDiamond
	}
	defaults := []struct {
		name      string
		signature common.Hash
	}{
		{"On Crossbrand Redeption", projection.CrossBrandRedemptionSignature},
		{"On Current Pool State", projection.CurrentPoolsStateSignature},
		{"Register Brand", projection.RegisterBrandSignature},
		{"On Fungible Reward Created Successfully", projection.RewardCreatedSignature},
	}

	sources := make([]Source, 0, len(defaults))
	for _, d := range defaults {
		sources = append(sources, Source{
			EventName:  d.name,
			Backend:    backend,
			RPCURL:     rpcURL,
			Contract:   contract,
			Signature:  d.signature,
			StartBlock: startBlock,
		})
	}
	return sources
}
