package indexer

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"chronicle/internal/chain"
	"chronicle/internal/projection"
	"chronicle/internal/storage"
)

func TestScopeIsCaseInsensitive(t *testing.T) {
	scope := Scope(projection.OpenRewardDiamond, projection.RegisterBrandSignature)
	if scope != strings.ToLower(scope) {
		t.Fatalf("scope not lower-cased: %s", scope)
	}
	if !strings.HasPrefix(scope, "0x2c123047b23809dbccda2d34bb5158d2563221e3:0x0f5a0d63") {
		t.Fatalf("unexpected scope: %s", scope)
	}
}

func TestParseSignature(t *testing.T) {
	sig, err := ParseSignature(" 0x0f5a0d63eb86b0478f8c56652b268eddd83c313e58058b1a65951958ed19074c ")
	if err != nil {
		t.Fatalf("ParseSignature error: %v", err)
	}
	if sig != projection.RegisterBrandSignature {
		t.Fatalf("signature mismatch: %s", sig.Hex())
	}
	if _, err := ParseSignature("0x1234"); err == nil {
		t.Fatalf("expected length error")
	}
	if _, err := ParseSignature("nothex"); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestParseAddress(t *testing.T) {
	addr, err := ParseAddress("0x2c123047b23809dbccda2d34bb5158d2563221e3")
	if err != nil {
		t.Fatalf("ParseAddress error: %v", err)
	}
	if addr != projection.OpenRewardDiamond {
		t.Fatalf("address mismatch: %s", addr.Hex())
	}
	if _, err := ParseAddress("0x123"); err == nil {
		t.Fatalf("expected invalid address error")
	}
}

func TestParseSchema(t *testing.T) {
	schema, err := ParseSchema(nil, nil)
	require.NoError(t, err)
	require.Nil(t, schema)

	schema, err = ParseSchema(nil, []string{"string", "string", "address", "bytes10", "address"})
	require.NoError(t, err)
	require.NotNil(t, schema)
	require.True(t, schema.Equal(projection.BrandHandler{}.Schema()))

	_, err = ParseSchema([]string{"(address"}, nil)
	require.Error(t, err)
}

func TestSourceValidate(t *testing.T) {
	registry := projection.DefaultRegistry()

	require.NoError(t, testSource(0).Validate(registry))

	missingURL := testSource(0)
	missingURL.RPCURL = ""
	require.ErrorContains(t, missingURL.Validate(registry), "rpc url")

	unknown := testSource(0)
	unknown.Signature = common.HexToHash("0x01")
	require.ErrorContains(t, unknown.Validate(registry), "no handler")

	mismatch := testSource(0)
	mismatch.Schema, _ = ParseSchema(nil, []string{"string"})
	require.ErrorContains(t, mismatch.Validate(registry), "does not match")

	matching := testSource(0)
	matching.Schema, _ = ParseSchema(nil, []string{"string", "string", "address", "bytes10", "address"})
	require.NoError(t, matching.Validate(registry))
}

func TestDefaultSources(t *testing.T) {
	sources := DefaultSources(chain.BackendEVM, "ws://node", common.Address{}, 42)
	require.Len(t, sources, 4)

	registry := projection.DefaultRegistry()
	seen := make(map[common.Hash]bool)
	for _, s := range sources {
		require.Equal(t, projection.OpenRewardDiamond, s.Contract)
		require.EqualValues(t, 42, s.StartBlock)
		require.NoError(t, s.Validate(registry))
		seen[s.Signature] = true
	}
	require.Len(t, seen, 4)
}

func TestTaskOpenStoreFailure(t *testing.T) {
	dialed := false
	task := NewTask(testSource(1), projection.DefaultRegistry(), projection.RouterConfig{},
		func(context.Context, Source) (Connector, error) {
			dialed = true
			return newFakeConnector(), nil
		},
		func(context.Context) (storage.Store, error) {
			return nil, errors.New("disk full")
		}, nil)

	require.ErrorContains(t, task.Run(context.Background()), "open store")
	require.False(t, dialed)
	require.Equal(t, "Register Brand", task.Name())
}

func TestTaskDialFailureClosesStore(t *testing.T) {
	store := newTrackedStore(t)
	task := NewTask(testSource(1), projection.DefaultRegistry(), projection.RouterConfig{},
		ChainConnector(chain.Options{}),
		func(context.Context) (storage.Store, error) { return store, nil }, nil)

	runtime := testSource(1)
	runtime.Backend = chain.BackendRuntime
	task.source = runtime

	err := task.Run(context.Background())
	require.ErrorIs(t, err, chain.ErrUnsupportedBackend)
	require.True(t, store.closed.Load())
}

func TestTaskRunsController(t *testing.T) {
	store := newTrackedStore(t)
	connector := newFakeConnector(brandEvent(t, 1, 2))
	task := NewTask(testSource(1), projection.DefaultRegistry(), projection.RouterConfig{},
		func(context.Context, Source) (Connector, error) { return connector, nil },
		func(context.Context) (storage.Store, error) { return store, nil }, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- task.Run(ctx) }()

	require.Eventually(t, func() bool { return len(connector.requestedFrom()) == 1 }, 5*time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatalf("task did not stop")
	}
	require.True(t, connector.closed.Load())
	require.True(t, store.closed.Load())
}
