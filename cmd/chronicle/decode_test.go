package main

import (
	"context"
	"encoding/json"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"chronicle/internal/model"
	"chronicle/internal/projection"
	"chronicle/internal/storage"
)

type memoryWriter struct {
	values []interface{}
}

func (w *memoryWriter) Write(value interface{}) error {
	w.values = append(w.values, value)
	return nil
}

func rewardRecord(t *testing.T) model.LogRecord {
	t.Helper()
	var args abi.Arguments
	for _, typ := range []string{"bytes10", "address", "address", "uint256", "uint256"} {
		abiType, err := abi.NewType(typ, "", nil)
		if err != nil {
			t.Fatalf("abi type %s: %v", typ, err)
		}
		args = append(args, abi.Argument{Type: abiType})
	}
	var brand [10]byte
	brand[0] = 0xb1
	data, err := args.Pack(brand, common.HexToAddress("0x01"), common.HexToAddress("0x02"), big.NewInt(1000), big.NewInt(1_700_000_000))
	if err != nil {
		t.Fatalf("pack: %v", err)
	}

	return model.NewLogRecord(model.RawEvent{
		Address:     projection.OpenRewardDiamond,
		Signature:   projection.RewardCreatedSignature,
		Topics:      []common.Hash{projection.RewardCreatedSignature},
		Data:        data,
		BlockNumber: 12,
		TxHash:      common.HexToHash("0xaa"),
		LogIndex:    3,
	})
}

func recordLine(t *testing.T, record model.LogRecord) string {
	t.Helper()
	b, err := json.Marshal(record)
	if err != nil {
		t.Fatalf("marshal record: %v", err)
	}
	return string(b)
}

func unknownRecordLine(t *testing.T) string {
	return recordLine(t, model.LogRecord{
		Address: projection.OpenRewardDiamond.Hex(),
		Topics:  []string{common.HexToHash("0x01").Hex()},
		Data:    "0x",
	})
}

func TestDecodeStream(t *testing.T) {
	truncated := rewardRecord(t)
	truncated.Data = truncated.Data[:len(truncated.Data)-64]
	input := strings.Join([]string{
		recordLine(t, rewardRecord(t)),
		"",
		unknownRecordLine(t),
		"{not json",
		recordLine(t, truncated),
	}, "\n")

	var out, errs memoryWriter
	stats, err := decodeStream(strings.NewReader(input), projection.DefaultRegistry(), true, &out, &errs)
	if err != nil {
		t.Fatalf("decodeStream error: %v", err)
	}
	if stats.total != 4 || stats.decoded != 1 || stats.skipped != 1 || stats.failed != 2 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if len(out.values) != 1 || len(errs.values) != 2 {
		t.Fatalf("unexpected writes: out=%d errs=%d", len(out.values), len(errs.values))
	}

	decoded := out.values[0].(model.DecodedLog)
	if decoded.Event != projection.EventRewardCreated || decoded.BlockNumber != 12 || decoded.LogIndex != 3 {
		t.Fatalf("unexpected decoded log: %+v", decoded)
	}
	encoded, err := json.Marshal(decoded.Body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	if !strings.Contains(string(encoded), `"0xb1000000000000000000"`) || !strings.Contains(string(encoded), `"1000"`) {
		t.Fatalf("unexpected body: %s", encoded)
	}

	failure := errs.values[1].(model.DecodeFailure)
	if failure.BlockNumber != 12 || failure.Topic0 != projection.RewardCreatedSignature.Hex() {
		t.Fatalf("unexpected failure record: %+v", failure)
	}
}

func TestDecodeStreamReportsUnknown(t *testing.T) {
	var out, errs memoryWriter
	stats, err := decodeStream(strings.NewReader(unknownRecordLine(t)), projection.DefaultRegistry(), false, &out, &errs)
	if err != nil {
		t.Fatalf("decodeStream error: %v", err)
	}
	if stats.failed != 1 || len(errs.values) != 1 {
		t.Fatalf("expected unknown log reported, got %+v", stats)
	}
	if !strings.Contains(errs.values[0].(model.DecodeFailure).Error, errNoHandler.Error()) {
		t.Fatalf("unexpected error: %+v", errs.values[0])
	}
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()
	store, err := openStore(ctx, "sqlite://:memory:")
	if err != nil {
		t.Fatalf("openStore error: %v", err)
	}
	defer store.Close()
	if store.Dialect() != storage.SQLite {
		t.Fatalf("dialect mismatch: %s", store.Dialect())
	}
	if err := bootstrap(ctx, store, projection.DefaultRegistry()); err != nil {
		t.Fatalf("bootstrap error: %v", err)
	}
	if err := bootstrap(ctx, store, projection.DefaultRegistry()); err != nil {
		t.Fatalf("second bootstrap error: %v", err)
	}

	if _, err := openStore(ctx, "mysql://db"); err == nil {
		t.Fatalf("expected unsupported scheme error")
	}
}

func TestNewLogger(t *testing.T) {
	if _, err := newLogger("debug"); err != nil {
		t.Fatalf("newLogger error: %v", err)
	}
	if _, err := newLogger("loud"); err == nil {
		t.Fatalf("expected level error")
	}
}
