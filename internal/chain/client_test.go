package chain

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
)

var (
	testContract  = common.HexToAddress("0x2C123047B23809DbCCDA2d34bB5158D2563221E3")
	testSignature = common.HexToHash("0x8ae268bd07c1784370b1d77d72548763ada0729264a966a234f895e03ae4c33c")
)

type blockRangeCall struct {
	from, to uint64
}

// fakeEth serves the eth_ namespace subset used by Client.
type fakeEth struct {
	head uint64
	logs []types.Log
	live []types.Log

	mu    sync.Mutex
	calls []blockRangeCall
}

func (f *fakeEth) BlockNumber() hexutil.Uint64 {
	return hexutil.Uint64(f.head)
}

func (f *fakeEth) GetBlockByNumber(number string, _ bool) (*types.Header, error) {
	n, err := hexutil.DecodeUint64(number)
	if err != nil {
		return nil, err
	}
	return &types.Header{
		Number:     new(big.Int).SetUint64(n),
		Difficulty: big.NewInt(0),
		Time:       1_700_000_000 + n,
	}, nil
}

func (f *fakeEth) GetLogs(crit map[string]interface{}) ([]types.Log, error) {
	from, err := hexutil.DecodeUint64(crit["fromBlock"].(string))
	if err != nil {
		return nil, err
	}
	to, err := hexutil.DecodeUint64(crit["toBlock"].(string))
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	f.calls = append(f.calls, blockRangeCall{from: from, to: to})
	f.mu.Unlock()

	out := []types.Log{}
	for _, log := range f.logs {
		if log.BlockNumber >= from && log.BlockNumber <= to {
			out = append(out, log)
		}
	}
	return out, nil
}

func (f *fakeEth) Logs(ctx context.Context, _ map[string]interface{}) (*rpc.Subscription, error) {
	notifier, ok := rpc.NotifierFromContext(ctx)
	if !ok {
		return nil, rpc.ErrNotificationsUnsupported
	}
	sub := notifier.CreateSubscription()
	go func() {
		for _, log := range f.live {
			if err := notifier.Notify(sub.ID, log); err != nil {
				return
			}
		}
	}()
	return sub, nil
}

func testLog(block uint64, index uint) types.Log {
	return types.Log{
		Address:     testContract,
		Topics:      []common.Hash{testSignature},
		Data:        []byte{0x01},
		BlockNumber: block,
		TxHash:      common.BigToHash(new(big.Int).SetUint64(block)),
		Index:       index,
	}
}

func newTestClient(t *testing.T, fake *fakeEth, opts Options) *Client {
	t.Helper()
	server := rpc.NewServer()
	if err := server.RegisterName("eth", fake); err != nil {
		t.Fatalf("register: %v", err)
	}
	client := newClient(rpc.DialInProc(server), "inproc", opts)
	t.Cleanup(func() {
		client.Close()
		server.Stop()
	})
	return client
}

func TestHistoricalLogsBatched(t *testing.T) {
	fake := &fakeEth{
		head: 5,
		logs: []types.Log{testLog(0, 0), testLog(2, 1), testLog(4, 0), testLog(5, 3)},
	}
	client := newTestClient(t, fake, Options{HistoricalBatchSize: 2})

	events, err := client.HistoricalLogs(context.Background(), testContract, testSignature, 1)
	if err != nil {
		t.Fatalf("historical logs: %v", err)
	}

	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	for i, block := range []uint64{2, 4, 5} {
		ev := events[i]
		if ev.BlockNumber != block {
			t.Fatalf("event %d block %d, want %d", i, ev.BlockNumber, block)
		}
		if ev.BlockTimestamp != 1_700_000_000+block {
			t.Fatalf("event %d timestamp %d", i, ev.BlockTimestamp)
		}
		if ev.Signature != testSignature || ev.Address != testContract {
			t.Fatalf("event %d identity mismatch: %+v", i, ev)
		}
	}
	if events[2].LogIndex != 3 {
		t.Fatalf("log index mismatch: %d", events[2].LogIndex)
	}

	want := []blockRangeCall{{1, 2}, {3, 4}, {5, 5}}
	if len(fake.calls) != len(want) {
		t.Fatalf("calls mismatch: %+v", fake.calls)
	}
	for i := range want {
		if fake.calls[i] != want[i] {
			t.Fatalf("call %d: %+v != %+v", i, fake.calls[i], want[i])
		}
	}
}

func TestHistoricalLogsSingleQuery(t *testing.T) {
	fake := &fakeEth{head: 9, logs: []types.Log{testLog(7, 0)}}
	client := newTestClient(t, fake, Options{})

	events, err := client.HistoricalLogs(context.Background(), testContract, testSignature, 3)
	if err != nil {
		t.Fatalf("historical logs: %v", err)
	}
	if len(events) != 1 || len(fake.calls) != 1 || fake.calls[0] != (blockRangeCall{3, 9}) {
		t.Fatalf("unexpected result: events=%d calls=%+v", len(events), fake.calls)
	}
}

func TestHistoricalLogsPastHead(t *testing.T) {
	fake := &fakeEth{head: 3}
	client := newTestClient(t, fake, Options{})

	events, err := client.HistoricalLogs(context.Background(), testContract, testSignature, 4)
	if err != nil {
		t.Fatalf("historical logs: %v", err)
	}
	if len(events) != 0 || len(fake.calls) != 0 {
		t.Fatalf("expected no query past head, got events=%d calls=%d", len(events), len(fake.calls))
	}
}

func TestHistoricalLogsConnectionError(t *testing.T) {
	client := newTestClient(t, &fakeEth{head: 3}, Options{})
	client.Close()

	_, err := client.HistoricalLogs(context.Background(), testContract, testSignature, 0)
	var connErr *ConnectionError
	if !errors.As(err, &connErr) {
		t.Fatalf("expected ConnectionError, got %v", err)
	}
	if connErr.Endpoint != "inproc" {
		t.Fatalf("endpoint mismatch: %s", connErr.Endpoint)
	}
}

func TestSubscribeLogs(t *testing.T) {
	fake := &fakeEth{live: []types.Log{testLog(10, 0), testLog(11, 2)}}
	client := newTestClient(t, fake, Options{})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stream, err := client.SubscribeLogs(ctx, []common.Address{testContract}, testSignature)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer stream.Close()

	for _, block := range []uint64{10, 11} {
		ev, err := stream.Next(ctx)
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		if ev.BlockNumber != block || ev.BlockTimestamp != 1_700_000_000+block {
			t.Fatalf("unexpected event %+v", ev)
		}
	}

	waitCtx, waitCancel := context.WithCancel(ctx)
	waitCancel()
	if _, err := stream.Next(waitCtx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	stream.Close()
	var connErr *ConnectionError
	if _, err := stream.Next(ctx); !errors.As(err, &connErr) {
		t.Fatalf("expected ConnectionError after close, got %v", err)
	}
}

func TestParseBackend(t *testing.T) {
	for input, want := range map[string]Backend{"": BackendEVM, "EVM": BackendEVM, "runtime": BackendRuntime} {
		got, err := ParseBackend(input)
		if err != nil || got != want {
			t.Fatalf("parse %q: got %q err %v", input, got, err)
		}
	}
	if _, err := ParseBackend("solana"); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}

func TestDialRuntimeUnsupported(t *testing.T) {
	_, err := Dial(context.Background(), BackendRuntime, "ws://localhost:0", Options{})
	if !errors.Is(err, ErrUnsupportedBackend) {
		t.Fatalf("expected ErrUnsupportedBackend, got %v", err)
	}
}
