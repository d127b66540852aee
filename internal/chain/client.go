package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"chronicle/internal/model"
)

// Backend selects the ledger implementation behind a connector.
type Backend string

const (
	BackendEVM Backend = "evm"
	// BackendRuntime is reserved; dialing it fails with ErrUnsupportedBackend.
	BackendRuntime Backend = "runtime"
)

// ErrUnsupportedBackend is returned when dialing a backend with no implementation.
var ErrUnsupportedBackend = errors.New("unsupported chain backend")

// ParseBackend validates a backend name. An empty name selects BackendEVM.
func ParseBackend(name string) (Backend, error) {
	switch Backend(strings.ToLower(strings.TrimSpace(name))) {
	case "", BackendEVM:
		return BackendEVM, nil
	case BackendRuntime:
		return BackendRuntime, nil
	default:
		return "", fmt.Errorf("unknown chain backend %q", name)
	}
}

// ConnectionError reports a lost or refused connection to the ledger endpoint.
type ConnectionError struct {
	Endpoint string
	Op       string
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("chain %s: %s: %v", e.Endpoint, e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// Options tunes historical queries.
type Options struct {
	// HistoricalBatchSize splits catch-up queries into ranges of this many
	// blocks. Zero issues one query from the resume block to head.
	HistoricalBatchSize uint64
	// RPCTimeout bounds each historical RPC call. Zero means no timeout.
	RPCTimeout time.Duration
}

// Client wraps go-ethereum RPC and serves historical and live logs.
type Client struct {
	endpoint  string
	opts      Options
	rpcClient *rpc.Client
	ethClient *ethclient.Client

	mu      sync.RWMutex
	tsCache map[uint64]uint64
}

// Dial connects to endpoint with the given backend.
func Dial(ctx context.Context, backend Backend, endpoint string, opts Options) (*Client, error) {
	switch backend {
	case BackendEVM, "":
		return NewClient(ctx, endpoint, opts)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedBackend, backend)
	}
}

// NewClient creates a new chain client from the RPC URL. Live subscriptions
// require a websocket or IPC endpoint.
func NewClient(ctx context.Context, rpcURL string, opts Options) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, &ConnectionError{Endpoint: rpcURL, Op: "dial", Err: err}
	}
	return newClient(rpcClient, rpcURL, opts), nil
}

func newClient(rpcClient *rpc.Client, endpoint string, opts Options) *Client {
	return &Client{
		endpoint:  endpoint,
		opts:      opts,
		rpcClient: rpcClient,
		ethClient: ethclient.NewClient(rpcClient),
		tsCache:   make(map[uint64]uint64),
	}
}

// Close closes the underlying RPC client.
func (c *Client) Close() {
	if c.rpcClient != nil {
		c.rpcClient.Close()
	}
}

// LatestBlockNumber returns the latest block number.
func (c *Client) LatestBlockNumber(ctx context.Context) (uint64, error) {
	ctx, cancel := c.callContext(ctx)
	defer cancel()
	return c.ethClient.BlockNumber(ctx)
}

// BlockTimestamp returns the block timestamp, using an in-memory cache.
func (c *Client) BlockTimestamp(ctx context.Context, number uint64) (uint64, error) {
	c.mu.RLock()
	ts, ok := c.tsCache[number]
	c.mu.RUnlock()
	if ok {
		return ts, nil
	}

	ctx, cancel := c.callContext(ctx)
	defer cancel()
	header, err := c.ethClient.HeaderByNumber(ctx, new(big.Int).SetUint64(number))
	if err != nil {
		return 0, err
	}

	ts = header.Time
	c.mu.Lock()
	c.tsCache[number] = ts
	c.mu.Unlock()

	return ts, nil
}

// FilterLogs returns logs in the given range for addresses and topic0 filters.
func (c *Client) FilterLogs(
	ctx context.Context,
	fromBlock uint64,
	toBlock uint64,
	addresses []common.Address,
	topic0 []common.Hash,
) ([]types.Log, error) {
	ctx, cancel := c.callContext(ctx)
	defer cancel()
	return c.ethClient.FilterLogs(ctx, filterQuery(&fromBlock, &toBlock, addresses, topic0))
}

// HistoricalLogs returns every log of signature emitted by address in
// [fromBlock, head], ordered as the node returns them. It is empty when
// fromBlock is past head.
func (c *Client) HistoricalLogs(ctx context.Context, address common.Address, signature common.Hash, fromBlock uint64) ([]model.RawEvent, error) {
	head, err := c.LatestBlockNumber(ctx)
	if err != nil {
		return nil, c.connErr("block number", err)
	}
	if fromBlock > head {
		return nil, nil
	}

	ranges := []BlockRange{{From: fromBlock, To: head}}
	if c.opts.HistoricalBatchSize > 0 {
		ranges, err = SplitRange(fromBlock, head, c.opts.HistoricalBatchSize)
		if err != nil {
			return nil, err
		}
	}

	var events []model.RawEvent
	for _, blockRange := range ranges {
		logs, err := c.FilterLogs(ctx, blockRange.From, blockRange.To, []common.Address{address}, []common.Hash{signature})
		if err != nil {
			return nil, c.connErr(fmt.Sprintf("filter logs %d-%d", blockRange.From, blockRange.To), err)
		}
		for _, log := range logs {
			ev, err := c.rawEvent(ctx, log)
			if err != nil {
				return nil, err
			}
			events = append(events, ev)
		}
	}
	return events, nil
}

// SubscribeLogs opens a live subscription for signature logs emitted by any of addresses.
func (c *Client) SubscribeLogs(ctx context.Context, addresses []common.Address, signature common.Hash) (LogStream, error) {
	logs := make(chan types.Log, 128)
	sub, err := c.ethClient.SubscribeFilterLogs(ctx, filterQuery(nil, nil, addresses, []common.Hash{signature}), logs)
	if err != nil {
		return nil, c.connErr("subscribe logs", err)
	}
	return &subscription{client: c, sub: sub, logs: logs}, nil
}

func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.opts.RPCTimeout > 0 {
		return context.WithTimeout(ctx, c.opts.RPCTimeout)
	}
	return ctx, func() {}
}

func (c *Client) connErr(op string, err error) error {
	return &ConnectionError{Endpoint: c.endpoint, Op: op, Err: err}
}

func filterQuery(fromBlock, toBlock *uint64, addresses []common.Address, topic0 []common.Hash) ethereum.FilterQuery {
	query := ethereum.FilterQuery{Addresses: addresses}
	if fromBlock != nil {
		query.FromBlock = new(big.Int).SetUint64(*fromBlock)
	}
	if toBlock != nil {
		query.ToBlock = new(big.Int).SetUint64(*toBlock)
	}
	if len(topic0) > 0 {
		query.Topics = [][]common.Hash{topic0}
	}
	return query
}
