package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/rpc"

	"poolScope/internal/model"
	"poolScope/internal/observability"
	"poolScope/internal/retry"
)

// Remote query service methods.
const (
	MethodHeight     = "chain_getHeight"
	MethodSimulateAt = "contract_simulateAt"
	MethodBlockHash  = "chain_getBlockHash"
	MethodHeader     = "chain_getHeader"
	MethodScriptEval = "script_eval"
)

// Client wraps go-ethereum RPC and provides the remote query calls.
type Client struct {
	rpcClient *rpc.Client
	metrics   *observability.Metrics

	maxRetries   int
	retryBackoff time.Duration

	mu      sync.RWMutex
	tsCache map[uint64]uint64
}

// Option configures a Client.
type Option func(*Client)

// WithMetrics records call latency on m.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithRetry sets the retry policy for CurrentHeight.
func WithRetry(maxRetries int, backoff time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = maxRetries
		c.retryBackoff = backoff
	}
}

// NewClient creates a new chain client from the RPC URL.
func NewClient(ctx context.Context, rpcURL string, opts ...Option) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, err
	}
	return NewClientFromRPC(rpcClient, opts...), nil
}

// NewClientFromRPC wraps an existing RPC client.
func NewClientFromRPC(rpcClient *rpc.Client, opts ...Option) *Client {
	c := &Client{
		rpcClient: rpcClient,
		tsCache:   make(map[uint64]uint64),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Close closes the underlying RPC client.
func (c *Client) Close() {
	if c.rpcClient != nil {
		c.rpcClient.Close()
	}
}

// CurrentHeight returns the latest height known to the remote service.
func (c *Client) CurrentHeight(ctx context.Context) (uint64, error) {
	var height uint64
	err := retry.Do(ctx, c.maxRetries, c.retryBackoff, func(ctx context.Context) error {
		return c.call(ctx, &height, MethodHeight)
	})
	if err != nil {
		return 0, err
	}
	return height, nil
}

// SimulateAt evaluates callData against the state at height. Failures
// reported by the remote service come back in the result, not as an error.
func (c *Client) SimulateAt(ctx context.Context, height uint64, callData string) (SimulateResult, error) {
	var resp SimulateResponse
	if err := c.call(ctx, &resp, MethodSimulateAt, height, callData); err != nil {
		return SimulateResult{}, err
	}
	if resp.Error != nil {
		return SimulateResult{Err: resp.Error}, nil
	}
	if resp.Result == "" {
		return SimulateResult{Err: &RemoteError{Message: "empty simulate result"}}, nil
	}
	return SimulateResult{Hex: resp.Result}, nil
}

// BlockHash resolves a height to its block hash.
func (c *Client) BlockHash(ctx context.Context, height uint64) (string, error) {
	var hash string
	if err := c.call(ctx, &hash, MethodBlockHash, height); err != nil {
		return "", err
	}
	if hash == "" {
		return "", fmt.Errorf("%s: %w: no hash for height %d", MethodBlockHash, model.ErrRemote, height)
	}
	return hash, nil
}

// Header returns the block header for hash.
func (c *Client) Header(ctx context.Context, hash string) (Header, error) {
	var header *Header
	if err := c.call(ctx, &header, MethodHeader, hash); err != nil {
		return Header{}, err
	}
	if header == nil {
		return Header{}, fmt.Errorf("%s: %w: header %s not found", MethodHeader, model.ErrRemote, hash)
	}
	return *header, nil
}

// BlockTimestamp returns the block timestamp, using an in-memory cache.
func (c *Client) BlockTimestamp(ctx context.Context, height uint64) (uint64, error) {
	c.mu.RLock()
	ts, ok := c.tsCache[height]
	c.mu.RUnlock()
	if ok {
		return ts, nil
	}

	hash, err := c.BlockHash(ctx, height)
	if err != nil {
		return 0, err
	}
	header, err := c.Header(ctx, hash)
	if err != nil {
		return 0, err
	}

	ts = header.Timestamp
	c.mu.Lock()
	c.tsCache[height] = ts
	c.mu.Unlock()

	return ts, nil
}

// EvalScript runs program on the remote service and returns its raw JSON result.
func (c *Client) EvalScript(ctx context.Context, program string, args ...any) (json.RawMessage, error) {
	if args == nil {
		args = []any{}
	}
	var raw json.RawMessage
	if err := c.call(ctx, &raw, MethodScriptEval, program, args); err != nil {
		return nil, err
	}
	return raw, nil
}

func (c *Client) call(ctx context.Context, result any, method string, args ...any) error {
	started := time.Now()
	err := c.rpcClient.CallContext(ctx, result, method, args...)
	c.metrics.RecordRemoteCall(method, started, err)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", method, model.ErrRemote, err)
	}
	return nil
}
