package ledger

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"tc.com/price-attestor/pkg/logging"
	"tc.com/price-attestor/pkg/metrics"
)

// DefaultRequestTimeout bounds a single gateway HTTP request.
const DefaultRequestTimeout = 10 * time.Second

// responseLimit caps how much of a gateway response is read.
const responseLimit = 4 << 20

var _ Gateway = (*Client)(nil)

// Client talks JSON-RPC 2.0 to one or more gateway endpoints with failover.
// Transport failures rotate to the next endpoint; RPC-level errors are
// returned as-is since retrying a deterministic rejection elsewhere cannot
// change the outcome.
type Client struct {
	logger     *logging.Logger
	endpoints  []string
	current    int
	mu         sync.RWMutex
	httpClient *http.Client
	requestID  atomic.Uint64
}

// ClientConfig holds configuration for creating a new Client.
type ClientConfig struct {
	Endpoints      []string
	RequestTimeout time.Duration
	HTTPClient     *http.Client
	Logger         *logging.Logger
}

// NewClient creates a gateway client. The first endpoint is the primary;
// the rest are failover targets in order.
func NewClient(cfg ClientConfig) (*Client, error) {
	if len(cfg.Endpoints) == 0 {
		return nil, ErrNoEndpoints
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNoopLogger()
	}

	endpoints := make([]string, len(cfg.Endpoints))
	copy(endpoints, cfg.Endpoints)

	return &Client{
		logger:     logger,
		endpoints:  endpoints,
		httpClient: httpClient,
	}, nil
}

// CurrentEndpoint returns the currently active endpoint.
func (c *Client) CurrentEndpoint() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.endpoints[c.current]
}

// Failover rotates to the next endpoint.
func (c *Client) Failover() {
	c.mu.Lock()
	defer c.mu.Unlock()

	old := c.current
	c.current = (c.current + 1) % len(c.endpoints)
	metrics.RecordGatewayFailover()
	c.logger.Warn("Failing over to next gateway endpoint",
		"from", c.endpoints[old],
		"to", c.endpoints[c.current],
	)
}

// Close releases idle connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

// rpcRequest is a JSON-RPC 2.0 request.
type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// rpcResponse is a JSON-RPC 2.0 response.
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

// rpcError is a JSON-RPC 2.0 error object.
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// do performs one JSON-RPC call against one endpoint. Transport failures
// and gateway-side outages come back wrapped in ErrEndpointUnavailable so
// the failover loop can classify them.
func (c *Client) do(ctx context.Context, endpoint, method string, params, result any) error {
	reqBody := rpcRequest{
		JSONRPC: "2.0",
		ID:      c.requestID.Add(1),
		Method:  method,
		Params:  params,
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		metrics.RecordGatewayRequest(method, "transport_error")
		return fmt.Errorf("%w: %v", ErrEndpointUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, responseLimit))
	if err != nil {
		metrics.RecordGatewayRequest(method, "transport_error")
		return fmt.Errorf("%w: read response: %v", ErrEndpointUnavailable, err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		metrics.RecordGatewayRequest(method, "transport_error")
		return fmt.Errorf("%w: status %d", ErrEndpointUnavailable, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		metrics.RecordGatewayRequest(method, "error")
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		metrics.RecordGatewayRequest(method, "transport_error")
		return fmt.Errorf("%w: malformed response: %v", ErrEndpointUnavailable, err)
	}

	if rpcResp.Error != nil {
		metrics.RecordGatewayRequest(method, "rpc_error")
		return rpcResp.Error
	}

	if result != nil && rpcResp.Result != nil {
		if err := json.Unmarshal(rpcResp.Result, result); err != nil {
			metrics.RecordGatewayRequest(method, "error")
			return fmt.Errorf("unmarshal result: %w", err)
		}
	}

	metrics.RecordGatewayRequest(method, "ok")
	return nil
}

// withFailover runs one logical call, trying each endpoint at most once.
// Only ErrEndpointUnavailable rotates; any other error returns immediately.
func withFailover[T any](ctx context.Context, c *Client, op func(endpoint string) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt < len(c.endpoints); attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		endpoint := c.CurrentEndpoint()
		out, err := op(endpoint)
		if err == nil {
			return out, nil
		}
		if !errors.Is(err, ErrEndpointUnavailable) {
			return zero, err
		}

		lastErr = err
		c.logger.Debug("Gateway call failed",
			"endpoint", endpoint,
			"attempt", attempt+1,
			"error", err.Error(),
		)
		if attempt < len(c.endpoints)-1 {
			c.Failover()
		}
	}

	return zero, fmt.Errorf("%w: %v", ErrAllEndpointsFailed, lastErr)
}

type submitParams struct {
	Transaction string `json:"transaction"`
}

type submitResult struct {
	Hash   string `json:"hash"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// SubmitTransaction sends a signed envelope payload, base64-encoded, via
// sendTransaction. Gateway-side rejections come back as ErrSubmitRejected.
func (c *Client) SubmitTransaction(ctx context.Context, payload []byte) (string, error) {
	params := submitParams{
		Transaction: base64.StdEncoding.EncodeToString(payload),
	}

	result, err := withFailover(ctx, c, func(endpoint string) (submitResult, error) {
		var res submitResult
		callErr := c.do(ctx, endpoint, "sendTransaction", params, &res)
		return res, callErr
	})
	if err != nil {
		var rpcErr *rpcError
		if errors.As(err, &rpcErr) {
			return "", fmt.Errorf("%w: %s", ErrSubmitRejected, rpcErr.Message)
		}
		return "", err
	}

	if result.Status == "ERROR" || result.Hash == "" {
		reason := result.Error
		if reason == "" {
			reason = "gateway returned no transaction hash"
		}
		return "", fmt.Errorf("%w: %s", ErrSubmitRejected, reason)
	}

	c.logger.Debug("Submitted transaction", "tx_id", result.Hash)
	return result.Hash, nil
}

type statusParams struct {
	Hash string `json:"hash"`
}

// GetTransaction looks up a transaction by id via getTransaction. Until the
// gateway indexes the transaction the error is ErrTxNotFound; callers poll.
func (c *Client) GetTransaction(ctx context.Context, txID string) (*TxStatus, error) {
	params := statusParams{Hash: txID}

	result, err := withFailover(ctx, c, func(endpoint string) (TxStatus, error) {
		var res TxStatus
		callErr := c.do(ctx, endpoint, "getTransaction", params, &res)
		return res, callErr
	})
	if err != nil {
		return nil, err
	}

	switch result.Status {
	case TxStatusNotFound, "":
		return nil, fmt.Errorf("%w: %s", ErrTxNotFound, txID)
	case TxStatusPending, TxStatusSuccess, TxStatusFailed:
		result.TxID = txID
		return &result, nil
	default:
		return nil, fmt.Errorf("unexpected transaction status %q", result.Status)
	}
}
