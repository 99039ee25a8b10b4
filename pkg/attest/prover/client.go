package prover

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultTimeout = 30 * time.Second

// Client talks to an external proving service over HTTP.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a proving service client for the given base endpoint.
func NewClient(endpoint string, opts ...ClientOption) *Client {
	c := &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type proveRequest struct {
	Symbol      string `json:"symbol"`
	Commitment  string `json:"commitment"`
	ScaledPrice int64  `json:"scaled_price"`
	Timestamp   int64  `json:"timestamp"`
}

type proveResponse struct {
	Proof        string   `json:"proof"`
	PublicInputs []string `json:"public_inputs"`
	Error        string   `json:"error,omitempty"`
}

// Prove requests a proof for the given attestation inputs. Responses are
// decoded but not validated; callers run Validate before trusting the proof.
func (c *Client) Prove(ctx context.Context, req Request) (*Proof, error) {
	body, err := json.Marshal(proveRequest{
		Symbol:      req.Symbol,
		Commitment:  fmt.Sprintf("%X", req.Commitment),
		ScaledPrice: req.ScaledPrice,
		Timestamp:   req.Timestamp,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal prove request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/v1/prove", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build prove request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProverUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrProverUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return nil, fmt.Errorf("%w: status %d: %s", ErrProverRejected, resp.StatusCode, strings.TrimSpace(string(data)))
		}
		return nil, fmt.Errorf("%w: status %d", ErrProverUnavailable, resp.StatusCode)
	}

	var decoded proveResponse
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, fmt.Errorf("decode prove response: %w", err)
	}
	if decoded.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrProverRejected, decoded.Error)
	}

	proof, err := hex.DecodeString(decoded.Proof)
	if err != nil {
		return nil, fmt.Errorf("decode proof hex: %w", err)
	}
	inputs := make([][]byte, 0, len(decoded.PublicInputs))
	for i, raw := range decoded.PublicInputs {
		input, err := hex.DecodeString(raw)
		if err != nil {
			return nil, fmt.Errorf("decode public input %d: %w", i, err)
		}
		inputs = append(inputs, input)
	}

	return &Proof{Proof: proof, PublicInputs: inputs}, nil
}
