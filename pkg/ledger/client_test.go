package ledger

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func rpcHandler(t *testing.T, wantMethod string, result any) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Method != wantMethod {
			t.Errorf("expected method %s, got %s", wantMethod, req.Method)
		}

		resp := map[string]any{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  result,
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}
}

func newTestClient(t *testing.T, endpoints ...string) *Client {
	t.Helper()
	client, err := NewClient(ClientConfig{Endpoints: endpoints})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func TestNewClient_NoEndpoints(t *testing.T) {
	_, err := NewClient(ClientConfig{})
	if !errors.Is(err, ErrNoEndpoints) {
		t.Fatalf("expected ErrNoEndpoints, got %v", err)
	}
}

func TestClient_SubmitTransaction(t *testing.T) {
	var gotTransaction string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Method != "sendTransaction" {
			t.Errorf("expected method sendTransaction, got %s", req.Method)
		}

		params, err := json.Marshal(req.Params)
		if err != nil {
			t.Fatalf("remarshal params: %v", err)
		}
		var p submitParams
		if err := json.Unmarshal(params, &p); err != nil {
			t.Fatalf("decode params: %v", err)
		}
		gotTransaction = p.Transaction

		resp := map[string]any{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  map[string]any{"hash": "TX123", "status": "PENDING"},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	txID, err := client.SubmitTransaction(context.Background(), []byte("payload"))
	if err != nil {
		t.Fatalf("SubmitTransaction: %v", err)
	}
	if txID != "TX123" {
		t.Errorf("expected TX123, got %s", txID)
	}
	if gotTransaction != base64.StdEncoding.EncodeToString([]byte("payload")) {
		t.Errorf("unexpected transaction field: %s", gotTransaction)
	}
}

func TestClient_SubmitTransaction_RejectedByRPCError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)

		resp := map[string]any{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"error":   map[string]any{"code": -32602, "message": "proof already used"},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.SubmitTransaction(context.Background(), []byte("payload"))
	if !errors.Is(err, ErrSubmitRejected) {
		t.Fatalf("expected ErrSubmitRejected, got %v", err)
	}
}

func TestClient_SubmitTransaction_RejectedByStatus(t *testing.T) {
	server := httptest.NewServer(rpcHandler(t, "sendTransaction",
		map[string]any{"hash": "", "status": "ERROR", "error": "commitment mismatch"}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.SubmitTransaction(context.Background(), []byte("payload"))
	if !errors.Is(err, ErrSubmitRejected) {
		t.Fatalf("expected ErrSubmitRejected, got %v", err)
	}
}

func TestClient_GetTransaction(t *testing.T) {
	server := httptest.NewServer(rpcHandler(t, "getTransaction",
		map[string]any{"status": "SUCCESS"}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	status, err := client.GetTransaction(context.Background(), "TX123")
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}
	if !status.Confirmed() {
		t.Errorf("expected confirmed status, got %+v", status)
	}
	if status.TxID != "TX123" {
		t.Errorf("expected TxID TX123, got %s", status.TxID)
	}
}

func TestClient_GetTransaction_NotFound(t *testing.T) {
	server := httptest.NewServer(rpcHandler(t, "getTransaction",
		map[string]any{"status": "NOT_FOUND"}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.GetTransaction(context.Background(), "TXMISSING")
	if !errors.Is(err, ErrTxNotFound) {
		t.Fatalf("expected ErrTxNotFound, got %v", err)
	}
}

func TestClient_GetTransaction_Failed(t *testing.T) {
	server := httptest.NewServer(rpcHandler(t, "getTransaction",
		map[string]any{"status": "FAILED", "reason": "price too stale"}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	status, err := client.GetTransaction(context.Background(), "TX123")
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}
	if !status.Rejected() {
		t.Errorf("expected rejected status, got %+v", status)
	}
	if status.Reason != "price too stale" {
		t.Errorf("expected rejection reason, got %q", status.Reason)
	}
}

func TestClient_FailoverOnTransportError(t *testing.T) {
	var primaryHits atomic.Int32
	primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		primaryHits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer primary.Close()

	secondary := httptest.NewServer(rpcHandler(t, "getTransaction",
		map[string]any{"status": "PENDING"}))
	defer secondary.Close()

	client := newTestClient(t, primary.URL, secondary.URL)
	status, err := client.GetTransaction(context.Background(), "TX123")
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}
	if status.Status != TxStatusPending {
		t.Errorf("expected PENDING, got %s", status.Status)
	}
	if primaryHits.Load() != 1 {
		t.Errorf("expected 1 hit on primary, got %d", primaryHits.Load())
	}
	if client.CurrentEndpoint() != secondary.URL {
		t.Errorf("expected client to stay on secondary endpoint, got %s", client.CurrentEndpoint())
	}
}

func TestClient_AllEndpointsFailed(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer bad.Close()

	worse := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer worse.Close()

	client := newTestClient(t, bad.URL, worse.URL)
	_, err := client.GetTransaction(context.Background(), "TX123")
	if !errors.Is(err, ErrAllEndpointsFailed) {
		t.Fatalf("expected ErrAllEndpointsFailed, got %v", err)
	}
}

func TestClient_RPCErrorDoesNotRotate(t *testing.T) {
	var primaryHits, secondaryHits atomic.Int32
	primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		primaryHits.Add(1)
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)

		resp := map[string]any{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"error":   map[string]any{"code": -32000, "message": "unknown contract"},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer primary.Close()

	secondary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		secondaryHits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer secondary.Close()

	client := newTestClient(t, primary.URL, secondary.URL)
	_, err := client.GetTransaction(context.Background(), "TX123")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if primaryHits.Load() != 1 {
		t.Errorf("expected 1 hit on primary, got %d", primaryHits.Load())
	}
	if secondaryHits.Load() != 0 {
		t.Errorf("RPC error must not rotate endpoints, secondary got %d hits", secondaryHits.Load())
	}
	if client.CurrentEndpoint() != primary.URL {
		t.Errorf("expected client to stay on primary endpoint, got %s", client.CurrentEndpoint())
	}
}

func TestClient_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(rpcHandler(t, "getTransaction",
		map[string]any{"status": "PENDING"}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.GetTransaction(ctx, "TX123")
	if err == nil {
		t.Fatal("expected error from cancelled context")
	}
}
