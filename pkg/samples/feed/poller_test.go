package feed

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"tc.com/price-attestor/pkg/samples"
)

func sampleHandler(t *testing.T, msgs []sampleMessage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/samples" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(msgs); err != nil {
			t.Errorf("encode samples: %v", err)
		}
	}
}

func testMessages(now time.Time) []sampleMessage {
	return []sampleMessage{
		{Symbol: "TSLA", Source: "alpha", Price: decimal.RequireFromString("100.00"), ObservedAt: now},
		{Symbol: "TSLA", Source: "beta", Price: decimal.RequireFromString("100.05"), ObservedAt: now},
		{Symbol: "AAPL", Source: "alpha", Price: decimal.RequireFromString("204.10"), ObservedAt: now},
	}
}

func TestPoller_FetchOnce(t *testing.T) {
	now := time.Now().UTC()
	server := httptest.NewServer(sampleHandler(t, testMessages(now)))
	defer server.Close()

	store := samples.NewStore(0)
	poller, err := NewPoller(PollerConfig{URL: server.URL}, store)
	if err != nil {
		t.Fatalf("NewPoller failed: %v", err)
	}

	if err := poller.fetchOnce(context.Background()); err != nil {
		t.Fatalf("fetchOnce failed: %v", err)
	}

	snap := store.Snapshot("TSLA", now)
	if len(snap) != 2 {
		t.Fatalf("expected 2 TSLA samples, got %d", len(snap))
	}
	if snap[0].Source != "alpha" || snap[1].Source != "beta" {
		t.Errorf("unexpected sources: %s, %s", snap[0].Source, snap[1].Source)
	}
	if store.Len("AAPL") != 1 {
		t.Errorf("expected 1 AAPL sample, got %d", store.Len("AAPL"))
	}
}

func TestPoller_RequiresConfig(t *testing.T) {
	store := samples.NewStore(0)

	if _, err := NewPoller(PollerConfig{}, store); !errors.Is(err, ErrMissingURL) {
		t.Errorf("expected ErrMissingURL, got %v", err)
	}
	if _, err := NewPoller(PollerConfig{URL: "http://localhost"}, nil); !errors.Is(err, ErrMissingStore) {
		t.Errorf("expected ErrMissingStore, got %v", err)
	}
}

func TestPoller_DropsInvalidSamples(t *testing.T) {
	now := time.Now().UTC()
	msgs := []sampleMessage{
		{Symbol: "TSLA", Source: "alpha", Price: decimal.Zero, ObservedAt: now},
		{Symbol: "TSLA", Source: "", Price: decimal.RequireFromString("99.0"), ObservedAt: now},
		{Symbol: "TSLA", Source: "beta", Price: decimal.RequireFromString("100.05"), ObservedAt: now},
	}
	server := httptest.NewServer(sampleHandler(t, msgs))
	defer server.Close()

	store := samples.NewStore(0)
	poller, err := NewPoller(PollerConfig{URL: server.URL}, store)
	if err != nil {
		t.Fatalf("NewPoller failed: %v", err)
	}

	if err := poller.fetchOnce(context.Background()); err != nil {
		t.Fatalf("fetchOnce failed: %v", err)
	}
	if store.Len("TSLA") != 1 {
		t.Errorf("expected only the valid sample to be stored, got %d", store.Len("TSLA"))
	}
}

func TestPoller_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "ingestor down", http.StatusInternalServerError)
	}))
	defer server.Close()

	store := samples.NewStore(0)
	poller, err := NewPoller(PollerConfig{URL: server.URL}, store)
	if err != nil {
		t.Fatalf("NewPoller failed: %v", err)
	}

	if err := poller.fetchOnce(context.Background()); err == nil {
		t.Fatal("expected error for 500 response")
	}
}

func TestPoller_FailoverToFallback(t *testing.T) {
	var primaryHits atomic.Int32
	primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		primaryHits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer primary.Close()

	now := time.Now().UTC()
	fallback := httptest.NewServer(sampleHandler(t, testMessages(now)))
	defer fallback.Close()

	store := samples.NewStore(0)
	poller, err := NewPoller(PollerConfig{
		URL:          primary.URL,
		FallbackURLs: []string{fallback.URL},
	}, store)
	if err != nil {
		t.Fatalf("NewPoller failed: %v", err)
	}

	if err := poller.fetchOnce(context.Background()); err == nil {
		t.Fatal("expected error from failing primary")
	}
	poller.failover()

	if poller.CurrentURL() != fallback.URL {
		t.Errorf("expected current URL %s, got %s", fallback.URL, poller.CurrentURL())
	}
	if err := poller.fetchOnce(context.Background()); err != nil {
		t.Fatalf("fallback fetch failed: %v", err)
	}
	if store.Len("TSLA") != 2 {
		t.Errorf("expected 2 TSLA samples after failover, got %d", store.Len("TSLA"))
	}
	if primaryHits.Load() != 1 {
		t.Errorf("expected 1 primary hit, got %d", primaryHits.Load())
	}
}

func TestPoller_StartStop(t *testing.T) {
	now := time.Now().UTC()
	server := httptest.NewServer(sampleHandler(t, testMessages(now)))
	defer server.Close()

	store := samples.NewStore(0)
	poller, err := NewPoller(PollerConfig{
		URL:          server.URL,
		PollInterval: 5 * time.Millisecond,
	}, store)
	if err != nil {
		t.Fatalf("NewPoller failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := poller.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// The initial fetch runs synchronously in Start.
	if store.Len("TSLA") != 2 {
		t.Errorf("expected samples after Start, got %d", store.Len("TSLA"))
	}

	poller.Stop()
	poller.Stop() // idempotent
}
