package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"tc.com/price-attestor/pkg/logging"
	"tc.com/price-attestor/pkg/metrics"
	"tc.com/price-attestor/pkg/samples"
)

const (
	pollerFeedName = "http_poll"
	samplesPath    = "/v1/samples"

	// DefaultPollInterval is how often the ingestor is polled.
	DefaultPollInterval = 5 * time.Second

	defaultHTTPTimeout = 10 * time.Second
	maxSamplesBody     = 1 << 20
)

// Poller fetches the ingestor's sample endpoint on an interval. When
// fallback URLs are configured, a failed fetch rotates to the next endpoint
// and stays there until it fails in turn.
type Poller struct {
	urls     []string
	current  int
	mu       sync.Mutex
	interval time.Duration
	client   *http.Client
	store    *samples.Store
	logger   *logging.Logger

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// PollerConfig configures the HTTP sample poller.
type PollerConfig struct {
	URL          string
	FallbackURLs []string
	PollInterval time.Duration
	HTTPClient   *http.Client
	Logger       *logging.Logger
}

var _ Feed = (*Poller)(nil)

// NewPoller creates the HTTP sample poller.
func NewPoller(cfg PollerConfig, store *samples.Store) (*Poller, error) {
	if cfg.URL == "" {
		return nil, ErrMissingURL
	}
	if store == nil {
		return nil, ErrMissingStore
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNoopLogger()
	}

	urls := make([]string, 0, 1+len(cfg.FallbackURLs))
	urls = append(urls, strings.TrimRight(cfg.URL, "/"))
	for _, u := range cfg.FallbackURLs {
		if u != "" {
			urls = append(urls, strings.TrimRight(u, "/"))
		}
	}

	return &Poller{
		urls:     urls,
		interval: cfg.PollInterval,
		client:   cfg.HTTPClient,
		store:    store,
		logger:   cfg.Logger,
		done:     make(chan struct{}),
	}, nil
}

// Name identifies the feed in logs and metrics.
func (p *Poller) Name() string {
	return pollerFeedName
}

// CurrentURL returns the endpoint the poller is fetching from.
func (p *Poller) CurrentURL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.urls[p.current]
}

// Start performs one immediate fetch and begins the polling loop.
func (p *Poller) Start(ctx context.Context) error {
	if err := p.fetchOnce(ctx); err != nil {
		p.logger.Warn("Initial sample fetch failed", "error", err.Error())
		metrics.RecordFeedConnected(pollerFeedName, false)
	} else {
		metrics.RecordFeedConnected(pollerFeedName, true)
	}

	p.wg.Add(1)
	go p.loop(ctx)
	return nil
}

// Stop halts the polling loop and waits for it to exit.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() {
		close(p.done)
	})
	p.wg.Wait()
}

func (p *Poller) loop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.done:
			return
		case <-ticker.C:
			if err := p.fetchOnce(ctx); err != nil {
				p.logger.Error("Failed to fetch samples", "url", p.CurrentURL(), "error", err.Error())
				metrics.RecordFeedConnected(pollerFeedName, false)
				p.failover()
			} else {
				metrics.RecordFeedConnected(pollerFeedName, true)
			}
		}
	}
}

// fetchOnce retrieves the current sample set and stores every valid entry.
func (p *Poller) fetchOnce(ctx context.Context) error {
	url := p.CurrentURL() + samplesPath

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch samples: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxSamplesBody))
		return fmt.Errorf("ingestor returned %d: %s", resp.StatusCode, string(body))
	}

	var messages []sampleMessage
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxSamplesBody)).Decode(&messages); err != nil {
		return fmt.Errorf("decode samples: %w", err)
	}

	stored := 0
	for _, msg := range messages {
		sample := msg.toSample()
		if err := p.store.Put(sample); err != nil {
			p.logger.Warn("Dropped sample",
				"symbol", sample.Symbol,
				"source", sample.Source,
				"error", err.Error(),
			)
			continue
		}
		metrics.RecordSample(sample.Source, sample.Symbol)
		stored++
	}

	p.logger.Debug("Stored polled samples", "received", len(messages), "stored", stored)
	return nil
}

// failover rotates to the next configured endpoint.
func (p *Poller) failover() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.urls) < 2 {
		return
	}
	from := p.urls[p.current]
	p.current = (p.current + 1) % len(p.urls)
	p.logger.Warn("Sample feed failing over", "from", from, "to", p.urls[p.current])
}
