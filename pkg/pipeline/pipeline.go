// Package pipeline drives the per-symbol publication cycle: snapshot the
// sample store, aggregate a consensus price, attest it, publish it. Each
// symbol runs on its own ticker so a stalled confirmation for one never
// delays another.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"tc.com/price-attestor/pkg/attest"
	"tc.com/price-attestor/pkg/consensus"
	"tc.com/price-attestor/pkg/logging"
	"tc.com/price-attestor/pkg/metrics"
	"tc.com/price-attestor/pkg/publish"
	"tc.com/price-attestor/pkg/samples"
)

// DefaultPublishInterval is the per-symbol publication cadence.
const DefaultPublishInterval = 30 * time.Second

// ErrNoSymbols is returned when the pipeline is configured without symbols.
var ErrNoSymbols = errors.New("at least one symbol is required")

// Config holds the pipeline settings.
type Config struct {
	Symbols         []string
	PublishInterval time.Duration
}

// Pipeline owns one runner goroutine per symbol.
type Pipeline struct {
	cfg        Config
	store      *samples.Store
	aggregator consensus.Aggregator
	attestor   *attest.Attestor
	publisher  *publish.Publisher
	logger     *logging.Logger

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New wires the pipeline. All dependencies are required.
func New(cfg Config, store *samples.Store, aggregator consensus.Aggregator, attestor *attest.Attestor, publisher *publish.Publisher, logger *logging.Logger) (*Pipeline, error) {
	if len(cfg.Symbols) == 0 {
		return nil, ErrNoSymbols
	}
	if store == nil {
		return nil, fmt.Errorf("sample store is required")
	}
	if aggregator == nil {
		return nil, fmt.Errorf("aggregator is required")
	}
	if attestor == nil {
		return nil, fmt.Errorf("attestor is required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("publisher is required")
	}
	if cfg.PublishInterval <= 0 {
		cfg.PublishInterval = DefaultPublishInterval
	}
	if logger == nil {
		logger = logging.NewNoopLogger()
	}

	return &Pipeline{
		cfg:        cfg,
		store:      store,
		aggregator: aggregator,
		attestor:   attestor,
		publisher:  publisher,
		logger:     logger,
		done:       make(chan struct{}),
	}, nil
}

// Start resumes publications a previous run left in flight, then launches
// one runner per symbol.
func (p *Pipeline) Start(ctx context.Context) error {
	if err := p.publisher.ResumeSubmitted(ctx); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		p.logger.Warn("Failed to resume submitted publications", "error", err.Error())
	}

	for _, symbol := range p.cfg.Symbols {
		p.wg.Add(1)
		go p.run(ctx, symbol)
	}

	p.logger.Info("Pipeline started",
		"symbols", len(p.cfg.Symbols),
		"publish_interval", p.cfg.PublishInterval.String(),
	)
	return nil
}

// Stop halts all runners and waits for them to exit. In-flight confirmations
// are abandoned; their records stay SUBMITTED and are resumed on next start.
func (p *Pipeline) Stop() {
	p.stopOnce.Do(func() {
		close(p.done)
	})
	p.wg.Wait()
}

func (p *Pipeline) run(ctx context.Context, symbol string) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.cfg.PublishInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.done:
			return
		case <-ticker.C:
			p.cycle(ctx, symbol)
		}
	}
}

// cycle runs one snapshot, aggregate, attest, publish pass.
func (p *Pipeline) cycle(ctx context.Context, symbol string) {
	now := time.Now().UTC()
	snapshot := p.store.Snapshot(symbol, now)
	for _, sample := range snapshot {
		metrics.RecordSampleStaleness(sample.Source, symbol, sample.Age(now))
	}

	cp, err := p.aggregator.Aggregate(snapshot)
	if err != nil {
		if errors.Is(err, consensus.ErrInsufficientData) {
			p.logger.Debug("Skipping cycle, below quorum",
				"symbol", symbol,
				"sources", len(snapshot),
			)
			return
		}
		p.logger.Error("Aggregation failed", "symbol", symbol, "error", err.Error())
		return
	}

	att, err := p.attestor.Attest(ctx, cp)
	if err != nil {
		p.logger.Error("Attestation failed", "symbol", symbol, "error", err.Error())
		return
	}

	rec, err := p.publisher.Publish(ctx, att)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			// Shutting down; the record stays resumable.
			return
		}
		p.logger.Error("Publication failed",
			"symbol", symbol,
			"commitment", att.Commitment,
			"error", err.Error(),
		)
		return
	}

	p.logger.Info("Published consensus price",
		"symbol", symbol,
		"price", cp.Price.String(),
		"sources", cp.SourceCount,
		"commitment", rec.Commitment,
		"tx_id", rec.TxID,
		"status", string(rec.Status),
	)
}
