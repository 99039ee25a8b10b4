package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"tc.com/price-attestor/pkg/api"
	"tc.com/price-attestor/pkg/attest"
	"tc.com/price-attestor/pkg/attest/keystore"
	"tc.com/price-attestor/pkg/attest/prover"
	"tc.com/price-attestor/pkg/config"
	"tc.com/price-attestor/pkg/consensus"
	"tc.com/price-attestor/pkg/ledger"
	"tc.com/price-attestor/pkg/logging"
	"tc.com/price-attestor/pkg/metrics"
	"tc.com/price-attestor/pkg/pipeline"
	"tc.com/price-attestor/pkg/publish"
	"tc.com/price-attestor/pkg/publish/store"
	"tc.com/price-attestor/pkg/publish/store/memory"
	"tc.com/price-attestor/pkg/publish/store/postgres"
	"tc.com/price-attestor/pkg/samples"
	"tc.com/price-attestor/pkg/samples/feed"
	"tc.com/price-attestor/pkg/version"
)

var (
	configFile = flag.String("config", "config/config.yaml", "Path to configuration file")
	showVer    = flag.Bool("version", false, "Show version and exit")
)

func main() {
	flag.Parse()

	if *showVer {
		fmt.Printf("price-attestor version %s\n", version.Version)
		os.Exit(0)
	}

	// Load configuration
	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Validate configuration
	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logging
	logger, err := logging.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logging.SetGlobal(logger)

	logger.Info("Starting price-attestor", "version", version.Version, "symbols", cfg.Symbols)

	// Initialize metrics
	if cfg.Metrics.Enabled {
		metrics.Init()
		go func() {
			logger.Info("Starting metrics server", "addr", cfg.Metrics.Addr)
			if err := metrics.ServeHTTP(cfg.Metrics.Addr); err != nil {
				logger.Error("Metrics server failed", "error", err.Error())
			}
		}()
	}

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- run(ctx, cfg, logger)
	}()

	// Wait for shutdown signal or error
	select {
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", "signal", sig.String())
		cancel()
		select {
		case err := <-errChan:
			if err != nil {
				logger.Error("Shutdown error", "error", err.Error())
			}
		case <-time.After(15 * time.Second):
			logger.Warn("Shutdown timed out")
		}
	case err := <-errChan:
		if err != nil {
			logger.Error("Attestor failed", "error", err.Error())
			os.Exit(1)
		}
	}

	logger.Info("Shutdown complete")
}

// run wires the components together and blocks until ctx is canceled.
func run(ctx context.Context, cfg *config.Config, logger *logging.Logger) error {
	// Publication record store
	var records store.Store
	switch strings.ToLower(cfg.Store.Backend) {
	case "postgres":
		pool, err := postgres.NewPool(ctx, cfg.Store.PostgresDSN)
		if err != nil {
			return fmt.Errorf("failed to connect publication store: %w", err)
		}
		defer pool.Close()
		records = postgres.NewPublicationStore(pool)
		logger.Info("Using postgres publication store")
	default:
		records = memory.New()
		logger.Info("Using in-memory publication store")
	}

	// Signing key
	keys, err := keystore.FromMnemonic(cfg.ResolveMnemonic(), cfg.Attestor.AccountIndex)
	if err != nil {
		return fmt.Errorf("failed to derive signing key: %w", err)
	}
	logger.Info("Loaded attestor key", "address", keys.Address(), "account", cfg.Attestor.AccountIndex)

	// Attestor with optional proving service
	var attestorOpts []attest.Option
	if cfg.Attestor.Prover.Enabled {
		var proverOpts []prover.ClientOption
		if cfg.Attestor.Prover.Timeout.ToDuration() > 0 {
			proverOpts = append(proverOpts, prover.WithTimeout(cfg.Attestor.Prover.Timeout.ToDuration()))
		}
		attestorOpts = append(attestorOpts, attest.WithProver(prover.NewClient(cfg.Attestor.Prover.Endpoint, proverOpts...)))
		logger.Info("Proof generation enabled", "endpoint", cfg.Attestor.Prover.Endpoint)
	}
	attestor := attest.NewAttestor(keys, logger, attestorOpts...)

	// Gateway client with failover
	endpoints := cfg.GatewayEndpoints()
	gateway, err := ledger.NewClient(ledger.ClientConfig{
		Endpoints:      endpoints,
		RequestTimeout: cfg.Ledger.RequestTimeout.ToDuration(),
		Logger:         logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create gateway client: %w", err)
	}
	defer gateway.Close()
	logger.Info("Using ledger gateways", "endpoints", endpoints, "contract", cfg.Ledger.Contract)

	publisher, err := publish.NewPublisher(gateway, records, publish.Config{
		Contract:     cfg.Ledger.Contract,
		MaxAttempts:  cfg.Ledger.Submit.MaxAttempts,
		RetryBackoff: cfg.Ledger.Submit.RetryBackoff.ToDuration(),
		PollInterval: cfg.Ledger.Confirm.PollInterval.ToDuration(),
		MaxPolls:     cfg.Ledger.Confirm.MaxPolls,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to create publisher: %w", err)
	}

	// Consensus aggregator
	agg, err := consensus.NewAggregator(cfg.Consensus.Policy, consensus.Config{
		Quorum:           cfg.Consensus.Quorum,
		OutlierThreshold: cfg.Consensus.OutlierThreshold,
		SourceWeights:    cfg.Consensus.SourceWeights,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to create aggregator: %w", err)
	}
	logger.Info("Created aggregator", "policy", cfg.Consensus.Policy, "quorum", cfg.Consensus.Quorum)

	// Sample ingestion
	sampleStore := samples.NewStore(cfg.Feeds.StalenessWindow.ToDuration())

	var feeds []feed.Feed
	if cfg.Feeds.HTTP.URL != "" {
		poller, err := feed.NewPoller(feed.PollerConfig{
			URL:          cfg.Feeds.HTTP.URL,
			FallbackURLs: cfg.Feeds.HTTP.FallbackURLs,
			PollInterval: cfg.Feeds.HTTP.PollInterval.ToDuration(),
			Logger:       logger,
		}, sampleStore)
		if err != nil {
			return fmt.Errorf("failed to create poll feed: %w", err)
		}
		feeds = append(feeds, poller)
	}
	if cfg.Feeds.WebSocket.Enabled {
		stream, err := feed.NewStream(cfg.Feeds.WebSocket.URL, cfg.Symbols, sampleStore, logger)
		if err != nil {
			return fmt.Errorf("failed to create stream feed: %w", err)
		}
		feeds = append(feeds, stream)
	}

	for _, f := range feeds {
		if err := f.Start(ctx); err != nil {
			return fmt.Errorf("failed to start %s feed: %w", f.Name(), err)
		}
		logger.Info("Feed started", "feed", f.Name())
	}

	// Consensus pipeline
	pipe, err := pipeline.New(pipeline.Config{
		Symbols:         cfg.Symbols,
		PublishInterval: cfg.Publisher.PublishInterval.ToDuration(),
	}, sampleStore, agg, attestor, publisher, logger)
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}
	if err := pipe.Start(ctx); err != nil {
		return fmt.Errorf("failed to start pipeline: %w", err)
	}

	// Status API
	var apiServer *api.Server
	if cfg.API.Enabled {
		apiServer = api.NewServer(cfg.API.Addr, records, logger)
		go func() {
			if err := apiServer.Start(); err != nil {
				logger.Error("Status API server failed", "error", err.Error())
			}
		}()
	}

	// Terminal record pruning
	if cfg.Store.PruneAfter.ToDuration() > 0 {
		go pruneLoop(ctx, records, cfg.Store.PruneAfter.ToDuration(), logger)
	}

	<-ctx.Done()

	logger.Info("Shutting down...")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	pipe.Stop()
	for _, f := range feeds {
		f.Stop()
	}
	if apiServer != nil {
		if err := apiServer.Stop(shutdownCtx); err != nil {
			logger.Warn("Failed to stop status API server", "error", err.Error())
		}
	}

	return nil
}

// pruneLoop deletes terminal publication records older than age. The cadence
// scales with the retention window, bounded to [1m, 1h].
func pruneLoop(ctx context.Context, records store.Store, age time.Duration, logger *logging.Logger) {
	interval := age / 4
	if interval > time.Hour {
		interval = time.Hour
	}
	if interval < time.Minute {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pruneCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			pruned, err := records.PruneTerminal(pruneCtx, time.Now().Add(-age))
			cancel()
			if err != nil {
				logger.Warn("Failed to prune publication records", "error", err.Error())
				continue
			}
			if pruned > 0 {
				logger.Info("Pruned terminal publication records", "count", pruned)
			}
		}
	}
}
