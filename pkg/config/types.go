package config

import "time"

// Config is the root configuration structure
type Config struct {
	Symbols   []string        `yaml:"symbols"`
	Feeds     FeedsConfig     `yaml:"feeds"`
	Consensus ConsensusConfig `yaml:"consensus"`
	Attestor  AttestorConfig  `yaml:"attestor"`
	Ledger    LedgerConfig    `yaml:"ledger"`
	Publisher PublisherConfig `yaml:"publisher"`
	Store     StoreConfig     `yaml:"store"`
	API       APIConfig       `yaml:"api"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// FeedsConfig configures how raw samples reach the store
type FeedsConfig struct {
	HTTP            HTTPFeedConfig `yaml:"http"`
	WebSocket       WSFeedConfig   `yaml:"websocket"`
	StalenessWindow Duration       `yaml:"staleness_window"`
}

// HTTPFeedConfig configures the polling sample feed
type HTTPFeedConfig struct {
	URL          string   `yaml:"url"`
	FallbackURLs []string `yaml:"fallback_urls"`
	PollInterval Duration `yaml:"poll_interval"`
}

// WSFeedConfig configures the streaming sample feed
type WSFeedConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
}

// ConsensusConfig configures aggregation
type ConsensusConfig struct {
	Quorum           int                `yaml:"quorum"`            // Minimum distinct sources (default: 3)
	OutlierThreshold float64            `yaml:"outlier_threshold"` // Relative deviation from median (default: 0.02)
	Policy           string             `yaml:"policy"`            // "weighted_average" or "median"
	SourceWeights    map[string]float64 `yaml:"source_weights"`    // Optional per-source reliability weights
}

// AttestorConfig configures signing and the optional proof subsystem
type AttestorConfig struct {
	Mnemonic     string       `yaml:"mnemonic"`      // BIP39 mnemonic (or use MnemonicEnv)
	MnemonicEnv  string       `yaml:"mnemonic_env"`  // Environment variable for mnemonic
	AccountIndex uint32       `yaml:"account_index"` // SLIP-0010 account index
	Prover       ProverConfig `yaml:"prover"`
}

// ProverConfig configures the zero-knowledge proof service
type ProverConfig struct {
	Enabled  bool     `yaml:"enabled"`
	Endpoint string   `yaml:"endpoint"`
	Timeout  Duration `yaml:"timeout"`
}

// LedgerConfig configures the ledger gateway connection
type LedgerConfig struct {
	Endpoint       string        `yaml:"endpoint"`  // Primary gateway endpoint
	Endpoints      []string      `yaml:"endpoints"` // Multiple endpoints for failover
	Contract       string        `yaml:"contract"`  // Oracle contract address (base58)
	RequestTimeout Duration      `yaml:"request_timeout"`
	Submit         SubmitConfig  `yaml:"submit"`
	Confirm        ConfirmConfig `yaml:"confirm"`
}

// SubmitConfig bounds the submission retry loop
type SubmitConfig struct {
	MaxAttempts  int      `yaml:"max_attempts"`
	RetryBackoff Duration `yaml:"retry_backoff"`
}

// ConfirmConfig bounds confirmation polling
type ConfirmConfig struct {
	PollInterval Duration `yaml:"poll_interval"`
	MaxPolls     int      `yaml:"max_polls"`
}

// PublisherConfig configures the per-symbol publication cadence
type PublisherConfig struct {
	PublishInterval Duration `yaml:"publish_interval"`
}

// StoreConfig configures the publication record store
type StoreConfig struct {
	Backend     string   `yaml:"backend"`      // "memory" or "postgres"
	PostgresDSN string   `yaml:"postgres_dsn"` // Required for postgres backend
	PruneAfter  Duration `yaml:"prune_after"`  // Age at which terminal records are pruned (0 = never)
}

// APIConfig configures the publication status API
type APIConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// MetricsConfig configures Prometheus metrics
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Path    string `yaml:"path"`
}

// LoggingConfig configures logging
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Duration is a wrapper around time.Duration for YAML parsing
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	td, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(td)
	return nil
}

// ToDuration converts Duration to time.Duration
func (d Duration) ToDuration() time.Duration {
	return time.Duration(d)
}
