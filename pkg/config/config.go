// Package config provides configuration loading and validation for price-attestor.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Load loads configuration from YAML file and environment variables.
func Load(path string) (*Config, error) {
	// Validate and sanitize path
	cleanPath := filepath.Clean(path)
	absPath, err := filepath.Abs(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("invalid config path: %w", err)
	}

	// Read config file
	data, err := os.ReadFile(absPath) // #nosec G304 -- Path sanitized with filepath.Clean and filepath.Abs
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables in YAML
	expanded := os.ExpandEnv(string(data))

	// Parse YAML
	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Apply defaults
	applyDefaults(&cfg)

	return &cfg, nil
}

// applyDefaults sets default values for optional fields.
func applyDefaults(cfg *Config) {
	// Feed defaults
	if cfg.Feeds.HTTP.PollInterval.ToDuration() == 0 {
		cfg.Feeds.HTTP.PollInterval = Duration(5 * time.Second)
	}
	if cfg.Feeds.StalenessWindow.ToDuration() == 0 {
		cfg.Feeds.StalenessWindow = Duration(30 * time.Second)
	}

	// Consensus defaults
	if cfg.Consensus.Quorum == 0 {
		cfg.Consensus.Quorum = 3
	}
	if cfg.Consensus.OutlierThreshold == 0 {
		cfg.Consensus.OutlierThreshold = 0.02
	}
	if cfg.Consensus.Policy == "" {
		cfg.Consensus.Policy = "weighted_average"
	}

	// Prover defaults
	if cfg.Attestor.Prover.Timeout.ToDuration() == 0 {
		cfg.Attestor.Prover.Timeout = Duration(30 * time.Second)
	}

	// Ledger defaults
	if cfg.Ledger.RequestTimeout.ToDuration() == 0 {
		cfg.Ledger.RequestTimeout = Duration(10 * time.Second)
	}
	if cfg.Ledger.Submit.MaxAttempts == 0 {
		cfg.Ledger.Submit.MaxAttempts = 5
	}
	if cfg.Ledger.Submit.RetryBackoff.ToDuration() == 0 {
		cfg.Ledger.Submit.RetryBackoff = Duration(500 * time.Millisecond)
	}
	if cfg.Ledger.Confirm.PollInterval.ToDuration() == 0 {
		cfg.Ledger.Confirm.PollInterval = Duration(2 * time.Second)
	}
	if cfg.Ledger.Confirm.MaxPolls == 0 {
		cfg.Ledger.Confirm.MaxPolls = 30
	}

	// Publisher defaults
	if cfg.Publisher.PublishInterval.ToDuration() == 0 {
		cfg.Publisher.PublishInterval = Duration(30 * time.Second)
	}

	// Store defaults
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = "memory"
	}

	// API defaults
	if cfg.API.Enabled && cfg.API.Addr == "" {
		cfg.API.Addr = ":8080"
	}

	// Metrics defaults
	if cfg.Metrics.Enabled && cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = ":9091"
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}
}

// GatewayEndpoints returns the configured gateway endpoints, folding the
// single-endpoint convenience field into the failover list.
func (c *Config) GatewayEndpoints() []string {
	if len(c.Ledger.Endpoints) > 0 {
		return c.Ledger.Endpoints
	}
	if c.Ledger.Endpoint != "" {
		return []string{c.Ledger.Endpoint}
	}
	return nil
}

// ResolveMnemonic returns the signing mnemonic, preferring the direct value
// over the environment variable indirection.
func (c *Config) ResolveMnemonic() string {
	if c.Attestor.Mnemonic != "" {
		return c.Attestor.Mnemonic
	}
	if c.Attestor.MnemonicEnv != "" {
		return os.Getenv(c.Attestor.MnemonicEnv)
	}
	return ""
}
