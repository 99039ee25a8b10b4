package config

import (
	"fmt"
	"os"
	"strings"
)

// Validate checks configuration for errors
func Validate(cfg *Config) error {
	if len(cfg.Symbols) == 0 {
		return ErrNoSymbols
	}

	if err := validateFeedsConfig(&cfg.Feeds); err != nil {
		return fmt.Errorf("feeds config: %w", err)
	}

	if err := validateConsensusConfig(&cfg.Consensus); err != nil {
		return fmt.Errorf("consensus config: %w", err)
	}

	if err := validateAttestorConfig(&cfg.Attestor); err != nil {
		return fmt.Errorf("attestor config: %w", err)
	}

	if err := validateLedgerConfig(cfg); err != nil {
		return fmt.Errorf("ledger config: %w", err)
	}

	if err := validateStoreConfig(&cfg.Store); err != nil {
		return fmt.Errorf("store config: %w", err)
	}

	if err := validateLoggingConfig(&cfg.Logging); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

func validateFeedsConfig(cfg *FeedsConfig) error {
	if cfg.HTTP.URL == "" && !cfg.WebSocket.Enabled {
		return ErrNoFeedConfigured
	}
	if cfg.WebSocket.Enabled && cfg.WebSocket.URL == "" {
		return fmt.Errorf("%w: websocket enabled without url", ErrNoFeedConfigured)
	}
	return nil
}

func validateConsensusConfig(cfg *ConsensusConfig) error {
	if cfg.Quorum < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidQuorum, cfg.Quorum)
	}
	if cfg.OutlierThreshold <= 0 {
		return fmt.Errorf("%w: got %v", ErrInvalidOutlierThreshold, cfg.OutlierThreshold)
	}

	policy := strings.ToLower(cfg.Policy)
	if policy != "median" && policy != "weighted_average" {
		return fmt.Errorf("%w: %s (must be 'median' or 'weighted_average')", ErrInvalidPolicy, cfg.Policy)
	}

	for source, weight := range cfg.SourceWeights {
		if weight < 0 {
			return fmt.Errorf("%w: source %s has weight %v", ErrNegativeSourceWeight, source, weight)
		}
	}

	return nil
}

func validateAttestorConfig(cfg *AttestorConfig) error {
	// Validate mnemonic (either direct or from env)
	if cfg.Mnemonic == "" && cfg.MnemonicEnv == "" {
		return ErrMnemonicRequired
	}
	if cfg.Mnemonic == "" && cfg.MnemonicEnv != "" {
		if os.Getenv(cfg.MnemonicEnv) == "" {
			return fmt.Errorf("%w: %s", ErrMnemonicEnvNotSet, cfg.MnemonicEnv)
		}
	}

	if cfg.Prover.Enabled && cfg.Prover.Endpoint == "" {
		return ErrProverEndpointRequired
	}

	return nil
}

func validateLedgerConfig(cfg *Config) error {
	if len(cfg.GatewayEndpoints()) == 0 {
		return ErrNoGatewayEndpoints
	}
	if cfg.Ledger.Contract == "" {
		return ErrContractRequired
	}
	if cfg.Ledger.Submit.MaxAttempts < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidMaxAttempts, cfg.Ledger.Submit.MaxAttempts)
	}
	if cfg.Ledger.Confirm.MaxPolls < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidMaxPolls, cfg.Ledger.Confirm.MaxPolls)
	}
	if cfg.Ledger.Confirm.PollInterval.ToDuration() <= 0 {
		return ErrInvalidPollInterval
	}
	return nil
}

func validateStoreConfig(cfg *StoreConfig) error {
	backend := strings.ToLower(cfg.Backend)
	if backend != "memory" && backend != "postgres" {
		return fmt.Errorf("%w: %s (must be 'memory' or 'postgres')", ErrInvalidStoreBackend, cfg.Backend)
	}
	if backend == "postgres" && cfg.PostgresDSN == "" {
		return ErrPostgresDSNRequired
	}
	return nil
}

func validateLoggingConfig(cfg *LoggingConfig) error {
	// Validate level
	validLevels := []string{"debug", "info", "warn", "error"}
	levelValid := false
	for _, l := range validLevels {
		if strings.ToLower(cfg.Level) == l {
			levelValid = true
			break
		}
	}
	if !levelValid {
		return fmt.Errorf("%w: %s (must be one of: %s)", ErrInvalidLogLevel, cfg.Level, strings.Join(validLevels, ", "))
	}

	// Validate format
	formatValid := strings.ToLower(cfg.Format) == "json" || strings.ToLower(cfg.Format) == "text"
	if !formatValid {
		return fmt.Errorf("%w: %s (must be 'json' or 'text')", ErrInvalidLogFormat, cfg.Format)
	}

	return nil
}
