package config

import "errors"

var (
	// ErrNoSymbols indicates that no symbols are configured.
	ErrNoSymbols = errors.New("at least one symbol must be configured")
	// ErrInvalidPolicy indicates that the consensus policy is invalid.
	ErrInvalidPolicy = errors.New("invalid consensus policy")
	// ErrInvalidQuorum indicates that the quorum is invalid.
	ErrInvalidQuorum = errors.New("quorum must be >= 1")
	// ErrInvalidOutlierThreshold indicates that the outlier threshold is invalid.
	ErrInvalidOutlierThreshold = errors.New("outlier_threshold must be > 0")
	// ErrNegativeSourceWeight indicates that a source weight is negative.
	ErrNegativeSourceWeight = errors.New("source weight must be >= 0")
	// ErrNoFeedConfigured indicates that neither feed transport is configured.
	ErrNoFeedConfigured = errors.New("either feeds.http.url or feeds.websocket must be configured")
	// ErrMnemonicRequired indicates that either mnemonic or mnemonic_env must be specified.
	ErrMnemonicRequired = errors.New("either mnemonic or mnemonic_env must be specified")
	// ErrMnemonicEnvNotSet indicates that the mnemonic environment variable is not set.
	ErrMnemonicEnvNotSet = errors.New("mnemonic environment variable not set")
	// ErrProverEndpointRequired indicates that the prover endpoint is missing.
	ErrProverEndpointRequired = errors.New("prover.endpoint must be specified when prover is enabled")
	// ErrNoGatewayEndpoints indicates that at least one gateway endpoint must be specified.
	ErrNoGatewayEndpoints = errors.New("at least one ledger endpoint must be specified")
	// ErrContractRequired indicates that the contract address is missing.
	ErrContractRequired = errors.New("ledger contract address must be specified")
	// ErrInvalidMaxAttempts indicates an invalid submission attempt bound.
	ErrInvalidMaxAttempts = errors.New("submit.max_attempts must be >= 1")
	// ErrInvalidMaxPolls indicates an invalid confirmation poll bound.
	ErrInvalidMaxPolls = errors.New("confirm.max_polls must be >= 1")
	// ErrInvalidPollInterval indicates an invalid confirmation poll interval.
	ErrInvalidPollInterval = errors.New("confirm.poll_interval must be > 0")
	// ErrInvalidStoreBackend indicates that the store backend is unknown.
	ErrInvalidStoreBackend = errors.New("invalid store backend")
	// ErrPostgresDSNRequired indicates that a DSN is needed for the postgres backend.
	ErrPostgresDSNRequired = errors.New("postgres_dsn must be specified for postgres backend")
	// ErrInvalidLogLevel indicates that the log level is invalid.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidLogFormat indicates that the log format is invalid.
	ErrInvalidLogFormat = errors.New("invalid log format")
)
