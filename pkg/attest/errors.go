package attest

import "errors"

var (
	// ErrSigningFailure indicates the signer could not produce a signature.
	// It is fatal for the attestation; callers must not retry with the same
	// inputs.
	ErrSigningFailure = errors.New("signing failure")

	// ErrNonceGeneration indicates the nonce source failed.
	ErrNonceGeneration = errors.New("nonce generation failed")

	// ErrNonPositivePrice indicates a zero or negative consensus price.
	ErrNonPositivePrice = errors.New("price must be positive")

	// ErrPriceOverflow indicates the price does not fit the fixed-point range.
	ErrPriceOverflow = errors.New("price exceeds fixed-point range")

	// ErrMissingSymbol indicates an empty symbol in the commitment input.
	ErrMissingSymbol = errors.New("symbol must not be empty")

	// ErrSymbolTooLong indicates a symbol exceeding the encodable length.
	ErrSymbolTooLong = errors.New("symbol exceeds maximum length")
)
