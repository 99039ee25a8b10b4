package prover

import "errors"

var (
	// ErrEmptyProof indicates a missing or zero-length proof blob.
	ErrEmptyProof = errors.New("proof must not be empty")

	// ErrProofTooShort indicates a proof below the verifier's minimum size.
	ErrProofTooShort = errors.New("proof below minimum length")

	// ErrZeroProofPrefix indicates an all-zero leading span, a padded or
	// unset proof.
	ErrZeroProofPrefix = errors.New("proof prefix is all zeros")

	// ErrNoPublicInputs indicates a proof without public inputs.
	ErrNoPublicInputs = errors.New("proof carries no public inputs")

	// ErrMalformedPublicInput indicates a public input of the wrong width.
	ErrMalformedPublicInput = errors.New("malformed public input")

	// ErrPriceMismatch indicates the circuit's price input disagrees with
	// the attested price.
	ErrPriceMismatch = errors.New("public input price does not match attested price")

	// ErrProverUnavailable indicates the proving service could not be
	// reached or returned a transport-level failure.
	ErrProverUnavailable = errors.New("proving service unavailable")

	// ErrProverRejected indicates the proving service refused the request.
	ErrProverRejected = errors.New("proving service rejected request")
)
