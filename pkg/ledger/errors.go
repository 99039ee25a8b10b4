package ledger

import "errors"

var (
	// ErrNoEndpoints indicates a client configured without gateway endpoints.
	ErrNoEndpoints = errors.New("at least one gateway endpoint is required")

	// ErrEndpointUnavailable indicates a transport-level failure against one
	// endpoint. The client rotates to the next endpoint on this error.
	ErrEndpointUnavailable = errors.New("gateway endpoint unavailable")

	// ErrAllEndpointsFailed indicates every configured endpoint failed for
	// one logical call. Callers may retry the whole call later.
	ErrAllEndpointsFailed = errors.New("all gateway endpoints failed")

	// ErrTxNotFound indicates the gateway has not indexed the transaction
	// yet. Interim during confirmation polling, not a terminal failure.
	ErrTxNotFound = errors.New("transaction not found")

	// ErrSubmitRejected indicates the gateway or contract refused the
	// transaction at submission. Resubmitting the same payload cannot
	// succeed.
	ErrSubmitRejected = errors.New("transaction rejected at submission")

	// ErrInvalidAccount indicates a malformed ledger account or contract id.
	ErrInvalidAccount = errors.New("invalid ledger account")

	// ErrIncompleteAttestation indicates an attestation missing fields the
	// envelope needs.
	ErrIncompleteAttestation = errors.New("attestation missing required fields")
)
