package publish

import "errors"

var (
	// ErrInvalidAttestation is returned when an attestation is nil or lacks
	// the commitment that keys its publication record.
	ErrInvalidAttestation = errors.New("attestation is nil or has no commitment")

	// ErrSubmissionFailed is returned when a transaction could not be placed
	// on the ledger, either because the gateway rejected it outright or
	// because every submission attempt was exhausted.
	ErrSubmissionFailed = errors.New("submission failed")

	// ErrContractRejected is returned when the ledger reports the
	// transaction as failed. The rejection reason is kept on the record.
	ErrContractRejected = errors.New("contract rejected publication")

	// ErrConfirmationTimeout is returned when the confirmation poll budget
	// is exhausted without the transaction reaching a terminal status. The
	// transaction may still land later; the record is marked with
	// UnknownOutcome rather than treated as a rejection.
	ErrConfirmationTimeout = errors.New("confirmation timed out")

	// ErrNotSubmitted is returned when Confirm is called for a record that
	// has no transaction in flight.
	ErrNotSubmitted = errors.New("publication has no submitted transaction")
)
