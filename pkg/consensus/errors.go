package consensus

import "errors"

var (
	// ErrInsufficientData indicates the snapshot does not meet quorum.
	// Recoverable: wait for more samples.
	ErrInsufficientData = errors.New("insufficient data: below source quorum")
	// ErrUnknownPolicy indicates that the aggregation policy is unknown.
	ErrUnknownPolicy = errors.New("unknown aggregation policy")
)
