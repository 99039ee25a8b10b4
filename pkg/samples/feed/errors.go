package feed

import "errors"

var (
	// ErrMissingURL is returned when a feed is configured without an
	// ingestor endpoint.
	ErrMissingURL = errors.New("feed url is required")

	// ErrMissingStore is returned when a feed has no sample store to
	// write into.
	ErrMissingStore = errors.New("sample store is required")
)
