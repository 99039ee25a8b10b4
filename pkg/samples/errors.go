package samples

import "errors"

var (
	// ErrMissingSymbol indicates a sample without a symbol.
	ErrMissingSymbol = errors.New("sample symbol must not be empty")
	// ErrMissingSource indicates a sample without a source identifier.
	ErrMissingSource = errors.New("sample source must not be empty")
	// ErrInvalidPrice indicates a non-positive sample price.
	ErrInvalidPrice = errors.New("sample price must be positive")
)
