package store

import (
	"context"
	"time"
)

// Store persists publication records keyed by commitment.
type Store interface {
	// Insert adds a new record. Returns ErrDuplicateKey if the commitment
	// already exists.
	Insert(ctx context.Context, rec *PublicationRecord) error

	// Get retrieves a record by commitment. Returns ErrNotFound if absent.
	Get(ctx context.Context, commitment string) (*PublicationRecord, error)

	// Update replaces the record with the same commitment. Returns
	// ErrNotFound if absent.
	Update(ctx context.Context, rec *PublicationRecord) error

	// ListByStatus returns records in the given status, oldest first.
	ListByStatus(ctx context.Context, status Status) ([]*PublicationRecord, error)

	// ListBySymbol returns records for a symbol, oldest first.
	ListBySymbol(ctx context.Context, symbol string) ([]*PublicationRecord, error)

	// PruneTerminal deletes confirmed and failed records last updated before
	// the cutoff. Returns the number of records removed.
	PruneTerminal(ctx context.Context, cutoff time.Time) (int64, error)
}
