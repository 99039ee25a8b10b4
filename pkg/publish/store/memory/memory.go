// Package memory provides an in-memory publication store. Records do not
// survive a restart; in-flight submissions resume from scratch on the next
// consensus round.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"tc.com/price-attestor/pkg/publish/store"
)

// Store is an in-memory implementation of store.Store.
type Store struct {
	mu   sync.RWMutex
	data map[string]*store.PublicationRecord // keyed by commitment
}

// New creates an empty in-memory publication store.
func New() *Store {
	return &Store{
		data: make(map[string]*store.PublicationRecord),
	}
}

// Verify interface compliance at compile time.
var _ store.Store = (*Store)(nil)

// Insert adds a new record. Returns ErrDuplicateKey if the commitment exists.
func (s *Store) Insert(_ context.Context, rec *store.PublicationRecord) error {
	if rec == nil || rec.Commitment == "" || !rec.Status.Valid() {
		return store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[rec.Commitment]; exists {
		return store.ErrDuplicateKey
	}

	// Store a copy to prevent external mutation
	s.data[rec.Commitment] = rec.Clone()
	return nil
}

// Get retrieves a record by commitment. Returns ErrNotFound if absent.
func (s *Store) Get(_ context.Context, commitment string) (*store.PublicationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, exists := s.data[commitment]
	if !exists {
		return nil, store.ErrNotFound
	}
	return rec.Clone(), nil
}

// Update replaces the record with the same commitment.
func (s *Store) Update(_ context.Context, rec *store.PublicationRecord) error {
	if rec == nil || rec.Commitment == "" || !rec.Status.Valid() {
		return store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[rec.Commitment]; !exists {
		return store.ErrNotFound
	}
	s.data[rec.Commitment] = rec.Clone()
	return nil
}

// ListByStatus returns records in the given status, oldest first.
func (s *Store) ListByStatus(_ context.Context, status store.Status) ([]*store.PublicationRecord, error) {
	if !status.Valid() {
		return nil, store.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*store.PublicationRecord
	for _, rec := range s.data {
		if rec.Status == status {
			result = append(result, rec.Clone())
		}
	}
	sortRecords(result)
	return result, nil
}

// ListBySymbol returns records for a symbol, oldest first.
func (s *Store) ListBySymbol(_ context.Context, symbol string) ([]*store.PublicationRecord, error) {
	if symbol == "" {
		return nil, store.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*store.PublicationRecord
	for _, rec := range s.data {
		if rec.Symbol == symbol {
			result = append(result, rec.Clone())
		}
	}
	sortRecords(result)
	return result, nil
}

// PruneTerminal deletes terminal records last updated before the cutoff.
func (s *Store) PruneTerminal(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var pruned int64
	for commitment, rec := range s.data {
		if rec.Status.Terminal() && rec.UpdatedAt.Before(cutoff) {
			delete(s.data, commitment)
			pruned++
		}
	}
	return pruned, nil
}

// sortRecords orders by creation time, commitment as tiebreaker, so listings
// are stable across calls.
func sortRecords(records []*store.PublicationRecord) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].Commitment < records[j].Commitment
		}
		return records[i].CreatedAt.Before(records[j].CreatedAt)
	})
}
