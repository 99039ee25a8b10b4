package samples

import (
	"sort"
	"sync"
	"time"
)

// Store keeps the latest sample per (symbol, source). It is a plain data
// holder: staleness is evaluated at snapshot time, never on insert.
type Store struct {
	mu              sync.RWMutex
	samples         map[string]map[string]PriceSample // symbol -> source -> latest sample
	stalenessWindow time.Duration
}

// NewStore creates a sample store. Samples older than stalenessWindow are
// excluded from snapshots; zero disables the staleness check.
func NewStore(stalenessWindow time.Duration) *Store {
	return &Store{
		samples:         make(map[string]map[string]PriceSample),
		stalenessWindow: stalenessWindow,
	}
}

// Put inserts or overwrites the most recent sample for (symbol, source).
// A sample older than the one already held is ignored, so the two feed
// transports can race without regressing the store. Equal timestamps are
// tie-broken by sequence.
func (s *Store) Put(sample PriceSample) error {
	if sample.Symbol == "" {
		return ErrMissingSymbol
	}
	if sample.Source == "" {
		return ErrMissingSource
	}
	if !sample.Price.IsPositive() {
		return ErrInvalidPrice
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	bySource, ok := s.samples[sample.Symbol]
	if !ok {
		bySource = make(map[string]PriceSample)
		s.samples[sample.Symbol] = bySource
	}

	if existing, ok := bySource[sample.Source]; ok {
		if sample.ObservedAt.Before(existing.ObservedAt) {
			return nil
		}
		if sample.ObservedAt.Equal(existing.ObservedAt) && sample.Sequence <= existing.Sequence {
			return nil
		}
	}

	bySource[sample.Source] = sample
	return nil
}

// Snapshot returns a copy of all non-stale samples for the symbol as of now.
// Stale samples are dropped silently; partial source outage is expected and
// is the aggregator's problem to quorum-check, not an error here.
func (s *Store) Snapshot(symbol string, now time.Time) []PriceSample {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bySource, ok := s.samples[symbol]
	if !ok {
		return nil
	}

	snapshot := make([]PriceSample, 0, len(bySource))
	for _, sample := range bySource {
		if s.stalenessWindow > 0 && sample.Age(now) > s.stalenessWindow {
			continue
		}
		snapshot = append(snapshot, sample)
	}

	// Stable order keeps downstream aggregation reproducible.
	sort.Slice(snapshot, func(i, j int) bool {
		return snapshot[i].Source < snapshot[j].Source
	})

	return snapshot
}

// Symbols returns all symbols with at least one held sample.
func (s *Store) Symbols() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	symbols := make([]string, 0, len(s.samples))
	for symbol := range s.samples {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols
}

// Len returns the number of held samples for a symbol, staleness ignored.
func (s *Store) Len(symbol string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.samples[symbol])
}
