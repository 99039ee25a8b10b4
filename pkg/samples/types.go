// Package samples holds raw price observations between ingestion and
// aggregation.
package samples

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceSample is a single price observation for a symbol from one source.
// Immutable once created.
type PriceSample struct {
	Symbol     string          `json:"symbol"`
	Source     string          `json:"source"`
	Price      decimal.Decimal `json:"price"`
	ObservedAt time.Time       `json:"observed_at"`
	Sequence   uint64          `json:"sequence,omitempty"`
}

// Age returns how old the sample is relative to now.
func (s PriceSample) Age(now time.Time) time.Duration {
	return now.Sub(s.ObservedAt)
}
