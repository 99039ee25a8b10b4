// Package consensus turns multi-source sample snapshots into a single
// consensus price with outlier rejection.
package consensus

import (
	"time"

	"github.com/shopspring/decimal"

	"tc.com/price-attestor/pkg/samples"
)

// ConsensusPrice is the single representative price for a symbol derived
// from a sample snapshot. Derived deterministically; never mutated.
type ConsensusPrice struct {
	Symbol      string          `json:"symbol"`
	Price       decimal.Decimal `json:"price"`
	Timestamp   time.Time       `json:"timestamp"`
	SourceCount int             `json:"source_count"`
	Dispersion  decimal.Decimal `json:"dispersion"`
}

// weightedSample pairs a sample with its aggregation weight.
type weightedSample struct {
	sample samples.PriceSample
	weight float64 // 1.0 = standard, 0.5 = half weight, etc.
}
