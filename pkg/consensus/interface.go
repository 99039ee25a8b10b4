package consensus

import (
	"fmt"
	"strings"

	"tc.com/price-attestor/pkg/logging"
	"tc.com/price-attestor/pkg/samples"
)

const (
	// PolicyMedian takes the weighted median of the surviving samples.
	PolicyMedian = "median"
	// PolicyWeightedAverage takes the weighted average of the surviving samples.
	PolicyWeightedAverage = "weighted_average"
)

// Aggregator computes one consensus price from a sample snapshot.
type Aggregator interface {
	// Aggregate derives the consensus price for the snapshot's symbol.
	// Returns ErrInsufficientData when the snapshot has fewer distinct
	// sources than the configured quorum.
	Aggregate(snapshot []samples.PriceSample) (ConsensusPrice, error)
}

// Config holds aggregation parameters. Thresholds are configuration, not
// invariants; the defaults live in pkg/config.
type Config struct {
	Quorum           int                // minimum distinct sources
	OutlierThreshold float64            // relative deviation from median
	SourceWeights    map[string]float64 // optional per-source reliability weights
}

// NewAggregator creates an aggregator for the given policy.
func NewAggregator(policy string, cfg Config, logger *logging.Logger) (Aggregator, error) {
	switch strings.ToLower(policy) {
	case PolicyMedian:
		return NewMedianAggregator(cfg, logger), nil
	case PolicyWeightedAverage:
		return NewWeightedAverageAggregator(cfg, logger), nil
	default:
		return nil, fmt.Errorf("%w: %s (supported: median, weighted_average)", ErrUnknownPolicy, policy)
	}
}
