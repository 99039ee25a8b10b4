package consensus

import (
	"tc.com/price-attestor/pkg/logging"
	"tc.com/price-attestor/pkg/samples"
)

// WeightedAverageAggregator resolves the consensus price as the weighted
// average of the samples surviving outlier rejection. The median stays the
// robust center for rejection, so one biased-but-surviving source moves the
// result less than it would a bare mean.
type WeightedAverageAggregator struct {
	cfg    Config
	logger *logging.Logger
}

// Ensure WeightedAverageAggregator implements Aggregator interface.
var _ Aggregator = (*WeightedAverageAggregator)(nil)

// NewWeightedAverageAggregator creates a new weighted average aggregator.
func NewWeightedAverageAggregator(cfg Config, logger *logging.Logger) *WeightedAverageAggregator {
	return &WeightedAverageAggregator{
		cfg:    cfg,
		logger: logger,
	}
}

// Aggregate computes the consensus price for the snapshot's symbol.
func (a *WeightedAverageAggregator) Aggregate(snapshot []samples.PriceSample) (ConsensusPrice, error) {
	return run(snapshot, a.cfg, PolicyWeightedAverage, weightedAverage, a.logger)
}
