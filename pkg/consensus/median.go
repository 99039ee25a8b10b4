package consensus

import (
	"tc.com/price-attestor/pkg/logging"
	"tc.com/price-attestor/pkg/samples"
)

// MedianAggregator resolves the consensus price as the weighted median of
// the samples surviving outlier rejection.
type MedianAggregator struct {
	cfg    Config
	logger *logging.Logger
}

// Ensure MedianAggregator implements Aggregator interface.
var _ Aggregator = (*MedianAggregator)(nil)

// NewMedianAggregator creates a new median aggregator.
func NewMedianAggregator(cfg Config, logger *logging.Logger) *MedianAggregator {
	return &MedianAggregator{
		cfg:    cfg,
		logger: logger,
	}
}

// Aggregate computes the consensus price for the snapshot's symbol.
func (a *MedianAggregator) Aggregate(snapshot []samples.PriceSample) (ConsensusPrice, error) {
	return run(snapshot, a.cfg, PolicyMedian, weightedMedian, a.logger)
}
