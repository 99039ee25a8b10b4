package consensus

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"tc.com/price-attestor/pkg/logging"
	"tc.com/price-attestor/pkg/metrics"
	"tc.com/price-attestor/pkg/samples"
)

// run executes the shared aggregation pipeline: quorum check, median as the
// robust center, relative-deviation outlier rejection, then the
// policy-specific finalize step over the survivors.
func run(snapshot []samples.PriceSample, cfg Config, policy string,
	finalize func([]weightedSample) decimal.Decimal, logger *logging.Logger) (ConsensusPrice, error) {
	start := time.Now()
	defer func() {
		metrics.RecordAggregation(policy, time.Since(start))
	}()

	distinct := distinctSources(snapshot)
	if distinct < cfg.Quorum || distinct == 0 {
		return ConsensusPrice{}, fmt.Errorf("%w: have %d, need %d", ErrInsufficientData, distinct, cfg.Quorum)
	}

	symbol := snapshot[0].Symbol

	sorted := weigh(snapshot, cfg.SourceWeights)
	sortByPrice(sorted)

	center := median(sorted)
	threshold := decimal.NewFromFloat(cfg.OutlierThreshold)

	survivors := make([]weightedSample, 0, len(sorted))
	for _, ws := range sorted {
		deviation := ws.sample.Price.Sub(center).Abs().Div(center)
		if deviation.GreaterThan(threshold) {
			logger.Debug("Rejecting outlier",
				"symbol", symbol,
				"source", ws.sample.Source,
				"price", ws.sample.Price.String(),
				"median", center.String(),
				"deviation_pct", deviation.Mul(decimal.NewFromInt(100)).String())
			metrics.RecordOutlierRejection(symbol)
			continue
		}
		survivors = append(survivors, ws)
	}

	// A fully self-inconsistent snapshot rejects everything; fall back to
	// the whole set rather than fail, the median is still the robust center.
	if len(survivors) == 0 {
		logger.Warn("All samples rejected as outliers, falling back to full set",
			"symbol", symbol,
			"sample_count", len(sorted))
		survivors = sorted
	}

	price := finalize(survivors)
	dispersion := survivors[len(survivors)-1].sample.Price.Sub(survivors[0].sample.Price)
	metrics.RecordDispersion(symbol, dispersion.InexactFloat64())

	return ConsensusPrice{
		Symbol:      symbol,
		Price:       price,
		Timestamp:   latestObservation(survivors),
		SourceCount: len(survivors),
		Dispersion:  dispersion,
	}, nil
}

// distinctSources counts unique source identifiers in the snapshot.
func distinctSources(snapshot []samples.PriceSample) int {
	seen := make(map[string]struct{}, len(snapshot))
	for _, s := range snapshot {
		seen[s.Source] = struct{}{}
	}
	return len(seen)
}

// weigh attaches configured weights to samples, defaulting to 1.0.
func weigh(snapshot []samples.PriceSample, weights map[string]float64) []weightedSample {
	out := make([]weightedSample, 0, len(snapshot))
	for _, s := range snapshot {
		weight := 1.0
		if w, ok := weights[s.Source]; ok {
			weight = w
		}
		out = append(out, weightedSample{sample: s, weight: weight})
	}
	return out
}

// sortByPrice orders by price with source as tiebreaker so equal-priced
// snapshots aggregate identically regardless of input order.
func sortByPrice(ws []weightedSample) {
	sort.Slice(ws, func(i, j int) bool {
		if ws[i].sample.Price.Equal(ws[j].sample.Price) {
			return ws[i].sample.Source < ws[j].sample.Source
		}
		return ws[i].sample.Price.LessThan(ws[j].sample.Price)
	})
}

// median computes the plain (unweighted) median of a price-sorted slice.
func median(sorted []weightedSample) decimal.Decimal {
	n := len(sorted)
	if n == 0 {
		return decimal.Zero
	}
	if n%2 == 1 {
		return sorted[n/2].sample.Price
	}
	return sorted[n/2-1].sample.Price.Add(sorted[n/2].sample.Price).Div(decimal.NewFromInt(2))
}

// weightedMedian finds the price where cumulative weight reaches 50% of the
// total weight of a price-sorted slice.
func weightedMedian(sorted []weightedSample) decimal.Decimal {
	n := len(sorted)
	if n == 0 {
		return decimal.Zero
	}
	if n == 1 {
		return sorted[0].sample.Price
	}

	totalWeight := 0.0
	for _, ws := range sorted {
		totalWeight += ws.weight
	}

	targetWeight := totalWeight / 2.0
	cumulativeWeight := 0.0

	for i, ws := range sorted {
		cumulativeWeight += ws.weight
		if cumulativeWeight >= targetWeight {
			// Exactly on the boundary: average with the next price.
			if cumulativeWeight == targetWeight && i+1 < n {
				return ws.sample.Price.Add(sorted[i+1].sample.Price).Div(decimal.NewFromInt(2))
			}
			return ws.sample.Price
		}
	}

	return sorted[n/2].sample.Price
}

// weightedAverage computes sum(price*weight)/sum(weight).
func weightedAverage(survivors []weightedSample) decimal.Decimal {
	if len(survivors) == 0 {
		return decimal.Zero
	}

	sum := decimal.Zero
	totalWeight := decimal.Zero
	for _, ws := range survivors {
		w := decimal.NewFromFloat(ws.weight)
		sum = sum.Add(ws.sample.Price.Mul(w))
		totalWeight = totalWeight.Add(w)
	}

	if totalWeight.IsZero() {
		return weightedMedian(survivors)
	}
	return sum.Div(totalWeight)
}

// latestObservation returns the newest ObservedAt among the survivors,
// keeping the consensus timestamp a pure function of its inputs.
func latestObservation(survivors []weightedSample) time.Time {
	var latest time.Time
	for _, ws := range survivors {
		if ws.sample.ObservedAt.After(latest) {
			latest = ws.sample.ObservedAt
		}
	}
	return latest
}
