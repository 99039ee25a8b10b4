package consensus

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tc.com/price-attestor/pkg/logging"
	"tc.com/price-attestor/pkg/samples"
)

var testBase = time.Date(2025, 6, 2, 15, 30, 0, 0, time.UTC)

func makeSample(source string, price float64, age time.Duration) samples.PriceSample {
	return samples.PriceSample{
		Symbol:     "TSLA",
		Source:     source,
		Price:      decimal.NewFromFloat(price),
		ObservedAt: testBase.Add(-age),
	}
}

func defaultConfig() Config {
	return Config{
		Quorum:           3,
		OutlierThreshold: 0.02,
	}
}

func TestAggregateClusterScenario(t *testing.T) {
	// Four sources, one of them wildly off. The outlier must not survive
	// and the consensus is the average of the clustered three.
	snapshot := []samples.PriceSample{
		makeSample("alpha", 100.00, time.Second),
		makeSample("bravo", 100.05, 2*time.Second),
		makeSample("charlie", 99.98, 3*time.Second),
		makeSample("delta", 150.00, time.Second),
	}

	agg, err := NewAggregator(PolicyWeightedAverage, defaultConfig(), logging.NewNoopLogger())
	require.NoError(t, err)

	got, err := agg.Aggregate(snapshot)
	require.NoError(t, err)

	assert.Equal(t, "TSLA", got.Symbol)
	assert.True(t, got.Price.Equal(decimal.NewFromFloat(100.01)),
		"expected consensus 100.01, got %s", got.Price)
	assert.Equal(t, 3, got.SourceCount, "outlier must be excluded")
	assert.True(t, got.Dispersion.Equal(decimal.NewFromFloat(0.07)),
		"expected dispersion 0.07, got %s", got.Dispersion)
}

func TestAggregateDeterministic(t *testing.T) {
	ordered := []samples.PriceSample{
		makeSample("alpha", 100.00, time.Second),
		makeSample("bravo", 100.05, 2*time.Second),
		makeSample("charlie", 99.98, 3*time.Second),
		makeSample("delta", 150.00, time.Second),
	}
	shuffled := []samples.PriceSample{ordered[3], ordered[1], ordered[0], ordered[2]}

	for _, policy := range []string{PolicyMedian, PolicyWeightedAverage} {
		t.Run(policy, func(t *testing.T) {
			agg, err := NewAggregator(policy, defaultConfig(), logging.NewNoopLogger())
			require.NoError(t, err)

			first, err := agg.Aggregate(ordered)
			require.NoError(t, err)

			for i := 0; i < 10; i++ {
				next, err := agg.Aggregate(shuffled)
				require.NoError(t, err)
				assert.True(t, first.Price.Equal(next.Price))
				assert.True(t, first.Dispersion.Equal(next.Dispersion))
				assert.Equal(t, first.SourceCount, next.SourceCount)
				assert.Equal(t, first.Timestamp, next.Timestamp)
			}
		})
	}
}

func TestAggregateBelowQuorum(t *testing.T) {
	snapshot := []samples.PriceSample{
		makeSample("alpha", 100.00, time.Second),
		makeSample("bravo", 100.05, time.Second),
	}

	agg, err := NewAggregator(PolicyWeightedAverage, defaultConfig(), logging.NewNoopLogger())
	require.NoError(t, err)

	_, err = agg.Aggregate(snapshot)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestAggregateEmptySnapshot(t *testing.T) {
	agg, err := NewAggregator(PolicyMedian, defaultConfig(), logging.NewNoopLogger())
	require.NoError(t, err)

	_, err = agg.Aggregate(nil)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestAggregateQuorumCountsDistinctSources(t *testing.T) {
	// Three samples but only two distinct sources must not meet quorum 3.
	snapshot := []samples.PriceSample{
		makeSample("alpha", 100.00, time.Second),
		makeSample("alpha", 100.02, 2*time.Second),
		makeSample("bravo", 100.05, time.Second),
	}

	agg, err := NewAggregator(PolicyWeightedAverage, defaultConfig(), logging.NewNoopLogger())
	require.NoError(t, err)

	_, err = agg.Aggregate(snapshot)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestAggregateRejectsOutlier(t *testing.T) {
	// N-1 samples clustered within 0.1%, one 10% away.
	snapshot := []samples.PriceSample{
		makeSample("alpha", 100.00, time.Second),
		makeSample("bravo", 100.05, time.Second),
		makeSample("charlie", 100.08, time.Second),
		makeSample("delta", 110.00, time.Second),
	}

	agg, err := NewAggregator(PolicyWeightedAverage, defaultConfig(), logging.NewNoopLogger())
	require.NoError(t, err)

	got, err := agg.Aggregate(snapshot)
	require.NoError(t, err)

	// (100.00 + 100.05 + 100.08) / 3
	expected := decimal.NewFromFloat(100.00).
		Add(decimal.NewFromFloat(100.05)).
		Add(decimal.NewFromFloat(100.08)).
		Div(decimal.NewFromInt(3))
	assert.True(t, got.Price.Equal(expected), "expected %s, got %s", expected, got.Price)
	assert.Equal(t, 3, got.SourceCount)
}

func TestAggregateMedianPolicy(t *testing.T) {
	snapshot := []samples.PriceSample{
		makeSample("alpha", 100.00, time.Second),
		makeSample("bravo", 100.05, time.Second),
		makeSample("charlie", 99.98, time.Second),
	}

	agg, err := NewAggregator(PolicyMedian, defaultConfig(), logging.NewNoopLogger())
	require.NoError(t, err)

	got, err := agg.Aggregate(snapshot)
	require.NoError(t, err)

	assert.True(t, got.Price.Equal(decimal.NewFromFloat(100.00)),
		"median of three survivors should be the middle one, got %s", got.Price)
}

func TestAggregateAllTied(t *testing.T) {
	// Exactly quorum-many samples all tied: zero self-deviation, nothing
	// can be rejected, consensus equals the shared price.
	snapshot := []samples.PriceSample{
		makeSample("alpha", 42.50, time.Second),
		makeSample("bravo", 42.50, time.Second),
		makeSample("charlie", 42.50, time.Second),
	}

	for _, policy := range []string{PolicyMedian, PolicyWeightedAverage} {
		t.Run(policy, func(t *testing.T) {
			agg, err := NewAggregator(policy, defaultConfig(), logging.NewNoopLogger())
			require.NoError(t, err)

			got, err := agg.Aggregate(snapshot)
			require.NoError(t, err)
			assert.True(t, got.Price.Equal(decimal.NewFromFloat(42.50)))
			assert.True(t, got.Dispersion.IsZero())
			assert.Equal(t, 3, got.SourceCount)
		})
	}
}

func TestAggregateFallbackWhenAllRejected(t *testing.T) {
	// Two equally-weighted extremes: the median sits between them and both
	// deviate beyond the threshold. The full set must be used instead.
	cfg := Config{Quorum: 2, OutlierThreshold: 0.02}
	snapshot := []samples.PriceSample{
		makeSample("alpha", 100.00, time.Second),
		makeSample("bravo", 200.00, time.Second),
	}

	agg, err := NewAggregator(PolicyWeightedAverage, cfg, logging.NewNoopLogger())
	require.NoError(t, err)

	got, err := agg.Aggregate(snapshot)
	require.NoError(t, err)
	assert.True(t, got.Price.Equal(decimal.NewFromFloat(150.00)),
		"expected fallback average 150.00, got %s", got.Price)
	assert.Equal(t, 2, got.SourceCount)
}

func TestAggregateSourceWeights(t *testing.T) {
	cfg := Config{
		Quorum:           2,
		OutlierThreshold: 0.10,
		SourceWeights:    map[string]float64{"alpha": 3.0, "bravo": 1.0},
	}
	snapshot := []samples.PriceSample{
		makeSample("alpha", 100.00, time.Second),
		makeSample("bravo", 104.00, time.Second),
	}

	agg, err := NewAggregator(PolicyWeightedAverage, cfg, logging.NewNoopLogger())
	require.NoError(t, err)

	got, err := agg.Aggregate(snapshot)
	require.NoError(t, err)

	// (100*3 + 104*1) / 4 = 101
	assert.True(t, got.Price.Equal(decimal.NewFromFloat(101.00)),
		"expected weighted average 101.00, got %s", got.Price)
}

func TestAggregateTimestampIsLatestSurvivor(t *testing.T) {
	snapshot := []samples.PriceSample{
		makeSample("alpha", 100.00, 5*time.Second),
		makeSample("bravo", 100.02, 1*time.Second),
		makeSample("charlie", 99.99, 9*time.Second),
	}

	agg, err := NewAggregator(PolicyWeightedAverage, defaultConfig(), logging.NewNoopLogger())
	require.NoError(t, err)

	got, err := agg.Aggregate(snapshot)
	require.NoError(t, err)
	assert.Equal(t, testBase.Add(-time.Second), got.Timestamp)
}

func TestNewAggregatorUnknownPolicy(t *testing.T) {
	_, err := NewAggregator("tvwap", defaultConfig(), logging.NewNoopLogger())
	assert.ErrorIs(t, err, ErrUnknownPolicy)
}
