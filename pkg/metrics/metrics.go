// Package metrics provides Prometheus metrics for the attestation pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// SamplesReceivedTotal is a counter of the total number of samples ingested.
	SamplesReceivedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "samples_received_total",
			Help: "Total number of price samples received from the ingestor feeds",
		},
		[]string{"source", "symbol"},
	)

	// SampleStalenessSeconds is a gauge of time since the last sample per source.
	SampleStalenessSeconds = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sample_staleness_seconds",
			Help: "Time since last sample for a symbol from a source",
		},
		[]string{"source", "symbol"},
	)

	// AggregationDuration is a histogram of consensus aggregation duration.
	AggregationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "aggregation_duration_seconds",
			Help:    "Duration of consensus aggregation operations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"policy"},
	)

	// OutlierRejectionsTotal is a counter of rejected outlier samples.
	OutlierRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outlier_rejections_total",
			Help: "Total number of outlier samples rejected during aggregation",
		},
		[]string{"symbol"},
	)

	// ConsensusDispersion is a gauge of the surviving sample spread per symbol.
	ConsensusDispersion = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "consensus_dispersion",
			Help: "Spread (max-min) of the samples surviving outlier rejection",
		},
		[]string{"symbol"},
	)

	// AttestationsTotal is a counter of attestations by mode.
	AttestationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attestations_total",
			Help: "Total number of attestations produced, by proof mode",
		},
		[]string{"mode"},
	)

	// SigningErrorsTotal is a counter of signing failures.
	SigningErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "signing_errors_total",
			Help: "Total number of attestation signing failures",
		},
	)

	// ProofGenerationDuration is a histogram of proof generation latency.
	ProofGenerationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "proof_generation_duration_seconds",
			Help:    "Duration of zero-knowledge proof generation calls",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
	)

	// SubmissionsTotal is a counter of ledger submissions.
	SubmissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "submissions_total",
			Help: "Total number of publication submissions",
		},
		[]string{"entrypoint", "status"},
	)

	// SubmissionAttempts is a histogram of attempts used per submission.
	SubmissionAttempts = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "submission_attempts",
			Help:    "Number of transport attempts used per submission",
			Buckets: []float64{1, 2, 3, 4, 5, 8, 10},
		},
	)

	// ConfirmationDuration is a histogram of submit-to-confirm latency.
	ConfirmationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "confirmation_duration_seconds",
			Help:    "Time from ledger submission to confirmed transaction",
			Buckets: []float64{1, 2, 5, 10, 20, 30, 60, 120},
		},
	)

	// PublicationsTotal is a counter of publication records reaching a state.
	PublicationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "publications_total",
			Help: "Total number of publication records by final state",
		},
		[]string{"symbol", "status"},
	)

	// GatewayRequestsTotal is a counter of ledger gateway RPC requests.
	GatewayRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_requests_total",
			Help: "Total number of ledger gateway RPC requests",
		},
		[]string{"method", "status"},
	)

	// GatewayFailoversTotal is a counter of gateway endpoint failovers.
	GatewayFailoversTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gateway_failovers_total",
			Help: "Total number of ledger gateway endpoint failovers",
		},
	)

	// HTTPRequestsTotal is a counter of total status API requests.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"endpoint", "status"},
	)

	// HTTPRequestDuration is a histogram of status API request latencies.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"endpoint"},
	)

	// FeedConnected is a gauge of feed connection status.
	FeedConnected = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "feed_connected",
			Help: "Connection status of sample feeds (1=connected, 0=down)",
		},
		[]string{"feed"},
	)
)

// Init initializes Prometheus metrics registry.
func Init() {
	// Register all metrics
	prometheus.MustRegister(
		SamplesReceivedTotal,
		SampleStalenessSeconds,
		AggregationDuration,
		OutlierRejectionsTotal,
		ConsensusDispersion,
		AttestationsTotal,
		SigningErrorsTotal,
		ProofGenerationDuration,
		SubmissionsTotal,
		SubmissionAttempts,
		ConfirmationDuration,
		PublicationsTotal,
		GatewayRequestsTotal,
		GatewayFailoversTotal,
		HTTPRequestsTotal,
		HTTPRequestDuration,
		FeedConnected,
	)
}

// ServeHTTP serves Prometheus metrics on the specified address.
func ServeHTTP(addr string) error {
	http.Handle("/metrics", promhttp.Handler())
	server := &http.Server{
		Addr:         addr,
		Handler:      http.DefaultServeMux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return server.ListenAndServe()
}

// RecordSample records a sample received from a feed.
func RecordSample(source, symbol string) {
	SamplesReceivedTotal.WithLabelValues(source, symbol).Inc()
}

// RecordSampleStaleness records the age of the freshest sample for a source.
func RecordSampleStaleness(source, symbol string, age time.Duration) {
	SampleStalenessSeconds.WithLabelValues(source, symbol).Set(age.Seconds())
}

// RecordAggregation records a consensus aggregation operation.
func RecordAggregation(policy string, duration time.Duration) {
	AggregationDuration.WithLabelValues(policy).Observe(duration.Seconds())
}

// RecordOutlierRejection records an outlier rejection.
func RecordOutlierRejection(symbol string) {
	OutlierRejectionsTotal.WithLabelValues(symbol).Inc()
}

// RecordDispersion records the surviving spread for a symbol.
func RecordDispersion(symbol string, dispersion float64) {
	ConsensusDispersion.WithLabelValues(symbol).Set(dispersion)
}

// RecordAttestation records a produced attestation.
func RecordAttestation(mode string) {
	AttestationsTotal.WithLabelValues(mode).Inc()
}

// RecordSigningError records an attestation signing failure.
func RecordSigningError() {
	SigningErrorsTotal.Inc()
}

// RecordProofGeneration records a proof generation call.
func RecordProofGeneration(duration time.Duration) {
	ProofGenerationDuration.Observe(duration.Seconds())
}

// RecordSubmission records a publication submission outcome.
func RecordSubmission(entrypoint, status string) {
	SubmissionsTotal.WithLabelValues(entrypoint, status).Inc()
}

// RecordSubmissionAttempts records attempts used for one submission.
func RecordSubmissionAttempts(attempts int) {
	SubmissionAttempts.Observe(float64(attempts))
}

// RecordConfirmation records submit-to-confirm latency.
func RecordConfirmation(duration time.Duration) {
	ConfirmationDuration.Observe(duration.Seconds())
}

// RecordPublication records a publication record reaching a state.
func RecordPublication(symbol, status string) {
	PublicationsTotal.WithLabelValues(symbol, status).Inc()
}

// RecordGatewayRequest records a ledger gateway RPC request.
func RecordGatewayRequest(method, status string) {
	GatewayRequestsTotal.WithLabelValues(method, status).Inc()
}

// RecordGatewayFailover records a gateway failover event.
func RecordGatewayFailover() {
	GatewayFailoversTotal.Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, status string, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(endpoint, status).Inc()
	HTTPRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordFeedConnected records feed connection status.
func RecordFeedConnected(feed string, connected bool) {
	val := 0.0
	if connected {
		val = 1.0
	}
	FeedConnected.WithLabelValues(feed).Set(val)
}
