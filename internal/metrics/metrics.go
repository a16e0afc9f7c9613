// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "tripsplit"

// Outcome labels for balance computations
const (
	OutcomeOK              = "ok"
	OutcomeWarning         = "integrity_warning"
	OutcomeInvalidRef      = "invalid_reference"
	OutcomeUpstreamFailure = "upstream_error"
)

var (
	computations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "settlement",
		Name:      "computations_total",
		Help:      "Balance and settlement computations by outcome.",
	}, []string{"outcome"})

	computeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "settlement",
		Name:      "compute_duration_seconds",
		Help:      "Time spent running the balance engine for one trip snapshot.",
		Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1},
	})

	transfers = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "settlement",
		Name:      "transfers",
		Help:      "Number of suggested transfers per computation.",
		Buckets:   prometheus.LinearBuckets(0, 2, 10),
	})

	validationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "expense",
		Name:      "validation_failures_total",
		Help:      "Rejected expense fields.",
	}, []string{"field"})

	changeEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "changes",
		Name:      "events_total",
		Help:      "Change notifications received from Postgres by entity.",
	}, []string{"entity"})

	streamSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "changes",
		Name:      "subscribers",
		Help:      "Open balance streams.",
	})
)

// ObserveComputation records one engine run
func ObserveComputation(outcome string, took time.Duration, transferCount int) {
	computations.WithLabelValues(outcome).Inc()
	computeDuration.Observe(took.Seconds())
	if outcome == OutcomeOK || outcome == OutcomeWarning {
		transfers.Observe(float64(transferCount))
	}
}

// CountComputationFailure records a run that never reached the engine or failed inside it
func CountComputationFailure(outcome string) {
	computations.WithLabelValues(outcome).Inc()
}

// CountValidationFailures increments the failure counter once per rejected field
func CountValidationFailures(fields map[string]string) {
	for field := range fields {
		validationFailures.WithLabelValues(field).Inc()
	}
}

// CountChangeEvent records a change notification
func CountChangeEvent(entity string) {
	changeEvents.WithLabelValues(entity).Inc()
}

// StreamOpened counts a new live subscriber
func StreamOpened() { streamSubscribers.Inc() }

// StreamClosed is called once per StreamOpened when the subscriber leaves
func StreamClosed() { streamSubscribers.Dec() }
