// Package metrics holds the Prometheus collectors shared by the estimation and
// training paths. Collectors register with the default registry on import.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "rates"

var (
	// EstimatesTotal counts estimate calls by strategy (tiered, linear,
	// ensemble, cached, quote) and outcome (priced, unavailable, error).
	EstimatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "estimator",
		Name:      "estimates_total",
		Help:      "Total estimate calls by strategy and outcome",
	}, []string{"strategy", "outcome"})

	MatcherTierHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "matcher",
		Name:      "tier_hits_total",
		Help:      "Categorical matches by resolving tier (none when unresolved)",
	}, []string{"method"})

	TrainingJobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "training",
		Name:      "job_duration_seconds",
		Help:      "Training job wall time by dataset kind",
		Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
	}, []string{"kind"})

	TrainingJobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "training",
		Name:      "jobs_total",
		Help:      "Finished training jobs by dataset kind and outcome",
	}, []string{"kind", "outcome"})

	GeocoderCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "geocoder",
		Name:      "calls_total",
		Help:      "External geocoding calls by outcome",
	}, []string{"outcome"})

	CacheLoads = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "loads_total",
		Help:      "Model cache loads by cache name and outcome",
	}, []string{"cache", "outcome"})
)

// Outcome labels.
const (
	OutcomeOK          = "ok"
	OutcomeError       = "error"
	OutcomePriced      = "priced"
	OutcomeUnavailable = "unavailable"
)
