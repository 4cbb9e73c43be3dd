package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Search pipeline Prometheus metrics.
var (
	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "claims_search",
			Name:      "search_requests_total",
			Help:      "Total number of orchestrated search requests",
		},
		[]string{"status"}, // "ok" / "error"
	)

	SearchStageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "claims_search",
			Name:      "search_stage_duration_seconds",
			Help:      "Duration of each search pipeline stage",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"stage"},
	)

	SearchDegradationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "claims_search",
			Name:      "search_degradations_total",
			Help:      "Augmentation stages degraded to an absent section",
		},
		[]string{"stage"},
	)

	SuggestionRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "claims_search",
			Name:      "suggestion_requests_total",
			Help:      "Total number of suggestion requests",
		},
		[]string{"status"},
	)

	ModelEvaluationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "claims_search",
			Name:      "model_evaluations_total",
			Help:      "Total number of scoring model evaluations",
		},
		[]string{"status"},
	)
)

var searchMetricsRegistered bool

// RegisterSearchMetrics registers the pipeline metrics. Must be called once
// from main.
func RegisterSearchMetrics() {
	if searchMetricsRegistered {
		return
	}
	prometheus.MustRegister(SearchRequestsTotal)
	prometheus.MustRegister(SearchStageDuration)
	prometheus.MustRegister(SearchDegradationsTotal)
	prometheus.MustRegister(SuggestionRequestsTotal)
	prometheus.MustRegister(ModelEvaluationsTotal)
	searchMetricsRegistered = true
}

// ObserveSearch records the per-stage timings and degradations of one
// completed request.
func ObserveSearch(stages map[string]time.Duration, degraded []string) {
	for stage, d := range stages {
		SearchStageDuration.WithLabelValues(stage).Observe(d.Seconds())
	}
	for _, stage := range degraded {
		SearchDegradationsTotal.WithLabelValues(stage).Inc()
	}
	SearchRequestsTotal.WithLabelValues("ok").Inc()
}
