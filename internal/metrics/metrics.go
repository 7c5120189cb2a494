// CineChance Recommender - Personalized Movie and TV Recommendations
// Copyright 2026 CineChance contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinechance/recommender

// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Database Metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation", "table"},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	// Recommendation pipeline metrics
	RecommendationRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommendation_runs_total",
			Help: "Recommendation runs by outcome",
		},
		[]string{"outcome"}, // served, empty, cold_start, failed
	)

	RecommendationRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recommendation_run_duration_seconds",
			Help:    "End-to-end duration of a recommendation run",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	RecommendationCandidates = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recommendation_candidates",
			Help:    "Candidate pool size per pipeline stage",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250},
		},
		[]string{"stage"}, // generated, filtered, served
	)

	GeneratorDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recommendation_generator_duration_seconds",
			Help:    "Candidate generator duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"algorithm"},
	)

	GeneratorFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommendation_generator_failures_total",
			Help: "Candidate generator failures",
		},
		[]string{"algorithm"},
	)

	RecommendationActions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommendation_actions_total",
			Help: "User responses recorded against recommendation log entries",
		},
		[]string{"action"},
	)

	ProfileRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taste_profile_refreshes_total",
			Help: "Taste profile rebuilds by result",
		},
		[]string{"result"}, // success, failure
	)

	// Metadata provider metrics
	MetadataCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "metadata_cache_hits_total",
			Help: "Metadata lookups served from cache",
		},
	)

	MetadataCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "metadata_cache_misses_total",
			Help: "Metadata lookups that required a provider call",
		},
	)

	MetadataRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "metadata_requests_total",
			Help: "Outbound metadata provider requests by status",
		},
		[]string{"status"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)
)

// RecordDBQuery records a database query metric
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, table).Inc()
	}
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest increments or decrements the active request gauge
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordRecommendationRun records the outcome and pool sizes of one run.
func RecordRecommendationRun(outcome string, duration time.Duration, generated, filtered, served int) {
	RecommendationRuns.WithLabelValues(outcome).Inc()
	RecommendationRunDuration.Observe(duration.Seconds())
	RecommendationCandidates.WithLabelValues("generated").Observe(float64(generated))
	RecommendationCandidates.WithLabelValues("filtered").Observe(float64(filtered))
	RecommendationCandidates.WithLabelValues("served").Observe(float64(served))
}

// RecordGenerator records a single candidate generator invocation.
func RecordGenerator(algorithm string, duration time.Duration, err error) {
	GeneratorDuration.WithLabelValues(algorithm).Observe(duration.Seconds())
	if err != nil {
		GeneratorFailures.WithLabelValues(algorithm).Inc()
	}
}

// RecordAction records a user response to a recommendation.
func RecordAction(action string) {
	RecommendationActions.WithLabelValues(action).Inc()
}

// RecordProfileRefresh records a taste profile rebuild.
func RecordProfileRefresh(err error) {
	if err != nil {
		ProfileRefreshes.WithLabelValues("failure").Inc()
		return
	}
	ProfileRefreshes.WithLabelValues("success").Inc()
}

// RecordMetadataCache records a metadata cache lookup.
func RecordMetadataCache(hit bool) {
	if hit {
		MetadataCacheHits.Inc()
	} else {
		MetadataCacheMisses.Inc()
	}
}
