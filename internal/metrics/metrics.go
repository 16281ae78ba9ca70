// Basketrules - Market Basket Association Rule Recommender
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basketrules

// Package metrics declares the Prometheus collectors for the mining pipeline
// and the recommendation engine. Collectors register with the default
// registry through promauto; callers use the Record* helpers.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Data Loading Metrics
	SourceLoadDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "basketrules_source_load_duration_seconds",
			Help:    "Duration of transaction source loads in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"source"},
	)

	SourceRecordsLoaded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "basketrules_source_records_loaded_total",
			Help: "Total number of transaction records loaded",
		},
		[]string{"source"},
	)

	SourceLoadErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "basketrules_source_load_errors_total",
			Help: "Total number of failed transaction source loads",
		},
		[]string{"source"},
	)

	// Cleaning Metrics
	RecordsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "basketrules_records_dropped_total",
			Help: "Total number of records removed during cleaning",
		},
		[]string{"reason"}, // non_product, missing_field, cancelled, non_positive_quantity, non_positive_price
	)

	ValuesCapped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "basketrules_values_capped_total",
			Help: "Total number of outlier values clamped to their bounds",
		},
		[]string{"column"},
	)

	// Pipeline Metrics
	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "basketrules_stage_duration_seconds",
			Help:    "Duration of pipeline stages in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stage"}, // clean, matrix, itemsets, rules, index
	)

	MatrixInvoices = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "basketrules_matrix_invoices",
			Help: "Number of invoices (rows) in the latest basket matrix",
		},
		[]string{"country"},
	)

	MatrixProducts = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "basketrules_matrix_products",
			Help: "Number of products (columns) in the latest basket matrix",
		},
		[]string{"country"},
	)

	FrequentItemsets = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "basketrules_frequent_itemsets",
			Help: "Number of frequent itemsets in the latest model",
		},
		[]string{"country"},
	)

	RulesGenerated = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "basketrules_rules",
			Help: "Number of association rules in the latest model",
		},
		[]string{"country"},
	)

	// Training Metrics
	TrainingRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "basketrules_training_runs_total",
			Help: "Total number of training runs",
		},
		[]string{"result"}, // success, failure
	)

	TrainingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "basketrules_training_duration_seconds",
			Help:    "Duration of complete training runs in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
	)

	ModelVersion = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "basketrules_model_version",
			Help: "Version of the currently published models",
		},
	)

	// Recommendation Metrics
	RecommendRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "basketrules_recommend_requests_total",
			Help: "Total number of recommendation requests",
		},
		[]string{"country", "result"}, // result: hit, empty, error
	)

	RecommendCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "basketrules_recommend_cache_hits_total",
			Help: "Total number of recommendation cache hits",
		},
	)

	RecommendCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "basketrules_recommend_cache_misses_total",
			Help: "Total number of recommendation cache misses",
		},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "basketrules_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "basketrules_circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: success, failure, rejected
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "basketrules_circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)
)

// RecordSourceLoad records one load from a transaction source.
func RecordSourceLoad(source string, duration time.Duration, records int, err error) {
	SourceLoadDuration.WithLabelValues(source).Observe(duration.Seconds())
	if err != nil {
		SourceLoadErrors.WithLabelValues(source).Inc()
		return
	}
	SourceRecordsLoaded.WithLabelValues(source).Add(float64(records))
}

// RecordCleaning records drop counts per reason and capped values per column.
func RecordCleaning(dropped map[string]int, capped map[string]int) {
	for reason, n := range dropped {
		if n > 0 {
			RecordsDropped.WithLabelValues(reason).Add(float64(n))
		}
	}
	for column, n := range capped {
		if n > 0 {
			ValuesCapped.WithLabelValues(column).Add(float64(n))
		}
	}
}

// RecordStage observes the duration of one pipeline stage.
func RecordStage(stage string, duration time.Duration) {
	StageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// RecordModel publishes the size of a freshly built model for country.
func RecordModel(country string, invoices, products, itemsets, rules int) {
	MatrixInvoices.WithLabelValues(country).Set(float64(invoices))
	MatrixProducts.WithLabelValues(country).Set(float64(products))
	FrequentItemsets.WithLabelValues(country).Set(float64(itemsets))
	RulesGenerated.WithLabelValues(country).Set(float64(rules))
}

// RecordTraining records the outcome of one training run.
func RecordTraining(duration time.Duration, version int, err error) {
	TrainingDuration.Observe(duration.Seconds())
	if err != nil {
		TrainingRuns.WithLabelValues("failure").Inc()
		return
	}
	TrainingRuns.WithLabelValues("success").Inc()
	ModelVersion.Set(float64(version))
}

// RecordRecommendation records one recommendation request. result is one of
// "hit", "empty" or "error".
func RecordRecommendation(country, result string, cacheHit bool) {
	RecommendRequests.WithLabelValues(country, result).Inc()
	if cacheHit {
		RecommendCacheHits.Inc()
	} else {
		RecommendCacheMisses.Inc()
	}
}

// RecordCircuitBreakerTransition records a breaker state change.
func RecordCircuitBreakerTransition(name, from, to string, stateValue float64) {
	CircuitBreakerState.WithLabelValues(name).Set(stateValue)
	CircuitBreakerTransitions.WithLabelValues(name, from, to).Inc()
}

// RecordCircuitBreakerRequest records a call through a breaker.
func RecordCircuitBreakerRequest(name, result string) {
	CircuitBreakerRequests.WithLabelValues(name, result).Inc()
}
