// Shiori - Local-first Anime and Manga Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shiori

// Package metrics holds the Prometheus instrumentation for Shiori.
//
// Metrics are registered with the default registry through promauto and
// exposed by the API at /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// List store
	StoreCommits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shiori_store_commits_total",
			Help: "Total number of list store mutations by outcome",
		},
		[]string{"outcome"}, // "persisted", "quota_denied", "persist_failed"
	)

	StorePersistDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "shiori_store_persist_duration_seconds",
			Help:    "Duration of whole-aggregate writes to the key-value store",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1},
		},
	)

	// Quota guard
	QuotaChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shiori_quota_checks_total",
			Help: "Total number of quota checks by decision source and result",
		},
		[]string{"source", "allowed"}, // source: "estimator", "serialized", "unavailable"
	)

	QuotaUsedBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "shiori_quota_used_bytes",
			Help: "Most recent storage usage estimate in bytes",
		},
	)

	// Update poller
	PollerRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shiori_poller_runs_total",
			Help: "Total number of update check runs by result",
		},
		[]string{"result"}, // "ok", "empty", "fetch_failed", "skipped"
	)

	PollerRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "shiori_poller_run_duration_seconds",
			Help:    "Duration of update check runs",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	PollerUpdates = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "shiori_poller_update_notifications_total",
			Help: "Total number of update notifications emitted",
		},
	)

	PollerLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "shiori_poller_last_success_timestamp",
			Help: "Unix timestamp of the last successful update check",
		},
	)

	// Reminder engine
	RemindersFired = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shiori_reminders_fired_total",
			Help: "Total number of reminder notifications emitted",
		},
		[]string{"kind"}, // "one_shot", "repeating"
	)

	// Metadata provider
	MetadataRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shiori_metadata_requests_total",
			Help: "Total number of metadata provider requests",
		},
		[]string{"provider", "operation", "status"},
	)

	MetadataRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shiori_metadata_request_duration_seconds",
			Help:    "Metadata provider request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider", "operation"},
	)

	// Detail cache
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shiori_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shiori_cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache_type"},
	)

	// API
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shiori_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shiori_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "shiori_api_active_requests",
			Help: "Number of API requests currently being served",
		},
	)

	// WebSocket
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "shiori_websocket_connections",
			Help: "Current number of active WebSocket connections",
		},
	)

	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "shiori_websocket_messages_sent_total",
			Help: "Total number of WebSocket messages sent",
		},
	)

	// Circuit breaker
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "shiori_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shiori_circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shiori_circuit_breaker_requests_total",
			Help: "Requests through a circuit breaker by result (success, failure, rejected)",
		},
		[]string{"name", "result"},
	)
)

// RecordQuotaCheck records one quota decision.
func RecordQuotaCheck(source string, allowed bool, usedBytes int64) {
	QuotaChecks.WithLabelValues(source, strconv.FormatBool(allowed)).Inc()
	if usedBytes > 0 {
		QuotaUsedBytes.Set(float64(usedBytes))
	}
}

// RecordPollerRun records a finished update check run.
func RecordPollerRun(result string, duration time.Duration, updates int) {
	PollerRuns.WithLabelValues(result).Inc()
	PollerRunDuration.Observe(duration.Seconds())
	PollerUpdates.Add(float64(updates))
	if result == "ok" || result == "empty" {
		PollerLastSuccess.Set(float64(time.Now().Unix()))
	}
}

// RecordMetadataRequest records one provider call.
func RecordMetadataRequest(provider, operation string, duration time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	MetadataRequests.WithLabelValues(provider, operation, status).Inc()
	MetadataRequestDuration.WithLabelValues(provider, operation).Observe(duration.Seconds())
}

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest moves the in-flight request gauge.
func TrackActiveRequest(start bool) {
	if start {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}
