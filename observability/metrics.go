// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability provides Prometheus metrics for the query pipeline.
//
// # Description
//
// Metrics cover the dispatcher's view of query execution:
//   - Request counters (by status and error kind)
//   - Query duration histograms
//   - Solutions-per-query histogram
//   - Active worker gauge
//
// Metrics are exposed via the /metrics endpoint for Prometheus scraping.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace for all metrics.
const metricsNamespace = "aleutian"

// Subsystem for query execution metrics.
const querySubsystem = "prolog"

// QueryMetrics holds all Prometheus metrics for query execution.
//
// Initialize once at startup via InitMetrics, or with NewQueryMetrics and a
// private registry in tests.
type QueryMetrics struct {
	// RequestsTotal counts dispatched queries.
	// Labels: status (success, error)
	RequestsTotal *prometheus.CounterVec

	// ErrorsTotal counts failed queries by taxonomy kind.
	// Labels: error_code (load_failed, query_invalid, execution_failed,
	// timeout, internal_failure)
	ErrorsTotal *prometheus.CounterVec

	// QueryDurationSeconds measures wall-clock query duration.
	// Labels: status (success, error)
	QueryDurationSeconds *prometheus.HistogramVec

	// SolutionsPerQuery measures the results array length of successful
	// queries.
	SolutionsPerQuery prometheus.Histogram

	// ActiveQueries tracks queries currently holding a worker slot.
	ActiveQueries prometheus.Gauge
}

// DefaultMetrics is the singleton instance used by the service.
// Initialized by InitMetrics().
var DefaultMetrics *QueryMetrics

// InitMetrics creates the default metrics instance on the default Prometheus
// registry. Call once at startup; calling twice panics on duplicate
// registration.
func InitMetrics() *QueryMetrics {
	DefaultMetrics = NewQueryMetrics(prometheus.DefaultRegisterer)
	return DefaultMetrics
}

// NewQueryMetrics registers the query metrics with reg. Tests pass a fresh
// prometheus.NewRegistry() to avoid cross-test duplicate registration.
func NewQueryMetrics(reg prometheus.Registerer) *QueryMetrics {
	factory := promauto.With(reg)
	return &QueryMetrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: querySubsystem,
				Name:      "requests_total",
				Help:      "Total number of dispatched queries by status",
			},
			[]string{"status"},
		),

		ErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: querySubsystem,
				Name:      "errors_total",
				Help:      "Total failed queries by error kind",
			},
			[]string{"error_code"},
		),

		QueryDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: querySubsystem,
				Name:      "query_duration_seconds",
				Help:      "Wall-clock query duration in seconds",
				Buckets:   []float64{0.001, 0.005, 0.025, 0.1, 0.25, 1, 2.5, 5, 10, 30},
			},
			[]string{"status"},
		),

		SolutionsPerQuery: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: querySubsystem,
				Name:      "solutions_per_query",
				Help:      "Number of outcomes returned by successful queries",
				Buckets:   []float64{1, 2, 5, 10, 50, 100, 500, 1000},
			},
		),

		ActiveQueries: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: querySubsystem,
				Name:      "active_queries",
				Help:      "Queries currently holding a worker slot",
			},
		),
	}
}
