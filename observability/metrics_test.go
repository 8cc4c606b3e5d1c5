// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// Tests for query metrics

package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewQueryMetrics_RegistersAllCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewQueryMetrics(reg)

	m.RequestsTotal.WithLabelValues("success").Inc()
	m.ErrorsTotal.WithLabelValues("timeout").Inc()
	m.QueryDurationSeconds.WithLabelValues("success").Observe(0.01)
	m.SolutionsPerQuery.Observe(2)
	m.ActiveQueries.Add(1)

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.Len(t, families, 5)
}

func TestQueryMetrics_CounterValues(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewQueryMetrics(reg)

	m.RequestsTotal.WithLabelValues("success").Inc()
	m.RequestsTotal.WithLabelValues("success").Inc()
	m.RequestsTotal.WithLabelValues("error").Inc()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("error")))
}

func TestQueryMetrics_GaugeTracksActiveQueries(t *testing.T) {
	m := NewQueryMetrics(prometheus.NewRegistry())
	m.ActiveQueries.Add(1)
	m.ActiveQueries.Add(1)
	m.ActiveQueries.Add(-1)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ActiveQueries))
}
