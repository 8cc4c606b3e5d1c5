// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// Tests for service assembly

package service

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"runtime"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinterlante1206/AleutianProlog/session"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// =============================================================================
// Config Tests
// =============================================================================

func TestApplyConfigDefaults_AllDefaults(t *testing.T) {
	cfg := Config{}
	applyConfigDefaults(&cfg)

	assert.Equal(t, 8080, cfg.Port, "default port should be 8080")
	assert.Equal(t, runtime.NumCPU(), cfg.Workers, "default workers should match core count")
	assert.Equal(t, 10*time.Second, cfg.QueryTimeout)
	assert.Equal(t, session.DefaultMaxSolutions, cfg.MaxSolutions)
	assert.Equal(t, 10, cfg.RateBurst)
	assert.False(t, cfg.EnableTracing)
}

func TestApplyConfigDefaults_PreservesExplicitValues(t *testing.T) {
	cfg := Config{
		Port:         9000,
		Workers:      2,
		QueryTimeout: time.Second,
		MaxSolutions: 5,
		RateLimit:    50,
		RateBurst:    3,
	}
	applyConfigDefaults(&cfg)

	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, time.Second, cfg.QueryTimeout)
	assert.Equal(t, 5, cfg.MaxSolutions)
	assert.Equal(t, 50.0, cfg.RateLimit)
	assert.Equal(t, 3, cfg.RateBurst)
}

// =============================================================================
// Assembly Tests
// =============================================================================

func TestNew_ServesQueries(t *testing.T) {
	svc := New(Config{Workers: 1})

	w := httptest.NewRecorder()
	body := bytes.NewBufferString(`{"program": "parent(john, mary).", "query": "parent(john, Who)."}`)
	req, _ := http.NewRequest("POST", "/query", body)
	req.Header.Set("Content-Type", "application/json")
	svc.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"results": [{"Who": {"atom": "mary"}}]}`, w.Body.String())
}

func TestNew_SetsRequestIDHeader(t *testing.T) {
	svc := New(Config{Workers: 1})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/health", nil)
	svc.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestNew_RateLimitEnforced(t *testing.T) {
	svc := New(Config{Workers: 1, RateLimit: 0.001, RateBurst: 1})

	first := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/health", nil)
	svc.Router().ServeHTTP(first, req)
	assert.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/health", nil)
	svc.Router().ServeHTTP(second, req)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}
