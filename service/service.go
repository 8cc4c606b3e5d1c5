// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package service wires the query service together: middleware, routes, and
// the execution dispatcher behind them.
package service

import (
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/jinterlante1206/AleutianProlog/dispatch"
	"github.com/jinterlante1206/AleutianProlog/middleware"
	"github.com/jinterlante1206/AleutianProlog/observability"
	"github.com/jinterlante1206/AleutianProlog/routes"
	"github.com/jinterlante1206/AleutianProlog/session"
)

// Config holds the runtime configuration of the service.
type Config struct {
	// Port the HTTP server listens on.
	Port int

	// Workers is the size of the query worker pool. Zero means one worker
	// per CPU core.
	Workers int

	// QueryTimeout is the per-request execution budget.
	QueryTimeout time.Duration

	// MaxSolutions caps the number of solutions returned for one query.
	MaxSolutions int

	// RateLimit is the allowed query submissions per second across all
	// clients. Zero or negative disables rate limiting.
	RateLimit float64

	// RateBurst is the limiter's burst allowance.
	RateBurst int

	// EnableMetrics exposes GET /metrics.
	EnableMetrics bool

	// EnableTracing installs the otelgin middleware. The exporter itself is
	// configured by the caller before the service starts.
	EnableTracing bool
}

// applyConfigDefaults fills zero values with production defaults.
func applyConfigDefaults(cfg *Config) {
	if cfg.Port <= 0 {
		cfg.Port = 8080
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.QueryTimeout <= 0 {
		cfg.QueryTimeout = 10 * time.Second
	}
	if cfg.MaxSolutions <= 0 {
		cfg.MaxSolutions = session.DefaultMaxSolutions
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = 10
	}
}

// Service is the assembled query service.
type Service struct {
	cfg        Config
	router     *gin.Engine
	dispatcher *dispatch.Dispatcher
}

// New builds a Service from cfg. Defaults are applied to zero-valued fields.
func New(cfg Config) *Service {
	applyConfigDefaults(&cfg)

	dispatcher := dispatch.New(dispatch.Config{
		Workers:      cfg.Workers,
		QueryTimeout: cfg.QueryTimeout,
		MaxSolutions: cfg.MaxSolutions,
		Metrics:      observability.DefaultMetrics,
	})

	router := gin.Default()
	if cfg.EnableTracing {
		router.Use(otelgin.Middleware("aleutian-prolog"))
	}
	router.Use(middleware.RequestID())
	router.Use(middleware.RateLimit(cfg.RateLimit, cfg.RateBurst))

	routes.SetupRoutes(router, dispatcher, cfg.EnableMetrics)

	return &Service{cfg: cfg, router: router, dispatcher: dispatcher}
}

// Router exposes the underlying gin engine, mainly for tests.
func (s *Service) Router() *gin.Engine {
	return s.router
}

// Run starts the HTTP server and blocks until it exits.
func (s *Service) Run() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	slog.Info("starting query service",
		"addr", addr,
		"workers", s.cfg.Workers,
		"query_timeout", s.cfg.QueryTimeout.String(),
		"max_solutions", s.cfg.MaxSolutions,
	)
	return s.router.Run(addr)
}
