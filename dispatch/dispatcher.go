// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package dispatch assigns each query to an isolated worker, enforces the
// per-request execution budget, and shields the process from worker faults.
//
// # Concurrency Model
//
// A weighted semaphore bounds the number of sessions running at once,
// defaulting to the core count: query execution is CPU-bound user code, so
// more workers than cores only adds scheduling pressure. Each session runs
// on its own goroutine; the semaphore is the only resource shared between
// requests. A panic inside a worker fails that request alone.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/jinterlante1206/AleutianProlog/datatypes"
	"github.com/jinterlante1206/AleutianProlog/observability"
	"github.com/jinterlante1206/AleutianProlog/session"
)

// Defaults applied by New when the corresponding Config field is zero.
const (
	DefaultQueryTimeout = 10 * time.Second
	DefaultMaxSolutions = session.DefaultMaxSolutions
)

// Config carries the dispatcher's startup-time settings. None of these can
// be changed per request.
type Config struct {
	// Workers bounds concurrent query sessions. Defaults to runtime.NumCPU().
	Workers int
	// QueryTimeout is the per-request execution budget.
	QueryTimeout time.Duration
	// MaxSolutions caps enumeration per query.
	MaxSolutions int
	// Metrics receives execution metrics; nil disables instrumentation.
	Metrics *observability.QueryMetrics
}

// Dispatcher runs query sessions on a bounded worker pool.
type Dispatcher struct {
	sem          *semaphore.Weighted
	timeout      time.Duration
	maxSolutions int
	metrics      *observability.QueryMetrics
}

// New returns a Dispatcher with defaults applied for zero-valued settings.
func New(cfg Config) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.QueryTimeout <= 0 {
		cfg.QueryTimeout = DefaultQueryTimeout
	}
	if cfg.MaxSolutions <= 0 {
		cfg.MaxSolutions = DefaultMaxSolutions
	}
	return &Dispatcher{
		sem:          semaphore.NewWeighted(int64(cfg.Workers)),
		timeout:      cfg.QueryTimeout,
		maxSolutions: cfg.MaxSolutions,
		metrics:      cfg.Metrics,
	}
}

type sessionResult struct {
	outcomes []datatypes.Outcome
	err      error
}

// Dispatch runs one validated request to completion on a worker.
//
// The request must already be shape-validated; Dispatch never sees malformed
// input. On timeout the worker's context is cancelled and a timeout error is
// returned immediately; the worker notices the cancellation, discards its
// interpreter, and releases its slot on its own.
func (d *Dispatcher) Dispatch(ctx context.Context, req datatypes.QueryRequest) ([]datatypes.Outcome, error) {
	start := time.Now()

	// The budget starts before the queue wait: under pool saturation a
	// request times out instead of queueing indefinitely.
	qctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if err := d.sem.Acquire(qctx, 1); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, d.fail(start, session.NewError(session.KindTimeout, "timed out waiting for a worker"))
		}
		return nil, d.fail(start, session.NewError(session.KindInternal, "request cancelled while waiting for a worker"))
	}
	d.gaugeActive(1)

	results := make(chan sessionResult, 1)
	go func() {
		defer d.sem.Release(1)
		defer d.gaugeActive(-1)
		defer func() {
			if r := recover(); r != nil {
				slog.Error("query worker panicked", "panic", r)
				results <- sessionResult{err: session.NewError(session.KindInternal, fmt.Sprintf("worker fault: %v", r))}
			}
		}()
		outcomes, err := session.Run(qctx, req.Program, req.Query, d.maxSolutions)
		results <- sessionResult{outcomes: outcomes, err: err}
	}()

	select {
	case res := <-results:
		if res.err != nil {
			return nil, d.fail(start, res.err)
		}
		d.succeed(start, len(res.outcomes))
		return res.outcomes, nil
	case <-qctx.Done():
		// The worker is abandoned here; cancellation makes it unwind and
		// release its slot without ever touching another request's state.
		if errors.Is(qctx.Err(), context.DeadlineExceeded) {
			return nil, d.fail(start, session.NewError(session.KindTimeout, "query exceeded its execution budget"))
		}
		return nil, d.fail(start, session.NewError(session.KindInternal, "request cancelled"))
	}
}

func (d *Dispatcher) succeed(start time.Time, solutions int) {
	if d.metrics == nil {
		return
	}
	d.metrics.RequestsTotal.WithLabelValues("success").Inc()
	d.metrics.QueryDurationSeconds.WithLabelValues("success").Observe(time.Since(start).Seconds())
	d.metrics.SolutionsPerQuery.Observe(float64(solutions))
}

func (d *Dispatcher) fail(start time.Time, err error) error {
	if d.metrics != nil {
		d.metrics.RequestsTotal.WithLabelValues("error").Inc()
		d.metrics.QueryDurationSeconds.WithLabelValues("error").Observe(time.Since(start).Seconds())
		d.metrics.ErrorsTotal.WithLabelValues(string(session.Classify(err))).Inc()
	}
	return err
}

func (d *Dispatcher) gaugeActive(delta float64) {
	if d.metrics != nil {
		d.metrics.ActiveQueries.Add(delta)
	}
}
