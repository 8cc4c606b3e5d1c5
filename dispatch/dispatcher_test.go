// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// Tests for the execution dispatcher

package dispatch

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jinterlante1206/AleutianProlog/datatypes"
	"github.com/jinterlante1206/AleutianProlog/observability"
	"github.com/jinterlante1206/AleutianProlog/session"
)

// slowProgram backtracks over an exponential search space without ever
// producing a solution, so only cancellation ends it.
const slowProgram = `
b(0). b(1).
gen(0, []).
gen(N, [B|T]) :- N > 0, b(B), M is N - 1, gen(M, T).
`

func newTestDispatcher(cfg Config) *Dispatcher {
	if cfg.Metrics == nil {
		cfg.Metrics = observability.NewQueryMetrics(prometheus.NewRegistry())
	}
	return New(cfg)
}

// =============================================================================
// Dispatch Tests
// =============================================================================

func TestDispatch_RunsQueryToCompletion(t *testing.T) {
	d := newTestDispatcher(Config{Workers: 2})
	outcomes, err := d.Dispatch(context.Background(), datatypes.QueryRequest{
		Program: "parent(john, mary). parent(mary, alice). ancestor(X, Y) :- parent(X, Y). ancestor(X, Y) :- parent(X, Z), ancestor(Z, Y).",
		Query:   "ancestor(john, Who).",
	})
	require.NoError(t, err)
	require.Len(t, outcomes, 2)

	data, err := json.Marshal(outcomes)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"Who": {"atom": "mary"}}, {"Who": {"atom": "alice"}}]`, string(data))
}

func TestDispatch_PropagatesSessionErrors(t *testing.T) {
	d := newTestDispatcher(Config{Workers: 1})
	_, err := d.Dispatch(context.Background(), datatypes.QueryRequest{
		Program: "p(a).",
		Query:   "missing(X).",
	})
	require.Error(t, err)
	assert.Equal(t, session.KindExecutionFailed, session.Classify(err))
}

func TestDispatch_TimeoutFreesTheSlot(t *testing.T) {
	d := newTestDispatcher(Config{Workers: 1, QueryTimeout: 100 * time.Millisecond})

	_, err := d.Dispatch(context.Background(), datatypes.QueryRequest{
		Program: slowProgram,
		Query:   "gen(64, L), fail.",
	})
	require.Error(t, err)
	assert.Equal(t, session.KindTimeout, session.Classify(err))

	// The single worker slot must be usable again afterwards.
	outcomes, err := d.Dispatch(context.Background(), datatypes.QueryRequest{
		Program: "p(a).",
		Query:   "p(X).",
	})
	require.NoError(t, err)
	assert.Len(t, outcomes, 1)
}

func TestDispatch_SaturatedPoolWaitTimesOut(t *testing.T) {
	// Occupy the only worker slot; the queued request must give up when its
	// budget runs out instead of waiting for the slot indefinitely.
	d := newTestDispatcher(Config{Workers: 1, QueryTimeout: 150 * time.Millisecond})
	require.NoError(t, d.sem.Acquire(context.Background(), 1))
	defer d.sem.Release(1)

	start := time.Now()
	_, err := d.Dispatch(context.Background(), datatypes.QueryRequest{
		Program: "p(a).",
		Query:   "p(X).",
	})
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.Equal(t, session.KindTimeout, session.Classify(err))
	assert.GreaterOrEqual(t, elapsed, 100*time.Millisecond)
	assert.Less(t, elapsed, 5*time.Second)
}

func TestDispatch_ConcurrentRequestsAreIsolated(t *testing.T) {
	// Two contradictory programs run side by side; each answer must come from
	// its own program only.
	d := newTestDispatcher(Config{Workers: 4})

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		program, want := "p(a).", `[{"X": {"atom": "a"}}]`
		if i%2 == 1 {
			program, want = "p(b).", `[{"X": {"atom": "b"}}]`
		}
		wg.Add(1)
		go func(program, want string) {
			defer wg.Done()
			outcomes, err := d.Dispatch(context.Background(), datatypes.QueryRequest{
				Program: program,
				Query:   "p(X).",
			})
			if !assert.NoError(t, err) {
				return
			}
			data, err := json.Marshal(outcomes)
			if assert.NoError(t, err) {
				assert.JSONEq(t, want, string(data))
			}
		}(program, want)
	}
	wg.Wait()
}

func TestDispatch_MaxSolutionsApplied(t *testing.T) {
	d := newTestDispatcher(Config{Workers: 1, MaxSolutions: 2})
	outcomes, err := d.Dispatch(context.Background(), datatypes.QueryRequest{
		Program: "p(1). p(2). p(3).",
		Query:   "p(X).",
	})
	require.NoError(t, err)
	assert.Len(t, outcomes, 2)
}

func TestDispatch_CancelledCallerContext(t *testing.T) {
	d := newTestDispatcher(Config{Workers: 1, QueryTimeout: 10 * time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := d.Dispatch(ctx, datatypes.QueryRequest{Program: "p(a).", Query: "p(X)."})
	require.Error(t, err)
	assert.Equal(t, session.KindInternal, session.Classify(err))
}

func TestNew_AppliesDefaults(t *testing.T) {
	d := New(Config{})
	assert.Equal(t, DefaultQueryTimeout, d.timeout)
	assert.Equal(t, DefaultMaxSolutions, d.maxSolutions)
	assert.NotNil(t, d.sem)
}
