// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package session runs one Prolog query against a throwaway interpreter and
// encodes every solution into engine-independent outcomes.
//
// # Isolation
//
// Each Run call creates its own prolog.Machine, loads the submitted program
// into it, enumerates the query's solutions, and lets the machine go out of
// scope on every return path. No machine, clause, or binding is ever shared
// between two Run calls; that property is what makes concurrent requests
// safe without any locking in this package.
package session

import (
	"context"
	"errors"

	"github.com/jinterlante1206/AleutianProlog/datatypes"
	"github.com/jinterlante1206/AleutianProlog/prolog"
)

// DefaultMaxSolutions bounds enumeration when the caller does not.
const DefaultMaxSolutions = 1000

// Run executes one query to completion.
//
// The returned outcomes are in backtracking order. A query with no solutions
// yields exactly one {"result": false} outcome; a ground query that succeeds
// yields one {"result": true} outcome per proof. On error the partial
// outcome list is discarded: a failed run returns no results at all.
//
// Error kinds: load_failed (program did not parse/load), query_invalid
// (query did not parse), execution_failed (runtime error during resolution),
// timeout (ctx expired mid-run).
func Run(ctx context.Context, program, query string, maxSolutions int) ([]datatypes.Outcome, error) {
	if maxSolutions <= 0 {
		maxSolutions = DefaultMaxSolutions
	}

	machine := prolog.NewMachine()
	if err := machine.Consult(program); err != nil {
		return nil, NewError(KindLoadFailed, err.Error())
	}

	goal, vars, err := prolog.ReadQuery(query)
	if err != nil {
		return nil, NewError(KindQueryInvalid, err.Error())
	}

	outcomes, err := enumerate(ctx, machine, goal, vars, maxSolutions)
	if err != nil {
		return nil, err
	}
	if len(outcomes) == 0 {
		outcomes = append(outcomes, datatypes.TruthOutcome(false))
	}
	return outcomes, nil
}

// enumerate drives the solver, snapshotting each solution's bindings into
// JSON-safe data while they are still in place. Collection stops at
// exhaustion, at maxSolutions, or when ctx is cancelled.
func enumerate(ctx context.Context, machine *prolog.Machine, goal *prolog.Term, vars []*prolog.Term, maxSolutions int) ([]datatypes.Outcome, error) {
	outcomes := make([]datatypes.Outcome, 0, 8)
	err := machine.Solve(ctx, goal, func() (bool, error) {
		outcomes = append(outcomes, snapshot(vars))
		return len(outcomes) < maxSolutions, nil
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, NewError(KindTimeout, "query exceeded its execution budget")
		}
		if errors.Is(err, context.Canceled) {
			// Caller went away; that is not the query's fault and not a timeout.
			return nil, NewError(KindInternal, "request cancelled")
		}
		var pe *prolog.Error
		if errors.As(err, &pe) {
			return nil, NewError(KindExecutionFailed, pe.Error())
		}
		return nil, NewError(KindInternal, err.Error())
	}
	return outcomes, nil
}

// snapshot encodes the current bindings of the query's variables, in first
// appearance order. Ground queries have no variables and produce the bare
// success marker.
func snapshot(vars []*prolog.Term) datatypes.Outcome {
	if len(vars) == 0 {
		return datatypes.TruthOutcome(true)
	}
	b := datatypes.NewBindingSet()
	for _, v := range vars {
		b.Bind(v.Functor, EncodeTerm(v))
	}
	return datatypes.SolutionOutcome(b)
}
