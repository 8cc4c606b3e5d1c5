// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package prolog

import (
	"context"
	"strconv"
)

// DefaultDepthLimit bounds resolution depth. User-submitted programs can
// recurse without bound; the limit converts what would be a fatal Go stack
// overflow into an engine error the service can report.
const DefaultDepthLimit = 250_000

// ctxCheckInterval is how many solver steps pass between context checks.
const ctxCheckInterval = 1024

// Machine is one isolated, disposable interpreter instance: a clause
// database plus resolution state. Create one per request with NewMachine,
// run one query, and drop it.
type Machine struct {
	clauses map[string][]Clause
	order   []string
	depth   int
	steps   int
	varSeq  int
}

// NewMachine returns an empty interpreter instance.
func NewMachine() *Machine {
	return &Machine{
		clauses: make(map[string][]Clause),
		depth:   DefaultDepthLimit,
	}
}

// Consult parses src and adds its clauses to the database, preserving source
// order within each predicate. Redefining a built-in predicate is refused.
func (m *Machine) Consult(src string) error {
	clauses, err := ReadProgram(src)
	if err != nil {
		return err
	}
	for _, c := range clauses {
		ind := c.Head.Indicator()
		if _, ok := builtins[ind]; ok {
			return permissionError("cannot redefine built-in predicate " + ind)
		}
		if _, ok := m.clauses[ind]; !ok {
			m.order = append(m.order, ind)
		}
		m.clauses[ind] = append(m.clauses[ind], c)
	}
	return nil
}

// Predicates returns the indicators of all consulted predicates in first
// definition order.
func (m *Machine) Predicates() []string {
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// Solve proves goal against the database, invoking onSolution after each
// success while the solution's bindings are still in place. onSolution
// returns false to stop the search; anything it needs from the bindings must
// be copied out before it returns, because backtracking undoes them.
//
// Solve returns nil when the search finishes or is stopped by onSolution, a
// *Error for engine-level failures, or the context's error when the context
// is cancelled mid-search.
func (m *Machine) Solve(ctx context.Context, goal *Term, onSolution func() (bool, error)) error {
	tr := make(trail, 0, 64)
	root := new(barrier)
	_, err := m.solve(ctx, goal, 0, &tr, root, func() (bool, error) {
		more, err := onSolution()
		if err != nil {
			return true, err
		}
		return !more, nil
	})
	if _, ok := err.(*cutSignal); ok {
		// A top-level cut exhausted the search.
		return nil
	}
	return err
}

// cont consumes one proof of the current goal. Returning stop=true unwinds
// the entire search while keeping the current bindings intact.
type cont func() (bool, error)

// barrier identifies one predicate activation. A cut commits to the barrier
// of the clause that contains it; the pointer itself is the identity.
type barrier struct{}

// cutSignal unwinds the search to the clause loop owning bar when the solver
// backtracks into a cut. Every choice point between the cut and its barrier
// is discarded on the way. It never escapes Solve.
type cutSignal struct{ bar *barrier }

func (c *cutSignal) Error() string { return "cut" }

func (m *Machine) solve(ctx context.Context, goal *Term, depth int, tr *trail, cutBar *barrier, k cont) (bool, error) {
	m.steps++
	if m.steps%ctxCheckInterval == 0 {
		if err := ctx.Err(); err != nil {
			return true, err
		}
	}
	if depth > m.depth {
		return true, depthLimitError(m.depth)
	}

	g := Resolve(goal)
	switch g.Kind {
	case KindVar:
		return true, instantiationError("goal position")
	case KindInt, KindFloat, KindString:
		return true, typeError("callable goal", g)
	}

	ind := g.Indicator()
	if b, ok := builtins[ind]; ok {
		return b(m, ctx, g, depth, tr, cutBar, k)
	}

	clauses, ok := m.clauses[ind]
	if !ok {
		return true, existenceError(ind)
	}
	bar := new(barrier)
	for i := range clauses {
		mark := tr.mark()
		head, body := m.rename(clauses[i])
		if unify(g, head, tr) {
			stop, err := m.solve(ctx, body, depth+1, tr, bar, k)
			if err != nil {
				if cs, ok := err.(*cutSignal); ok && cs.bar == bar {
					// A cut in this activation's body: the remaining clauses
					// and everything between the cut and here are pruned.
					tr.undo(mark)
					return false, nil
				}
				return stop, err
			}
			if stop {
				return true, nil
			}
		}
		tr.undo(mark)
	}
	return false, nil
}

// rename copies a stored clause with fresh variables so concurrent proofs of
// the same clause never share binding cells.
func (m *Machine) rename(c Clause) (head, body *Term) {
	seen := make(map[*Term]*Term)
	return m.renameTerm(c.Head, seen), m.renameTerm(c.Body, seen)
}

func (m *Machine) renameTerm(t *Term, seen map[*Term]*Term) *Term {
	switch t.Kind {
	case KindVar:
		if fresh, ok := seen[t]; ok {
			return fresh
		}
		m.varSeq++
		fresh := Var("_G" + strconv.Itoa(m.varSeq))
		seen[t] = fresh
		return fresh
	case KindCompound:
		args := make([]*Term, len(t.Args))
		for i, a := range t.Args {
			args[i] = m.renameTerm(a, seen)
		}
		return &Term{Kind: KindCompound, Functor: t.Functor, Args: args}
	default:
		// Atoms, numbers, and strings are immutable and safely shared.
		return t
	}
}
