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

import "context"

// builtin implements one control construct or built-in predicate.
type builtin func(m *Machine, ctx context.Context, goal *Term, depth int, tr *trail, cutBar *barrier, k cont) (bool, error)

var builtins map[string]builtin

// The table is populated in init because the control constructs recurse
// through the solver, which consults the table.
func init() {
	builtins = map[string]builtin{
		"true/0":   builtinTrue,
		"fail/0":   builtinFail,
		"false/0":  builtinFail,
		",/2":      builtinConj,
		";/2":      builtinDisj,
		"->/2":     builtinIfThen,
		"!/0":      builtinCut,
		"call/1":   builtinCall,
		"\\+/1":    builtinNegation,
		"=/2":      builtinUnify,
		"\\=/2":    builtinNotUnify,
		"==/2":     builtinEqual,
		"\\==/2":   builtinNotEqual,
		"is/2":     builtinIs,
		"=:=/2":    builtinArithEq,
		"=\\=/2":   builtinArithNeq,
		"</2":      builtinLess,
		">/2":      builtinGreater,
		"=</2":     builtinLessEq,
		">=/2":     builtinGreaterEq,
		"var/1":    builtinVar,
		"nonvar/1": builtinNonvar,
		"atom/1":   builtinAtom,
		"number/1": builtinNumber,
	}
}

func builtinTrue(_ *Machine, _ context.Context, _ *Term, _ int, _ *trail, _ *barrier, k cont) (bool, error) {
	return k()
}

func builtinFail(_ *Machine, _ context.Context, _ *Term, _ int, _ *trail, _ *barrier, _ cont) (bool, error) {
	return false, nil
}

func builtinConj(m *Machine, ctx context.Context, goal *Term, depth int, tr *trail, cutBar *barrier, k cont) (bool, error) {
	a, b := goal.Args[0], goal.Args[1]
	return m.solve(ctx, a, depth+1, tr, cutBar, func() (bool, error) {
		return m.solve(ctx, b, depth+1, tr, cutBar, k)
	})
}

func builtinDisj(m *Machine, ctx context.Context, goal *Term, depth int, tr *trail, cutBar *barrier, k cont) (bool, error) {
	a, b := goal.Args[0], goal.Args[1]
	if cond := Resolve(a); cond.Kind == KindCompound && cond.Functor == "->" && len(cond.Args) == 2 {
		return m.ifThenElse(ctx, cond.Args[0], cond.Args[1], b, depth, tr, cutBar, k)
	}
	mark := tr.mark()
	stop, err := m.solve(ctx, a, depth+1, tr, cutBar, k)
	if stop || err != nil {
		// A cut in the left branch unwinds as a cutSignal here, pruning the
		// right branch on its way to the barrier.
		return stop, err
	}
	tr.undo(mark)
	return m.solve(ctx, b, depth+1, tr, cutBar, k)
}

func builtinIfThen(m *Machine, ctx context.Context, goal *Term, depth int, tr *trail, cutBar *barrier, k cont) (bool, error) {
	return m.ifThenElse(ctx, goal.Args[0], goal.Args[1], Atom("fail"), depth, tr, cutBar, k)
}

// ifThenElse commits to the first solution of cond. The cut barrier inside
// cond is local, per ISO if-then-else semantics.
func (m *Machine) ifThenElse(ctx context.Context, cond, then, els *Term, depth int, tr *trail, cutBar *barrier, k cont) (bool, error) {
	mark := tr.mark()
	condBar := new(barrier)
	found := false
	_, err := m.solve(ctx, cond, depth+1, tr, condBar, func() (bool, error) {
		found = true
		return true, nil // keep bindings, stop searching
	})
	if err != nil {
		cs, ok := err.(*cutSignal)
		if !ok || cs.bar != condBar {
			return true, err
		}
	}
	if found {
		return m.solve(ctx, then, depth+1, tr, cutBar, k)
	}
	tr.undo(mark)
	return m.solve(ctx, els, depth+1, tr, cutBar, k)
}

func builtinCut(_ *Machine, _ context.Context, _ *Term, _ int, _ *trail, cutBar *barrier, k cont) (bool, error) {
	stop, err := k()
	if stop || err != nil {
		return stop, err
	}
	// Backtracking into the cut: discard every choice point created since
	// the containing clause was entered, including those of goals to the
	// left of the cut.
	return false, &cutSignal{bar: cutBar}
}

func builtinCall(m *Machine, ctx context.Context, goal *Term, depth int, tr *trail, _ *barrier, k cont) (bool, error) {
	// call/1 is opaque to cut: a cut inside the called goal prunes only the
	// goal's own alternatives, not the calling clause's.
	bar := new(barrier)
	stop, err := m.solve(ctx, goal.Args[0], depth+1, tr, bar, k)
	if cs, ok := err.(*cutSignal); ok && cs.bar == bar {
		return false, nil
	}
	return stop, err
}

func builtinNegation(m *Machine, ctx context.Context, goal *Term, depth int, tr *trail, _ *barrier, k cont) (bool, error) {
	mark := tr.mark()
	bar := new(barrier)
	found := false
	_, err := m.solve(ctx, goal.Args[0], depth+1, tr, bar, func() (bool, error) {
		found = true
		return true, nil
	})
	tr.undo(mark)
	if err != nil {
		cs, ok := err.(*cutSignal)
		if !ok || cs.bar != bar {
			return true, err
		}
	}
	if found {
		return false, nil
	}
	return k()
}

func builtinUnify(_ *Machine, _ context.Context, goal *Term, _ int, tr *trail, _ *barrier, k cont) (bool, error) {
	mark := tr.mark()
	if unify(goal.Args[0], goal.Args[1], tr) {
		stop, err := k()
		if stop || err != nil {
			return stop, err
		}
	}
	tr.undo(mark)
	return false, nil
}

func builtinNotUnify(_ *Machine, _ context.Context, goal *Term, _ int, tr *trail, _ *barrier, k cont) (bool, error) {
	mark := tr.mark()
	ok := unify(goal.Args[0], goal.Args[1], tr)
	tr.undo(mark)
	if ok {
		return false, nil
	}
	return k()
}

func builtinEqual(_ *Machine, _ context.Context, goal *Term, _ int, _ *trail, _ *barrier, k cont) (bool, error) {
	if equalTerms(goal.Args[0], goal.Args[1]) {
		return k()
	}
	return false, nil
}

func builtinNotEqual(_ *Machine, _ context.Context, goal *Term, _ int, _ *trail, _ *barrier, k cont) (bool, error) {
	if equalTerms(goal.Args[0], goal.Args[1]) {
		return false, nil
	}
	return k()
}

func builtinIs(m *Machine, _ context.Context, goal *Term, _ int, tr *trail, _ *barrier, k cont) (bool, error) {
	v, err := m.eval(goal.Args[1])
	if err != nil {
		return true, err
	}
	mark := tr.mark()
	if unify(goal.Args[0], v, tr) {
		stop, err := k()
		if stop || err != nil {
			return stop, err
		}
	}
	tr.undo(mark)
	return false, nil
}

func builtinArithEq(m *Machine, _ context.Context, goal *Term, _ int, _ *trail, _ *barrier, k cont) (bool, error) {
	return m.compareArith(goal, k, func(c int) bool { return c == 0 })
}

func builtinArithNeq(m *Machine, _ context.Context, goal *Term, _ int, _ *trail, _ *barrier, k cont) (bool, error) {
	return m.compareArith(goal, k, func(c int) bool { return c != 0 })
}

func builtinLess(m *Machine, _ context.Context, goal *Term, _ int, _ *trail, _ *barrier, k cont) (bool, error) {
	return m.compareArith(goal, k, func(c int) bool { return c < 0 })
}

func builtinGreater(m *Machine, _ context.Context, goal *Term, _ int, _ *trail, _ *barrier, k cont) (bool, error) {
	return m.compareArith(goal, k, func(c int) bool { return c > 0 })
}

func builtinLessEq(m *Machine, _ context.Context, goal *Term, _ int, _ *trail, _ *barrier, k cont) (bool, error) {
	return m.compareArith(goal, k, func(c int) bool { return c <= 0 })
}

func builtinGreaterEq(m *Machine, _ context.Context, goal *Term, _ int, _ *trail, _ *barrier, k cont) (bool, error) {
	return m.compareArith(goal, k, func(c int) bool { return c >= 0 })
}

func builtinVar(_ *Machine, _ context.Context, goal *Term, _ int, _ *trail, _ *barrier, k cont) (bool, error) {
	if Resolve(goal.Args[0]).Kind == KindVar {
		return k()
	}
	return false, nil
}

func builtinNonvar(_ *Machine, _ context.Context, goal *Term, _ int, _ *trail, _ *barrier, k cont) (bool, error) {
	if Resolve(goal.Args[0]).Kind != KindVar {
		return k()
	}
	return false, nil
}

func builtinAtom(_ *Machine, _ context.Context, goal *Term, _ int, _ *trail, _ *barrier, k cont) (bool, error) {
	if Resolve(goal.Args[0]).Kind == KindAtom {
		return k()
	}
	return false, nil
}

func builtinNumber(_ *Machine, _ context.Context, goal *Term, _ int, _ *trail, _ *barrier, k cont) (bool, error) {
	kind := Resolve(goal.Args[0]).Kind
	if kind == KindInt || kind == KindFloat {
		return k()
	}
	return false, nil
}

func (m *Machine) compareArith(goal *Term, k cont, pred func(int) bool) (bool, error) {
	a, err := m.eval(goal.Args[0])
	if err != nil {
		return true, err
	}
	b, err := m.eval(goal.Args[1])
	if err != nil {
		return true, err
	}
	if pred(compareNumbers(a, b)) {
		return k()
	}
	return false, nil
}
