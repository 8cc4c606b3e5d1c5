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

// trail records variable bindings in the order they were made so the solver
// can undo them on backtracking.
type trail []*Term

func (tr *trail) mark() int { return len(*tr) }

func (tr *trail) bind(v, t *Term) {
	v.Ref = t
	*tr = append(*tr, v)
}

func (tr *trail) undo(mark int) {
	s := *tr
	for i := len(s) - 1; i >= mark; i-- {
		s[i].Ref = nil
	}
	*tr = s[:mark]
}

// unify makes a and b equal, binding variables through tr. On failure the
// caller is responsible for undoing to its own mark; unify itself may leave
// partial bindings behind.
func unify(a, b *Term, tr *trail) bool {
	a, b = Resolve(a), Resolve(b)
	if a == b {
		return true
	}
	if a.Kind == KindVar {
		tr.bind(a, b)
		return true
	}
	if b.Kind == KindVar {
		tr.bind(b, a)
		return true
	}
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindAtom, KindString:
		return a.Functor == b.Functor
	case KindInt:
		return a.Int == b.Int
	case KindFloat:
		return a.Float == b.Float
	case KindCompound:
		if a.Functor != b.Functor || len(a.Args) != len(b.Args) {
			return false
		}
		for i := range a.Args {
			if !unify(a.Args[i], b.Args[i], tr) {
				return false
			}
		}
		return true
	}
	return false
}

// equalTerms implements ==/2: structural identity without binding anything.
// Distinct unbound variables are never equal.
func equalTerms(a, b *Term) bool {
	a, b = Resolve(a), Resolve(b)
	if a == b {
		return true
	}
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindAtom, KindString:
		return a.Functor == b.Functor
	case KindInt:
		return a.Int == b.Int
	case KindFloat:
		return a.Float == b.Float
	case KindCompound:
		if a.Functor != b.Functor || len(a.Args) != len(b.Args) {
			return false
		}
		for i := range a.Args {
			if !equalTerms(a.Args[i], b.Args[i]) {
				return false
			}
		}
		return true
	default:
		// Two distinct unbound variables.
		return false
	}
}
