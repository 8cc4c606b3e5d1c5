// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package prolog implements the embedded logic engine: a term model, a reader
// for ISO-style Prolog text, and an SLD resolution solver with backtracking.
//
// # Description
//
// The engine is designed for per-request isolation. A Machine holds exactly
// one request's clause database and is discarded after a single query; no
// package-level state is shared between machines. Resolution is context-aware
// so a caller-supplied deadline cancels the search, and depth-limited so
// runaway recursion surfaces as an engine error instead of exhausting the
// process stack.
//
// # Thread Safety
//
// A Machine is NOT safe for concurrent use. Callers must confine each Machine
// to a single goroutine, which is exactly the per-request ownership model the
// service enforces.
package prolog

import (
	"strconv"
	"strings"
)

// =============================================================================
// Term Model
// =============================================================================

// Kind discriminates the closed variant set of engine values.
type Kind uint8

const (
	// KindAtom is a symbolic constant such as mary or [].
	KindAtom Kind = iota
	// KindInt is a 64-bit integer.
	KindInt
	// KindFloat is a 64-bit float.
	KindFloat
	// KindString is a double-quoted string. Strings are a distinct type from
	// atoms: "mary" and mary never unify.
	KindString
	// KindCompound is a functor with one or more arguments. Lists are
	// '.'/2 compounds terminated by the atom [].
	KindCompound
	// KindVar is a logic variable. Ref points at the bound value, or is nil
	// while the variable is unbound.
	KindVar
)

// Term is a node in a Prolog term graph.
//
// The Functor field is overloaded by kind: atom name, compound functor,
// string payload, or variable name. Only variables are ever mutated (their
// Ref cell), and only under the solver's trail so bindings can be undone on
// backtracking.
type Term struct {
	Kind    Kind
	Functor string
	Int     int64
	Float   float64
	Args    []*Term
	Ref     *Term
}

// Atom returns an atom term.
func Atom(name string) *Term { return &Term{Kind: KindAtom, Functor: name} }

// Int returns an integer term.
func Int(n int64) *Term { return &Term{Kind: KindInt, Int: n} }

// Float returns a float term.
func Float(f float64) *Term { return &Term{Kind: KindFloat, Float: f} }

// String returns a string term.
func String(s string) *Term { return &Term{Kind: KindString, Functor: s} }

// Compound returns a compound term with the given functor and arguments.
func Compound(functor string, args ...*Term) *Term {
	return &Term{Kind: KindCompound, Functor: functor, Args: args}
}

// Var returns a fresh unbound variable with the given name.
func Var(name string) *Term { return &Term{Kind: KindVar, Functor: name} }

// Cons returns the list cell '.'(head, tail).
func Cons(head, tail *Term) *Term { return Compound(".", head, tail) }

// EmptyList returns the atom [].
func EmptyList() *Term { return Atom("[]") }

// Resolve follows variable bindings until it reaches an unbound variable or a
// non-variable term. All inspection of solver output must go through Resolve.
func Resolve(t *Term) *Term {
	for t.Kind == KindVar && t.Ref != nil {
		t = t.Ref
	}
	return t
}

// Indicator returns the predicate indicator (name/arity) for an atom or
// compound term, e.g. "ancestor/2".
func (t *Term) Indicator() string {
	return t.Functor + "/" + strconv.Itoa(len(t.Args))
}

// IsCallable reports whether the term can appear as a goal or clause head.
func (t *Term) IsCallable() bool {
	return t.Kind == KindAtom || t.Kind == KindCompound
}

// =============================================================================
// Term Writing
// =============================================================================

// String renders the term in Prolog-ish syntax. It is used for error details
// and debugging, not for machine consumption.
func (t *Term) String() string {
	var sb strings.Builder
	writeTerm(&sb, t, 0)
	return sb.String()
}

const maxWriteDepth = 64

func writeTerm(sb *strings.Builder, t *Term, depth int) {
	if depth > maxWriteDepth {
		sb.WriteString("...")
		return
	}
	t = Resolve(t)
	switch t.Kind {
	case KindAtom:
		sb.WriteString(t.Functor)
	case KindInt:
		sb.WriteString(strconv.FormatInt(t.Int, 10))
	case KindFloat:
		sb.WriteString(strconv.FormatFloat(t.Float, 'g', -1, 64))
	case KindString:
		sb.WriteString(strconv.Quote(t.Functor))
	case KindVar:
		if t.Functor == "" {
			sb.WriteString("_")
		} else {
			sb.WriteString(t.Functor)
		}
	case KindCompound:
		if t.Functor == "." && len(t.Args) == 2 {
			writeList(sb, t, depth)
			return
		}
		sb.WriteString(t.Functor)
		sb.WriteByte('(')
		for i, a := range t.Args {
			if i > 0 {
				sb.WriteByte(',')
			}
			writeTerm(sb, a, depth+1)
		}
		sb.WriteByte(')')
	}
}

func writeList(sb *strings.Builder, t *Term, depth int) {
	sb.WriteByte('[')
	first := true
	for i := 0; ; i++ {
		if i > maxWriteDepth {
			sb.WriteString("|...")
			break
		}
		t = Resolve(t)
		if t.Kind == KindCompound && t.Functor == "." && len(t.Args) == 2 {
			if !first {
				sb.WriteByte(',')
			}
			writeTerm(sb, t.Args[0], depth+1)
			first = false
			t = t.Args[1]
			continue
		}
		if t.Kind == KindAtom && t.Functor == "[]" {
			break
		}
		sb.WriteByte('|')
		writeTerm(sb, t, depth+1)
		break
	}
	sb.WriteByte(']')
}
