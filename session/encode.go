// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package session

import "github.com/jinterlante1206/AleutianProlog/prolog"

// maxEncodeDepth caps term nesting during encoding. Unification without an
// occurs check can build cyclic terms (X = f(X)); the cap turns those into a
// truncation marker instead of unbounded recursion.
const maxEncodeDepth = 4096

// maxEncodeItems caps list length during encoding, guarding against cyclic
// lists such as X = [1|X].
const maxEncodeItems = 100_000

// EncodeTerm converts a term into engine-independent, JSON-safe data. It is
// a pure function of the term's structure at the moment of the call and
// copies everything out of engine-owned cells, so the result stays valid
// after backtracking rebinds variables or the machine is discarded.
//
// The mapping keeps Prolog's type distinctions visible to clients:
//
//	atom mary        -> {"atom": "mary"}
//	42, 3.14         -> 42, 3.14
//	"mary"           -> "mary"
//	unbound X        -> {"unbound": "X"}
//	[a, 1]           -> [{"atom":"a"}, 1]
//	[a|T] (partial)  -> {"list": [...], "tail": {"unbound":"T"}}
//	foo(bar, 1)      -> {"functor": "foo", "args": [...]}
func EncodeTerm(t *prolog.Term) any {
	return encodeTerm(t, 0)
}

func encodeTerm(t *prolog.Term, depth int) any {
	if depth > maxEncodeDepth {
		return map[string]any{"truncated": true}
	}
	t = prolog.Resolve(t)
	switch t.Kind {
	case prolog.KindAtom:
		if t.Functor == "[]" {
			// The empty list is an atom in the engine but a list on the wire.
			return []any{}
		}
		return map[string]any{"atom": t.Functor}
	case prolog.KindInt:
		return t.Int
	case prolog.KindFloat:
		return t.Float
	case prolog.KindString:
		return t.Functor
	case prolog.KindVar:
		return map[string]any{"unbound": t.Functor}
	case prolog.KindCompound:
		if t.Functor == "." && len(t.Args) == 2 {
			return encodeList(t, depth)
		}
		args := make([]any, len(t.Args))
		for i, a := range t.Args {
			args[i] = encodeTerm(a, depth+1)
		}
		return map[string]any{"functor": t.Functor, "args": args}
	}
	return map[string]any{"unbound": "_"}
}

// encodeList walks a '.'/2 chain iteratively. Proper lists collapse to a
// JSON array; improper and partial lists keep an explicit tail.
func encodeList(t *prolog.Term, depth int) any {
	elems := make([]any, 0, 8)
	for i := 0; ; i++ {
		if i > maxEncodeItems {
			return map[string]any{"list": elems, "tail": map[string]any{"truncated": true}}
		}
		t = prolog.Resolve(t)
		if t.Kind == prolog.KindCompound && t.Functor == "." && len(t.Args) == 2 {
			elems = append(elems, encodeTerm(t.Args[0], depth+1))
			t = t.Args[1]
			continue
		}
		if t.Kind == prolog.KindAtom && t.Functor == "[]" {
			return elems
		}
		return map[string]any{"list": elems, "tail": encodeTerm(t, depth+1)}
	}
}
