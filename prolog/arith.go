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

import "math"

// eval reduces an arithmetic expression to an integer or float term.
func (m *Machine) eval(t *Term) (*Term, error) {
	t = Resolve(t)
	switch t.Kind {
	case KindInt, KindFloat:
		return t, nil
	case KindVar:
		return nil, instantiationError("arithmetic expression")
	case KindAtom:
		switch t.Functor {
		case "pi":
			return Float(math.Pi), nil
		case "e":
			return Float(math.E), nil
		}
		return nil, typeError("evaluable expression", t)
	case KindString:
		return nil, typeError("evaluable expression", t)
	}

	switch len(t.Args) {
	case 1:
		a, err := m.eval(t.Args[0])
		if err != nil {
			return nil, err
		}
		return evalUnary(t.Functor, a)
	case 2:
		a, err := m.eval(t.Args[0])
		if err != nil {
			return nil, err
		}
		b, err := m.eval(t.Args[1])
		if err != nil {
			return nil, err
		}
		return evalBinary(t.Functor, a, b)
	}
	return nil, typeError("evaluable expression", t)
}

func evalUnary(op string, a *Term) (*Term, error) {
	switch op {
	case "-":
		if a.Kind == KindInt {
			if a.Int == math.MinInt64 {
				return nil, errIntOverflow
			}
			return Int(-a.Int), nil
		}
		return Float(-a.Float), nil
	case "+":
		return a, nil
	case "abs":
		if a.Kind == KindInt {
			if a.Int == math.MinInt64 {
				return nil, errIntOverflow
			}
			if a.Int < 0 {
				return Int(-a.Int), nil
			}
			return a, nil
		}
		return Float(math.Abs(a.Float)), nil
	case "sign":
		if a.Kind == KindInt {
			switch {
			case a.Int > 0:
				return Int(1), nil
			case a.Int < 0:
				return Int(-1), nil
			}
			return Int(0), nil
		}
		switch {
		case a.Float > 0:
			return Float(1), nil
		case a.Float < 0:
			return Float(-1), nil
		}
		return Float(0), nil
	case "float":
		return Float(asFloat(a)), nil
	case "truncate":
		return Int(int64(asFloat(a))), nil
	case "sqrt":
		f := asFloat(a)
		if f < 0 {
			return nil, evaluationError("sqrt of negative number")
		}
		return Float(math.Sqrt(f)), nil
	}
	return nil, typeError("evaluable expression", Compound(op, a))
}

func evalBinary(op string, a, b *Term) (*Term, error) {
	bothInt := a.Kind == KindInt && b.Kind == KindInt
	switch op {
	case "+":
		if bothInt {
			return addInt(a.Int, b.Int)
		}
		return Float(asFloat(a) + asFloat(b)), nil
	case "-":
		if bothInt {
			return subInt(a.Int, b.Int)
		}
		return Float(asFloat(a) - asFloat(b)), nil
	case "*":
		if bothInt {
			return mulInt(a.Int, b.Int)
		}
		return Float(asFloat(a) * asFloat(b)), nil
	case "/":
		if bothInt {
			if b.Int == 0 {
				return nil, evaluationError("zero divisor")
			}
			if a.Int == math.MinInt64 && b.Int == -1 {
				return nil, errIntOverflow
			}
			if a.Int%b.Int == 0 {
				return Int(a.Int / b.Int), nil
			}
			return Float(float64(a.Int) / float64(b.Int)), nil
		}
		if asFloat(b) == 0 {
			return nil, evaluationError("zero divisor")
		}
		return Float(asFloat(a) / asFloat(b)), nil
	case "//":
		if !bothInt {
			return nil, typeError("integer", pickFloat(a, b))
		}
		if b.Int == 0 {
			return nil, evaluationError("zero divisor")
		}
		if a.Int == math.MinInt64 && b.Int == -1 {
			return nil, errIntOverflow
		}
		return Int(a.Int / b.Int), nil
	case "mod":
		if !bothInt {
			return nil, typeError("integer", pickFloat(a, b))
		}
		if b.Int == 0 {
			return nil, evaluationError("zero divisor")
		}
		r := a.Int % b.Int
		// Prolog mod takes the sign of the divisor.
		if r != 0 && (r < 0) != (b.Int < 0) {
			r += b.Int
		}
		return Int(r), nil
	case "min":
		if compareNumbers(a, b) <= 0 {
			return a, nil
		}
		return b, nil
	case "max":
		if compareNumbers(a, b) >= 0 {
			return a, nil
		}
		return b, nil
	}
	return nil, typeError("evaluable expression", Compound(op, a, b))
}

// errIntOverflow is raised instead of letting 64-bit arithmetic wrap
// silently; the engine has no bignums.
var errIntOverflow = evaluationError("integer overflow")

func addInt(a, b int64) (*Term, error) {
	if (b > 0 && a > math.MaxInt64-b) || (b < 0 && a < math.MinInt64-b) {
		return nil, errIntOverflow
	}
	return Int(a + b), nil
}

func subInt(a, b int64) (*Term, error) {
	if (b < 0 && a > math.MaxInt64+b) || (b > 0 && a < math.MinInt64+b) {
		return nil, errIntOverflow
	}
	return Int(a - b), nil
}

func mulInt(a, b int64) (*Term, error) {
	if a == 0 || b == 0 {
		return Int(0), nil
	}
	if (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
		return nil, errIntOverflow
	}
	p := a * b
	if p/b != a {
		return nil, errIntOverflow
	}
	return Int(p), nil
}

func asFloat(t *Term) float64 {
	if t.Kind == KindInt {
		return float64(t.Int)
	}
	return t.Float
}

func pickFloat(a, b *Term) *Term {
	if a.Kind == KindFloat {
		return a
	}
	return b
}

// compareNumbers orders two numeric terms, promoting integers to floats when
// the kinds differ.
func compareNumbers(a, b *Term) int {
	if a.Kind == KindInt && b.Kind == KindInt {
		switch {
		case a.Int < b.Int:
			return -1
		case a.Int > b.Int:
			return 1
		}
		return 0
	}
	af, bf := asFloat(a), asFloat(b)
	switch {
	case af < bf:
		return -1
	case af > bf:
		return 1
	}
	return 0
}
