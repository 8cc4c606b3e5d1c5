// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// Tests for the resolution engine

package prolog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// solveAll consults program, proves query, and returns each solution as a
// name -> rendered-term map in backtracking order.
func solveAll(t *testing.T, program, query string) []map[string]string {
	t.Helper()
	m := NewMachine()
	require.NoError(t, m.Consult(program))
	goal, vars, err := ReadQuery(query)
	require.NoError(t, err)

	var out []map[string]string
	err = m.Solve(context.Background(), goal, func() (bool, error) {
		sol := make(map[string]string, len(vars))
		for _, v := range vars {
			sol[v.Functor] = v.String()
		}
		out = append(out, sol)
		return true, nil
	})
	require.NoError(t, err)
	return out
}

// solveErr runs query expecting an engine error, which it returns.
func solveErr(t *testing.T, program, query string) *Error {
	t.Helper()
	m := NewMachine()
	require.NoError(t, m.Consult(program))
	goal, _, err := ReadQuery(query)
	require.NoError(t, err)

	err = m.Solve(context.Background(), goal, func() (bool, error) { return true, nil })
	require.Error(t, err)
	var pe *Error
	require.ErrorAs(t, err, &pe)
	return pe
}

// =============================================================================
// Resolution Tests
// =============================================================================

func TestSolve_FactLookup(t *testing.T) {
	sols := solveAll(t, "parent(john, mary). parent(mary, alice).", "parent(john, Who).")
	require.Len(t, sols, 1)
	assert.Equal(t, "mary", sols[0]["Who"])
}

func TestSolve_AncestorEnumerationOrder(t *testing.T) {
	program := `
parent(john, mary).
parent(mary, alice).
ancestor(X, Y) :- parent(X, Y).
ancestor(X, Y) :- parent(X, Z), ancestor(Z, Y).
`
	sols := solveAll(t, program, "ancestor(john, Who).")
	require.Len(t, sols, 2)
	assert.Equal(t, "mary", sols[0]["Who"])
	assert.Equal(t, "alice", sols[1]["Who"])
}

func TestSolve_ClauseOrderPreserved(t *testing.T) {
	sols := solveAll(t, "p(c). p(a). p(b).", "p(X).")
	require.Len(t, sols, 3)
	assert.Equal(t, "c", sols[0]["X"])
	assert.Equal(t, "a", sols[1]["X"])
	assert.Equal(t, "b", sols[2]["X"])
}

func TestSolve_GroundQuerySucceeds(t *testing.T) {
	sols := solveAll(t, "parent(john, mary).", "parent(john, mary).")
	require.Len(t, sols, 1)
	assert.Empty(t, sols[0])
}

func TestSolve_NoSolutions(t *testing.T) {
	sols := solveAll(t, "parent(john, mary).", "parent(alice, Who).")
	assert.Empty(t, sols)
}

func TestSolve_StopEarly(t *testing.T) {
	m := NewMachine()
	require.NoError(t, m.Consult("p(1). p(2). p(3)."))
	goal, vars, err := ReadQuery("p(X).")
	require.NoError(t, err)

	var got []string
	err = m.Solve(context.Background(), goal, func() (bool, error) {
		got = append(got, vars[0].String())
		return false, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, got)
}

func TestSolve_Append(t *testing.T) {
	program := `
app([], L, L).
app([H|T], L, [H|R]) :- app(T, L, R).
`
	sols := solveAll(t, program, "app(X, Y, [1, 2]).")
	require.Len(t, sols, 3)
	assert.Equal(t, "[]", sols[0]["X"])
	assert.Equal(t, "[1,2]", sols[0]["Y"])
	assert.Equal(t, "[1]", sols[1]["X"])
	assert.Equal(t, "[2]", sols[1]["Y"])
	assert.Equal(t, "[1,2]", sols[2]["X"])
	assert.Equal(t, "[]", sols[2]["Y"])
}

// =============================================================================
// Control Construct Tests
// =============================================================================

func TestSolve_CutCommitsToFirstSolution(t *testing.T) {
	sols := solveAll(t, "p(1). p(2). p(3). first(X) :- p(X), !.", "first(X).")
	require.Len(t, sols, 1)
	assert.Equal(t, "1", sols[0]["X"])
}

func TestSolve_CutPrunesGoalLeftOfIt(t *testing.T) {
	// A top-level cut discards the choice points of goals proved before it,
	// not just the clause alternatives of the predicate containing it.
	sols := solveAll(t, "p(1). p(2). p(3).", "p(X), !.")
	require.Len(t, sols, 1)
	assert.Equal(t, "1", sols[0]["X"])
}

func TestSolve_CutStopsAtPredicateBoundary(t *testing.T) {
	// The cut inside first/1 fixes X but leaves p/1 nondeterministic in the
	// calling clause.
	program := `
p(1). p(2).
first(X) :- p(X), !.
pair(X, Y) :- first(X), p(Y).
`
	sols := solveAll(t, program, "pair(X, Y).")
	require.Len(t, sols, 2)
	assert.Equal(t, "1", sols[0]["X"])
	assert.Equal(t, "1", sols[0]["Y"])
	assert.Equal(t, "1", sols[1]["X"])
	assert.Equal(t, "2", sols[1]["Y"])
}

func TestSolve_CutInMax(t *testing.T) {
	program := `
max(X, Y, X) :- X >= Y, !.
max(_, Y, Y).
`
	sols := solveAll(t, program, "max(3, 2, M).")
	require.Len(t, sols, 1)
	assert.Equal(t, "3", sols[0]["M"])

	sols = solveAll(t, program, "max(1, 5, M).")
	require.Len(t, sols, 1)
	assert.Equal(t, "5", sols[0]["M"])
}

func TestSolve_Disjunction(t *testing.T) {
	sols := solveAll(t, "p(a). q(b).", "p(X) ; q(X).")
	require.Len(t, sols, 2)
	assert.Equal(t, "a", sols[0]["X"])
	assert.Equal(t, "b", sols[1]["X"])
}

func TestSolve_IfThenElse(t *testing.T) {
	program := "sign(X, pos) :- (X > 0 -> true ; fail). sign(X, neg) :- (X > 0 -> fail ; true)."
	sols := solveAll(t, program, "sign(5, S).")
	require.Len(t, sols, 1)
	assert.Equal(t, "pos", sols[0]["S"])

	sols = solveAll(t, program, "sign(-3, S).")
	require.Len(t, sols, 1)
	assert.Equal(t, "neg", sols[0]["S"])
}

func TestSolve_IfThenElseCommitsToFirstCondition(t *testing.T) {
	// The condition is opaque: only its first proof is used.
	sols := solveAll(t, "p(1). p(2).", "(p(X) -> true ; fail).")
	require.Len(t, sols, 1)
	assert.Equal(t, "1", sols[0]["X"])
}

func TestSolve_NegationAsFailure(t *testing.T) {
	sols := solveAll(t, "p(a).", "\\+ p(b).")
	assert.Len(t, sols, 1)

	sols = solveAll(t, "p(a).", "\\+ p(a).")
	assert.Empty(t, sols)
}

func TestSolve_Call(t *testing.T) {
	sols := solveAll(t, "p(a). goal(p(X)).", "goal(G), call(G).")
	require.Len(t, sols, 1)
	assert.Equal(t, "p(a)", sols[0]["G"])
}

// =============================================================================
// Unification and Comparison Tests
// =============================================================================

func TestSolve_Unify(t *testing.T) {
	sols := solveAll(t, "p(a).", "X = f(Y), Y = 1.")
	require.Len(t, sols, 1)
	assert.Equal(t, "f(1)", sols[0]["X"])
	assert.Equal(t, "1", sols[0]["Y"])
}

func TestSolve_NotUnifiable(t *testing.T) {
	assert.Len(t, solveAll(t, "p(a).", "a \\= b."), 1)
	assert.Empty(t, solveAll(t, "p(a).", "a \\= a."))
}

func TestSolve_StructuralEquality(t *testing.T) {
	assert.Len(t, solveAll(t, "p(a).", "f(a, 1) == f(a, 1)."), 1)
	// Two distinct unbound variables are not structurally equal.
	assert.Empty(t, solveAll(t, "p(a).", "X == Y."))
	assert.Len(t, solveAll(t, "p(a).", "X \\== Y."), 1)
}

func TestSolve_AtomStringDistinct(t *testing.T) {
	// A double-quoted string never unifies with the same-spelled atom.
	assert.Empty(t, solveAll(t, "p(a).", `mary = "mary".`))
	assert.Len(t, solveAll(t, "p(a).", `"mary" = "mary".`), 1)
}

func TestSolve_TypeChecks(t *testing.T) {
	assert.Len(t, solveAll(t, "p(a).", "var(X)."), 1)
	assert.Empty(t, solveAll(t, "p(a).", "var(a)."))
	assert.Len(t, solveAll(t, "p(a).", "nonvar(a)."), 1)
	assert.Len(t, solveAll(t, "p(a).", "atom(a)."), 1)
	assert.Empty(t, solveAll(t, "p(a).", "atom(42)."))
	assert.Len(t, solveAll(t, "p(a).", "number(42)."), 1)
	assert.Len(t, solveAll(t, "p(a).", "number(2.5)."), 1)
}

// =============================================================================
// Arithmetic Tests
// =============================================================================

func TestSolve_Arithmetic(t *testing.T) {
	sols := solveAll(t, "p(a).", "X is 2 + 3 * 4.")
	require.Len(t, sols, 1)
	assert.Equal(t, "14", sols[0]["X"])
}

func TestSolve_IntegerDivisionAndMod(t *testing.T) {
	sols := solveAll(t, "p(a).", "X is 7 // 2, Y is 7 mod 2.")
	require.Len(t, sols, 1)
	assert.Equal(t, "3", sols[0]["X"])
	assert.Equal(t, "1", sols[0]["Y"])
}

func TestSolve_DivisionStaysExact(t *testing.T) {
	sols := solveAll(t, "p(a).", "X is 4 / 2, Y is 1 / 2.")
	require.Len(t, sols, 1)
	assert.Equal(t, "2", sols[0]["X"])
	assert.Equal(t, "0.5", sols[0]["Y"])
}

func TestSolve_ArithmeticComparisons(t *testing.T) {
	assert.Len(t, solveAll(t, "p(a).", "1 < 2, 2 =< 2, 3 > 1, 3 >= 3, 1 =:= 1.0, 1 =\\= 2."), 1)
	assert.Empty(t, solveAll(t, "p(a).", "2 < 1."))
}

func TestSolve_DivisionByZero(t *testing.T) {
	pe := solveErr(t, "p(a).", "X is 1 // 0.")
	assert.Equal(t, CodeEvaluation, pe.Code)
}

func TestSolve_IntegerOverflow(t *testing.T) {
	pe := solveErr(t, "p(a).", "X is 9223372036854775807 + 1.")
	assert.Equal(t, CodeEvaluation, pe.Code)
	assert.Contains(t, pe.Detail, "overflow")

	pe = solveErr(t, "p(a).", "X is -9223372036854775807 - 2.")
	assert.Equal(t, CodeEvaluation, pe.Code)

	pe = solveErr(t, "p(a).", "X is 9223372036854775807 * 2.")
	assert.Equal(t, CodeEvaluation, pe.Code)
}

func TestSolve_UnboundArithmetic(t *testing.T) {
	pe := solveErr(t, "p(a).", "X is Y + 1.")
	assert.Equal(t, CodeInstantiation, pe.Code)
}

// =============================================================================
// Failure Mode Tests
// =============================================================================

func TestSolve_UnknownPredicate(t *testing.T) {
	pe := solveErr(t, "p(a).", "missing(X).")
	assert.Equal(t, CodeExistence, pe.Code)
	assert.Contains(t, pe.Detail, "missing/1")
}

func TestSolve_UnboundGoal(t *testing.T) {
	pe := solveErr(t, "p(a).", "call(X).")
	assert.Equal(t, CodeInstantiation, pe.Code)
}

func TestSolve_DepthLimit(t *testing.T) {
	pe := solveErr(t, "loop :- loop.", "loop.")
	assert.Equal(t, CodeDepthLimit, pe.Code)
}

func TestSolve_ContextCancellation(t *testing.T) {
	// An exponential search space with shallow depth: backtracking explores
	// 2^64 bit lists, so only the deadline can end the run.
	program := `
b(0). b(1).
gen(0, []).
gen(N, [B|T]) :- N > 0, b(B), M is N - 1, gen(M, T).
`
	m := NewMachine()
	require.NoError(t, m.Consult(program))
	goal, _, err := ReadQuery("gen(64, L), fail.")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err = m.Solve(ctx, goal, func() (bool, error) { return true, nil })
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestConsult_RefusesBuiltinRedefinition(t *testing.T) {
	m := NewMachine()
	err := m.Consult("=(a, b).")
	require.Error(t, err)
	var pe *Error
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, CodePermission, pe.Code)
}

func TestMachine_Predicates(t *testing.T) {
	m := NewMachine()
	require.NoError(t, m.Consult("b(1). a(1). b(2)."))
	assert.Equal(t, []string{"b/1", "a/1"}, m.Predicates())
}

// =============================================================================
// Isolation Tests
// =============================================================================

func TestMachines_DoNotShareClauses(t *testing.T) {
	m1 := NewMachine()
	require.NoError(t, m1.Consult("p(a)."))
	m2 := NewMachine()
	require.NoError(t, m2.Consult("p(b)."))

	goal, vars, err := ReadQuery("p(X).")
	require.NoError(t, err)
	var got string
	err = m2.Solve(context.Background(), goal, func() (bool, error) {
		got = vars[0].String()
		return false, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "b", got)
}
