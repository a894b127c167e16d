// Copyright Consensys Software Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0
package verifier

import (
	"math/big"
	"testing"
	"time"

	"github.com/consensys/go-civer/pkg/civer/ast"
	"github.com/consensys/go-civer/pkg/civer/smt"
	"github.com/consensys/go-civer/pkg/civer/smt/enumsolver"
	"github.com/consensys/go-civer/pkg/civer/tree"
	"github.com/consensys/go-civer/pkg/util/source"
)

func lc(constant int64, terms map[ast.SignalID]int64) tree.LinearCombination {
	out := tree.NewLinearCombination()
	out.Constant = big.NewInt(constant)

	for s, c := range terms {
		out.Terms[s] = big.NewInt(c)
	}

	return out
}

func sp() source.Span { return source.NewSpan(0, 0) }

func sig(id ast.SignalID) ast.Expression { return ast.NewSignal(id, sp()) }
func lit(v int64) ast.Expression         { return ast.NewLiteral(big.NewInt(v), sp()) }

func infix(op ast.InfixOp, l, r ast.Expression) ast.Expression {
	return ast.NewInfix(op, l, r, sp())
}

func testConfig(p int64) Config {
	return Config{
		Prime:               big.NewInt(p),
		Timeout:             10 * time.Second,
		CheckTags:           true,
		CheckPostconditions: true,
		CheckSafety:         true,
	}
}

// isZeroNode builds the IsZero template over GF(3): input in (signal 1),
// output out (signal 2), intermediate inv (signal 3), constrained by
// in*inv = 1 - out and in*out = 0.
func isZeroNode(id tree.NodeID, postconditions []ast.Expression) *tree.Node {
	return &tree.Node{
		TemplateName:  "IsZero",
		DisplayName:   "IsZero",
		ID:            id,
		NumberInputs:  1,
		NumberOutputs: 1,
		NumberSignals: 3,
		InitialSignal: 1,
		Constraints: []tree.Constraint{
			{Name: "inv", A: lc(0, map[ast.SignalID]int64{1: 1}), B: lc(0, map[ast.SignalID]int64{3: 1}), C: lc(1, map[ast.SignalID]int64{2: 2})},
			{Name: "zero", A: lc(0, map[ast.SignalID]int64{1: 1}), B: lc(0, map[ast.SignalID]int64{2: 1}), C: lc(0, nil)},
		},
		Annotations: tree.Annotations{PostconditionsOutputs: postconditions},
	}
}

func TestIsZeroVerifies(t *testing.T) {
	// out*(out-1) = 0 and (out = 1) <-> (in = 0), the canonical IsZero
	// contract.
	booleanOut := infix(ast.Eq, infix(ast.Mul, sig(2), infix(ast.Sub, sig(2), lit(1))), lit(0))
	iff := infix(ast.Eq, infix(ast.Eq, sig(2), lit(1)), infix(ast.Eq, sig(1), lit(0)))
	n := isZeroNode(1, []ast.Expression{infix(ast.And, booleanOut, iff)})

	reports := New(enumsolver.NewSolver(0), testConfig(3)).Verify(n)

	rep, ok := reports[1]
	if !ok {
		t.Fatal("missing report for IsZero")
	}

	if rep.Verdicts.Postconditions != tree.VERIFIED {
		t.Errorf("postconditions: expected VERIFIED, got %s", rep.Verdicts.Postconditions)
	}

	if rep.Verdicts.Safety != tree.VERIFIED {
		t.Errorf("safety: expected VERIFIED, got %s", rep.Verdicts.Safety)
	}

	// No tag postconditions were declared.
	if rep.Verdicts.Tags != tree.NOTHING {
		t.Errorf("tags: expected NOTHING, got %s", rep.Verdicts.Tags)
	}
}

func TestNum2BitsVerifies(t *testing.T) {
	// Num2Bits(2) over GF(5): input in (1), outputs b0 (2) and b1 (3).
	// b0*(b0-1) = 0 and b1*(b1-1) = 0 are integrity-domain constraints the
	// bound propagator captures; b0 + 2*b1 = in does the decomposition.
	n := &tree.Node{
		TemplateName:  "Num2Bits",
		DisplayName:   "Num2Bits(2)",
		ID:            1,
		NumberInputs:  1,
		NumberOutputs: 2,
		NumberSignals: 3,
		InitialSignal: 1,
		Constraints: []tree.Constraint{
			{Name: "b0", A: lc(0, map[ast.SignalID]int64{2: 1}), B: lc(4, map[ast.SignalID]int64{2: 1}), C: lc(0, nil)},
			{Name: "b1", A: lc(0, map[ast.SignalID]int64{3: 1}), B: lc(4, map[ast.SignalID]int64{3: 1}), C: lc(0, nil)},
			{Name: "sum", A: lc(0, map[ast.SignalID]int64{2: 1, 3: 2}), B: lc(1, nil), C: lc(0, map[ast.SignalID]int64{1: 1})},
		},
		Annotations: tree.Annotations{
			Preconditions: []ast.Expression{
				infix(ast.And, infix(ast.Leq, lit(0), sig(1)), infix(ast.Leq, sig(1), lit(3))),
			},
			PostconditionsOutputs: []ast.Expression{
				infix(ast.And, infix(ast.Leq, sig(2), lit(1)), infix(ast.Leq, sig(3), lit(1))),
			},
		},
	}

	reports := New(enumsolver.NewSolver(0), testConfig(5)).Verify(n)
	rep := reports[1]

	if rep.Verdicts.Postconditions != tree.VERIFIED {
		t.Errorf("postconditions: expected VERIFIED, got %s", rep.Verdicts.Postconditions)
	}

	if rep.Verdicts.Safety != tree.VERIFIED {
		t.Errorf("safety: expected VERIFIED, got %s", rep.Verdicts.Safety)
	}
}

// selectorNode builds out = s*a + (1-s)*b over GF(3), in R1CS form
// s*(a-b) = out-b: inputs s (1), a (2), b (3); output out (4).
func selectorNode(post []ast.Expression) *tree.Node {
	return &tree.Node{
		TemplateName:  "Selector",
		DisplayName:   "Selector",
		ID:            1,
		NumberInputs:  3,
		NumberOutputs: 1,
		NumberSignals: 4,
		InitialSignal: 1,
		Constraints: []tree.Constraint{
			{Name: "select", A: lc(0, map[ast.SignalID]int64{1: 1}), B: lc(0, map[ast.SignalID]int64{2: 1, 3: 2}), C: lc(0, map[ast.SignalID]int64{4: 1, 3: 2})},
		},
		Annotations: tree.Annotations{PostconditionsOutputs: post},
	}
}

func TestSelectorGuardedPostconditionVerifies(t *testing.T) {
	guard := infix(ast.Eq, infix(ast.Mul, sig(1), infix(ast.Sub, sig(1), lit(1))), lit(0))
	choice := infix(ast.Or, infix(ast.Eq, sig(4), sig(2)), infix(ast.Eq, sig(4), sig(3)))
	n := selectorNode([]ast.Expression{infix(ast.Implies, guard, choice)})

	cfg := testConfig(3)
	cfg.CheckSafety = false
	cfg.CheckTags = false

	rep := New(enumsolver.NewSolver(0), cfg).Verify(n)[1]

	if rep.Verdicts.Postconditions != tree.VERIFIED {
		t.Errorf("expected VERIFIED, got %s", rep.Verdicts.Postconditions)
	}
}

func TestSelectorUnguardedPostconditionFails(t *testing.T) {
	choice := infix(ast.Or, infix(ast.Eq, sig(4), sig(2)), infix(ast.Eq, sig(4), sig(3)))
	n := selectorNode([]ast.Expression{choice})

	cfg := testConfig(3)
	cfg.CheckSafety = false
	cfg.CheckTags = false

	rep := New(enumsolver.NewSolver(0), cfg).Verify(n)[1]

	if rep.Verdicts.Postconditions != tree.FAILED {
		t.Fatalf("expected FAILED, got %s", rep.Verdicts.Postconditions)
	}

	if len(rep.Counterexamples) == 0 {
		t.Fatal("expected a counterexample exhibiting a non-boolean selector")
	}
}

func TestSquareRootSafetyFails(t *testing.T) {
	// out*out = in has two roots for every quadratic residue, so outputs
	// are not a function of inputs.
	n := &tree.Node{
		TemplateName:  "Sqrt",
		DisplayName:   "Sqrt",
		ID:            1,
		NumberInputs:  1,
		NumberOutputs: 1,
		NumberSignals: 2,
		InitialSignal: 1,
		Constraints: []tree.Constraint{
			{Name: "square", A: lc(0, map[ast.SignalID]int64{2: 1}), B: lc(0, map[ast.SignalID]int64{2: 1}), C: lc(0, map[ast.SignalID]int64{1: 1})},
		},
	}

	cfg := testConfig(3)
	cfg.CheckTags = false
	cfg.CheckPostconditions = false

	rep := New(enumsolver.NewSolver(0), cfg).Verify(n)[1]

	if rep.Verdicts.Safety != tree.FAILED {
		t.Fatalf("expected FAILED, got %s", rep.Verdicts.Safety)
	}
}

// countingSolver counts how many contexts the verifier opened.
type countingSolver struct {
	inner    smt.Solver
	contexts int
}

func (c *countingSolver) NewContext(timeout time.Duration) smt.Context {
	c.contexts++
	return c.inner.NewContext(timeout)
}

func TestEmptyObligationsNeedNoSolver(t *testing.T) {
	n := &tree.Node{
		TemplateName:  "Empty",
		DisplayName:   "Empty",
		ID:            1,
		NumberInputs:  1,
		NumberSignals: 1,
		InitialSignal: 1,
	}

	cfg := testConfig(3)
	cfg.CheckSafety = true

	solver := &countingSolver{inner: enumsolver.NewSolver(0)}
	rep := New(solver, cfg).Verify(n)[1]

	if rep.Verdicts.Tags != tree.NOTHING || rep.Verdicts.Postconditions != tree.NOTHING {
		t.Errorf("expected NOTHING verdicts, got %s/%s", rep.Verdicts.Tags, rep.Verdicts.Postconditions)
	}

	// No outputs means the safety obligation is vacuous as well.
	if rep.Verdicts.Safety != tree.NOTHING {
		t.Errorf("expected NOTHING safety verdict, got %s", rep.Verdicts.Safety)
	}

	if solver.contexts != 0 {
		t.Errorf("expected zero solver contexts, got %d", solver.contexts)
	}
}

// copyNodeAt builds a two-signal wire template (in -> out) rooted at the
// given signal offset.
func copyNodeAt(id tree.NodeID, initial ast.SignalID) *tree.Node {
	return &tree.Node{
		TemplateName:  "Copy",
		DisplayName:   "Copy",
		ID:            id,
		NumberInputs:  1,
		NumberOutputs: 1,
		NumberSignals: 2,
		InitialSignal: initial,
		Constraints: []tree.Constraint{
			{Name: "wire", A: lc(0, map[ast.SignalID]int64{initial: 1}), B: lc(1, nil), C: lc(0, map[ast.SignalID]int64{initial + 1: 1})},
		},
	}
}

func TestStructurallyIdenticalChildrenVerifyOnce(t *testing.T) {
	// Two instances of the same template share node_id 2 and must be
	// verified once; the root has no outputs and no postconditions, so
	// every solver context belongs to the single child verification.
	root := &tree.Node{
		TemplateName:  "Main",
		DisplayName:   "Main",
		ID:            1,
		NumberInputs:  1,
		NumberSignals: 1,
		InitialSignal: 1,
		Children: []*tree.Node{
			copyNodeAt(2, 2),
			copyNodeAt(2, 4),
		},
	}

	cfg := testConfig(3)
	cfg.CheckTags = false
	cfg.CheckPostconditions = false

	solver := &countingSolver{inner: enumsolver.NewSolver(0)}
	reports := New(solver, cfg).Verify(root)

	if len(reports) != 2 {
		t.Fatalf("expected reports for 2 unique node ids, got %d", len(reports))
	}

	if got := reports[2].Verdicts.Safety; got != tree.VERIFIED {
		t.Errorf("child safety: expected VERIFIED, got %s", got)
	}

	// Exactly one safety context for the memoized child, none for the root.
	if solver.contexts != 1 {
		t.Errorf("expected 1 solver context, got %d", solver.contexts)
	}
}

// scriptedSolver replays a fixed sequence of check outcomes, one per
// context, regardless of what was asserted.
type scriptedSolver struct {
	results []smt.Result
	next    int
}

type scriptedContext struct {
	result smt.Result
}

type scriptedModel struct{}

func (scriptedModel) Eval(smt.IntTerm) *big.Int { return big.NewInt(0) }

func (s *scriptedSolver) NewContext(time.Duration) smt.Context {
	if s.next >= len(s.results) {
		panic("scriptedSolver: ran out of scripted results")
	}

	ctx := &scriptedContext{result: s.results[s.next]}
	s.next++

	return ctx
}

func (c *scriptedContext) IntConst(name string) smt.IntTerm    { return &smt.Var{Name: name} }
func (c *scriptedContext) IntLiteral(v *big.Int) smt.IntTerm   { return smt.NewConst(v) }
func (c *scriptedContext) Assert(smt.Formula)                  {}
func (c *scriptedContext) Check() (smt.Result, smt.Model) {
	if c.result == smt.Sat {
		return smt.Sat, scriptedModel{}
	}

	return c.result, nil
}

func TestSpuriousFailureRetriesAfterExpansion(t *testing.T) {
	// A counterexample found while the child is only summarised is not
	// final: the verifier must inline the child's constraints and re-check.
	child := copyNodeAt(2, 3)
	root := &tree.Node{
		TemplateName:  "Main",
		DisplayName:   "Main",
		ID:            1,
		NumberInputs:  1,
		NumberOutputs: 1,
		NumberSignals: 2,
		InitialSignal: 1,
		Constraints: []tree.Constraint{
			{Name: "wire-in", A: lc(0, map[ast.SignalID]int64{1: 1}), B: lc(1, nil), C: lc(0, map[ast.SignalID]int64{3: 1})},
			{Name: "wire-out", A: lc(0, map[ast.SignalID]int64{4: 1}), B: lc(1, nil), C: lc(0, map[ast.SignalID]int64{2: 1})},
		},
		Children: []*tree.Node{child},
	}

	cfg := testConfig(3)
	cfg.CheckTags = false
	cfg.CheckPostconditions = false

	// Child safety: Unsat. Root safety round 1: Sat (spurious). Root safety
	// round 2, after the child's constraints are inlined: Unsat.
	solver := &scriptedSolver{results: []smt.Result{smt.Unsat, smt.Sat, smt.Unsat}}

	rep := New(solver, cfg).Verify(root)[1]

	if rep.Verdicts.Safety != tree.VERIFIED {
		t.Errorf("expected VERIFIED after expansion, got %s", rep.Verdicts.Safety)
	}

	if rep.Rounds != 2 {
		t.Errorf("expected 2 rounds, got %d", rep.Rounds)
	}

	if len(rep.Counterexamples) != 0 {
		t.Errorf("expected the spurious counterexample to be discarded, got %v", rep.Counterexamples)
	}

	if solver.next != len(solver.results) {
		t.Errorf("expected all %d scripted results consumed, got %d", len(solver.results), solver.next)
	}
}

func TestSearchSpaceOverflowReportsUnknown(t *testing.T) {
	n := isZeroNode(1, nil)

	cfg := testConfig(3)
	cfg.CheckTags = false
	cfg.CheckPostconditions = false

	// A two-combination budget cannot enumerate anything useful; the
	// obligation must surface UNKNOWN rather than a guess, and the run
	// must still complete.
	rep := New(enumsolver.NewSolver(2), cfg).Verify(n)[1]

	if rep.Verdicts.Safety != tree.UNKNOWN {
		t.Errorf("expected UNKNOWN, got %s", rep.Verdicts.Safety)
	}
}
