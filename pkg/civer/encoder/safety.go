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
package encoder

import (
	"math/big"

	log "github.com/sirupsen/logrus"

	"github.com/consensys/go-civer/pkg/civer/eval"
	"github.com/consensys/go-civer/pkg/civer/smt"
	"github.com/consensys/go-civer/pkg/civer/tree"
)

// encodeSafety builds the weak-safety (determinism) query for req.Node: a
// primed duplicate of every non-input signal and
// constraint, the homologue lemma connecting unprimed and primed A*B=C
// triples, any child safety implications, and the negated safety goal
// ⋁ output_s != output_s' (unprimed and primed agree on inputs but the
// solver is asked to find a disagreement on some output).
func encodeSafety(ctx smt.Context, req Request, env eval.Env, cfg Config) (smt.Formula, bool) {
	n := req.Node
	p := cfg.Prime

	primedEnv := declarePrimedSignals(ctx, n, req.signalSet(), req.Bounds, p)

	// Primed inputs are the same variables as unprimed inputs (declareSignals
	// already asserted their bounds); the safety hypothesis is implicit in
	// sharing the variable, not an extra equation.
	for _, s := range n.InputSignals() {
		primedEnv[s] = env[s]
	}

	encodeConstraintsPrefixed(ctx, primedEnv, req.Bounds, req.Constraints, cfg, "p_")

	for _, c := range req.Constraints {
		encodeHomologueLemma(ctx, env, primedEnv, c, p)
	}

	for _, impl := range req.ChildSafetyImplications {
		encodeChildSafetyImplication(ctx, impl, env, primedEnv)
	}

	for _, impl := range req.ChildImplications {
		encodeChildImplication(ctx, impl, primedEnv, p)
	}

	return negatedSafetyQuery(n, env, primedEnv)
}

// encodeHomologueLemma strengthens the primed re-encoding of one constraint
// with the three rules relating an unprimed triple (A,B,C) to its primed
// counterpart (A',B',C'): the main congruence A=A' ∧ B=B' ⇒ C=C', plus the
// two symmetric rules that fire when one side is already known nonzero
// (A=A' ∧ C=C' ∧ A!=0 ⇒ B=B', and its B/A mirror), which let the lemma
// propagate equality even when the multiplication itself can't be inverted
// in general.
func encodeHomologueLemma(ctx smt.Context, env, primedEnv eval.Env, c tree.Constraint, p *big.Int) {
	termA := linearComboTerm(c.A, env, p)
	termB := linearComboTerm(c.B, env, p)
	termC := linearComboTerm(c.C, env, p)

	primedA := linearComboTerm(c.A, primedEnv, p)
	primedB := linearComboTerm(c.B, primedEnv, p)
	primedC := linearComboTerm(c.C, primedEnv, p)

	aEq := smt.NewEq(termA, primedA)
	bEq := smt.NewEq(termB, primedB)
	cEq := smt.NewEq(termC, primedC)

	ctx.Assert(smt.Connect(smt.OpImplies, smt.Connect(smt.OpAnd, aEq, bEq), cEq))

	aNonzero := smt.NewNot(smt.NewEq(termA, smt.Zero()))
	bNonzero := smt.NewNot(smt.NewEq(termB, smt.Zero()))

	ctx.Assert(smt.Connect(smt.OpImplies,
		smt.Connect(smt.OpAnd, smt.Connect(smt.OpAnd, aEq, cEq), aNonzero),
		bEq))

	ctx.Assert(smt.Connect(smt.OpImplies,
		smt.Connect(smt.OpAnd, smt.Connect(smt.OpAnd, bEq, cEq), bNonzero),
		aEq))
}

func encodeChildSafetyImplication(ctx smt.Context, impl tree.SafetyImplication, env, primedEnv eval.Env) {
	hyps := make([]smt.Formula, 0, len(impl.Inputs))

	for _, s := range impl.Inputs {
		hyps = append(hyps, smt.NewEq(env[s], primedEnv[s]))
	}

	concls := make([]smt.Formula, 0, len(impl.Outputs))

	for _, s := range impl.Outputs {
		concls = append(concls, smt.NewEq(env[s], primedEnv[s]))
	}

	if len(concls) == 0 {
		return
	}

	ctx.Assert(smt.Connect(smt.OpImplies, smt.FoldAnd(hyps), smt.FoldAnd(concls)))
}

func negatedSafetyQuery(n *tree.Node, env, primedEnv eval.Env) (smt.Formula, bool) {
	disagreements := make([]smt.Formula, 0, len(n.OutputSignals()))

	for _, s := range n.OutputSignals() {
		disagreements = append(disagreements, smt.NewNot(smt.NewEq(env[s], primedEnv[s])))
	}

	if len(disagreements) == 0 {
		log.Warnf("civer: %s has no output signals, safety obligation reports NOTHING upstream", n.DisplayName)
		return nil, false
	}

	return smt.FoldOr(disagreements), true
}
