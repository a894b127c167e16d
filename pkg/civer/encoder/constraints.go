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
	"sort"
	"strconv"

	"github.com/consensys/go-civer/pkg/civer/ast"
	"github.com/consensys/go-civer/pkg/civer/bounds"
	"github.com/consensys/go-civer/pkg/civer/eval"
	"github.com/consensys/go-civer/pkg/civer/field"
	"github.com/consensys/go-civer/pkg/civer/smt"
	"github.com/consensys/go-civer/pkg/civer/tree"
)

// encodeConstraints lowers every remaining (Rule-A-uncaptured) R1CS
// constraint A*B=C into the quotient-lifted integer equation
// valC - valA*valB = k*p, asserting a domain bound on k and, unless the
// domain pins k to a single value, the disjunctive consistency lemma. It
// reports whether any constraint's quotient domain exceeded
// the configured limit, in which case the caller reports TOO_BIG rather than
// trusting an under-approximated encoding.
func encodeConstraints(ctx smt.Context, env eval.Env, b bounds.Bounds, constraints []tree.Constraint, cfg Config) bool {
	return encodeConstraintsPrefixed(ctx, env, b, constraints, cfg, "")
}

// encodeConstraintsPrefixed is encodeConstraints with an explicit
// quotient-variable name prefix, so the safety obligation's primed
// re-encoding of the same constraint list does not
// collide with the unprimed encoding's quotient variables in the same
// Context.
func encodeConstraintsPrefixed(ctx smt.Context, env eval.Env, b bounds.Bounds, constraints []tree.Constraint, cfg Config, prefix string) bool {
	tooBig := false

	for i, c := range constraints {
		if encodeConstraint(ctx, env, b, c, prefix, i, cfg) {
			tooBig = true
		}
	}

	return tooBig
}

func encodeConstraint(ctx smt.Context, env eval.Env, b bounds.Bounds, c tree.Constraint, prefix string, index int, cfg Config) bool {
	p := cfg.Prime

	termA := linearComboTerm(c.A, env, p)
	termB := linearComboTerm(c.B, env, p)
	termC := linearComboTerm(c.C, env, p)

	ivA := bounds.IntervalOfLinearCombination(c.A, b, p)
	ivB := bounds.IntervalOfLinearCombination(c.B, b, p)
	ivC := bounds.IntervalOfLinearCombination(c.C, b, p)
	ivAB := field.IvMul(ivA, ivB)

	// k = (valC - valA*valB) / p; bound via
	// floor((cLo-abHi)/p) <= k <= ceil((cHi-abLo)/p).
	var kLo, kHi big.Int

	diffLo := new(big.Int).Sub(&ivC.Min, &ivAB.Max)
	diffHi := new(big.Int).Sub(&ivC.Max, &ivAB.Min)

	kLo.Set(field.Floor(diffLo, p))
	kHi.Set(field.CeilDiv(diffHi, p))

	span := new(big.Int).Sub(&kHi, &kLo)

	if span.Sign() < 0 {
		// Empty domain: the bounds already prove no consistent k exists;
		// assert false directly rather than dividing by a degenerate range.
		ctx.Assert(smt.NewBoolLit(false))
		return false
	}

	limit := big.NewInt(cfg.quotientLimit())
	tooBig := span.Cmp(limit) > 0
	pinned := kLo.Cmp(&kHi) == 0

	var k smt.IntTerm

	if pinned {
		// The bounds admit exactly one quotient: inline it as a constant
		// instead of declaring a variable.
		k = smt.NewConst(&kLo)
	} else {
		kv := ctx.IntConst(quotientVarName(prefix, index))
		ctx.Assert(smt.NewGeq(kv, smt.NewConst(&kLo)))
		ctx.Assert(smt.NewLeq(kv, smt.NewConst(&kHi)))
		k = kv
	}

	lhs := smt.SubE(termC, smt.MulE(termA, termB))
	rhs := smt.MulE(k, smt.NewConst(p))

	ctx.Assert(smt.NewEq(lhs, rhs))

	if pinned {
		// A single admissible quotient already fully determines the
		// relationship, no disjunctive lemma needed.
		return tooBig
	}

	ctx.Assert(consistencyLemma(termA, termB, termC, k, p, &ivC.Min, &ivC.Max))

	return tooBig
}

// consistencyLemma asserts the disjunctive lemma that rules out a spurious
// solution where the solver picks a value of k consistent with the integer
// equation but inconsistent with any real field assignment:
// (valC != k*p) ∨ (valA = kA*p) ∨ (valB = kB*p), i.e. either C truly sits at
// the k'th multiple of p (impossible unless A or B is itself a multiple of
// p), or one of A, B vanishes mod p. When C's own bound pins it to exactly
// zero, the lemma strengthens to the two-way form (valA=0) ∨ (valB=0), since
// C = k*p is then only possible with k = 0.
func consistencyLemma(termA, termB, termC, k smt.IntTerm, p *big.Int, cLo, cHi *big.Int) smt.Formula {
	cIsZero := cLo.Sign() == 0 && cHi.Sign() == 0

	if cIsZero {
		return smt.Connect(smt.OpOr,
			smt.NewEq(termA, smt.Zero()),
			smt.NewEq(termB, smt.Zero()))
	}

	cNotMultiple := smt.NewNot(smt.NewEq(smt.ModE(termC, smt.NewConst(p)), smt.Zero()))
	aIsMultiple := smt.NewEq(smt.ModE(termA, smt.NewConst(p)), smt.Zero())
	bIsMultiple := smt.NewEq(smt.ModE(termB, smt.NewConst(p)), smt.Zero())

	return smt.Connect(smt.OpOr, cNotMultiple, smt.Connect(smt.OpOr, aIsMultiple, bIsMultiple))
}

// linearComboTerm lowers a linear combination into an integer term, summing
// coefficient*signal terms in deterministic (sorted signal id) order so that
// repeated encodings of the same constraint always produce syntactically
// identical output.
func linearComboTerm(lc tree.LinearCombination, env eval.Env, p *big.Int) smt.IntTerm {
	signals := make([]ast.SignalID, 0, len(lc.Terms))
	for s := range lc.Terms {
		signals = append(signals, s)
	}

	sort.Slice(signals, func(i, j int) bool { return signals[i] < signals[j] })

	terms := make([]smt.IntTerm, 0, len(signals)+1)

	for _, s := range signals {
		coeff := field.ToSigned(lc.Terms[s], p)
		terms = append(terms, smt.MulE(smt.NewConst(coeff), env[s]))
	}

	terms = append(terms, smt.NewConst(field.ToSigned(lc.Constant, p)))

	if len(terms) == 1 {
		return terms[0]
	}

	return smt.FoldBinaryE(smt.Add, terms)
}

func quotientVarName(prefix string, index int) string {
	return prefix + "k" + strconv.Itoa(index)
}
