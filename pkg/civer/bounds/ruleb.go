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
package bounds

import (
	"math/big"

	"github.com/consensys/go-civer/pkg/civer/ast"
	"github.com/consensys/go-civer/pkg/civer/field"
	"github.com/consensys/go-civer/pkg/civer/tree"
)

// applyRuleB runs one linear-back-substitution pass over every remaining
// constraint A*B=C: for each signal s appearing in C with coefficient ±1, it
// isolates s (treating A*B and the rest of C as intervals) and, when the
// result lands in a single modular round, narrows s's bound. It reports
// whether any bound actually narrowed, so Propagate can iterate to a fixed
// point.
func applyRuleB(b Bounds, constraints []tree.Constraint, cfg Config) bool {
	changed := false

	for _, c := range constraints {
		ivA := intervalOfLC(c.A, b, cfg.Prime)
		ivB := intervalOfLC(c.B, b, cfg.Prime)
		ivAB := field.IvMul(ivA, ivB)

		for s, coeff := range c.C.Terms {
			signed := field.ToSigned(coeff, cfg.Prime)
			if signed.CmpAbs(big.NewInt(1)) != 0 {
				continue
			}

			rest := withoutTerm(c.C, s)
			ivRest := intervalOfLC(rest, b, cfg.Prime)

			candidate := field.IvSub(ivAB, ivRest)
			if signed.Sign() < 0 {
				candidate = negateInterval(candidate)
			}

			if cfg.ApplyDeductionAssigned {
				clampNonNegative(b, s, candidate)
			}

			if !field.SameRound(&candidate.Min, &candidate.Max, cfg.Prime) {
				continue
			}

			reduced := reduceToRound(candidate, cfg.Prime)

			if intersectReportChange(b, s, reduced) {
				changed = true
			}
		}
	}

	return changed
}

// IntervalOfLinearCombination evaluates a linear combination's interval
// given a bounds map, converting every stored (canonical, [0,p)) coefficient
// and constant to its signed representative first. Exported for the SMT
// encoder, which needs the same iv(A)/iv(B)/iv(C) computation to size
// quotient-variable domains.
func IntervalOfLinearCombination(lc tree.LinearCombination, b Bounds, p *big.Int) *field.Interval {
	return intervalOfLC(lc, b, p)
}

// intervalOfLC evaluates a linear combination's interval given the current
// bounds, converting every stored (canonical, [0,p)) coefficient and
// constant to its signed representative first.
func intervalOfLC(lc tree.LinearCombination, b Bounds, p *big.Int) *field.Interval {
	acc := field.Point(field.ToSigned(lc.Constant, p))

	for s, coeff := range lc.Terms {
		signedCoeff := field.ToSigned(coeff, p)
		term := field.IvMul(field.NewInterval(signedCoeff, signedCoeff), b.Get(s, p))
		acc = field.IvAdd(acc, term)
	}

	return acc
}

// withoutTerm returns a copy of lc with the term for signal s removed.
func withoutTerm(lc tree.LinearCombination, s ast.SignalID) tree.LinearCombination {
	out := tree.NewLinearCombination()
	out.Constant.Set(lc.Constant)

	for k, v := range lc.Terms {
		if k == s {
			continue
		}

		out.Terms[k] = v
	}

	return out
}

// negateInterval returns the interval of -x for x ranging over iv.
func negateInterval(iv *field.Interval) *field.Interval {
	var lo, hi big.Int

	lo.Neg(&iv.Max)
	hi.Neg(&iv.Min)

	return field.NewInterval(&lo, &hi)
}

// reduceToRound shifts both endpoints of iv by the same multiple of p,
// determined by their shared floor(./p) (guaranteed equal by the
// SameRound check the caller already performed), bringing the interval into
// its canonical field-element range.
func reduceToRound(iv *field.Interval, p *big.Int) *field.Interval {
	q := field.Floor(&iv.Min, p)

	var shift, lo, hi big.Int

	shift.Mul(q, p)
	lo.Sub(&iv.Min, &shift)
	hi.Sub(&iv.Max, &shift)

	return field.NewInterval(&lo, &hi)
}

// clampNonNegative implements the optional apply_deduction_assigned
// strengthening. It runs before the SameRound gate, not after: a candidate
// like [-10,90] normally straddles zero and is rejected outright, but with
// the option on s is treated as a signal whose value is never negative (no
// property of s itself is checked), and raising the candidate's lower bound
// to 0 first turns it into
// [0,90], no longer straddling zero, and so accepted. Skipped when a
// precondition already put s's own recorded bound below zero, since that
// means negative values of s are genuinely possible.
func clampNonNegative(b Bounds, s ast.SignalID, iv *field.Interval) {
	if existing, ok := b[s]; ok && existing.Min.Sign() < 0 {
		return
	}

	if iv.Min.Sign() < 0 {
		iv.Min.SetInt64(0)
	}
}

// intersectReportChange intersects iv into b[s] and reports whether the
// resulting bound differs from what was there before.
func intersectReportChange(b Bounds, s ast.SignalID, iv *field.Interval) bool {
	before, had := b[s]

	var beforeMin, beforeMax big.Int
	if had {
		beforeMin.Set(&before.Min)
		beforeMax.Set(&before.Max)
	}

	b.Intersect(s, iv)

	after := b[s]
	if !had {
		return true
	}

	return beforeMin.Cmp(&after.Min) != 0 || beforeMax.Cmp(&after.Max) != 0
}
