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

// applyRuleA recognises constraints of the shape (s - α)(s - β) = 0 with
// |α - β| = 1, the selector-boolean pattern every boolean-valued signal
// compiles to, and replaces each match with a direct interval fact
// s ∈ [min(α,β), max(α,β)]. A captured constraint is redundant for the SMT
// encoder (the interval fact already states exactly what it asserts) and is
// dropped from the returned constraint list.
func applyRuleA(b Bounds, constraints []tree.Constraint, p *big.Int) []tree.Constraint {
	kept := make([]tree.Constraint, 0, len(constraints))

	for _, c := range constraints {
		sig, iv, ok := matchIntegrityDomain(c, p)
		if !ok {
			kept = append(kept, c)
			continue
		}

		b.Intersect(sig, iv)
	}

	return kept
}

// matchIntegrityDomain checks whether c has the shape (s - α)(s - β) = 0
// with |α - β| = 1.
func matchIntegrityDomain(c tree.Constraint, p *big.Int) (ast.SignalID, *field.Interval, bool) {
	if !isZeroCombination(c.C) {
		return 0, nil, false
	}

	a, ok := matchSignalMinusConst(c.A, p)
	if !ok {
		return 0, nil, false
	}

	bb, ok := matchSignalMinusConst(c.B, p)
	if !ok {
		return 0, nil, false
	}

	if a.signal != bb.signal {
		return 0, nil, false
	}

	diff := new(big.Int).Sub(a.alpha, bb.alpha)
	diff.Abs(diff)

	if diff.Cmp(big.NewInt(1)) != 0 {
		return 0, nil, false
	}

	lo, hi := a.alpha, bb.alpha
	if lo.Cmp(hi) > 0 {
		lo, hi = hi, lo
	}

	return a.signal, field.NewInterval(lo, hi), true
}

type signalMinusConst struct {
	signal ast.SignalID
	alpha  *big.Int
}

// matchSignalMinusConst recognises a linear combination of the exact shape
// "1*s + constant" and reports it as s - alpha, where alpha = -constant
// (signed). Any other shape (no terms, more than one term, or a coefficient
// other than 1) fails to match.
func matchSignalMinusConst(lc tree.LinearCombination, p *big.Int) (signalMinusConst, bool) {
	if len(lc.Terms) != 1 {
		return signalMinusConst{}, false
	}

	var (
		sig   ast.SignalID
		coeff *big.Int
	)

	for k, v := range lc.Terms {
		sig, coeff = k, v
	}

	if field.ToSigned(coeff, p).Cmp(big.NewInt(1)) != 0 {
		return signalMinusConst{}, false
	}

	alpha := field.ToSigned(new(big.Int).Neg(lc.Constant), p)

	return signalMinusConst{signal: sig, alpha: alpha}, true
}

func isZeroCombination(lc tree.LinearCombination) bool {
	return len(lc.Terms) == 0 && lc.Constant.Sign() == 0
}
