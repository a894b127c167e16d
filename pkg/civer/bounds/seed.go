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
)

// seedFromExpressions parses each expression as a conjunction of
// literal-vs-signal comparisons and
// inserts/intersects the implied interval into b.
func seedFromExpressions(b Bounds, exprs []ast.Expression, p *big.Int) {
	for _, e := range exprs {
		seedFromExpression(b, e, p)
	}
}

func seedFromExpression(b Bounds, e ast.Expression, p *big.Int) {
	v, ok := e.(*ast.Infix)
	if !ok {
		return
	}

	switch v.Op {
	case ast.And:
		seedFromExpression(b, v.Left, p)
		seedFromExpression(b, v.Right, p)
	case ast.Or:
		seedFromDisjunction(b, v, p)
	case ast.Leq, ast.Lt, ast.Eq:
		applyComparisonBound(b, v, p)
	}
}

// seedFromDisjunction handles `left ∨ right` by computing each branch's
// bounds independently (starting from nothing already known) and, for every
// signal bounded on both sides, widening b to the convex union of the two
// branch bounds, the only combination sound regardless of which disjunct
// actually holds. A signal bounded on only one side contributes nothing:
// assuming it under the branch that gave no bound would be unsound.
func seedFromDisjunction(b Bounds, v *ast.Infix, p *big.Int) {
	left := make(Bounds)
	right := make(Bounds)

	seedFromExpression(left, v.Left, p)
	seedFromExpression(right, v.Right, p)

	for s, ivL := range left {
		ivR, ok := right[s]
		if !ok {
			continue
		}

		merged := ivL.Clone()
		merged.Insert(ivR)
		b.Insert(s, merged)
	}
}

func applyComparisonBound(b Bounds, v *ast.Infix, p *big.Int) {
	if sig, ok := v.Left.(*ast.Signal); ok {
		if lit, ok := v.Right.(*ast.Literal); ok {
			applyDirectBound(b, sig.ID, v.Op, &lit.Value, p)
			return
		}
	}

	if lit, ok := v.Left.(*ast.Literal); ok {
		if sig, ok := v.Right.(*ast.Signal); ok {
			applyMirroredBound(b, sig.ID, v.Op, &lit.Value, p)
		}
	}
}

// applyDirectBound handles `s OP k`.
func applyDirectBound(b Bounds, s ast.SignalID, op ast.InfixOp, k *big.Int, p *big.Int) {
	switch op {
	case ast.Leq:
		boundUpper(b, s, k, false, p)
	case ast.Lt:
		boundUpper(b, s, k, true, p)
	case ast.Eq:
		boundExact(b, s, k)
	}
}

// applyMirroredBound handles `k OP s`, i.e. `k <= s` means `s >= k`, and `k <
// s` means `s > k`.
func applyMirroredBound(b Bounds, s ast.SignalID, op ast.InfixOp, k *big.Int, p *big.Int) {
	switch op {
	case ast.Leq:
		boundLower(b, s, k, false, p)
	case ast.Lt:
		boundLower(b, s, k, true, p)
	case ast.Eq:
		boundExact(b, s, k)
	}
}

func boundUpper(b Bounds, s ast.SignalID, k *big.Int, strict bool, p *big.Int) {
	hi := new(big.Int).Set(k)
	if strict {
		hi.Sub(hi, big.NewInt(1))
	}

	cur := b.Get(s, p)
	b.Intersect(s, field.NewInterval(&cur.Min, hi))
}

func boundLower(b Bounds, s ast.SignalID, k *big.Int, strict bool, p *big.Int) {
	lo := new(big.Int).Set(k)
	if strict {
		lo.Add(lo, big.NewInt(1))
	}

	cur := b.Get(s, p)
	b.Intersect(s, field.NewInterval(lo, &cur.Max))
}

func boundExact(b Bounds, s ast.SignalID, k *big.Int) {
	b.Intersect(s, field.Point(k))
}
