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

	"github.com/consensys/go-civer/pkg/civer/ast"
	"github.com/consensys/go-civer/pkg/civer/bounds"
	"github.com/consensys/go-civer/pkg/civer/eval"
	"github.com/consensys/go-civer/pkg/civer/field"
	"github.com/consensys/go-civer/pkg/civer/smt"
	"github.com/consensys/go-civer/pkg/civer/tree"
)

// declareSignals creates one fresh integer variable per signal in the
// request's signal set (the node's own signals plus whatever descendant
// signals the current round has pulled in) and asserts its inferred bound.
func declareSignals(ctx smt.Context, signals []ast.SignalID, b bounds.Bounds, p *big.Int) eval.Env {
	env := make(eval.Env, len(signals))

	for _, s := range signals {
		v := ctx.IntConst(signalName(s))
		env[s] = v
		assertBound(ctx, v, b.Get(s, p), p)
	}

	return env
}

// declarePrimedSignals mirrors declareSignals but for the safety
// obligation's primed duplicate signals. The node's
// input signals are NOT duplicated: the safety implication's hypothesis is
// exactly that unprimed and primed inputs agree, so both sides reuse the
// same variable. Descendant signals in the set are all non-input from the
// node's perspective and are duplicated like its own intermediates.
func declarePrimedSignals(ctx smt.Context, n *tree.Node, signals []ast.SignalID, b bounds.Bounds, p *big.Int) eval.Env {
	env := make(eval.Env, len(signals))
	inputs := make(map[ast.SignalID]bool, n.NumberInputs)

	for _, s := range n.InputSignals() {
		inputs[s] = true
	}

	for _, s := range signals {
		if inputs[s] {
			continue
		}

		v := ctx.IntConst(primedSignalName(s))
		env[s] = v
		assertBound(ctx, v, b.Get(s, p), p)
	}

	return env
}

// assertBound asserts sv ∈ iv. An interval crossing zero (lo<0<=hi) is split
// into its two disjoint modular representatives.
func assertBound(ctx smt.Context, v smt.IntTerm, iv *field.Interval, p *big.Int) {
	if iv.Min.Sign() < 0 && iv.Max.Sign() >= 0 {
		var pPlusMin big.Int

		pPlusMin.Add(p, &iv.Min)

		negativeBranch := smt.Connect(smt.OpAnd,
			smt.NewGeq(v, smt.NewConst(&pPlusMin)),
			smt.NewLt(v, smt.NewConst(p)))

		nonNegativeBranch := smt.Connect(smt.OpAnd,
			smt.NewGeq(v, smt.Zero()),
			smt.NewLeq(v, smt.NewConst(&iv.Max)))

		ctx.Assert(smt.Connect(smt.OpOr, negativeBranch, nonNegativeBranch))

		return
	}

	ctx.Assert(smt.NewGeq(v, smt.NewConst(&iv.Min)))
	ctx.Assert(smt.NewLeq(v, smt.NewConst(&iv.Max)))
}
