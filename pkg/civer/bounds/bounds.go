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

// Package bounds implements the bound propagator: a fixed-point iteration
// over two deduction rules that seeds the SMT encoder with tight
// per-signal integer ranges, so the generated integer equations have small
// quotient domains.
package bounds

import (
	"math/big"

	"github.com/consensys/go-civer/pkg/civer/ast"
	"github.com/consensys/go-civer/pkg/civer/field"
	"github.com/consensys/go-civer/pkg/civer/tree"
)

// Bounds maps a signal identifier to its inferred integer interval.
type Bounds map[ast.SignalID]*field.Interval

// Get returns the bound for s, or a full-range default covering [0,p) if
// s has not yet been bounded.
func (b Bounds) Get(s ast.SignalID, p *big.Int) *field.Interval {
	if iv, ok := b[s]; ok {
		return iv
	}

	var hi big.Int

	hi.Sub(p, big.NewInt(1))

	return field.NewInterval(big.NewInt(0), &hi)
}

// Insert widens (unions) the bound for s to also include iv, or installs iv
// verbatim if s has no bound yet. Used when combining the bounds implied by
// the branches of a disjunctive precondition, where only the jointly
// implied interval is sound.
func (b Bounds) Insert(s ast.SignalID, iv *field.Interval) {
	if existing, ok := b[s]; ok {
		existing.Insert(iv)
		return
	}

	b[s] = iv.Clone()
}

// Intersect narrows the bound for s to the overlap with iv, or installs iv
// verbatim if s has no bound yet.
func (b Bounds) Intersect(s ast.SignalID, iv *field.Interval) {
	if existing, ok := b[s]; ok {
		existing.Intersect(iv)
		return
	}

	b[s] = iv.Clone()
}

// Config bundles the propagator's tunable behaviour.
type Config struct {
	Prime *big.Int
	// ApplyDeductionAssigned enables the optional Rule B strengthening:
	// when a signal's lower bound is not known to be negative from a
	// precondition, clamp it to be non-negative.
	ApplyDeductionAssigned bool
}

// Propagate runs Rule A once, then Rule B to a fixed point, seeded from the
// node's preconditions/intermediates/facts. It returns the final bounds map
// and the constraint list with every Rule-A-captured constraint removed:
// capturing a constraint via Rule A makes it redundant, and re-encoding it
// would only bloat the SMT instance.
func Propagate(n *tree.Node, cfg Config) (Bounds, []tree.Constraint) {
	b := make(Bounds)
	b[0] = field.NewInterval64(1, 1)

	seedFromExpressions(b, n.Annotations.Preconditions, cfg.Prime)
	seedFromExpressions(b, n.Annotations.PreconditionsIntermediates, cfg.Prime)
	seedFromExpressions(b, n.Annotations.Facts, cfg.Prime)

	constraints := n.Constraints
	constraints = applyRuleA(b, constraints, cfg.Prime)

	for {
		changed := applyRuleB(b, constraints, cfg)
		if !changed {
			break
		}
	}

	return b, constraints
}
