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
	"github.com/bits-and-blooms/bitset"

	"github.com/consensys/go-civer/pkg/civer/ast"
	"github.com/consensys/go-civer/pkg/civer/bounds"
	"github.com/consensys/go-civer/pkg/civer/encoder"
	"github.com/consensys/go-civer/pkg/civer/tree"
)

// nodeSet tracks which node_ids have already been pulled into a node's
// accumulated constraint set, so a later round never inlines the same
// descendant twice. node_id is a small dense index, so a bitset
// is a direct fit.
type nodeSet struct{ bits *bitset.BitSet }

func newNodeSet() *nodeSet { return &nodeSet{bits: bitset.New(0)} }

func (s *nodeSet) contains(id tree.NodeID) bool { return s.bits.Test(uint(id)) }
func (s *nodeSet) add(id tree.NodeID)           { s.bits.Set(uint(id)) }

// roundState accumulates one node's SMT request across successive frontier
// expansions. frontier holds the nodes whose own
// constraints have not been inlined yet; expanding it inlines a frontier
// node's constraints and promotes its children to the new frontier. A
// descendant's ExecutedImplication/SafetyImplication summary, once
// admitted, stays in the request for every later round -- the inlined
// constraints strengthen it, they do not replace it.
type roundState struct {
	node        *tree.Node
	bounds      bounds.Bounds
	signals     []ast.SignalID
	declared    map[ast.SignalID]bool
	constraints []tree.Constraint
	impls       []tree.ExecutedImplication
	safetyImpls []tree.SafetyImplication
	frontier    []*tree.Node
	expanded    *nodeSet
	studied     map[tree.NodeID]*nodeResult
}

// newRoundState seeds the first round's working set: the node's own signals
// and constraints, plus every direct child's boundary signals and verdict
// summaries, which the node's constraints and the first round's SMT request
// may reference.
func newRoundState(n *tree.Node, b bounds.Bounds, constraints []tree.Constraint, studied map[tree.NodeID]*nodeResult) *roundState {
	s := &roundState{
		node:        n,
		bounds:      b,
		declared:    make(map[ast.SignalID]bool),
		constraints: append([]tree.Constraint{}, constraints...),
		frontier:    n.Children,
		expanded:    newNodeSet(),
		studied:     studied,
	}

	s.addSignals(n.AllSignals())
	s.admitSummaries(n.Children)

	return s
}

// admitSummaries registers a layer of descendants' boundary signals and
// implication summaries into the accumulated request.
func (s *roundState) admitSummaries(nodes []*tree.Node) {
	for _, child := range nodes {
		s.addSignals(child.InputSignals())
		s.addSignals(child.OutputSignals())

		cr, ok := s.studied[child.ID]
		if !ok {
			continue
		}

		if impl, ok := childImplication(child, cr); ok {
			s.impls = append(s.impls, impl)
		}

		if impl, ok := childTagImplication(child, cr); ok {
			s.impls = append(s.impls, impl)
		}

		if impl, ok := childSafetyImplication(child, cr); ok {
			s.safetyImpls = append(s.safetyImpls, impl)
		}
	}
}

func (s *roundState) addSignals(ids []ast.SignalID) {
	for _, id := range ids {
		if s.declared[id] {
			continue
		}

		s.declared[id] = true
		s.signals = append(s.signals, id)
	}
}

// request builds this round's encoder.Request from everything accumulated
// so far.
func (s *roundState) request() encoder.Request {
	return encoder.Request{
		Node:                    s.node,
		Bounds:                  s.bounds,
		Signals:                 s.signals,
		Constraints:             s.constraints,
		ChildImplications:       s.impls,
		ChildSafetyImplications: s.safetyImpls,
	}
}

// childImplication lifts a child's postcondition summary into an
// ExecutedImplication, gated both on its own postcondition obligation
// having actually settled to VERIFIED and on its
// preconditions_intermediates being empty: the lift is only sound when the
// child needed no additional intermediate-signal assumption beyond what is
// already implied at its own boundary.
func childImplication(child *tree.Node, cr *nodeResult) (tree.ExecutedImplication, bool) {
	if cr.Verdicts.Postconditions != tree.VERIFIED {
		return tree.ExecutedImplication{}, false
	}

	if len(child.Annotations.PreconditionsIntermediates) != 0 {
		return tree.ExecutedImplication{}, false
	}

	right := concatExprs(child.Annotations.PostconditionsOutputs, child.Annotations.PostconditionsIntermediates)
	if len(right) == 0 {
		return tree.ExecutedImplication{}, false
	}

	return tree.ExecutedImplication{
		Left:  concatExprs(child.Annotations.Preconditions, child.Annotations.TagsPreconditions),
		Right: right,
	}, true
}

// childTagImplication is the tag-variant of childImplication, lifting a
// child's verified tag postconditions under the same hypothesis and the
// same empty-intermediate-preconditions guard.
func childTagImplication(child *tree.Node, cr *nodeResult) (tree.ExecutedImplication, bool) {
	if cr.Verdicts.Tags != tree.VERIFIED {
		return tree.ExecutedImplication{}, false
	}

	if len(child.Annotations.PreconditionsIntermediates) != 0 {
		return tree.ExecutedImplication{}, false
	}

	right := concatExprs(child.Annotations.TagsPostconditionsOutputs, child.Annotations.TagsPostconditionsIntermediates)
	if len(right) == 0 {
		return tree.ExecutedImplication{}, false
	}

	return tree.ExecutedImplication{
		Left:  concatExprs(child.Annotations.Preconditions, child.Annotations.TagsPreconditions),
		Right: right,
	}, true
}

func concatExprs(as, bs []ast.Expression) []ast.Expression {
	out := make([]ast.Expression, 0, len(as)+len(bs))
	out = append(out, as...)
	out = append(out, bs...)

	return out
}

// childSafetyImplication lifts a child's determinism summary, gated on its
// own safety obligation having actually settled to VERIFIED.
func childSafetyImplication(child *tree.Node, cr *nodeResult) (tree.SafetyImplication, bool) {
	if cr.Verdicts.Safety != tree.VERIFIED {
		return tree.SafetyImplication{}, false
	}

	if len(child.OutputSignals()) == 0 {
		return tree.SafetyImplication{}, false
	}

	return tree.SafetyImplication{
		Inputs:  child.InputSignals(),
		Outputs: child.OutputSignals(),
	}, true
}

// expandFrontier inlines every current frontier node's own constraints and
// bounds into the round state and promotes their children to the new
// frontier. It reports whether it made any progress; a false return
// means the frontier is exhausted (every node already inlined, or no
// children left) and further rounds cannot help.
func (s *roundState) expandFrontier() bool {
	var next []*tree.Node

	progressed := false

	for _, child := range s.frontier {
		if s.expanded.contains(child.ID) {
			continue
		}

		s.expanded.add(child.ID)
		progressed = true

		cr, ok := s.studied[child.ID]
		if !ok {
			continue
		}

		s.constraints = append(s.constraints, cr.constraints...)
		s.addSignals(child.AllSignals())

		for sig, iv := range cr.bounds {
			s.bounds.Intersect(sig, iv)
		}

		s.admitSummaries(child.Children)

		next = append(next, child.Children...)
	}

	s.frontier = next

	return progressed
}
