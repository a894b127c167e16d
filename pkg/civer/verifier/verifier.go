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

// Package verifier implements the compositional verifier: a depth-first,
// post-order walk over the constraint tree, memoized by node_id, that
// issues the three proof obligations per node and expands the SMT context
// with deeper descendant constraints in rounds until every requested
// obligation settles or the tree is exhausted.
package verifier

import (
	"math/big"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/consensys/go-civer/pkg/civer/ast"
	"github.com/consensys/go-civer/pkg/civer/bounds"
	"github.com/consensys/go-civer/pkg/civer/encoder"
	"github.com/consensys/go-civer/pkg/civer/smt"
	"github.com/consensys/go-civer/pkg/civer/tree"
)

// Config bundles every mode flag and tunable the verifier needs, combining
// the bound propagator's and encoder's own configs with the three
// check_* enable flags.
type Config struct {
	Prime   *big.Int
	Timeout time.Duration

	CheckTags              bool
	CheckPostconditions    bool
	CheckSafety            bool
	AddTagsInfo            bool
	AddPostconditionsInfo  bool
	ApplyDeductionAssigned bool
	QuotientDomainLimit    int64

	// MaxRounds bounds how many rounds are run for one node before the
	// verifier gives up, leaving each still-unsettled obligation at its
	// latest verdict (FAILED, UNKNOWN or TOO_BIG) and protecting against an
	// unbounded walk on a very deep tree. Zero means
	// unbounded (expand until the frontier is exhausted).
	MaxRounds int
}

func (cfg Config) boundsConfig() bounds.Config {
	return bounds.Config{Prime: cfg.Prime, ApplyDeductionAssigned: cfg.ApplyDeductionAssigned}
}

func (cfg Config) encoderConfig() encoder.Config {
	return encoder.Config{
		Prime:                 cfg.Prime,
		Timeout:               cfg.Timeout,
		AddTagsInfo:           cfg.AddTagsInfo,
		AddPostconditionsInfo: cfg.AddPostconditionsInfo,
		QuotientDomainLimit:   cfg.QuotientDomainLimit,
	}
}

// Verdicts is the three-obligation verdict triple recorded per node_id.
type Verdicts struct {
	Tags           tree.PossibleResult
	Postconditions tree.PossibleResult
	Safety         tree.PossibleResult
}

// NodeReport carries everything about one verified node worth surfacing to
// the report layer: its verdicts, how many rounds and how long it took, and
// any counterexample produced by a FAILED obligation.
type NodeReport struct {
	Node            *tree.Node
	Verdicts        Verdicts
	Rounds          int
	Elapsed         time.Duration
	Counterexamples map[encoder.Obligation]map[ast.SignalID]*big.Int
}

// nodeResult is the verifier's internal per-node cache entry: the public
// NodeReport plus the node's own propagated bounds and Rule-A-reduced
// constraint list, which ancestors need when expanding their frontier.
type nodeResult struct {
	NodeReport

	bounds      bounds.Bounds
	constraints []tree.Constraint
}

// Verifier runs the compositional walk over one constraint tree, memoizing
// by tree.NodeID so structurally identical template instances are verified
// exactly once.
type Verifier struct {
	solver  smt.Solver
	cfg     Config
	studied map[tree.NodeID]*nodeResult
}

// New constructs a Verifier bound to the given SMT solver and configuration.
func New(solver smt.Solver, cfg Config) *Verifier {
	return &Verifier{
		solver:  solver,
		cfg:     cfg,
		studied: make(map[tree.NodeID]*nodeResult),
	}
}

// Verify walks root post-order and returns every unique node's report,
// keyed by node_id.
func (v *Verifier) Verify(root *tree.Node) map[tree.NodeID]NodeReport {
	v.visit(root)

	out := make(map[tree.NodeID]NodeReport, len(v.studied))
	for id, r := range v.studied {
		out[id] = r.NodeReport
	}

	return out
}

func (v *Verifier) visit(n *tree.Node) *nodeResult {
	if r, ok := v.studied[n.ID]; ok {
		return r
	}

	for _, c := range n.Children {
		v.visit(c)
	}

	r := v.verifyNode(n)
	v.studied[n.ID] = r

	return r
}

// verifyNode runs bound propagation and the three-obligation round loop
// for a single node, assuming every child has already settled (guaranteed
// by the post-order visit).
func (v *Verifier) verifyNode(n *tree.Node) *nodeResult {
	b, constraints := bounds.Propagate(n, v.cfg.boundsConfig())
	v.seedChildBoundarySignals(n, b)

	state := newRoundState(n, b, constraints, v.studied)

	verdicts := Verdicts{
		Tags:           initialVerdict(v.cfg.CheckTags),
		Postconditions: initialVerdict(v.cfg.CheckPostconditions),
		Safety:         initialVerdict(v.cfg.CheckSafety),
	}

	counterexamples := make(map[encoder.Obligation]map[ast.SignalID]*big.Int)
	rounds := 0
	start := time.Now()

	for {
		rounds++

		v.runObligation(&verdicts.Tags, encoder.ObligationTags, state, counterexamples)
		v.runObligation(&verdicts.Postconditions, encoder.ObligationPostconditions, state, counterexamples)
		v.runObligation(&verdicts.Safety, encoder.ObligationSafety, state, counterexamples)

		if allConclusive(verdicts) {
			break
		}

		if !state.expandFrontier() {
			log.Debugf("civer: %s exhausted its descendant frontier with unsettled obligations remaining", n.DisplayName)
			break
		}

		if v.cfg.MaxRounds > 0 && rounds >= v.cfg.MaxRounds {
			log.Warnf("civer: %s hit the round limit (%d) with unsettled obligations remaining", n.DisplayName, v.cfg.MaxRounds)
			break
		}
	}

	return &nodeResult{
		NodeReport: NodeReport{
			Node:            n,
			Verdicts:        verdicts,
			Rounds:          rounds,
			Elapsed:         time.Since(start),
			Counterexamples: counterexamples,
		},
		bounds:      b,
		constraints: constraints,
	}
}

// runObligation issues one obligation's query against the node's current
// (possibly frontier-expanded) SMT request, unless an earlier round already
// concluded it: a VERIFIED obligation is never re-checked. A FAILED verdict
// from an earlier round is re-queried, since its counterexample may be
// spurious while descendant constraints are still summarised away; it only
// becomes final once the frontier is exhausted.
func (v *Verifier) runObligation(
	verdict *tree.PossibleResult,
	ob encoder.Obligation,
	state *roundState,
	counterexamples map[encoder.Obligation]map[ast.SignalID]*big.Int,
) {
	if conclusive(*verdict) {
		return
	}

	res := encoder.Encode(v.solver, ob, state.request(), v.cfg.encoderConfig())

	*verdict = res.Verdict

	if res.Verdict == tree.FAILED {
		counterexamples[ob] = res.Counterexample
	} else {
		delete(counterexamples, ob)
	}
}

func initialVerdict(enabled bool) tree.PossibleResult {
	if !enabled {
		return tree.NOSTUDIED
	}

	// A sentinel distinguishing "not yet run" from a settled verdict; reuses
	// UNKNOWN since the round loop already treats UNKNOWN as unresolved.
	return tree.UNKNOWN
}

// conclusive reports whether a verdict can never change in a later round:
// VERIFIED, NOTHING and NOSTUDIED are final the moment they are produced.
// FAILED, UNKNOWN and TOO_BIG are provisional while descendant constraints
// remain to be inlined -- a counterexample can be an artefact of a
// summarised-away child, and an UNKNOWN/TOO_BIG encoding can shrink or
// simplify once tighter descendant bounds arrive -- and settle to their
// final value only when the frontier is exhausted (or the round cap hit).
func conclusive(r tree.PossibleResult) bool {
	switch r {
	case tree.VERIFIED, tree.NOTHING, tree.NOSTUDIED:
		return true
	default:
		return false
	}
}

func allConclusive(v Verdicts) bool {
	return conclusive(v.Tags) && conclusive(v.Postconditions) && conclusive(v.Safety)
}

// seedChildBoundarySignals narrows n's bounds map with every direct child's
// own propagated bounds for its input/output signals, so constraints in n
// that reference a child's boundary signals benefit from the child's own
// analysis even before any frontier expansion pulls the child's constraints
// in directly.
func (v *Verifier) seedChildBoundarySignals(n *tree.Node, b bounds.Bounds) {
	for _, c := range n.Children {
		cr, ok := v.studied[c.ID]
		if !ok {
			continue
		}

		for _, s := range boundarySignals(c) {
			if iv, ok := cr.bounds[s]; ok {
				b.Intersect(s, iv)
			}
		}
	}
}

func boundarySignals(n *tree.Node) []ast.SignalID {
	out := make([]ast.SignalID, 0, len(n.InputSignals())+len(n.OutputSignals()))
	out = append(out, n.InputSignals()...)
	out = append(out, n.OutputSignals()...)

	return out
}
