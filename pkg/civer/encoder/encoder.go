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

// Package encoder lowers one proof obligation of a constraint-tree node
// into an SMT instance: signal variables with their inferred bounds,
// annotations as assumptions, constraints as quotient-lifted integer
// equations, child implications and, for the safety obligation, a primed
// variable duplicate of the whole system.
package encoder

import (
	"fmt"
	"math/big"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/consensys/go-civer/pkg/civer/ast"
	"github.com/consensys/go-civer/pkg/civer/bounds"
	"github.com/consensys/go-civer/pkg/civer/eval"
	"github.com/consensys/go-civer/pkg/civer/smt"
	"github.com/consensys/go-civer/pkg/civer/tree"
)

// Obligation identifies one of the three proof obligations a node can be
// asked to discharge.
type Obligation int

// The three proof obligations.
const (
	ObligationTags Obligation = iota
	ObligationPostconditions
	ObligationSafety
)

func (o Obligation) String() string {
	switch o {
	case ObligationTags:
		return "tags"
	case ObligationPostconditions:
		return "postconditions"
	case ObligationSafety:
		return "safety"
	default:
		return "?"
	}
}

// Config bundles the encoder's tunable behaviour.
type Config struct {
	Prime   *big.Int
	Timeout time.Duration

	AddTagsInfo           bool
	AddPostconditionsInfo bool
	QuotientDomainLimit   int64
}

// DefaultQuotientDomainLimit is used when Config.QuotientDomainLimit is zero.
const DefaultQuotientDomainLimit = 1 << 20

func (cfg Config) quotientLimit() int64 {
	if cfg.QuotientDomainLimit == 0 {
		return DefaultQuotientDomainLimit
	}

	return cfg.QuotientDomainLimit
}

// Request bundles everything Encode needs about a node beyond the obligation
// and global config: its already bound-propagated signal bounds, its
// (Rule-A-captured-constraints-removed) constraint list, and whatever
// already-verified child summaries are currently in scope for this round.
type Request struct {
	Node   *tree.Node
	Bounds bounds.Bounds
	// Signals is every signal the encoding must declare a variable for: the
	// node's own signals, its direct children's boundary signals, and --
	// after frontier expansion -- the expanded descendants' signals too.
	// A nil Signals defaults to the node's own signals.
	Signals                 []ast.SignalID
	Constraints             []tree.Constraint
	ChildImplications       []tree.ExecutedImplication
	ChildSafetyImplications []tree.SafetyImplication
}

func (req Request) signalSet() []ast.SignalID {
	if req.Signals != nil {
		return req.Signals
	}

	return req.Node.AllSignals()
}

// Result is the outcome of discharging one obligation.
type Result struct {
	Verdict tree.PossibleResult
	// Counterexample holds every signal's model value when Verdict is
	// FAILED; nil otherwise.
	Counterexample map[ast.SignalID]*big.Int
}

// Encode builds a fresh SMT context for the given obligation and checks it:
// signal variables with bound assertions, assumptions, quotient-lifted
// constraints, child implications, the safety duplication when applicable,
// and finally the negated goal as the query.
func Encode(solver smt.Solver, ob Obligation, req Request, cfg Config) Result {
	if ob != ObligationSafety && len(postconditionSet(ob, req.Node)) == 0 {
		return Result{Verdict: tree.NOTHING}
	}

	if ob == ObligationSafety && len(req.Node.OutputSignals()) == 0 {
		// No outputs means nothing to be deterministic about.
		return Result{Verdict: tree.NOTHING}
	}

	ctx := solver.NewContext(cfg.Timeout)
	env := declareSignals(ctx, req.signalSet(), req.Bounds, cfg.Prime)

	encodeAssumptions(ctx, ob, req.Node, env, cfg)

	tooBig := encodeConstraints(ctx, env, req.Bounds, req.Constraints, cfg)

	for _, impl := range req.ChildImplications {
		encodeChildImplication(ctx, impl, env, cfg.Prime)
	}

	var (
		query smt.Formula
		ok    bool
	)

	if ob == ObligationSafety {
		query, ok = encodeSafety(ctx, req, env, cfg)
	} else {
		query, ok = negatedPostconditionQuery(postconditionSet(ob, req.Node), env, cfg.Prime)
	}

	if !ok {
		log.Warnf("civer: %s obligation for %s could not be translated, reporting UNKNOWN", ob, req.Node.DisplayName)
		return Result{Verdict: tree.UNKNOWN}
	}

	ctx.Assert(query)

	if tooBig {
		return Result{Verdict: tree.TOO_BIG}
	}

	res, model := ctx.Check()

	return verdictFromResult(res, model, env)
}

func postconditionSet(ob Obligation, n *tree.Node) []ast.Expression {
	switch ob {
	case ObligationTags:
		exprs := make([]ast.Expression, 0, len(n.Annotations.TagsPostconditionsOutputs)+len(n.Annotations.TagsPostconditionsIntermediates))
		exprs = append(exprs, n.Annotations.TagsPostconditionsOutputs...)
		exprs = append(exprs, n.Annotations.TagsPostconditionsIntermediates...)

		return exprs
	case ObligationPostconditions:
		exprs := make([]ast.Expression, 0, len(n.Annotations.PostconditionsOutputs)+len(n.Annotations.PostconditionsIntermediates))
		exprs = append(exprs, n.Annotations.PostconditionsOutputs...)
		exprs = append(exprs, n.Annotations.PostconditionsIntermediates...)

		return exprs
	default:
		return nil
	}
}

func negatedPostconditionQuery(exprs []ast.Expression, env eval.Env, p *big.Int) (smt.Formula, bool) {
	fs := make([]smt.Formula, 0, len(exprs))

	for _, e := range exprs {
		f, ok := eval.ToBoolTerm(e, env, p)
		if !ok {
			log.Warnf("civer: dropping untranslatable postcondition %s", eval.Describe(e))
			continue
		}

		fs = append(fs, f)
	}

	if len(fs) == 0 {
		return nil, false
	}

	return smt.NewNot(smt.FoldAnd(fs)), true
}

func verdictFromResult(res smt.Result, model smt.Model, env eval.Env) Result {
	switch res {
	case smt.Unsat:
		return Result{Verdict: tree.VERIFIED}
	case smt.Sat:
		return Result{Verdict: tree.FAILED, Counterexample: extractCounterexample(model, env)}
	default:
		return Result{Verdict: tree.UNKNOWN}
	}
}

func extractCounterexample(model smt.Model, env eval.Env) map[ast.SignalID]*big.Int {
	out := make(map[ast.SignalID]*big.Int, len(env))

	for s, v := range env {
		out[s] = model.Eval(v)
	}

	return out
}

func signalName(s ast.SignalID) string {
	return fmt.Sprintf("s%d", s)
}

func primedSignalName(s ast.SignalID) string {
	return fmt.Sprintf("s%d_p", s)
}
