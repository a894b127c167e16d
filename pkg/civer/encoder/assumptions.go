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
	log "github.com/sirupsen/logrus"

	"github.com/consensys/go-civer/pkg/civer/ast"
	"github.com/consensys/go-civer/pkg/civer/eval"
	"github.com/consensys/go-civer/pkg/civer/smt"
	"github.com/consensys/go-civer/pkg/civer/tree"
)

// encodeAssumptions conjoins preconditions, preconditions_intermediates,
// tags_preconditions and facts (always), plus the obligation-specific extra
// assumption sets gated by AddTagsInfo / AddPostconditionsInfo. A
// translation failure drops that single expression (logged); it must never
// be silently replaced by an assertion of `true`.
func encodeAssumptions(ctx smt.Context, ob Obligation, n *tree.Node, env eval.Env, cfg Config) {
	exprs := assumptionExprs(ob, n, cfg)

	for _, e := range exprs {
		f, ok := eval.ToBoolTerm(e, env, cfg.Prime)
		if !ok {
			log.Warnf("civer: dropping untranslatable assumption %s", eval.Describe(e))
			continue
		}

		ctx.Assert(f)
	}
}

func assumptionExprs(ob Obligation, n *tree.Node, cfg Config) []ast.Expression {
	exprs := make([]ast.Expression, 0,
		len(n.Annotations.Preconditions)+
			len(n.Annotations.PreconditionsIntermediates)+
			len(n.Annotations.TagsPreconditions)+
			len(n.Annotations.Facts))

	exprs = append(exprs, n.Annotations.Preconditions...)
	exprs = append(exprs, n.Annotations.PreconditionsIntermediates...)
	exprs = append(exprs, n.Annotations.TagsPreconditions...)
	exprs = append(exprs, n.Annotations.Facts...)

	switch ob {
	case ObligationPostconditions:
		if cfg.AddTagsInfo {
			exprs = append(exprs, n.Annotations.TagsPostconditionsOutputs...)
			exprs = append(exprs, n.Annotations.TagsPostconditionsIntermediates...)
		}
	case ObligationSafety:
		if cfg.AddPostconditionsInfo {
			exprs = append(exprs, n.Annotations.PostconditionsOutputs...)
			exprs = append(exprs, n.Annotations.PostconditionsIntermediates...)
		}
	}

	return exprs
}
