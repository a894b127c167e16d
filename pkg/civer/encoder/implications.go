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

	log "github.com/sirupsen/logrus"

	"github.com/consensys/go-civer/pkg/civer/eval"
	"github.com/consensys/go-civer/pkg/civer/smt"
	"github.com/consensys/go-civer/pkg/civer/tree"
)

// encodeChildImplication asserts a summary of an already-verified child's
// postcondition obligation, ⋀ Left ⇒ ⋀ Right, in place of re-encoding the
// child's own constraints. It is the caller's responsibility to only pass
// implications whose preconditions_intermediates were empty at the child;
// that emptiness is what certifies the child's outputs depend only on its
// inputs, which are shared identifiers in this node's signal space.
func encodeChildImplication(ctx smt.Context, impl tree.ExecutedImplication, env eval.Env, p *big.Int) {
	left := make([]smt.Formula, 0, len(impl.Left))

	for _, e := range impl.Left {
		f, ok := eval.ToBoolTerm(e, env, p)
		if !ok {
			log.Warnf("civer: dropping untranslatable child implication hypothesis %s", eval.Describe(e))
			continue
		}

		left = append(left, f)
	}

	right := make([]smt.Formula, 0, len(impl.Right))

	for _, e := range impl.Right {
		f, ok := eval.ToBoolTerm(e, env, p)
		if !ok {
			log.Warnf("civer: dropping untranslatable child implication conclusion %s", eval.Describe(e))
			continue
		}

		right = append(right, f)
	}

	if len(right) == 0 {
		return
	}

	ctx.Assert(smt.Connect(smt.OpImplies, smt.FoldAnd(left), smt.FoldAnd(right)))
}
