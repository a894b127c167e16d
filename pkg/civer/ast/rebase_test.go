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
package ast

import (
	"math/big"
	"testing"

	"github.com/consensys/go-civer/pkg/util/source"
)

func TestRebaseShiftsEverySignal(t *testing.T) {
	sp := source.NewSpan(0, 0)

	// (s1 + 3) = -s2
	e := NewInfix(Eq,
		NewInfix(Add, NewSignal(1, sp), NewLiteral(big.NewInt(3), sp), sp),
		NewNeg(NewSignal(2, sp), sp),
		sp)

	shifted := Rebase(e, 10)

	infix, ok := shifted.(*Infix)
	if !ok {
		t.Fatalf("expected *Infix, got %T", shifted)
	}

	left := infix.Left.(*Infix)
	if got := left.Left.(*Signal).ID; got != 11 {
		t.Errorf("expected signal 11, got %d", got)
	}

	if got := infix.Right.(*Neg).Inner.(*Signal).ID; got != 12 {
		t.Errorf("expected signal 12, got %d", got)
	}
}

func TestRebaseOwnsItsClones(t *testing.T) {
	sp := source.NewSpan(0, 0)
	orig := NewSignal(7, sp)

	clone := Rebase(orig, 0).(*Signal)
	clone.ID = 99

	if orig.ID != 7 {
		t.Errorf("rebased clone aliases the original: %d", orig.ID)
	}
}

func TestRebaseAllPreservesOrder(t *testing.T) {
	sp := source.NewSpan(0, 0)
	in := []Expression{NewSignal(1, sp), NewSignal(2, sp)}

	out := RebaseAll(in, 5)

	if len(out) != 2 {
		t.Fatalf("expected 2 expressions, got %d", len(out))
	}

	if out[0].(*Signal).ID != 6 || out[1].(*Signal).ID != 7 {
		t.Errorf("unexpected ids: %d, %d", out[0].(*Signal).ID, out[1].(*Signal).ID)
	}
}
