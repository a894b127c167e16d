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

// Package tree defines the constraint tree data model ingested from the
// upstream DAG-to-tree mapping pass: an immutable tree of template
// instances, each carrying its local constraints, annotations, and child
// subtrees. It is read-only during verification; the verifier accumulates
// its own transient per-node state alongside it (pkg/civer/verifier),
// never mutating the tree itself.
package tree

import (
	"math/big"

	"github.com/consensys/go-civer/pkg/civer/ast"
)

// NodeID is the stable equivalence-class key shared by structurally
// identical template instances (same template body and parameters). The
// compositional verifier memoizes on this, not on a node's position in the
// tree.
type NodeID uint

// LinearCombination is a sparse affine combination ∑ cᵢ·sᵢ + c₀ over
// signals. Terms maps a signal identifier to its coefficient (a field
// element in [0,p), stored in canonical reduced form); Constant is the c₀
// slot, always attributable to the constant-1 signal (signal 0).
type LinearCombination struct {
	Terms    map[ast.SignalID]*big.Int
	Constant *big.Int
}

// NewLinearCombination constructs an empty linear combination with a zero
// constant term.
func NewLinearCombination() LinearCombination {
	return LinearCombination{
		Terms:    make(map[ast.SignalID]*big.Int),
		Constant: big.NewInt(0),
	}
}

// Constraint is an R1CS constraint (A, B, C) asserting A*B = C (mod p).
type Constraint struct {
	Name    string
	A, B, C LinearCombination
}

// PossibleResult is the five-valued verdict attached to an obligation.
type PossibleResult int

// The five verdicts an obligation may settle to, plus TOO_BIG which is not
// itself settled.
const (
	VERIFIED PossibleResult = iota
	FAILED
	UNKNOWN
	TOO_BIG
	NOTHING
	NOSTUDIED
)

func (r PossibleResult) String() string {
	switch r {
	case VERIFIED:
		return "VERIFIED"
	case FAILED:
		return "FAILED"
	case UNKNOWN:
		return "UNKNOWN"
	case TOO_BIG:
		return "TOO_BIG"
	case NOTHING:
		return "NOTHING"
	case NOSTUDIED:
		return "NOSTUDIED"
	default:
		return "?"
	}
}

// Settled reports whether this verdict can stand as an obligation's final
// answer; only TOO_BIG marks an obligation as still in need of more
// context.
func (r PossibleResult) Settled() bool {
	switch r {
	case VERIFIED, FAILED, UNKNOWN, NOTHING, NOSTUDIED:
		return true
	default:
		return false
	}
}

// Annotations bundles the five parallel expression sets attached to a
// template node, plus the tag-mode variants.
type Annotations struct {
	Preconditions                   []ast.Expression
	PreconditionsIntermediates      []ast.Expression
	PostconditionsOutputs           []ast.Expression
	PostconditionsIntermediates     []ast.Expression
	Facts                           []ast.Expression
	TagsPreconditions               []ast.Expression
	TagsPostconditionsOutputs       []ast.Expression
	TagsPostconditionsIntermediates []ast.Expression
}

// Node is one template instance in the constraint tree.
type Node struct {
	TemplateName string
	DisplayName  string
	ID           NodeID

	NumberInputs  uint
	NumberOutputs uint
	NumberSignals uint
	InitialSignal ast.SignalID

	Constraints []Constraint
	Annotations Annotations

	Children []*Node
}

// InputSignals returns the global identifiers of this node's input signals:
// [InitialSignal, InitialSignal+NumberInputs).
func (n *Node) InputSignals() []ast.SignalID {
	return rangeIDs(n.InitialSignal, n.NumberInputs)
}

// OutputSignals returns the global identifiers of this node's output
// signals, which immediately follow the inputs in the node's local
// numbering: [InitialSignal+NumberInputs, InitialSignal+NumberInputs+NumberOutputs).
func (n *Node) OutputSignals() []ast.SignalID {
	return rangeIDs(n.InitialSignal+n.NumberInputs, n.NumberOutputs)
}

// AllSignals returns every signal identifier local to this node:
// [InitialSignal, InitialSignal+NumberSignals).
func (n *Node) AllSignals() []ast.SignalID {
	return rangeIDs(n.InitialSignal, n.NumberSignals)
}

func rangeIDs(start ast.SignalID, count uint) []ast.SignalID {
	ids := make([]ast.SignalID, count)
	for i := range ids {
		ids[i] = start + ast.SignalID(i)
	}

	return ids
}

// ExecutedImplication conveys a summary of an already-verified child's
// postcondition obligation into its parent's SMT context, in lieu of
// re-encoding the child's full constraint set: ⋀ Left ⇒ ⋀ Right.
type ExecutedImplication struct {
	Left  []ast.Expression
	Right []ast.Expression
}

// SafetyImplication conveys the determinism summary exported by an
// already-verified child: if two executions agree on Inputs they must agree
// on Outputs.
type SafetyImplication struct {
	Inputs  []ast.SignalID
	Outputs []ast.SignalID
}
