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

// Package ingest reads the constraint tree the verifier runs over from a
// JSON document. The tree's actual producer -- the front-end that parses
// templates, builds the constraint DAG and attaches annotations -- lives
// in the circuit compiler itself; this package is the boundary its output
// crosses to reach the verifier.
package ingest

import (
	"fmt"
	"math/big"
	"os"

	"github.com/segmentio/encoding/json"

	"github.com/consensys/go-civer/pkg/civer/ast"
	"github.com/consensys/go-civer/pkg/civer/tree"
	"github.com/consensys/go-civer/pkg/util/source"
)

// Error wraps any malformed-document condition encountered while ingesting
// a constraint tree. Unlike per-obligation failures, these abort the run.
type Error struct {
	msg string
}

func (e *Error) Error() string { return "civer: ingest error: " + e.msg }

func errf(format string, args ...interface{}) *Error {
	return &Error{msg: fmt.Sprintf(format, args...)}
}

// jsonExpr is the wire shape of one ast.Expression node, a tagged union:
// Kind selects which of the other fields are populated.
type jsonExpr struct {
	Kind  string    `json:"kind"`
	Value string    `json:"value,omitempty"` // literal: decimal string
	ID    uint      `json:"id,omitempty"`    // signal
	Op    string    `json:"op,omitempty"`    // infix
	Left  *jsonExpr `json:"left,omitempty"`
	Right *jsonExpr `json:"right,omitempty"`
	Inner *jsonExpr `json:"inner,omitempty"` // neg / not
}

type jsonLinComb struct {
	Terms    map[string]string `json:"terms"`    // signal id (decimal) -> coefficient (decimal)
	Constant string            `json:"constant"` // decimal, defaults to "0"
}

type jsonConstraint struct {
	Name string      `json:"name"`
	A    jsonLinComb `json:"a"`
	B    jsonLinComb `json:"b"`
	C    jsonLinComb `json:"c"`
}

type jsonAnnotations struct {
	Preconditions                   []jsonExpr `json:"preconditions"`
	PreconditionsIntermediates      []jsonExpr `json:"preconditions_intermediates"`
	PostconditionsOutputs           []jsonExpr `json:"postconditions_outputs"`
	PostconditionsIntermediates     []jsonExpr `json:"postconditions_intermediates"`
	Facts                           []jsonExpr `json:"facts"`
	TagsPreconditions               []jsonExpr `json:"tags_preconditions"`
	TagsPostconditionsOutputs       []jsonExpr `json:"tags_postconditions_outputs"`
	TagsPostconditionsIntermediates []jsonExpr `json:"tags_postconditions_intermediates"`
}

type jsonNode struct {
	TemplateName  string           `json:"template_name"`
	DisplayName   string           `json:"display_name"`
	NodeID        uint             `json:"node_id"`
	NumberInputs  uint             `json:"number_inputs"`
	NumberOutputs uint             `json:"number_outputs"`
	NumberSignals uint             `json:"number_signals"`
	InitialSignal uint             `json:"initial_signal"`
	Constraints   []jsonConstraint `json:"constraints"`
	Annotations   jsonAnnotations  `json:"annotations"`
	Children      []jsonNode       `json:"children"`
}

// Document is the top-level JSON document: the root node plus the field
// prime it was elaborated against, validated here so a document built for
// the wrong field is rejected at ingest rather than silently misverified.
type Document struct {
	Prime string   `json:"prime"`
	Root  jsonNode `json:"root"`
}

// ReadFile reads and decodes a constraint tree document from path,
// cross-checking its declared prime against expectedPrime.
func ReadFile(path string, expectedPrime *big.Int) (*tree.Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var doc Document

	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errf("malformed JSON: %v", err)
	}

	if doc.Prime != "" {
		p, ok := new(big.Int).SetString(doc.Prime, 10)
		if !ok {
			return nil, errf("document prime %q is not a decimal integer", doc.Prime)
		}

		if expectedPrime != nil && p.Cmp(expectedPrime) != 0 {
			return nil, errf("document prime %s does not match configured prime %s", p, expectedPrime)
		}
	}

	return decodeNode(&doc.Root)
}

func decodeNode(n *jsonNode) (*tree.Node, error) {
	constraints := make([]tree.Constraint, len(n.Constraints))

	for i, jc := range n.Constraints {
		c, err := decodeConstraint(jc)
		if err != nil {
			return nil, errf("node %s, constraint %d: %v", n.TemplateName, i, err)
		}

		constraints[i] = c
	}

	annotations, err := decodeAnnotations(n.Annotations)
	if err != nil {
		return nil, errf("node %s: %v", n.TemplateName, err)
	}

	children := make([]*tree.Node, len(n.Children))

	for i := range n.Children {
		child, err := decodeNode(&n.Children[i])
		if err != nil {
			return nil, err
		}

		children[i] = child
	}

	displayName := n.DisplayName
	if displayName == "" {
		displayName = n.TemplateName
	}

	return &tree.Node{
		TemplateName:  n.TemplateName,
		DisplayName:   displayName,
		ID:            tree.NodeID(n.NodeID),
		NumberInputs:  n.NumberInputs,
		NumberOutputs: n.NumberOutputs,
		NumberSignals: n.NumberSignals,
		InitialSignal: n.InitialSignal,
		Constraints:   constraints,
		Annotations:   annotations,
		Children:      children,
	}, nil
}

func decodeConstraint(jc jsonConstraint) (tree.Constraint, error) {
	a, err := decodeLinComb(jc.A)
	if err != nil {
		return tree.Constraint{}, fmt.Errorf("A: %w", err)
	}

	b, err := decodeLinComb(jc.B)
	if err != nil {
		return tree.Constraint{}, fmt.Errorf("B: %w", err)
	}

	c, err := decodeLinComb(jc.C)
	if err != nil {
		return tree.Constraint{}, fmt.Errorf("C: %w", err)
	}

	return tree.Constraint{Name: jc.Name, A: a, B: b, C: c}, nil
}

func decodeLinComb(jlc jsonLinComb) (tree.LinearCombination, error) {
	lc := tree.NewLinearCombination()

	if jlc.Constant != "" {
		v, ok := new(big.Int).SetString(jlc.Constant, 10)
		if !ok {
			return lc, fmt.Errorf("constant %q is not a decimal integer", jlc.Constant)
		}

		lc.Constant = v
	}

	for sidStr, coeffStr := range jlc.Terms {
		sid, ok := new(big.Int).SetString(sidStr, 10)
		if !ok {
			return lc, fmt.Errorf("signal id %q is not a decimal integer", sidStr)
		}

		coeff, ok := new(big.Int).SetString(coeffStr, 10)
		if !ok {
			return lc, fmt.Errorf("coefficient %q is not a decimal integer", coeffStr)
		}

		lc.Terms[ast.SignalID(sid.Uint64())] = coeff
	}

	return lc, nil
}

func decodeAnnotations(a jsonAnnotations) (tree.Annotations, error) {
	var out tree.Annotations

	srcs := []*[]jsonExpr{
		&a.Preconditions,
		&a.PreconditionsIntermediates,
		&a.PostconditionsOutputs,
		&a.PostconditionsIntermediates,
		&a.Facts,
		&a.TagsPreconditions,
		&a.TagsPostconditionsOutputs,
		&a.TagsPostconditionsIntermediates,
	}

	dsts := []*[]ast.Expression{
		&out.Preconditions,
		&out.PreconditionsIntermediates,
		&out.PostconditionsOutputs,
		&out.PostconditionsIntermediates,
		&out.Facts,
		&out.TagsPreconditions,
		&out.TagsPostconditionsOutputs,
		&out.TagsPostconditionsIntermediates,
	}

	for i, src := range srcs {
		exprs, err := decodeExprList(*src)
		if err != nil {
			return out, err
		}

		*dsts[i] = exprs
	}

	return out, nil
}

func decodeExprList(in []jsonExpr) ([]ast.Expression, error) {
	out := make([]ast.Expression, len(in))

	for i := range in {
		e, err := decodeExpr(&in[i])
		if err != nil {
			return nil, err
		}

		out[i] = e
	}

	return out, nil
}

var infixOps = map[string]ast.InfixOp{
	"+": ast.Add, "-": ast.Sub, "*": ast.Mul, "/int": ast.DivInt, "mod": ast.Mod,
	"<<": ast.Shl, ">>": ast.Shr, "=": ast.Eq, "!=": ast.Neq, "<": ast.Lt, "<=": ast.Leq,
	">": ast.Gt, ">=": ast.Geq, "&&": ast.And, "||": ast.Or, "=>": ast.Implies,
	"&": ast.BitAnd, "|": ast.BitOr,
}

func decodeExpr(e *jsonExpr) (ast.Expression, error) {
	span := source.NewSpan(0, 0)

	switch e.Kind {
	case "literal":
		v, ok := new(big.Int).SetString(e.Value, 10)
		if !ok {
			return nil, fmt.Errorf("literal %q is not a decimal integer", e.Value)
		}

		return ast.NewLiteral(v, span), nil
	case "signal":
		return ast.NewSignal(e.ID, span), nil
	case "infix":
		op, ok := infixOps[e.Op]
		if !ok {
			return nil, fmt.Errorf("unrecognized infix operator %q", e.Op)
		}

		if e.Left == nil || e.Right == nil {
			return nil, fmt.Errorf("infix %q missing an operand", e.Op)
		}

		left, err := decodeExpr(e.Left)
		if err != nil {
			return nil, err
		}

		right, err := decodeExpr(e.Right)
		if err != nil {
			return nil, err
		}

		return ast.NewInfix(op, left, right, span), nil
	case "neg":
		if e.Inner == nil {
			return nil, fmt.Errorf("neg missing its operand")
		}

		inner, err := decodeExpr(e.Inner)
		if err != nil {
			return nil, err
		}

		return ast.NewNeg(inner, span), nil
	case "not":
		if e.Inner == nil {
			return nil, fmt.Errorf("not missing its operand")
		}

		inner, err := decodeExpr(e.Inner)
		if err != nil {
			return nil, err
		}

		return ast.NewNot(inner, span), nil
	default:
		return nil, fmt.Errorf("unrecognized expression kind %q", e.Kind)
	}
}
