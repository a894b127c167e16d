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

// Package ast defines the annotation expression language: the shape used for
// preconditions, postconditions, tag predicates and facts attached to a
// template node.  Expressions carry only a source-location record; whether a
// given node denotes an integer term or a boolean predicate is determined
// entirely by its shape (its operator and the sorts of its operands), never
// by an explicit type tag.
package ast

import (
	"math/big"

	"github.com/consensys/go-civer/pkg/util/source"
)

// SignalID identifies a signal by its dense global identifier.
type SignalID = uint

// Expression is the annotation-language AST. Every variant satisfies this
// interface via a private marker method.
type Expression interface {
	isExpression()
	// Loc returns the source-location record attached to this node.
	Loc() source.Span
}

// Literal is an integer literal.
type Literal struct {
	Value big.Int
	Span  source.Span
}

func (*Literal) isExpression()      {}
func (l *Literal) Loc() source.Span { return l.Span }

// NewLiteral constructs an integer literal expression.
func NewLiteral(v *big.Int, span source.Span) *Literal {
	var lit Literal

	lit.Value.Set(v)
	lit.Span = span

	return &lit
}

// Signal is a reference to a signal by its global identifier.
type Signal struct {
	ID   SignalID
	Span source.Span
}

func (*Signal) isExpression()      {}
func (s *Signal) Loc() source.Span { return s.Span }

// NewSignal constructs a signal-reference expression.
func NewSignal(id SignalID, span source.Span) *Signal {
	return &Signal{ID: id, Span: span}
}

// InfixOp enumerates every binary operator recognised by the annotation
// language: arithmetic, comparison, boolean connectives, and bit/shift ops.
type InfixOp int

// Arithmetic, comparison, boolean and bit/shift infix operators.
const (
	Add InfixOp = iota
	Sub
	Mul
	DivInt // /int : integer (Euclidean) division
	Mod    // mod
	Shl    // <<
	Shr    // >>
	Eq     // =
	Neq    // ≠
	Lt     // <
	Leq    // ≤
	Gt     // >
	Geq    // ≥
	And    // ∧
	Or     // ∨
	Implies
	BitAnd // &
	BitOr  // |
)

// Infix is a binary operator application.
type Infix struct {
	Op    InfixOp
	Left  Expression
	Right Expression
	Span  source.Span
}

func (*Infix) isExpression()      {}
func (i *Infix) Loc() source.Span { return i.Span }

// NewInfix constructs a binary operator expression.
func NewInfix(op InfixOp, left, right Expression, span source.Span) *Infix {
	return &Infix{Op: op, Left: left, Right: right, Span: span}
}

// Neg is arithmetic negation: -e.
type Neg struct {
	Inner Expression
	Span  source.Span
}

func (*Neg) isExpression()      {}
func (n *Neg) Loc() source.Span { return n.Span }

// NewNeg constructs a unary arithmetic negation.
func NewNeg(inner Expression, span source.Span) *Neg {
	return &Neg{Inner: inner, Span: span}
}

// Not is boolean negation: ¬e.
type Not struct {
	Inner Expression
	Span  source.Span
}

func (*Not) isExpression()      {}
func (n *Not) Loc() source.Span { return n.Span }

// NewNot constructs a unary boolean negation.
func NewNot(inner Expression, span source.Span) *Not {
	return &Not{Inner: inner, Span: span}
}
