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

// Package eval translates the annotation expression language (pkg/civer/ast)
// into SMT terms (pkg/civer/smt), one case per AST shape: whether a node
// denotes an integer term or a boolean predicate is decided entirely by
// its shape and position.
//
// Translation is partial: a shape this package cannot encode (principally, a
// shift whose right operand is not a literal) does not panic or assert
// `true` in its place — it reports failure to the caller, who is
// responsible for logging a warning and dropping the annotation.
package eval

import (
	"fmt"
	"math/big"

	"github.com/consensys/go-civer/pkg/civer/ast"
	"github.com/consensys/go-civer/pkg/civer/field"
	"github.com/consensys/go-civer/pkg/civer/smt"
)

// Env maps a signal identifier to the integer SMT term bound to it in the
// current encoding context.
type Env map[ast.SignalID]smt.IntTerm

// ToIntTerm translates e as an integer-sorted term, given the field modulus
// p (needed to canonicalise literals via ToSigned) and the signal
// environment env. ok is false when e cannot be interpreted as an integer
// term under these rules.
func ToIntTerm(e ast.Expression, env Env, p *big.Int) (term smt.IntTerm, ok bool) {
	switch v := e.(type) {
	case *ast.Literal:
		return smt.NewConst(field.ToSigned(&v.Value, p)), true
	case *ast.Signal:
		t, found := env[v.ID]
		return t, found
	case *ast.Neg:
		inner, ok := ToIntTerm(v.Inner, env, p)
		if !ok {
			return nil, false
		}

		return smt.NegE(inner), true
	case *ast.Infix:
		return infixToIntTerm(v, env, p)
	default:
		return nil, false
	}
}

func infixToIntTerm(v *ast.Infix, env Env, p *big.Int) (smt.IntTerm, bool) {
	switch v.Op {
	case ast.Add, ast.Sub, ast.Mul:
		return arithInfix(v, env, p)
	case ast.DivInt, ast.Mod:
		return divModInfix(v, env, p)
	case ast.Shl, ast.Shr:
		return shiftInfix(v, env, p)
	default:
		// Comparison/boolean operators do not denote an integer term.
		return nil, false
	}
}

func arithInfix(v *ast.Infix, env Env, p *big.Int) (smt.IntTerm, bool) {
	l, lok := ToIntTerm(v.Left, env, p)
	r, rok := ToIntTerm(v.Right, env, p)

	if !lok || !rok {
		return nil, false
	}

	switch v.Op {
	case ast.Add:
		return smt.AddE(l, r), true
	case ast.Sub:
		return smt.SubE(l, r), true
	case ast.Mul:
		return smt.MulE(l, r), true
	default:
		return nil, false
	}
}

// divModInfix maps /int and mod to SMT integer division/modulo. Both
// operands must themselves translate as integer terms; the divisor need not
// be a literal (unlike shifts).
func divModInfix(v *ast.Infix, env Env, p *big.Int) (smt.IntTerm, bool) {
	l, lok := ToIntTerm(v.Left, env, p)
	r, rok := ToIntTerm(v.Right, env, p)

	if !lok || !rok {
		return nil, false
	}

	if v.Op == ast.DivInt {
		return smt.DivIntE(l, r), true
	}

	return smt.ModE(l, r), true
}

// shiftInfix accepts a literal right operand only: `x << k` becomes `x *
// 2^k`, and `x >> k` becomes `x /int 2^k`. A non-literal shift fails
// translation.
func shiftInfix(v *ast.Infix, env Env, p *big.Int) (smt.IntTerm, bool) {
	lit, isLit := v.Right.(*ast.Literal)
	if !isLit || !lit.Value.IsUint64() {
		return nil, false
	}

	l, lok := ToIntTerm(v.Left, env, p)
	if !lok {
		return nil, false
	}

	k := lit.Value.Uint64()

	var pow big.Int

	pow.Lsh(big.NewInt(1), uint(k))

	powTerm := smt.NewConst(&pow)

	if v.Op == ast.Shl {
		return smt.MulE(l, powTerm), true
	}

	return smt.DivIntE(l, powTerm), true
}

// ToBoolTerm translates e as a Boolean-sorted formula.
func ToBoolTerm(e ast.Expression, env Env, p *big.Int) (f smt.Formula, ok bool) {
	switch v := e.(type) {
	case *ast.Literal:
		return smt.NewBoolLit(v.Value.Sign() != 0), true
	case *ast.Signal:
		t, found := env[v.ID]
		if !found {
			return nil, false
		}

		return smt.NewNeq(t, smt.Zero()), true
	case *ast.Not:
		inner, ok := ToBoolTerm(v.Inner, env, p)
		if !ok {
			return nil, false
		}

		return smt.NewNot(inner), true
	case *ast.Infix:
		return infixToBoolTerm(v, env, p)
	default:
		return nil, false
	}
}

func infixToBoolTerm(v *ast.Infix, env Env, p *big.Int) (smt.Formula, bool) {
	switch v.Op {
	case ast.Eq, ast.Neq:
		return eqNeqToBoolTerm(v, env, p)
	case ast.Lt, ast.Leq, ast.Gt, ast.Geq:
		return relToBoolTerm(v, env, p)
	case ast.And, ast.BitAnd:
		return connectiveToBoolTerm(smt.OpAnd, v, env, p)
	case ast.Or, ast.BitOr:
		return connectiveToBoolTerm(smt.OpOr, v, env, p)
	case ast.Implies:
		return connectiveToBoolTerm(smt.OpImplies, v, env, p)
	default:
		return nil, false
	}
}

// eqNeqToBoolTerm handles `=`/`≠`, which are overloaded across sorts: first
// attempt an integer interpretation of both sides, falling back to Boolean
// equivalence/inequivalence when that fails.
func eqNeqToBoolTerm(v *ast.Infix, env Env, p *big.Int) (smt.Formula, bool) {
	l, lok := ToIntTerm(v.Left, env, p)
	r, rok := ToIntTerm(v.Right, env, p)

	if lok && rok {
		if v.Op == ast.Eq {
			return smt.NewEq(l, r), true
		}

		return smt.NewNeq(l, r), true
	}

	lb, lbok := ToBoolTerm(v.Left, env, p)
	rb, rbok := ToBoolTerm(v.Right, env, p)

	if !lbok || !rbok {
		return nil, false
	}

	if v.Op == ast.Eq {
		return smt.Connect(smt.OpIff, lb, rb), true
	}

	return smt.NewNot(smt.Connect(smt.OpIff, lb, rb)), true
}

func relToBoolTerm(v *ast.Infix, env Env, p *big.Int) (smt.Formula, bool) {
	l, lok := ToIntTerm(v.Left, env, p)
	r, rok := ToIntTerm(v.Right, env, p)

	if !lok || !rok {
		return nil, false
	}

	switch v.Op {
	case ast.Lt:
		return smt.NewLt(l, r), true
	case ast.Leq:
		return smt.NewLeq(l, r), true
	case ast.Gt:
		return smt.NewGt(l, r), true
	case ast.Geq:
		return smt.NewGeq(l, r), true
	default:
		return nil, false
	}
}

func connectiveToBoolTerm(op smt.BinopConnective, v *ast.Infix, env Env, p *big.Int) (smt.Formula, bool) {
	l, lok := ToBoolTerm(v.Left, env, p)
	r, rok := ToBoolTerm(v.Right, env, p)

	if !lok || !rok {
		return nil, false
	}

	return smt.Connect(op, l, r), true
}

// Describe renders e for warning messages when translation fails.
func Describe(e ast.Expression) string {
	return fmt.Sprintf("%T at %v", e, e.Loc())
}
