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

// Package enumsolver is a bounded-enumeration reference implementation of
// smt.Context: exhaustive search over the cartesian product of every
// declared variable's asserted interval. It is only practical for small
// primes, which makes it a test and reference backend rather than a
// production solver; a production deployment plugs a real SMT solver in
// behind the same smt.Context interface.
package enumsolver

import (
	"math/big"
	"time"

	"github.com/consensys/go-civer/pkg/civer/smt"
)

// domain is the enumerable range recorded for one variable from the
// bound-shaped assertions the backend recognises. A nil side is unbounded
// so far; Check resolves any side still nil to a singleton.
type domain struct {
	lo, hi *big.Int
}

// intersect narrows this domain with another bound implied by a further
// conjunct.
func (d *domain) intersect(other *domain) {
	if other.lo != nil && (d.lo == nil || other.lo.Cmp(d.lo) > 0) {
		d.lo = new(big.Int).Set(other.lo)
	}

	if other.hi != nil && (d.hi == nil || other.hi.Cmp(d.hi) < 0) {
		d.hi = new(big.Int).Set(other.hi)
	}
}

// Context is the enumeration-based smt.Context implementation.
type Context struct {
	timeout   time.Duration
	names     []string
	domains   map[string]*domain
	asserts   []smt.Formula
	maxDomain uint64
}

// NewContext constructs an empty enumeration context. maxDomain bounds how
// many combinations the search will explore before giving up with Unknown,
// protecting callers from an accidental exponential blow-up.
func NewContext(timeout time.Duration, maxDomain uint64) *Context {
	if maxDomain == 0 {
		maxDomain = 1_000_000
	}

	return &Context{
		timeout:   timeout,
		domains:   make(map[string]*domain),
		maxDomain: maxDomain,
	}
}

var _ smt.Solver = (*solver)(nil)

type solver struct{ maxDomain uint64 }

// NewSolver returns an smt.Solver backed by enumeration contexts.
func NewSolver(maxDomain uint64) smt.Solver { return &solver{maxDomain: maxDomain} }

func (s *solver) NewContext(timeout time.Duration) smt.Context {
	return NewContext(timeout, s.maxDomain)
}

// IntConst declares a fresh named variable and registers it for
// enumeration. Its domain starts unbounded and narrows as bound-shaped
// assertions arrive (see Assert).
func (c *Context) IntConst(name string) smt.IntTerm {
	c.names = append(c.names, name)
	c.domains[name] = &domain{}

	return &smt.Var{Name: name}
}

// IntLiteral constructs an integer literal term.
func (c *Context) IntLiteral(v *big.Int) smt.IntTerm { return smt.NewConst(v) }

// Assert records f as a hard constraint, additionally narrowing a
// variable's enumerable domain when f implies a bound on it: simple
// comparisons against constants, conjunctions of such, and disjunctions
// (notably the two-branch zero-crossing range assertion the encoder
// emits), whose branches combine by convex union.
func (c *Context) Assert(f smt.Formula) {
	c.asserts = append(c.asserts, f)

	for name, d := range boundsOf(f) {
		if existing, ok := c.domains[name]; ok {
			existing.intersect(d)
		}
	}
}

// boundsOf computes the per-variable bound implied by f. Conjunction
// intersects the branches' bounds; disjunction unions them, keeping only
// variables bounded under every branch (a variable unbounded in one branch
// is unbounded under the disjunction as a whole). Shapes it does not
// recognise imply no bound, which can only widen the search, never shrink
// it below the asserted set.
func boundsOf(f smt.Formula) map[string]*domain {
	switch v := f.(type) {
	case *smt.BinopConnectivePred:
		switch v.Op {
		case smt.OpAnd:
			out := boundsOf(v.Left)
			if out == nil {
				return boundsOf(v.Right)
			}

			for name, d := range boundsOf(v.Right) {
				if existing, ok := out[name]; ok {
					existing.intersect(d)
				} else {
					out[name] = d
				}
			}

			return out
		case smt.OpOr:
			return unionBounds(boundsOf(v.Left), boundsOf(v.Right))
		}
	case *smt.Pred:
		if name, d, ok := asBound(v); ok {
			return map[string]*domain{name: d}
		}
	}

	return nil
}

func unionBounds(left, right map[string]*domain) map[string]*domain {
	out := make(map[string]*domain)

	for name, dl := range left {
		dr, ok := right[name]
		if !ok {
			continue
		}

		merged := &domain{}

		if dl.lo != nil && dr.lo != nil {
			merged.lo = new(big.Int).Set(minOf(dl.lo, dr.lo))
		}

		if dl.hi != nil && dr.hi != nil {
			merged.hi = new(big.Int).Set(maxOf(dl.hi, dr.hi))
		}

		if merged.lo != nil || merged.hi != nil {
			out[name] = merged
		}
	}

	return out
}

func minOf(a, b *big.Int) *big.Int {
	if a.Cmp(b) <= 0 {
		return a
	}

	return b
}

func maxOf(a, b *big.Int) *big.Int {
	if a.Cmp(b) >= 0 {
		return a
	}

	return b
}

// asBound recognises `Var OP Const` / `Const OP Var` shapes and returns the
// implied one- or two-sided domain for the named variable, or ok=false if
// the predicate is not bound-shaped.
func asBound(p *smt.Pred) (string, *domain, bool) {
	v, c, swapped, matched := splitVarConst(p.Left, p.Right)
	if !matched {
		return "", nil, false
	}

	effOp := p.Op
	if swapped {
		effOp = mirror(effOp)
	}

	one := big.NewInt(1)

	switch effOp {
	case smt.OpLe: // v <= c
		return v.Name, &domain{hi: new(big.Int).Set(&c.Val)}, true
	case smt.OpLt: // v < c
		return v.Name, &domain{hi: new(big.Int).Sub(&c.Val, one)}, true
	case smt.OpGe: // v >= c
		return v.Name, &domain{lo: new(big.Int).Set(&c.Val)}, true
	case smt.OpGt: // v > c
		return v.Name, &domain{lo: new(big.Int).Add(&c.Val, one)}, true
	case smt.OpEq: // v = c
		return v.Name, &domain{lo: new(big.Int).Set(&c.Val), hi: new(big.Int).Set(&c.Val)}, true
	default:
		return "", nil, false
	}
}

func splitVarConst(l, r smt.IntTerm) (v *smt.Var, c *smt.Const, swapped bool, ok bool) {
	if vv, isVar := l.(*smt.Var); isVar {
		if cc, isConst := r.(*smt.Const); isConst {
			return vv, cc, false, true
		}
	}

	if vv, isVar := r.(*smt.Var); isVar {
		if cc, isConst := l.(*smt.Const); isConst {
			return vv, cc, true, true
		}
	}

	return nil, nil, false, false
}

// mirror flips a relational operator to account for operand order, i.e.
// `c OP v` becomes `v mirror(OP) c`.
func mirror(op smt.RelOp) smt.RelOp {
	switch op {
	case smt.OpLt:
		return smt.OpGt
	case smt.OpLe:
		return smt.OpGe
	case smt.OpGt:
		return smt.OpLt
	case smt.OpGe:
		return smt.OpLe
	default:
		return op
	}
}
