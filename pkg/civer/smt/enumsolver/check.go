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
package enumsolver

import (
	"math/big"
	"time"

	"github.com/consensys/go-civer/pkg/civer/smt"
)

// model is the satisfying assignment found by Check.
type model struct {
	assignment map[string]*big.Int
}

func (m *model) Eval(t smt.IntTerm) *big.Int {
	return evalInt(t, m.assignment)
}

// Check performs a bounded exhaustive search over the cartesian product of
// every declared variable's recorded domain, looking for an assignment
// satisfying every asserted formula. If the search space exceeds maxDomain,
// or the context's timeout elapses mid-search, it reports Unknown rather
// than guessing.
func (c *Context) Check() (smt.Result, smt.Model) {
	var deadline time.Time
	if c.timeout > 0 {
		deadline = time.Now().Add(c.timeout)
	}

	names := c.names
	if len(names) == 0 {
		return c.checkAssertions(nil)
	}

	ranges := make([][]*big.Int, len(names))

	var total uint64 = 1

	for i, name := range names {
		lo, hi := c.domains[name].resolve()
		vals := enumerateRange(lo, hi)
		ranges[i] = vals
		total *= uint64(len(vals))

		if total > c.maxDomain {
			return smt.Unknown, nil
		}
	}

	assignment := make(map[string]*big.Int, len(names))

	return c.search(names, ranges, 0, assignment, deadline)
}

// resolve finalises a domain for enumeration: a side never bounded by any
// assertion collapses to the other side (or zero when no bound arrived at
// all), so such a variable is tried at that single value only; the search
// is exhaustive only for variables bounded on both sides.
func (d *domain) resolve() (*big.Int, *big.Int) {
	lo, hi := d.lo, d.hi

	if lo == nil && hi == nil {
		zero := big.NewInt(0)
		return zero, zero
	}

	if lo == nil {
		lo = hi
	}

	if hi == nil {
		hi = lo
	}

	if lo.Cmp(hi) > 0 {
		// Contradictory bounds: empty domain, nothing to enumerate.
		return big.NewInt(0), big.NewInt(-1)
	}

	return lo, hi
}

func (c *Context) search(
	names []string, ranges [][]*big.Int, i int, assignment map[string]*big.Int, deadline time.Time,
) (smt.Result, smt.Model) {
	if !deadline.IsZero() && time.Now().After(deadline) {
		return smt.Unknown, nil
	}

	if i == len(names) {
		return c.checkAssertions(assignment)
	}

	for _, v := range ranges[i] {
		assignment[names[i]] = v

		if res, m := c.search(names, ranges, i+1, assignment, deadline); res != smt.Unsat {
			return res, m
		}
	}

	delete(assignment, names[i])

	return smt.Unsat, nil
}

func (c *Context) checkAssertions(assignment map[string]*big.Int) (smt.Result, smt.Model) {
	for _, f := range c.asserts {
		if !evalBool(f, assignment) {
			return smt.Unsat, nil
		}
	}

	frozen := make(map[string]*big.Int, len(assignment))
	for k, v := range assignment {
		var cp big.Int

		cp.Set(v)
		frozen[k] = &cp
	}

	return smt.Sat, &model{assignment: frozen}
}

// enumerateRange lists every integer in [lo,hi], inclusive.
func enumerateRange(lo, hi *big.Int) []*big.Int {
	var out []*big.Int

	one := big.NewInt(1)

	for v := new(big.Int).Set(lo); v.Cmp(hi) <= 0; v.Add(v, one) {
		var cp big.Int

		cp.Set(v)
		out = append(out, &cp)
	}

	return out
}

func evalInt(t smt.IntTerm, env map[string]*big.Int) *big.Int {
	switch v := t.(type) {
	case *smt.Const:
		var r big.Int

		r.Set(&v.Val)

		return &r
	case *smt.Var:
		if val, ok := env[v.Name]; ok {
			var r big.Int
			r.Set(val)

			return &r
		}

		return big.NewInt(0)
	case *smt.Neg:
		var r big.Int
		r.Neg(evalInt(v.X, env))

		return &r
	case *smt.Binary:
		x, y := evalInt(v.X, env), evalInt(v.Y, env)

		var r big.Int

		switch v.Op {
		case smt.Add:
			r.Add(x, y)
		case smt.Sub:
			r.Sub(x, y)
		case smt.Mul:
			r.Mul(x, y)
		}

		return &r
	case *smt.DivMod:
		x, y := evalInt(v.X, env), evalInt(v.Y, env)

		var q, m big.Int

		q.DivMod(x, y, &m)

		if v.Op == smt.OpMod {
			return &m
		}

		return &q
	default:
		panic("enumsolver: unsupported int term")
	}
}

func evalBool(f smt.Formula, env map[string]*big.Int) bool {
	switch v := f.(type) {
	case *smt.BoolLit:
		return v.Value
	case *smt.Not:
		return !evalBool(v.X, env)
	case *smt.Pred:
		l, r := evalInt(v.Left, env), evalInt(v.Right, env)

		switch v.Op {
		case smt.OpEq:
			return l.Cmp(r) == 0
		case smt.OpNe:
			return l.Cmp(r) != 0
		case smt.OpLt:
			return l.Cmp(r) < 0
		case smt.OpLe:
			return l.Cmp(r) <= 0
		case smt.OpGt:
			return l.Cmp(r) > 0
		case smt.OpGe:
			return l.Cmp(r) >= 0
		default:
			return false
		}
	case *smt.BinopConnectivePred:
		switch v.Op {
		case smt.OpAnd:
			return evalBool(v.Left, env) && evalBool(v.Right, env)
		case smt.OpOr:
			return evalBool(v.Left, env) || evalBool(v.Right, env)
		case smt.OpIff:
			return evalBool(v.Left, env) == evalBool(v.Right, env)
		case smt.OpImplies:
			return !evalBool(v.Left, env) || evalBool(v.Right, env)
		default:
			return false
		}
	default:
		panic("enumsolver: unsupported formula")
	}
}
