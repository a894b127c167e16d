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
package field

import "math/big"

// ToSigned maps a field element x ∈ [0,p) to its canonical signed
// representative: x if x <= p/2, else x - p.  This is the representation
// handed to the SMT integer solver whenever a field coefficient or constant
// is reified.
func ToSigned(x, p *big.Int) *big.Int {
	var half, r big.Int

	half.Rsh(p, 1)

	r.Mod(x, p)

	if r.Cmp(&half) <= 0 {
		return &r
	}

	r.Sub(&r, p)

	return &r
}

// FromSigned maps a signed representative back into [0,p).
func FromSigned(x, p *big.Int) *big.Int {
	var r big.Int

	r.Mod(x, p)

	return &r
}

// Floor computes ⌊a/b⌋ using Euclidean (floor) division, matching the
// mathematical floor rather than Go's truncating big.Int.Quo.
func Floor(a, b *big.Int) *big.Int {
	var q, m big.Int

	q.DivMod(a, b, &m)

	return &q
}

// CeilDiv computes the ceiling of a/b for a positive divisor b, rounding
// up (toward positive infinity) whenever a remainder is present (used to size quotient
// variable domains in the encoder).
func CeilDiv(a, b *big.Int) *big.Int {
	var q, m big.Int

	q.DivMod(a, b, &m)

	if m.Sign() != 0 {
		q.Add(&q, big.NewInt(1))
	}

	return &q
}

// Sign returns -1, 0 or 1 for a negative, zero or positive integer.
func Sign(x *big.Int) int {
	return x.Sign()
}

// SameRound reports whether a and b land in the same "modular round" with
// respect to prime p: ⌊a/p⌋ = ⌊b/p⌋ ∧ sign(a) = sign(b).  When this holds for
// the two endpoints of a candidate bound, the field-quotient implied by
// dividing by p is constant across the whole interval, so the bound can be
// trusted without tracking which quotient each point in the interval takes.
//
// "sign(a) = sign(b)" is read as the negative/non-negative split, not a
// strict three-way comparison: the interval [0, hi] for hi >= 0 does not
// straddle zero (only lo < 0 <= hi does, the exact boundary the two-disjunct
// bound assertion exists for), so 0 is treated as non-negative here, matching
// a positive endpoint rather than breaking the round on a technicality. The
// floor check alone already rejects every genuine lo < 0 <= hi split (a
// strictly negative lo always floors at most to -1, a non-negative hi always
// floors to at least 0, so their floors can never coincide). For a positive
// p the sign split is therefore implied by the floor check: two values with
// equal floors are either both negative or both non-negative.
func SameRound(a, b, p *big.Int) bool {
	if (a.Sign() < 0) != (b.Sign() < 0) {
		return false
	}

	qa := Floor(a, p)
	qb := Floor(b, p)

	return qa.Cmp(qb) == 0
}
