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

// Package field provides the signed/unsigned conversion and interval
// arithmetic kernel used throughout the civer verification core.  The
// prime is a runtime value (a decimal string from the configuration), so
// all arithmetic goes through math/big rather than a compile-time curve
// element type.
package field

import "math/big"

// Interval is a discrete, inclusive range of integers [Min, Max] over ℤ.  It
// may be negative, straddle zero, or exceed the field modulus; the kernel
// never silently wraps a value into [0, p).
type Interval struct {
	Min big.Int
	Max big.Int
}

// NewInterval builds an interval from the given bounds. Panics if lo > hi.
func NewInterval(lo, hi *big.Int) *Interval {
	if lo.Cmp(hi) > 0 {
		panic("invalid interval: lo > hi")
	}

	var iv Interval

	iv.Min.Set(lo)
	iv.Max.Set(hi)

	return &iv
}

// NewInterval64 is a convenience constructor for small literal bounds.
func NewInterval64(lo, hi int64) *Interval {
	return NewInterval(big.NewInt(lo), big.NewInt(hi))
}

// Point returns the degenerate interval [v, v].
func Point(v *big.Int) *Interval {
	return NewInterval(v, v)
}

// Clone returns a deep copy of this interval.
func (iv *Interval) Clone() *Interval {
	return NewInterval(&iv.Min, &iv.Max)
}

// Set assigns the value of another interval to this one.
func (iv *Interval) Set(other *Interval) {
	iv.Min.Set(&other.Min)
	iv.Max.Set(&other.Max)
}

// Contains checks whether a given integer lies within this interval.
func (iv *Interval) Contains(v *big.Int) bool {
	return iv.Min.Cmp(v) <= 0 && iv.Max.Cmp(v) >= 0
}

// Insert widens this interval, if necessary, so that it also contains other.
// This is the union (convex hull) of the two intervals, used when merging
// bounds derived from alternative branches of a disjunctive precondition.
func (iv *Interval) Insert(other *Interval) {
	if iv.Min.Cmp(&other.Min) > 0 {
		iv.Min.Set(&other.Min)
	}

	if iv.Max.Cmp(&other.Max) < 0 {
		iv.Max.Set(&other.Max)
	}
}

// Intersect narrows this interval to the overlap with other. The result may
// be empty (Min > Max), which callers must check for via IsEmpty.
func (iv *Interval) Intersect(other *Interval) {
	if iv.Min.Cmp(&other.Min) < 0 {
		iv.Min.Set(&other.Min)
	}

	if iv.Max.Cmp(&other.Max) > 0 {
		iv.Max.Set(&other.Max)
	}
}

// IsEmpty reports whether this interval contains no integers.
func (iv *Interval) IsEmpty() bool {
	return iv.Min.Cmp(&iv.Max) > 0
}

// IvAdd returns the interval sum of a and b: [a.Min+b.Min, a.Max+b.Max].
func IvAdd(a, b *Interval) *Interval {
	var lo, hi big.Int

	lo.Add(&a.Min, &b.Min)
	hi.Add(&a.Max, &b.Max)

	return NewInterval(&lo, &hi)
}

// IvSub returns the interval difference a - b: [a.Min-b.Max, a.Max-b.Min].
func IvSub(a, b *Interval) *Interval {
	var lo, hi big.Int

	lo.Sub(&a.Min, &b.Max)
	hi.Sub(&a.Max, &b.Min)

	return NewInterval(&lo, &hi)
}

// IvMul returns the interval product of a and b, computed by case-splitting
// on the four corner products (the maximum and minimum of a.Min*b.Min,
// a.Min*b.Max, a.Max*b.Min, a.Max*b.Max always bound the true product range,
// for any combination of operand signs).
func IvMul(a, b *Interval) *Interval {
	corners := [4]big.Int{}

	corners[0].Mul(&a.Min, &b.Min)
	corners[1].Mul(&a.Min, &b.Max)
	corners[2].Mul(&a.Max, &b.Min)
	corners[3].Mul(&a.Max, &b.Max)

	lo, hi := corners[0], corners[0]

	for i := 1; i < len(corners); i++ {
		if corners[i].Cmp(&lo) < 0 {
			lo = corners[i]
		}

		if corners[i].Cmp(&hi) > 0 {
			hi = corners[i]
		}
	}

	return NewInterval(&lo, &hi)
}

// String renders the interval as "[lo,hi]".
func (iv *Interval) String() string {
	return "[" + iv.Min.String() + "," + iv.Max.String() + "]"
}
