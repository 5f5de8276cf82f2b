// Copyright 2026 The bladebit Authors
// This file is part of bladebit.
//
// bladebit is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// bladebit is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with bladebit. If not, see <http://www.gnu.org/licenses/>.

package phase3

// LinePoint is the bijective scalar encoding of an unordered pair (x, y),
// LP(x,y) = T(max(x,y)) + min(x,y) with T(n) = n(n-1)/2. It is symmetric
// (SquareToLinePoint(x,y) == SquareToLinePoint(y,x)) and injective on
// unordered pairs of distinct values. A pair with x == y encodes to the same
// value as (x+1, 0), since T(x) + x == T(x+1).
type LinePoint uint64

// Bucket returns the output bucket this line point belongs to: its top 8
// bits, giving BBDPP3LPBucketCount possible buckets.
func (lp LinePoint) Bucket() uint8 {
	return uint8(uint64(lp) >> 56)
}

// SquareToLinePoint computes the line point for the pair (x, y). x and y are
// destination indices into the l-table (i.e. already-resolved values, not
// positions).
func SquareToLinePoint(x, y uint64) LinePoint {
	hi, lo := x, y
	if y > x {
		hi, lo = y, x
	}
	return LinePoint(triangleNumber(hi) + lo)
}

// triangleNumber returns n*(n-1)/2, halving the even factor before the
// multiply so the intermediate product never exceeds the result. The result
// fits in a uint64 for n up to about 6.07e9 (just over 2^32.5), which covers
// 1<<32, the largest destination index bladebit ever produces.
func triangleNumber(n uint64) uint64 {
	if n&1 == 0 {
		return (n >> 1) * (n - 1)
	}
	return n * ((n - 1) >> 1)
}

// InverseLinePoint recovers the (x, y) pair (with x > y) that produced lp.
// A line point produced from a pair with x == y comes back as (x+1, 0).
// It exists for tests validating SquareToLinePoint's injectivity and for
// debugging; the production pipeline never needs to invert a line point.
func InverseLinePoint(lp LinePoint) (x, y uint64) {
	v := uint64(lp)
	// x is the largest n such that T(n) <= v.
	// Use integer sqrt on 8v+1 to solve n(n-1)/2 <= v for n.
	n := isqrt(8*v+1)/2 + 1
	for triangleNumber(n) > v {
		n--
	}
	for triangleNumber(n+1) <= v {
		n++
	}
	return n, v - triangleNumber(n)
}

// isqrt returns floor(sqrt(v)) using Newton's method on uint64.
func isqrt(v uint64) uint64 {
	if v == 0 {
		return 0
	}
	x := v
	y := (x + 1) / 2
	for y < x {
		x = y
		y = (x + v/x) / 2
	}
	return x
}

// Pair is a back-pointer pair as produced by an earlier phase: left is a
// destination index into the l-table, rightOffset is a small delta such that
// right = left + rightOffset is also a valid l-table destination index.
type Pair struct {
	Left        uint32
	RightOffset uint16
}

// Right returns the resolved right destination index.
func (p Pair) Right() uint32 {
	return p.Left + uint32(p.RightOffset)
}

// PackReverseMapRecord packs a sorted position and an original index into the
// 64-bit reverse-map record format: high 32 bits = sorted position, low 32
// bits = original index.
func PackReverseMapRecord(sortedPos uint64, originalIndex uint32) uint64 {
	return (sortedPos << 32) | uint64(originalIndex)
}

// UnpackReverseMapRecord is the inverse of PackReverseMapRecord.
func UnpackReverseMapRecord(record uint64) (sortedPos uint64, originalIndex uint32) {
	return record >> 32, uint32(record)
}
