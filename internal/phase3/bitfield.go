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

import "math/bits"

// Bitfield is a dense, fixed-size bit-per-index array backed by a []uint64
// word slice, giving O(1) random-access Get regardless of how sparse the set
// bits are. This is the representation the marked-entries bitmap needs: Step
// 1 does one Get per r-entry on the hot path across up to 2^32 original
// indices, which rules out a sparse structure like a roaring bitmap (see
// SPEC_FULL.md §4 for where roaring bitmaps are used instead).
type Bitfield struct {
	words []uint64
	n     int
}

// NewBitfield allocates a Bitfield able to address n bit positions.
func NewBitfield(n int) *Bitfield {
	return &Bitfield{words: make([]uint64, (n+63)/64), n: n}
}

// WrapBitfield views an existing word slice (e.g. one carved from the fixed
// heap, or read straight off disk) as a Bitfield addressing n bits.
func WrapBitfield(words []uint64, n int) *Bitfield {
	return &Bitfield{words: words, n: n}
}

// Len returns the number of addressable bit positions.
func (b *Bitfield) Len() int { return b.n }

// Words exposes the backing word slice, e.g. for reading raw bytes off disk
// into it.
func (b *Bitfield) Words() []uint64 { return b.words }

// Get reports whether bit i is set.
func (b *Bitfield) Get(i uint32) bool {
	return b.words[i>>6]&(uint64(1)<<(i&63)) != 0
}

// Set sets bit i.
func (b *Bitfield) Set(i uint32) {
	b.words[i>>6] |= uint64(1) << (i & 63)
}

// PopCount returns the number of set bits in [0, n).
func (b *Bitfield) PopCount() int {
	count := 0
	full := b.n / 64
	for _, w := range b.words[:full] {
		count += bits.OnesCount64(w)
	}
	if rem := b.n % 64; rem != 0 {
		mask := uint64(1)<<uint(rem) - 1
		count += bits.OnesCount64(b.words[full] & mask)
	}
	return count
}

// BitfieldSizeBytes returns the number of bytes needed to store n bits, rounded up to
// a whole word, matching Phase 2's on-disk bitfield layout.
func BitfieldSizeBytes(n int) int {
	return ((n + 63) / 64) * 8
}
