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

import "github.com/c2h5oh/datasize"

// Fixed counts of each typed slot the pipeline ever holds live at once
// (spec.md §4.1's "double-buffered l-map/pair/r-map slots, line-point
// staging, pruned buffer"): LMap/RLeft/RMap are each double-buffered by
// bucket parity, RRight likewise, and the two uint64 slots (PrunedLP,
// LinePoints) plus their companion uint32 key slots cover Step 1's
// compact-then-scatter pass and are reused time-disjointly by Step 2, since
// only one step runs at a time for a given table. Step 3 uses only Dense.
const (
	numUint32Slots = 9 // LMap x2, RLeft x2, RMap x2, PrunedKeys, LinePointKeys, Dense
	numUint16Slots = 2 // RRight x2
	numUint64Slots = 2 // PrunedLP, LinePoints
)

// HeapLayout is the set of byte sizes for each named region of the fixed
// heap, computed once up front from the largest bucket seen across every
// table (spec.md §4.1). All sizes are rounded up to the IO block size.
type HeapLayout struct {
	MaxBucketLength int // largest bucket length across all tables, plus ExtraLEntries padding

	MarkedEntriesBytes int
	Uint32SlotBytes    int // one maxLen-sized uint32 slot
	Uint16SlotBytes    int // one maxLen-sized uint16 slot
	Uint64SlotBytes    int // one maxLen-sized uint64 slot
}

// TotalBytes is the sum of every fixed-size region this layout carves.
func (h HeapLayout) TotalBytes() int {
	return h.MarkedEntriesBytes +
		h.Uint32SlotBytes*numUint32Slots +
		h.Uint16SlotBytes*numUint16Slots +
		h.Uint64SlotBytes*numUint64Slots
}

// ComputeHeapLayout finds the largest bucket length across every table
// (including the ExtraLEntries padding needed for l-table cross-bucket
// carry) and derives the byte size of every named heap region from it,
// rounded up to cfg.IOBlockSize.
func ComputeHeapLayout(cfg Config, counts *BucketCounts, markedEntriesBytes int) HeapLayout {
	maxLen := uint32(0)
	for t := Table1; t <= Table7; t++ {
		for b := 0; b < cfg.BBDPBucketCount(); b++ {
			if v := counts.Partition(t, b); v > maxLen {
				maxLen = v
			}
			if t.IsRTable() {
				if v := counts.LinePointerBucket(t, b); v > maxLen {
					maxLen = v
				}
			}
		}
	}
	maxLen += cfg.ExtraLEntries

	block := cfg.IOBlockSize
	round := func(sz int) int { return RoundUpToNextBoundary(sz, block) }

	return HeapLayout{
		MaxBucketLength:    int(maxLen),
		MarkedEntriesBytes: markedEntriesBytes,
		Uint32SlotBytes:    round(int(maxLen) * 4),
		Uint16SlotBytes:    round(int(maxLen) * 2),
		Uint64SlotBytes:    round(int(maxLen) * 8),
	}
}

// HumanTotal renders TotalBytes as a human-readable size for log lines, e.g.
// "312.5 MB".
func (h HeapLayout) HumanTotal() string {
	return datasize.ByteSize(h.TotalBytes()).HumanReadable()
}

// HeapRegions are the typed views carved out of the fixed heap by Carve, one
// per named slot in spec.md §4.1. Driver.SetHeap wires these directly into
// Step 1/2/3 in place of the make() calls they'd otherwise need per bucket,
// so the pipeline's peak working-set is exactly this fixed carve, not a
// fresh allocation per bucket.
type HeapRegions struct {
	MarkedEntries []uint64

	LMap [2][]uint32 // double-buffered l-table window, ExtraLEntries-prefixed

	RLeft  [2][]uint32 // double-buffered r-table left pointers
	RRight [2][]uint16 // double-buffered r-table right offsets
	RMap   [2][]uint32 // double-buffered r-table origin-index map

	// PrunedLP/PrunedKeys are Step 1's pass-2 compact-write target (every
	// worker's exclusive range of surviving pairs before the bucket
	// scatter). The same backing arrays serve as Step 2's sorted
	// line-point/key buffers: Step 1 and Step 2 never run concurrently for
	// the same table, so reusing them is safe and keeps the heap fixed-size.
	PrunedLP   []uint64
	PrunedKeys []uint32

	// LinePoints/LinePointKeys are Step 1's bucket-scattered final output.
	// The uint64 backing array doubles as Step 2's reverse-map scatter
	// target for the same time-disjoint reason.
	LinePoints    []uint64
	LinePointKeys []uint32

	Dense []uint32 // Step 3's per-bucket dense-unpack output buffer

	Remainder []byte // whatever is left over, handed to the IO buffer ring
}

// Carve allocates every named region from arena in the order described in
// spec.md §4.1 and returns the typed views plus whatever bytes remain.
func Carve(arena *Arena, layout HeapLayout) HeapRegions {
	var r HeapRegions

	slot32 := layout.Uint32SlotBytes / 4
	slot16 := layout.Uint16SlotBytes / 2
	slot64 := layout.Uint64SlotBytes / 8

	markedWords := layout.MarkedEntriesBytes / 8
	r.MarkedEntries = AllocUint64(arena, markedWords)

	for i := 0; i < 2; i++ {
		r.LMap[i] = AllocUint32(arena, slot32)
	}
	for i := 0; i < 2; i++ {
		r.RLeft[i] = AllocUint32(arena, slot32)
		r.RRight[i] = AllocUint16(arena, slot16)
	}
	for i := 0; i < 2; i++ {
		r.RMap[i] = AllocUint32(arena, slot32)
	}

	r.PrunedLP = AllocUint64(arena, slot64)
	r.PrunedKeys = AllocUint32(arena, slot32)
	r.LinePoints = AllocUint64(arena, slot64)
	r.LinePointKeys = AllocUint32(arena, slot32)
	r.Dense = AllocUint32(arena, slot32)

	if rem := arena.Remaining(); rem > 0 {
		r.Remainder = arena.Alloc(rem, 1)
	}
	return r
}
