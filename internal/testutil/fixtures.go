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

// Package testutil builds synthetic miniature Phase-2 fixtures (small k, a
// handful of partition buckets) for exercising the phase3 kernels and
// driver without a real earlier phase, plus reference implementations used
// to cross-check the pipeline's output.
package testutil

import (
	"math/rand"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/analogdev/bladebit/internal/phase3"
)

// RTableFixture is one r-table iteration's worth of synthetic input: an
// l-table value array (already partitioned per bucket), and the
// r-table's back-pointer pairs, map, and marked bitmap, all partitioned into
// the same number of buckets.
type RTableFixture struct {
	Cfg phase3.Config

	// LValues[b] holds bucket b's l-table values, no ExtraLEntries carry
	// applied -- callers windowing this the way the driver does must
	// prepend the previous bucket's tail themselves.
	LValues [][]uint32

	Left        [][]uint32
	RightOffset [][]uint16
	RMap        [][]uint32
	Marked      *phase3.Bitfield

	// TotalLEntries is the sum of len(LValues[b]) across every bucket,
	// mirroring what the driver would compute for Decision D1's
	// last-bucket-length override.
	TotalLEntries int
}

// BuildRandomRTableFixture builds a fixture for k=8-scale testing: lEntries
// l-table values split across numBuckets roughly-even buckets, and rEntries
// r-pairs referencing them, with markedFraction of r-entries surviving.
//
// The surviving index set is assembled as a roaring.Bitmap first (a natural
// fit for sampling a sparse random subset of [0, rEntries)) and only
// materialized into the dense phase3.Bitfield the production kernels
// actually consume once sampling is done, per SPEC_FULL.md §4's roaring/v2
// wiring.
func BuildRandomRTableFixture(rng *rand.Rand, cfg phase3.Config, lEntries, rEntries, numBuckets int, markedFraction float64) RTableFixture {
	lValues := make([]uint32, lEntries)
	for i := range lValues {
		lValues[i] = uint32(rng.Intn(1 << 20))
	}

	fixture := RTableFixture{
		Cfg:           cfg,
		LValues:       PartitionUint32(lValues, numBuckets),
		TotalLEntries: lEntries,
		Marked:        phase3.NewBitfield(rEntries),
	}

	survivors := roaring.New()
	for i := 0; i < rEntries; i++ {
		if rng.Float64() < markedFraction {
			survivors.Add(uint32(i))
		}
	}
	it := survivors.Iterator()
	for it.HasNext() {
		fixture.Marked.Set(it.Next())
	}

	left := make([]uint32, rEntries)
	right := make([]uint16, rEntries)
	rmap := make([]uint32, rEntries)
	for i := 0; i < rEntries; i++ {
		l := uint32(rng.Intn(lEntries))
		maxOffset := lEntries - int(l)
		if maxOffset > 1<<16 {
			maxOffset = 1 << 16
		}
		off := uint16(0)
		if maxOffset > 1 {
			off = uint16(rng.Intn(maxOffset))
		}
		left[i] = l
		right[i] = off
		rmap[i] = uint32(i)
	}

	fixture.Left = PartitionUint32(left, numBuckets)
	fixture.RightOffset = PartitionUint16(right, numBuckets)
	fixture.RMap = PartitionUint32(rmap, numBuckets)

	return fixture
}

// PartitionUint32 splits v into numBuckets roughly-even contiguous slices,
// the last bucket absorbing any remainder, matching the partitioning
// convention phase3.Partition uses for production bucket layouts.
func PartitionUint32(v []uint32, numBuckets int) [][]uint32 {
	out := make([][]uint32, numBuckets)
	base := len(v) / numBuckets
	off := 0
	for b := 0; b < numBuckets; b++ {
		n := base
		if b == numBuckets-1 {
			n = len(v) - off
		}
		out[b] = v[off : off+n]
		off += n
	}
	return out
}

// PartitionUint16 is PartitionUint32 for a []uint16 source, used for
// right-offset fixtures.
func PartitionUint16(v []uint16, numBuckets int) [][]uint16 {
	out := make([][]uint16, numBuckets)
	base := len(v) / numBuckets
	off := 0
	for b := 0; b < numBuckets; b++ {
		n := base
		if b == numBuckets-1 {
			n = len(v) - off
		}
		out[b] = v[off : off+n]
		off += n
	}
	return out
}

// NaivePrune is a reference implementation of Step 1, computing every
// surviving line point directly in memory with no bucketing or parallelism,
// for cross-checking the pipeline's output (driver_test.go uses it for S5's
// two-iteration scenario).
func NaivePrune(f RTableFixture) (linePoints []uint64, keys []uint32) {
	lFlat := make([]uint32, 0, f.TotalLEntries)
	for _, b := range f.LValues {
		lFlat = append(lFlat, b...)
	}

	globalIdx := uint32(0)
	for b := range f.Left {
		for i := range f.Left[b] {
			idx := f.RMap[b][i]
			if !f.Marked.Get(idx) {
				globalIdx++
				continue
			}
			left := f.Left[b][i]
			right := left + uint32(f.RightOffset[b][i])
			x := uint64(lFlat[left])
			y := uint64(lFlat[right])
			linePoints = append(linePoints, uint64(phase3.SquareToLinePoint(x, y)))
			keys = append(keys, idx)
			globalIdx++
		}
	}
	return linePoints, keys
}

// AuditPopCount independently recomputes the number of set bits in marked
// using a roaring.Bitmap built from a full Get() scan, so property test 1
// (prune conservation) can cross-check phase3.Bitfield.PopCount against a
// second, unrelated implementation instead of trusting the same code path
// twice.
func AuditPopCount(marked *phase3.Bitfield) int {
	b := roaring.New()
	for i := uint32(0); i < uint32(marked.Len()); i++ {
		if marked.Get(i) {
			b.Add(i)
		}
	}
	return int(b.GetCardinality())
}
