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

import "context"

// Store is the bucketed-file collaborator the driver reads and writes
// through (spec.md §6's external interfaces), one level above the raw
// ReadFile/WriteBuckets primitives in internal/diskio: each
// method here reads or writes one whole logical bucket and leaves buffering,
// fencing, and the background IO goroutine to the implementation.
// internal/diskio.Store is the disk-backed implementation; tests use a
// simpler in-memory one.
type Store interface {
	// ReadMarked loads the full marked-entries bitmap for table t. The
	// bitmap is resident for the whole r-table iteration (spec.md §3's
	// lifecycle note).
	ReadMarked(ctx context.Context, t TableId) (*Bitfield, error)

	// ReadLTableBucket returns the l-table values for l-table lt, partition
	// bucket b, with no carry applied: the driver is responsible for
	// prepending the previous bucket's ExtraLEntries tail (spec.md §4.3).
	ReadLTableBucket(ctx context.Context, lt TableId, bucket int) ([]uint32, error)

	// ReadRBucket returns the r-table's back-pointer pair arrays and its map
	// (original-index-keyed RMap) for partition bucket b.
	ReadRBucket(ctx context.Context, rt TableId, bucket int) (left []uint32, rightOffset []uint16, rmap []uint32, err error)

	// WriteLPBucket appends a Step 1 output bucket (spec.md §4.3 step 4)
	// keyed by its top-8-bit line-point bucket id.
	WriteLPBucket(ctx context.Context, rt TableId, lpBucket int, linePoints []uint64, keys []uint32) error

	// ReadLPBucket streams back a previously written line-point bucket for
	// Step 2.
	ReadLPBucket(ctx context.Context, rt TableId, lpBucket int) (linePoints []uint64, keys []uint32, err error)

	// WriteReverseMapBucket appends a Step 2 output bucket (spec.md §4.4
	// step 4) keyed by the partition bucket the record's low 32 bits select.
	WriteReverseMapBucket(ctx context.Context, rt TableId, partitionBucket int, records []uint64) error

	// ReadReverseMapBucket streams back a previously written reverse-map
	// bucket for Step 3.
	ReadReverseMapBucket(ctx context.Context, rt TableId, partitionBucket int) ([]uint64, error)

	// WriteDenseMapBucket writes one partition bucket's worth of the dense
	// l-table map produced by Step 3 (spec.md §4.5), which becomes
	// l_input_{rt+1}.
	WriteDenseMapBucket(ctx context.Context, rt TableId, partitionBucket int, dense []uint32) error
}
