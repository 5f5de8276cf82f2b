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

import "fmt"

// FileId names one of the bucketed or flat files a table iteration reads or
// writes. File names are composed from the registry below ("lp_2",
// "lp_key_3", "lp_map_4", ...), matching spec.md §6; no other part of the
// module hard-codes a file name.
type FileId int

const (
	FileMarkedEntries FileId = iota
	FileBackPointerLeft
	FileBackPointerRight
	FileMap
	FileX // raw x values, l-input for table2 only
	FileLinePoints
	FileLinePointKeys
	FileLinePointMap
)

// FileName returns the on-disk basename for id at table t, following the
// registry in spec.md §6 ("lp_2", "lp_key_3", "lp_map_4", ...).
func FileName(id FileId, t TableId) string {
	switch id {
	case FileMarkedEntries:
		return fmt.Sprintf("marked_entries_%d", int(t))
	case FileBackPointerLeft:
		return fmt.Sprintf("back_ptr_left_%d", int(t))
	case FileBackPointerRight:
		return fmt.Sprintf("back_ptr_right_%d", int(t))
	case FileMap:
		return fmt.Sprintf("map_%d", int(t))
	case FileX:
		return "x"
	case FileLinePoints:
		return fmt.Sprintf("lp_%d", int(t))
	case FileLinePointKeys:
		return fmt.Sprintf("lp_key_%d", int(t))
	case FileLinePointMap:
		return fmt.Sprintf("lp_map_%d", int(t))
	default:
		panic(fmt.Sprintf("phase3: unknown file id %d", id))
	}
}

// LInputFileId returns the file id supplying l-table values for rTable: the
// raw x file for table2, otherwise the previous iteration's line-point map.
func LInputFileId(rTable TableId) FileId {
	if rTable == Table2 {
		return FileX
	}
	return FileLinePointMap
}

// BucketCounts is the per-table, per-bucket entry-count bookkeeping the
// driver threads through every step: how many entries live in each of the
// BB_DP_BUCKET_COUNT partition buckets for every table (produced by the
// phase that ran before Phase 3), and how many line points landed in each of
// the 256 line-point buckets for the r-table currently being processed
// (produced by Step 1, consumed by Step 2).
type BucketCounts struct {
	cfg Config

	// partition[t][b] is the number of entries of table t in partition
	// bucket b, as produced by the sorting phase before Phase 3.
	partition map[TableId][]uint32

	// linePointer[t][b] is ptrTableBucketCounts[t][b]: the number of r-table
	// pointer-pair entries of table t in partition bucket b.
	linePointer map[TableId][]uint32

	// lpBucketCounts[b] is the number of line points Step 1 routed to
	// line-point bucket b for the r-table currently being processed.
	lpBucketCounts [BBDPP3LPBucketCountMax]uint32

	// lMapBucketCounts[b] is the number of reverse-map records Step 2 routed
	// to partition bucket b for the r-table currently being processed.
	lMapBucketCounts [BBDPBucketCountMax]uint32
}

// Upper bounds used to size fixed arrays; actual counts in use are
// cfg.LPBucketCount and cfg.BBDPBucketCount().
const (
	BBDPP3LPBucketCountMax = 256
	BBDPBucketCountMax     = 1 << 8
)

// NewBucketCounts allocates a BucketCounts able to describe tables Table1..Table7.
func NewBucketCounts(cfg Config) *BucketCounts {
	return &BucketCounts{
		cfg:         cfg,
		partition:   make(map[TableId][]uint32, 7),
		linePointer: make(map[TableId][]uint32, 7),
	}
}

// SetPartition installs the per-bucket entry counts for table t as produced
// upstream of Phase 3.
func (b *BucketCounts) SetPartition(t TableId, counts []uint32) {
	b.partition[t] = counts
}

// SetLinePointer installs ptrTableBucketCounts for r-table t.
func (b *BucketCounts) SetLinePointer(t TableId, counts []uint32) {
	b.linePointer[t] = counts
}

// Partition returns the partition-bucket entry count for table t, bucket b.
func (b *BucketCounts) Partition(t TableId, bucket int) uint32 {
	c := b.partition[t]
	if bucket >= len(c) {
		return 0
	}
	return c[bucket]
}

// LinePointerBucket returns ptrTableBucketCounts[t][bucket].
func (b *BucketCounts) LinePointerBucket(t TableId, bucket int) uint32 {
	c := b.linePointer[t]
	if bucket >= len(c) {
		return 0
	}
	return c[bucket]
}

// ResetTableCounters zeroes lpBucketCounts and lMapBucketCounts, called by
// the driver at the start of each r-table iteration (spec.md §4.2).
func (b *BucketCounts) ResetTableCounters() {
	for i := range b.lpBucketCounts {
		b.lpBucketCounts[i] = 0
	}
	for i := range b.lMapBucketCounts {
		b.lMapBucketCounts[i] = 0
	}
}

// AddLPBucketCounts accumulates per-bucket line-point counts produced by one
// call into PruneAndLinepoint (one per input bucket processed during Step 1).
func (b *BucketCounts) AddLPBucketCounts(counts []uint32) {
	for i, c := range counts {
		b.lpBucketCounts[i] += c
	}
}

// LPBucketCount returns the accumulated line-point count for lp-bucket i.
func (b *BucketCounts) LPBucketCount(i int) uint32 { return b.lpBucketCounts[i] }

// AddLMapBucketCounts accumulates per-bucket reverse-map counts produced by
// one call into the Step 2 scatter (one per line-point bucket processed).
func (b *BucketCounts) AddLMapBucketCounts(counts []uint32) {
	for i, c := range counts {
		b.lMapBucketCounts[i] += c
	}
}

// LMapBucketCount returns the accumulated reverse-map count for partition
// bucket i.
func (b *BucketCounts) LMapBucketCount(i int) uint32 { return b.lMapBucketCounts[i] }
