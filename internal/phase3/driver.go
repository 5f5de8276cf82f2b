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

import (
	"context"
	"fmt"

	"github.com/erigontech/erigon-lib/log/v3"
)

// Driver walks the seven tables forward, running Step 1, 2 and 3 for each
// r-table in turn (spec.md §4.2). It owns no on-disk layout decisions of its
// own: Store is the collaborator that knows how a bucket is actually read or
// written, and Sink is where sorted line points go once Step 2 produces
// them.
type Driver struct {
	cfg    Config
	store  Store
	sink   LinePointSink
	counts *BucketCounts
	logger log.Logger
	heap   *HeapRegions
}

// SetHeap wires a fixed-heap carve (spec.md §4.1, built by ComputeHeapLayout
// and Carve) into the driver: Step 1, Step 2 and Step 3 then read and write
// through these pre-sized regions instead of allocating a fresh buffer per
// bucket, so the pipeline's peak working set is exactly the carved heap. A
// Driver with no heap set (the default) falls back to per-bucket
// allocation, which every existing test relies on.
func (d *Driver) SetHeap(heap *HeapRegions) {
	d.heap = heap
}

// NewDriver builds a Driver. If logger is nil, log.New() is used (matching
// the teacher's convention of a package-level default logger when the
// caller doesn't supply one).
func NewDriver(cfg Config, store Store, sink LinePointSink, counts *BucketCounts, logger log.Logger) *Driver {
	if logger == nil {
		logger = log.New()
	}
	if sink == nil {
		sink = NopLinePointSink{}
	}
	return &Driver{cfg: cfg, store: store, sink: sink, counts: counts, logger: logger}
}

// Run processes every r-table from fromTable to toTable inclusive
// (fromTable..toTable must both be in Table2..Table7), returning the pruned
// entry count produced for each.
func (d *Driver) Run(ctx context.Context, fromTable, toTable TableId) (entryCounts map[TableId]int, err error) {
	if !fromTable.IsRTable() || !toTable.IsRTable() || fromTable > toTable {
		return nil, consistencyf("phase3: invalid table range [%s, %s]", fromTable, toTable)
	}

	entryCounts = make(map[TableId]int)
	for r := fromTable; r <= toTable; r++ {
		d.counts.ResetTableCounters()

		n, err := d.runTable(ctx, r)
		if err != nil {
			d.logger.Error("phase3: table iteration failed", "table", r, "err", err)
			return entryCounts, fmt.Errorf("phase3: table %s: %w", r, err)
		}
		entryCounts[r] = n
		d.logger.Info("phase3: table done", "table", r, "prunedCount", n)
	}
	return entryCounts, nil
}

// runTable runs Step 1, Step 2 and Step 3 for a single r-table.
func (d *Driver) runTable(ctx context.Context, rt TableId) (int, error) {
	lt := rt.LTable()

	marked, err := d.store.ReadMarked(ctx, rt)
	if err != nil {
		return 0, wrapIO("ReadMarked", err)
	}

	lpTotals, prunedTotal, err := d.runStep1(ctx, rt, lt, marked)
	if err != nil {
		return 0, err
	}
	d.counts.AddLPBucketCounts(lpTotals)

	if err := d.runStep2(ctx, rt); err != nil {
		return 0, err
	}

	if err := d.runStep3(ctx, rt); err != nil {
		return 0, err
	}

	return prunedTotal, nil
}

// runStep1 streams every partition bucket of rt's back-pointer pairs through
// PruneAndLinepoint, carrying the l-table's ExtraLEntries tail across bucket
// boundaries (spec.md §4.3) and applying the last-bucket-length override
// (Decision D1 in DESIGN.md).
func (d *Driver) runStep1(ctx context.Context, rt, lt TableId, marked *Bitfield) (lpTotals []uint32, prunedTotal int, err error) {
	numBuckets := d.cfg.BBDPBucketCount()
	lpTotals = make([]uint32, d.cfg.LPBucketCount)

	var carry []uint32
	var lEntriesLoaded uint64
	totalLEntries := d.totalPartitionEntries(lt, numBuckets)

	for b := 0; b < numBuckets; b++ {
		lBucket, err := d.store.ReadLTableBucket(ctx, lt, b)
		if err != nil {
			return nil, 0, wrapIO("ReadLTableBucket", err)
		}

		// Decision D1: the last bucket's l-length is always recomputed from
		// the running total rather than trusted from bucket counts, the way
		// both TableFirstStep and TableThirdStep in the original do it.
		if b == numBuckets-1 {
			want := totalLEntries - lEntriesLoaded
			if want < uint64(len(lBucket)) {
				lBucket = lBucket[:want]
			}
		}
		lEntriesLoaded += uint64(len(lBucket))

		window := d.lMapWindow(b, carry, lBucket)

		if len(lBucket) >= d.cfg.ExtraLEntries {
			carry = append([]uint32(nil), lBucket[len(lBucket)-d.cfg.ExtraLEntries:]...)
		} else {
			carry = append([]uint32(nil), window[maxInt(0, len(window)-d.cfg.ExtraLEntries):]...)
		}

		left, rightOffset, rmap, err := d.store.ReadRBucket(ctx, rt, b)
		if err != nil {
			return nil, 0, wrapIO("ReadRBucket", err)
		}
		if len(left) == 0 {
			continue
		}
		left, rightOffset, rmap = d.rPairWindow(b, left, rightOffset, rmap)

		linePoints, keys, lpBucketCounts, pruned, err := PruneAndLinepoint(ctx, d.cfg, marked, window, left, rightOffset, rmap, d.pruneScratch())
		if err != nil {
			return nil, 0, err
		}
		prunedTotal += pruned
		for i, c := range lpBucketCounts {
			lpTotals[i] += c
		}

		if err := d.scatterStep1Output(ctx, rt, linePoints, keys, lpBucketCounts); err != nil {
			return nil, 0, err
		}

		d.logger.Debug("phase3: step1 bucket done", "table", rt, "bucket", b, "pruned", pruned)
	}

	return lpTotals, prunedTotal, nil
}

// scatterStep1Output writes the already-bucket-sorted (linePoints, keys)
// slice out as per-lp-bucket writes, using lpBucketCounts (spec.md §4.3
// step 4's output) to slice the contiguous buffer.
func (d *Driver) scatterStep1Output(ctx context.Context, rt TableId, linePoints []uint64, keys []uint32, lpBucketCounts []uint32) error {
	off := 0
	for b, c := range lpBucketCounts {
		if c == 0 {
			continue
		}
		n := int(c)
		if err := d.store.WriteLPBucket(ctx, rt, b, linePoints[off:off+n], keys[off:off+n]); err != nil {
			return wrapIO("WriteLPBucket", err)
		}
		off += n
	}
	return nil
}

// runStep2 streams each of the 256 line-point buckets through
// SortAndReverseMap in order, accumulating globalEntryOffset across buckets
// and the reverse-map bucket counts across the whole table (spec.md §4.4).
func (d *Driver) runStep2(ctx context.Context, rt TableId) error {
	var globalEntryOffset uint64
	lMapTotals := make([]uint32, d.cfg.BBDPBucketCount())

	for b := 0; b < d.cfg.LPBucketCount; b++ {
		linePoints, keys, err := d.store.ReadLPBucket(ctx, rt, b)
		if err != nil {
			return wrapIO("ReadLPBucket", err)
		}
		if len(linePoints) == 0 {
			continue
		}

		records, bucketCounts, err := SortAndReverseMap(ctx, d.cfg, rt, b, linePoints, keys, globalEntryOffset, d.sink, d.sortScratch())
		if err != nil {
			return err
		}
		globalEntryOffset += uint64(len(linePoints))
		for i, c := range bucketCounts {
			lMapTotals[i] += c
		}

		if err := d.scatterStep2Output(ctx, rt, records, bucketCounts); err != nil {
			return err
		}

		d.logger.Debug("phase3: step2 bucket done", "table", rt, "bucket", b, "entries", len(linePoints))
	}

	d.counts.AddLMapBucketCounts(lMapTotals)
	return nil
}

func (d *Driver) scatterStep2Output(ctx context.Context, rt TableId, records []uint64, bucketCounts []uint32) error {
	off := 0
	for b, c := range bucketCounts {
		if c == 0 {
			continue
		}
		n := int(c)
		if err := d.store.WriteReverseMapBucket(ctx, rt, b, records[off:off+n]); err != nil {
			return wrapIO("WriteReverseMapBucket", err)
		}
		off += n
	}
	return nil
}

// runStep3 reads each reverse-map partition bucket and rewrites it as a
// dense positional array (spec.md §4.5), becoming l_input_{rt+1}.
func (d *Driver) runStep3(ctx context.Context, rt TableId) error {
	numBuckets := d.cfg.BBDPBucketCount()
	var bucketBase uint32

	for b := 0; b < numBuckets; b++ {
		records, err := d.store.ReadReverseMapBucket(ctx, rt, b)
		if err != nil {
			return wrapIO("ReadReverseMapBucket", err)
		}

		bucketLen := d.counts.LMapBucketCount(b)
		dense := d.denseBuffer(int(bucketLen))

		if len(records) > 0 {
			if err := UnpackToDense(ctx, d.cfg, records, bucketBase, dense); err != nil {
				return err
			}
		}

		if err := d.store.WriteDenseMapBucket(ctx, rt, b, dense); err != nil {
			return wrapIO("WriteDenseMapBucket", err)
		}

		bucketBase += bucketLen
		d.logger.Debug("phase3: step3 bucket done", "table", rt, "bucket", b, "len", bucketLen)
	}

	return nil
}

// totalPartitionEntries sums the per-bucket partition counts for table t
// across numBuckets, used by Decision D1's last-bucket override.
func (d *Driver) totalPartitionEntries(t TableId, numBuckets int) uint64 {
	var total uint64
	for b := 0; b < numBuckets; b++ {
		total += uint64(d.counts.Partition(t, b))
	}
	return total
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// pruneScratch maps the driver's heap (if any) onto PruneAndLinepoint's
// working buffers: the staged (pre-scatter) slots come from the heap's
// PrunedLP/PrunedKeys region, the final (post-scatter) slots from
// LinePoints/LinePointKeys.
func (d *Driver) pruneScratch() *PruneScratch {
	if d.heap == nil {
		return nil
	}
	return &PruneScratch{
		StagedLP:   d.heap.PrunedLP,
		StagedKeys: d.heap.PrunedKeys,
		FinalLP:    d.heap.LinePoints,
		FinalKeys:  d.heap.LinePointKeys,
	}
}

// sortScratch maps the driver's heap onto SortAndReverseMap's working
// buffers, reusing the same PrunedLP/PrunedKeys and LinePoints regions Step
// 1 used: Step 1 has already written its output to Store by the time Step 2
// runs for the same table, so the backing arrays are free to reuse.
func (d *Driver) sortScratch() *SortScratch {
	if d.heap == nil {
		return nil
	}
	return &SortScratch{
		SortedLP:   d.heap.PrunedLP,
		SortedKeys: d.heap.PrunedKeys,
		Out:        d.heap.LinePoints,
	}
}

// lMapWindow builds the carry-prefixed l-table window for bucket b,
// writing through the heap's double-buffered LMap slot (selected by bucket
// parity) when one is wired, instead of allocating a fresh window per
// bucket.
func (d *Driver) lMapWindow(bucket int, carry, lBucket []uint32) []uint32 {
	n := len(carry) + len(lBucket)
	if d.heap == nil {
		window := make([]uint32, 0, n)
		window = append(window, carry...)
		window = append(window, lBucket...)
		return window
	}
	dst := d.heap.LMap[bucket%2]
	if len(dst) < n {
		window := make([]uint32, 0, n)
		window = append(window, carry...)
		window = append(window, lBucket...)
		return window
	}
	copy(dst, carry)
	copy(dst[len(carry):], lBucket)
	return dst[:n]
}

// rPairWindow copies a bucket's back-pointer pair triple into the heap's
// double-buffered RLeft/RRight/RMap slot (selected by bucket parity) when
// one is wired, so PruneAndLinepoint reads its r-table inputs from the
// fixed heap rather than from Store's freshly allocated read buffers.
func (d *Driver) rPairWindow(bucket int, left []uint32, right []uint16, rmap []uint32) ([]uint32, []uint16, []uint32) {
	if d.heap == nil {
		return left, right, rmap
	}
	parity := bucket % 2
	dstLeft := d.heap.RLeft[parity]
	dstRight := d.heap.RRight[parity]
	dstRMap := d.heap.RMap[parity]
	n := len(left)
	if len(dstLeft) < n || len(dstRight) < n || len(dstRMap) < n {
		return left, right, rmap
	}
	copy(dstLeft, left)
	copy(dstRight, right)
	copy(dstRMap, rmap)
	return dstLeft[:n], dstRight[:n], dstRMap[:n]
}

// denseBuffer returns a buffer of length n for Step 3's dense-unpack output,
// pulled from the heap's Dense region when wired.
func (d *Driver) denseBuffer(n int) []uint32 {
	if d.heap == nil || len(d.heap.Dense) < n {
		return make([]uint32, n)
	}
	return d.heap.Dense[:n]
}
