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

	"github.com/analogdev/bladebit/internal/radixsort"
)

// SortScratch holds the pre-carved working buffers SortAndReverseMap writes
// through instead of allocating its own. Like PruneScratch, a nil
// SortScratch or an undersized field falls back to make(), matching the
// kernel's pre-heap behavior.
type SortScratch struct {
	SortedLP   []uint64
	SortedKeys []uint32
	Out        []uint64
}

func (s *SortScratch) sorted(n int) ([]uint64, []uint32) {
	if s == nil || len(s.SortedLP) < n || len(s.SortedKeys) < n {
		return make([]uint64, n), make([]uint32, n)
	}
	return s.SortedLP[:n], s.SortedKeys[:n]
}

func (s *SortScratch) out(n int) []uint64 {
	if s == nil || len(s.Out) < n {
		return make([]uint64, n)
	}
	return s.Out[:n]
}

// SortAndReverseMap is Step 2 (spec.md §4.4) for a single line-point bucket:
// it sorts the bucket's (linePoint, key) pairs ascending by line point,
// hands the sorted pair to sink so park encoding can consume it, and builds
// the bucket's contribution to the reverse map -- one packed record per
// entry recording where each original r-table index landed in the global
// sorted order -- bucket-scattered by the top KExtraBits of the key so the
// next table's Step 1 can load it back windowed by l-table bucket.
//
// globalEntryOffset is the number of entries already written to this
// table's sorted line-point stream by previously processed buckets; it is
// what lets each record's sortedPos field be a *global* position rather
// than one relative to this bucket.
//
// The reverse-map scatter is the same two-pass, barrier-synchronized
// prefix-sum pattern as Step 1 (spec.md §4.6), except there is no pruning
// pass first: every entry in the bucket survives, so local bucket counts
// can be computed directly off the already-sorted data with no preceding
// compaction.
func SortAndReverseMap(ctx context.Context, cfg Config, table TableId, bucket int, linePoints []uint64, keys []uint32, globalEntryOffset uint64, sink LinePointSink, scratch *SortScratch) (records []uint64, lMapBucketCounts []uint32, err error) {
	n := len(linePoints)
	numLMapBuckets := cfg.BBDPBucketCount()
	lMapBucketCounts = make([]uint32, numLMapBuckets)
	if n == 0 {
		return nil, lMapBucketCounts, nil
	}

	sortedLP, sortedKeys := scratch.sorted(n)
	copy(sortedLP, linePoints)
	copy(sortedKeys, keys)

	radixsort.SortWithKey(sortedLP, sortedKeys)

	if serr := sink.PutLinePoints(ctx, table, bucket, sortedLP, sortedKeys, n, globalEntryOffset); serr != nil {
		return nil, nil, wrapIO("phase3: PutLinePoints", serr)
	}

	bitShift := uint(32 - cfg.KExtraBits)

	numWorkers := len(Partition(n, cfg.Workers))
	localBucketCounts := make([][]uint32, numWorkers)
	var (
		pfxSum [][]uint32
		total  []uint32
		out    []uint64
	)

	runErr := RunJob(ctx, cfg, n, func(ctx context.Context, rng Range, leader bool, barrier *Barrier) error {
		wid := rng.WorkerID

		lbc := make([]uint32, numLMapBuckets)
		for i := rng.Start; i < rng.End; i++ {
			lbc[sortedKeys[i]>>bitShift]++
		}
		localBucketCounts[wid] = lbc

		if werr := barrier.Wait(ctx); werr != nil {
			return werr
		}

		if leader {
			pfxSum, total = PrefixSum(numLMapBuckets, localBucketCounts)
			out = scratch.out(n)
		}

		if werr := barrier.Wait(ctx); werr != nil {
			return werr
		}

		row := pfxSum[wid]
		for i := rng.Start; i < rng.End; i++ {
			key := sortedKeys[i]
			b := key >> bitShift
			row[b]--
			out[row[b]] = PackReverseMapRecord(globalEntryOffset+uint64(i), key)
		}
		return nil
	})
	if runErr != nil {
		return nil, nil, runErr
	}

	copy(lMapBucketCounts, total)
	return out, lMapBucketCounts, nil
}
