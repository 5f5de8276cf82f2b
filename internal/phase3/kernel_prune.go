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

// PruneScratch holds the pre-carved working buffers PruneAndLinepoint writes
// through instead of allocating its own (spec.md §4.1's fixed heap). A nil
// PruneScratch, or a field too short for the bucket at hand, falls back to a
// fresh make() the way the kernel behaved before the heap existed -- this
// keeps every existing caller (tests, anything not wired to a Driver's heap)
// working unchanged.
type PruneScratch struct {
	StagedLP   []uint64
	StagedKeys []uint32
	FinalLP    []uint64
	FinalKeys  []uint32
}

func (s *PruneScratch) staged(n int) ([]uint64, []uint32) {
	if s == nil || len(s.StagedLP) < n || len(s.StagedKeys) < n {
		return make([]uint64, n), make([]uint32, n)
	}
	return s.StagedLP[:n], s.StagedKeys[:n]
}

func (s *PruneScratch) final(n int) ([]uint64, []uint32) {
	if s == nil || len(s.FinalLP) < n || len(s.FinalKeys) < n {
		return make([]uint64, n), make([]uint32, n)
	}
	return s.FinalLP[:n], s.FinalKeys[:n]
}

// PruneAndLinepoint is Step 1 (spec.md §4.3) for a single bucket: it prunes
// rMapIn against marked, resolves the surviving pairs against lMap, and
// returns the resulting line points bucket-scattered by their top 8 bits,
// with the original index (key) carried alongside each one.
//
// lMap must be the bucket's l-table window with the ExtraLEntries-long tail
// of the previous bucket prepended, so that Right() indices that straddle
// the bucket boundary still resolve (spec.md §4.3's cross-bucket carry).
// rLeft, rRight, and rMapIn must all have the same length: the bucket's
// r-table entry count.
//
// This is a two-pass compact-write: each worker first counts how many of
// its entries survive pruning, then (after a barrier) knows its exclusive
// write offset into the pruned output and can write without contention.
// After a second barrier each worker locally buckets its own slice of line
// points by top byte, the leader reduces those local counts into a global
// prefix sum (spec.md §4.6), and every worker scatters its slice into the
// shared output with zero further synchronization.
func PruneAndLinepoint(ctx context.Context, cfg Config, marked *Bitfield, lMap []uint32, rLeft []uint32, rRight []uint16, rMapIn []uint32, scratch *PruneScratch) (linePoints []uint64, keys []uint32, lpBucketCounts []uint32, prunedCount int, err error) {
	entryCount := len(rMapIn)
	lpBucketCounts = make([]uint32, cfg.LPBucketCount)
	if entryCount == 0 {
		return nil, nil, lpBucketCounts, 0, nil
	}

	ranges := Partition(entryCount, cfg.Workers)
	numWorkers := len(ranges)

	prunedLen := make([]int, numWorkers)
	dstOffset := make([]int, numWorkers)

	// Upper-bound-sized staging buffers: every surviving entry's line point
	// and key land somewhere in [0, entryCount), written compactly by the
	// two-pass count/offset scheme above. Pulled from the fixed heap when
	// scratch is wired, rather than allocated fresh per bucket.
	stagedLP, stagedKeys := scratch.staged(entryCount)

	localBucketCounts := make([][]uint32, numWorkers)

	var (
		finalLP   []uint64
		finalKeys []uint32
		pfxSum    [][]uint32
		total     []uint32
	)

	runErr := RunJob(ctx, cfg, entryCount, func(ctx context.Context, rng Range, leader bool, barrier *Barrier) error {
		wid := rng.WorkerID

		// Pass 1: count survivors in our range.
		count := 0
		for i := rng.Start; i < rng.End; i++ {
			if marked.Get(rMapIn[i]) {
				count++
			}
		}
		prunedLen[wid] = count

		if werr := barrier.Wait(ctx); werr != nil {
			return werr
		}

		off := 0
		for j := 0; j < wid; j++ {
			off += prunedLen[j]
		}
		dstOffset[wid] = off

		// Pass 2: resolve surviving pairs against lMap and write line
		// points compactly at our exclusive offset.
		w := off
		for i := rng.Start; i < rng.End; i++ {
			mapIdx := rMapIn[i]
			if !marked.Get(mapIdx) {
				continue
			}
			left := rLeft[i]
			right := left + uint32(rRight[i])
			if int(right) >= len(lMap) {
				return consistencyf("phase3: pair right index %d resolves outside l-window of length %d", right, len(lMap))
			}
			x := uint64(lMap[left])
			y := uint64(lMap[right])
			stagedLP[w] = uint64(SquareToLinePoint(x, y))
			stagedKeys[w] = mapIdx
			w++
		}
		if w != off+count {
			return consistencyf("phase3: worker %d wrote %d pruned entries, expected %d", wid, w-off, count)
		}

		if werr := barrier.Wait(ctx); werr != nil {
			return werr
		}

		lbc := make([]uint32, cfg.LPBucketCount)
		for i := off; i < off+count; i++ {
			lbc[LinePoint(stagedLP[i]).Bucket()]++
		}
		localBucketCounts[wid] = lbc

		if werr := barrier.Wait(ctx); werr != nil {
			return werr
		}

		if leader {
			pfxSum, total = PrefixSum(cfg.LPBucketCount, localBucketCounts)
			totalPruned := 0
			for _, c := range total {
				totalPruned += int(c)
			}
			finalLP, finalKeys = scratch.final(totalPruned)
		}

		if werr := barrier.Wait(ctx); werr != nil {
			return werr
		}

		ScatterUint64Keyed(
			stagedLP[off:off+count], stagedKeys[off:off+count], pfxSum[wid],
			func(v uint64) uint8 { return LinePoint(v).Bucket() },
			finalLP, finalKeys,
		)
		return nil
	})

	if runErr != nil {
		return nil, nil, nil, 0, runErr
	}

	copy(lpBucketCounts, total)

	prunedTotal := 0
	for _, c := range prunedLen {
		prunedTotal += c
	}

	return finalLP, finalKeys, lpBucketCounts, prunedTotal, nil
}
