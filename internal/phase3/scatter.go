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

// PrefixSum is the reusable parallel bucket-distribution routine described
// in spec.md §4.6, the single concurrency hotspot both Step 1 and Step 2
// scatter through. Each of numWorkers callers (one per partition from
// Partition) supplies its own local[] bucket counts; PrefixSum computes, for
// worker workerID, the *end* offset of that worker's slot in each bucket --
// i.e. base[b] (the exclusive prefix sum of total[] across buckets 0..b-1)
// plus an inclusive prefix sum across workers 0..workerID within bucket b.
// Folding base[b] in here, rather than leaving each worker's row zeroed per
// bucket, is what gives bucket b as a whole its global, contiguous
// [base[b], base[b]+total[b]) range in the final output array (original
// DiskPlotPhase3.cpp's CalculatePrefixSum carries the same running total
// across buckets). Writing right-to-left with pfxSum[bucket]-- (see
// ScatterUint64Keyed below) therefore gives every worker a contiguous,
// non-overlapping output range with zero synchronization.
//
// total[b] is also returned (summed across every worker) so the leader can
// size the output buffer and report per-bucket counts upstream (spec.md
// §4.6 step 2: "One designated worker computes total[b]... and...
// pfxSum_i[b]").
func PrefixSum(numBuckets int, perWorkerLocal [][]uint32) (pfxSum [][]uint32, total []uint32) {
	total = make([]uint32, numBuckets)
	for _, local := range perWorkerLocal {
		for b := 0; b < numBuckets; b++ {
			total[b] += local[b]
		}
	}

	base := make([]uint32, numBuckets)
	var acc uint32
	for b := 0; b < numBuckets; b++ {
		base[b] = acc
		acc += total[b]
	}

	pfxSum = make([][]uint32, len(perWorkerLocal))
	running := append([]uint32(nil), base...)
	for i, local := range perWorkerLocal {
		row := make([]uint32, numBuckets)
		for b := 0; b < numBuckets; b++ {
			running[b] += local[b]
			row[b] = running[b]
		}
		pfxSum[i] = row
	}
	return pfxSum, total
}

// ScatterUint64Keyed writes each element of src into dst at the position
// given by decrementing pfxSum[bucketOf(elem)], so that elements land in
// descending order within their worker's slot but each worker's slot is a
// contiguous, disjoint range of dst (spec.md §4.6 step 3). pfxSum is the
// single worker's row returned by PrefixSum and is mutated in place; key
// rides alongside src into dstKey unchanged, so keyed satellite data (e.g.
// the r-entry original index carried alongside a line point) survives the
// scatter.
func ScatterUint64Keyed(src []uint64, key []uint32, pfxSum []uint32, bucketOf func(uint64) uint8, dst []uint64, dstKey []uint32) {
	for i, v := range src {
		b := bucketOf(v)
		pfxSum[b]--
		idx := pfxSum[b]
		dst[idx] = v
		dstKey[idx] = key[i]
	}
}

// ScatterUint32 writes each element of src into dst at the position given by
// decrementing pfxSum[bucketOf(elem)], for elements that carry no separate
// key (e.g. packed reverse-map records, sortedPos<<32 | originalIndex).
// Step 2's reverse-map scatter in kernel_sort.go does the same decrement
// inline rather than calling this function.
func ScatterUint32(src []uint64, pfxSum []uint32, bucketOf func(uint64) uint8, dst []uint64) {
	for _, v := range src {
		b := bucketOf(v)
		pfxSum[b]--
		dst[pfxSum[b]] = v
	}
}
