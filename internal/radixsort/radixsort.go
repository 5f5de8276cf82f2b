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

// Package radixsort is the LSD byte-wise radix sort collaborator the Phase 3
// pipeline relies on for sorting a line-point bucket by value while keeping
// an associated satellite key array in lockstep. spec.md §1 places "radix
// sort" outside the core as an external collaborator, so this package is
// deliberately independent of the phase3 package: it knows nothing about
// line points, buckets, or tables, only about sorting uint64s with a uint32
// rider, the same contract RadixSort256::SortWithKey exposes in the
// original source.
package radixsort

// SortWithKey sorts keys ascending and permutes satellite in lockstep, using
// 8 LSD passes of 8 bits each (256-way counting sort per pass), the same
// byte-wise strategy as RadixSort256::SortWithKey. The sort is stable, so
// satellite entries that share a key retain their relative order (spec.md
// §8 property 4, "sort stability not required" for correctness but this
// implementation provides it for free and it simplifies S4-style duplicate
// handling in tests).
//
// keys and satellite must have the same length; both are sorted/permuted in
// place using two scratch buffers, one the size of keys and one the size of
// satellite.
func SortWithKey(keys []uint64, satellite []uint32) {
	n := len(keys)
	if n < 2 {
		return
	}

	keyScratch := make([]uint64, n)
	satScratch := make([]uint32, n)

	src, srcSat := keys, satellite
	dst, dstSat := keyScratch, satScratch

	var counts [256]int
	for pass := 0; pass < 8; pass++ {
		shift := uint(pass * 8)

		counts = [256]int{}
		for _, k := range src {
			counts[byte(k>>shift)]++
		}

		// Skip a pass entirely if every key has the same byte here: common
		// once line points have been reduced below 2^(pass*8) in magnitude.
		if onlyOneBucket(counts) {
			continue
		}

		var offset int
		for b := 0; b < 256; b++ {
			c := counts[b]
			counts[b] = offset
			offset += c
		}

		for i, k := range src {
			b := byte(k >> shift)
			idx := counts[b]
			counts[b]++
			dst[idx] = k
			dstSat[idx] = srcSat[i]
		}

		src, dst = dst, src
		srcSat, dstSat = dstSat, srcSat
	}

	// If we performed an even number of effective swaps src already aliases
	// keys/satellite; otherwise copy the final result back.
	if &src[0] != &keys[0] {
		copy(keys, src)
		copy(satellite, srcSat)
	}
}

func onlyOneBucket(counts [256]int) bool {
	seen := -1
	for b, c := range counts {
		if c == 0 {
			continue
		}
		if seen != -1 {
			return false
		}
		seen = b
	}
	return true
}
