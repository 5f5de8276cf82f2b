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

// UnpackToDense is Step 3 (spec.md §4.5, grounded on LPUnpackMapJob): it
// takes one bucket's worth of packed reverse-map records -- each one
// (sortedPos<<32 | originalIndex) as produced by Step 2's scatter -- and
// rewrites them into a single contiguous array indexed by originalIndex,
// recovering where in the globally sorted line-point stream that original
// r-table entry ended up.
//
// bucketOffset is the first originalIndex value this bucket is responsible
// for (spec.md §4.5's "idx = (uint32)m - bucketOffset"); dense must already
// be sized to the bucket's entry count (bucketOffset..bucketOffset+len(dense)).
// Every record's low 32 bits must fall in that range or the map was built
// inconsistently with the bucket boundaries handed to this call.
func UnpackToDense(ctx context.Context, cfg Config, records []uint64, bucketOffset uint32, dense []uint32) error {
	n := len(records)
	if n == 0 {
		return nil
	}

	return RunJob(ctx, cfg, n, func(ctx context.Context, rng Range, leader bool, barrier *Barrier) error {
		for i := rng.Start; i < rng.End; i++ {
			sortedPos, originalIndex := UnpackReverseMapRecord(records[i])
			idx := originalIndex - bucketOffset
			if int(idx) >= len(dense) {
				return consistencyf("phase3: reverse-map record originalIndex %d (bucketOffset %d) out of range for dense bucket of length %d", originalIndex, bucketOffset, len(dense))
			}
			dense[idx] = uint32(sortedPos)
		}
		return nil
	})
}
