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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPrefixSum(t *testing.T) {
	// 2 workers, 3 buckets.
	local := [][]uint32{
		{1, 0, 2},
		{3, 1, 0},
	}
	pfxSum, total := PrefixSum(3, local)
	require.Equal(t, []uint32{4, 1, 2}, total)
	// base[0]=0, base[1]=4, base[2]=5 (exclusive prefix sum of total across
	// buckets); each row then adds the inclusive prefix sum across workers
	// within its own bucket.
	require.Equal(t, []uint32{1, 4, 7}, pfxSum[0])
	require.Equal(t, []uint32{4, 5, 7}, pfxSum[1])
}

func TestScatterUint64KeyedProducesContiguousWorkerRanges(t *testing.T) {
	// Two buckets (by low bit), two workers each owning half of src.
	src := []uint64{0, 2, 4, 1, 3, 5}
	key := []uint32{10, 20, 30, 40, 50, 60}
	bucketOf := func(v uint64) uint8 { return uint8(v & 1) }

	worker0Local := []uint32{3, 0} // src[0:3]: 0,2,4 -> bucket0=3 bucket1=0
	worker1Local := []uint32{0, 3} // src[3:6]: 1,3,5 -> bucket0=0 bucket1=3
	pfxSum, total := PrefixSum(2, [][]uint32{worker0Local, worker1Local})
	require.Equal(t, []uint32{3, 3}, total)

	dst := make([]uint64, 6)
	dstKey := make([]uint32, 6)
	ScatterUint64Keyed(src[0:3], key[0:3], pfxSum[0], bucketOf, dst, dstKey)
	ScatterUint64Keyed(src[3:6], key[3:6], pfxSum[1], bucketOf, dst, dstKey)

	// bucket 0 occupies the contiguous global range [0,3), bucket 1 [3,6).
	for i, v := range dst {
		require.Equal(t, uint8(i/3), bucketOf(v), "position %d landed in the wrong bucket", i)
	}
	// dst must be a full, collision-free permutation of src: every source
	// value appears exactly once, with its key riding along.
	seen := make(map[uint64]uint32)
	for i, v := range dst {
		_, dup := seen[v]
		require.False(t, dup, "value %d written more than once", v)
		seen[v] = dstKey[i]
	}
	require.Len(t, seen, len(src))
	for i, v := range src {
		require.Equal(t, key[i], seen[v])
	}
}

func TestScatterUint32(t *testing.T) {
	src := []uint64{0x0100000000, 0x0300000001, 0x0200000000, 0x0400000001}
	bucketOf := func(v uint64) uint8 { return uint8(v & 1) }
	local := []uint32{2, 2}
	pfxSum, total := PrefixSum(2, [][]uint32{local})
	require.Equal(t, []uint32{2, 2}, total)

	dst := make([]uint64, 4)
	ScatterUint32(src, pfxSum[0], bucketOf, dst)
	for i, v := range dst {
		require.Equal(t, uint8(i/2), bucketOf(v))
	}
}
