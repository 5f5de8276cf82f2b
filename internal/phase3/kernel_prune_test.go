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
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

// S1 from spec.md §8: an all-zero marked bitmap prunes everything away.
func TestPruneAndLinepointAllUnmarked(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Workers = 4
	marked := NewBitfield(8)
	lMap := []uint32{10, 20, 30, 40, 50}
	left := []uint32{0, 1, 2, 3}
	right := []uint16{1, 1, 1, 1}
	rmap := []uint32{0, 1, 2, 3}

	lp, keys, counts, pruned, err := PruneAndLinepoint(context.Background(), cfg, marked, lMap, left, right, rmap, nil)
	require.NoError(t, err)
	require.Equal(t, 0, pruned)
	require.Empty(t, lp)
	require.Empty(t, keys)
	for _, c := range counts {
		require.Zero(t, c)
	}
}

// S2 from spec.md §8.
func TestPruneAndLinepointProducesExpectedLinePoints(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Workers = 2
	marked := NewBitfield(4)
	marked.Set(0)
	marked.Set(1)
	marked.Set(2)
	marked.Set(3)

	lMap := []uint32{10, 20, 30, 40, 50}
	left := []uint32{0, 1, 2, 3}
	right := []uint16{1, 1, 1, 1}
	rmap := []uint32{0, 1, 2, 3}

	lp, keys, counts, pruned, err := PruneAndLinepoint(context.Background(), cfg, marked, lMap, left, right, rmap, nil)
	require.NoError(t, err)
	require.Equal(t, 4, pruned)
	require.Len(t, lp, 4)
	require.Len(t, keys, 4)

	want := map[uint64]bool{
		uint64(SquareToLinePoint(10, 20)): true,
		uint64(SquareToLinePoint(20, 30)): true,
		uint64(SquareToLinePoint(30, 40)): true,
		uint64(SquareToLinePoint(40, 50)): true,
	}
	for _, v := range lp {
		require.True(t, want[v], "unexpected line point %d", v)
		delete(want, v)
	}
	require.Empty(t, want)

	var total uint32
	for _, c := range counts {
		total += c
	}
	require.Equal(t, uint32(4), total)
}

// Property 1 (prune conservation) and property 3 (bucket-key correctness).
func TestPruneAndLinepointConservationAndBucketKeys(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	cfg := DefaultConfig()
	cfg.Workers = 4

	n := 2000
	lMap := make([]uint32, n+10)
	for i := range lMap {
		lMap[i] = uint32(rng.Intn(1 << 20))
	}

	marked := NewBitfield(n)
	left := make([]uint32, n)
	right := make([]uint16, n)
	rmap := make([]uint32, n)
	wantPruned := 0
	for i := 0; i < n; i++ {
		if rng.Float64() < 0.4 {
			marked.Set(uint32(i))
			wantPruned++
		}
		left[i] = uint32(rng.Intn(len(lMap) - 5))
		right[i] = uint16(rng.Intn(5))
		rmap[i] = uint32(i)
	}

	lp, keys, counts, pruned, err := PruneAndLinepoint(context.Background(), cfg, marked, lMap, left, right, rmap, nil)
	require.NoError(t, err)
	require.Equal(t, wantPruned, pruned)
	require.Equal(t, marked.PopCount(), pruned)
	require.Len(t, keys, pruned)

	var total uint32
	for _, c := range counts {
		total += c
	}
	require.Equal(t, uint32(pruned), total)

	off := 0
	for b, c := range counts {
		for i := off; i < off+int(c); i++ {
			require.Equalf(t, uint8(b), LinePoint(lp[i]).Bucket(), "entry %d not in claimed bucket %d", i, b)
		}
		off += int(c)
	}
}

func TestPruneAndLinepointRejectsOutOfWindowPair(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Workers = 1
	marked := NewBitfield(2)
	marked.Set(0)
	lMap := []uint32{10, 20}
	left := []uint32{0}
	right := []uint16{5} // resolves to index 5, outside the 2-element window
	rmap := []uint32{0}

	_, _, _, _, err := PruneAndLinepoint(context.Background(), cfg, marked, lMap, left, right, rmap, nil)
	require.ErrorIs(t, err, ErrConsistency)
}
