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

func TestArenaCarvesDisjointTypedViews(t *testing.T) {
	buf := make([]byte, 4096)
	a := NewArena(buf)

	u64s := AllocUint64(a, 10)
	u32s := AllocUint32(a, 20)
	u16s := AllocUint16(a, 30)

	require.Len(t, u64s, 10)
	require.Len(t, u32s, 20)
	require.Len(t, u16s, 30)

	for i := range u64s {
		u64s[i] = 0xFFFFFFFFFFFFFFFF
	}
	for i := range u32s {
		require.Zero(t, u32s[i], "writes into u64 view must not bleed into u32 view")
	}
	for i := range u16s {
		require.Zero(t, u16s[i], "writes into u64 view must not bleed into u16 view")
	}
}

func TestArenaAllocZeroLengthIsNoop(t *testing.T) {
	buf := make([]byte, 64)
	a := NewArena(buf)
	require.Nil(t, AllocUint64(a, 0))
	require.Equal(t, 64, a.Remaining())
}

func TestArenaOverflowPanics(t *testing.T) {
	buf := make([]byte, 16)
	a := NewArena(buf)
	require.Panics(t, func() {
		AllocUint64(a, 3)
	})
}

func TestArenaAlignment(t *testing.T) {
	buf := make([]byte, 64)
	a := NewArena(buf)
	_ = a.Alloc(1, 1) // misalign the cursor at offset 1
	u32s := AllocUint32(a, 4)
	require.Len(t, u32s, 4)
}

func TestRoundUpToNextBoundary(t *testing.T) {
	require.Equal(t, 0, RoundUpToNextBoundary(0, 4096))
	require.Equal(t, 4096, RoundUpToNextBoundary(1, 4096))
	require.Equal(t, 4096, RoundUpToNextBoundary(4096, 4096))
	require.Equal(t, 8192, RoundUpToNextBoundary(4097, 4096))
}
