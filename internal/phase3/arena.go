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
	"fmt"
	"unsafe"
)

// Arena is a fixed-capacity bump allocator carved out of a single backing
// byte slice. It replaces the original implementation's raw pointer
// arithmetic over one heap buffer (StackAllocator in
// _examples/original_source/src/util/StackAllocator.h) with typed, aligned,
// non-overlapping slice views: every AllocX call returns a slice whose
// backing array is disjoint from every other view's, and the Arena outlives
// all of them.
type Arena struct {
	buf  []byte
	size int
}

// NewArena wraps buf as an allocation arena. buf's length is the arena's
// total capacity.
func NewArena(buf []byte) *Arena {
	return &Arena{buf: buf}
}

// Remaining returns the number of unallocated bytes left in the arena.
func (a *Arena) Remaining() int {
	return len(a.buf) - a.size
}

// Alloc reserves size bytes aligned to alignment and returns the raw slice.
func (a *Arena) Alloc(size, alignment int) []byte {
	padded := roundUp(a.size, alignment)
	if padded+size > len(a.buf) {
		panic(fmt.Sprintf("phase3: arena overflow: need %d bytes at offset %d, capacity %d", size, padded, len(a.buf)))
	}
	view := a.buf[padded : padded+size : padded+size]
	a.size = padded + size
	return view
}

// AllocUint64 carves out a []uint64 of length n.
func AllocUint64(a *Arena, n int) []uint64 {
	if n == 0 {
		return nil
	}
	raw := a.Alloc(n*8, 8)
	return unsafe.Slice((*uint64)(unsafe.Pointer(&raw[0])), n)
}

// AllocUint32 carves out a []uint32 of length n.
func AllocUint32(a *Arena, n int) []uint32 {
	if n == 0 {
		return nil
	}
	raw := a.Alloc(n*4, 4)
	return unsafe.Slice((*uint32)(unsafe.Pointer(&raw[0])), n)
}

// AllocUint16 carves out a []uint16 of length n.
func AllocUint16(a *Arena, n int) []uint16 {
	if n == 0 {
		return nil
	}
	raw := a.Alloc(n*2, 2)
	return unsafe.Slice((*uint16)(unsafe.Pointer(&raw[0])), n)
}

func roundUp(v, boundary int) int {
	if boundary <= 1 {
		return v
	}
	rem := v % boundary
	if rem == 0 {
		return v
	}
	return v + boundary - rem
}

// RoundUpToNextBoundary rounds n up to the next multiple of boundary. It is
// exported for use by heap-layout sizing, which rounds region sizes up to
// the IO block size the way the original's RoundUpToNextBoundary does.
func RoundUpToNextBoundary(n, boundary int) int {
	return roundUp(n, boundary)
}
