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

package diskio

import "unsafe"

// bytesOfUint64/32/16 reinterpret a typed slice as its raw backing bytes for
// writing, and back again for reading, the same native fixed-width encoding
// Arena.Alloc* hands out typed views over (internal/phase3/arena.go). Files
// this package writes are therefore only portable within one platform's
// endianness, which matches the original engine: bladebit's own on-disk
// bucket files are native-endian block-aligned dumps, not a portable wire
// format (that only exists in the final park-encoded plot, out of scope
// here).
func bytesOfUint64(s []uint64) []byte {
	if len(s) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*8)
}

func bytesOfUint32(s []uint32) []byte {
	if len(s) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*4)
}

func bytesOfUint16(s []uint16) []byte {
	if len(s) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*2)
}

func uint64sOfBytes(b []byte) []uint64 {
	if len(b) == 0 {
		return nil
	}
	return unsafe.Slice((*uint64)(unsafe.Pointer(&b[0])), len(b)/8)
}

func uint32sOfBytes(b []byte) []uint32 {
	if len(b) == 0 {
		return nil
	}
	return unsafe.Slice((*uint32)(unsafe.Pointer(&b[0])), len(b)/4)
}

func uint16sOfBytes(b []byte) []uint16 {
	if len(b) == 0 {
		return nil
	}
	return unsafe.Slice((*uint16)(unsafe.Pointer(&b[0])), len(b)/2)
}
