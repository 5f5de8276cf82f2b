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

import "fmt"

// TableId is an ordinal identifying one of the seven plot tables.
type TableId int

const (
	Table1 TableId = iota + 1
	Table2
	Table3
	Table4
	Table5
	Table6
	Table7
)

func (t TableId) String() string {
	return fmt.Sprintf("table%d", int(t))
}

// LTable returns the l-table for this r-table. Only valid for Table2..Table7.
func (t TableId) LTable() TableId {
	return t - 1
}

// IsRTable reports whether t is a valid r-table (table2..table7).
func (t TableId) IsRTable() bool {
	return t >= Table2 && t <= Table7
}

// Default tunables, overridable via Config (see config.go). Names and values
// follow the constants named in spec.md §6.
const (
	// DefaultK is the plot size parameter used when a Config does not
	// override it.
	DefaultK = 32

	// DefaultKExtraBits is the number of high bits of an original index used
	// to select one of the BB_DP_BUCKET_COUNT buckets.
	DefaultKExtraBits = 6

	// BBDPBucketCount is 1<<KExtraBits for the default KExtraBits: the
	// number of buckets the original-index ("y") space is partitioned into.
	BBDPBucketCount = 1 << DefaultKExtraBits

	// BBDPP3LPBucketCount is the fixed number of line-point buckets; the top
	// 8 bits of a 64-bit line point select one of these.
	BBDPP3LPBucketCount = 256

	// ExtraLEntries is the number of l-table values carried over from the
	// tail of bucket b-1 into the head of bucket b, so that a pair whose
	// right index straddles the bucket boundary can still be resolved
	// in-memory. See spec.md §4.3.
	ExtraLEntries = 1024
)
