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

// Package phase3 implements the Phase 3 table-compression engine of the
// plotter.
//
// Let rTable be a table in the set {table2, ..., table7} and let lTable be
// rTable-1 (so table1 when rTable is table2). For each rTable the engine
// performs three steps:
//
// Step 1. Process each bucket:
//   - Load L/R back pointers for rTable.
//   - Load the origin-index map for rTable.
//   - Load the marked entries produced by the previous phase for rTable.
//   - Load lTable, which for rTable==table2 is the raw x buckets, otherwise
//     the map produced by the previous iteration's Step 3.
//   - Resolve each marked rTable pair against lTable and convert it to a
//     line point, discarding unmarked entries.
//   - Distribute the resulting line points to their output buckets along
//     with the rTable map entry (the origin index), and write them to disk.
//
// Step 2. Process each line-point bucket:
//   - Load the line points and key (origin index) for the bucket.
//   - Sort the bucket on the line point, carrying the key along.
//   - Hand the sorted line points to the downstream sink.
//   - Convert the sorted key array into a reverse lookup by pairing each
//     key with its post-sort position, and distribute the result to buckets
//     keyed by the key's high bits. Write the buckets to disk.
//
// Step 3. Process each reverse-map bucket:
//   - Unpack it into a dense, positional array.
//   - Rewrite it as a single contiguous file; this becomes lTable for the
//     next rTable iteration.
package phase3
