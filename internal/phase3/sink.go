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

// LinePointSink is the downstream park-encoder collaborator (spec.md §6,
// "sink.put(sortedLinePoints, sortedKeys, bucketLen, globalOffset)"). Park
// encoding itself -- deltafying and compressing sorted line points into the
// final on-plot format -- is explicitly out of scope (spec.md §1); Step 2
// only needs somewhere to hand its sorted output.
type LinePointSink interface {
	PutLinePoints(ctx context.Context, table TableId, bucket int, sortedLinePoints []uint64, sortedKeys []uint32, bucketLen int, globalOffset uint64) error
}

// NopLinePointSink discards every bucket handed to it. It is the default
// collaborator for tests and for cmd/phase3bench, where nothing downstream
// of line-point sorting is under test.
type NopLinePointSink struct{}

func (NopLinePointSink) PutLinePoints(context.Context, TableId, int, []uint64, []uint32, int, uint64) error {
	return nil
}

// CollectingLinePointSink records every bucket it receives, concatenated in
// call order. Used by tests that need to inspect the fully sorted line
// points for a table (e.g. the round-trip and injectivity properties).
type CollectingLinePointSink struct {
	LinePoints []uint64
	Keys       []uint32
}

func (s *CollectingLinePointSink) PutLinePoints(_ context.Context, _ TableId, _ int, sortedLinePoints []uint64, sortedKeys []uint32, bucketLen int, _ uint64) error {
	s.LinePoints = append(s.LinePoints, sortedLinePoints[:bucketLen]...)
	s.Keys = append(s.Keys, sortedKeys[:bucketLen]...)
	return nil
}
