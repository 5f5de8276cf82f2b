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
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/analogdev/bladebit/internal/testutil"
)

// memStore is an in-memory implementation of Store for exercising Driver
// without a real disk. Bucket contents accumulate exactly the way the disk
// Store's append-only bucket files do.
type memStore struct {
	mu     sync.Mutex
	marked map[TableId]*Bitfield
	lTable map[TableId][][]uint32 // keyed by the l-table id itself
	rLeft  map[TableId][][]uint32
	rRight map[TableId][][]uint16
	rMap   map[TableId][][]uint32
	lp     map[TableId]map[int][]uint64
	lpKeys map[TableId]map[int][]uint32
	rmap2  map[TableId]map[int][]uint64
	dense  map[TableId][][]uint32
}

func newMemStore() *memStore {
	return &memStore{
		marked: make(map[TableId]*Bitfield),
		lTable: make(map[TableId][][]uint32),
		rLeft:  make(map[TableId][][]uint32),
		rRight: make(map[TableId][][]uint16),
		rMap:   make(map[TableId][][]uint32),
		lp:     make(map[TableId]map[int][]uint64),
		lpKeys: make(map[TableId]map[int][]uint32),
		rmap2:  make(map[TableId]map[int][]uint64),
		dense:  make(map[TableId][][]uint32),
	}
}

func (m *memStore) ReadMarked(_ context.Context, t TableId) (*Bitfield, error) {
	return m.marked[t], nil
}

func (m *memStore) ReadLTableBucket(_ context.Context, lt TableId, bucket int) ([]uint32, error) {
	buckets := m.lTable[lt]
	if bucket >= len(buckets) {
		return nil, nil
	}
	return buckets[bucket], nil
}

func (m *memStore) ReadRBucket(_ context.Context, rt TableId, bucket int) ([]uint32, []uint16, []uint32, error) {
	left := m.rLeft[rt]
	right := m.rRight[rt]
	rmap := m.rMap[rt]
	if bucket >= len(left) {
		return nil, nil, nil, nil
	}
	return left[bucket], right[bucket], rmap[bucket], nil
}

func (m *memStore) WriteLPBucket(_ context.Context, rt TableId, lpBucket int, linePoints []uint64, keys []uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lp[rt] == nil {
		m.lp[rt] = make(map[int][]uint64)
		m.lpKeys[rt] = make(map[int][]uint32)
	}
	m.lp[rt][lpBucket] = append(m.lp[rt][lpBucket], linePoints...)
	m.lpKeys[rt][lpBucket] = append(m.lpKeys[rt][lpBucket], keys...)
	return nil
}

func (m *memStore) ReadLPBucket(_ context.Context, rt TableId, lpBucket int) ([]uint64, []uint32, error) {
	return m.lp[rt][lpBucket], m.lpKeys[rt][lpBucket], nil
}

func (m *memStore) WriteReverseMapBucket(_ context.Context, rt TableId, partitionBucket int, records []uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rmap2[rt] == nil {
		m.rmap2[rt] = make(map[int][]uint64)
	}
	m.rmap2[rt][partitionBucket] = append(m.rmap2[rt][partitionBucket], records...)
	return nil
}

func (m *memStore) ReadReverseMapBucket(_ context.Context, rt TableId, partitionBucket int) ([]uint64, error) {
	return m.rmap2[rt][partitionBucket], nil
}

func (m *memStore) WriteDenseMapBucket(_ context.Context, rt TableId, partitionBucket int, dense []uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	buckets := m.dense[rt]
	for len(buckets) <= partitionBucket {
		buckets = append(buckets, nil)
	}
	buckets[partitionBucket] = dense
	m.dense[rt] = buckets
	// Publish this table's dense output as the next table's l-table input.
	m.lTable[rt] = buckets
	return nil
}

var _ Store = (*memStore)(nil)

func TestDriverSingleTableIteration(t *testing.T) {
	rng := rand.New(rand.NewSource(12))
	cfg := DefaultConfig()
	cfg.Workers = 4
	cfg.ExtraLEntries = 4
	numBuckets := cfg.BBDPBucketCount()

	fixture := testutil.BuildRandomRTableFixture(rng, cfg, 2000, 1500, numBuckets, 0.5)

	store := newMemStore()
	store.marked[Table2] = fixture.Marked
	store.lTable[Table1] = fixture.LValues
	store.rLeft[Table2] = fixture.Left
	store.rRight[Table2] = fixture.RightOffset
	store.rMap[Table2] = fixture.RMap

	counts := NewBucketCounts(cfg)
	counts.SetPartition(Table1, uint32SliceLens(fixture.LValues))

	driver := NewDriver(cfg, store, NopLinePointSink{}, counts, nil)
	entryCounts, err := driver.Run(context.Background(), Table2, Table2)
	require.NoError(t, err)

	wantPruned := fixture.Marked.PopCount()
	require.Equal(t, wantPruned, entryCounts[Table2])

	// property 2: bucket-sum conservation across both partitionings.
	var lpTotal, lMapTotal uint32
	for i := 0; i < BBDPP3LPBucketCountMax; i++ {
		lpTotal += counts.LPBucketCount(i)
	}
	for i := 0; i < numBuckets; i++ {
		lMapTotal += counts.LMapBucketCount(i)
	}
	require.Equal(t, uint32(wantPruned), lpTotal)
	require.Equal(t, uint32(wantPruned), lMapTotal)

	// The dense map produced for table2 must exist and be usable as table3's
	// l-input.
	require.Contains(t, store.lTable, Table2)
}

// S5 from spec.md §8: two full iterations, r=2 then r=3, cross-checked
// against the naive in-memory reference for r=2's prune count.
func TestDriverTwoIterations(t *testing.T) {
	rng := rand.New(rand.NewSource(13))
	cfg := DefaultConfig()
	cfg.Workers = 3
	cfg.ExtraLEntries = 8
	numBuckets := cfg.BBDPBucketCount()

	fixtureR2 := testutil.BuildRandomRTableFixture(rng, cfg, 3000, 2200, numBuckets, 0.5)

	store := newMemStore()
	store.marked[Table2] = fixtureR2.Marked
	store.lTable[Table1] = fixtureR2.LValues
	store.rLeft[Table2] = fixtureR2.Left
	store.rRight[Table2] = fixtureR2.RightOffset
	store.rMap[Table2] = fixtureR2.RMap

	counts := NewBucketCounts(cfg)
	counts.SetPartition(Table1, uint32SliceLens(fixtureR2.LValues))

	driver := NewDriver(cfg, store, NopLinePointSink{}, counts, nil)
	entryCounts, err := driver.Run(context.Background(), Table2, Table2)
	require.NoError(t, err)

	naiveLP, _ := testutil.NaivePrune(fixtureR2)
	require.Equal(t, len(naiveLP), entryCounts[Table2])

	// Table2's dense output is now Table3's l-input; build a synthetic
	// r-table on top of it for the second iteration.
	counts.SetPartition(Table2, denseBucketLens(store.dense[Table2]))

	r3Entries := 1200
	left3 := make([]uint32, r3Entries)
	right3 := make([]uint16, r3Entries)
	rmap3 := make([]uint32, r3Entries)
	marked3 := NewBitfield(r3Entries)

	var totalTable2Len int
	for _, b := range store.dense[Table2] {
		totalTable2Len += len(b)
	}
	for i := 0; i < r3Entries; i++ {
		if totalTable2Len < 2 {
			break
		}
		l := uint32(rng.Intn(totalTable2Len - 1))
		right3[i] = uint16(1 + rng.Intn(min(4, totalTable2Len-int(l)-1)))
		left3[i] = l
		rmap3[i] = uint32(i)
		if rng.Float64() < 0.5 {
			marked3.Set(uint32(i))
		}
	}
	store.rLeft[Table3] = testutil.PartitionUint32(left3, numBuckets)
	store.rRight[Table3] = testutil.PartitionUint16(right3, numBuckets)
	store.rMap[Table3] = testutil.PartitionUint32(rmap3, numBuckets)
	store.marked[Table3] = marked3

	entryCounts2, err := driver.Run(context.Background(), Table3, Table3)
	require.NoError(t, err)
	require.Equal(t, marked3.PopCount(), entryCounts2[Table3])
}

func uint32SliceLens(buckets [][]uint32) []uint32 {
	out := make([]uint32, len(buckets))
	for i, b := range buckets {
		out[i] = uint32(len(b))
	}
	return out
}

func denseBucketLens(buckets [][]uint32) []uint32 {
	out := make([]uint32, len(buckets))
	for i, b := range buckets {
		out[i] = uint32(len(b))
	}
	return out
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
