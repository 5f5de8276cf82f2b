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

// Command phase3bench drives the compression engine over a synthetic
// fixture standing in for a real Phase 2 output, to exercise the full
// disk-backed pipeline end to end. It is a demo harness, not a general
// plotter CLI (spec.md's Non-goals place a real CLI/config framework out of
// scope): flags are the handful phase3bench itself needs, not a reusable
// flag package.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"

	"github.com/erigontech/erigon-lib/log/v3"

	"github.com/analogdev/bladebit/internal/diskio"
	"github.com/analogdev/bladebit/internal/phase3"
	"github.com/analogdev/bladebit/internal/testutil"
)

func main() {
	var (
		dir       = flag.String("dir", "", "working directory for bucket files (default: a temp dir)")
		workers   = flag.Int("workers", 0, "worker count (default: GOMAXPROCS)")
		seed      = flag.Int64("seed", 1, "fixture RNG seed")
		lEntries  = flag.Int("l-entries", 200000, "synthetic table1 entry count")
		rEntries  = flag.Int("r-entries", 150000, "synthetic table2 entry count")
		markedPct = flag.Float64("marked-fraction", 0.35, "fraction of r-entries treated as survivors")
	)
	flag.Parse()

	logger := log.New()

	if err := run(logger, *dir, *workers, *seed, *lEntries, *rEntries, *markedPct); err != nil {
		logger.Error("phase3bench: failed", "err", err)
		os.Exit(1)
	}
}

func run(logger log.Logger, dir string, workers int, seed int64, lEntries, rEntries int, markedFraction float64) error {
	cfg := phase3.DefaultConfig()
	if workers > 0 {
		cfg.Workers = workers
	}

	if dir == "" {
		tmp, err := os.MkdirTemp("", "phase3bench-*")
		if err != nil {
			return fmt.Errorf("phase3bench: mkdtemp: %w", err)
		}
		defer os.RemoveAll(tmp)
		dir = tmp
	}
	logger.Info("phase3bench: starting", "dir", dir, "workers", cfg.Workers, "k", cfg.K)

	numBuckets := cfg.BBDPBucketCount()
	rng := rand.New(rand.NewSource(seed))
	fixture := testutil.BuildRandomRTableFixture(rng, cfg, lEntries, rEntries, numBuckets, markedFraction)

	counts := phase3.NewBucketCounts(cfg)
	partitionLens := make([]uint32, numBuckets)
	for b, v := range fixture.LValues {
		partitionLens[b] = uint32(len(v))
	}
	counts.SetPartition(phase3.Table1, partitionLens)

	layout := phase3.ComputeHeapLayout(cfg, counts, phase3.BitfieldSizeBytes(rEntries))
	logger.Info("phase3bench: heap layout computed", "totalBytes", layout.HumanTotal())

	arena := phase3.NewArena(make([]byte, layout.TotalBytes()+cfg.IOBlockSize*8))
	regions := phase3.Carve(arena, layout)
	bufferRing := diskio.NewBufferRing(regions.Remainder, cfg.IOBlockSize)
	logger.Debug("phase3bench: buffer ring ready", "bufSize", cfg.IOBlockSize)

	queue := diskio.NewQueue()
	defer queue.Close()
	store := diskio.NewStore(dir, queue, bufferRing)

	ctx := context.Background()
	if err := seedStore(ctx, store, fixture); err != nil {
		return fmt.Errorf("phase3bench: seeding fixture: %w", err)
	}

	driver := phase3.NewDriver(cfg, store, phase3.NopLinePointSink{}, counts, logger)
	driver.SetHeap(&regions)

	entryCounts, err := driver.Run(ctx, phase3.Table2, phase3.Table2)
	if err != nil {
		return err
	}

	for t, n := range entryCounts {
		logger.Info("phase3bench: table result", "table", t, "prunedCount", n)
	}
	return nil
}

// seedStore writes a synthetic fixture's back-pointer pairs, l-table values
// and marked bitmap into store, standing in for what a real Phase 2 would
// have already written to disk.
func seedStore(ctx context.Context, store *diskio.Store, fixture testutil.RTableFixture) error {
	for b, left := range fixture.Left {
		if err := store.WriteRBucket(ctx, phase3.Table2, b, left, fixture.RightOffset[b], fixture.RMap[b]); err != nil {
			return err
		}
	}
	for b, values := range fixture.LValues {
		if err := store.WriteXBucket(ctx, b, values); err != nil {
			return err
		}
	}
	return store.WriteMarked(ctx, phase3.Table2, fixture.Marked)
}
