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
	"sync"

	"golang.org/x/sync/errgroup"
)

// Range is a contiguous, half-open slice of entry indices assigned to one
// worker.
type Range struct {
	Start, End int
	WorkerID   int
}

// Len returns End-Start.
func (r Range) Len() int { return r.End - r.Start }

// Partition splits [0, n) into up to workers contiguous ranges, the way
// ConvertToLPJob in the original source does: each worker gets n/workers
// entries, and the last worker absorbs the remainder. If n is smaller than
// workers, fewer, single-entry ranges are produced (mirroring
// eth/stagedsync/parallel.go's SpawnWorkers, which shrinks numPartitions
// when there isn't enough work to go around).
func Partition(n, workers int) []Range {
	if workers < 1 {
		workers = 1
	}
	if workers > n {
		workers = n
	}
	if workers == 0 {
		return nil
	}
	base := n / workers
	ranges := make([]Range, workers)
	offset := 0
	for i := 0; i < workers; i++ {
		count := base
		if i == workers-1 {
			count = n - offset
		}
		ranges[i] = Range{Start: offset, End: offset + count, WorkerID: i}
		offset += count
	}
	return ranges
}

// Barrier is a reusable rendezvous point for a fixed set of parties,
// equivalent to the SyncThreads call the original source's PrefixSumJob
// barrier-synchronized jobs use between phases (count -> barrier -> leader
// reduce & allocate -> barrier -> scatter -> barrier, per Design Notes).
type Barrier struct {
	n     int
	mu    sync.Mutex
	count int
	gen   int
	done  chan struct{}
}

// NewBarrier returns a Barrier for n parties.
func NewBarrier(n int) *Barrier {
	return &Barrier{n: n, done: make(chan struct{})}
}

// Wait blocks until all n parties have called Wait for the current
// generation, then releases them all together. If ctx is cancelled while
// waiting (e.g. a sibling worker failed), Wait returns ctx.Err() instead of
// blocking forever; the Barrier must not be reused after that happens.
func (b *Barrier) Wait(ctx context.Context) error {
	b.mu.Lock()
	b.count++
	if b.count == b.n {
		b.count = 0
		b.gen++
		close(b.done)
		b.done = make(chan struct{})
		b.mu.Unlock()
		return nil
	}
	ch := b.done
	b.mu.Unlock()
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// WorkerFunc is run once per worker by RunJob. leader is true for exactly
// one worker (worker 0), matching the original's "control thread" / erigon's
// designated-reducer convention: only the leader should perform global
// reductions (summing per-worker counts) or submit IO.
type WorkerFunc func(ctx context.Context, rng Range, leader bool, barrier *Barrier) error

// RunJob partitions [0, n) across up to cfg.Workers goroutines (fewer if n
// is small) and runs fn once per partition, bounding concurrency with
// errgroup.SetLimit the way eth/stagedsync/parallel.go and
// erigon-lib/downloader/downloader.go do. All workers share one Barrier
// sized to the actual worker count in use, so fn can call barrier.Wait() to
// implement the two-pass count/scatter pattern in spec.md §4.3/§4.6.
func RunJob(ctx context.Context, cfg Config, n int, fn WorkerFunc) error {
	ranges := Partition(n, cfg.Workers)
	if len(ranges) == 0 {
		return nil
	}
	barrier := NewBarrier(len(ranges))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(len(ranges))
	for _, rng := range ranges {
		rng := rng
		g.Go(func() error {
			return fn(gctx, rng, rng.WorkerID == 0, barrier)
		})
	}
	return g.Wait()
}
