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

// Package diskio is the asynchronous, bucketed IO collaborator Phase 3
// treats as external (spec.md §1): a single background worker that owns
// every syscall, a fence mechanism CPU kernels block on instead of the IO
// itself, and a loan-able buffer ring bounding how many IO buffers may be
// outstanding at once.
package diskio

import (
	"context"
	"sync"
)

// Fence is a monotonically advancing integer barrier between an IO
// submitter and a CPU consumer (spec.md §4.7, §9: "Fence ids as integer
// sequences... are fine; the Step-2 bucket*FENCE_COUNT+tag scheme is
// deliberate and must be preserved"). Signal(id) may be called out of order
// relative to Wait(id) calls; Wait(id) returns once id has been signaled,
// regardless of arrival order, so a Step 2 caller can wait independently on
// a bucket's LPLoaded and MapLoaded tags.
type Fence struct {
	mu        sync.Mutex
	cond      *sync.Cond
	signaled  map[int64]struct{}
	maxSignal int64
}

// NewFence returns a ready-to-use Fence.
func NewFence() *Fence {
	f := &Fence{signaled: make(map[int64]struct{})}
	f.cond = sync.NewCond(&f.mu)
	return f
}

// FENCE_COUNT-style tag constants for Step 2's bucket*FENCE_COUNT+tag
// fence-id scheme (spec.md §4.7).
const (
	TagLPLoaded int64 = iota
	TagMapLoaded
	FenceCount
)

// BucketFenceId composes a Step-2 tagged fence id.
func BucketFenceId(bucket int, tag int64) int64 {
	return int64(bucket)*FenceCount + tag
}

// Signal marks id as signaled, waking any blocked Wait calls. Only id itself
// is marked: ids below it that were never signaled keep blocking Wait.
func (f *Fence) Signal(id int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signaled[id] = struct{}{}
	if id > f.maxSignal {
		f.maxSignal = id
	}
	f.cond.Broadcast()
}

// Wait blocks until id has been signaled or ctx is done. Cancellation wakes
// a blocked Wait via context.AfterFunc broadcasting the same condition
// variable Signal uses, so no separate polling goroutine is needed.
func (f *Fence) Wait(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	stop := context.AfterFunc(ctx, func() {
		f.mu.Lock()
		f.cond.Broadcast()
		f.mu.Unlock()
	})
	defer stop()

	f.mu.Lock()
	defer f.mu.Unlock()
	for {
		if _, ok := f.signaled[id]; ok {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		f.cond.Wait()
	}
}

// Reset clears every signaled id, so the fence can be reused for a fresh
// sequence of ids (spec.md §4.2's "reset the read fence"). phase3.Driver
// does not hold a Fence itself: its Store calls block until each IO command
// completes.
func (f *Fence) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signaled = make(map[int64]struct{})
	f.maxSignal = 0
}
