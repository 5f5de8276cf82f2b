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

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// BufferRing is the loan-able IO buffer ring (spec.md §4.7's
// GetBuffer/ReleaseBuffer, §5's "the loan-able buffer ring is the sole
// dynamic allocator during the pipeline"). It hands out fixed-size []byte
// buffers carved from the heap remainder left over after phase3.Carve
// (SPEC_FULL.md §6.1), bounding how many may be outstanding at once with a
// golang.org/x/sync/semaphore.Weighted, the same primitive
// erigon-lib/downloader uses to bound concurrent piece downloads.
type BufferRing struct {
	bufSize int
	sem     *semaphore.Weighted

	mu   sync.Mutex
	free [][]byte
}

// NewBufferRing slices remainder into buffers of bufSize bytes each and
// bounds concurrent loans to that many.
func NewBufferRing(remainder []byte, bufSize int) *BufferRing {
	n := len(remainder) / bufSize
	r := &BufferRing{
		bufSize: bufSize,
		sem:     semaphore.NewWeighted(int64(n)),
	}
	for i := 0; i < n; i++ {
		r.free = append(r.free, remainder[i*bufSize:(i+1)*bufSize])
	}
	return r
}

// GetBuffer loans a buffer, blocking until one is free (spec.md §4.7's
// "GetBuffer(size, blocking=true)") unless ctx is cancelled first.
func (r *BufferRing) GetBuffer(ctx context.Context) ([]byte, error) {
	if err := r.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	r.mu.Lock()
	buf := r.free[len(r.free)-1]
	r.free = r.free[:len(r.free)-1]
	r.mu.Unlock()
	return buf, nil
}

// TryGetBuffer is the non-blocking variant (spec.md §4.7's
// "blocking=false... a null return means defer this load"): it returns
// (nil, false) immediately if no buffer is free instead of waiting.
func (r *BufferRing) TryGetBuffer() ([]byte, bool) {
	if !r.sem.TryAcquire(1) {
		return nil, false
	}
	r.mu.Lock()
	buf := r.free[len(r.free)-1]
	r.free = r.free[:len(r.free)-1]
	r.mu.Unlock()
	return buf, true
}

// ReleaseBuffer returns buf to the ring.
func (r *BufferRing) ReleaseBuffer(buf []byte) {
	r.mu.Lock()
	r.free = append(r.free, buf)
	r.mu.Unlock()
	r.sem.Release(1)
}
