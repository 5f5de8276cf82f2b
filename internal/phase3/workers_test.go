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
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPartitionCoversEveryIndexOnce(t *testing.T) {
	for _, tc := range []struct{ n, workers int }{
		{100, 4}, {7, 4}, {0, 4}, {3, 8}, {1, 1},
	} {
		ranges := Partition(tc.n, tc.workers)
		covered := make([]bool, tc.n)
		for _, r := range ranges {
			for i := r.Start; i < r.End; i++ {
				require.Falsef(t, covered[i], "index %d covered twice (n=%d workers=%d)", i, tc.n, tc.workers)
				covered[i] = true
			}
		}
		for i, c := range covered {
			require.Truef(t, c, "index %d never covered (n=%d workers=%d)", i, tc.n, tc.workers)
		}
	}
}

func TestPartitionLastWorkerAbsorbsRemainder(t *testing.T) {
	ranges := Partition(10, 3)
	require.Len(t, ranges, 3)
	total := 0
	for _, r := range ranges {
		total += r.Len()
	}
	require.Equal(t, 10, total)
}

func TestBarrierReleasesAllWaiters(t *testing.T) {
	const n = 8
	b := NewBarrier(n)
	var done atomic.Int32
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			errs <- b.Wait(context.Background())
			done.Add(1)
		}()
	}
	for i := 0; i < n; i++ {
		require.NoError(t, <-errs)
	}
	require.Equal(t, int32(n), done.Load())
}

func TestBarrierWaitRespectsCancellation(t *testing.T) {
	b := NewBarrier(2) // only one party ever arrives
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := b.Wait(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRunJobPropagatesWorkerError(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Workers = 4
	sentinel := errors.New("boom")
	err := RunJob(context.Background(), cfg, 100, func(ctx context.Context, rng Range, leader bool, barrier *Barrier) error {
		if rng.WorkerID == 2 {
			return sentinel
		}
		return barrier.Wait(ctx)
	})
	require.ErrorIs(t, err, sentinel)
}

func TestRunJobZeroEntriesIsNoop(t *testing.T) {
	cfg := DefaultConfig()
	called := false
	err := RunJob(context.Background(), cfg, 0, func(ctx context.Context, rng Range, leader bool, barrier *Barrier) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	require.False(t, called)
}
