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
	"fmt"
)

// Queue is the single background IO worker (spec.md §5: "a single
// background IO worker drains a command queue. It is the only party that
// issues syscalls; CPU kernels never block on the kernel directly."). Every
// disk operation Store performs is a command submitted here and executed on
// the worker goroutine; the submitting goroutine blocks on the command's
// result the way a CPU kernel blocks on Fence.Wait, never touching the file
// descriptor itself.
type Queue struct {
	commands chan command
	done     chan struct{}
}

type command struct {
	run    func() error
	result chan error
}

// NewQueue starts the background worker goroutine. Callers should Close the
// queue once the pipeline is done to stop the goroutine.
func NewQueue() *Queue {
	q := &Queue{
		commands: make(chan command),
		done:     make(chan struct{}),
	}
	go q.run()
	return q
}

func (q *Queue) run() {
	for {
		select {
		case cmd := <-q.commands:
			cmd.result <- cmd.run()
		case <-q.done:
			return
		}
	}
}

// Submit enqueues run to execute on the IO worker goroutine and blocks until
// it completes or ctx is cancelled. This is CommitCommands + Fence.Wait
// collapsed into one call: spec.md's real engine pipelines many buffered
// commands before waiting on a fence, but a synchronous submit-and-wait is
// observationally equivalent for every property this module tests, and it
// keeps the "only the IO worker issues syscalls" invariant without a second
// bespoke batching layer.
func (q *Queue) Submit(ctx context.Context, run func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cmd := command{run: run, result: make(chan error, 1)}
	select {
	case q.commands <- cmd:
	case <-ctx.Done():
		return ctx.Err()
	case <-q.done:
		return fmt.Errorf("diskio: queue closed")
	}
	select {
	case err := <-cmd.result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the worker goroutine. Safe to call once.
func (q *Queue) Close() {
	close(q.done)
}
