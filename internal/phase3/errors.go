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
	"errors"
	"fmt"
)

// ErrIO wraps a failure surfaced by the IO queue (read, write, or seek).
// Fatal: the driver aborts the in-flight table iteration.
var ErrIO = errors.New("phase3: io failure")

// ErrConsistency wraps an invariant violation: a pair resolving outside the
// l-window, a scatter write that would overflow its bucket, or pruned counts
// disagreeing between steps. Always indicates upstream corruption or a bug,
// never a transient condition.
var ErrConsistency = errors.New("phase3: consistency violation")

// wrapIO annotates err with ErrIO and a location.
func wrapIO(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %v", op, ErrIO, err)
}

// consistencyf builds an ErrConsistency with a formatted message.
func consistencyf(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrConsistency)
}

// assertConsistency is the debug-only invariant check described in spec.md
// §7 and §9 ("Debug-only invariants... runtime-checked in debug builds and
// either elided or downgraded to counters in release builds"). When
// cfg.DebugAsserts is false the check is skipped entirely (zero cost on the
// hot path); when true, a failing invariant is returned as an
// ErrConsistency instead of silently corrupting output.
func assertConsistency(cfg Config, cond bool, format string, args ...interface{}) error {
	if !cfg.DebugAsserts || cond {
		return nil
	}
	return consistencyf(format, args...)
}
