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
	"os"
	"runtime"
	"strconv"
	"strings"
)

// Config carries the engine's tunables. No CLI or flag parsing lives in this
// package (spec.md §1 places configuration/CLI outside the core); instead
// numeric and boolean overrides are read from PHASE3_* environment
// variables at construction time, the way erigon-lib/common/dbg reads
// ERIGON_* overrides. Callers that do own a CLI (e.g. cmd/phase3bench) build
// a Config from flags themselves and pass it in.
type Config struct {
	K             int
	KExtraBits    int
	ExtraLEntries int
	LPBucketCount int
	Workers       int
	IOBlockSize   int
	DebugAsserts  bool
}

// DefaultConfig returns the engine defaults, each overridable by a
// PHASE3_* environment variable.
func DefaultConfig() Config {
	return Config{
		K:             envInt("K", DefaultK),
		KExtraBits:    envInt("K_EXTRA_BITS", DefaultKExtraBits),
		ExtraLEntries: envInt("EXTRA_L_ENTRIES", ExtraLEntries),
		LPBucketCount: envInt("LP_BUCKET_COUNT", BBDPP3LPBucketCount),
		Workers:       envInt("WORKERS", runtime.GOMAXPROCS(-1)),
		IOBlockSize:   envInt("IO_BLOCK_SIZE", 4096),
		DebugAsserts:  envBool("DEBUG_ASSERTS", false),
	}
}

// BBDPBucketCount returns 1<<KExtraBits, the number of partition buckets.
func (c Config) BBDPBucketCount() int {
	return 1 << c.KExtraBits
}

// MaxEntries returns 1<<K, the maximum number of entries any table can hold.
func (c Config) MaxEntries() uint64 {
	return uint64(1) << c.K
}

func envLookup(name string) (string, bool) {
	if v, ok := os.LookupEnv("PHASE3_" + name); ok {
		return v, true
	}
	return "", false
}

func envInt(name string, def int) int {
	v, ok := envLookup(name)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return n
}

func envBool(name string, def bool) bool {
	v, ok := envLookup(name)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return b
}
