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
	"os"
	"path/filepath"
	"sync"

	"github.com/analogdev/bladebit/internal/phase3"
)

// Store is the disk-backed implementation of phase3.Store: every bucket read
// or write it performs is routed through a single Queue (spec.md §5's "only
// party that issues syscalls"), and every logical file's name is composed
// from phase3.FileName, so no file path is hard-coded outside the registry.
type Store struct {
	root  string
	queue *Queue
	ring  *BufferRing

	mu    sync.Mutex
	files map[string]*BucketedFile
}

// NewStore creates a disk-backed Store rooted at dir, owning queue for the
// lifetime of the pipeline (the caller is responsible for queue.Close()).
// ring, if non-nil, is the loan-able IO buffer ring (spec.md §4.7) every
// bucket file this Store opens reads and writes through; pass nil to bypass
// it and read/write directly.
func NewStore(dir string, queue *Queue, ring *BufferRing) *Store {
	return &Store{root: dir, queue: queue, ring: ring, files: make(map[string]*BucketedFile)}
}

func (s *Store) file(id phase3.FileId, t phase3.TableId) (*BucketedFile, error) {
	name := phase3.FileName(id, t)
	s.mu.Lock()
	defer s.mu.Unlock()
	if f, ok := s.files[name]; ok {
		return f, nil
	}
	f, err := NewBucketedFile(s.queue, s.root, name, s.ring)
	if err != nil {
		return nil, err
	}
	s.files[name] = f
	return f, nil
}

func (s *Store) ReadMarked(ctx context.Context, t phase3.TableId) (*phase3.Bitfield, error) {
	path := filepath.Join(s.root, phase3.FileName(phase3.FileMarkedEntries, t))
	var data []byte
	err := s.queue.Submit(ctx, func() error {
		b, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		data = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	words := uint64sOfBytes(data)
	return phase3.WrapBitfield(words, len(words)*64), nil
}

func (s *Store) ReadLTableBucket(ctx context.Context, lt phase3.TableId, bucket int) ([]uint32, error) {
	// LInputFileId takes the r-table whose l-input is being resolved (lt+1);
	// the file itself, when it isn't the raw x file, is named after lt -- the
	// table that produced it as its own Step 3 output in the previous
	// iteration (spec.md §6: "lp_map_r ... is l_input_{r+1}").
	id := phase3.LInputFileId(lt + 1)
	f, err := s.file(id, lt)
	if err != nil {
		return nil, err
	}
	data, err := f.ReadFile(ctx, bucket)
	if err != nil {
		return nil, err
	}
	return append([]uint32(nil), uint32sOfBytes(data)...), nil
}

func (s *Store) ReadRBucket(ctx context.Context, rt phase3.TableId, bucket int) ([]uint32, []uint16, []uint32, error) {
	leftFile, err := s.file(phase3.FileBackPointerLeft, rt)
	if err != nil {
		return nil, nil, nil, err
	}
	rightFile, err := s.file(phase3.FileBackPointerRight, rt)
	if err != nil {
		return nil, nil, nil, err
	}
	mapFile, err := s.file(phase3.FileMap, rt)
	if err != nil {
		return nil, nil, nil, err
	}

	leftData, err := leftFile.ReadFile(ctx, bucket)
	if err != nil {
		return nil, nil, nil, err
	}
	rightData, err := rightFile.ReadFile(ctx, bucket)
	if err != nil {
		return nil, nil, nil, err
	}
	mapData, err := mapFile.ReadFile(ctx, bucket)
	if err != nil {
		return nil, nil, nil, err
	}

	left := append([]uint32(nil), uint32sOfBytes(leftData)...)
	right := append([]uint16(nil), uint16sOfBytes(rightData)...)
	rmap := append([]uint32(nil), uint32sOfBytes(mapData)...)
	if len(left) != len(right) || len(left) != len(rmap) {
		return nil, nil, nil, fmt.Errorf("diskio: r-bucket %d of table %s has mismatched lengths: left=%d right=%d map=%d: %w", bucket, rt, len(left), len(right), len(rmap), phase3.ErrConsistency)
	}
	return left, right, rmap, nil
}

func (s *Store) WriteLPBucket(ctx context.Context, rt phase3.TableId, lpBucket int, linePoints []uint64, keys []uint32) error {
	lpFile, err := s.file(phase3.FileLinePoints, rt)
	if err != nil {
		return err
	}
	keyFile, err := s.file(phase3.FileLinePointKeys, rt)
	if err != nil {
		return err
	}
	if err := lpFile.WriteBuckets(ctx, lpBucket, bytesOfUint64(linePoints)); err != nil {
		return err
	}
	return keyFile.WriteBuckets(ctx, lpBucket, bytesOfUint32(keys))
}

func (s *Store) ReadLPBucket(ctx context.Context, rt phase3.TableId, lpBucket int) ([]uint64, []uint32, error) {
	lpFile, err := s.file(phase3.FileLinePoints, rt)
	if err != nil {
		return nil, nil, err
	}
	keyFile, err := s.file(phase3.FileLinePointKeys, rt)
	if err != nil {
		return nil, nil, err
	}
	lpData, err := lpFile.ReadFile(ctx, lpBucket)
	if err != nil {
		return nil, nil, err
	}
	keyData, err := keyFile.ReadFile(ctx, lpBucket)
	if err != nil {
		return nil, nil, err
	}
	return append([]uint64(nil), uint64sOfBytes(lpData)...), append([]uint32(nil), uint32sOfBytes(keyData)...), nil
}

func (s *Store) WriteReverseMapBucket(ctx context.Context, rt phase3.TableId, partitionBucket int, records []uint64) error {
	f, err := s.file(phase3.FileLinePointMap, rt)
	if err != nil {
		return err
	}
	return f.WriteBuckets(ctx, partitionBucket, bytesOfUint64(records))
}

func (s *Store) ReadReverseMapBucket(ctx context.Context, rt phase3.TableId, partitionBucket int) ([]uint64, error) {
	f, err := s.file(phase3.FileLinePointMap, rt)
	if err != nil {
		return nil, err
	}
	data, err := f.ReadFile(ctx, partitionBucket)
	if err != nil {
		return nil, err
	}
	return append([]uint64(nil), uint64sOfBytes(data)...), nil
}

// WriteDenseMapBucket rewrites the reverse-map file in place with the dense
// unpacked result (spec.md §4.5: "rewrite as a single contiguous l-table map
// file"). On partitionBucket 0 the whole logical file is truncated first, so
// the write sequence for a table always starts clean.
func (s *Store) WriteDenseMapBucket(ctx context.Context, rt phase3.TableId, partitionBucket int, dense []uint32) error {
	f, err := s.file(phase3.FileLinePointMap, rt)
	if err != nil {
		return err
	}
	if partitionBucket == 0 {
		if err := f.Truncate(ctx); err != nil {
			return err
		}
	}
	return f.WriteBuckets(ctx, partitionBucket, bytesOfUint32(dense))
}

// WriteRBucket writes one partition bucket of a fresh r-table's back-pointer
// pairs and map. Phase 3 itself never calls this -- it is the write side a
// real Phase 2 (or, here, a synthetic fixture) uses to seed the inputs
// ReadRBucket later streams back.
func (s *Store) WriteRBucket(ctx context.Context, rt phase3.TableId, bucket int, left []uint32, right []uint16, rmap []uint32) error {
	leftFile, err := s.file(phase3.FileBackPointerLeft, rt)
	if err != nil {
		return err
	}
	rightFile, err := s.file(phase3.FileBackPointerRight, rt)
	if err != nil {
		return err
	}
	mapFile, err := s.file(phase3.FileMap, rt)
	if err != nil {
		return err
	}
	if err := leftFile.WriteBuckets(ctx, bucket, bytesOfUint32(left)); err != nil {
		return err
	}
	if err := rightFile.WriteBuckets(ctx, bucket, bytesOfUint16(right)); err != nil {
		return err
	}
	return mapFile.WriteBuckets(ctx, bucket, bytesOfUint32(rmap))
}

// WriteXBucket writes one partition bucket of table1's raw x values, the
// l-input every table2 iteration reads via ReadLTableBucket.
func (s *Store) WriteXBucket(ctx context.Context, bucket int, values []uint32) error {
	f, err := s.file(phase3.FileX, phase3.Table1)
	if err != nil {
		return err
	}
	return f.WriteBuckets(ctx, bucket, bytesOfUint32(values))
}

// WriteMarked writes the full marked-entries bitmap for table t.
func (s *Store) WriteMarked(ctx context.Context, t phase3.TableId, marked *phase3.Bitfield) error {
	path := filepath.Join(s.root, phase3.FileName(phase3.FileMarkedEntries, t))
	return s.queue.Submit(ctx, func() error {
		return os.WriteFile(path, bytesOfUint64(marked.Words()), 0o644)
	})
}

var _ phase3.Store = (*Store)(nil)
