// Copyright 2026 The bitpunch Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package bitio defines the abstract byte source the kernel overlays a
// schema onto (component C1). File I/O and memory mapping are explicitly
// out of kernel scope (spec.md §1); this package only defines the
// interface a concrete byte provider must satisfy, plus a simple in-memory
// implementation used throughout the kernel's own tests.
package bitio

import "fmt"

// Source is a randomly addressable, bounded range of bytes. The kernel
// assumes reads complete in bounded time with no I/O suspension (spec.md
// §5): a Source is expected to be fully buffered or memory-mapped by its
// provider.
type Source interface {
	// Len returns the number of bytes in the range.
	Len() int64
	// ReadAt copies min(len(p), Len()-off) bytes starting at off into p and
	// returns how many bytes were copied. off must be within [0, Len()];
	// reading at off == Len() returns 0 bytes and no error.
	ReadAt(p []byte, off int64) (int, error)
	// Slice returns a new Source over the sub-range [off, off+length) of
	// this one. It is an error for the sub-range to extend past Len().
	Slice(off, length int64) (Source, error)
}

// ErrOutOfRange is returned by Slice and ReadAt when the requested range
// falls outside the source.
type ErrOutOfRange struct {
	Off, Length, SourceLen int64
}

func (e *ErrOutOfRange) Error() string {
	return fmt.Sprintf("range [%d, %d) out of bounds for source of length %d", e.Off, e.Off+e.Length, e.SourceLen)
}

// memSource is the in-memory Source implementation: a plain byte slice.
type memSource struct {
	data []byte
}

// NewBytes wraps a byte slice as a Source. The slice is not copied; callers
// must not mutate it while any Source or data tree referencing it is live.
func NewBytes(data []byte) Source {
	return &memSource{data: data}
}

func (s *memSource) Len() int64 { return int64(len(s.data)) }

func (s *memSource) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off > s.Len() {
		return 0, &ErrOutOfRange{Off: off, Length: int64(len(p)), SourceLen: s.Len()}
	}
	n := copy(p, s.data[off:])
	return n, nil
}

func (s *memSource) Slice(off, length int64) (Source, error) {
	if off < 0 || length < 0 || off+length > s.Len() {
		return nil, &ErrOutOfRange{Off: off, Length: length, SourceLen: s.Len()}
	}
	return &memSource{data: s.data[off : off+length]}, nil
}

// ReadAll reads the full contents of src into a freshly allocated slice.
func ReadAll(src Source) ([]byte, error) {
	buf := make([]byte, src.Len())
	n, err := src.ReadAt(buf, 0)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}
