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

package snappy

import (
	"testing"

	"github.com/go-quicktest/qt"
)

// rawLiteralBlock encodes payload as a single raw-Snappy-format literal run:
// a varint-encoded uncompressed length, then one tag byte ((len-1)<<2) for
// runs of 60 bytes or fewer, followed by the literal bytes themselves.
func rawLiteralBlock(payload []byte) []byte {
	var out []byte
	n := len(payload)
	for n >= 0x80 {
		out = append(out, byte(n&0x7f)|0x80)
		n >>= 7
	}
	out = append(out, byte(n))
	out = append(out, byte((len(payload)-1)<<2))
	out = append(out, payload...)
	return out
}

func TestSnappyFilterDecodesLiteralBlock(t *testing.T) {
	payload := []byte{0, 0, 0, 1, 0, 0, 0, 2, 0, 0, 0, 3}
	block := rawLiteralBlock(payload)
	v, consumed, err := Filter{}.Apply(block, nil)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(consumed, int64(len(block))))
	qt.Assert(t, qt.DeepEquals(v.Raw, payload))
}

func TestSnappyFilterRejectsGarbage(t *testing.T) {
	_, _, err := Filter{}.Apply([]byte{0xFF, 0xFF, 0xFF}, nil)
	qt.Assert(t, qt.Not(qt.IsNil(err)))
}

func TestSnappyFilterName(t *testing.T) {
	qt.Assert(t, qt.Equals(Filter{}.Name(), "snappy"))
}
