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

package codec

import (
	"testing"

	"github.com/go-quicktest/qt"

	"github.com/leanderhang/bitpunch/schema"
)

func TestIntegerFilterBigEndianUnsigned(t *testing.T) {
	v, consumed, err := IntegerFilter{}.Apply([]byte{0x01, 0x02}, map[string]schema.AttrValue{
		"signed": {Kind: schema.AttrBool, Bool: false},
	})
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(consumed, int64(2)))
	n, err := v.Int64()
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(n, int64(0x0102)))
}

func TestIntegerFilterLittleEndian(t *testing.T) {
	v, _, err := IntegerFilter{}.Apply([]byte{0x01, 0x02}, map[string]schema.AttrValue{
		"signed": {Kind: schema.AttrBool, Bool: false},
		"endian": {Kind: schema.AttrString, Str: "little"},
	})
	qt.Assert(t, qt.IsNil(err))
	n, err := v.Int64()
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(n, int64(0x0201)))
}

func TestIntegerFilterSignedNegative(t *testing.T) {
	v, _, err := IntegerFilter{}.Apply([]byte{0xFF}, nil)
	qt.Assert(t, qt.IsNil(err))
	n, err := v.Int64()
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(n, int64(-1)))
}

func TestIntegerFilterDefaultsSignedBigEndian(t *testing.T) {
	v, _, err := IntegerFilter{}.Apply([]byte{0x7F}, nil)
	qt.Assert(t, qt.IsNil(err))
	n, err := v.Int64()
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(n, int64(127)))
}

func TestIntegerFilterEmptyInputIsError(t *testing.T) {
	_, _, err := IntegerFilter{}.Apply(nil, nil)
	qt.Assert(t, qt.Not(qt.IsNil(err)))
}

func TestIntegerFilterBadEndianIsError(t *testing.T) {
	_, _, err := IntegerFilter{}.Apply([]byte{0x01}, map[string]schema.AttrValue{
		"endian": {Kind: schema.AttrString, Str: "middle"},
	})
	qt.Assert(t, qt.Not(qt.IsNil(err)))
}
