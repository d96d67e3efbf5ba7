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
	"github.com/cockroachdb/apd/v3"

	"github.com/leanderhang/bitpunch/schema"
	"github.com/leanderhang/bitpunch/value"
)

// maxVarintBytes bounds how many continuation bytes VarintFilter reads
// before declaring the stream malformed (spec.md §4.3: "fails if more than
// 10 bytes without terminator").
const maxVarintBytes = 10

// VarintFilter implements the `varint` builtin: a 7-bit-continuation
// encoded non-negative integer of variable length. Unlike IntegerFilter, it
// may consume fewer bytes than len(in).
type VarintFilter struct{}

func (VarintFilter) Name() string { return "varint" }

func (VarintFilter) Apply(in []byte, _ map[string]schema.AttrValue) (value.Value, int64, error) {
	d := apdInt(0)
	shift := apdInt(1)
	weight := apdInt(128) // 2^7, the per-byte place value
	ctx := apd.BaseContext.WithPrecision(200)

	for i := 0; ; i++ {
		if i >= maxVarintBytes {
			return value.Value{}, 0, errf("varint exceeds %d bytes without a terminating byte", maxVarintBytes)
		}
		if i >= len(in) {
			return value.Value{}, 0, errf("varint truncated: ran out of input after %d bytes", i)
		}
		b := in[i]

		part := apdInt(int64(b & 0x7f))
		if _, err := ctx.Mul(part, part, shift); err != nil {
			return value.Value{}, 0, err
		}
		if _, err := ctx.Add(d, d, part); err != nil {
			return value.Value{}, 0, err
		}
		if b&0x80 == 0 {
			return value.OfDecimal(d), int64(i + 1), nil
		}
		if _, err := ctx.Mul(shift, shift, weight); err != nil {
			return value.Value{}, 0, err
		}
	}
}

func apdInt(n int64) *apd.Decimal {
	d := new(apd.Decimal)
	d.SetInt64(n)
	return d
}
