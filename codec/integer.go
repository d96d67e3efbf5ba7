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

// IntegerFilter implements the `integer` builtin: it consumes exactly
// len(in) bytes and produces an integer with the declared endianness and
// signedness (spec.md §4.3). Defaults: big-endian, signed.
type IntegerFilter struct{}

func (IntegerFilter) Name() string { return "integer" }

func (IntegerFilter) Apply(in []byte, attrs map[string]schema.AttrValue) (value.Value, int64, error) {
	if len(in) == 0 {
		return value.Value{}, 0, errf("integer filter requires at least one input byte")
	}
	signed := true
	if a, ok := attrs["signed"]; ok {
		if a.Kind != schema.AttrBool {
			return value.Value{}, 0, errf("@signed must be a boolean")
		}
		signed = a.Bool
	}
	little := false
	if a, ok := attrs["endian"]; ok {
		if a.Kind != schema.AttrString {
			return value.Value{}, 0, errf("@endian must be a string")
		}
		switch a.Str {
		case "little":
			little = true
		case "big":
			little = false
		default:
			return value.Value{}, 0, errf("@endian must be 'little' or 'big', got %q", a.Str)
		}
	}

	d := new(apd.Decimal)
	d.SetInt64(0)
	base := new(apd.Decimal)
	base.SetInt64(256)
	ctx := apd.BaseContext.WithPrecision(200)

	order := make([]byte, len(in))
	copy(order, in)
	if little {
		for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
			order[i], order[j] = order[j], order[i]
		}
	}
	for _, b := range order {
		if _, err := ctx.Mul(d, d, base); err != nil {
			return value.Value{}, 0, err
		}
		bd := new(apd.Decimal)
		bd.SetInt64(int64(b))
		if _, err := ctx.Add(d, d, bd); err != nil {
			return value.Value{}, 0, err
		}
	}

	if signed && len(order) > 0 && order[0]&0x80 != 0 {
		full := new(apd.Decimal)
		one := new(apd.Decimal)
		one.SetInt64(1)
		exp := new(apd.Decimal)
		exp.SetInt64(8 * int64(len(order)))
		two := new(apd.Decimal)
		two.SetInt64(2)
		if _, err := ctx.Pow(full, two, exp); err != nil {
			return value.Value{}, 0, err
		}
		if _, err := ctx.Sub(d, d, full); err != nil {
			return value.Value{}, 0, err
		}
	}

	return value.OfDecimal(d), int64(len(in)), nil
}
