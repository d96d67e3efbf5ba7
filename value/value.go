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

// Package value defines the scalar values that filters (package codec) and
// the expression evaluator (package tree) produce: bytes, arbitrary-size
// integers, and decoded strings.
//
// Integers are represented with apd.Decimal rather than int64, the way the
// teacher's own public value type (cue/value.go) represents CUE numbers:
// a spec can declare an integer field wider than 64 bits (the varint filter
// contract alone allows up to 10 continuation bytes, roughly 70 bits), and
// silently truncating it would turn a data error into a wrong answer
// instead of a decode error.
package value

import (
	"fmt"

	"github.com/cockroachdb/apd/v3"
)

// Kind discriminates the scalar shape of a Value.
type Kind int

const (
	Bytes Kind = iota
	Integer
	String
)

func (k Kind) String() string {
	switch k {
	case Bytes:
		return "bytes"
	case Integer:
		return "integer"
	case String:
		return "string"
	default:
		return "unknown"
	}
}

// Value is a tagged scalar produced by a filter or an expression.
type Value struct {
	Kind    Kind
	Raw     []byte
	Int     *apd.Decimal
	Str     string
}

// OfBytes wraps a raw byte slice.
func OfBytes(b []byte) Value { return Value{Kind: Bytes, Raw: b} }

// OfString wraps a decoded string.
func OfString(s string) Value { return Value{Kind: String, Str: s} }

// OfInt64 wraps a machine integer.
func OfInt64(n int64) Value {
	d := new(apd.Decimal)
	d.SetInt64(n)
	return Value{Kind: Integer, Int: d}
}

// OfDecimal wraps an already-computed decimal integer value.
func OfDecimal(d *apd.Decimal) Value { return Value{Kind: Integer, Int: d} }

// Int64 returns v as an int64, for callers (array lengths, indices) that
// need a machine integer. It errors if v is not an Integer or does not fit.
func (v Value) Int64() (int64, error) {
	if v.Kind != Integer {
		return 0, fmt.Errorf("value is %s, not integer", v.Kind)
	}
	n, err := v.Int.Int64()
	if err != nil {
		return 0, fmt.Errorf("integer value does not fit in 64 bits: %w", err)
	}
	return n, nil
}

func (v Value) String() string {
	switch v.Kind {
	case Bytes:
		return fmt.Sprintf("%x", v.Raw)
	case Integer:
		return v.Int.String()
	case String:
		return v.Str
	default:
		return "<invalid value>"
	}
}

// Equal reports whether two values have the same kind and content.
func Equal(a, b Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case Bytes:
		if len(a.Raw) != len(b.Raw) {
			return false
		}
		for i := range a.Raw {
			if a.Raw[i] != b.Raw[i] {
				return false
			}
		}
		return true
	case Integer:
		return a.Int.Cmp(b.Int) == 0
	case String:
		return a.Str == b.Str
	}
	return false
}
