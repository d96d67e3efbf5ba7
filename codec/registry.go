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

// Package codec implements the filter registry (component C5) and the
// built-in filter contracts the kernel ships with (component C13):
// integer, varint, and string. Codecs that need a third-party library or
// filesystem access (snappy's decompressor, the external-file filter) live in
// their own sub-packages so that this package — and by extension anything
// that only needs the kernel's pure byte-to-byte/value transforms — carries
// no such dependency.
package codec

import (
	"fmt"

	"github.com/leanderhang/bitpunch/schema"
	"github.com/leanderhang/bitpunch/value"
)

// Filter is the contract every named transformation in the registry must
// satisfy: it consumes a prefix of in and produces either further bytes (to
// feed the next stage of an overlay chain) or a scalar value.
type Filter interface {
	// Name is the identifier this filter is registered and invoked under.
	Name() string
	// Apply transforms in (honoring attrs, the filter's folded schema
	// attributes) into a value and reports how many leading bytes of in it
	// consumed. Consumed may be less than len(in) for variable-length
	// filters such as varint.
	Apply(in []byte, attrs map[string]schema.AttrValue) (out value.Value, consumed int64, err error)
}

// Registry maps filter names to implementations.
type Registry struct {
	filters map[string]Filter
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{filters: map[string]Filter{}}
}

// Register adds or replaces the filter under its own Name().
func (r *Registry) Register(f Filter) {
	r.filters[f.Name()] = f
}

// Lookup returns the filter registered under name, if any.
func (r *Registry) Lookup(name string) (Filter, bool) {
	f, ok := r.filters[name]
	return f, ok
}

// Default returns a new registry pre-populated with the kernel's built-in,
// dependency-free filters: integer, varint, and string. Callers that need
// snappy or external-file support register those from their own packages
// (codec/snappy, codec/external) via Register.
func Default() *Registry {
	r := NewRegistry()
	r.Register(IntegerFilter{})
	r.Register(VarintFilter{})
	r.Register(StringFilter{})
	return r
}

// errf is a small helper shared by the built-in filters below.
func errf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}
