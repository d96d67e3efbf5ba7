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

// Package snappy registers the `snappy` filter, a decompressing overlay
// (spec.md §4.3's "the right-hand side of `<>` need not be a pure
// relabeling"). It is kept out of package codec so that the kernel's
// dependency-free filters do not pull in a compression library merely to be
// registered; callers that want snappy support opt in explicitly:
//
//	reg := codec.Default()
//	reg.Register(snappy.Filter{})
package snappy

import (
	kpsnappy "github.com/klauspost/compress/snappy"

	"github.com/leanderhang/bitpunch/schema"
	"github.com/leanderhang/bitpunch/value"
)

// Filter decompresses its entire input as a single snappy block and yields
// the decompressed bytes, to be further overlaid by a nested schema or
// filter (e.g. `raw <> snappy <> Contents`).
type Filter struct{}

func (Filter) Name() string { return "snappy" }

func (Filter) Apply(in []byte, _ map[string]schema.AttrValue) (value.Value, int64, error) {
	out, err := kpsnappy.Decode(nil, in)
	if err != nil {
		return value.Value{}, 0, err
	}
	return value.OfBytes(out), int64(len(in)), nil
}
