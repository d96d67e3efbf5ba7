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

// Package external registers the `external` filter: its input is not bytes
// from the tree being decoded but a path naming another file on disk, read
// in full and handed to the rest of the overlay chain (e.g.
// `path <> external <> Contents`). File I/O is explicitly out of the
// kernel's scope (spec.md §1 Non-goals), which is why this filter lives in
// its own package rather than package codec: nothing in the kernel or its
// tests imports it, and callers opt in the same way as codec/snappy.
package external

import (
	"os"
	"path/filepath"

	"github.com/leanderhang/bitpunch/schema"
	"github.com/leanderhang/bitpunch/value"
)

// Filter reads the file named by its input (interpreted as a UTF-8 path,
// resolved relative to Base) and yields that file's bytes.
type Filter struct {
	// Base is the directory external paths are resolved relative to. An
	// empty Base resolves paths relative to the process's working directory.
	Base string
}

func (Filter) Name() string { return "external" }

func (f Filter) Apply(in []byte, _ map[string]schema.AttrValue) (value.Value, int64, error) {
	path := string(in)
	if f.Base != "" && !filepath.IsAbs(path) {
		path = filepath.Join(f.Base, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return value.Value{}, 0, err
	}
	return value.OfBytes(data), int64(len(in)), nil
}
