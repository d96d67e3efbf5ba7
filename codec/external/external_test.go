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

package external

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-quicktest/qt"
)

func TestExternalFilterReadsRelativeToBase(t *testing.T) {
	dir := t.TempDir()
	err := os.WriteFile(filepath.Join(dir, "payload.bin"), []byte("hello world"), 0o644)
	qt.Assert(t, qt.IsNil(err))

	f := Filter{Base: dir}
	v, consumed, err := f.Apply([]byte("payload.bin"), nil)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(consumed, int64(len("payload.bin"))))
	qt.Assert(t, qt.DeepEquals(v.Raw, []byte("hello world")))
}

func TestExternalFilterAbsolutePathIgnoresBase(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "abs.bin")
	err := os.WriteFile(path, []byte("abs"), 0o644)
	qt.Assert(t, qt.IsNil(err))

	f := Filter{Base: "/does/not/exist"}
	v, _, err := f.Apply([]byte(path), nil)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.DeepEquals(v.Raw, []byte("abs")))
}

func TestExternalFilterMissingFileIsError(t *testing.T) {
	f := Filter{Base: t.TempDir()}
	_, _, err := f.Apply([]byte("nope.bin"), nil)
	qt.Assert(t, qt.Not(qt.IsNil(err)))
}
