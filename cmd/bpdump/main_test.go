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

package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-quicktest/qt"
)

const pairSpecSrc = `
file {
	a: [1]byte <> integer { @signed: false; };
	b: [1]byte <> integer { @signed: false; };
}
`

func withCapturedStdout(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	qt.Assert(t, qt.IsNil(err))
	os.Stdout = w
	defer func() { os.Stdout = old }()

	fn()

	qt.Assert(t, qt.IsNil(w.Close()))
	var buf bytes.Buffer
	_, err = io.Copy(&buf, r)
	qt.Assert(t, qt.IsNil(err))
	return buf.String()
}

func writeTemp(t *testing.T, name string, data []byte) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	qt.Assert(t, qt.IsNil(os.WriteFile(path, data, 0o644)))
	return path
}

func TestRunPrintsFieldNamesByDefault(t *testing.T) {
	specPath := writeTemp(t, "spec.bp", []byte(pairSpecSrc))
	dataPath := writeTemp(t, "data.bin", []byte{1, 2})

	out := withCapturedStdout(t, func() {
		err := run(specPath, dataPath, "", "text")
		qt.Assert(t, qt.IsNil(err))
	})
	qt.Assert(t, qt.Equals(out, "a\nb\n"))
}

func TestRunEvaluatesExpr(t *testing.T) {
	specPath := writeTemp(t, "spec.bp", []byte(pairSpecSrc))
	dataPath := writeTemp(t, "data.bin", []byte{1, 2})

	out := withCapturedStdout(t, func() {
		err := run(specPath, dataPath, "a + b", "text")
		qt.Assert(t, qt.IsNil(err))
	})
	qt.Assert(t, qt.Equals(strings.TrimSpace(out), "3"))
}

func TestRunMissingSpecFileIsError(t *testing.T) {
	dataPath := writeTemp(t, "data.bin", []byte{1, 2})
	err := run(filepath.Join(t.TempDir(), "missing.bp"), dataPath, "", "text")
	qt.Assert(t, qt.Not(qt.IsNil(err)))
}

func TestRunInvalidSpecIsError(t *testing.T) {
	specPath := writeTemp(t, "spec.bp", []byte("not a valid spec"))
	dataPath := writeTemp(t, "data.bin", []byte{1, 2})
	err := run(specPath, dataPath, "", "text")
	qt.Assert(t, qt.Not(qt.IsNil(err)))
}
