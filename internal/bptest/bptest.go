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

// Package bptest is a small golden-file test harness for end-to-end
// spec+data+expression cases, grounded on the teacher's internal/cuetxtar:
// each case lives in one txtar archive rather than three separate files, so
// a reviewer sees the format, the bytes, and the expected decode together.
//
// A case file has a "spec" section (source text for parser.ParseFile), a
// "data" section (a hex dump in the convention parseHex reads: whitespace-
// separated hex byte pairs, with double-quoted runs of ASCII folded in as
// their literal bytes, so "48 65 "llo"" decodes to 'H' 'e' 'l' 'l' 'o'), and any
// number of "eval/<name>" sections, each holding an expression on its first
// line and the expected textual result on the remaining lines.
package bptest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"testing"

	"github.com/google/uuid"
	"golang.org/x/tools/txtar"

	"github.com/leanderhang/bitpunch/bitio"
	"github.com/leanderhang/bitpunch/bp/parser"
	"github.com/leanderhang/bitpunch/codec"
	"github.com/leanderhang/bitpunch/codec/external"
	"github.com/leanderhang/bitpunch/codec/snappy"
	"github.com/leanderhang/bitpunch/internal/compile"
	"github.com/leanderhang/bitpunch/schema"
	"github.com/leanderhang/bitpunch/tree"
)

// Case is one parsed .bp golden file.
type Case struct {
	// ID is a case-run-unique identifier, a random UUID assigned each time
	// the case is loaded (not derived from the file name), used to disambiguate case output in -v logs when several
	// testdata directories share a base name.
	ID uuid.UUID

	Name    string
	Spec    string
	Data    []byte
	Evals   []EvalCase
	Archive *txtar.Archive
}

// EvalCase is one "eval/<name>" section: an expression and the textual
// result (via fmt.Sprint) it is expected to produce against the case's
// decoded root.
type EvalCase struct {
	Name     string
	Expr     string
	Expected string
}

// Load reads and parses every *.bp file directly inside dir (no recursion:
// golden cases are grouped by directory name, not nested).
func Load(t *testing.T, dir string) []*Case {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("bptest: reading %s: %v", dir, err)
	}
	var cases []*Case
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".bp" {
			continue
		}
		path := filepath.Join(dir, e.Name())
		c, err := loadFile(path)
		if err != nil {
			t.Fatalf("bptest: %s: %v", path, err)
		}
		cases = append(cases, c)
	}
	sort.Slice(cases, func(i, j int) bool { return cases[i].Name < cases[j].Name })
	return cases
}

func loadFile(path string) (*Case, error) {
	a, err := txtar.ParseFile(path)
	if err != nil {
		return nil, err
	}
	c := &Case{
		ID:      uuid.New(),
		Name:    strings.TrimSuffix(filepath.Base(path), ".bp"),
		Archive: a,
	}
	for _, f := range a.Files {
		switch {
		case f.Name == "spec":
			c.Spec = string(f.Data)
		case f.Name == "data":
			data, err := parseHex(string(f.Data))
			if err != nil {
				return nil, fmt.Errorf("data section: %w", err)
			}
			c.Data = data
		case strings.HasPrefix(f.Name, "eval/"):
			name := strings.TrimPrefix(f.Name, "eval/")
			expr, expected, ok := strings.Cut(string(f.Data), "\n")
			if !ok {
				return nil, fmt.Errorf("eval section %q: expected an expression line followed by the expected result", f.Name)
			}
			c.Evals = append(c.Evals, EvalCase{
				Name:     name,
				Expr:     strings.TrimSpace(expr),
				Expected: strings.TrimRight(expected, "\n"),
			})
		default:
			return nil, fmt.Errorf("unrecognized section %q", f.Name)
		}
	}
	if c.Spec == "" {
		return nil, fmt.Errorf("missing \"spec\" section")
	}
	return c, nil
}

// Open compiles c.Spec and overlays it onto c.Data, returning the root data
// tree. reg defaults to codec.Default() with snappy and external filters
// registered; pass a custom registry to test filter error paths.
func (c *Case) Open(reg *codec.Registry) (*tree.Node, *schema.Schema, error) {
	if reg == nil {
		reg = codec.Default()
		reg.Register(snappy.Filter{})
		reg.Register(external.Filter{})
	}
	f, err := parser.ParseFile(c.Name+".bp", []byte(c.Spec))
	if err != nil {
		return nil, nil, err
	}
	sc, err := compile.Compile(f)
	if err != nil {
		return nil, nil, err
	}
	root, err := tree.Open(bitio.NewBytes(c.Data), sc, reg)
	if err != nil {
		return nil, nil, err
	}
	return root, sc, nil
}

// Run decodes c and checks every eval/<name> section against root.Eval,
// reporting one t.Run subtest per section.
func (c *Case) Run(t *testing.T) {
	t.Helper()
	root, _, err := c.Open(nil)
	if err != nil {
		t.Fatalf("case %s [%s]: opening: %v", c.Name, c.ID, err)
	}
	for _, ec := range c.Evals {
		ec := ec
		t.Run(ec.Name, func(t *testing.T) {
			got, err := root.Eval(ec.Expr)
			if err != nil {
				if strings.HasPrefix(ec.Expected, "error:") {
					wantSub := strings.TrimSpace(strings.TrimPrefix(ec.Expected, "error:"))
					if !strings.Contains(err.Error(), wantSub) {
						t.Fatalf("expr %q: got error %q, want one containing %q", ec.Expr, err.Error(), wantSub)
					}
					return
				}
				t.Fatalf("expr %q: %v", ec.Expr, err)
			}
			if strings.HasPrefix(ec.Expected, "error:") {
				t.Fatalf("expr %q: expected an error, got %v", ec.Expr, got)
			}
			gotText := fmt.Sprint(got)
			if gotText != ec.Expected {
				t.Fatalf("expr %q:\n got:  %s\n want: %s", ec.Expr, gotText, ec.Expected)
			}
		})
	}
}

// parseHex reads a hex dump of the convention documented in the package
// comment: whitespace-separated hex byte pairs, with double-quoted ASCII
// runs contributing their literal bytes. '#' begins a line comment.
func parseHex(s string) ([]byte, error) {
	var out []byte
	for _, line := range strings.Split(s, "\n") {
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		for len(line) > 0 {
			line = strings.TrimLeft(line, " \t")
			if line == "" {
				break
			}
			if line[0] == '"' {
				end := strings.IndexByte(line[1:], '"')
				if end < 0 {
					return nil, fmt.Errorf("unterminated quoted string in %q", line)
				}
				out = append(out, []byte(line[1:1+end])...)
				line = line[1+end+1:]
				continue
			}
			tok := line
			if i := strings.IndexAny(tok, " \t"); i >= 0 {
				tok = tok[:i]
			}
			b, err := strconv.ParseUint(tok, 16, 8)
			if err != nil {
				return nil, fmt.Errorf("invalid hex byte %q: %w", tok, err)
			}
			out = append(out, byte(b))
			line = line[len(tok):]
		}
	}
	return out, nil
}
