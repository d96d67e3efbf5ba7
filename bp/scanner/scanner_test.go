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

package scanner

import (
	"testing"

	"github.com/go-quicktest/qt"
	"github.com/google/go-cmp/cmp"

	"github.com/leanderhang/bitpunch/bp/token"
)

type tok struct {
	tok token.Token
	lit string
}

func scanAll(t *testing.T, src string) []tok {
	t.Helper()
	f := token.NewFile("test", 0, len(src))
	var s Scanner
	s.Init(f, []byte(src), func(offset int, msg string) {
		t.Fatalf("unexpected scan error at %d: %s", offset, msg)
	})
	var got []tok
	for {
		_, tk, lit := s.Scan()
		got = append(got, tok{tk, lit})
		if tk == token.EOF {
			return got
		}
	}
}

func TestScanKeywordsAndIdents(t *testing.T) {
	got := scanAll(t, "let file struct integer if byte head_blocks")
	want := []tok{
		{token.LET, "let"},
		{token.FILE, "file"},
		{token.STRUCT, "struct"},
		{token.INTEGER, "integer"},
		{token.IF, "if"},
		{token.BYTE, "byte"},
		{token.IDENT, "head_blocks"},
		{token.EOF, ""},
	}
	if diff := cmp.Diff(want, got, cmp.AllowUnexported(tok{})); diff != "" {
		t.Fatalf("scan mismatch (-want +got):\n%s", diff)
	}
}

func TestScanIntegerLiterals(t *testing.T) {
	got := scanAll(t, "0 123 017 0x1F 0X2a")
	want := []tok{
		{token.INT, "0"},
		{token.INT, "123"},
		{token.INT, "017"},
		{token.INT, "0x1F"},
		{token.INT, "0X2a"},
		{token.EOF, ""},
	}
	qt.Assert(t, qt.DeepEquals(got, want))
}

func TestScanStringLiterals(t *testing.T) {
	got := scanAll(t, `"abc" 'def' "a\"b"`)
	want := []tok{
		{token.STRING, `"abc"`},
		{token.STRING, `'def'`},
		{token.STRING, `"a\"b"`},
		{token.EOF, ""},
	}
	qt.Assert(t, qt.DeepEquals(got, want))
}

func TestScanOperatorsAndSigils(t *testing.T) {
	got := scanAll(t, "<> @ ? .. . : ; == != <= >= < >")
	want := []tok{
		{token.OVERLAY, ""},
		{token.AT, ""},
		{token.QUESTION, ""},
		{token.ELLIPSIS, ""},
		{token.PERIOD, ""},
		{token.COLON, ""},
		{token.SEMICOLON, ""},
		{token.EQL, ""},
		{token.NEQ, ""},
		{token.LEQ, ""},
		{token.GEQ, ""},
		{token.LSS, ""},
		{token.GTR, ""},
		{token.EOF, ""},
	}
	qt.Assert(t, qt.DeepEquals(got, want))
}

func TestScanComments(t *testing.T) {
	got := scanAll(t, "a // comment\nb /* block\ncomment */ c")
	want := []tok{
		{token.IDENT, "a"},
		{token.IDENT, "b"},
		{token.IDENT, "c"},
		{token.EOF, ""},
	}
	qt.Assert(t, qt.DeepEquals(got, want))
}

func TestScanUnterminatedStringReportsError(t *testing.T) {
	f := token.NewFile("test", 0, 5)
	var s Scanner
	var errs int
	s.Init(f, []byte(`"abc`), func(offset int, msg string) { errs++ })
	for {
		_, tk, _ := s.Scan()
		if tk == token.EOF {
			break
		}
	}
	qt.Assert(t, qt.Equals(errs, 1))
}
