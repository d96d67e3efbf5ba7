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

package compile

import (
	"testing"

	"github.com/go-quicktest/qt"

	"github.com/leanderhang/bitpunch/bp/parser"
	"github.com/leanderhang/bitpunch/schema"
)

func compileSrc(t *testing.T, src string) (*schema.Schema, error) {
	t.Helper()
	f, err := parser.ParseFile("t.bp", []byte(src))
	qt.Assert(t, qt.IsNil(err))
	return Compile(f)
}

func TestCompileSimpleStruct(t *testing.T) {
	sc, err := compileSrc(t, `
let Header = struct {
	@span: 4;
	magic: [4]byte;
};
file {
	header: Header;
	rest: [] byte;
}
`)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(sc.Root.Kind, schema.KindStruct))
	qt.Assert(t, qt.Equals(len(sc.Root.Fields()), 2))
	hdr := sc.Named["Header"]
	qt.Assert(t, qt.Equals(hdr.Kind, schema.KindStruct))
	qt.Assert(t, qt.Equals(*hdr.Span, int64(4)))
}

func TestCompileIntegerFieldRequiresSize(t *testing.T) {
	_, err := compileSrc(t, `
file {
	v: integer { @signed: false; };
}
`)
	qt.Assert(t, qt.Not(qt.IsNil(err)))
}

func TestCompileIntegerFieldWithSizeOK(t *testing.T) {
	sc, err := compileSrc(t, `
file {
	v: integer { @signed: false; @size: 4; };
}
`)
	qt.Assert(t, qt.IsNil(err))
	v := sc.Root.Fields()[0].Type
	qt.Assert(t, qt.Equals(v.Kind, schema.KindFiltered))
	qt.Assert(t, qt.IsNotNil(v.FilterInner))
	qt.Assert(t, qt.Equals(v.FilterInner.Kind, schema.KindBytes))
	qt.Assert(t, qt.Equals(v.Filter.Name, "integer"))
}

func TestCompileOverlayFilterChain(t *testing.T) {
	sc, err := compileSrc(t, `
let DataBlock = struct {
	@span: 12;
	a: [4]byte <> integer { @signed: false; };
	b: [4]byte <> integer { @signed: false; };
	c: [4]byte <> integer { @signed: false; };
};
file {
	block: [] byte <> snappy <> DataBlock;
}
`)
	qt.Assert(t, qt.IsNil(err))
	field := sc.Root.Fields()[0].Type
	qt.Assert(t, qt.Equals(field.Kind, schema.KindFiltered))
	qt.Assert(t, qt.Equals(field.Filter.Name, "overlay"))
	qt.Assert(t, qt.IsNotNil(field.Filter.Overlay))
	qt.Assert(t, qt.Equals(field.Filter.Overlay.Name, "DataBlock"))
	inner := field.FilterInner
	qt.Assert(t, qt.Equals(inner.Kind, schema.KindFiltered))
	qt.Assert(t, qt.Equals(inner.Filter.Name, "snappy"))
	qt.Assert(t, qt.Equals(inner.FilterInner.Kind, schema.KindBytes))
	qt.Assert(t, qt.IsTrue(inner.FilterInner.Greedy))
}

func TestCompileDuplicateFieldIsError(t *testing.T) {
	_, err := compileSrc(t, `
file {
	a: [1]byte;
	a: [2]byte;
}
`)
	qt.Assert(t, qt.Not(qt.IsNil(err)))
}

func TestCompileUndefinedReferenceIsError(t *testing.T) {
	_, err := compileSrc(t, `
file {
	a: DoesNotExist;
}
`)
	qt.Assert(t, qt.Not(qt.IsNil(err)))
}

func TestCompileSpanBudgetExceeded(t *testing.T) {
	_, err := compileSrc(t, `
file {
	@span: 2;
	a: [4]byte;
}
`)
	qt.Assert(t, qt.Not(qt.IsNil(err)))
}

func TestCompileIllegalUnboundedRecursion(t *testing.T) {
	_, err := compileSrc(t, `
let Node = struct {
	child: Node;
};
file {
	root: Node;
}
`)
	qt.Assert(t, qt.Not(qt.IsNil(err)))
}

func TestCompileBoundedRecursionOK(t *testing.T) {
	_, err := compileSrc(t, `
let Node = struct {
	@span: 4;
	tag: [4]byte;
};
let Tree = struct {
	node:     Node;
	count:    [1]byte <> integer { @signed: false; };
	children: [count] Tree;
};
file {
	root: Tree;
}
`)
	qt.Assert(t, qt.IsNil(err))
}

func TestCompileMinspanAttribute(t *testing.T) {
	sc, err := compileSrc(t, `
let Rec = struct {
	@minspan: 2;
	tag: [1]byte;
	value: [1]byte;
};
file {
	recs: [] Rec;
}
`)
	qt.Assert(t, qt.IsNil(err))
	rec := sc.Named["Rec"]
	qt.Assert(t, qt.IsNotNil(rec.MinSpan))
	qt.Assert(t, qt.Equals(*rec.MinSpan, int64(2)))
}
