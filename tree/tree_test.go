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

package tree_test

import (
	"testing"

	"github.com/go-quicktest/qt"

	"github.com/leanderhang/bitpunch/bitio"
	"github.com/leanderhang/bitpunch/bp/errors"
	"github.com/leanderhang/bitpunch/bp/parser"
	"github.com/leanderhang/bitpunch/codec"
	"github.com/leanderhang/bitpunch/internal/compile"
	"github.com/leanderhang/bitpunch/tree"
)

// logSpec is a scaled-down write-ahead-log format: fixed-size blocks of
// variable-length records (header fields drive the payload length, per
// rule 2 of the span resolver), a `@minspan` guard that stops a block's
// record array short of a trailer, and a final open-ended tail block.
const logSpec = `
let LogRecord = struct {
	@minspan: 7;
	checksum: [4]byte <> integer { @endian: "big"; @signed: false; };
	length:   [2]byte <> integer { @endian: "big"; @signed: false; };
	rtype:    [1]byte <> integer { @endian: "big"; @signed: false; };
	payload:  [length]byte;
};
let LogBlock = struct {
	@span: 21;
	records: [] LogRecord;
	trailer: [] byte;
};
let LogTailBlock = struct {
	records: [] LogRecord;
};
file {
	head_blocks: [] LogBlock;
	tail_block: LogTailBlock;
}
`

func openSpec(t *testing.T, src string, data []byte) *tree.Node {
	t.Helper()
	f, err := parser.ParseFile("t.bp", []byte(src))
	qt.Assert(t, qt.IsNil(err))
	sc, err := compile.Compile(f)
	qt.Assert(t, qt.IsNil(err))
	root, err := tree.Open(bitio.NewBytes(data), sc, codec.Default())
	qt.Assert(t, qt.IsNil(err))
	return root
}

func TestEmptyLog(t *testing.T) {
	root := openSpec(t, logSpec, nil)
	head, err := root.Field("head_blocks")
	qt.Assert(t, qt.IsNil(err))
	n, err := head.Len()
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(n, 0))

	tail, err := root.Field("tail_block")
	qt.Assert(t, qt.IsNil(err))
	recs, err := tail.Field("records")
	qt.Assert(t, qt.IsNil(err))
	n, err = recs.Len()
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(n, 0))

	sz, err := head.Size()
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(sz, int64(0)))

	_, err = recs.Index(0)
	qt.Assert(t, qt.Not(qt.IsNil(err)))
	qt.Assert(t, qt.IsTrue(errors.IsRange(err)))
}

func TestSmallLogAllInTailBlock(t *testing.T) {
	rec1 := []byte{0xAA, 0xBB, 0xCC, 0xDD, 0x00, 0x03, 0x01, 'a', 'b', 'c'}
	rec2 := []byte{0x11, 0x22, 0x33, 0x44, 0x00, 0x02, 0x02, 'x', 'y'}
	data := append(append([]byte{}, rec1...), rec2...)
	root := openSpec(t, logSpec, data)

	head, err := root.Field("head_blocks")
	qt.Assert(t, qt.IsNil(err))
	n, err := head.Len()
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(n, 0))

	tail, err := root.Field("tail_block")
	qt.Assert(t, qt.IsNil(err))
	recs, err := tail.Field("records")
	qt.Assert(t, qt.IsNil(err))
	n, err = recs.Len()
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(n, 2))

	r0, err := recs.Index(0)
	qt.Assert(t, qt.IsNil(err))
	cs, err := r0.Field("checksum")
	qt.Assert(t, qt.IsNil(err))
	v, err := cs.Value()
	qt.Assert(t, qt.IsNil(err))
	cv, err := v.Int64()
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(cv, int64(0xAABBCCDD)))

	lenField, err := r0.Field("length")
	qt.Assert(t, qt.IsNil(err))
	lv, err := lenField.Value()
	qt.Assert(t, qt.IsNil(err))
	lvi, err := lv.Int64()
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(lvi, int64(3)))

	rt, err := r0.Field("rtype")
	qt.Assert(t, qt.IsNil(err))
	rtv, err := rt.Value()
	qt.Assert(t, qt.IsNil(err))
	rti, err := rtv.Int64()
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(rti, int64(1)))

	sz0, err := r0.Size()
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(sz0, int64(len(rec1))))

	r1, err := recs.Index(1)
	qt.Assert(t, qt.IsNil(err))
	sz1, err := r1.Size()
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(sz1, int64(len(rec2))))

	tsz, err := tail.Size()
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(tsz, int64(len(data))))
}

func TestMultiBlockLogMinspanStopsShortOfTrailer(t *testing.T) {
	recA := []byte{0xDE, 0xAD, 0xBE, 0xEF, 0x00, 0x03, 0x01, 'G', 'o', '!'}
	recB := []byte{0xCA, 0xFE, 0xBA, 0xBE, 0x00, 0x03, 0x01, 'Z', 'i', 'g'}
	trailer := []byte{0xFF}
	block := append(append(append([]byte{}, recA...), recB...), trailer...)
	qt.Assert(t, qt.Equals(len(block), 21))

	recC := []byte{0x01, 0x02, 0x03, 0x04, 0x00, 0x02, 0x09, 'h', 'i'}
	data := append(append([]byte{}, block...), recC...)

	root := openSpec(t, logSpec, data)

	head, err := root.Field("head_blocks")
	qt.Assert(t, qt.IsNil(err))
	n, err := head.Len()
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(n, 1))

	b0, err := head.Index(0)
	qt.Assert(t, qt.IsNil(err))
	bsz, err := b0.Size()
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(bsz, int64(21)))

	recs, err := b0.Field("records")
	qt.Assert(t, qt.IsNil(err))
	rn, err := recs.Len()
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(rn, 2))
	recsSz, err := recs.Size()
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(recsSz, int64(20)))

	tr, err := b0.Field("trailer")
	qt.Assert(t, qt.IsNil(err))
	trSz, err := tr.Size()
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(trSz, int64(1)))
	trVal, err := tr.Value()
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.DeepEquals(trVal.Raw, trailer))

	tail, err := root.Field("tail_block")
	qt.Assert(t, qt.IsNil(err))
	tailRecs, err := tail.Field("records")
	qt.Assert(t, qt.IsNil(err))
	tn, err := tailRecs.Len()
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(tn, 1))
}

// keyedSpec models a TinyDB-like key/value record: every entry's key and
// value lengths are self-described by preceding size fields.
const keyedSpec = `
let Entry = struct {
	flags:      [1]byte <> integer { @signed: false; };
	key_size:   [1]byte <> integer { @signed: false; };
	key_value:  [key_size]byte;
	value_size: [1]byte <> integer { @signed: false; };
	value:      [value_size]byte;
};
file {
	entries: [] Entry;
}
`

func entryBytes(flags byte, key, value string) []byte {
	b := []byte{flags, byte(len(key))}
	b = append(b, key...)
	b = append(b, byte(len(value)))
	b = append(b, value...)
	return b
}

func TestKeyedStructEntries(t *testing.T) {
	e1 := entryBytes(0, "color", "red")
	e2 := entryBytes(0, "size", "10")
	e3 := entryBytes(0, "description", "a widget")
	data := append(append(append([]byte{}, e1...), e2...), e3...)

	root := openSpec(t, keyedSpec, data)
	entries, err := root.Field("entries")
	qt.Assert(t, qt.IsNil(err))
	n, err := entries.Len()
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(n, 3))

	wantKeys := []string{"color", "size", "description"}
	for i, want := range wantKeys {
		e, err := entries.Index(i)
		qt.Assert(t, qt.IsNil(err))
		names, err := e.FieldNames()
		qt.Assert(t, qt.IsNil(err))
		qt.Assert(t, qt.DeepEquals(names, []string{"flags", "key_size", "key_value", "value_size", "value"}))

		kv, err := e.Field("key_value")
		qt.Assert(t, qt.IsNil(err))
		v, err := kv.Value()
		qt.Assert(t, qt.IsNil(err))
		qt.Assert(t, qt.Equals(string(v.Raw), want))
	}
}

// blockHandleSpec mirrors the leveldb-style block-plus-trailer layout: an
// `if` conditional sits between two plain fields (flag, then the
// conditional extra payload, then trailer), so the struct's byte layout
// only comes out right if the conditional is placed at the offset where it
// was declared rather than after every plain field.
const blockHandleSpec = `
let Extra = struct {
	value: [2]byte;
};
let Block = struct {
	flag: [1]byte <> integer { @signed: false; };
	if (flag == 1) {
		Extra;
	}
	trailer: [1]byte <> integer { @signed: false; };
};
file {
	block: Block;
}
`

func TestStructLayoutInterleavesConditionalAtDeclaredOffset(t *testing.T) {
	data := []byte{0x01, 0xAA, 0xBB, 0x09}
	root, err := openSpec(t, blockHandleSpec, data).Field("block")
	qt.Assert(t, qt.IsNil(err))

	names, err := root.FieldNames()
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.DeepEquals(names, []string{"flag", "cond0", "trailer"}))

	extra, err := root.Field("cond0")
	qt.Assert(t, qt.IsNil(err))
	value, err := extra.Field("value")
	qt.Assert(t, qt.IsNil(err))
	v, err := value.Value()
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.DeepEquals(v.Raw, []byte{0xAA, 0xBB}))

	trailer, err := root.Field("trailer")
	qt.Assert(t, qt.IsNil(err))
	off, _ := trailer.Location()
	qt.Assert(t, qt.Equals(off, int64(3)))
	tv, err := trailer.Value()
	qt.Assert(t, qt.IsNil(err))
	ti, err := tv.Int64()
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(ti, int64(9)))
}

func TestStructLayoutSkipsConditionalWhenGuardIsFalse(t *testing.T) {
	data := []byte{0x00, 0x07}
	root, err := openSpec(t, blockHandleSpec, data).Field("block")
	qt.Assert(t, qt.IsNil(err))

	names, err := root.FieldNames()
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.DeepEquals(names, []string{"flag", "trailer"}))

	trailer, err := root.Field("trailer")
	qt.Assert(t, qt.IsNil(err))
	off, _ := trailer.Location()
	qt.Assert(t, qt.Equals(off, int64(1)))
	tv, err := trailer.Value()
	qt.Assert(t, qt.IsNil(err))
	ti, err := tv.Int64()
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(ti, int64(7)))
}
