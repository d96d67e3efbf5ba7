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

// Package schema defines the resolved, typed schema model (component C4)
// produced by compiling a format specification (package compile). A Schema
// is immutable and may be shared across many data trees (tree.Open).
package schema

import (
	"strings"

	"github.com/leanderhang/bitpunch/bp/ast"
	"github.com/leanderhang/bitpunch/bp/token"
)

// Kind distinguishes the schema node variants from spec.md §3.
type Kind int

const (
	// KindBytes is an opaque byte scalar or byte array: `byte`, `[n]byte`,
	// or `[]byte`. Its value is a raw byte slice; it has no named or
	// indexed children of its own.
	KindBytes Kind = iota
	// KindArray is an array whose element schema is not `byte` — elements
	// are structs, filtered nodes, or further arrays.
	KindArray
	// KindStruct is an ordered set of named fields plus non-layout `let`
	// bindings and `@span`/`@minspan` attributes.
	KindStruct
	// KindFiltered pairs an inner schema with a filter (C5) that
	// reinterprets the inner schema's byte range as something else: bytes,
	// an integer, a string, or an overlaid struct/array schema.
	KindFiltered
	// KindValue wraps a plain expression that has no layout of its own: a
	// folded constant, an arithmetic length expression, or a reference to a
	// sibling field's value. It is never placed directly as a struct
	// field's type (the resolver rejects that); it appears as a `let`
	// binding's value, as the dynamic inner byte view of a KindFiltered
	// node (e.g. `payload[0 .. n] <> u32`, where `payload` is a sibling
	// field), or inside a length/attribute/guard expression.
	KindValue
)

func (k Kind) String() string {
	switch k {
	case KindBytes:
		return "bytes"
	case KindArray:
		return "array"
	case KindStruct:
		return "struct"
	case KindFiltered:
		return "filtered"
	case KindValue:
		return "value"
	default:
		return "unknown"
	}
}

// Node is one resolved schema construct. Only the fields relevant to Kind
// are populated; see the Kind-specific accessors below.
type Node struct {
	Kind Kind
	Pos  token.Pos
	Name string // diagnostic name: the `let` name this node was bound to, if any

	Span    *int64 // @span: N — exact byte length
	MinSpan *int64 // @minspan: M — see spec.md §4.5 rule 4

	// KindBytes
	LenExpr ast.Expr // element/byte count expression; nil if Greedy
	Greedy  bool     // `[] byte` with no declared count: claims container remainder

	// KindArray
	Elem        *Node
	ElemLenExpr ast.Expr // explicit count, or a sibling length-field reference
	ElemGreedy  bool     // unbounded `[] T`: iterate until span exhausted

	// KindStruct. Struct-local `let` bindings share the same arena as
	// field types: a let may bind a reusable nested type (KindStruct,
	// KindArray, ...) or a computed value expression (KindValue), decided
	// per binding by what its right-hand side resolves to (see
	// compile.resolveIdent and DESIGN.md).
	//
	// Decls holds fields and `if` conditionals in the exact order they were
	// declared in the source struct body, since that order is also the
	// struct's byte layout order (spec.md §3's Union/Conditional variant
	// lets a conditional member sit between two plain fields). Each element
	// is either a *Field or a *CondField.
	Decls    []Member
	Lets     map[string]*Node
	LetOrder []string
	Parent   *Node // enclosing struct, used to resolve identifiers outward

	// KindFiltered. FilterInner is the schema whose output bytes feed the
	// filter; it is itself KindValue when the "previous stage" is not a
	// static layout but an expression referencing sibling field values
	// (e.g. `payload[0 .. n]`).
	FilterInner *Node
	Filter      *FilterSpec

	// KindValue
	ValueExpr ast.Expr
}

// Member is implemented by the two kinds of struct-body declaration that
// occupy space in a struct's layout: Field and CondField. A Node's Decls
// slice holds them interleaved in source declaration order.
type Member interface {
	memberNode()
}

// Field is one named, ordered member of a struct schema.
type Field struct {
	Name string
	Pos  token.Pos
	Type *Node
}

func (*Field) memberNode() {}

// CondField is an `if (Cond) { Type; }` guarded member: materialized by the
// tracker only when Cond evaluates true against already-built sibling
// fields.
type CondField struct {
	Cond ast.Expr
	Type *Node
	Pos  token.Pos
}

func (*CondField) memberNode() {}

// Fields returns the struct's named fields in declaration order, skipping
// any interleaved conditionals. Most callers that index fields by name
// (resolution, span-budget accounting, recursion checks) only care about
// this subset; buildStruct walks Decls directly to preserve layout order.
func (n *Node) Fields() []*Field {
	var fs []*Field
	for _, m := range n.Decls {
		if f, ok := m.(*Field); ok {
			fs = append(fs, f)
		}
	}
	return fs
}

// Conds returns the struct's conditional members in declaration order,
// skipping interleaved plain fields.
func (n *Node) Conds() []*CondField {
	var cs []*CondField
	for _, m := range n.Decls {
		if c, ok := m.(*CondField); ok {
			cs = append(cs, c)
		}
	}
	return cs
}

// AttrKind classifies a resolved, constant-folded attribute value.
type AttrKind int

const (
	AttrInt AttrKind = iota
	AttrBool
	AttrString
)

// AttrValue is a constant-folded attribute value (spec.md §4.2: "Integer and
// string attribute values are folded to constants at this stage").
type AttrValue struct {
	Kind AttrKind
	Int  int64
	Bool bool
	Str  string
}

// FilterSpec names a filter (C5) and carries its folded attributes. Overlay
// is set, and Name is "overlay", when the right-hand side of `<>` was itself a
// struct/array type rather than a builtin filter identifier — the
// "struct/array schema used on the right of `<>`" contract from spec.md
// §4.3.
type FilterSpec struct {
	Name    string
	Attrs   map[string]AttrValue
	Overlay *Node
}

// Schema is the result of compiling one format specification: a root struct
// (the `file { ... }` block) plus the set of top-level named bindings,
// which tree.Node.Eval and session.Board resolve qualified references against
// (e.g. `Spec.Contents`).
type Schema struct {
	Root    *Node
	Named   map[string]*Node
	Order   []string
	Source  *token.File
}

// Lookup resolves a dotted name such as "Contents.Numbers" against the
// schema's top-level bindings and any nested struct lets.
func (s *Schema) Lookup(name string) (*Node, bool) {
	parts := strings.Split(name, ".")
	n, ok := s.Named[parts[0]]
	for _, p := range parts[1:] {
		if !ok || n.Kind != KindStruct {
			return nil, false
		}
		n, ok = n.Lets[p]
	}
	return n, ok
}
