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

// Package ast defines the syntax tree produced by the format-spec parser.
//
// The DSL does not separate a "type grammar" from an "expression grammar":
// the overlay operator `<>` composes schema types the same way it
// reinterprets a live value at evaluation time, and a length expression
// inside `[ LenExpr ]` uses the same expression grammar as an `if` guard.
// A single Expr interface therefore covers both roles; the resolver (package
// compile) is what decides whether a given Expr is used in type position or
// value position.
package ast

import (
	"github.com/leanderhang/bitpunch/bp/token"
)

// Node is implemented by every syntax tree node.
type Node interface {
	Pos() token.Pos
}

// Expr is implemented by every expression and type-expression node.
type Expr interface {
	Node
	exprNode()
}

type exprBase struct{}

func (exprBase) exprNode() {}

// Ident is a bare identifier, resolved against lexical scope.
type Ident struct {
	exprBase
	NamePos token.Pos
	Name    string
}

func (x *Ident) Pos() token.Pos { return x.NamePos }

// ComputedIdent is a `?name` reference to a named computed binding.
type ComputedIdent struct {
	exprBase
	QuestPos token.Pos
	Name     string
}

func (x *ComputedIdent) Pos() token.Pos { return x.QuestPos }

// IntLit is an integer literal (decimal, octal with leading 0, or 0x hex).
type IntLit struct {
	exprBase
	ValuePos token.Pos
	Value    int64
}

func (x *IntLit) Pos() token.Pos { return x.ValuePos }

// StringLit is a string literal; adjacent literals are concatenated by the
// parser into a single StringLit before the AST is built.
type StringLit struct {
	exprBase
	ValuePos token.Pos
	Value    string
}

func (x *StringLit) Pos() token.Pos { return x.ValuePos }

// ParenExpr is a parenthesized expression, kept in the tree so that the
// evaluator can report positions accurately; it carries no other semantics.
type ParenExpr struct {
	exprBase
	Lparen token.Pos
	X      Expr
	Rparen token.Pos
}

func (x *ParenExpr) Pos() token.Pos { return x.Lparen }

// BinaryExpr is a binary arithmetic or comparison expression.
type BinaryExpr struct {
	exprBase
	X     Expr
	OpPos token.Pos
	Op    token.Token
	Y     Expr
}

func (x *BinaryExpr) Pos() token.Pos { return x.X.Pos() }

// UnaryExpr is a unary `-` or `+`.
type UnaryExpr struct {
	exprBase
	OpPos token.Pos
	Op    token.Token
	X     Expr
}

func (x *UnaryExpr) Pos() token.Pos { return x.OpPos }

// SelectorExpr is `X.Sel`.
type SelectorExpr struct {
	exprBase
	X   Expr
	Sel *Ident
}

func (x *SelectorExpr) Pos() token.Pos { return x.X.Pos() }

// IndexExpr is `X[Index]`.
type IndexExpr struct {
	exprBase
	X      Expr
	Lbrack token.Pos
	Index  Expr
}

func (x *IndexExpr) Pos() token.Pos { return x.X.Pos() }

// SliceExpr is `X[Lo .. Hi]`. Lo or Hi may be nil for an open range.
type SliceExpr struct {
	exprBase
	X      Expr
	Lbrack token.Pos
	Lo, Hi Expr
}

func (x *SliceExpr) Pos() token.Pos { return x.X.Pos() }

// CallExpr is a builtin call such as `sizeof(expr)`.
type CallExpr struct {
	exprBase
	Fun    *Ident
	Lparen token.Pos
	Args   []Expr
}

func (x *CallExpr) Pos() token.Pos { return x.Fun.Pos() }

// OverlayExpr is `X <> Y`: X's output bytes become Y's input. Left
// associative; a chain `A <> B <> C` parses as OverlayExpr{OverlayExpr{A,B},C}.
type OverlayExpr struct {
	exprBase
	X    Expr
	OpPos token.Pos
	Y    Expr
}

func (x *OverlayExpr) Pos() token.Pos { return x.X.Pos() }

// ByteType is the `byte` scalar type (a single byte).
type ByteType struct {
	exprBase
	Pos_ token.Pos
}

func (x *ByteType) Pos() token.Pos { return x.Pos_ }

// IntegerType is `integer { @attr: val; ... }`, the built-in integer filter
// invoked as a type.
type IntegerType struct {
	exprBase
	Kw    token.Pos
	Attrs []*AttrDecl
}

func (x *IntegerType) Pos() token.Pos { return x.Kw }

// ArrayType is `[ Len? ] Elem`. Len is nil for a greedy/unbounded array.
type ArrayType struct {
	exprBase
	Lbrack token.Pos
	Len    Expr
	Elem   Expr
}

func (x *ArrayType) Pos() token.Pos { return x.Lbrack }

// StructType is `struct { ...body... }`. Decls holds the field and `if`
// declarations in the exact order they were written, since that order is
// also the struct's byte layout order (spec.md §3's Union/Conditional
// variant lets a conditional member sit between two plain fields). Lets and
// Attrs carry no layout of their own, so their relative position among
// Decls is insignificant and they are kept separate.
type StructType struct {
	exprBase
	Kw    token.Pos
	Decls []Decl
	Lets  []*LetDecl
	Attrs []*AttrDecl
}

func (x *StructType) Pos() token.Pos { return x.Kw }

// Decl is implemented by every struct-body declaration that occupies space
// in the struct's layout: FieldDecl and CondDecl.
type Decl interface {
	Node
	declNode()
}

type declBase struct{}

func (declBase) declNode() {}

// FieldDecl is `name: TypeExpr;` inside a struct or file body.
type FieldDecl struct {
	declBase
	Name *Ident
	Type Expr
}

func (d *FieldDecl) Pos() token.Pos { return d.Name.Pos() }

// LetDecl is `let Name = TypeExpr;`, either at top level or nested inside a
// struct body, where it introduces a non-layout binding visible to sibling
// and descendant scopes but not materialized as a field.
type LetDecl struct {
	Kw   token.Pos
	Name *Ident
	Expr Expr
}

func (d *LetDecl) Pos() token.Pos { return d.Kw }

// AttrDecl is `@name: value;`. The parser requires the leading '@' in every
// body that holds attributes, including `integer { @signed: false; }`, so
// AtSign is true for every parsed attribute.
type AttrDecl struct {
	At    token.Pos
	AtSign bool // true if written with a leading '@'
	Name  *Ident
	Value Expr
}

func (d *AttrDecl) Pos() token.Pos { return d.At }

// CondDecl is `if (Cond) { Type; }` inside a struct body: Type is overlaid
// only when Cond evaluates true against sibling fields.
type CondDecl struct {
	declBase
	Kw   token.Pos
	Cond Expr
	Type Expr
}

func (d *CondDecl) Pos() token.Pos { return d.Kw }

// FileDecl is the top-level `file { ... }` block: the schema's root struct.
type FileDecl struct {
	Kw     token.Pos
	Fields []*FieldDecl
	Lets   []*LetDecl
	Attrs  []*AttrDecl
}

func (d *FileDecl) Pos() token.Pos { return d.Kw }

// SpecFile is the root of a parsed format specification: zero or more
// top-level `let` bindings plus exactly one `file { ... }` block.
type SpecFile struct {
	Filename string
	Lets     []*LetDecl
	File     *FileDecl
}

func (f *SpecFile) Pos() token.Pos {
	if f.File != nil {
		return f.File.Pos()
	}
	if len(f.Lets) > 0 {
		return f.Lets[0].Pos()
	}
	return token.NoPos
}
