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

// Package compile implements the spec resolver (component C3): name
// binding, type resolution, cycle detection, and constant folding over a
// parsed *ast.SpecFile, producing a *schema.Schema.
//
// Resolution is two-pass, as spec.md §4.2 prescribes: pass one allocates an
// empty *schema.Node placeholder for every `let` binding in scope (so
// forward and cyclic references see a stable pointer); pass two fills each
// placeholder in by compiling its right-hand side. Because Go pointers can
// form cycles freely, a schema graph with recursive named types needs no
// extra indirection layer — a reference to a not-yet-filled placeholder is
// simply the same *schema.Node that gets filled in later.
package compile

import (
	"github.com/leanderhang/bitpunch/bp/ast"
	"github.com/leanderhang/bitpunch/bp/errors"
	"github.com/leanderhang/bitpunch/bp/token"
	"github.com/leanderhang/bitpunch/schema"
)

// builtinFilters names the filter identifiers recognized directly as the
// right-hand operand of `<>`, without requiring a `let` binding.
var builtinFilters = map[string]bool{
	"varint":   true,
	"string":   true,
	"snappy":   true,
	"external": true,
}

type compiler struct {
	errs errors.List
}

// Compile resolves a parsed spec file into a schema.
func Compile(f *ast.SpecFile) (*schema.Schema, error) {
	c := &compiler{}
	sc := &schema.Schema{Named: map[string]*schema.Node{}}
	if f.File != nil {
		sc.Source = f.File.Kw.File()
	}

	// Pass 1: allocate placeholders for every top-level let, so references
	// made while compiling one let's body (including self- and mutually-
	// recursive references) resolve to a stable pointer.
	for _, l := range f.Lets {
		if _, dup := sc.Named[l.Name.Name]; dup {
			c.errs.Add(errors.Newf(errors.Semantic, l.Pos(), "duplicate top-level binding %q", l.Name.Name))
			continue
		}
		sc.Named[l.Name.Name] = &schema.Node{Pos: l.Pos(), Name: l.Name.Name}
		sc.Order = append(sc.Order, l.Name.Name)
	}

	// Pass 2: fill each placeholder in declaration order.
	for _, l := range f.Lets {
		target := sc.Named[l.Name.Name]
		if target == nil {
			continue // duplicate, already reported
		}
		filled := c.compileType(l.Expr, nil, sc)
		*target = *filled
		target.Name = l.Name.Name
	}

	if f.File != nil {
		decls := make([]ast.Decl, len(f.File.Fields))
		for i, fd := range f.File.Fields {
			decls[i] = fd
		}
		sc.Root = c.compileStructBody(decls, f.File.Lets, f.File.Attrs, f.File.Kw, nil, sc)
	}

	if c.errs.Len() == 0 && sc.Root != nil {
		checkRecursion(&c.errs, sc.Root, nil, false)
		for _, name := range sc.Order {
			checkRecursion(&c.errs, sc.Named[name], nil, false)
		}
	}

	if err := c.errs.Err(); err != nil {
		return sc, err
	}
	return sc, nil
}

// compileType resolves x into a schema node. parent is the enclosing struct
// schema (for scoped identifier lookup), or nil at top level. sc is the
// schema under construction, for top-level name lookups.
func (c *compiler) compileType(x ast.Expr, parent *schema.Node, sc *schema.Schema) *schema.Node {
	switch x := x.(type) {
	case *ast.ByteType:
		return &schema.Node{Kind: schema.KindBytes, Pos: x.Pos(), LenExpr: &ast.IntLit{ValuePos: x.Pos(), Value: 1}}

	case *ast.IntegerType:
		// A bare `integer { ... }` used directly as a field's type (rather
		// than as the right-hand operand of `<>`, where the left-hand byte
		// array already supplies the width) needs its own declared width.
		attrs := c.foldAttrs(x.Attrs, sc, parent)
		size, ok := attrs["size"]
		if !ok || size.Kind != schema.AttrInt {
			c.errs.Add(errors.Newf(errors.Semantic, x.Pos(), "integer used as a field type requires an integer @size attribute"))
			return &schema.Node{Kind: schema.KindFiltered, Pos: x.Pos(), Filter: &schema.FilterSpec{Name: "integer", Attrs: attrs}}
		}
		inner := &schema.Node{Kind: schema.KindBytes, Pos: x.Pos(), LenExpr: &ast.IntLit{ValuePos: x.Pos(), Value: size.Int}}
		return &schema.Node{Kind: schema.KindFiltered, Pos: x.Pos(), FilterInner: inner, Filter: &schema.FilterSpec{Name: "integer", Attrs: attrs}}

	case *ast.ArrayType:
		if _, isByte := x.Elem.(*ast.ByteType); isByte {
			n := &schema.Node{Kind: schema.KindBytes, Pos: x.Pos()}
			if x.Len == nil {
				n.Greedy = true
			} else {
				n.LenExpr = x.Len
			}
			return n
		}
		elem := c.compileType(x.Elem, parent, sc)
		n := &schema.Node{Kind: schema.KindArray, Pos: x.Pos(), Elem: elem}
		if x.Len == nil {
			n.ElemGreedy = true
		} else {
			n.ElemLenExpr = x.Len
		}
		return n

	case *ast.StructType:
		return c.compileStructBody(x.Decls, x.Lets, x.Attrs, x.Kw, parent, sc)

	case *ast.OverlayExpr:
		operand := c.compileOperand(x.X, parent, sc)
		filter := c.compileFilterOperand(x.Y, parent, sc)
		return &schema.Node{Kind: schema.KindFiltered, Pos: x.Pos(), FilterInner: operand, Filter: filter}

	case *ast.Ident:
		if n, ok := c.resolveIdent(x, parent, sc); ok {
			return n
		}
		c.errs.Add(errors.Newf(errors.Semantic, x.Pos(), "undefined reference %q", x.Name))
		return &schema.Node{Kind: schema.KindValue, Pos: x.Pos(), ValueExpr: x}

	case *ast.SelectorExpr:
		if n, ok := c.resolveSelector(x, parent, sc); ok {
			return n
		}
		c.errs.Add(errors.Newf(errors.Semantic, x.Pos(), "undefined reference in selector expression"))
		return &schema.Node{Kind: schema.KindValue, Pos: x.Pos(), ValueExpr: x}

	case *ast.ParenExpr:
		return c.compileType(x.X, parent, sc)

	default:
		// Anything else (IntLit, StringLit, BinaryExpr, UnaryExpr,
		// CallExpr, IndexExpr, SliceExpr) has no layout of its own: it is a
		// deferred value expression, evaluated lazily by package tree
		// once sibling field values exist.
		return &schema.Node{Kind: schema.KindValue, Pos: x.Pos(), ValueExpr: x}
	}
}

// compileOperand compiles the left-hand side of an overlay. It is
// permissive: an identifier that resolves to a struct field (rather than a
// let/type) becomes a KindValue reference to that field, deferred to
// tree-construction time, instead of a hard error.
func (c *compiler) compileOperand(x ast.Expr, parent *schema.Node, sc *schema.Schema) *schema.Node {
	return c.compileType(x, parent, sc)
}

// compileFilterOperand resolves the right-hand side of `<>` to a
// schema.FilterSpec: a builtin filter name, a reference to a `let`-bound
// filter template (e.g. `<> FixInt` where `FixInt = integer {...}`), or an
// overlay of a struct/array schema onto the input bytes.
func (c *compiler) compileFilterOperand(y ast.Expr, parent *schema.Node, sc *schema.Schema) *schema.FilterSpec {
	if it, ok := y.(*ast.IntegerType); ok {
		return &schema.FilterSpec{Name: "integer", Attrs: c.foldAttrs(it.Attrs, sc, parent)}
	}
	if id, ok := y.(*ast.Ident); ok && builtinFilters[id.Name] {
		if _, found := c.resolveIdent(id, parent, sc); !found {
			return &schema.FilterSpec{Name: id.Name}
		}
	}
	target := c.compileType(y, parent, sc)
	if target.Kind == schema.KindFiltered && target.FilterInner == nil {
		// A reference to a bare filter template, e.g. `<> FixInt`.
		return target.Filter
	}
	return &schema.FilterSpec{Name: "overlay", Overlay: target}
}

// resolveIdent searches the lexical scope chain (innermost struct outward,
// then the schema's top-level bindings) for name, per spec.md §4.6.
func (c *compiler) resolveIdent(id *ast.Ident, parent *schema.Node, sc *schema.Schema) (*schema.Node, bool) {
	for s := parent; s != nil; s = s.Parent {
		if n, ok := s.Lets[id.Name]; ok {
			return n, true
		}
		for _, f := range s.Fields() {
			if f.Name == id.Name {
				return &schema.Node{Kind: schema.KindValue, Pos: id.Pos(), ValueExpr: id}, true
			}
		}
	}
	if n, ok := sc.Named[id.Name]; ok {
		return n, true
	}
	return nil, false
}

// resolveSelector resolves `X.Sel` where X names a struct (top-level or
// nested `let`) and Sel names one of its own nested `let` bindings.
func (c *compiler) resolveSelector(x *ast.SelectorExpr, parent *schema.Node, sc *schema.Schema) (*schema.Node, bool) {
	var base *schema.Node
	switch xx := x.X.(type) {
	case *ast.Ident:
		n, ok := c.resolveIdent(xx, parent, sc)
		if !ok {
			return nil, false
		}
		base = n
	case *ast.SelectorExpr:
		n, ok := c.resolveSelector(xx, parent, sc)
		if !ok {
			return nil, false
		}
		base = n
	default:
		return nil, false
	}
	if base.Kind != schema.KindStruct {
		return nil, false
	}
	n, ok := base.Lets[x.Sel.Name]
	return n, ok
}

// compileStructBody builds a KindStruct node from a struct or file body.
// decls holds the field and `if` declarations in the exact order they were
// written in source; that order is preserved into n.Decls so buildStruct can
// lay out the struct's byte layout in true declaration order instead of
// grouping all fields before all conditionals (spec.md §3's Union/Conditional
// variant requires a conditional to be able to sit between two plain
// fields).
func (c *compiler) compileStructBody(decls []ast.Decl, lets []*ast.LetDecl, attrs []*ast.AttrDecl, kw token.Pos, parent *schema.Node, sc *schema.Schema) *schema.Node {
	n := &schema.Node{Kind: schema.KindStruct, Pos: kw, Parent: parent, Lets: map[string]*schema.Node{}}

	for _, l := range lets {
		if _, dup := n.Lets[l.Name.Name]; dup {
			c.errs.Add(errors.Newf(errors.Semantic, l.Pos(), "duplicate let binding %q", l.Name.Name))
			continue
		}
		n.Lets[l.Name.Name] = &schema.Node{Pos: l.Pos(), Name: l.Name.Name}
		n.LetOrder = append(n.LetOrder, l.Name.Name)
	}
	for _, l := range lets {
		target := n.Lets[l.Name.Name]
		if target == nil {
			continue
		}
		filled := c.compileType(l.Expr, n, sc)
		*target = *filled
		target.Name = l.Name.Name
	}

	seen := map[string]bool{}
	for _, decl := range decls {
		switch d := decl.(type) {
		case *ast.FieldDecl:
			if seen[d.Name.Name] {
				c.errs.Add(errors.Newf(errors.Semantic, d.Pos(), "duplicate field %q", d.Name.Name))
				continue
			}
			seen[d.Name.Name] = true
			ft := c.compileType(d.Type, n, sc)
			if ft.Kind == schema.KindValue {
				c.errs.Add(errors.Newf(errors.Semantic, d.Pos(), "field %q: expected a schema type, found a value expression", d.Name.Name))
			}
			n.Decls = append(n.Decls, &schema.Field{Name: d.Name.Name, Pos: d.Pos(), Type: ft})
		case *ast.CondDecl:
			ct := c.compileType(d.Type, n, sc)
			n.Decls = append(n.Decls, &schema.CondField{Cond: d.Cond, Type: ct, Pos: d.Pos()})
		}
	}

	for _, ad := range attrs {
		v := c.foldConst(ad.Value, sc, n)
		switch ad.Name.Name {
		case "span":
			if v.Kind != schema.AttrInt {
				c.errs.Add(errors.Newf(errors.Semantic, ad.Pos(), "@span must be an integer"))
				continue
			}
			span := v.Int
			n.Span = &span
		case "minspan":
			if v.Kind != schema.AttrInt {
				c.errs.Add(errors.Newf(errors.Semantic, ad.Pos(), "@minspan must be an integer"))
				continue
			}
			ms := v.Int
			n.MinSpan = &ms
		default:
			c.errs.Add(errors.Newf(errors.Semantic, ad.Pos(), "unknown struct attribute %q", ad.Name.Name))
		}
	}

	checkSpanBudget(&c.errs, n)
	return n
}

// foldAttrs constant-folds a codec attribute block (e.g. `integer { @signed:
// false; @endian: 'little'; }`) into a name->value map.
func (c *compiler) foldAttrs(attrs []*ast.AttrDecl, sc *schema.Schema, parent *schema.Node) map[string]schema.AttrValue {
	m := map[string]schema.AttrValue{}
	for _, a := range attrs {
		m[a.Name.Name] = c.foldConst(a.Value, sc, parent)
	}
	return m
}

// foldConst folds an attribute value expression to a constant, per spec.md
// §4.2. The DSL has no boolean literal keywords, so bare `true`/`false`
// identifiers are recognized specially, the way the rest of the language
// borrows identifier syntax for reserved meanings (cf. builtinFilters).
func (c *compiler) foldConst(x ast.Expr, sc *schema.Schema, parent *schema.Node) schema.AttrValue {
	switch x := x.(type) {
	case *ast.IntLit:
		return schema.AttrValue{Kind: schema.AttrInt, Int: x.Value}
	case *ast.StringLit:
		return schema.AttrValue{Kind: schema.AttrString, Str: x.Value}
	case *ast.Ident:
		switch x.Name {
		case "true":
			return schema.AttrValue{Kind: schema.AttrBool, Bool: true}
		case "false":
			return schema.AttrValue{Kind: schema.AttrBool, Bool: false}
		}
		if n, ok := c.resolveIdent(x, parent, sc); ok && n.Kind == schema.KindValue {
			if lit, ok := n.ValueExpr.(*ast.IntLit); ok {
				return schema.AttrValue{Kind: schema.AttrInt, Int: lit.Value}
			}
		}
		c.errs.Add(errors.Newf(errors.Semantic, x.Pos(), "attribute value must be a constant, found identifier %q", x.Name))
	case *ast.UnaryExpr:
		if x.Op == token.SUB {
			v := c.foldConst(x.X, sc, parent)
			if v.Kind == schema.AttrInt {
				v.Int = -v.Int
				return v
			}
		}
		c.errs.Add(errors.Newf(errors.Semantic, x.Pos(), "attribute value must be a constant"))
	default:
		c.errs.Add(errors.Newf(errors.Semantic, x.Pos(), "attribute value must be a constant"))
	}
	return schema.AttrValue{}
}

// checkSpanBudget enforces spec.md §3: "if a struct declares @span: N, the
// sum of contained mandatory field spans must be ≤ N". This can only be
// checked statically when every field has a statically known size; once any
// field's size depends on runtime data (a length field, a greedy array,
// etc.) the check is deferred to the span resolver at data-tree time.
func checkSpanBudget(errs *errors.List, n *schema.Node) {
	if n.Span == nil {
		return
	}
	var sum int64
	for _, f := range n.Fields() {
		size, ok := staticSize(f.Type)
		if !ok {
			return
		}
		sum += size
	}
	if sum > *n.Span {
		errs.Add(errors.Newf(errors.Semantic, n.Pos, "struct declares @span: %d but fields statically require %d bytes", *n.Span, sum))
	}
}

// staticSize returns the schema node's byte length when it can be computed
// without reading any data, i.e. it depends on no field values.
func staticSize(n *schema.Node) (int64, bool) {
	switch n.Kind {
	case schema.KindBytes:
		if n.Greedy {
			return 0, false
		}
		if lit, ok := n.LenExpr.(*ast.IntLit); ok {
			return lit.Value, true
		}
		return 0, false
	case schema.KindArray:
		if n.ElemGreedy {
			return 0, false
		}
		lit, ok := n.ElemLenExpr.(*ast.IntLit)
		if !ok {
			return 0, false
		}
		elemSize, ok := staticSize(n.Elem)
		if !ok {
			return 0, false
		}
		return lit.Value * elemSize, true
	case schema.KindStruct:
		if n.Span != nil {
			return *n.Span, true
		}
		return 0, false
	case schema.KindFiltered:
		if n.Filter != nil && n.Filter.Name == "overlay" {
			return 0, false // decoded span is independent of the encoded input span
		}
		if n.FilterInner != nil {
			return staticSize(n.FilterInner)
		}
		return 0, false
	default:
		return 0, false
	}
}

// checkRecursion enforces spec.md §3: "a struct may not transitively
// contain itself without an intervening size-bounded filter or
// length-limited array." bounded becomes (and stays) true once the walk
// crosses a spanned struct or a non-greedy array, or enters the target of
// an overlay (`<>`); a filtered node's inner operand is walked with the
// bound unchanged. A pointer reappearing on the stack while bounded is
// still false is an infinite layout.
func checkRecursion(errs *errors.List, n *schema.Node, stack []*schema.Node, bounded bool) {
	if n == nil {
		return
	}
	for _, s := range stack {
		if s == n {
			if !bounded {
				errs.Add(errors.Newf(errors.Semantic, n.Pos, "illegal recursion: %q transitively contains itself with no intervening size bound", n.Name))
			}
			return
		}
	}
	stack = append(stack, n)
	switch n.Kind {
	case schema.KindStruct:
		b := bounded || n.Span != nil
		for _, m := range n.Decls {
			switch d := m.(type) {
			case *schema.Field:
				checkRecursion(errs, d.Type, stack, b)
			case *schema.CondField:
				checkRecursion(errs, d.Type, stack, b)
			}
		}
	case schema.KindArray:
		checkRecursion(errs, n.Elem, stack, bounded || !n.ElemGreedy)
	case schema.KindFiltered:
		if n.FilterInner != nil {
			checkRecursion(errs, n.FilterInner, stack, bounded)
		}
		if n.Filter != nil && n.Filter.Overlay != nil {
			checkRecursion(errs, n.Filter.Overlay, stack, true)
		}
	}
}
