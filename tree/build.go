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

package tree

import (
	"github.com/leanderhang/bitpunch/bitio"
	"github.com/leanderhang/bitpunch/bp/ast"
	"github.com/leanderhang/bitpunch/bp/errors"
	"github.com/leanderhang/bitpunch/bp/token"
	"github.com/leanderhang/bitpunch/schema"
	"github.com/leanderhang/bitpunch/value"
)

// buildNode is the tracker (C6): it materializes one node of sc's shape at
// (container, start), claiming at most avail bytes, and reports how many
// bytes it actually consumed. scope is the nearest enclosing struct node,
// used to evaluate length and guard expressions that reference sibling
// field values; it is nil only when building the tree root.
func buildNode(tr *context, sc *schema.Node, scope *Node, container bitio.Source, start, avail int64, name string) (*Node, int64, error) {
	switch sc.Kind {
	case schema.KindBytes:
		return buildBytes(tr, sc, scope, container, start, avail, name)
	case schema.KindArray:
		return buildArray(tr, sc, scope, container, start, avail, name)
	case schema.KindStruct:
		return buildStruct(tr, sc, scope, container, start, avail, name)
	case schema.KindFiltered:
		return buildFilteredSchema(tr, sc, scope, container, start, avail, name)
	case schema.KindValue:
		return buildValueRef(tr, sc, scope, container, start, avail, name)
	default:
		n := &Node{tr: tr, sc: sc, parent: scope, name: name, container: container, start: start}
		return n, 0, n.dataErr("cannot build node of unknown schema kind")
	}
}

func buildBytes(tr *context, sc *schema.Node, scope *Node, container bitio.Source, start, avail int64, name string) (*Node, int64, error) {
	n := &Node{tr: tr, sc: sc, parent: scope, name: name, container: container, start: start, isBytes: true}
	var length int64
	switch {
	case sc.Greedy:
		length = avail
	case sc.LenExpr != nil:
		lv, err := scopeEval(tr, scope, sc.LenExpr)
		if err != nil {
			return n, 0, err
		}
		length = lv
	default:
		length = 1 // bare `byte`
	}
	if length < 0 {
		return n, 0, n.dataErr("negative byte length %d", length)
	}
	if length > avail {
		return n, 0, n.dataErr("declared length %d exceeds %d bytes available", length, avail)
	}
	n.size = &length
	return n, length, nil
}

// buildArray materializes an array whose elements are not plain bytes.
func buildArray(tr *context, sc *schema.Node, scope *Node, container bitio.Source, start, avail int64, name string) (*Node, int64, error) {
	n := &Node{tr: tr, sc: sc, parent: scope, name: name, container: container, start: start}

	if !sc.ElemGreedy {
		count, err := scopeEval(tr, scope, sc.ElemLenExpr)
		if err != nil {
			return n, 0, err
		}
		if count < 0 {
			return n, 0, n.dataErr("negative element count %d", count)
		}
		if fixed, ok := constElemSize(sc.Elem); ok {
			if fixed*count > avail {
				return n, 0, n.dataErr("array of %d elements at %d bytes each exceeds %d bytes available", count, fixed, avail)
			}
			n.elemFixed = fixed
			n.elemCount = count
			n.hasElemInfo = true
			return n, fixed * count, nil
		}
		offset := int64(0)
		for i := int64(0); i < count; i++ {
			child, sz, err := buildNode(tr, sc.Elem, scope, container, start+offset, avail-offset, itoa(int(i)))
			if err != nil {
				return n, 0, err
			}
			child.parent = n
			n.elems = append(n.elems, child)
			offset += sz
		}
		n.elemsDone = true
		return n, offset, nil
	}

	// Greedy: produce elements until the container is exhausted or a
	// @minspan on the element schema would be violated (spec.md §4.5 rule 4).
	minElem := minSpanOf(sc.Elem)
	offset := int64(0)
	for {
		remaining := avail - offset
		if remaining <= 0 {
			break
		}
		if minElem > 0 && remaining < minElem {
			break
		}
		child, sz, err := buildNode(tr, sc.Elem, scope, container, start+offset, remaining, itoa(len(n.elems)))
		if err != nil {
			return n, 0, err
		}
		child.parent = n
		n.elems = append(n.elems, child)
		offset += sz
	}
	n.elemsDone = true
	return n, offset, nil
}

func buildStruct(tr *context, sc *schema.Node, scope *Node, container bitio.Source, start, avail int64, name string) (*Node, int64, error) {
	n := &Node{tr: tr, sc: sc, parent: scope, name: name, container: container, start: start,
		fields: map[string]*Node{}}

	budget := avail
	if sc.Span != nil {
		if *sc.Span > avail {
			return n, 0, n.dataErr("struct declares @span: %d but only %d bytes are available", *sc.Span, avail)
		}
		budget = *sc.Span
	}

	// Decls is walked in exact source declaration order, so a conditional
	// member laid out before a following field (spec.md §3's
	// Union/Conditional variant, e.g. a trailer-guarded block appearing
	// ahead of a fixed trailer field) claims its bytes before the field
	// after it is built, matching the real byte layout instead of grouping
	// all plain fields ahead of all conditionals.
	offset := int64(0)
	condIndex := 0
	for _, decl := range sc.Decls {
		switch d := decl.(type) {
		case *schema.Field:
			child, sz, err := buildNode(tr, d.Type, n, container, start+offset, budget-offset, d.Name)
			if err != nil {
				return n, 0, err
			}
			n.fields[d.Name] = child
			n.fieldOrder = append(n.fieldOrder, d.Name)
			offset += sz
		case *schema.CondField:
			fname := "cond" + itoa(condIndex)
			condIndex++
			ok, err := n.evalCond(d.Cond)
			if err != nil {
				return n, 0, err
			}
			if !ok {
				continue
			}
			child, sz, err := buildNode(tr, d.Type, n, container, start+offset, budget-offset, fname)
			if err != nil {
				return n, 0, err
			}
			n.fields[fname] = child
			n.fieldOrder = append(n.fieldOrder, fname)
			offset += sz
		}
	}

	if sc.Span != nil {
		return n, *sc.Span, nil
	}
	return n, offset, nil
}

// buildFilteredSchema builds a KindFiltered schema node: either a
// transparent overlay (no new byte buffer, just a different schema over the
// same bytes) or a real filter application (scalar result, or a new owned
// buffer for the rest of the chain to overlay).
func buildFilteredSchema(tr *context, sc *schema.Node, scope *Node, container bitio.Source, start, avail int64, name string) (*Node, int64, error) {
	inner, consumed, err := buildNode(tr, sc.FilterInner, scope, container, start, avail, name)
	if err != nil {
		return nil, 0, err
	}
	if sc.Filter.Name == "overlay" {
		out, _, err := buildNode(tr, sc.Filter.Overlay, scope, inner.container, inner.start, sizeOrZero(inner), name)
		if err != nil {
			return nil, 0, err
		}
		// out is a freshly built node tree rooted at inner's container; it
		// has no link of its own back to inner, so the "decoded buffer, not
		// file bytes" flag has to be carried across explicitly.
		out.hasInner = out.hasInner || inner.hasInner
		return out, consumed, nil
	}
	out, _, err := buildFiltered(tr, sc.Filter, inner.container, inner.start, sizeOrZero(inner), scope, name)
	if err != nil {
		return nil, 0, err
	}
	return out, consumed, nil
}

// buildFiltered applies a non-overlay filter to the length bytes at
// (container, start), used both by the schema-driven path above and by
// tree.Node.Eval's `expr <> Type` operator.
func buildFiltered(tr *context, spec *schema.FilterSpec, container bitio.Source, start, length int64, scope *Node, name string) (*Node, int64, error) {
	n := &Node{tr: tr, parent: scope, name: name, container: container, start: start}
	if spec.Name == "overlay" {
		return buildNode(tr, spec.Overlay, scope, container, start, length, name)
	}
	f, ok := tr.reg.Lookup(spec.Name)
	if !ok {
		return n, 0, n.dataErr("unknown filter %q", spec.Name)
	}
	raw := make([]byte, length)
	if _, err := container.ReadAt(raw, start); err != nil {
		return n, 0, n.dataErr("reading filter input: %v", err)
	}
	out, consumed, err := f.Apply(raw, spec.Attrs)
	if err != nil {
		return n, 0, n.dataErr("filter %q: %v", spec.Name, err)
	}
	if out.Kind == value.Bytes {
		buf := bitio.NewBytes(out.Raw)
		size := int64(len(out.Raw))
		n.sc = &schema.Node{Kind: schema.KindBytes}
		n.container = buf
		n.start = 0
		n.hasInner = true
		n.isBytes = true
		n.size = &size
		return n, consumed, nil
	}
	v := out
	n.scalar = &v
	n.size = &consumed
	return n, consumed, nil
}

// buildValueRef builds the node for a FilterInner that is itself a value
// expression (e.g. `payload[0 .. n]`, referencing a sibling field's bytes
// rather than occupying fresh space in the current container).
func buildValueRef(tr *context, sc *schema.Node, scope *Node, container bitio.Source, start, avail int64, name string) (*Node, int64, error) {
	if scope == nil {
		n := &Node{tr: tr, sc: sc, parent: scope, name: name, container: container, start: start}
		return n, 0, n.dataErr("value expression has no enclosing scope to evaluate against")
	}
	res, err := scope.evalExpr(sc.ValueExpr)
	if err != nil {
		return nil, 0, err
	}
	if res.node == nil || !res.node.isBytes {
		return nil, 0, scope.typeErr("filter input expression must reference a bytes value")
	}
	res.node.parent = scope
	res.node.name = name
	return res.node, 0, nil
}

func sizeOrZero(n *Node) int64 {
	sz, err := n.Size()
	if err != nil {
		return 0
	}
	return sz
}

// scopeEval evaluates a raw schema-level expression (a LenExpr or
// ElemLenExpr) against the struct node currently being materialized.
func scopeEval(tr *context, scope *Node, x ast.Expr) (int64, error) {
	if scope == nil {
		return 0, errors.Newf(errors.Semantic, token.NoPos, "length expression has no enclosing struct scope")
	}
	return scope.evalSchemaExpr(x)
}
