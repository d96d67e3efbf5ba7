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
	"github.com/cockroachdb/apd/v3"

	"github.com/leanderhang/bitpunch/bp/ast"
	"github.com/leanderhang/bitpunch/bp/parser"
	"github.com/leanderhang/bitpunch/bp/token"
	"github.com/leanderhang/bitpunch/schema"
	"github.com/leanderhang/bitpunch/value"
)

func parseExprText(src string) (ast.Expr, error) {
	return parser.ParseExpr("<expr>", []byte(src))
}

// evalResult is the tagged result of evaluating one DSL expression: either
// a live tree node (a path, slice, or filter application) or a bare scalar
// (an arithmetic or comparison result).
type evalResult struct {
	node   *Node
	scalar *value.Value
}

func nodeResult(n *Node) evalResult        { return evalResult{node: n} }
func scalarResult(v value.Value) evalResult { return evalResult{scalar: &v} }

// external converts a result to the plain any value returned by Node.Eval:
// a *Node for node results, or the underlying Go value for scalars.
func (r evalResult) external() any {
	if r.node != nil {
		return r.node
	}
	switch r.scalar.Kind {
	case value.Integer:
		n, err := r.scalar.Int64()
		if err == nil {
			return n
		}
		return r.scalar.Int.String()
	case value.String:
		return r.scalar.Str
	default:
		return r.scalar.Raw
	}
}

func (r evalResult) asValue(n *Node) (value.Value, error) {
	if r.scalar != nil {
		return *r.scalar, nil
	}
	return r.node.Value()
}

// evalExpr evaluates x with n as the innermost lexical scope: n's own
// fields and lets first, then outward through n.parent chains, then the
// schema's top-level bindings (spec.md §4.6, "innermost struct outward").
func (n *Node) evalExpr(x ast.Expr) (evalResult, error) {
	switch x := x.(type) {
	case *ast.IntLit:
		return scalarResult(value.OfInt64(x.Value)), nil
	case *ast.StringLit:
		return scalarResult(value.OfString(x.Value)), nil
	case *ast.ParenExpr:
		return n.evalExpr(x.X)
	case *ast.Ident:
		return n.evalIdent(x)
	case *ast.ComputedIdent:
		return n.evalComputedIdent(x)
	case *ast.SelectorExpr:
		base, err := n.evalExpr(x.X)
		if err != nil {
			return evalResult{}, err
		}
		if base.node == nil {
			return evalResult{}, n.typeErr("cannot select %q on a value", x.Sel.Name)
		}
		c, err := base.node.Field(x.Sel.Name)
		if err != nil {
			return evalResult{}, err
		}
		return nodeResult(c), nil
	case *ast.IndexExpr:
		return n.evalIndex(x)
	case *ast.SliceExpr:
		return n.evalSlice(x)
	case *ast.CallExpr:
		return n.evalCall(x)
	case *ast.UnaryExpr:
		return n.evalUnary(x)
	case *ast.BinaryExpr:
		return n.evalBinary(x)
	case *ast.OverlayExpr:
		return n.evalOverlay(x)
	default:
		return evalResult{}, n.typeErr("expression of type %T is not supported here", x)
	}
}

// evalIdent resolves a bare identifier against n's lexical scope: the
// struct's own let bindings, then its fields, then outward to ancestor
// structs, then the schema's top-level names.
func (n *Node) evalIdent(id *ast.Ident) (evalResult, error) {
	for s := n; s != nil; s = s.parent {
		if s.sc == nil || s.sc.Kind != schema.KindStruct {
			continue
		}
		if let, ok := s.sc.Lets[id.Name]; ok {
			return s.evalSchemaNode(let)
		}
		if s.HasField(id.Name) {
			c, err := s.Field(id.Name)
			if err != nil {
				return evalResult{}, err
			}
			return nodeResult(c), nil
		}
	}
	if n.tr != nil && n.tr.sch != nil {
		if named, ok := n.tr.sch.Named[id.Name]; ok && named.Kind == schema.KindValue {
			return n.evalExpr(named.ValueExpr)
		}
	}
	return evalResult{}, n.rangeErr("undefined reference %q", id.Name)
}

func (n *Node) evalComputedIdent(id *ast.ComputedIdent) (evalResult, error) {
	for s := n; s != nil; s = s.parent {
		if s.sc == nil || s.sc.Kind != schema.KindStruct {
			continue
		}
		if let, ok := s.sc.Lets[id.Name]; ok {
			return s.evalSchemaNode(let)
		}
	}
	return evalResult{}, n.rangeErr("undefined computed binding %q", id.Name)
}

// evalSchemaNode evaluates a resolved schema node as a value, in n's scope.
// KindValue nodes wrap an expression; anything else is a reusable type
// binding, which has no value on its own.
func (n *Node) evalSchemaNode(sc *schema.Node) (evalResult, error) {
	if sc.Kind != schema.KindValue {
		return evalResult{}, n.typeErr("%q names a type, not a value", sc.Name)
	}
	return n.evalExpr(sc.ValueExpr)
}

func (n *Node) evalIndex(x *ast.IndexExpr) (evalResult, error) {
	base, err := n.evalExpr(x.X)
	if err != nil {
		return evalResult{}, err
	}
	if base.node == nil {
		return evalResult{}, n.typeErr("cannot index a value")
	}
	iv, err := n.evalExpr(x.Index)
	if err != nil {
		return evalResult{}, err
	}
	idx, err := scalarInt(iv, n)
	if err != nil {
		return evalResult{}, err
	}
	if base.node.Kind() == "struct" {
		return evalResult{}, n.typeErr("cannot index a struct node")
	}
	if idx < 0 {
		return evalResult{}, n.rangeErr("negative index %d", idx)
	}
	c, err := base.node.Index(int(idx))
	if err != nil {
		return evalResult{}, err
	}
	return nodeResult(c), nil
}

func (n *Node) evalSlice(x *ast.SliceExpr) (evalResult, error) {
	base, err := n.evalExpr(x.X)
	if err != nil {
		return evalResult{}, err
	}
	if base.node == nil || !base.node.isBytes {
		return evalResult{}, n.typeErr("cannot slice a non-bytes node")
	}
	size, err := base.node.Size()
	if err != nil {
		return evalResult{}, err
	}
	lo := int64(0)
	if x.Lo != nil {
		v, err := n.evalExpr(x.Lo)
		if err != nil {
			return evalResult{}, err
		}
		lo, err = scalarInt(v, n)
		if err != nil {
			return evalResult{}, err
		}
	}
	hi := size
	if x.Hi != nil {
		v, err := n.evalExpr(x.Hi)
		if err != nil {
			return evalResult{}, err
		}
		hi, err = scalarInt(v, n)
		if err != nil {
			return evalResult{}, err
		}
	}
	c, err := base.node.Slice(int(lo), int(hi))
	if err != nil {
		return evalResult{}, err
	}
	return nodeResult(c), nil
}

func (n *Node) evalCall(x *ast.CallExpr) (evalResult, error) {
	if x.Fun.Name != "sizeof" {
		return evalResult{}, n.typeErr("unknown builtin %q", x.Fun.Name)
	}
	if len(x.Args) != 1 {
		return evalResult{}, n.typeErr("sizeof takes exactly one argument")
	}
	arg, err := n.evalExpr(x.Args[0])
	if err != nil {
		return evalResult{}, err
	}
	if arg.node == nil {
		return evalResult{}, n.typeErr("sizeof requires a node, not a value")
	}
	sz, err := arg.node.Size()
	if err != nil {
		return evalResult{}, err
	}
	return scalarResult(value.OfInt64(sz)), nil
}

func (n *Node) evalUnary(x *ast.UnaryExpr) (evalResult, error) {
	v, err := n.evalExpr(x.X)
	if err != nil {
		return evalResult{}, err
	}
	val, err := v.asValue(n)
	if err != nil {
		return evalResult{}, err
	}
	if val.Kind != value.Integer {
		return evalResult{}, n.typeErr("unary %s requires an integer operand", x.Op)
	}
	d := new(apd.Decimal)
	switch x.Op {
	case token.SUB:
		d.Neg(val.Int)
	case token.ADD:
		d.Set(val.Int)
	default:
		return evalResult{}, n.typeErr("unsupported unary operator %s", x.Op)
	}
	return scalarResult(value.OfDecimal(d)), nil
}

func (n *Node) evalBinary(x *ast.BinaryExpr) (evalResult, error) {
	lr, err := n.evalExpr(x.X)
	if err != nil {
		return evalResult{}, err
	}
	rr, err := n.evalExpr(x.Y)
	if err != nil {
		return evalResult{}, err
	}
	lv, err := lr.asValue(n)
	if err != nil {
		return evalResult{}, err
	}
	rv, err := rr.asValue(n)
	if err != nil {
		return evalResult{}, err
	}
	if lv.Kind != value.Integer || rv.Kind != value.Integer {
		return evalResult{}, n.typeErr("operator %s requires integer operands", x.Op)
	}
	ctx := apd.BaseContext.WithPrecision(200)
	d := new(apd.Decimal)
	switch x.Op {
	case token.ADD:
		ctx.Add(d, lv.Int, rv.Int)
	case token.SUB:
		ctx.Sub(d, lv.Int, rv.Int)
	case token.MUL:
		ctx.Mul(d, lv.Int, rv.Int)
	case token.QUO:
		if _, err := ctx.Quo(d, lv.Int, rv.Int); err != nil {
			return evalResult{}, n.dataErr("division error: %v", err)
		}
	case token.EQL, token.NEQ, token.LSS, token.LEQ, token.GTR, token.GEQ:
		cmp := lv.Int.Cmp(rv.Int)
		var ok bool
		switch x.Op {
		case token.EQL:
			ok = cmp == 0
		case token.NEQ:
			ok = cmp != 0
		case token.LSS:
			ok = cmp < 0
		case token.LEQ:
			ok = cmp <= 0
		case token.GTR:
			ok = cmp > 0
		case token.GEQ:
			ok = cmp >= 0
		}
		b := int64(0)
		if ok {
			b = 1
		}
		return scalarResult(value.OfInt64(b)), nil
	default:
		return evalResult{}, n.typeErr("unsupported operator %s", x.Op)
	}
	return scalarResult(value.OfDecimal(d)), nil
}

// evalOverlay implements `expr <> Type` at evaluation time (spec.md §4.6):
// it reinterprets the bytes of expr through the filter or type named by the
// right-hand side.
func (n *Node) evalOverlay(x *ast.OverlayExpr) (evalResult, error) {
	base, err := n.evalExpr(x.X)
	if err != nil {
		return evalResult{}, err
	}
	if base.node == nil || !base.node.isBytes {
		return evalResult{}, n.typeErr("overlay operator requires a bytes operand")
	}
	spec, err := n.resolveFilterOperand(x.Y)
	if err != nil {
		return evalResult{}, err
	}
	size, err := base.node.Size()
	if err != nil {
		return evalResult{}, err
	}
	out, _, err := buildFiltered(n.tr, spec, base.node.container, base.node.start, size, n.parent, n.name)
	if err != nil {
		return evalResult{}, err
	}
	// An "overlay" filter builds a fresh node tree with no link back to
	// base.node, so the inner-coordinates flag must be carried across by
	// hand (mirrors buildFilteredSchema's schema-time overlay handling).
	out.hasInner = out.hasInner || base.node.hasInner
	return nodeResult(out), nil
}

// resolveFilterOperand resolves the right-hand side of an eval-time `<>`
// into a schema.FilterSpec: a builtin filter name or a top-level named type.
func (n *Node) resolveFilterOperand(y ast.Expr) (*schema.FilterSpec, error) {
	if id, ok := y.(*ast.Ident); ok {
		if f, ok := n.tr.reg.Lookup(id.Name); ok {
			return &schema.FilterSpec{Name: f.Name()}, nil
		}
		if n.tr.sch != nil {
			if named, ok := n.tr.sch.Named[id.Name]; ok {
				return &schema.FilterSpec{Name: "overlay", Overlay: named}, nil
			}
		}
	}
	return nil, n.rangeErr("undefined filter or type in overlay expression")
}

func scalarInt(r evalResult, n *Node) (int64, error) {
	v, err := r.asValue(n)
	if err != nil {
		return 0, err
	}
	if v.Kind != value.Integer {
		return 0, n.typeErr("expected an integer")
	}
	return v.Int64()
}

// evalSchemaExpr evaluates a raw, uncompiled schema-level expression (a
// LenExpr, ElemLenExpr, or Cond) against a struct node that is still being
// materialized, per spec.md §4.2 ("folded to constants" for attributes;
// length and guard expressions are folded against live data instead).
func (n *Node) evalSchemaExpr(x ast.Expr) (int64, error) {
	r, err := n.evalExpr(x)
	if err != nil {
		return 0, err
	}
	v, err := r.asValue(n)
	if err != nil {
		return 0, err
	}
	if v.Kind != value.Integer {
		return 0, n.typeErr("expected an integer-valued expression")
	}
	return v.Int64()
}

// evalCond evaluates an `if (Cond)` guard.
func (n *Node) evalCond(x ast.Expr) (bool, error) {
	r, err := n.evalExpr(x)
	if err != nil {
		return false, err
	}
	v, err := r.asValue(n)
	if err != nil {
		return false, err
	}
	if v.Kind != value.Integer {
		return false, n.typeErr("guard expression must be an integer")
	}
	iv, err := v.Int64()
	if err != nil {
		return false, err
	}
	return iv != 0, nil
}
