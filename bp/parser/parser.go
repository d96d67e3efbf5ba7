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

// Package parser turns DSL source text into an *ast.SpecFile (for a full
// format spec) or a bare ast.Expr (for a standalone expression, as used by
// tree.Node.Eval). Expressions are always evaluated against a data-tree
// node; there is no evaluation mode without a backing tree.
//
// Attribute spelling: the DSL that inspired this kernel accepts attribute
// assignments both with and without a leading '@' depending on which block
// they appear in. This parser resolves that inconsistency by requiring the
// '@' sigil everywhere an attribute is assigned (file, struct, and integer
// bodies alike); see DESIGN.md for the rationale.
package parser

import (
	"github.com/leanderhang/bitpunch/bp/ast"
	"github.com/leanderhang/bitpunch/bp/errors"
	"github.com/leanderhang/bitpunch/bp/literal"
	"github.com/leanderhang/bitpunch/bp/scanner"
	"github.com/leanderhang/bitpunch/bp/token"
)

type scanFunc func() (token.Pos, token.Token, string)

type parser struct {
	file *token.File
	scan scanFunc
	errs errors.List

	pos token.Pos
	tok token.Token
	lit string
}

func newParser(filename string, src []byte) *parser {
	p := &parser{file: token.NewFile(filename, 0, len(src))}
	sc := new(scanner.Scanner)
	sc.Init(p.file, src, func(offset int, msg string) {
		p.errs.Add(errors.Newf(errors.Syntax, p.file.Pos(offset), "%s", msg))
	})
	p.scan = sc.Scan
	p.next()
	return p
}

func (p *parser) next() { p.pos, p.tok, p.lit = p.scan() }

func (p *parser) errorf(pos token.Pos, format string, args ...interface{}) {
	p.errs.Add(errors.Newf(errors.Syntax, pos, format, args...))
}

// expect consumes the current token if it matches tok and advances;
// otherwise it records a syntax error and does not advance, so callers make
// progress on the next call instead of looping.
func (p *parser) expect(tok token.Token) token.Pos {
	pos := p.pos
	if p.tok != tok {
		p.errorf(pos, "expected %s, found %s %q", tok, p.tok, p.lit)
		return pos
	}
	p.next()
	return pos
}

func (p *parser) at(tok token.Token) bool { return p.tok == tok }

// ParseFile parses a complete format specification.
func ParseFile(filename string, src []byte) (*ast.SpecFile, error) {
	p := newParser(filename, src)
	f := p.parseSpecFile(filename)
	if err := p.errs.Err(); err != nil {
		return f, err
	}
	return f, nil
}

// ParseExpr parses a standalone expression, as used by tree.Node.Eval.
func ParseExpr(filename string, src []byte) (ast.Expr, error) {
	p := newParser(filename, src)
	x := p.parseExpr()
	if p.tok != token.EOF {
		p.errorf(p.pos, "unexpected trailing input: %s %q", p.tok, p.lit)
	}
	if err := p.errs.Err(); err != nil {
		return x, err
	}
	return x, nil
}

func (p *parser) parseSpecFile(filename string) *ast.SpecFile {
	f := &ast.SpecFile{Filename: filename}
	for p.tok == token.LET {
		f.Lets = append(f.Lets, p.parseLetDecl())
	}
	if p.tok == token.FILE {
		f.File = p.parseFileDecl()
	} else {
		p.errorf(p.pos, "expected 'file' declaration, found %s %q", p.tok, p.lit)
	}
	return f
}

func (p *parser) parseIdent() *ast.Ident {
	pos, name := p.pos, "_"
	if p.tok == token.IDENT {
		name = p.lit
		p.next()
	} else {
		p.expect(token.IDENT)
	}
	return &ast.Ident{NamePos: pos, Name: name}
}

func (p *parser) parseLetDecl() *ast.LetDecl {
	kw := p.expect(token.LET)
	name := p.parseIdent()
	p.expect(token.ASSIGN)
	x := p.parseExpr()
	p.expect(token.SEMICOLON)
	return &ast.LetDecl{Kw: kw, Name: name, Expr: x}
}

func (p *parser) parseAttrDecl() *ast.AttrDecl {
	at := p.expect(token.AT)
	name := p.parseIdent()
	p.expect(token.COLON)
	v := p.parseExpr()
	p.expect(token.SEMICOLON)
	return &ast.AttrDecl{At: at, AtSign: true, Name: name, Value: v}
}

func (p *parser) parseCondDecl() *ast.CondDecl {
	kw := p.expect(token.IF)
	p.expect(token.LPAREN)
	cond := p.parseExpr()
	p.expect(token.RPAREN)
	p.expect(token.LBRACE)
	typ := p.parseExpr()
	p.expect(token.SEMICOLON)
	p.expect(token.RBRACE)
	return &ast.CondDecl{Kw: kw, Cond: cond, Type: typ}
}

func (p *parser) parseFieldDecl() *ast.FieldDecl {
	name := p.parseIdent()
	p.expect(token.COLON)
	typ := p.parseExpr()
	p.expect(token.SEMICOLON)
	return &ast.FieldDecl{Name: name, Type: typ}
}

func (p *parser) parseFileDecl() *ast.FileDecl {
	kw := p.expect(token.FILE)
	p.expect(token.LBRACE)
	d := &ast.FileDecl{Kw: kw}
	for p.tok != token.RBRACE && p.tok != token.EOF {
		switch p.tok {
		case token.LET:
			d.Lets = append(d.Lets, p.parseLetDecl())
		case token.AT:
			d.Attrs = append(d.Attrs, p.parseAttrDecl())
		case token.IDENT:
			d.Fields = append(d.Fields, p.parseFieldDecl())
		default:
			p.errorf(p.pos, "unexpected token %s %q in file body", p.tok, p.lit)
			p.next()
		}
	}
	p.expect(token.RBRACE)
	return d
}

func (p *parser) parseStructType() *ast.StructType {
	kw := p.expect(token.STRUCT)
	p.expect(token.LBRACE)
	s := &ast.StructType{Kw: kw}
	for p.tok != token.RBRACE && p.tok != token.EOF {
		switch p.tok {
		case token.LET:
			s.Lets = append(s.Lets, p.parseLetDecl())
		case token.AT:
			s.Attrs = append(s.Attrs, p.parseAttrDecl())
		case token.IF:
			s.Decls = append(s.Decls, p.parseCondDecl())
		case token.IDENT:
			s.Decls = append(s.Decls, p.parseFieldDecl())
		default:
			p.errorf(p.pos, "unexpected token %s %q in struct body", p.tok, p.lit)
			p.next()
		}
	}
	p.expect(token.RBRACE)
	return s
}

func (p *parser) parseIntegerType() *ast.IntegerType {
	kw := p.expect(token.INTEGER)
	it := &ast.IntegerType{Kw: kw}
	if p.tok == token.LBRACE {
		p.next()
		for p.tok != token.RBRACE && p.tok != token.EOF {
			if p.tok != token.AT {
				p.errorf(p.pos, "expected attribute (starting with '@'), found %s %q", p.tok, p.lit)
				p.next()
				continue
			}
			it.Attrs = append(it.Attrs, p.parseAttrDecl())
		}
		p.expect(token.RBRACE)
	}
	return it
}

// parseArrayElem parses the element type of an array, at a tighter binding
// level than a full expression: "[4] byte <> X" must parse as
// OverlayExpr(ArrayType([4], byte), X), not ArrayType([4], OverlayExpr(byte, X)).
func (p *parser) parseArrayElem() ast.Expr {
	return p.parsePrimary()
}

func (p *parser) parseArrayType() *ast.ArrayType {
	lbrack := p.expect(token.LBRACK)
	var length ast.Expr
	if p.tok != token.RBRACK {
		length = p.parseExpr()
	}
	p.expect(token.RBRACK)
	elem := p.parseArrayElem()
	return &ast.ArrayType{Lbrack: lbrack, Len: length, Elem: elem}
}

// parsePrimary parses identifiers, literals, parenthesized expressions, and
// the built-in type keywords (byte/integer/struct) and array types.
func (p *parser) parsePrimary() ast.Expr {
	switch p.tok {
	case token.IDENT:
		id := p.parseIdent()
		if p.tok == token.LPAREN {
			return p.parseCallExpr(id)
		}
		return id
	case token.QUESTION:
		pos := p.pos
		p.next()
		name := p.parseIdent()
		return &ast.ComputedIdent{QuestPos: pos, Name: name.Name}
	case token.INT:
		pos, lit := p.pos, p.lit
		p.next()
		v, err := literal.ParseInt(lit)
		if err != nil {
			p.errorf(pos, "%v", err)
		}
		return &ast.IntLit{ValuePos: pos, Value: v}
	case token.STRING:
		return p.parseStringLit()
	case token.LPAREN:
		lparen := p.pos
		p.next()
		x := p.parseExpr()
		rparen := p.expect(token.RPAREN)
		return &ast.ParenExpr{Lparen: lparen, X: x, Rparen: rparen}
	case token.BYTE:
		pos := p.pos
		p.next()
		return &ast.ByteType{Pos_: pos}
	case token.INTEGER:
		return p.parseIntegerType()
	case token.STRUCT:
		return p.parseStructType()
	case token.LBRACK:
		return p.parseArrayType()
	default:
		pos := p.pos
		p.errorf(pos, "unexpected token %s %q in expression", p.tok, p.lit)
		p.next()
		return &ast.Ident{NamePos: pos, Name: "_"}
	}
}

// parseStringLit concatenates adjacent string-literal tokens into one value,
// as the DSL's `'a' 'b'` and `"a" "b"` multi-part literals require.
func (p *parser) parseStringLit() ast.Expr {
	pos := p.pos
	var value string
	for p.tok == token.STRING {
		unquoted, err := literal.Unquote(p.lit[1 : len(p.lit)-1])
		if err != nil {
			p.errorf(p.pos, "%v", err)
		}
		value += unquoted
		p.next()
	}
	return &ast.StringLit{ValuePos: pos, Value: value}
}

func (p *parser) parseCallExpr(fun *ast.Ident) ast.Expr {
	lparen := p.expect(token.LPAREN)
	var args []ast.Expr
	for p.tok != token.RPAREN && p.tok != token.EOF {
		args = append(args, p.parseExpr())
		if p.tok == token.COMMA {
			p.next()
		} else {
			break
		}
	}
	p.expect(token.RPAREN)
	return &ast.CallExpr{Fun: fun, Lparen: lparen, Args: args}
}

// parsePostfix parses selector/index/slice suffixes, binding tighter than
// any binary operator.
func (p *parser) parsePostfix() ast.Expr {
	x := p.parsePrimary()
	for {
		switch p.tok {
		case token.PERIOD:
			p.next()
			sel := p.parseIdent()
			x = &ast.SelectorExpr{X: x, Sel: sel}
		case token.LBRACK:
			lbrack := p.pos
			p.next()
			if p.tok == token.ELLIPSIS {
				// `[..]` — the open full-range slice.
				p.next()
				p.expect(token.RBRACK)
				x = &ast.SliceExpr{X: x, Lbrack: lbrack}
				continue
			}
			var lo, hi ast.Expr
			if p.tok != token.ELLIPSIS {
				lo = p.parseExpr()
			}
			if p.tok == token.ELLIPSIS {
				p.next()
				if p.tok != token.RBRACK {
					hi = p.parseExpr()
				}
				p.expect(token.RBRACK)
				x = &ast.SliceExpr{X: x, Lbrack: lbrack, Lo: lo, Hi: hi}
			} else {
				p.expect(token.RBRACK)
				x = &ast.IndexExpr{X: x, Lbrack: lbrack, Index: lo}
			}
		default:
			return x
		}
	}
}

func (p *parser) parseUnary() ast.Expr {
	switch p.tok {
	case token.SUB, token.ADD:
		pos, op := p.pos, p.tok
		p.next()
		return &ast.UnaryExpr{OpPos: pos, Op: op, X: p.parseUnary()}
	default:
		return p.parsePostfix()
	}
}

func (p *parser) parseMul() ast.Expr {
	x := p.parseUnary()
	for p.tok == token.MUL || p.tok == token.QUO {
		pos, op := p.pos, p.tok
		p.next()
		x = &ast.BinaryExpr{X: x, OpPos: pos, Op: op, Y: p.parseUnary()}
	}
	return x
}

func (p *parser) parseAdd() ast.Expr {
	x := p.parseMul()
	for p.tok == token.ADD || p.tok == token.SUB {
		pos, op := p.pos, p.tok
		p.next()
		x = &ast.BinaryExpr{X: x, OpPos: pos, Op: op, Y: p.parseMul()}
	}
	return x
}

func isCompareOp(tok token.Token) bool {
	switch tok {
	case token.EQL, token.NEQ, token.LSS, token.LEQ, token.GTR, token.GEQ:
		return true
	}
	return false
}

func (p *parser) parseCompare() ast.Expr {
	x := p.parseAdd()
	for isCompareOp(p.tok) {
		pos, op := p.pos, p.tok
		p.next()
		x = &ast.BinaryExpr{X: x, OpPos: pos, Op: op, Y: p.parseAdd()}
	}
	return x
}

// parseExpr parses a full expression, including the overlay chain `<>`,
// which is left-associative and binds loosest of all operators: `a + b <>
// T` reinterprets the bytes of `a + b` through T, not `a` through `T` plus
// `b`.
func (p *parser) parseExpr() ast.Expr {
	x := p.parseCompare()
	for p.tok == token.OVERLAY {
		pos := p.pos
		p.next()
		y := p.parseCompare()
		x = &ast.OverlayExpr{X: x, OpPos: pos, Y: y}
	}
	return x
}
