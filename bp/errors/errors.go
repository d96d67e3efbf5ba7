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

// Package errors defines the structured error values shared across the
// format-spec compiler and the data-tree evaluator.
//
// Every error raised by this module is one of five kinds (see Kind), which
// callers can test with IsSyntax, IsSemantic, IsData, IsRange, IsType and
// the Kind accessor rather than string
// matching. An Error carries the source or data path active when it was
// raised, and the token.Pos it occurred at, if any.
package errors

import (
	"fmt"
	"strings"

	"github.com/leanderhang/bitpunch/bp/token"
)

// Kind classifies the circumstance that produced an Error.
type Kind int

const (
	// Syntax indicates the lexer or parser rejected the spec text.
	Syntax Kind = iota
	// Semantic indicates unresolved names, attribute type mismatches, or
	// illegal recursion in an otherwise syntactically valid spec.
	Semantic
	// Data indicates bytes inconsistent with the schema: a declared span
	// overrun, a length field pointing past the end of the byte source, or
	// a filter failure such as a corrupt compressed stream.
	Data
	// Range indicates a query against a valid tree asked for a path that
	// does not exist: a missing field or an out-of-bounds array index.
	Range
	// Type indicates an expression applied an operation to the wrong kind
	// of node, e.g. indexing a struct or taking a field of an array.
	Type
)

func (k Kind) String() string {
	switch k {
	case Syntax:
		return "syntax error"
	case Semantic:
		return "semantic error"
	case Data:
		return "data error"
	case Range:
		return "range error"
	case Type:
		return "type error"
	default:
		return "error"
	}
}

// Error is the interface implemented by every error value this module
// returns to a caller.
type Error interface {
	error
	Kind() Kind
	Position() token.Pos
	Path() []string
}

type posError struct {
	kind Kind
	pos  token.Pos
	path []string
	msg  string
	err  error // wrapped cause, if any
}

func (e *posError) Kind() Kind         { return e.kind }
func (e *posError) Position() token.Pos { return e.pos }
func (e *posError) Path() []string     { return e.path }

func (e *posError) Error() string {
	var b strings.Builder
	if e.pos.IsValid() {
		b.WriteString(e.pos.String())
		b.WriteString(": ")
	}
	if len(e.path) > 0 {
		b.WriteString(strings.Join(e.path, "."))
		b.WriteString(": ")
	}
	b.WriteString(e.msg)
	if e.err != nil {
		b.WriteString(": ")
		b.WriteString(e.err.Error())
	}
	return b.String()
}

func (e *posError) Unwrap() error { return e.err }

// Newf creates a new Error of the given kind at the given position, with no
// associated path. Use WithPath to attach one.
func Newf(kind Kind, pos token.Pos, format string, args ...interface{}) Error {
	return &posError{kind: kind, pos: pos, msg: fmt.Sprintf(format, args...)}
}

// Wrapf wraps an existing error with additional context, preserving kind and
// position when the cause is itself an Error.
func Wrapf(cause error, format string, args ...interface{}) Error {
	e := &posError{kind: Semantic, msg: fmt.Sprintf(format, args...), err: cause}
	if be, ok := cause.(Error); ok {
		e.kind = be.Kind()
		e.pos = be.Position()
		e.path = be.Path()
	}
	return e
}

// WithPath returns a copy of err with its path set to path.
func WithPath(err Error, path []string) Error {
	if pe, ok := err.(*posError); ok {
		cp := *pe
		cp.path = path
		return &cp
	}
	return err
}

func kindOf(err error) (Kind, bool) {
	if be, ok := err.(Error); ok {
		return be.Kind(), true
	}
	return 0, false
}

// IsSyntax reports whether err is a syntax error.
func IsSyntax(err error) bool { k, ok := kindOf(err); return ok && k == Syntax }

// IsSemantic reports whether err is a semantic error.
func IsSemantic(err error) bool { k, ok := kindOf(err); return ok && k == Semantic }

// IsData reports whether err is a data error.
func IsData(err error) bool { k, ok := kindOf(err); return ok && k == Data }

// IsRange reports whether err is a range error.
func IsRange(err error) bool { k, ok := kindOf(err); return ok && k == Range }

// IsType reports whether err is a type error.
func IsType(err error) bool { k, ok := kindOf(err); return ok && k == Type }

// List accumulates zero or more errors raised during one compilation pass,
// such as parsing or resolving a spec. A List with no entries is not a
// valid error; use Err to obtain a nil error in that case.
type List struct {
	errs []Error
}

// Add appends err to the list. A nil err is ignored.
func (l *List) Add(err Error) {
	if err != nil {
		l.errs = append(l.errs, err)
	}
}

// Len returns the number of accumulated errors.
func (l *List) Len() int { return len(l.errs) }

// Err returns l as an error, or nil if l is empty.
func (l *List) Err() error {
	if len(l.errs) == 0 {
		return nil
	}
	return l
}

// Errors returns the accumulated errors in the order they were added.
func (l *List) Errors() []Error { return l.errs }

func (l *List) Error() string {
	switch len(l.errs) {
	case 0:
		return "no errors"
	case 1:
		return l.errs[0].Error()
	default:
		var b strings.Builder
		fmt.Fprintf(&b, "%s (and %d more errors)", l.errs[0].Error(), len(l.errs)-1)
		return b.String()
	}
}

// Kind returns the kind of the first error in the list.
func (l *List) Kind() Kind {
	if len(l.errs) == 0 {
		return Syntax
	}
	return l.errs[0].Kind()
}

// Position returns the position of the first error in the list.
func (l *List) Position() token.Pos {
	if len(l.errs) == 0 {
		return token.NoPos
	}
	return l.errs[0].Position()
}

// Path returns the path of the first error in the list.
func (l *List) Path() []string {
	if len(l.errs) == 0 {
		return nil
	}
	return l.errs[0].Path()
}
