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

// Package session provides Board, a small convenience layer above package
// tree for programs that juggle several named specs and several named byte
// sources at once and want to cross-reference them in one expression (e.g.
// "decode this source with that spec"). The kernel itself only knows about
// one schema and one byte source at a time (spec.md §6); Board is host-side
// bookkeeping on top of it, not a kernel component.
package session

import (
	"strings"

	"github.com/leanderhang/bitpunch/bitio"
	"github.com/leanderhang/bitpunch/bp/errors"
	"github.com/leanderhang/bitpunch/bp/token"
	"github.com/leanderhang/bitpunch/codec"
	"github.com/leanderhang/bitpunch/schema"
	"github.com/leanderhang/bitpunch/tree"
)

// Board binds names to specs and byte sources so expressions can reference
// both, e.g. "data <> Spec.Schema" naming a registered source "data" and a
// named type "Schema" inside a registered spec "Spec".
type Board struct {
	reg     *codec.Registry
	specs   map[string]*schema.Schema
	sources map[string]bitio.Source
	trees   map[string]*tree.Node // opened roots, memoized per source name + root schema
}

// New creates an empty Board using reg to resolve filter identifiers. Pass
// codec.Default() (optionally with snappy/external registered onto it) the
// way tree.Open expects.
func New(reg *codec.Registry) *Board {
	return &Board{
		reg:     reg,
		specs:   map[string]*schema.Schema{},
		sources: map[string]bitio.Source{},
		trees:   map[string]*tree.Node{},
	}
}

// AddSpec registers sc under name.
func (b *Board) AddSpec(name string, sc *schema.Schema) {
	b.specs[name] = sc
}

// AddSource registers src under name.
func (b *Board) AddSource(name string, src bitio.Source) {
	b.sources[name] = src
}

// Source returns the byte source registered under name, opened against no
// schema — useful as a bytes-only value in an expression like
// "data <> Spec.Schema".
func (b *Board) Source(name string) (bitio.Source, bool) {
	s, ok := b.sources[name]
	return s, ok
}

// Open overlays the named spec's root schema onto the named source,
// memoizing the resulting tree so repeated Eval calls share one decode
// (spec.md §5: "repeated access to the same path yields structurally equal
// nodes").
func (b *Board) Open(sourceName, specName string) (*tree.Node, error) {
	key := sourceName + "\x00" + specName
	if n, ok := b.trees[key]; ok {
		return n, nil
	}
	src, ok := b.sources[sourceName]
	if !ok {
		return nil, errors.Newf(errors.Range, token.NoPos, "no such source %q", sourceName)
	}
	sc, ok := b.specs[specName]
	if !ok {
		return nil, errors.Newf(errors.Range, token.NoPos, "no such spec %q", specName)
	}
	n, err := tree.Open(src, sc, b.reg)
	if err != nil {
		return nil, err
	}
	b.trees[key] = n
	return n, nil
}

// OpenAs is like Open, but overlays the named spec's typeName binding
// (rather than its file {} root) onto the source. This is what lets a
// Board expression name a reusable struct type inside a spec directly,
// e.g. "data <> Spec.Schema" where Schema is a top-level `let` in Spec.
func (b *Board) OpenAs(sourceName, specName, typeName string) (*tree.Node, error) {
	key := sourceName + "\x00" + specName + "\x00" + typeName
	if n, ok := b.trees[key]; ok {
		return n, nil
	}
	src, ok := b.sources[sourceName]
	if !ok {
		return nil, errors.Newf(errors.Range, token.NoPos, "no such source %q", sourceName)
	}
	sc, ok := b.specs[specName]
	if !ok {
		return nil, errors.Newf(errors.Range, token.NoPos, "no such spec %q", specName)
	}
	root := sc.Root
	if typeName != "" {
		named, ok := sc.Named[typeName]
		if !ok {
			return nil, errors.Newf(errors.Range, token.NoPos, "spec %q has no top-level binding %q", specName, typeName)
		}
		root = named
	}
	eff := &schema.Schema{Root: root, Named: sc.Named, Order: sc.Order, Source: sc.Source}
	n, err := tree.Open(src, eff, b.reg)
	if err != nil {
		return nil, err
	}
	b.trees[key] = n
	return n, nil
}

// Eval resolves a "source <> Spec", "source <> Spec.Type", or
// "source <> Spec.Type.rest.of.path" cross-board expression: it opens the
// named source against the named spec (optionally rooted at one of the
// spec's top-level bindings) and evaluates any remaining path against the
// resulting tree. This is the mechanism a keyed-record scenario uses to
// decode one named source with one named spec and then query into it, the
// way the original project's board.eval_expr binds a byte source and a
// spec together at evaluation time instead of requiring a pre-opened tree.
func (b *Board) Eval(expr string) (any, error) {
	parts := strings.SplitN(expr, "<>", 2)
	if len(parts) != 2 {
		return nil, errors.Newf(errors.Syntax, token.NoPos, "expected \"source <> Spec[.Type[.path]]\", got %q", expr)
	}
	sourceName := strings.TrimSpace(parts[0])
	right := strings.TrimSpace(parts[1])
	if sourceName == "" || right == "" {
		return nil, errors.Newf(errors.Syntax, token.NoPos, "expected \"source <> Spec[.Type[.path]]\", got %q", expr)
	}

	specName, remainder, _ := cutDot(right)
	sc, ok := b.specs[specName]
	if !ok {
		return nil, errors.Newf(errors.Range, token.NoPos, "no such spec %q", specName)
	}

	typeName, rest := "", remainder
	if remainder != "" {
		head, tail, found := cutDot(remainder)
		if _, isType := sc.Named[head]; isType {
			typeName, rest = head, tail
		} else if !found {
			typeName, rest = remainder, ""
		}
	}

	n, err := b.OpenAs(sourceName, specName, typeName)
	if err != nil {
		return nil, err
	}
	if rest == "" {
		return n, nil
	}
	return n.Eval(rest)
}

// cutDot splits s at its first '.', reporting whether one was found.
func cutDot(s string) (head, tail string, found bool) {
	i := strings.IndexByte(s, '.')
	if i < 0 {
		return s, "", false
	}
	return s[:i], s[i+1:], true
}
