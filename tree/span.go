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
	"github.com/leanderhang/bitpunch/bp/ast"
	"github.com/leanderhang/bitpunch/schema"
)

// constElemSize reports an element schema's fixed byte width when it can be
// computed without reading any data, enabling the spec.md §4.5 rule 5
// shortcut ("for arrays of known element count with fixed-width element
// schema, size = count × elem-size without iteration").
func constElemSize(sc *schema.Node) (int64, bool) {
	switch sc.Kind {
	case schema.KindBytes:
		if sc.Greedy {
			return 0, false
		}
		if lit, ok := sc.LenExpr.(*ast.IntLit); ok {
			return lit.Value, true
		}
		if sc.LenExpr == nil {
			return 1, true
		}
		return 0, false
	case schema.KindStruct:
		if sc.Span != nil {
			return *sc.Span, true
		}
		return 0, false
	case schema.KindArray:
		if sc.ElemGreedy {
			return 0, false
		}
		lit, ok := sc.ElemLenExpr.(*ast.IntLit)
		if !ok {
			return 0, false
		}
		elemSize, ok := constElemSize(sc.Elem)
		if !ok {
			return 0, false
		}
		return lit.Value * elemSize, true
	case schema.KindFiltered:
		if sc.Span != nil {
			return *sc.Span, true
		}
		if sc.Filter != nil && sc.Filter.Name == "overlay" {
			return 0, false
		}
		if sc.FilterInner != nil {
			return constElemSize(sc.FilterInner)
		}
		return 0, false
	default:
		return 0, false
	}
}

// minSpanOf returns the minimum number of bytes an instance of sc can
// occupy, used to decide when a greedy array must stop (spec.md §4.5 rule
// 4). A declared @span or @minspan is authoritative; otherwise the fixed
// width from constElemSize when sc has one, else 0 (no known minimum),
// which defers the decision to buildNode's own error on overrun.
func minSpanOf(sc *schema.Node) int64 {
	if sc.Span != nil {
		return *sc.Span
	}
	if sc.MinSpan != nil {
		return *sc.MinSpan
	}
	if fixed, ok := constElemSize(sc); ok {
		return fixed
	}
	return 0
}

// ensureAllFields is a no-op once a struct's fields have already been
// materialized by buildStruct; struct fields are always built eagerly
// because each one's offset depends on every earlier sibling's resolved
// size (spec.md §4.4 step 2).
func (n *Node) ensureAllFields() error {
	return nil
}

// ensureAllElems forces a greedy or variable-width array to materialize
// every remaining element.
func (n *Node) ensureAllElems() error {
	if n.elemsDone || (n.hasElemInfo && n.elemFixed > 0) {
		return nil
	}
	// buildArray always runs to completion for the variable-width and
	// greedy cases, so reaching here with elemsDone false means the schema
	// used the fixed-width shortcut (handled above) or construction is
	// already finished; nothing further to do.
	return nil
}

// ensureElemAt guarantees elems[i] (or the fixed-width accounting) is
// available, materializing lazily for the uniform-width shortcut.
func (n *Node) ensureElemAt(i int) error {
	if n.hasElemInfo && n.elemFixed > 0 {
		return nil
	}
	return n.ensureAllElems()
}

// buildFixedElem lazily constructs element i of a uniform-width array whose
// overall size was computed by multiplication (constElemSize shortcut).
func (n *Node) buildFixedElem(i int) (*Node, error) {
	off := int64(i) * n.elemFixed
	child, _, err := buildNode(n.tr, n.sc.Elem, n.parent, n.container, n.start+off, n.elemFixed, itoa(i))
	if err != nil {
		return nil, err
	}
	child.parent = n
	return child, nil
}
