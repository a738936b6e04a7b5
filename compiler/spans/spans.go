// Released under an MIT license. See LICENSE.

// Package spans maps compiled expressions back to their source locations.
//
// The parser records a span for the head pair of every form it builds
// when a table is attached; the cells of argument and statement lists
// get none. The table is keyed by cell handle, so it is only meaningful
// for the context the expressions were compiled in, and only while those
// cells are live.
package spans

import (
	"github.com/figlang/fig"
	"github.com/figlang/fig/compiler/loc"
)

// Span is the source extent of one compiled expression.
type Span struct {
	Start loc.T
	End   loc.T
}

// Table is a side table of spans.
type Table struct {
	m map[fig.Value]*Span
}

// New creates an empty table.
func New() *Table {
	return &Table{m: map[fig.Value]*Span{}}
}

// Record associates v with the extent from start to end.
func (t *Table) Record(v fig.Value, start, end *loc.T) {
	t.m[v] = &Span{Start: *start, End: *end}
}

// Lookup returns the span recorded for v, or nil. A nil table has no
// spans.
func (t *Table) Lookup(v fig.Value) *Span {
	if t == nil {
		return nil
	}

	return t.m[v]
}
