// Released under an MIT license. See LICENSE.

// Package loc provides the type used to track the source of tokens and
// the spans attached to compiled expressions.
package loc

import (
	"strconv"
)

// T (loc) is a lexical location.
type T struct {
	Char int    // Character position (column).
	Line int    // Line number (row).
	Name string // Label for the source of this location.
}

type loc = T

func (l *loc) String() string {
	return l.Name + ":" + strconv.Itoa(l.Line) + ":" + strconv.Itoa(l.Char)
}
