// Released under an MIT license. See LICENSE.

package fig

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Write renders v to w in display form: strings are written raw, without
// quotes. Elements inside lists are always quoted so that lists re-read.
func (ctx *Context) Write(w io.Writer, v Value) {
	ctx.write(w, v, false)
}

// Text returns the display form of v.
func (ctx *Context) Text(v Value) string {
	var b strings.Builder

	ctx.write(&b, v, false)

	return b.String()
}

// Literal returns the quoted form of v, suitable for re-reading.
func (ctx *Context) Literal(v Value) string {
	var b strings.Builder

	ctx.write(&b, v, true)

	return b.String()
}

func (ctx *Context) write(w io.Writer, v Value, quoted bool) {
	switch ctx.TypeOf(v) {
	case TNil:
		io.WriteString(w, "nil")

	case TBoolean:
		if v == True {
			io.WriteString(w, "true")
		} else {
			io.WriteString(w, "false")
		}

	case TNumber:
		if v.isFixnum() {
			io.WriteString(w, strconv.FormatInt(v.fixnum(), 10))
		} else {
			io.WriteString(w, strconv.FormatFloat(ctx.cells[v.index()].num, 'g', -1, 64))
		}

	case TPair:
		if ctx.cells[v.index()].car == ctx.frameSym {
			io.WriteString(w, "[env frame]")

			break
		}

		io.WriteString(w, "(")

		for {
			ctx.write(w, ctx.cells[v.index()].car, true)

			v = ctx.cells[v.index()].cdr
			if ctx.TypeOf(v) != TPair {
				break
			}

			io.WriteString(w, " ")
		}

		if v != Nil {
			io.WriteString(w, " . ")
			ctx.write(w, v, true)
		}

		io.WriteString(w, ")")

	case TSymbol:
		io.WriteString(w, ctx.SymName(v))

	case TString:
		s := ctx.cells[v.index()].str
		if !quoted {
			io.WriteString(w, s)

			break
		}

		io.WriteString(w, "\"")

		for i := 0; i < len(s); i++ {
			switch s[i] {
			case '"':
				io.WriteString(w, "\\\"")
			case '\\':
				io.WriteString(w, "\\\\")
			case '\n':
				io.WriteString(w, "\\n")
			case '\r':
				io.WriteString(w, "\\r")
			case '\t':
				io.WriteString(w, "\\t")
			default:
				w.Write([]byte{s[i]})
			}
		}

		io.WriteString(w, "\"")

	default:
		fmt.Fprintf(w, "[%s %#x]", ctx.TypeOf(v), int64(v))
	}
}
