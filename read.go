// Released under an MIT license. See LICENSE.

package fig

import (
	"io"
	"strconv"
	"strings"
)

const delimiters = " \n\t\r();"

// rparen is the sentinel the list reader loops on. It never escapes.
const rparen Value = -2

// Read parses one expression from r and returns it. It returns io.EOF
// when the stream is exhausted and an *Error of kind ReaderError on
// malformed input.
func (ctx *Context) Read(r io.ByteScanner) (v Value, err error) {
	defer ctx.guard(&err)

	v, ok := ctx.read(r)
	if !ok {
		return Nil, io.EOF
	}

	if v == rparen {
		ctx.Raise(ReaderError, "stray ')'")
	}

	return v, nil
}

// ReadString parses every expression in s and returns them in order.
func (ctx *Context) ReadString(s string) ([]Value, error) {
	r := strings.NewReader(s)

	var vs []Value

	for {
		v, err := ctx.Read(r)
		if err == io.EOF {
			return vs, nil
		}

		if err != nil {
			return nil, err
		}

		vs = append(vs, v)
	}
}

func next(r io.ByteScanner) byte {
	b, err := r.ReadByte()
	if err != nil {
		return 0
	}

	return b
}

func (ctx *Context) read(r io.ByteScanner) (Value, bool) {
	chr := next(r)

	for chr != 0 && strings.IndexByte(" \n\t\r", chr) >= 0 {
		chr = next(r)
	}

	switch chr {
	case 0:
		return Nil, false

	case ';':
		for chr != 0 && chr != '\n' {
			chr = next(r)
		}

		return ctx.read(r)

	case ')':
		return rparen, true

	case '(':
		res := Nil
		tail := Nil
		save := ctx.SaveGC()

		for {
			v, ok := ctx.read(r)
			if !ok {
				ctx.Raise(ReaderError, "unclosed list")
			}

			if v == rparen {
				return res, true
			}

			if ctx.TypeOf(v) == TSymbol && ctx.SymName(v) == "." {
				if tail == Nil {
					res = ctx.readExpr(r)
				} else {
					ctx.SetCdr(tail, ctx.readExpr(r))
				}
			} else {
				p := ctx.Cons(v, Nil)
				if tail == Nil {
					res = p
				} else {
					ctx.SetCdr(tail, p)
				}

				tail = p
			}

			ctx.RestoreGC(save)
			ctx.PushGC(res)
		}

	case '\'':
		v := ctx.readExpr(r)

		return ctx.Cons(ctx.quoteSym, ctx.Cons(v, Nil)), true

	case '"':
		var b strings.Builder

		for {
			chr = next(r)
			if chr == '"' {
				return ctx.Str(b.String()), true
			}

			if chr == 0 {
				ctx.Raise(ReaderError, "unclosed string")
			}

			if chr == '\\' {
				chr = next(r)
				switch chr {
				case 'n':
					chr = '\n'
				case 'r':
					chr = '\r'
				case 't':
					chr = '\t'
				}
			}

			b.WriteByte(chr)
		}

	default:
		var b strings.Builder

		for {
			if b.Len() == maxSymbolLen {
				ctx.Raise(ReaderError, "symbol too long")
			}

			b.WriteByte(chr)

			chr = next(r)
			if chr == 0 {
				break
			}

			if strings.IndexByte(delimiters, chr) >= 0 {
				_ = r.UnreadByte()

				break
			}
		}

		tok := b.String()

		if n, err := strconv.ParseFloat(tok, 64); err == nil {
			return ctx.Num(n), true
		}

		switch tok {
		case "nil":
			return Nil, true
		case "true":
			return True, true
		case "false":
			return False, true
		}

		return ctx.Sym(tok), true
	}
}

// readExpr reads a complete expression where one must follow, as after a
// quote or a dot.
func (ctx *Context) readExpr(r io.ByteScanner) Value {
	v, ok := ctx.read(r)
	if !ok {
		ctx.Raise(ReaderError, "unexpected end of input")
	}

	if v == rparen {
		ctx.Raise(ReaderError, "stray ')'")
	}

	return v
}
