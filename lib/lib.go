// Released under an MIT license. See LICENSE.

// Package lib provides fig's extended built-in library.
//
// Register installs math, string, list, file, system, and type functions
// on a context as cfuncs, plus the curly-brace front end's print and
// println, which write their arguments with no separator and shadow the
// core's space-separated print. Hosts embedding the bare core can skip
// registration.
package lib

import (
	"fmt"
	"math"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/figlang/fig"
)

// Register installs the extended library in ctx's global environment.
func Register(ctx *fig.Context) {
	save := ctx.SaveGC()
	defer ctx.RestoreGC(save)

	registerMath(ctx)
	registerStrings(ctx)
	registerLists(ctx)
	registerFiles(ctx)
	registerSystem(ctx)
	registerTypes(ctx)
	registerPrint(ctx)
}

func set(ctx *fig.Context, name string, fn fig.CFunc) {
	ctx.Set(ctx.Sym(name), ctx.Func(fn))
}

// builder accumulates a list while keeping it rooted, so building a long
// list cannot overflow the root stack.
type builder struct {
	ctx  *fig.Context
	save int
	head fig.Value
	tail fig.Value
}

func newBuilder(ctx *fig.Context) *builder {
	return &builder{ctx: ctx, save: ctx.SaveGC(), head: fig.Nil, tail: fig.Nil}
}

func (b *builder) add(v fig.Value) {
	p := b.ctx.Cons(v, fig.Nil)

	if b.head == fig.Nil {
		b.head = p
	} else {
		b.ctx.SetCdr(b.tail, p)
	}
	b.tail = p

	b.ctx.RestoreGC(b.save)
	b.ctx.PushGC(b.head)
}

func (b *builder) list() fig.Value {
	return b.head
}

func registerMath(ctx *fig.Context) {
	unary := func(name string, fn func(float64) float64) {
		set(ctx, name, func(ctx *fig.Context, args fig.Value) fig.Value {
			return ctx.Num(fn(ctx.NumValue(ctx.NextArg(&args))))
		})
	}

	unary("sin", math.Sin)
	unary("cos", math.Cos)
	unary("tan", math.Tan)
	unary("abs", math.Abs)
	unary("floor", math.Floor)
	unary("ceil", math.Ceil)
	unary("round", math.Round)

	set(ctx, "sqrt", func(ctx *fig.Context, args fig.Value) fig.Value {
		n := ctx.NumValue(ctx.NextArg(&args))
		if n < 0 {
			ctx.Raise(fig.DomainError, "sqrt: negative argument")
		}

		return ctx.Num(math.Sqrt(n))
	})

	set(ctx, "log", func(ctx *fig.Context, args fig.Value) fig.Value {
		n := ctx.NumValue(ctx.NextArg(&args))
		if n <= 0 {
			ctx.Raise(fig.DomainError, "log: argument must be positive")
		}

		return ctx.Num(math.Log(n))
	})

	set(ctx, "pow", func(ctx *fig.Context, args fig.Value) fig.Value {
		b := ctx.NumValue(ctx.NextArg(&args))
		e := ctx.NumValue(ctx.NextArg(&args))

		return ctx.Num(math.Pow(b, e))
	})

	extreme := func(name string, better func(n, best float64) bool) {
		set(ctx, name, func(ctx *fig.Context, args fig.Value) fig.Value {
			best := ctx.NumValue(ctx.NextArg(&args))

			for !ctx.IsNil(args) {
				if n := ctx.NumValue(ctx.NextArg(&args)); better(n, best) {
					best = n
				}
			}

			return ctx.Num(best)
		})
	}

	extreme("min", func(n, best float64) bool { return n < best })
	extreme("max", func(n, best float64) bool { return n > best })

	registerRandom(ctx)
}

func registerRandom(ctx *fig.Context) {
	// One generator per context, seeded from the clock on first use
	// unless seedrand runs first.
	var state *sfc32

	rng := func() *sfc32 {
		if state == nil {
			state = newSFC32(uint32(time.Now().Unix()))
		}

		return state
	}

	set(ctx, "rand", func(ctx *fig.Context, args fig.Value) fig.Value {
		return ctx.Num(float64(rng().next()) / float64(math.MaxUint32))
	})

	set(ctx, "seedrand", func(ctx *fig.Context, args fig.Value) fig.Value {
		state = newSFC32(uint32(ctx.NumValue(ctx.NextArg(&args))))

		return fig.Nil
	})

	set(ctx, "randint", func(ctx *fig.Context, args fig.Value) fig.Value {
		if ctx.IsNil(args) {
			return ctx.Num(float64(rng().next()))
		}

		max := ctx.NumValue(ctx.NextArg(&args))
		if max <= 0 {
			ctx.Raise(fig.DomainError, "randint: maximum must be positive")
		}

		return ctx.Num(float64(rng().next() % uint32(max)))
	})

	set(ctx, "randbytes", func(ctx *fig.Context, args fig.Value) fig.Value {
		n := int(ctx.NumValue(ctx.NextArg(&args)))
		if n < 1 || n > 1024 {
			ctx.Raise(fig.DomainError, "randbytes: count must be between 1 and 1024")
		}

		b := newBuilder(ctx)
		for i := 0; i < n; i++ {
			b.add(fig.Fixnum(int64(rng().next() & 0xff)))
		}

		return b.list()
	})
}

func registerStrings(ctx *fig.Context) {
	set(ctx, "strlen", func(ctx *fig.Context, args fig.Value) fig.Value {
		return ctx.Num(float64(len(ctx.StrValue(ctx.NextArg(&args)))))
	})

	set(ctx, "upper", func(ctx *fig.Context, args fig.Value) fig.Value {
		return ctx.Str(strings.ToUpper(ctx.StrValue(ctx.NextArg(&args))))
	})

	set(ctx, "lower", func(ctx *fig.Context, args fig.Value) fig.Value {
		return ctx.Str(strings.ToLower(ctx.StrValue(ctx.NextArg(&args))))
	})

	set(ctx, "concat", func(ctx *fig.Context, args fig.Value) fig.Value {
		var sb strings.Builder

		for !ctx.IsNil(args) {
			sb.WriteString(ctx.Text(ctx.NextArg(&args)))
		}

		return ctx.Str(sb.String())
	})

	set(ctx, "substring", func(ctx *fig.Context, args fig.Value) fig.Value {
		s := ctx.StrValue(ctx.NextArg(&args))
		start := int(ctx.NumValue(ctx.NextArg(&args)))

		end := len(s)
		if !ctx.IsNil(args) {
			if v := ctx.NextArg(&args); !ctx.IsNil(v) {
				end = int(ctx.NumValue(v))
			}
		}

		if start < 0 {
			start = 0
		}
		if end > len(s) {
			end = len(s)
		}
		if start >= end {
			return ctx.Str("")
		}

		return ctx.Str(s[start:end])
	})

	set(ctx, "split", func(ctx *fig.Context, args fig.Value) fig.Value {
		s := ctx.StrValue(ctx.NextArg(&args))
		delim := ctx.StrValue(ctx.NextArg(&args))

		// The delimiter is a set of separator characters; empty
		// fields are dropped.
		fields := strings.FieldsFunc(s, func(r rune) bool {
			return strings.ContainsRune(delim, r)
		})

		b := newBuilder(ctx)
		for _, f := range fields {
			b.add(ctx.Str(f))
		}

		return b.list()
	})

	set(ctx, "trim", func(ctx *fig.Context, args fig.Value) fig.Value {
		return ctx.Str(strings.TrimSpace(ctx.StrValue(ctx.NextArg(&args))))
	})

	set(ctx, "contains", func(ctx *fig.Context, args fig.Value) fig.Value {
		s := ctx.StrValue(ctx.NextArg(&args))
		sub := ctx.StrValue(ctx.NextArg(&args))

		return fig.Bool(strings.Contains(s, sub))
	})
}

func registerLists(ctx *fig.Context) {
	set(ctx, "length", func(ctx *fig.Context, args fig.Value) fig.Value {
		n := 0
		for l := ctx.NextArg(&args); !ctx.IsNil(l); l = ctx.Cdr(l) {
			n++
		}

		return ctx.Num(float64(n))
	})

	set(ctx, "nth", func(ctx *fig.Context, args fig.Value) fig.Value {
		l := ctx.NextArg(&args)
		i := int(ctx.NumValue(ctx.NextArg(&args)))

		for ; i > 0 && !ctx.IsNil(l); i-- {
			l = ctx.Cdr(l)
		}

		return ctx.Car(l)
	})

	set(ctx, "append", func(ctx *fig.Context, args fig.Value) fig.Value {
		b := newBuilder(ctx)

		for !ctx.IsNil(args) {
			for l := ctx.NextArg(&args); !ctx.IsNil(l); l = ctx.Cdr(l) {
				b.add(ctx.Car(l))
			}
		}

		return b.list()
	})

	set(ctx, "reverse", func(ctx *fig.Context, args fig.Value) fig.Value {
		save := ctx.SaveGC()

		res := fig.Nil
		for l := ctx.NextArg(&args); !ctx.IsNil(l); l = ctx.Cdr(l) {
			res = ctx.Cons(ctx.Car(l), res)

			ctx.RestoreGC(save)
			ctx.PushGC(res)
		}

		return res
	})

	set(ctx, "map", func(ctx *fig.Context, args fig.Value) fig.Value {
		fn := ctx.NextArg(&args)
		b := newBuilder(ctx)

		for l := ctx.NextArg(&args); !ctx.IsNil(l); l = ctx.Cdr(l) {
			b.add(ctx.Call(fn, ctx.List(ctx.Car(l))))
		}

		return b.list()
	})

	set(ctx, "filter", func(ctx *fig.Context, args fig.Value) fig.Value {
		fn := ctx.NextArg(&args)
		b := newBuilder(ctx)

		for l := ctx.NextArg(&args); !ctx.IsNil(l); l = ctx.Cdr(l) {
			item := ctx.Car(l)
			if ctx.Truthy(ctx.Call(fn, ctx.List(item))) {
				b.add(item)
			}
		}

		return b.list()
	})

	set(ctx, "fold", func(ctx *fig.Context, args fig.Value) fig.Value {
		fn := ctx.NextArg(&args)
		acc := ctx.NextArg(&args)

		save := ctx.SaveGC()

		for l := ctx.NextArg(&args); !ctx.IsNil(l); l = ctx.Cdr(l) {
			acc = ctx.Call(fn, ctx.List(ctx.Car(l), acc))

			ctx.RestoreGC(save)
			ctx.PushGC(acc)
		}

		return acc
	})
}

func registerFiles(ctx *fig.Context) {
	set(ctx, "readfile", func(ctx *fig.Context, args fig.Value) fig.Value {
		b, err := os.ReadFile(ctx.StrValue(ctx.NextArg(&args)))
		if err != nil {
			return fig.Nil
		}

		return ctx.Str(string(b))
	})

	set(ctx, "writefile", func(ctx *fig.Context, args fig.Value) fig.Value {
		name := ctx.StrValue(ctx.NextArg(&args))
		content := ctx.Text(ctx.NextArg(&args))

		if err := os.WriteFile(name, []byte(content), 0644); err != nil {
			return fig.Nil
		}

		return ctx.Num(float64(len(content)))
	})
}

func registerSystem(ctx *fig.Context) {
	set(ctx, "time", func(ctx *fig.Context, args fig.Value) fig.Value {
		return ctx.Num(float64(time.Now().Unix()))
	})

	set(ctx, "exit", func(ctx *fig.Context, args fig.Value) fig.Value {
		code := 0
		if !ctx.IsNil(args) {
			code = int(ctx.NumValue(ctx.NextArg(&args)))
		}

		os.Exit(code)

		return fig.Nil
	})

	set(ctx, "system", func(ctx *fig.Context, args fig.Value) fig.Value {
		cmd := exec.Command("sh", "-c", ctx.StrValue(ctx.NextArg(&args)))
		cmd.Stdout = ctx.Output()
		cmd.Stderr = os.Stderr

		if err := cmd.Run(); err != nil {
			if exit, ok := err.(*exec.ExitError); ok {
				return ctx.Num(float64(exit.ExitCode()))
			}

			return ctx.Num(-1)
		}

		return ctx.Num(0)
	})
}

func registerTypes(ctx *fig.Context) {
	set(ctx, "typeof", func(ctx *fig.Context, args fig.Value) fig.Value {
		var name string

		switch ctx.TypeOf(ctx.NextArg(&args)) {
		case fig.TNil:
			name = "nil"
		case fig.TNumber:
			name = "number"
		case fig.TString:
			name = "string"
		case fig.TSymbol:
			name = "symbol"
		case fig.TPair:
			name = "pair"
		case fig.TFunc:
			name = "function"
		case fig.TMacro:
			name = "macro"
		case fig.TPrim, fig.TCFunc:
			name = "cfunction"
		case fig.TPtr:
			name = "pointer"
		case fig.TBoolean:
			name = "boolean"
		default:
			name = "unknown"
		}

		return ctx.Str(name)
	})

	set(ctx, "tostring", func(ctx *fig.Context, args fig.Value) fig.Value {
		return ctx.Str(ctx.Text(ctx.NextArg(&args)))
	})

	set(ctx, "tonumber", func(ctx *fig.Context, args fig.Value) fig.Value {
		v := ctx.NextArg(&args)

		switch ctx.TypeOf(v) {
		case fig.TNumber:
			return v

		case fig.TString:
			f, err := strconv.ParseFloat(strings.TrimSpace(ctx.StrValue(v)), 64)
			if err != nil {
				ctx.Raise(fig.DomainError, "tonumber: invalid number format")
			}

			return ctx.Num(f)
		}

		ctx.Raise(fig.TypeError, "tonumber: cannot convert to number")

		return fig.Nil
	})

	predicate := func(name string, fn func(ctx *fig.Context, v fig.Value) bool) {
		set(ctx, name, func(ctx *fig.Context, args fig.Value) fig.Value {
			return fig.Bool(fn(ctx, ctx.NextArg(&args)))
		})
	}

	predicate("isnil", func(ctx *fig.Context, v fig.Value) bool {
		return ctx.IsNil(v)
	})
	predicate("isnumber", func(ctx *fig.Context, v fig.Value) bool {
		return ctx.TypeOf(v) == fig.TNumber
	})
	predicate("isstring", func(ctx *fig.Context, v fig.Value) bool {
		return ctx.TypeOf(v) == fig.TString
	})
	predicate("islist", func(ctx *fig.Context, v fig.Value) bool {
		return ctx.TypeOf(v) == fig.TPair || ctx.IsNil(v)
	})
}

func registerPrint(ctx *fig.Context) {
	set(ctx, "print", func(ctx *fig.Context, args fig.Value) fig.Value {
		for !ctx.IsNil(args) {
			ctx.Write(ctx.Output(), ctx.NextArg(&args))
		}

		return fig.Nil
	})

	set(ctx, "println", func(ctx *fig.Context, args fig.Value) fig.Value {
		for !ctx.IsNil(args) {
			ctx.Write(ctx.Output(), ctx.NextArg(&args))
		}
		fmt.Fprintln(ctx.Output())

		return fig.Nil
	})
}
