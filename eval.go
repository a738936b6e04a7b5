// Released under an MIT license. See LICENSE.

package fig

import "fmt"

type opcode int

const (
	opLet opcode = iota
	opSet
	opIf
	opFn
	opMac
	opWhile
	opReturn
	opModule
	opExport
	opImport
	opGet
	opQuote
	opAnd
	opOr
	opDo
	opCons
	opCar
	opCdr
	opSetCar
	opSetCdr
	opList
	opNot
	opIs
	opAtom
	opPrint
	opLt
	opLte
	opAdd
	opSub
	opMul
	opDiv
)

//nolint:gochecknoglobals
var primnames = [...]string{
	"let", "=", "if", "fn", "mac", "while", "return",
	"module", "export", "import", "get",
	"quote", "and", "or", "do", "cons",
	"car", "cdr", "setcar", "setcdr", "list", "not", "is", "atom", "print",
	"<", "<=", "+", "-", "*", "/",
}

// Eval evaluates the form v at top level and returns its value. The
// result is left on the root stack; the host restores the stack when it
// no longer needs the result.
func (ctx *Context) Eval(v Value) (res Value, err error) {
	save := ctx.SaveGC()

	defer func() {
		if err != nil {
			ctx.RestoreGC(save)
			ctx.calllist = ctx.calllist[:0]
		}
	}()
	defer ctx.guard(&err)

	return ctx.eval(v, Nil, nil), nil
}

// Call applies fn, a func or cfunc, to a list of already evaluated
// arguments. It is meant to be used inside a CFunc; failures unwind with
// Raise to the enclosing Eval.
func (ctx *Context) Call(fn, args Value) Value {
	switch ctx.TypeOf(fn) {
	case TCFunc:
		return ctx.cells[fn.index()].ext.(CFunc)(ctx, args)

	case TFunc:
		save := ctx.SaveGC()
		ctx.PushGC(args)

		_, _, _, body := ctx.closure(fn)
		frame := ctx.frame(fn, args)

		res := ctx.dolist(body, frame)
		if ctx.isReturn(res) {
			res = ctx.Cdr(res)
		}

		ctx.RestoreGC(save)
		ctx.PushGC(res)

		return res

	default:
		ctx.Raise(CallError, "tried to call non-callable value")
	}

	return Nil
}

// getbound finds the binding pair for sym: in a closure frame, locals
// first, then upvalues; in an association-list environment, front to
// back. Unbound symbols resolve to their global slot.
func (ctx *Context) getbound(sym, env Value) Value {
	if ctx.TypeOf(env) == TPair && ctx.cells[env.index()].car == ctx.frameSym {
		rest := ctx.cells[env.index()].cdr

		for _, bindings := range []Value{ctx.Car(rest), ctx.Cdr(rest)} {
			for p := bindings; ctx.TypeOf(p) == TPair; p = ctx.cells[p.index()].cdr {
				x := ctx.cells[p.index()].car
				if ctx.cells[x.index()].car == sym {
					return x
				}
			}
		}
	} else {
		for p := env; ctx.TypeOf(p) == TPair; p = ctx.cells[p.index()].cdr {
			x := ctx.cells[p.index()].car
			if ctx.cells[x.index()].car == sym {
				return x
			}
		}
	}

	return ctx.cells[sym.index()].cdr
}

func (ctx *Context) isReturn(v Value) bool {
	return ctx.TypeOf(v) == TPair && ctx.cells[v.index()].car == ctx.returnSym
}

func (ctx *Context) evallist(lst, env Value) Value {
	res := Nil
	tail := Nil

	for lst != Nil {
		v := ctx.eval(ctx.NextArg(&lst), env, nil)

		p := ctx.Cons(v, Nil)
		if tail == Nil {
			res = p
		} else {
			ctx.SetCdr(tail, p)
		}

		tail = p
	}

	return res
}

// dolist evaluates a sequence, threading bindings introduced by let into
// the environment seen by later forms. A return value short-circuits.
func (ctx *Context) dolist(lst, env Value) Value {
	res := Nil
	save := ctx.SaveGC()

	for lst != Nil {
		ctx.RestoreGC(save)
		ctx.PushGC(lst)
		ctx.PushGC(env)

		res = ctx.eval(ctx.NextArg(&lst), env, &env)
		if ctx.isReturn(res) {
			break
		}
	}

	return res
}

// argstoenv zips parameters against arguments. Missing arguments bind to
// nil, extra arguments are dropped, and a dotted tail parameter takes the
// remaining arguments as a list.
func (ctx *Context) argstoenv(prm, arg, env Value) Value {
	for prm != Nil {
		if ctx.TypeOf(prm) != TPair {
			env = ctx.Cons(ctx.Cons(prm, arg), env)

			break
		}

		env = ctx.Cons(ctx.Cons(ctx.cells[prm.index()].car, ctx.Car(arg)), env)
		prm = ctx.cells[prm.index()].cdr
		arg = ctx.Cdr(arg)
	}

	return env
}

// closure unpacks a func or mac cell.
func (ctx *Context) closure(fn Value) (defEnv, freeVars, params, body Value) {
	guts := ctx.cells[fn.index()].cdr

	defEnv = ctx.Car(guts)
	guts = ctx.Cdr(guts)
	freeVars = ctx.Car(guts)
	guts = ctx.Cdr(guts)
	params = ctx.Car(guts)
	body = ctx.Cdr(guts)

	return defEnv, freeVars, params, body
}

// frame builds the environment for one application: upvalues looked up in
// the definition environment by the recorded free variables, locals from
// the argument list.
func (ctx *Context) frame(fn, args Value) Value {
	defEnv, freeVars, params, _ := ctx.closure(fn)

	upvals := Nil
	save := ctx.SaveGC()
	ctx.PushGC(defEnv)

	for p := freeVars; p != Nil; p = ctx.Cdr(p) {
		binding := ctx.getbound(ctx.Car(p), defEnv)
		upvals = ctx.Cons(binding, upvals)
	}

	ctx.RestoreGC(save)
	ctx.PushGC(upvals)
	ctx.PushGC(args)

	locals := ctx.argstoenv(params, args, Nil)

	return ctx.Cons(ctx.frameSym, ctx.Cons(locals, upvals))
}

func (ctx *Context) checkNum(v Value) Value {
	if v.isFixnum() {
		return v
	}

	return ctx.check(v, TNumber)
}

func (ctx *Context) evalArg(arg *Value, env Value) Value {
	return ctx.eval(ctx.NextArg(arg), env, nil)
}

func (ctx *Context) arith(arg *Value, env Value, op func(x, y float64) float64) Value {
	x := ctx.NumValue(ctx.checkNum(ctx.evalArg(arg, env)))

	for *arg != Nil {
		x = op(x, ctx.NumValue(ctx.checkNum(ctx.evalArg(arg, env))))
	}

	return ctx.Num(x)
}

func (ctx *Context) compare(arg *Value, env Value, op func(x, y float64) bool) Value {
	a := ctx.NumValue(ctx.checkNum(ctx.evalArg(arg, env)))
	b := ctx.NumValue(ctx.checkNum(ctx.evalArg(arg, env)))

	return Bool(op(a, b))
}

//nolint:gocyclo
func (ctx *Context) eval(obj, env Value, newenv *Value) Value {
	if ctx.TypeOf(obj) == TSymbol {
		return ctx.Cdr(ctx.getbound(obj, env))
	}

	if ctx.TypeOf(obj) != TPair {
		return obj
	}

	ctx.calllist = append(ctx.calllist, obj)

	save := ctx.SaveGC()
	fn := ctx.eval(ctx.cells[obj.index()].car, env, nil)
	arg := ctx.cells[obj.index()].cdr
	res := Nil

	switch ctx.TypeOf(fn) {
	case TPrim:
		res = ctx.primitive(opcode(ctx.cells[fn.index()].car.fixnum()), arg, env, newenv)

	case TCFunc:
		res = ctx.cells[fn.index()].ext.(CFunc)(ctx, ctx.evallist(arg, env))

	case TFunc:
		arg = ctx.evallist(arg, env)

		_, _, _, body := ctx.closure(fn)
		frame := ctx.frame(fn, arg)

		res = ctx.dolist(body, frame)
		if ctx.isReturn(res) {
			res = ctx.Cdr(res)
		}

	case TMacro:
		_, _, _, body := ctx.closure(fn)
		frame := ctx.frame(fn, arg)

		expansion := ctx.dolist(body, frame)

		// The expansion replaces the call site so it is never
		// re-expanded. Immediates cannot overwrite a pair cell and
		// are parked under a quote instead.
		if expansion.immediate() {
			ctx.cells[obj.index()] = cell{
				tag: TPair,
				car: ctx.quoteSym,
				cdr: ctx.Cons(expansion, Nil),
			}
		} else {
			ctx.cells[obj.index()] = ctx.cells[expansion.index()]
		}

		ctx.RestoreGC(save)
		ctx.calllist = ctx.calllist[:len(ctx.calllist)-1]

		return ctx.eval(obj, env, nil)

	default:
		ctx.Raise(CallError, "tried to call non-callable value")
	}

	ctx.RestoreGC(save)
	ctx.PushGC(res)
	ctx.calllist = ctx.calllist[:len(ctx.calllist)-1]

	return res
}

//nolint:gocyclo
func (ctx *Context) primitive(op opcode, arg, env Value, newenv *Value) Value {
	res := Nil

	switch op {
	case opLet:
		sym := ctx.check(ctx.NextArg(&arg), TSymbol)
		expr := ctx.NextArg(&arg)

		if newenv != nil {
			// Bind a placeholder first so the initializer can
			// refer to the name it is defining.
			binding := ctx.Cons(sym, Nil)

			if ctx.TypeOf(*newenv) == TPair && ctx.cells[(*newenv).index()].car == ctx.frameSym {
				rest := ctx.cells[(*newenv).index()].cdr
				locals := ctx.Cons(binding, ctx.Car(rest))
				*newenv = ctx.Cons(ctx.frameSym, ctx.Cons(locals, ctx.Cdr(rest)))
			} else {
				*newenv = ctx.Cons(binding, *newenv)
			}

			res = ctx.eval(expr, *newenv, nil)
			ctx.SetCdr(binding, res)
		} else {
			res = ctx.eval(expr, env, nil)
			ctx.Set(sym, res)
		}

	case opSet:
		sym := ctx.check(ctx.NextArg(&arg), TSymbol)
		ctx.SetCdr(ctx.getbound(sym, env), ctx.evalArg(&arg, env))

	case opIf:
		for arg != Nil {
			v := ctx.evalArg(&arg, env)
			if ctx.Truthy(v) {
				if arg == Nil {
					res = v
				} else {
					res = ctx.evalArg(&arg, env)
				}

				break
			}

			if arg == Nil {
				break
			}

			arg = ctx.Cdr(arg)
		}

	case opFn, opMac:
		params := ctx.NextArg(&arg)
		body := ctx.Car(arg)

		save := ctx.SaveGC()
		bound := ctx.boundParams(params)

		freeVars := Nil
		ctx.PushGC(freeVars)
		ctx.analyze(body, bound, &freeVars)
		ctx.RestoreGC(save)

		ctx.PushGC(freeVars)
		ctx.PushGC(params)
		ctx.PushGC(body)
		ctx.PushGC(env)

		guts := ctx.Cons(body, Nil)
		guts = ctx.Cons(params, guts)
		guts = ctx.Cons(freeVars, guts)
		guts = ctx.Cons(env, guts)

		res = ctx.alloc()

		tag := TFunc
		if op == opMac {
			tag = TMacro
		}

		ctx.cells[res.index()] = cell{tag: tag, cdr: guts}

	case opWhile:
		cond := ctx.NextArg(&arg)
		save := ctx.SaveGC()

		for ctx.Truthy(ctx.eval(cond, env, nil)) {
			ctx.dolist(arg, env)
			ctx.RestoreGC(save)
		}

	case opReturn:
		v := Nil
		if arg != Nil {
			v = ctx.evalArg(&arg, env)
		}

		res = ctx.Cons(ctx.returnSym, v)

	case opModule:
		name := ctx.evalArg(&arg, env)
		body := ctx.NextArg(&arg)

		ctx.check(name, TString)
		ctx.modstack = append(ctx.modstack, Nil)

		ctx.eval(body, env, &env)

		exports := ctx.modstack[len(ctx.modstack)-1]
		ctx.modstack = ctx.modstack[:len(ctx.modstack)-1]

		ctx.PushGC(exports)
		ctx.Set(ctx.Sym(ctx.StrValue(name)), exports)

		res = exports

	case opExport:
		if len(ctx.modstack) == 0 {
			ctx.Raise(TypeError, "export outside of module")
		}

		decl := ctx.NextArg(&arg)
		sym := ctx.check(ctx.Car(ctx.Cdr(decl)), TSymbol)

		res = ctx.eval(decl, env, &env)

		binding := ctx.Cons(sym, res)
		ctx.modstack[len(ctx.modstack)-1] = ctx.Cons(binding, ctx.modstack[len(ctx.modstack)-1])

	case opImport:
		// Module definition already installed a global. Nothing to
		// resolve yet.

	case opGet:
		table := ctx.evalArg(&arg, env)
		sym := ctx.check(ctx.NextArg(&arg), TSymbol)

		if table != Nil && ctx.TypeOf(table) != TPair {
			ctx.Raise(TypeError, "expected pair, got %s", ctx.TypeOf(table))
		}

		res = ctx.Cdr(ctx.getbound(sym, table))

	case opQuote:
		res = ctx.NextArg(&arg)

	case opAnd:
		for arg != Nil {
			res = ctx.evalArg(&arg, env)
			if !ctx.Truthy(res) {
				break
			}
		}

	case opOr:
		for arg != Nil {
			res = ctx.evalArg(&arg, env)
			if ctx.Truthy(res) {
				break
			}
		}

	case opDo:
		res = ctx.dolist(arg, env)

	case opCons:
		h := ctx.evalArg(&arg, env)
		res = ctx.Cons(h, ctx.evalArg(&arg, env))

	case opCar:
		res = ctx.Car(ctx.evalArg(&arg, env))

	case opCdr:
		res = ctx.Cdr(ctx.evalArg(&arg, env))

	case opSetCar:
		p := ctx.check(ctx.evalArg(&arg, env), TPair)
		ctx.SetCar(p, ctx.evalArg(&arg, env))

	case opSetCdr:
		p := ctx.check(ctx.evalArg(&arg, env), TPair)
		ctx.SetCdr(p, ctx.evalArg(&arg, env))

	case opList:
		res = ctx.evallist(arg, env)

	case opNot:
		res = Bool(!ctx.Truthy(ctx.evalArg(&arg, env)))

	case opIs:
		a := ctx.evalArg(&arg, env)
		res = Bool(ctx.equal(a, ctx.evalArg(&arg, env)))

	case opAtom:
		res = Bool(ctx.TypeOf(ctx.evalArg(&arg, env)) != TPair)

	case opPrint:
		for arg != Nil {
			ctx.Write(ctx.out, ctx.evalArg(&arg, env))

			if arg != Nil {
				fmt.Fprint(ctx.out, " ")
			}
		}

		fmt.Fprintln(ctx.out)

	case opLt:
		res = ctx.compare(&arg, env, func(x, y float64) bool { return x < y })

	case opLte:
		res = ctx.compare(&arg, env, func(x, y float64) bool { return x <= y })

	case opAdd:
		res = ctx.arith(&arg, env, func(x, y float64) float64 { return x + y })

	case opSub:
		switch {
		case arg == Nil:
			res = Fixnum(0)
		default:
			x := ctx.NumValue(ctx.checkNum(ctx.evalArg(&arg, env)))

			if arg == Nil {
				res = ctx.Num(-x)
			} else {
				for arg != Nil {
					x -= ctx.NumValue(ctx.checkNum(ctx.evalArg(&arg, env)))
				}

				res = ctx.Num(x)
			}
		}

	case opMul:
		res = ctx.arith(&arg, env, func(x, y float64) float64 { return x * y })

	case opDiv:
		res = ctx.arith(&arg, env, func(x, y float64) float64 { return x / y })
	}

	return res
}
