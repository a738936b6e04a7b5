// Released under an MIT license. See LICENSE.

package fig

func (ctx *Context) listHas(list, item Value) bool {
	for ctx.TypeOf(list) == TPair {
		c := &ctx.cells[list.index()]
		if c.car == item {
			return true
		}

		list = c.cdr
	}

	return false
}

// analyze walks node and appends to *free every symbol that is referenced
// but not in bound. quote is opaque. do threads the bindings its let
// statements introduce. fn and mac bodies are analyzed against their own
// parameters and the survivors re-analyzed in the outer scope.
func (ctx *Context) analyze(node, bound Value, free *Value) {
	if ctx.TypeOf(node) != TPair {
		if ctx.TypeOf(node) == TSymbol && !ctx.listHas(bound, node) && !ctx.listHas(*free, node) {
			*free = ctx.Cons(node, *free)
		}

		return
	}

	op := ctx.cells[node.index()].car
	args := ctx.cells[node.index()].cdr

	if op == ctx.quoteSym {
		return
	}

	if op == ctx.doSym {
		local := bound
		save := ctx.SaveGC()
		ctx.PushGC(local)

		for p := args; p != Nil; p = ctx.Cdr(p) {
			stmt := ctx.Car(p)

			if ctx.TypeOf(stmt) == TPair && ctx.cells[stmt.index()].car == ctx.letSym {
				rest := ctx.cells[stmt.index()].cdr
				name := ctx.Car(rest)
				expr := ctx.Car(ctx.Cdr(rest))

				ctx.analyze(expr, local, free)

				local = ctx.Cons(name, local)
				ctx.RestoreGC(save)
				ctx.PushGC(local)
			} else {
				ctx.analyze(stmt, local, free)
			}
		}

		ctx.RestoreGC(save)

		return
	}

	if op == ctx.fnSym || op == ctx.macSym {
		params := ctx.Car(args)
		body := ctx.Car(ctx.Cdr(args))
		save := ctx.SaveGC()

		inner := ctx.boundParams(params)

		innerFree := Nil
		ctx.PushGC(innerFree)
		ctx.analyze(body, inner, &innerFree)
		ctx.RestoreGC(save)

		ctx.PushGC(innerFree)

		for p := innerFree; p != Nil; p = ctx.Cdr(p) {
			ctx.analyze(ctx.Car(p), bound, free)
		}

		ctx.RestoreGC(save)

		return
	}

	ctx.analyze(op, bound, free)

	for p := args; p != Nil; {
		if ctx.TypeOf(p) == TPair {
			ctx.analyze(ctx.Car(p), bound, free)
			p = ctx.cells[p.index()].cdr
		} else {
			// Dotted tail.
			ctx.analyze(p, bound, free)

			break
		}
	}
}

// boundParams turns a parameter list, dotted tail included, into a bound
// set for analyze.
func (ctx *Context) boundParams(params Value) Value {
	bound := Nil

	for p := params; p != Nil; {
		if ctx.TypeOf(p) != TPair {
			bound = ctx.Cons(p, bound)

			break
		}

		bound = ctx.Cons(ctx.cells[p.index()].car, bound)
		p = ctx.cells[p.index()].cdr
	}

	return bound
}
