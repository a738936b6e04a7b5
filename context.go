// Released under an MIT license. See LICENSE.

package fig

import (
	"io"
	"os"
	"sort"
)

// CFunc is a host function callable from fig code. It receives its already
// evaluated arguments as a list. A CFunc reports failure with Raise.
type CFunc func(ctx *Context, args Value) Value

// Handlers are the context-wide hooks a host may install. Error observes
// every raised error before it is returned from Read or Eval.
// Mark and Free extend the collector to the host values inside Ptr cells.
// Free must not allocate.
type Handlers struct {
	Error func(ctx *Context, msg string, calls []Trace)
	Mark  func(ctx *Context, p Value)
	Free  func(ctx *Context, p Value)
}

const (
	gcStackSize  = 1024
	gcGrowth     = 2
	gcDivisor    = 4
	gcThreshold  = 1024
	maxSymbolLen = 63
)

type cell struct {
	tag  Type
	mark bool
	car  Value
	cdr  Value
	num  float64
	str  string
	ext  any
}

// Context is a single-threaded fig interpreter instance. All values live
// in its arena; handles from one context are meaningless in another.
type Context struct {
	cells    []cell
	freelist Value
	gcstack  []Value
	calllist []Value
	modstack []Value
	symlist  Value
	syms     map[string]Value
	handlers Handlers
	out      io.Writer

	live      int
	allocs    int
	threshold int

	returnSym Value
	frameSym  Value
	doSym     Value
	letSym    Value
	quoteSym  Value
	fnSym     Value
	macSym    Value
}

// Open creates a context whose arena holds n cells. Open panics if n is
// too small to hold the reserved cells and the primitives.
func Open(n int) *Context {
	if n < gcThreshold {
		panic("fig: arena too small")
	}

	ctx := &Context{
		cells:   make([]cell, n),
		gcstack: make([]Value, 0, gcStackSize),
		syms:    map[string]Value{},
		out:     os.Stdout,
	}

	ctx.cells[Nil.index()] = cell{tag: TNil}
	ctx.cells[False.index()] = cell{tag: TBoolean}
	ctx.cells[True.index()] = cell{tag: TBoolean}

	ctx.freelist = Nil
	for i := reserved; i < n; i++ {
		ctx.cells[i] = cell{tag: TFree, cdr: ctx.freelist}
		ctx.freelist = handle(i)
	}

	ctx.threshold = n / gcDivisor
	if ctx.threshold < gcThreshold {
		ctx.threshold = gcThreshold
	}

	save := ctx.SaveGC()

	for op, name := range primnames {
		v := ctx.alloc()
		ctx.cells[v.index()] = cell{tag: TPrim, car: Fixnum(int64(op))}
		ctx.Set(ctx.Sym(name), v)
		ctx.RestoreGC(save)
	}

	ctx.returnSym = ctx.Sym("return")
	ctx.frameSym = ctx.Sym("[frame]")
	ctx.doSym = ctx.Sym("do")
	ctx.letSym = ctx.Sym("let")
	ctx.quoteSym = ctx.Sym("quote")
	ctx.fnSym = ctx.Sym("fn")
	ctx.macSym = ctx.Sym("mac")

	return ctx
}

// Close drops every root and runs a final collection so that Ptr cells
// are finalized. The context must not be used afterwards.
func (ctx *Context) Close() {
	ctx.gcstack = ctx.gcstack[:0]
	ctx.calllist = nil
	ctx.modstack = nil
	ctx.symlist = Nil
	ctx.syms = map[string]Value{}

	ctx.collect()
}

// Handlers returns the context's hooks for the host to modify.
func (ctx *Context) Handlers() *Handlers {
	return &ctx.handlers
}

// SetOutput redirects the print primitives, which write to the context's
// standard output by default.
func (ctx *Context) SetOutput(w io.Writer) {
	ctx.out = w
}

// Output returns the writer the print primitives use.
func (ctx *Context) Output() io.Writer {
	return ctx.out
}

func (ctx *Context) alloc() Value {
	if ctx.allocs >= ctx.threshold || ctx.freelist == Nil {
		ctx.collect()

		if ctx.freelist == Nil {
			ctx.Raise(OutOfMemory, "out of memory")
		}
	}

	v := ctx.freelist
	ctx.freelist = ctx.cells[v.index()].cdr

	ctx.allocs++
	ctx.PushGC(v)

	return v
}

// Cons makes a new pair from h and t.
func (ctx *Context) Cons(h, t Value) Value {
	v := ctx.alloc()
	ctx.cells[v.index()] = cell{tag: TPair, car: h, cdr: t}

	return v
}

// Num returns the value of f: a fixnum when f is integral and in range,
// a boxed number cell otherwise.
func (ctx *Context) Num(f float64) Value {
	i := int64(f)
	if float64(i) == f && Fixnum(i).fixnum() == i {
		return Fixnum(i)
	}

	v := ctx.alloc()
	ctx.cells[v.index()] = cell{tag: TNumber, num: f}

	return v
}

// Str makes a string cell holding s.
func (ctx *Context) Str(s string) Value {
	v := ctx.alloc()
	ctx.cells[v.index()] = cell{tag: TString, str: s}

	return v
}

// Sym interns name. Two interned symbols with the same name are the same
// cell. The cdr of a symbol is its global binding pair.
func (ctx *Context) Sym(name string) Value {
	if v, ok := ctx.syms[name]; ok {
		return v
	}

	v := ctx.alloc()
	ctx.cells[v.index()] = cell{tag: TSymbol, cdr: Nil}

	slot := ctx.Cons(ctx.Str(name), Nil)
	ctx.cells[v.index()].cdr = slot

	ctx.symlist = ctx.Cons(v, ctx.symlist)
	ctx.syms[name] = v

	return v
}

// Symbols returns the names of all interned symbols, sorted.
func (ctx *Context) Symbols() []string {
	names := make([]string, 0, len(ctx.syms))
	for name := range ctx.syms {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Func makes a cfunc cell for the host function fn.
func (ctx *Context) Func(fn CFunc) Value {
	v := ctx.alloc()
	ctx.cells[v.index()] = cell{tag: TCFunc, ext: fn}

	return v
}

// Ptr makes a cell holding an opaque host value. The collector reports
// such cells to the Mark and Free handlers.
func (ctx *Context) Ptr(p any) Value {
	v := ctx.alloc()
	ctx.cells[v.index()] = cell{tag: TPtr, ext: p}

	return v
}

// List makes a list of vs.
func (ctx *Context) List(vs ...Value) Value {
	res := Nil
	for i := len(vs) - 1; i >= 0; i-- {
		res = ctx.Cons(vs[i], res)
	}

	return res
}

// Car returns the head of v. The car of nil is nil.
func (ctx *Context) Car(v Value) Value {
	if v == Nil {
		return Nil
	}

	return ctx.cells[ctx.check(v, TPair).index()].car
}

// Cdr returns the tail of v. The cdr of nil is nil.
func (ctx *Context) Cdr(v Value) Value {
	if v == Nil {
		return Nil
	}

	return ctx.cells[ctx.check(v, TPair).index()].cdr
}

// SetCar replaces the head of the pair v.
func (ctx *Context) SetCar(v, h Value) {
	ctx.cells[ctx.check(v, TPair).index()].car = h
}

// SetCdr replaces the tail of the pair v.
func (ctx *Context) SetCdr(v, t Value) {
	ctx.cells[ctx.check(v, TPair).index()].cdr = t
}

// NumValue returns v as a float64.
func (ctx *Context) NumValue(v Value) float64 {
	if v.isFixnum() {
		return float64(v.fixnum())
	}

	return ctx.cells[ctx.check(v, TNumber).index()].num
}

// StrValue returns the bytes of the string v.
func (ctx *Context) StrValue(v Value) string {
	return ctx.cells[ctx.check(v, TString).index()].str
}

// SymName returns the name of the symbol v.
func (ctx *Context) SymName(v Value) string {
	slot := ctx.cells[ctx.check(v, TSymbol).index()].cdr

	return ctx.cells[ctx.Car(slot).index()].str
}

// PtrValue returns the host value inside the ptr cell v.
func (ctx *Context) PtrValue(v Value) any {
	return ctx.cells[ctx.check(v, TPtr).index()].ext
}

// Set binds the global slot of the symbol sym to v.
func (ctx *Context) Set(sym, v Value) {
	slot := ctx.getbound(ctx.check(sym, TSymbol), Nil)
	ctx.SetCdr(slot, v)
}

// Get returns the global binding of the symbol sym, or nil when unbound.
func (ctx *Context) Get(sym Value) Value {
	return ctx.Cdr(ctx.getbound(ctx.check(sym, TSymbol), Nil))
}

// NextArg pops the next argument from a list. It mirrors how primitives
// consume their arguments and raises when the list runs dry or dots.
func (ctx *Context) NextArg(args *Value) Value {
	a := *args
	if ctx.TypeOf(a) != TPair {
		if a == Nil {
			ctx.Raise(ArityError, "too few arguments")
		}

		ctx.Raise(ArityError, "dotted pair in argument list")
	}

	*args = ctx.cells[a.index()].cdr

	return ctx.cells[a.index()].car
}

// check returns v if it has the wanted type and raises otherwise.
// Fixnums satisfy TNumber.
func (ctx *Context) check(v Value, want Type) Value {
	actual := ctx.TypeOf(v)

	if actual != want {
		ctx.Raise(TypeError, "expected %s, got %s", want, actual)
	}

	return v
}
