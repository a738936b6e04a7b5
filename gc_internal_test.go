// Released under an MIT license. See LICENSE.

package fig

import "testing"

func countFree(ctx *Context) int {
	n := 0

	for i := reserved; i < len(ctx.cells); i++ {
		if ctx.cells[i].tag == TFree {
			n++
		}
	}

	return n
}

func TestCollectReclaimsGarbage(t *testing.T) {
	ctx := Open(testArena)
	defer ctx.Close()

	save := ctx.SaveGC()

	for i := 0; i < 100; i++ {
		ctx.Cons(Fixnum(int64(i)), Nil)
	}

	ctx.RestoreGC(save)

	before := countFree(ctx)
	ctx.collect()

	if after := countFree(ctx); after <= before {
		t.Errorf("free cells before collect %d, after %d", before, after)
	}
}

func TestCollectKeepsRoots(t *testing.T) {
	ctx := Open(testArena)
	defer ctx.Close()

	v := ctx.Cons(Fixnum(1), ctx.Cons(Fixnum(2), Nil))

	ctx.collect()

	if ctx.cells[v.index()].tag == TFree {
		t.Fatal("rooted pair was swept")
	}

	if got := ctx.Text(v); got != "(1 2)" {
		t.Errorf("after collect: %s, want (1 2)", got)
	}
}

func TestGCStress(t *testing.T) {
	// A 64k-cell arena comfortably covers the 1 MiB bound.
	ctx := Open(testArena)
	defer ctx.Close()

	const n = 5000

	survivors := Nil
	save := ctx.SaveGC()

	for i := 0; i < n; i++ {
		ctx.RestoreGC(save)
		ctx.PushGC(survivors)

		// Discardable garbage.
		for j := 0; j < 20; j++ {
			ctx.Cons(Fixnum(int64(j)), Nil)
		}

		ctx.RestoreGC(save)
		ctx.PushGC(survivors)

		survivors = ctx.Cons(Fixnum(int64(i)), survivors)
	}

	count := 0

	for p := survivors; p != Nil; p = ctx.Cdr(p) {
		want := int64(n - 1 - count)
		if got := ctx.Car(p).fixnum(); got != want {
			t.Fatalf("survivor %d = %d, want %d", count, got, want)
		}

		count++
	}

	if count != n {
		t.Errorf("survivor count = %d, want %d", count, n)
	}
}

func TestThresholdAfterCollect(t *testing.T) {
	ctx := Open(testArena)
	defer ctx.Close()

	ctx.collect()

	if ctx.allocs != 0 {
		t.Errorf("allocs after collect = %d, want 0", ctx.allocs)
	}

	want := ctx.live * gcGrowth
	if want < gcThreshold {
		want = gcThreshold
	}

	if ctx.threshold != want {
		t.Errorf("threshold = %d, want %d", ctx.threshold, want)
	}
}

func TestSymbolInterning(t *testing.T) {
	ctx := Open(testArena)
	defer ctx.Close()

	a := ctx.Sym("interned")

	ctx.collect()

	if b := ctx.Sym("interned"); a != b {
		t.Errorf("re-interning returned a different cell: %v != %v", a, b)
	}
}

func TestPtrFinalizer(t *testing.T) {
	ctx := Open(testArena)
	defer ctx.Close()

	freed := 0
	ctx.Handlers().Free = func(ctx *Context, p Value) {
		freed++
	}

	save := ctx.SaveGC()
	ctx.Ptr("resource")
	ctx.RestoreGC(save)

	ctx.collect()

	if freed != 1 {
		t.Errorf("finalizer ran %d times, want 1", freed)
	}
}

func TestPtrMarkHookKeepsDependents(t *testing.T) {
	ctx := Open(testArena)
	defer ctx.Close()

	save := ctx.SaveGC()
	dep := ctx.Cons(Fixnum(1), Nil)
	ctx.RestoreGC(save)

	ctx.Handlers().Mark = func(ctx *Context, p Value) {
		ctx.Mark(dep)
	}

	p := ctx.Ptr("owner")
	_ = p

	ctx.collect()

	if ctx.cells[dep.index()].tag == TFree {
		t.Fatal("value kept alive by the mark hook was swept")
	}
}

func TestFixnumBoundary(t *testing.T) {
	ctx := Open(testArena)
	defer ctx.Close()

	if v := ctx.Num(42); !v.isFixnum() {
		t.Error("42 should be a fixnum")
	}

	if v := ctx.Num(-42); !v.isFixnum() || v.fixnum() != -42 {
		t.Error("-42 should be a fixnum")
	}

	if v := ctx.Num(0.5); v.isFixnum() {
		t.Error("0.5 should be boxed")
	}

	if v := ctx.Num(1e30); v.isFixnum() {
		t.Error("1e30 should be boxed")
	}
}

func TestGCStackOverflow(t *testing.T) {
	ctx := Open(testArena)
	defer ctx.Close()

	var err error

	func() {
		defer ctx.guard(&err)

		for {
			ctx.PushGC(ctx.Cons(Nil, Nil))
		}
	}()

	e, ok := err.(*Error)
	if !ok || e.Kind != GCStackOverflow {
		t.Errorf("got %v, want gc stack overflow", err)
	}
}

func TestOutOfMemory(t *testing.T) {
	ctx := Open(gcThreshold)
	defer ctx.Close()

	var err error

	head := Nil

	func() {
		defer ctx.guard(&err)

		save := ctx.SaveGC()

		for {
			ctx.RestoreGC(save)
			ctx.PushGC(head)

			head = ctx.Cons(Nil, head)
		}
	}()

	e, ok := err.(*Error)
	if !ok || e.Kind != OutOfMemory {
		t.Errorf("got %v, want out of memory", err)
	}
}
