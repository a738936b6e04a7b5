// Released under an MIT license. See LICENSE.

package lib

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/figlang/fig"
	"github.com/figlang/fig/compiler/parser"
)

const testArena = 64 * 1024

func open(t *testing.T) *fig.Context {
	t.Helper()

	ctx := fig.Open(testArena)
	t.Cleanup(ctx.Close)

	Register(ctx)

	return ctx
}

func run(t *testing.T, ctx *fig.Context, src string) fig.Value {
	t.Helper()

	v, err := parser.Run(ctx, "test", src)
	if err != nil {
		t.Fatalf("run %q: %v", src, err)
	}

	return v
}

func TestFunctions(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"sqrt", "sqrt(9);", "3"},
		{"sin", "sin(0);", "0"},
		{"cos", "cos(0);", "1"},
		{"tan", "tan(0);", "0"},
		{"abs", "abs(-2);", "2"},
		{"floor", "floor(3.7);", "3"},
		{"ceil", "ceil(3.2);", "4"},
		{"round", "round(2.5);", "3"},
		{"min", "min(3, 1, 2);", "1"},
		{"max", "max(3, 1, 2);", "3"},
		{"pow", "pow(2, 10);", "1024"},
		{"log", "log(1);", "0"},

		{"strlen", `strlen("hello");`, "5"},
		{"upper", `upper("hi there");`, "HI THERE"},
		{"lower", `lower("STOP");`, "stop"},
		{"concat", `concat("a", "b", 1);`, "ab1"},
		{"substring", `substring("hello", 1, 3);`, "el"},
		{"substring-to-end", `substring("hello", 3);`, "lo"},
		{"substring-clamped", `substring("hi", 0 - 5, 99);`, "hi"},
		{"substring-empty", `substring("hi", 1, 1);`, ""},
		{"split", `split("a,b,,c", ",");`, `("a" "b" "c")`},
		{"split-set", `split("a, b;c", ",; ");`, `("a" "b" "c")`},
		{"trim", `trim("  pad  ");`, "pad"},
		{"contains-yes", `contains("haystack", "stack");`, "true"},
		{"contains-no", `contains("haystack", "needle");`, "false"},

		{"length", "length([1, 2, 3]);", "3"},
		{"length-empty", "length([]);", "0"},
		{"nth", "nth([10, 20, 30], 1);", "20"},
		{"nth-past-end", "nth([10], 5);", "nil"},
		{"append", "append([1, 2], [3], [4, 5]);", "(1 2 3 4 5)"},
		{"reverse", "reverse([1, 2, 3]);", "(3 2 1)"},
		{"map", "map(fn(x) { return x * x; }, [1, 2, 3]);", "(1 4 9)"},
		{"filter", "filter(fn(x) { return x < 3; }, [1, 2, 3, 4]);", "(1 2)"},
		{"fold", "fold(fn(x, acc) { return acc + x; }, 0, [1, 2, 3, 4]);", "10"},
		{"fold-order", `fold(fn(x, acc) { return concat(acc, x); }, "", [1, 2]);`, "12"},

		{"typeof-number", "typeof(1);", "number"},
		{"typeof-string", `typeof("x");`, "string"},
		{"typeof-pair", "typeof([1]);", "pair"},
		{"typeof-nil", "typeof(nil);", "nil"},
		{"typeof-boolean", "typeof(true);", "boolean"},
		{"typeof-function", "typeof(fn(x) { x; });", "function"},
		{"typeof-cfunction", "typeof(typeof);", "cfunction"},
		{"tostring", "tostring(42);", "42"},
		{"tostring-list", "tostring([1, 2]);", "(1 2)"},
		{"tonumber-number", "tonumber(42);", "42"},
		{"tonumber-string", `tonumber("3.5");`, "3.5"},
		{"tonumber-padded", `tonumber(" 42 ");`, "42"},
		{"isnil-yes", "isnil(nil);", "true"},
		{"isnil-no", "isnil(0);", "false"},
		{"isnumber", "isnumber(3.14);", "true"},
		{"isnumber-no", `isnumber("3.14");`, "false"},
		{"isstring", `isstring("s");`, "true"},
		{"islist-pair", "islist([1]);", "true"},
		{"islist-nil", "islist(nil);", "true"},
		{"islist-no", "islist(1);", "false"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := open(t)

			if got := ctx.Text(run(t, ctx, tt.src)); got != tt.want {
				t.Errorf("%s = %s, want %s", tt.src, got, tt.want)
			}
		})
	}
}

func TestErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		kind fig.Kind
		want string
	}{
		{"sqrt-negative", "sqrt(-1);", fig.DomainError, "negative"},
		{"log-zero", "log(0);", fig.DomainError, "positive"},
		{"randint-zero", "randint(0);", fig.DomainError, "positive"},
		{"randbytes-range", "randbytes(4096);", fig.DomainError, "between"},
		{"tonumber-bad", `tonumber("7up");`, fig.DomainError, "invalid"},
		{"tonumber-pair", "tonumber([1]);", fig.TypeError, "convert"},
		{"strlen-number", "strlen(7);", fig.TypeError, "expected string"},
		{"min-no-args", "min();", fig.ArityError, "too few"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := open(t)

			_, err := parser.Run(ctx, "test", tt.src)

			e, ok := err.(*fig.Error)
			if !ok {
				t.Fatalf("run %q: expected an error, got %v", tt.src, err)
			}

			if e.Kind != tt.kind {
				t.Errorf("run %q: kind = %v, want %v", tt.src, e.Kind, tt.kind)
			}

			if !strings.Contains(e.Msg, tt.want) {
				t.Errorf("run %q: message %q does not mention %q", tt.src, e.Msg, tt.want)
			}
		})
	}
}

func TestRandom(t *testing.T) {
	ctx := open(t)

	if got := ctx.Text(run(t, ctx, `
		seedrand(1);
		let a = randint(1000000);
		seedrand(1);
		let b = randint(1000000);
		a == b;`)); got != "true" {
		t.Error("same seed produced different values")
	}

	v := run(t, ctx, "seedrand(7); rand();")
	if f := ctx.NumValue(v); f < 0 || f > 1 {
		t.Errorf("rand() = %v, want a value in [0, 1]", f)
	}

	for i := 0; i < 100; i++ {
		v := run(t, ctx, "randint(10);")
		if n := ctx.NumValue(v); n < 0 || n > 9 {
			t.Fatalf("randint(10) = %v, out of range", n)
		}
	}

	if got := ctx.Text(run(t, ctx, "length(randbytes(16));")); got != "16" {
		t.Errorf("randbytes(16) length = %s", got)
	}

	if got := ctx.Text(run(t, ctx,
		"filter(fn(b) { return b < 0 or 255 < b; }, randbytes(64));")); got != "nil" {
		t.Errorf("randbytes values out of range: %s", got)
	}
}

func TestFiles(t *testing.T) {
	ctx := open(t)

	path := filepath.Join(t.TempDir(), "note.txt")

	src := fmt.Sprintf(`writefile("%s", "hello file");`, path)
	if got := ctx.Text(run(t, ctx, src)); got != "10" {
		t.Errorf("writefile = %s, want 10", got)
	}

	b, err := os.ReadFile(path)
	if err != nil || string(b) != "hello file" {
		t.Errorf("written file holds %q, %v", b, err)
	}

	src = fmt.Sprintf(`readfile("%s");`, path)
	if got := ctx.Text(run(t, ctx, src)); got != "hello file" {
		t.Errorf("readfile = %q", got)
	}

	if got := run(t, ctx, `readfile("/no/such/file");`); !ctx.IsNil(got) {
		t.Errorf("readfile of a missing file = %s", ctx.Text(got))
	}
}

func TestPrint(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"print", `print("a", "b", 1);`, "ab1"},
		{"println", `println("total:", 3);`, "total:3\n"},
		{"println-empty", "println();", "\n"},
		{"print-unquoted", `print("no \"quotes\"");`, `no "quotes"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := open(t)

			var sb strings.Builder
			ctx.SetOutput(&sb)

			run(t, ctx, tt.src)

			if got := sb.String(); got != tt.want {
				t.Errorf("%s wrote %q, want %q", tt.src, got, tt.want)
			}
		})
	}
}

func TestShadowsCorePrint(t *testing.T) {
	// Registration rebinds print; the core primitive separates its
	// arguments with spaces, the library version does not.
	ctx := fig.Open(testArena)
	defer ctx.Close()

	var sb strings.Builder
	ctx.SetOutput(&sb)

	if _, err := parser.Run(ctx, "test", `print("a", "b");`); err != nil {
		t.Fatal(err)
	}

	if got := sb.String(); got != "a b\n" {
		t.Fatalf("core print wrote %q", got)
	}

	sb.Reset()
	Register(ctx)

	if _, err := parser.Run(ctx, "test", `print("a", "b");`); err != nil {
		t.Fatal(err)
	}

	if got := sb.String(); got != "ab" {
		t.Errorf("library print wrote %q", got)
	}
}
