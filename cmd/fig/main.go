// Released under an MIT license. See LICENSE.

// Fig runs programs written in the fig language. Given a script path it
// runs the script; with stdin connected to a terminal it starts an
// interactive session; otherwise it reads the program from stdin.
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/figlang/fig"
	"github.com/figlang/fig/compiler/lexer"
	"github.com/figlang/fig/compiler/parser"
	"github.com/figlang/fig/compiler/spans"
	"github.com/figlang/fig/internal/system/options"
	"github.com/figlang/fig/internal/ui"
	"github.com/figlang/fig/lib"
)

// Cells in the interpreter arena.
const arena = 64 * 1024

type session struct {
	ctx   *fig.Context
	table *spans.Table
}

func (s *session) Evaluate(line string) {
	v, err := s.run("fig", line)
	if err != nil {
		s.report(err)

		return
	}

	fmt.Println(s.ctx.Text(v))
}

func (s *session) Complete(prefix string) []string {
	var cs []string

	for _, name := range s.ctx.Symbols() {
		if strings.HasPrefix(name, prefix) {
			cs = append(cs, name)
		}
	}

	return cs
}

func (s *session) run(name, src string) (fig.Value, error) {
	save := s.ctx.SaveGC()
	defer s.ctx.RestoreGC(save)

	v, err := parser.New(s.ctx, lexer.New(name, src), s.table).Compile()
	if err != nil {
		return fig.Nil, err
	}

	return s.ctx.Eval(v)
}

func (s *session) report(err error) {
	e, ok := err.(*fig.Error)
	if !ok {
		fmt.Fprintln(os.Stderr, "error:", err)

		return
	}

	fmt.Fprintln(os.Stderr, "error:", e.Msg)

	for _, call := range e.Calls {
		if sp := s.table.Lookup(call.Expr); sp != nil {
			fmt.Fprintf(os.Stderr, "%s => %s\n", &sp.Start, call.Text)
		} else {
			fmt.Fprintf(os.Stderr, "=> %s\n", call.Text)
		}
	}
}

func main() {
	options.Parse()

	ctx := fig.Open(arena)
	defer ctx.Close()

	lib.Register(ctx)

	s := &session{ctx: ctx}
	if options.Spans() {
		s.table = spans.New()
	}

	if options.Interactive() {
		ui.Run(s)

		return
	}

	name, src := program()

	if _, err := s.run(name, src); err != nil {
		s.report(err)
		os.Exit(status(err))
	}
}

// program returns the label and text of the program to run.
func program() (string, string) {
	if path := options.Script(); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "could not read %q: %v\n", path, err)
			os.Exit(74)
		}

		return path, string(b)
	}

	b, err := io.ReadAll(os.Stdin)
	if err != nil {
		fmt.Fprintln(os.Stderr, "could not read stdin:", err)
		os.Exit(74)
	}

	return "stdin", string(b)
}

func status(err error) int {
	if e, ok := err.(*fig.Error); ok {
		switch e.Kind {
		case fig.SyntaxError, fig.ReaderError:
			return 65
		}
	}

	return 1
}
