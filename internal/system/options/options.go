// Released under an MIT license. See LICENSE.

// Package options provides fig's command line options.
package options

import (
	"fmt"
	"os"

	"github.com/docopt/docopt-go"
	"github.com/mattn/go-isatty"
)

//nolint:gochecknoglobals
var (
	interactive bool
	script      string
	spans       bool
	usage       = `fig

Usage:
  fig [--spans] [SCRIPT]
  fig -h

Arguments:
  SCRIPT  Path to fig script.

Options:
  --spans     Record source spans while compiling for annotated tracebacks.
  -h, --help  Display this help.

If fig's stdin is a TTY and no script path is given, fig starts an
interactive session. Otherwise the program is read from the script file
or from stdin.
`
)

// Interactive reports whether fig should start an interactive session.
func Interactive() bool {
	return interactive
}

// Parse processes the command line. A usage error prints the usage
// string and exits with status 64.
func Parse() {
	parser := &docopt.Parser{
		HelpHandler: func(err error, usage string) {
			if err == nil {
				fmt.Println(usage)
				os.Exit(0)
			}

			fmt.Fprintln(os.Stderr, usage)
			os.Exit(64)
		},
	}

	opts, err := parser.ParseArgs(usage, nil, "")
	if err != nil {
		// Error in the usage doc. This should never happen.
		panic(err.Error())
	}

	script, _ = opts.String("SCRIPT")
	spans, _ = opts.Bool("--spans")

	fd := os.Stdin.Fd()
	interactive = script == "" &&
		(isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd))
}

// Script returns the script path, or "" when none was given.
func Script() string {
	return script
}

// Spans reports whether span recording was requested.
func Spans() bool {
	return spans
}
