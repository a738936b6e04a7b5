// Released under an MIT license. See LICENSE.

package options

import (
	"testing"

	"github.com/docopt/docopt-go"
)

// parse runs the usage doc against argv without the exit-on-error
// handler so the table below can observe failures directly.
func parse(argv []string) (docopt.Opts, error) {
	var usageErr error

	parser := &docopt.Parser{
		HelpHandler: func(err error, usage string) {
			usageErr = err
		},
	}

	opts, err := parser.ParseArgs(usage, argv, "")
	if usageErr != nil {
		return nil, usageErr
	}

	return opts, err
}

func TestUsage(t *testing.T) {
	tests := []struct {
		name   string
		argv   []string
		script string
		spans  bool
		fails  bool
	}{
		{name: "bare", argv: []string{}},
		{name: "script", argv: []string{"prog.fig"}, script: "prog.fig"},
		{name: "spans", argv: []string{"--spans"}, spans: true},
		{
			name:   "spans-script",
			argv:   []string{"--spans", "prog.fig"},
			script: "prog.fig",
			spans:  true,
		},
		{name: "unknown-flag", argv: []string{"--trace"}, fails: true},
		{name: "extra-arg", argv: []string{"a.fig", "b.fig"}, fails: true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			opts, err := parse(test.argv)
			if test.fails {
				if err == nil {
					t.Fatalf("parse(%v) succeeded", test.argv)
				}

				return
			}

			if err != nil {
				t.Fatalf("parse(%v): %v", test.argv, err)
			}

			if s, _ := opts.String("SCRIPT"); s != test.script {
				t.Errorf("SCRIPT = %q, want %q", s, test.script)
			}

			if b, _ := opts.Bool("--spans"); b != test.spans {
				t.Errorf("--spans = %v, want %v", b, test.spans)
			}
		})
	}
}
