// Released under an MIT license. See LICENSE.

// Package ui provides an interactive session for the fig language.
package ui

import (
	"fmt"
	"os"
	"strings"

	"github.com/figlang/fig/internal/system/history"
	"github.com/peterh/liner"
)

// Evaluator is the interface for things that want to run entered lines.
type Evaluator interface {
	Evaluate(line string)
	Complete(prefix string) []string
}

// Run reads lines, offering completion and persistent history, and hands
// each non-empty line to the Evaluator. It returns at end of input.
func Run(e Evaluator) {
	cli := liner.NewLiner()
	defer cli.Close()

	cli.SetCtrlCAborts(true)

	// Missing history is a first run, not a failure.
	_ = history.Load(cli.ReadHistory)

	cli.SetWordCompleter(func(line string, pos int) (string, []string, string) {
		head, tail := line[:pos], line[pos:]

		i := len(head)
		for i > 0 && word(head[i-1]) {
			i--
		}

		return head[:i], e.Complete(head[i:]), tail
	})

	for {
		line, err := cli.Prompt("> ")

		switch err {
		case nil:
			if strings.TrimSpace(line) == "" {
				continue
			}

			cli.AppendHistory(line)
			e.Evaluate(line)

		case liner.ErrPromptAborted:
			continue

		default:
			fmt.Println()

			if err := history.Save(cli.WriteHistory); err != nil {
				fmt.Fprintln(os.Stderr, err)
			}

			return
		}
	}
}

func word(c byte) bool {
	return c == '_' || 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' ||
		'0' <= c && c <= '9'
}
