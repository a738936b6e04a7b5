// Released under an MIT license. See LICENSE.

// Package history persists interactive session history. Concurrent
// sessions serialize access to the history file with an advisory lock.
package history

import (
	"io"
	"os"
)

// Load reads saved history through read, which receives the open
// history file. The signature matches liner's ReadHistory.
func Load(read func(r io.Reader) (int, error)) error {
	f, err := file(os.Open)
	if err != nil {
		return err
	}

	if err := lock(f, false); err != nil {
		f.Close()

		return err
	}

	_, err = read(f)
	if err != nil {
		f.Close()

		return err
	}

	return f.Close()
}

// Save writes history through write, which receives the open history
// file. The signature matches liner's WriteHistory.
func Save(write func(w io.Writer) (int, error)) error {
	f, err := file(os.Create)
	if err != nil {
		return err
	}

	if err := lock(f, true); err != nil {
		f.Close()

		return err
	}

	_, err = write(f)
	if err != nil {
		f.Close()

		return err
	}

	return f.Close()
}
