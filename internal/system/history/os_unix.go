// Released under an MIT license. See LICENSE.

//go:build unix

package history

import (
	"os"
	"path"

	"golang.org/x/sys/unix"
)

func file(op func(string) (*os.File, error)) (*os.File, error) {
	return op(path.Join(os.Getenv("HOME"), ".fig_history"))
}

// lock takes a shared or exclusive advisory lock on f. The lock is
// released when the file is closed.
func lock(f *os.File, exclusive bool) error {
	how := unix.LOCK_SH
	if exclusive {
		how = unix.LOCK_EX
	}

	return unix.Flock(int(f.Fd()), how)
}
