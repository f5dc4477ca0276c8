//go:build unix

package store

import (
	"errors"
	"os"

	"braces.dev/errtrace"
	"golang.org/x/sys/unix"
)

func lockFD(f *os.File, exclusive, block bool) error {
	how := unix.LOCK_SH
	if exclusive {
		how = unix.LOCK_EX
	}
	if !block {
		how |= unix.LOCK_NB
	}
	for {
		err := unix.Flock(int(f.Fd()), how)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, unix.EINTR):
			continue
		case errors.Is(err, unix.EWOULDBLOCK):
			return errLocked
		default:
			return errtrace.Wrap(err)
		}
	}
}

func unlockFD(f *os.File) error {
	return errtrace.Wrap(unix.Flock(int(f.Fd()), unix.LOCK_UN))
}
