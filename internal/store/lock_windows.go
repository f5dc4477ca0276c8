//go:build windows

package store

import (
	"errors"
	"os"

	"braces.dev/errtrace"
	"golang.org/x/sys/windows"
)

func lockFD(f *os.File, exclusive, block bool) error {
	var flags uint32
	if exclusive {
		flags |= windows.LOCKFILE_EXCLUSIVE_LOCK
	}
	if !block {
		flags |= windows.LOCKFILE_FAIL_IMMEDIATELY
	}
	err := windows.LockFileEx(windows.Handle(f.Fd()), flags, 0, 1, 0, new(windows.Overlapped))
	if errors.Is(err, windows.ERROR_LOCK_VIOLATION) {
		return errLocked
	}
	return errtrace.Wrap(err)
}

func unlockFD(f *os.File) error {
	return errtrace.Wrap(windows.UnlockFileEx(windows.Handle(f.Fd()), 0, 1, 0, new(windows.Overlapped)))
}
