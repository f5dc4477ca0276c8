package store

import (
	"errors"
	"os"
	"path/filepath"

	"braces.dev/errtrace"
)

const lockFile = ".lock"

// errLocked is returned by a non-blocking acquire when another holder has
// the lock.
var errLocked = errors.New("lock held elsewhere")

// fileLock is an advisory lock on a file, shared between processes. Every
// acquire opens its own descriptor, so two Stores in one process exclude
// each other the same way two processes do.
type fileLock struct {
	f *os.File
}

func acquire(path string, exclusive, block bool) (*fileLock, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, errtrace.Wrap(err)
	}
	if err := lockFD(f, exclusive, block); err != nil {
		_ = f.Close()
		return nil, err
	}
	return &fileLock{f: f}, nil
}

func (l *fileLock) release() {
	_ = unlockFD(l.f)
	_ = l.f.Close()
}

// shared takes the store lock for reading. Readers hold it for a whole
// lookup, so they never see a crate directory between generations.
func (s *Store) shared() (*fileLock, error) {
	return acquire(s.lockPath(), false, true)
}

// exclusive takes the store lock for a swap.
func (s *Store) exclusive() (*fileLock, error) {
	return acquire(s.lockPath(), true, true)
}

func (s *Store) lockPath() string { return filepath.Join(s.root, lockFile) }
