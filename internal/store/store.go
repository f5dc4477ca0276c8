// Package store persists documentation items in a directory tree that
// mirrors their qualified paths:
//
//	<root>/<name>-<version>/<module>/.../<item>
//
// Each item is one TOML file. Every crate directory also holds a metadata
// file, .crate.toml, recording the crate and the fingerprint of the source
// it was generated from.
package store

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"braces.dev/errtrace"
	"github.com/BurntSushi/toml"
	"golang.org/x/mod/semver"

	"github.com/Ruin0x11/oxidoc/internal/model"
)

const (
	metaFile  = ".crate.toml"
	tmpPrefix = ".tmp-"
	oldPrefix = ".old-"
)

var (
	// ErrStoreWrite matches every *WriteError.
	ErrStoreWrite = errors.New("store write failed")

	// ErrNotFound is returned when no stored item has the requested path.
	ErrNotFound = errors.New("not found")

	// ErrCorruptEntry matches every *CorruptError.
	ErrCorruptEntry = errors.New("corrupt store entry")
)

// WriteError reports a crate whose replacement could not complete. The
// previous generation of that crate is left in place.
type WriteError struct {
	Crate model.CrateMetadata
	Op    string
	Err   error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("writing %s: %s: %v", e.Crate, e.Op, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrStoreWrite) match any *WriteError.
func (e *WriteError) Is(target error) bool { return target == ErrStoreWrite }

// CorruptError reports a stored file that could not be decoded.
type CorruptError struct {
	File string
	Err  error
}

func (e *CorruptError) Error() string { return fmt.Sprintf("corrupt entry %s: %v", e.File, e.Err) }

func (e *CorruptError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrCorruptEntry) match any *CorruptError.
func (e *CorruptError) Is(target error) bool { return target == ErrCorruptEntry }

// Store is a documentation store rooted at a directory. It is safe for
// concurrent use, including by several processes sharing the directory:
// an advisory lock on <root>/.lock is held shared by readers and
// exclusively around a swap, so readers never observe a crate directory
// mid-replacement.
type Store struct {
	root   string
	logger *slog.Logger

	rename func(oldpath, newpath string) error
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for recovery and write messages.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// Open opens the store at root, creating it if needed. Crates whose swap
// was interrupted are restored and temporary directories of writers that
// are gone are removed. Work still owned by a live writer is left alone.
func Open(root string, opts ...Option) (*Store, error) {
	s := &Store{root: root, logger: slog.Default(), rename: os.Rename}
	for _, o := range opts {
		o(s)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errtrace.Wrap(err)
	}
	if err := s.recover(); err != nil {
		return nil, err
	}
	return s, nil
}

// Root returns the store directory.
func (s *Store) Root() string { return s.root }

func (s *Store) recover() error {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return errtrace.Wrap(err)
	}

	var temps, parked []string
	seen := make(map[string]bool)
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasPrefix(name, tmpPrefix):
			base := strings.TrimSuffix(name, lockFile)
			if !seen[base] {
				seen[base] = true
				temps = append(temps, base)
			}
		case strings.HasPrefix(name, oldPrefix):
			parked = append(parked, name)
		}
	}

	for _, base := range temps {
		if err := s.removeStale(base); err != nil {
			return err
		}
	}
	if len(parked) == 0 {
		return nil
	}

	l, err := acquire(s.lockPath(), true, false)
	if errors.Is(err, errLocked) {
		s.logger.Debug("store busy, leaving parked generations", "count", len(parked))
		return nil
	} else if err != nil {
		return err
	}
	defer l.release()

	for _, name := range parked {
		final, ok := swapTarget(name)
		if !ok {
			continue
		}
		old := filepath.Join(s.root, name)
		if _, err := os.Stat(old); errors.Is(err, os.ErrNotExist) {
			// Finished by its writer since the directory was listed.
			continue
		}
		if _, err := os.Stat(filepath.Join(s.root, final)); errors.Is(err, os.ErrNotExist) {
			s.logger.Info("restoring interrupted crate", "dir", final)
			if err := os.Rename(old, filepath.Join(s.root, final)); err != nil {
				return errtrace.Wrap(err)
			}
			continue
		}
		if err := os.RemoveAll(old); err != nil {
			return errtrace.Wrap(err)
		}
	}
	return nil
}

// removeStale deletes a writer's temporary directory once nobody holds its
// writer lock. base is the directory name; its lock is base+".lock".
func (s *Store) removeStale(base string) error {
	l, err := acquire(filepath.Join(s.root, base+lockFile), true, false)
	if errors.Is(err, errLocked) {
		return nil
	} else if err != nil {
		return err
	}
	s.logger.Debug("removing stale temporary directory", "dir", base)
	err = os.RemoveAll(filepath.Join(s.root, base))
	l.release()
	_ = os.Remove(filepath.Join(s.root, base+lockFile))
	return errtrace.Wrap(err)
}

// swapTarget maps ".old-<dir>-<uuid>" back to "<dir>".
func swapTarget(name string) (string, bool) {
	const uuidLen = 36
	rest := strings.TrimPrefix(name, oldPrefix)
	if len(rest) < uuidLen+2 || rest[len(rest)-uuidLen-1] != '-' {
		return "", false
	}
	return rest[:len(rest)-uuidLen-1], true
}

type crateMeta struct {
	Name        string `toml:"name"`
	Version     string `toml:"version"`
	Fingerprint string `toml:"fingerprint,omitempty"`
	Source      string `toml:"source,omitempty"`
}

type storedCrate struct {
	dir  string
	meta crateMeta
}

func (c storedCrate) metadata() model.CrateMetadata {
	return model.CrateMetadata{Name: c.meta.Name, Version: c.meta.Version}
}

// crates lists stored crate directories ordered by name, newest version
// first. Callers must hold the shared lock.
func (s *Store) crates() ([]storedCrate, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, errtrace.Wrap(err)
	}

	var out []storedCrate
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		path := filepath.Join(s.root, e.Name(), metaFile)
		var m crateMeta
		if _, err := toml.DecodeFile(path, &m); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				s.logger.Warn("skipping crate with unreadable metadata", "dir", e.Name(), "error", err)
			}
			continue
		}
		out = append(out, storedCrate{dir: e.Name(), meta: m})
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].meta, out[j].meta
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return newer(a.Version, b.Version)
	})
	return out, nil
}

// newer orders versions by semver, descending. Versions that are not valid
// semver sort last, by string.
func newer(a, b string) bool {
	if c := semver.Compare("v"+a, "v"+b); c != 0 {
		return c > 0
	}
	return a > b
}

// Crates returns every stored crate, ordered by name with the newest
// version first.
func (s *Store) Crates() ([]model.CrateMetadata, error) {
	l, err := s.shared()
	if err != nil {
		return nil, err
	}
	defer l.release()

	stored, err := s.crates()
	if err != nil {
		return nil, err
	}
	out := make([]model.CrateMetadata, len(stored))
	for i, c := range stored {
		out[i] = c.metadata()
	}
	return out, nil
}

// Fingerprint returns the source fingerprint recorded for a stored crate,
// or ErrNotFound when the crate is not stored.
func (s *Store) Fingerprint(meta model.CrateMetadata) (string, error) {
	l, err := s.shared()
	if err != nil {
		return "", err
	}
	defer l.release()

	var m crateMeta
	_, err = toml.DecodeFile(filepath.Join(s.root, meta.DirName(), metaFile), &m)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return "", ErrNotFound
	case err != nil:
		return "", &CorruptError{File: filepath.Join(meta.DirName(), metaFile), Err: err}
	}
	return m.Fingerprint, nil
}
