package store

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"braces.dev/errtrace"
	"github.com/BurntSushi/toml"

	"github.com/Ruin0x11/oxidoc/internal/model"
)

// Read returns the item stored at path. The first segment names the crate;
// every stored version of it is tried, newest first, so an item dropped from
// a later release is still found in an earlier one.
func (s *Store) Read(path model.Path) (model.Item, error) {
	if len(path) < 2 {
		return model.Item{}, ErrNotFound
	}

	l, err := s.shared()
	if err != nil {
		return model.Item{}, err
	}
	defer l.release()

	stored, err := s.crates()
	if err != nil {
		return model.Item{}, err
	}
	for _, c := range stored {
		if c.metadata().Ident() != path[0] {
			continue
		}
		it, err := s.readItem(c, path)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		return it, err
	}
	return model.Item{}, ErrNotFound
}

func (s *Store) readItem(c storedCrate, path model.Path) (model.Item, error) {
	for _, seg := range path {
		if model.ValidateSegment(seg) != nil {
			return model.Item{}, ErrNotFound
		}
	}
	rel := filepath.Join(append([]string{c.dir}, path[1:]...)...)
	info, err := os.Stat(filepath.Join(s.root, rel))
	if err != nil || info.IsDir() {
		return model.Item{}, ErrNotFound
	}
	it, err := s.decode(c, rel)
	if err != nil {
		return model.Item{}, err
	}
	if !it.Path.Equal(path) {
		return model.Item{}, &CorruptError{File: rel, Err: errors.New("stored path " + it.Path.String() + " does not match location")}
	}
	return it, nil
}

func (s *Store) decode(c storedCrate, rel string) (model.Item, error) {
	var r record
	if _, err := toml.DecodeFile(filepath.Join(s.root, rel), &r); err != nil {
		return model.Item{}, &CorruptError{File: rel, Err: err}
	}
	it, err := r.item(c.metadata())
	if err != nil {
		return model.Item{}, &CorruptError{File: rel, Err: err}
	}
	return it, nil
}

// List returns every stored item whose path starts with prefix, across all
// stored versions. An empty prefix lists the whole store. Items are ordered
// by path, then newest version first.
//
// Entries that fail to decode are skipped and reported together as a joined
// error next to the items that did decode.
func (s *Store) List(prefix model.Path) ([]model.Item, error) {
	l, err := s.shared()
	if err != nil {
		return nil, err
	}
	defer l.release()

	stored, err := s.crates()
	if err != nil {
		return nil, err
	}

	var (
		items   []model.Item
		corrupt []error
	)
	for _, c := range stored {
		if len(prefix) > 0 && c.metadata().Ident() != prefix[0] {
			continue
		}
		found, errs, err := s.walk(c, prefix)
		if err != nil {
			return nil, err
		}
		items = append(items, found...)
		corrupt = append(corrupt, errs...)
	}

	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i].Path.String(), items[j].Path.String()
		if a != b {
			return a < b
		}
		if items[i].Source.Crate != items[j].Source.Crate {
			return items[i].Source.Crate < items[j].Source.Crate
		}
		return newer(items[i].Source.Version, items[j].Source.Version)
	})
	return items, errors.Join(corrupt...)
}

func (s *Store) walk(c storedCrate, prefix model.Path) ([]model.Item, []error, error) {
	start := c.dir
	if len(prefix) > 1 {
		for _, seg := range prefix[1:] {
			if model.ValidateSegment(seg) != nil {
				return nil, nil, nil
			}
		}
		start = filepath.Join(append([]string{c.dir}, prefix[1:]...)...)
	}

	info, err := os.Stat(filepath.Join(s.root, start))
	if err != nil {
		return nil, nil, nil
	}
	if !info.IsDir() {
		it, err := s.decode(c, start)
		if err != nil {
			return nil, []error{err}, nil
		}
		return []model.Item{it}, nil, nil
	}

	var (
		items   []model.Item
		corrupt []error
	)
	err = filepath.WalkDir(filepath.Join(s.root, start), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		it, err := s.decode(c, rel)
		if err != nil {
			corrupt = append(corrupt, err)
			return nil
		}
		items = append(items, it)
		return nil
	})
	if err != nil {
		return nil, nil, errtrace.Wrap(err)
	}
	return items, corrupt, nil
}
