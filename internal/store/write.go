package store

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"braces.dev/errtrace"
	"github.com/BurntSushi/toml"
	"github.com/google/uuid"

	"github.com/Ruin0x11/oxidoc/internal/model"
)

// record is the on-disk form of an item. The crate and version come from
// the enclosing crate directory.
type record struct {
	Kind       model.Kind `toml:"kind"`
	Name       string     `toml:"name"`
	Path       string     `toml:"path"`
	Signature  string     `toml:"signature"`
	Visibility string     `toml:"visibility,omitempty"`
	Doc        string     `toml:"doc,omitempty"`
	File       string     `toml:"file"`
	Line       int        `toml:"line"`
}

func toRecord(it *model.Item) record {
	return record{
		Kind:       it.Kind,
		Name:       it.Name,
		Path:       it.Path.String(),
		Signature:  it.Signature,
		Visibility: it.Visibility,
		Doc:        it.Doc,
		File:       it.Source.File,
		Line:       it.Source.Line,
	}
}

func (r *record) item(meta model.CrateMetadata) (model.Item, error) {
	path, err := model.ParsePath(r.Path)
	if err != nil {
		return model.Item{}, err
	}
	it := model.Item{
		Kind:       r.Kind,
		Name:       r.Name,
		Path:       path,
		Signature:  r.Signature,
		Visibility: r.Visibility,
		Doc:        r.Doc,
		Source: model.Location{
			Crate:   meta.Name,
			Version: meta.Version,
			File:    r.File,
			Line:    r.Line,
		},
	}
	if !it.Kind.Valid() {
		return model.Item{}, fmt.Errorf("unknown item kind %q", string(it.Kind))
	}
	if err := it.Validate(); err != nil {
		return model.Item{}, err
	}
	return it, nil
}

type writeOptions struct {
	fingerprint string
	source      string
}

// WriteOption configures a single Write.
type WriteOption func(*writeOptions)

// WithFingerprint records the fingerprint of the source the items came from.
func WithFingerprint(fp string) WriteOption {
	return func(o *writeOptions) { o.fingerprint = fp }
}

// WithSource records the crate's source directory.
func WithSource(dir string) WriteOption {
	return func(o *writeOptions) { o.source = dir }
}

// Write replaces the stored generation of a crate with items. The new tree
// is built aside and swapped in, so the crate is either fully old or fully
// new. Every item must belong to meta.
func (s *Store) Write(meta model.CrateMetadata, items []model.Item, opts ...WriteOption) error {
	var o writeOptions
	for _, opt := range opts {
		opt(&o)
	}

	werr := func(op string, err error) error {
		return errtrace.Wrap(&WriteError{Crate: meta, Op: op, Err: err})
	}

	if meta.Name == "" || meta.Version == "" {
		return werr("validate", fmt.Errorf("%w: incomplete crate metadata %q", model.ErrInvalidPath, meta.String()))
	}
	dirName := meta.DirName()
	if err := model.ValidateSegment(dirName); err != nil {
		return werr("validate", err)
	}

	sorted := make([]*model.Item, len(items))
	for i := range items {
		sorted[i] = &items[i]
	}
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Path.String() < sorted[j].Path.String()
	})
	for i, it := range sorted {
		if err := it.Validate(); err != nil {
			return werr("validate", err)
		}
		if it.Path[0] != meta.Ident() || len(it.Path) < 2 {
			return werr("validate", fmt.Errorf("%w: %s is not an item of %s", model.ErrInvalidPath, it.Path, meta))
		}
		if i > 0 && it.Path.Equal(sorted[i-1].Path) {
			return werr("validate", fmt.Errorf("%w: duplicate path %s", model.ErrInvalidPath, it.Path))
		}
	}

	// The writer lock marks tmp as live so Open in another process leaves
	// it alone. It is taken before tmp exists and dropped after tmp is gone.
	tmp := filepath.Join(s.root, tmpPrefix+dirName+"-"+uuid.NewString())
	wl, err := acquire(tmp+lockFile, true, true)
	if err != nil {
		return werr("lock", err)
	}
	defer func() {
		_ = os.RemoveAll(tmp)
		wl.release()
		_ = os.Remove(tmp + lockFile)
	}()

	if err := s.build(tmp, meta, sorted, o); err != nil {
		return werr("build", err)
	}
	if err := s.swap(tmp, dirName); err != nil {
		return werr("replace", err)
	}

	s.logger.Debug("wrote crate", "crate", meta, "items", len(items))
	return nil
}

func (s *Store) build(dir string, meta model.CrateMetadata, items []*model.Item, o writeOptions) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errtrace.Wrap(err)
	}
	cm := crateMeta{Name: meta.Name, Version: meta.Version, Fingerprint: o.fingerprint, Source: o.source}
	if err := writeTOML(filepath.Join(dir, metaFile), cm); err != nil {
		return err
	}

	for _, it := range items {
		file := filepath.Join(append([]string{dir}, it.Path[1:]...)...)
		if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
			return errtrace.Wrap(err)
		}
		if err := writeTOML(file, toRecord(it)); err != nil {
			return err
		}
	}
	return nil
}

func writeTOML(path string, v any) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(v); err != nil {
		return errtrace.Wrap(fmt.Errorf("encoding %s: %w", filepath.Base(path), err))
	}
	return errtrace.Wrap(os.WriteFile(path, buf.Bytes(), 0o644))
}

// swap moves the freshly built tmp directory into place. The previous
// generation is parked under an .old- name until the new one is in place,
// and restored if that fails.
func (s *Store) swap(tmp, dirName string) error {
	final := filepath.Join(s.root, dirName)
	old := filepath.Join(s.root, oldPrefix+dirName+"-"+uuid.NewString())

	l, err := s.exclusive()
	if err != nil {
		return err
	}
	defer l.release()

	parked := false
	if _, err := os.Stat(final); err == nil {
		if err := s.rename(final, old); err != nil {
			return errtrace.Wrap(err)
		}
		parked = true
	} else if !errors.Is(err, os.ErrNotExist) {
		return errtrace.Wrap(err)
	}

	if err := s.rename(tmp, final); err != nil {
		if parked {
			if rerr := os.Rename(old, final); rerr != nil {
				return errtrace.Wrap(errors.Join(err, fmt.Errorf("restoring previous generation: %w", rerr)))
			}
		}
		return errtrace.Wrap(err)
	}

	if parked {
		if err := os.RemoveAll(old); err != nil {
			s.logger.Warn("removing previous generation", "dir", old, "error", err)
		}
	}
	return nil
}
