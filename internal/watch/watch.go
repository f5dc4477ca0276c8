// Package watch regenerates a crate whenever its sources change.
package watch

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Ruin0x11/oxidoc/internal/lang"
	"github.com/Ruin0x11/oxidoc/internal/manifest"
)

// DefaultDebounce is how long the watcher waits for changes to settle.
const DefaultDebounce = 200 * time.Millisecond

// Watcher calls OnChange after a burst of changes to a crate's manifest or
// Rust sources.
type Watcher struct {
	Root     string
	Debounce time.Duration
	Logger   *slog.Logger

	// OnChange receives the changed paths, sorted. An error is logged and
	// watching continues.
	OnChange func(ctx context.Context, changed []string) error
}

// Run watches until ctx is canceled, which is not reported as an error.
func (w *Watcher) Run(ctx context.Context) error {
	log := w.Logger
	if log == nil {
		log = slog.Default()
	}
	debounce := w.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	// The crate root itself is watched for Cargo.toml, src/ recursively.
	if err := fsw.Add(w.Root); err != nil {
		return err
	}
	if _, err := addTree(fsw, filepath.Join(w.Root, "src")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	log.Info("watching crate", "root", w.Root)

	pending := make(map[string]struct{})
	timer := time.NewTimer(debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() && w.inSrc(ev.Name) {
					// Files can land before the watch is added, as with a
					// checkout or a moved-in directory.
					files, err := addTree(fsw, ev.Name)
					if err != nil {
						log.Warn("watching new directory", "path", ev.Name, "error", err)
					}
					for _, f := range files {
						pending[f] = struct{}{}
					}
					if len(files) > 0 {
						timer.Reset(debounce)
					}
					continue
				}
			}
			if !w.relevant(ev) {
				continue
			}
			pending[ev.Name] = struct{}{}
			timer.Reset(debounce)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			log.Error("watcher error", "error", err)

		case <-timer.C:
			changed := make([]string, 0, len(pending))
			for p := range pending {
				changed = append(changed, p)
			}
			sort.Strings(changed)
			clear(pending)

			log.Debug("sources changed", "files", len(changed))
			if err := w.OnChange(ctx, changed); err != nil {
				log.Error("regenerating", "error", err)
			}
		}
	}
}

func (w *Watcher) inSrc(path string) bool {
	rel, err := filepath.Rel(filepath.Join(w.Root, "src"), path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return false
	}
	if filepath.Dir(ev.Name) == filepath.Clean(w.Root) {
		return filepath.Base(ev.Name) == manifest.FileName
	}
	if !w.inSrc(ev.Name) {
		return false
	}
	if lang.Rust.Matches(ev.Name) {
		return true
	}
	// A removed directory can no longer be inspected; treat an
	// extensionless path as one that may have held sources.
	return (ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename)) && filepath.Ext(ev.Name) == ""
}

// addTree watches root and every non-hidden directory below it, and
// returns the Rust files already present.
func addTree(fsw *fsnotify.Watcher, root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			if lang.Rust.Matches(path) {
				files = append(files, path)
			}
			return nil
		}
		return fsw.Add(path)
	})
	return files, err
}
