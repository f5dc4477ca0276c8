// Package index turns a crate's source tree into documentation items.
//
// Indexing only reads source. Persisting the result is the caller's job.
package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"github.com/cespare/xxhash/v2"
	"github.com/gobwas/glob"
	"golang.org/x/sync/errgroup"

	"github.com/Ruin0x11/oxidoc/internal/discover"
	"github.com/Ruin0x11/oxidoc/internal/graph"
	"github.com/Ruin0x11/oxidoc/internal/lang"
	"github.com/Ruin0x11/oxidoc/internal/manifest"
	"github.com/Ruin0x11/oxidoc/internal/model"
	"github.com/Ruin0x11/oxidoc/internal/parse"
)

// formatVersion is mixed into every fingerprint so a change in what the
// indexer extracts invalidates stored crates.
const formatVersion = "oxidoc-index-1"

// Indexer extracts items from crates. The zero value is ready to use.
type Indexer struct {
	Logger *slog.Logger

	// Exclude drops source files whose crate-relative path matches.
	Exclude []glob.Glob

	// Workers bounds concurrent parsing. Defaults to GOMAXPROCS.
	Workers int
}

// Source is one discovered file and its contents.
type Source struct {
	discover.FileEntry
	Data    []byte
	ReadErr error
}

// Crate is a scanned crate, ready for extraction.
type Crate struct {
	Root        string
	Meta        model.CrateMetadata
	Sources     []Source
	Fingerprint string
}

// Result is the outcome of indexing one crate.
type Result struct {
	Crate       model.CrateMetadata
	Items       []model.Item
	Fingerprint string
	Report      Report
}

// Report lists the file-scoped problems found while indexing a crate.
// None of them stop the crate from being indexed.
type Report struct {
	ParseErrors []error
	Orphans     []graph.Orphan
	Collisions  []*CollisionError
}

// Clean reports whether nothing went wrong.
func (r *Report) Clean() bool {
	return len(r.ParseErrors) == 0 && len(r.Orphans) == 0 && len(r.Collisions) == 0
}

// CollisionError reports an item dropped because its path was already
// taken by another item or by a module.
type CollisionError struct {
	Path  model.Path
	File  string
	Line  int
	Other string // file:line of the winner, or "module"
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("%s:%d: %s collides with %s", e.File, e.Line, e.Path, e.Other)
}

func (ix *Indexer) logger() *slog.Logger {
	if ix.Logger != nil {
		return ix.Logger
	}
	return slog.Default()
}

func (ix *Indexer) workers() int {
	if ix.Workers > 0 {
		return ix.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// Index scans and extracts the crate rooted at root.
func (ix *Indexer) Index(ctx context.Context, root string) (*Result, error) {
	c, err := ix.Scan(root)
	if err != nil {
		return nil, err
	}
	return ix.Extract(ctx, c)
}

// Scan reads the manifest and source files of the crate at root and
// fingerprints them.
func (ix *Indexer) Scan(root string) (*Crate, error) {
	meta, err := manifest.Read(root)
	if err != nil {
		return nil, err
	}
	manifestData, err := os.ReadFile(filepath.Join(root, manifest.FileName))
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}

	files, err := discover.Sources(root, discover.Options{Exclude: ix.Exclude})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", meta, err)
	}

	h := xxhash.New()
	_, _ = h.WriteString(formatVersion)
	_, _ = h.Write(manifestData)

	c := &Crate{Root: root, Meta: meta, Sources: make([]Source, len(files))}
	for i, f := range files {
		data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(f.Path)))
		c.Sources[i] = Source{FileEntry: f, Data: data, ReadErr: err}

		_, _ = h.WriteString("\x00" + f.Path + "\x00")
		if err != nil {
			_, _ = h.WriteString(err.Error())
		} else {
			_, _ = h.Write(data)
		}
	}
	c.Fingerprint = fmt.Sprintf("%016x", h.Sum64())

	ix.logger().Debug("scanned crate", "crate", meta, "files", len(files))
	return c, nil
}

type parsed struct {
	file *parse.File
	err  error
}

// Extract parses the scanned sources concurrently and builds the crate's
// items. It only fails on cancellation or on a malformed item path.
func (ix *Indexer) Extract(ctx context.Context, c *Crate) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	results := make([]parsed, len(c.Sources))

	g, gctx := errgroup.WithContext(ctx)
	work := make(chan int)
	g.Go(func() error {
		defer close(work)
		for i := range c.Sources {
			select {
			case work <- i:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	n := min(ix.workers(), max(len(c.Sources), 1))
	for i := 0; i < n; i++ {
		g.Go(func() error {
			// Parsers are not safe for concurrent use.
			parser := lang.Rust.NewParser()
			defer parser.Close()

			for idx := range work {
				src := &c.Sources[idx]
				if src.ReadErr != nil {
					results[idx].err = &parse.Error{File: src.Path, Err: src.ReadErr}
					continue
				}
				f, err := parse.Extract(gctx, parser, src.Data, src.Path)
				if err != nil && gctx.Err() != nil {
					return gctx.Err()
				}
				results[idx] = parsed{file: f, err: err}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &Result{Crate: c.Meta, Fingerprint: c.Fingerprint}
	log := ix.logger().With("crate", c.Meta)

	nodes := make([]graph.Node, len(c.Sources))
	for i, src := range c.Sources {
		nodes[i] = graph.Node{Path: src.Path, Module: src.Module, Failed: results[i].err != nil}
		if results[i].err != nil {
			log.Warn("skipping file", "error", results[i].err)
			res.Report.ParseErrors = append(res.Report.ParseErrors, results[i].err)
			continue
		}
		nodes[i].Declares = results[i].file.Mods
	}

	tree := graph.Build(nodes)
	for _, o := range tree.Orphans {
		log.Info("file is not part of the module tree", "file", o.Path, "reason", o.Reason)
	}
	res.Report.Orphans = tree.Orphans

	root := model.Path{c.Meta.Ident()}
	var candidates []model.Item
	for _, idx := range tree.Kept {
		if results[idx].err != nil {
			continue
		}
		src := &c.Sources[idx]
		for _, d := range results[idx].file.Decls {
			parent := root.Join(src.Module...).Join(d.Module...)
			loc := model.Location{Crate: c.Meta.Name, Version: c.Meta.Version, File: src.Path, Line: d.Line}
			it, err := model.NewItem(d.Kind, d.Name, parent, d.Signature, loc)
			if err != nil {
				return nil, fmt.Errorf("%s:%d: %w", src.Path, d.Line, err)
			}
			it.Visibility = d.Visibility
			it.Doc = d.Doc
			candidates = append(candidates, it)
		}
	}

	res.Items, res.Report.Collisions = merge(candidates)
	for _, ce := range res.Report.Collisions {
		log.Warn("dropping item", "error", ce)
	}
	log.Debug("extracted items", "items", len(res.Items))
	return res, nil
}

// merge orders items by path and drops duplicate paths and items that share
// a path with a module. The earliest declaration by (file, line) wins.
func merge(items []model.Item) ([]model.Item, []*CollisionError) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i].Source, items[j].Source
		if a.File != b.File {
			return a.File < b.File
		}
		return a.Line < b.Line
	})

	var collisions []*CollisionError
	seen := make(map[string]model.Location, len(items))
	kept := items[:0:0]
	for _, it := range items {
		key := it.Path.String()
		if prev, dup := seen[key]; dup {
			collisions = append(collisions, &CollisionError{
				Path:  it.Path,
				File:  it.Source.File,
				Line:  it.Source.Line,
				Other: fmt.Sprintf("%s:%d", prev.File, prev.Line),
			})
			continue
		}
		seen[key] = it.Source
		kept = append(kept, it)
	}

	modules := make(map[string]struct{})
	for _, it := range kept {
		for p := it.Path.Parent(); len(p) > 1; p = p.Parent() {
			modules[p.String()] = struct{}{}
		}
	}

	out := kept[:0:0]
	for _, it := range kept {
		if _, shadow := modules[it.Path.String()]; shadow {
			collisions = append(collisions, &CollisionError{
				Path: it.Path, File: it.Source.File, Line: it.Source.Line, Other: "module",
			})
			continue
		}
		out = append(out, it)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Path.String() < out[j].Path.String()
	})
	sort.Slice(collisions, func(i, j int) bool {
		if collisions[i].File != collisions[j].File {
			return collisions[i].File < collisions[j].File
		}
		return collisions[i].Line < collisions[j].Line
	})
	return out, collisions
}

// Errors joins every problem in the report, or returns nil.
func (r *Report) Errors() error {
	errs := append([]error(nil), r.ParseErrors...)
	for _, c := range r.Collisions {
		errs = append(errs, c)
	}
	return errors.Join(errs...)
}
