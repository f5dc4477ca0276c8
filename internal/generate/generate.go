// Package generate runs generation: indexing crates and writing them to the
// documentation store.
package generate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Ruin0x11/oxidoc/internal/discover"
	"github.com/Ruin0x11/oxidoc/internal/graph"
	"github.com/Ruin0x11/oxidoc/internal/index"
	"github.com/Ruin0x11/oxidoc/internal/model"
	"github.com/Ruin0x11/oxidoc/internal/store"
	"github.com/Ruin0x11/oxidoc/internal/toon"
)

// All is the generate target meaning every crate in the local registry.
const All = "all"

// Targets expands a generate target into crate directories: All lists the
// registry, anything else must be a crate directory.
func Targets(target, registry string) ([]string, error) {
	if target == All {
		crates, err := discover.Crates(registry)
		if err != nil {
			return nil, err
		}
		if len(crates) == 0 {
			return nil, fmt.Errorf("no crates found in %s", registry)
		}
		return crates, nil
	}

	dir, err := filepath.Abs(target)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", target, err)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("crate path: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s: not a directory", dir)
	}
	return []string{dir}, nil
}

// Writer is the part of the store generation writes to.
type Writer interface {
	Write(meta model.CrateMetadata, items []model.Item, opts ...store.WriteOption) error
	Fingerprint(meta model.CrateMetadata) (string, error)
}

var _ Writer = (*store.Store)(nil)

// Generator indexes crates and stores their items.
type Generator struct {
	Indexer *index.Indexer
	Store   Writer
	Logger  *slog.Logger

	// Force regenerates crates whose stored fingerprint is current.
	Force bool

	// Crates bounds how many crates are processed at once. Defaults to
	// GOMAXPROCS.
	Crates int
}

// CrateReport is the outcome for one crate.
type CrateReport struct {
	Root  string
	Crate model.CrateMetadata
	Items int

	// Fresh is set when the stored generation was already current.
	Fresh bool

	ParseErrors []error
	Orphans     []graph.Orphan
	Collisions  []*index.CollisionError

	// Err is set when the crate could not be indexed or written. Its
	// previous generation, if any, is untouched.
	Err error
}

// Status summarizes the crate outcome in one word.
func (c *CrateReport) Status() string {
	switch {
	case c.Err != nil:
		return "failed"
	case c.Fresh:
		return "fresh"
	case len(c.ParseErrors) > 0 || len(c.Collisions) > 0:
		return "partial"
	default:
		return "ok"
	}
}

// Report aggregates a generation run.
type Report struct {
	RunID    string
	Duration time.Duration
	Crates   []CrateReport
}

// Failed returns the crates that could not be generated.
func (r *Report) Failed() []CrateReport {
	var out []CrateReport
	for _, c := range r.Crates {
		if c.Err != nil {
			out = append(out, c)
		}
	}
	return out
}

// Err joins the errors of every failed crate.
func (r *Report) Err() error {
	var errs []error
	for _, c := range r.Failed() {
		errs = append(errs, fmt.Errorf("%s: %w", c.Root, c.Err))
	}
	return errors.Join(errs...)
}

func (g *Generator) logger() *slog.Logger {
	if g.Logger != nil {
		return g.Logger
	}
	return slog.Default()
}

// Run generates every crate in roots. Crate failures are recorded in the
// report and never stop the run. Run only returns an error when ctx is
// canceled; crates already written stay written.
func (g *Generator) Run(ctx context.Context, roots []string) (*Report, error) {
	start := time.Now()
	rep := &Report{RunID: uuid.NewString(), Crates: make([]CrateReport, len(roots))}
	log := g.logger().With("run", rep.RunID)
	log.Info("generating", "crates", len(roots))

	limit := g.Crates
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(limit)
	for i, root := range roots {
		i, root := i, root
		if ctx.Err() != nil {
			break
		}
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rep.Crates[i] = g.crate(ctx, log, root)
			return ctx.Err()
		})
	}
	err := eg.Wait()
	rep.Duration = time.Since(start)
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		return rep, err
	}

	log.Info("generation finished", "crates", len(roots), "failed", len(rep.Failed()), "duration", rep.Duration)
	return rep, nil
}

func (g *Generator) crate(ctx context.Context, log *slog.Logger, root string) CrateReport {
	cr := CrateReport{Root: root}

	c, err := g.Indexer.Scan(root)
	if err != nil {
		log.Warn("skipping crate", "root", root, "error", err)
		cr.Err = err
		return cr
	}
	cr.Crate = c.Meta
	log = log.With("crate", c.Meta)

	if !g.Force {
		if fp, err := g.Store.Fingerprint(c.Meta); err == nil && fp == c.Fingerprint {
			log.Debug("crate is up to date")
			cr.Fresh = true
			return cr
		}
	}

	res, err := g.Indexer.Extract(ctx, c)
	if err != nil {
		cr.Err = err
		return cr
	}
	cr.Items = len(res.Items)
	cr.ParseErrors = res.Report.ParseErrors
	cr.Orphans = res.Report.Orphans
	cr.Collisions = res.Report.Collisions

	// A partial generation records no fingerprint, so the next run indexes
	// the crate again and reports its problems instead of calling it fresh.
	opts := []store.WriteOption{store.WithSource(root)}
	if res.Report.Clean() {
		opts = append(opts, store.WithFingerprint(res.Fingerprint))
	}
	if err := g.Store.Write(res.Crate, res.Items, opts...); err != nil {
		log.Error("writing crate", "error", err)
		cr.Err = err
		return cr
	}
	log.Info("generated crate", "items", cr.Items, "parse_errors", len(cr.ParseErrors))
	return cr
}

// Text renders the report for people.
func (r *Report) Text() string {
	var b strings.Builder
	for i := range r.Crates {
		c := &r.Crates[i]
		name := c.Crate.String()
		if c.Crate.Name == "" {
			name = c.Root
		}
		fmt.Fprintf(&b, "%-7s %s (%d items)\n", c.Status(), name, c.Items)
		for _, e := range c.ParseErrors {
			fmt.Fprintf(&b, "  parse error: %v\n", e)
		}
		for _, o := range c.Orphans {
			fmt.Fprintf(&b, "  not in module tree: %s (%s)\n", o.Path, o.Reason)
		}
		for _, ce := range c.Collisions {
			fmt.Fprintf(&b, "  collision: %v\n", ce)
		}
		if c.Err != nil {
			fmt.Fprintf(&b, "  error: %v\n", c.Err)
		}
	}
	return b.String()
}

// TOON renders the report as TOON.
func (r *Report) TOON() string {
	crates := make([][]string, 0, len(r.Crates))
	var problems [][]string
	for i := range r.Crates {
		c := &r.Crates[i]
		name := c.Crate.String()
		if c.Crate.Name == "" {
			name = c.Root
		}
		crates = append(crates, []string{name, c.Status(), strconv.Itoa(c.Items)})
		for _, e := range c.ParseErrors {
			problems = append(problems, []string{name, "parse", e.Error()})
		}
		for _, o := range c.Orphans {
			problems = append(problems, []string{name, "orphan", o.Path})
		}
		for _, ce := range c.Collisions {
			problems = append(problems, []string{name, "collision", ce.Error()})
		}
		if c.Err != nil {
			problems = append(problems, []string{name, "error", c.Err.Error()})
		}
	}
	return strings.Join([]string{
		toon.Field("run", r.RunID),
		toon.Table("crates", []string{"crate", "status", "items"}, crates),
		toon.Table("problems", []string{"crate", "kind", "detail"}, problems),
	}, "\n")
}
