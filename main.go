// oxidoc extracts documentation from Rust crates into an on-disk store and
// looks items up by name or path.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/peterbourgon/ff/v3"

	"github.com/Ruin0x11/oxidoc/internal/config"
	"github.com/Ruin0x11/oxidoc/internal/generate"
	"github.com/Ruin0x11/oxidoc/internal/index"
	"github.com/Ruin0x11/oxidoc/internal/model"
	"github.com/Ruin0x11/oxidoc/internal/ranking"
	"github.com/Ruin0x11/oxidoc/internal/render"
	"github.com/Ruin0x11/oxidoc/internal/resolve"
	"github.com/Ruin0x11/oxidoc/internal/store"
	"github.com/Ruin0x11/oxidoc/internal/toon"
	"github.com/Ruin0x11/oxidoc/internal/watch"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		stop()
		os.Exit(1)
	}
}

type options struct {
	cfg         config.Config
	generate    string
	list        bool
	maxResults  int
	force       bool
	watch       bool
	verbose     bool
	showVersion bool
}

func parseFlags(args []string, stderr io.Writer) (*options, *flag.FlagSet, error) {
	fs := flag.NewFlagSet("oxidoc", flag.ContinueOnError)
	fs.SetOutput(stderr)

	// Missing home only matters when no doc root is given; Validate catches it.
	cfg, _ := config.Default(os.Getenv, os.UserHomeDir)
	opts := &options{cfg: cfg}

	var exclude string
	fs.StringVar(&opts.generate, "g", "", `generate docs for "all" registry crates or a crate directory`)
	fs.StringVar(&opts.generate, "generate", "", `generate docs for "all" registry crates or a crate directory`)
	fs.StringVar(&opts.cfg.DocRoot, "doc-root", cfg.DocRoot, "documentation store directory")
	fs.StringVar(&opts.cfg.Registry, "registry", cfg.Registry, "cargo registry source directory")
	fs.StringVar(&opts.cfg.Match, "match", cfg.Match, "name matcher: "+strings.Join(resolve.MatcherNames(), ", "))
	fs.StringVar(&opts.cfg.Format, "format", cfg.Format, "output format: text or toon")
	fs.StringVar(&exclude, "exclude", "", "comma-separated globs of crate files to skip")
	fs.IntVar(&opts.cfg.Workers, "workers", 0, "parallel crates and files (0 = GOMAXPROCS)")
	fs.BoolVar(&opts.list, "list", false, "list stored items under a path prefix")
	fs.IntVar(&opts.maxResults, "n", 0, "maximum number of results")
	fs.BoolVar(&opts.force, "force", false, "regenerate crates even when up to date")
	fs.BoolVar(&opts.watch, "watch", false, "regenerate the crate directory on changes")
	fs.BoolVar(&opts.verbose, "v", false, "verbose logging")
	fs.BoolVar(&opts.showVersion, "V", false, "show version and exit")
	fs.BoolVar(&opts.showVersion, "version", false, "show version and exit")
	fs.String("config", "", "config file (one flag per line)")

	err := ff.Parse(fs, reorderArgs(args),
		ff.WithEnvVarPrefix("OXIDOC"),
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ff.PlainParser),
	)
	if err != nil {
		return nil, nil, err
	}
	if exclude != "" {
		opts.cfg.Exclude = strings.Split(exclude, ",")
	}
	return opts, fs, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	opts, fs, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	if opts.showVersion {
		_, _ = fmt.Fprintf(stdout, "oxidoc %s\n", version)
		return nil
	}

	if err := opts.cfg.Validate(); err != nil {
		return err
	}
	matcher, err := resolve.MatcherFor(opts.cfg.Match)
	if err != nil {
		return err
	}

	level := slog.LevelWarn
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	st, err := store.Open(opts.cfg.DocRoot, store.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}

	switch {
	case opts.generate != "":
		return runGenerate(ctx, opts, st, logger, stdout)
	case opts.list:
		return runList(opts, st, fs.Arg(0), stdout)
	}

	if fs.NArg() == 0 {
		fs.Usage()
		return errors.New("no query given")
	}
	return runQuery(opts, st, matcher, strings.Join(fs.Args(), " "), stdout)
}

func runGenerate(ctx context.Context, opts *options, st *store.Store, logger *slog.Logger, stdout io.Writer) error {
	if opts.watch && opts.generate == generate.All {
		return errors.New("-watch needs a crate directory, not all")
	}

	targets, err := generate.Targets(opts.generate, opts.cfg.Registry)
	if err != nil {
		return err
	}
	exclude, err := opts.cfg.CompileExcludes()
	if err != nil {
		return err
	}

	gen := &generate.Generator{
		Indexer: &index.Indexer{Logger: logger, Exclude: exclude, Workers: opts.cfg.Workers},
		Store:   st,
		Logger:  logger,
		Force:   opts.force,
		Crates:  opts.cfg.Workers,
	}

	once := func(ctx context.Context) error {
		rep, err := gen.Run(ctx, targets)
		if rep != nil {
			if opts.cfg.Format == config.FormatTOON {
				_, _ = fmt.Fprintln(stdout, rep.TOON())
			} else {
				_, _ = io.WriteString(stdout, rep.Text())
			}
		}
		if err != nil {
			return err
		}
		return rep.Err()
	}

	if err := once(ctx); err != nil && !opts.watch {
		return err
	}
	if !opts.watch {
		return nil
	}

	w := &watch.Watcher{
		Root:   targets[0],
		Logger: logger,
		OnChange: func(ctx context.Context, _ []string) error {
			return once(ctx)
		},
	}
	return w.Run(ctx)
}

func runList(opts *options, st *store.Store, arg string, stdout io.Writer) error {
	var prefix model.Path
	if arg != "" {
		p, err := model.ParsePath(arg)
		if err != nil {
			return err
		}
		prefix = p
	}

	items, err := st.List(prefix)
	if opts.maxResults > 0 && len(items) > opts.maxResults {
		items = items[:opts.maxResults]
	}
	if opts.cfg.Format == config.FormatTOON {
		_, _ = fmt.Fprintln(stdout, toon.EncodeListing(prefix, items))
	} else if werr := render.Paths(stdout, items); werr != nil {
		return werr
	}
	return err
}

func runQuery(opts *options, st *store.Store, matcher resolve.Matcher, query string, stdout io.Writer) error {
	r := resolve.Resolver{Source: st, Matcher: matcher}
	matches, err := r.Resolve(query)
	matches = ranking.Select(matches, opts.maxResults)

	switch {
	case opts.cfg.Format == config.FormatTOON:
		_, _ = fmt.Fprintln(stdout, toon.EncodeMatches(query, matches))
	case len(matches) == 0 && err == nil:
		_, _ = fmt.Fprintf(stdout, "No documentation found for %q.\n", query)
	default:
		if werr := render.Matches(stdout, matches); werr != nil {
			return werr
		}
	}
	return err
}

// flagsWithValue lists flags that take a value argument.
var flagsWithValue = map[string]bool{
	"-g": true, "--g": true,
	"-generate": true, "--generate": true,
	"-doc-root": true, "--doc-root": true,
	"-registry": true, "--registry": true,
	"-match": true, "--match": true,
	"-format": true, "--format": true,
	"-exclude": true, "--exclude": true,
	"-workers": true, "--workers": true,
	"-n": true, "--n": true,
	"-config": true, "--config": true,
}

// reorderArgs moves positional arguments after all flags so Go's flag package
// can parse them correctly (it stops at the first non-flag arg).
func reorderArgs(args []string) []string {
	var flags, positional []string
	for i := 0; i < len(args); i++ {
		if args[i] == "--" {
			positional = append(positional, args[i+1:]...)
			break
		}
		if len(args[i]) > 0 && args[i][0] == '-' {
			flags = append(flags, args[i])
			if flagsWithValue[args[i]] && i+1 < len(args) {
				i++
				flags = append(flags, args[i])
			}
		} else {
			positional = append(positional, args[i])
		}
	}
	if len(positional) == 0 {
		return flags
	}
	return append(append(flags, "--"), positional...)
}
