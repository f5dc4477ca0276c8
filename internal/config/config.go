// Package config holds oxidoc's settings and their environment-derived
// defaults.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// Output formats.
const (
	FormatText = "text"
	FormatTOON = "toon"
)

// Config is the resolved configuration of a run.
type Config struct {
	// DocRoot is the documentation store directory.
	DocRoot string

	// Registry is the Cargo registry source tree scanned by "generate all".
	Registry string

	Match   string
	Format  string
	Exclude []string
	Workers int
}

// Default returns the configuration derived from the environment. Cargo's
// home is $CARGO_HOME, falling back to ~/.cargo.
func Default(getenv func(string) string, home func() (string, error)) (Config, error) {
	cfg := Config{Match: "exact", Format: FormatText}

	cargo := getenv("CARGO_HOME")
	if cargo == "" {
		h, err := home()
		if err != nil {
			return cfg, fmt.Errorf("locating cargo home: %w", err)
		}
		cargo = filepath.Join(h, ".cargo")
	}
	cfg.DocRoot = filepath.Join(cargo, "registry", "doc")
	cfg.Registry = filepath.Join(cargo, "registry", "src")
	return cfg, nil
}

// Validate reports every problem with the configuration.
func (c *Config) Validate() error {
	var errs []error
	if c.DocRoot == "" {
		errs = append(errs, errors.New("documentation root is not set"))
	}
	if c.Format != FormatText && c.Format != FormatTOON {
		errs = append(errs, fmt.Errorf("unknown format %q (want %s or %s)", c.Format, FormatText, FormatTOON))
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must not be negative, got %d", c.Workers))
	}
	if _, err := c.CompileExcludes(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// CompileExcludes compiles the exclude patterns. Patterns match
// crate-relative, slash-separated paths; ** crosses directories.
func (c *Config) CompileExcludes() ([]glob.Glob, error) {
	var out []glob.Glob
	for _, p := range c.Exclude {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("exclude pattern %q: %w", p, err)
		}
		out = append(out, g)
	}
	return out, nil
}
