// Package discover finds crate source files and maps them onto Rust's
// module tree, and locates crate directories in a Cargo registry.
package discover

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gobwas/glob"
	ignore "github.com/sabhiram/go-gitignore"

	"github.com/Ruin0x11/oxidoc/internal/lang"
)

// ErrNoEntryPoint is returned when a crate has neither src/lib.rs nor
// src/main.rs.
var ErrNoEntryPoint = errors.New("no crate entry point (src/lib.rs or src/main.rs)")

// FileEntry represents a discovered source file.
type FileEntry struct {
	Path   string   // Relative to the crate root, slash separated
	Module []string // Module path below the crate root; empty for the root file
}

// Options tunes source discovery.
type Options struct {
	// Exclude drops files whose crate-relative path matches any pattern.
	Exclude []glob.Glob
}

var skipDirs = map[string]struct{}{
	"target": {},
	"bin":    {}, // src/bin holds separate binary crates
}

// Sources discovers the Rust files of the crate at root.
// Results are sorted by path; the root file comes first.
func Sources(root string, opts Options) ([]FileEntry, error) {
	srcDir := filepath.Join(root, "src")
	entry := "lib.rs"
	if _, err := os.Stat(filepath.Join(srcDir, entry)); err != nil {
		entry = "main.rs"
		if _, err := os.Stat(filepath.Join(srcDir, entry)); err != nil {
			return nil, ErrNoEntryPoint
		}
	}

	gitFiles := gitLsFiles(root)
	var gi *ignore.GitIgnore
	if gitFiles == nil {
		gi = loadGitignore(root)
	}

	var results []FileEntry

	err := filepath.WalkDir(srcDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // skip errors
		}

		name := d.Name()

		if d.IsDir() {
			if path == srcDir {
				return nil
			}
			if _, skip := skipDirs[name]; (skip && filepath.Dir(path) == srcDir) || strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}

		if strings.HasPrefix(name, ".") || d.Type()&os.ModeSymlink != 0 {
			return nil
		}
		if !lang.Rust.Matches(name) {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if gitFiles != nil {
			if _, ok := gitFiles[rel]; !ok {
				return nil
			}
		} else if gi != nil && gi.MatchesPath(rel) {
			return nil
		}
		for _, g := range opts.Exclude {
			if g.Match(rel) {
				return nil
			}
		}

		inSrc := strings.TrimPrefix(rel, "src/")
		if !strings.Contains(inSrc, "/") && (inSrc == "lib.rs" || inSrc == "main.rs") && inSrc != entry {
			// main.rs next to lib.rs is a separate binary crate.
			return nil
		}

		results = append(results, FileEntry{Path: rel, Module: ModulePath(inSrc)})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool {
		ri, rj := len(results[i].Module) == 0, len(results[j].Module) == 0
		if ri != rj {
			return ri
		}
		return results[i].Path < results[j].Path
	})

	return results, nil
}

// ModulePath maps a path relative to src/ onto its module path:
// lib.rs and main.rs are the root, a.rs and a/mod.rs are [a],
// a/b.rs is [a b].
func ModulePath(rel string) []string {
	rel = strings.TrimSuffix(filepath.ToSlash(rel), ".rs")
	parts := strings.Split(rel, "/")
	last := parts[len(parts)-1]
	switch {
	case len(parts) == 1 && (last == "lib" || last == "main"):
		return nil
	case last == "mod" && len(parts) > 1:
		parts = parts[:len(parts)-1]
	}
	return parts
}

// Crates lists crate directories under a registry source tree. Both the
// Cargo layout (registry/src/<index>/<crate>-<version>) and a flat directory
// of crates are accepted. Results are sorted.
func Crates(registry string) ([]string, error) {
	entries, err := os.ReadDir(registry)
	if err != nil {
		return nil, fmt.Errorf("reading registry %s: %w", registry, err)
	}

	var crates []string
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		dir := filepath.Join(registry, e.Name())
		if isCrate(dir) {
			crates = append(crates, dir)
			continue
		}
		// An index directory such as github.com-1ecc6299db9ec823.
		sub, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, s := range sub {
			if s.IsDir() && isCrate(filepath.Join(dir, s.Name())) {
				crates = append(crates, filepath.Join(dir, s.Name()))
			}
		}
	}
	sort.Strings(crates)
	return crates, nil
}

func isCrate(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, "Cargo.toml"))
	return err == nil && !info.IsDir()
}

func gitLsFiles(root string) map[string]struct{} {
	gitDir := filepath.Join(root, ".git")
	info, err := os.Stat(gitDir)
	if err != nil || !info.IsDir() {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	out, err := cmd.Output()
	if err != nil {
		return nil
	}

	files := make(map[string]struct{})
	for _, line := range strings.Split(strings.TrimRight(string(out), "\n"), "\n") {
		if line != "" {
			files[line] = struct{}{}
		}
	}
	return files
}

func loadGitignore(root string) *ignore.GitIgnore {
	path := filepath.Join(root, ".gitignore")
	gi, err := ignore.CompileIgnoreFile(path)
	if err != nil {
		return nil
	}
	return gi
}
