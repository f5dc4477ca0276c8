// Package manifest reads crate metadata from Cargo.toml.
package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"braces.dev/errtrace"
	"github.com/BurntSushi/toml"

	"github.com/Ruin0x11/oxidoc/internal/model"
)

// FileName is the manifest file at the root of every crate.
const FileName = "Cargo.toml"

// ErrManifest matches every *Error.
var ErrManifest = errors.New("manifest error")

// Error reports a missing or malformed manifest.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string { return fmt.Sprintf("manifest %s: %v", e.Path, e.Err) }

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrManifest) match any *Error.
func (e *Error) Is(target error) bool { return target == ErrManifest }

type cargoToml struct {
	Package *struct {
		Name    string `toml:"name"`
		Version any    `toml:"version"`
	} `toml:"package"`
}

// Read loads the crate metadata of the crate rooted at dir.
func Read(dir string) (model.CrateMetadata, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return model.CrateMetadata{}, errtrace.Wrap(&Error{Path: path, Err: err})
	}
	meta, err := Parse(data)
	if err != nil {
		return model.CrateMetadata{}, errtrace.Wrap(&Error{Path: path, Err: err})
	}
	return meta, nil
}

// Parse decodes manifest contents.
func Parse(data []byte) (model.CrateMetadata, error) {
	var m cargoToml
	if _, err := toml.Decode(string(data), &m); err != nil {
		return model.CrateMetadata{}, errtrace.Wrap(err)
	}
	if m.Package == nil {
		return model.CrateMetadata{}, errtrace.Wrap(errors.New("no [package] table"))
	}

	name := strings.TrimSpace(m.Package.Name)
	if name == "" {
		return model.CrateMetadata{}, errtrace.Wrap(errors.New("package.name is empty"))
	}
	if err := model.ValidateSegment(name); err != nil {
		return model.CrateMetadata{}, errtrace.Wrap(fmt.Errorf("package.name: %w", err))
	}

	var version string
	switch v := m.Package.Version.(type) {
	case string:
		version = strings.TrimSpace(v)
	case nil:
		// Cargo defaults an absent version to 0.0.0.
		version = "0.0.0"
	default:
		// version.workspace = true and friends cannot be resolved from
		// the crate alone.
		return model.CrateMetadata{}, errtrace.Wrap(fmt.Errorf("package.version is not a string (%T)", v))
	}
	if version == "" || strings.ContainsAny(version, "/\\") {
		return model.CrateMetadata{}, errtrace.Wrap(fmt.Errorf("package.version %q is invalid", version))
	}

	return model.CrateMetadata{Name: name, Version: version}, nil
}
