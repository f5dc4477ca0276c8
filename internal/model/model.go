// Package model defines the documentation items oxidoc extracts and stores.
package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidPath is returned when an item name or path segment cannot be
// used as part of a qualified path.
var ErrInvalidPath = errors.New("invalid path")

// Kind is the syntactic kind of a documented item.
type Kind string

const (
	Function Kind = "fn"
	Struct   Kind = "struct"
	Trait    Kind = "trait"
	Const    Kind = "const"
	Module   Kind = "mod"
	Impl     Kind = "impl"
)

var kinds = map[Kind]struct{}{
	Function: {},
	Struct:   {},
	Trait:    {},
	Const:    {},
	Module:   {},
	Impl:     {},
}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	_, ok := kinds[k]
	return ok
}

func (k Kind) String() string { return string(k) }

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("unknown item kind %q", string(k))
	}
	return []byte(k), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(b []byte) error {
	v := Kind(b)
	if !v.Valid() {
		return fmt.Errorf("unknown item kind %q", string(b))
	}
	*k = v
	return nil
}

// CrateMetadata identifies an indexed crate.
type CrateMetadata struct {
	Name    string
	Version string
}

// Ident returns the crate name as it appears in paths: hyphens become
// underscores.
func (c CrateMetadata) Ident() string {
	return strings.ReplaceAll(c.Name, "-", "_")
}

// DirName is the store directory name for this crate version.
func (c CrateMetadata) DirName() string {
	return c.Name + "-" + c.Version
}

func (c CrateMetadata) String() string { return c.DirName() }

// Location records where an item was declared.
type Location struct {
	Crate   string
	Version string
	File    string // relative to the crate root
	Line    int
}

// Item is a single documented declaration.
type Item struct {
	Kind       Kind
	Name       string
	Path       Path
	Signature  string
	Visibility string
	Doc        string
	Source     Location
}

// NewItem builds an item named name under parent.
func NewItem(kind Kind, name string, parent Path, signature string, loc Location) (Item, error) {
	if !kind.Valid() {
		return Item{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidPath, string(kind))
	}
	if err := ValidateSegment(name); err != nil {
		return Item{}, err
	}
	for _, seg := range parent {
		if err := ValidateSegment(seg); err != nil {
			return Item{}, err
		}
	}
	return Item{
		Kind:      kind,
		Name:      name,
		Path:      parent.Join(name),
		Signature: signature,
		Source:    loc,
	}, nil
}

// Crate returns the metadata of the crate the item came from.
func (it *Item) Crate() CrateMetadata {
	return CrateMetadata{Name: it.Source.Crate, Version: it.Source.Version}
}

// Validate checks the path invariants of an item.
func (it *Item) Validate() error {
	if len(it.Path) == 0 {
		return fmt.Errorf("%w: empty path for %q", ErrInvalidPath, it.Name)
	}
	for _, seg := range it.Path {
		if err := ValidateSegment(seg); err != nil {
			return err
		}
	}
	if it.Path.Last() != it.Name {
		return fmt.Errorf("%w: %s does not end in %q", ErrInvalidPath, it.Path, it.Name)
	}
	return nil
}
