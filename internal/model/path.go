package model

import (
	"fmt"
	"strings"
)

// Separator joins the segments of a qualified path.
const Separator = "::"

// Path is a qualified path: crate, modules, then the item name.
type Path []string

// ParsePath splits s on the separator. A single leading separator
// ("::std::vec") is allowed.
func ParsePath(s string) (Path, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), Separator)
	if s == "" {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	p := Path(strings.Split(s, Separator))
	for _, seg := range p {
		if err := ValidateSegment(seg); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// ValidateSegment reports whether seg can be a path segment and a file name.
func ValidateSegment(seg string) error {
	switch {
	case seg == "":
		return fmt.Errorf("%w: empty segment", ErrInvalidPath)
	case strings.Contains(seg, Separator):
		return fmt.Errorf("%w: %q contains %q", ErrInvalidPath, seg, Separator)
	case seg == "." || seg == "..":
		return fmt.Errorf("%w: %q", ErrInvalidPath, seg)
	case strings.ContainsAny(seg, "/\\\x00"):
		return fmt.Errorf("%w: %q is not a file name", ErrInvalidPath, seg)
	case strings.HasPrefix(seg, "."):
		// Reserved for store bookkeeping files.
		return fmt.Errorf("%w: %q starts with a dot", ErrInvalidPath, seg)
	}
	return nil
}

func (p Path) String() string { return strings.Join(p, Separator) }

// Last returns the final segment, or "" for an empty path.
func (p Path) Last() string {
	if len(p) == 0 {
		return ""
	}
	return p[len(p)-1]
}

// Parent returns p without its final segment.
func (p Path) Parent() Path {
	if len(p) == 0 {
		return nil
	}
	return p[: len(p)-1 : len(p)-1]
}

// Join returns a new path with segs appended.
func (p Path) Join(segs ...string) Path {
	out := make(Path, 0, len(p)+len(segs))
	out = append(out, p...)
	return append(out, segs...)
}

// Equal reports whether both paths have the same segments.
func (p Path) Equal(q Path) bool {
	if len(p) != len(q) {
		return false
	}
	for i := range p {
		if p[i] != q[i] {
			return false
		}
	}
	return true
}

// HasPrefix reports whether q is a leading run of p's segments.
func (p Path) HasPrefix(q Path) bool {
	return len(q) <= len(p) && p[:len(q)].Equal(q)
}

// HasSuffix reports whether q is a trailing run of p's segments.
func (p Path) HasSuffix(q Path) bool {
	return len(q) <= len(p) && p[len(p)-len(q):].Equal(q)
}
