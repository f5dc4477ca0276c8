// Package resolve answers documentation queries against a store.
//
// A query containing "::" is a path. It is looked up exactly first, and if
// nothing is stored there, matched against the trailing segments of every
// stored path. Any other query is a bare name, compared against every item's
// name with the resolver's Matcher.
package resolve

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Ruin0x11/oxidoc/internal/model"
	"github.com/Ruin0x11/oxidoc/internal/ranking"
	"github.com/Ruin0x11/oxidoc/internal/store"
)

// ErrStoreCorrupt is returned when an entry needed to answer a query could
// not be decoded. It is distinct from finding nothing.
var ErrStoreCorrupt = errors.New("documentation store is corrupt")

// Source is the part of the store the resolver reads.
type Source interface {
	Read(path model.Path) (model.Item, error)
	List(prefix model.Path) ([]model.Item, error)
}

var _ Source = (*store.Store)(nil)

// Resolver resolves queries. It keeps no state between calls.
type Resolver struct {
	Source Source

	// Matcher filters bare-name queries. Nil means Exact.
	Matcher Matcher
}

// Resolve returns the items matching query, most specific first. Finding
// nothing is not an error. When some entries are corrupt, the matches that
// could be read are returned together with an error wrapping
// ErrStoreCorrupt.
func (r *Resolver) Resolve(query string) ([]model.Match, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if strings.Contains(query, model.Separator) {
		return r.resolvePath(query)
	}
	return r.resolveName(query)
}

func (r *Resolver) resolvePath(query string) ([]model.Match, error) {
	path, err := model.ParsePath(query)
	if err != nil {
		// Nothing stored can have a malformed path.
		return nil, nil
	}

	it, err := r.Source.Read(path)
	switch {
	case err == nil:
		return []model.Match{{Item: it, Tier: model.ExactPath}}, nil
	case errors.Is(err, store.ErrNotFound):
	case errors.Is(err, store.ErrCorruptEntry):
		return nil, fmt.Errorf("%w: %w", ErrStoreCorrupt, err)
	default:
		return nil, err
	}

	// A leading separator anchors the path at a crate root.
	if strings.HasPrefix(query, model.Separator) {
		return nil, nil
	}

	items, lerr := r.Source.List(nil)
	var matches []model.Match
	for _, it := range items {
		if len(it.Path) > len(path) && it.Path.HasSuffix(path) {
			matches = append(matches, model.Match{Item: it, Tier: model.PartialPath})
		}
	}
	return ranking.Order(matches), wrapCorrupt(lerr)
}

func (r *Resolver) resolveName(query string) ([]model.Match, error) {
	m := r.Matcher
	if m == nil {
		m = Exact
	}

	items, lerr := r.Source.List(nil)
	var matches []model.Match
	for _, it := range items {
		if m.Match(query, it.Name) {
			matches = append(matches, model.Match{Item: it, Tier: model.BareName})
		}
	}
	return ranking.Order(matches), wrapCorrupt(lerr)
}

func wrapCorrupt(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrCorruptEntry):
		return fmt.Errorf("%w: %w", ErrStoreCorrupt, err)
	default:
		return err
	}
}
