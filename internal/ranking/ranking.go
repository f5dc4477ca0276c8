// Package ranking orders query matches and trims them to a result budget.
package ranking

import (
	"sort"

	"golang.org/x/mod/semver"

	"github.com/Ruin0x11/oxidoc/internal/model"
)

// Order drops every match that repeats the crate and path of a better one,
// keeping the best tier and then the newest version, and returns the rest
// sorted by tier, crate name and path.
func Order(matches []model.Match) []model.Match {
	type key struct{ crate, path string }

	best := make(map[key]int, len(matches))
	var out []model.Match
	for _, m := range matches {
		k := key{m.Item.Source.Crate, m.Item.Path.String()}
		i, seen := best[k]
		if !seen {
			best[k] = len(out)
			out = append(out, m)
			continue
		}
		if better(m, out[i]) {
			out[i] = m
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := &out[i], &out[j]
		if a.Tier != b.Tier {
			return a.Tier < b.Tier
		}
		if a.Item.Source.Crate != b.Item.Source.Crate {
			return a.Item.Source.Crate < b.Item.Source.Crate
		}
		return a.Item.Path.String() < b.Item.Path.String()
	})
	return out
}

func better(a, b model.Match) bool {
	if a.Tier != b.Tier {
		return a.Tier < b.Tier
	}
	return semver.Compare("v"+a.Item.Source.Version, "v"+b.Item.Source.Version) > 0
}

// Select returns at most max matches. If max is <= 0 or >= len(matches),
// matches is returned unchanged.
func Select(matches []model.Match, max int) []model.Match {
	if max <= 0 || max >= len(matches) {
		return matches
	}
	return matches[:max]
}
