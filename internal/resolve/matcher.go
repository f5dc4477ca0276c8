package resolve

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/gobwas/glob"
	"github.com/sahilm/fuzzy"
)

// Matcher decides whether a bare-name query selects an item name.
type Matcher interface {
	Match(query, name string) bool
}

// MatcherFunc adapts a function to Matcher.
type MatcherFunc func(query, name string) bool

// Match implements Matcher.
func (f MatcherFunc) Match(query, name string) bool { return f(query, name) }

var (
	// Exact selects names equal to the query.
	Exact Matcher = MatcherFunc(func(q, n string) bool { return q == n })

	// Substring selects names containing the query, ignoring case.
	Substring Matcher = MatcherFunc(func(q, n string) bool {
		return strings.Contains(strings.ToLower(n), strings.ToLower(q))
	})

	// Prefix selects names starting with the query.
	Prefix Matcher = MatcherFunc(func(q, n string) bool { return strings.HasPrefix(n, q) })

	// Fuzzy selects names containing the query's characters in order,
	// the way interactive pickers do.
	Fuzzy Matcher = MatcherFunc(func(q, n string) bool {
		return len(fuzzy.Find(q, []string{n})) > 0
	})
)

// Glob selects names matching the query as a shell pattern (get_*,
// {read,write}_fn). A query that is not a valid pattern matches nothing.
type Glob struct {
	mu    sync.Mutex
	cache map[string]glob.Glob
}

// Match implements Matcher.
func (g *Glob) Match(query, name string) bool {
	g.mu.Lock()
	pat, ok := g.cache[query]
	if !ok {
		if g.cache == nil {
			g.cache = make(map[string]glob.Glob)
		}
		pat, _ = glob.Compile(query)
		g.cache[query] = pat
	}
	g.mu.Unlock()
	return pat != nil && pat.Match(name)
}

var matchers = map[string]func() Matcher{
	"exact":     func() Matcher { return Exact },
	"substring": func() Matcher { return Substring },
	"prefix":    func() Matcher { return Prefix },
	"glob":      func() Matcher { return &Glob{} },
	"fuzzy":     func() Matcher { return Fuzzy },
}

// MatcherNames lists the names accepted by MatcherFor.
func MatcherNames() []string {
	names := make([]string, 0, len(matchers))
	for n := range matchers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// MatcherFor returns the matcher registered under name.
func MatcherFor(name string) (Matcher, error) {
	m, ok := matchers[name]
	if !ok {
		return nil, fmt.Errorf("unknown matcher %q (want one of %s)", name, strings.Join(MatcherNames(), ", "))
	}
	return m(), nil
}
