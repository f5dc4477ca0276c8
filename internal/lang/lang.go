// Package lang wraps the tree-sitter Rust grammar and the node helpers used
// to turn Rust syntax into documentation records.
package lang

import (
	"path/filepath"
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/rust"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// Language holds tree-sitter configuration for a supported language.
type Language struct {
	Name       string
	Extensions []string
	lang       *sitter.Language
}

// Rust is the only language oxidoc indexes.
var Rust = &Language{
	Name:       "rust",
	Extensions: []string{".rs"},
	lang:       rust.GetLanguage(),
}

// GetLanguage returns the tree-sitter Language pointer.
func (l *Language) GetLanguage() *sitter.Language {
	return l.lang
}

// NewParser creates a fresh tree-sitter parser for this language.
// Each goroutine must use its own parser (not thread-safe).
func (l *Language) NewParser() *sitter.Parser {
	p := sitter.NewParser()
	p.SetLanguage(l.lang)
	return p
}

// Matches reports whether path has one of the language's extensions.
func (l *Language) Matches(path string) bool {
	ext := filepath.Ext(path)
	for _, e := range l.Extensions {
		if e == ext {
			return true
		}
	}
	return false
}

// NodeText returns the source text of a tree-sitter node.
func NodeText(node *sitter.Node, source []byte) string {
	return string(source[node.StartByte():node.EndByte()])
}

// CollapseWhitespace replaces runs of whitespace with a single space and trims.
func CollapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// tidyList collapses a bracketed list that may span several lines, dropping
// the padding and trailing comma rustfmt leaves behind.
func tidyList(s string) string {
	s = CollapseWhitespace(s)
	for _, r := range []struct{ old, new string }{
		{"( ", "("},
		{" )", ")"},
		{",)", ")"},
		{"< ", "<"},
		{" >", ">"},
		{",>", ">"},
	} {
		s = strings.ReplaceAll(s, r.old, r.new)
	}
	return s
}
