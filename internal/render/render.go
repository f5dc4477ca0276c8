// Package render formats resolved items as plain-text reports.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/Ruin0x11/oxidoc/internal/model"
)

// NoDocumentation stands in for an item without a doc comment.
const NoDocumentation = "(no documentation available)"

var rule = strings.Repeat("-", 78)

// Item writes the report for a single item:
//
//	= oxidoc::store::get_fn_file
//
//	(from crate oxidoc-0.1.0)
//	=== oxidoc::store::get_fn_file()
//	------------------------------------------------------------------------------
//	  fn get_fn_file(path: &PathBuf, fn_doc: &Function) -> PathBuf
//
//	------------------------------------------------------------------------------
//
//	<doc comment>
func Item(w io.Writer, it *model.Item) error {
	desc := it.Doc
	if strings.TrimSpace(desc) == "" {
		desc = NoDocumentation
	}
	path := it.Path.String()
	crate := it.Crate()
	_, err := fmt.Fprintf(w, "= %s\n\n(from crate %s)\n=== %s()\n%s\n  %s\n\n%s\n\n%s\n",
		path, crate.DirName(), path, rule, it.Signature, rule, desc)
	return err
}

// Matches writes the report of every match, separated by blank lines.
func Matches(w io.Writer, matches []model.Match) error {
	for i := range matches {
		if i > 0 {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
		if err := Item(w, &matches[i].Item); err != nil {
			return err
		}
	}
	return nil
}

// Paths writes one qualified path per line, the crate version after it.
func Paths(w io.Writer, items []model.Item) error {
	for i := range items {
		it := &items[i]
		if _, err := fmt.Fprintf(w, "%s (%s)\n", it.Path, it.Crate().DirName()); err != nil {
			return err
		}
	}
	return nil
}
