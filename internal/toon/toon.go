// Package toon implements TOON (Token-Oriented Object Notation) encoding of
// query results and store listings.
package toon

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/Ruin0x11/oxidoc/internal/model"
)

var (
	needsQuoting = regexp.MustCompile(`[,:"\\{}\[\]]`)
	looksNumeric = regexp.MustCompile(`^-?(?:0|[1-9]\d*)(?:\.\d+)?$`)
	keywords     = map[string]struct{}{
		"true":  {},
		"false": {},
		"null":  {},
	}
)

// EncodeMatches converts query results into TOON format.
func EncodeMatches(query string, matches []model.Match) string {
	rows := make([][]string, 0, len(matches))
	for i := range matches {
		m := &matches[i]
		rows = append(rows, []string{
			m.Tier.String(),
			m.Item.Path.String(),
			m.Item.Crate().DirName(),
			m.Item.Kind.String(),
			m.Item.Signature,
		})
	}
	return strings.Join([]string{
		Field("query", query),
		Table("matches", []string{"tier", "path", "crate", "kind", "signature"}, rows),
	}, "\n")
}

// EncodeListing converts the items under a path prefix into TOON format.
func EncodeListing(prefix model.Path, items []model.Item) string {
	rows := make([][]string, 0, len(items))
	for i := range items {
		it := &items[i]
		rows = append(rows, []string{
			it.Path.String(),
			it.Crate().DirName(),
			it.Kind.String(),
			it.Visibility,
			it.Source.File,
			strconv.Itoa(it.Source.Line),
		})
	}
	return strings.Join([]string{
		Field("prefix", prefix.String()),
		Table("items", []string{"path", "crate", "kind", "visibility", "file", "line"}, rows),
	}, "\n")
}

// Field encodes a single key: value line.
func Field(key, value string) string {
	return fmt.Sprintf("%s: %s", key, encodeValue(value))
}

// Table encodes a tabular array with one row per line.
func Table(name string, columns []string, rows [][]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s[%d]{%s}:", name, len(rows), strings.Join(columns, ","))
	for _, row := range rows {
		encoded := make([]string, len(row))
		for i, cell := range row {
			encoded[i] = encodeValue(cell)
		}
		fmt.Fprintf(&b, "\n  %s", strings.Join(encoded, ","))
	}
	return b.String()
}

func encodeValue(value string) string {
	if value == "" {
		return `""`
	}

	if value != strings.TrimSpace(value) {
		return quote(value)
	}

	if strings.ContainsAny(value, "\n\r\t") {
		return quote(value)
	}

	if _, ok := keywords[strings.ToLower(value)]; ok {
		return quote(value)
	}

	if looksNumeric.MatchString(value) {
		return value
	}

	if needsQuoting.MatchString(value) {
		return quote(value)
	}

	if strings.HasPrefix(value, "-") {
		return quote(value)
	}

	return value
}

func quote(value string) string {
	escaped := strings.ReplaceAll(value, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	escaped = strings.ReplaceAll(escaped, "\n", `\n`)
	escaped = strings.ReplaceAll(escaped, "\r", `\r`)
	escaped = strings.ReplaceAll(escaped, "\t", `\t`)
	return `"` + escaped + `"`
}
