package lang

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// FunctionSignature renders a function_item as it would read in the
// documentation: modifiers, name, generics, parameters, return type and
// where clause, without visibility or body.
func FunctionSignature(node *sitter.Node, source []byte) string {
	var modifiers, where string
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "function_modifiers":
			modifiers = CollapseWhitespace(NodeText(child, source))
		case "where_clause":
			where = CollapseWhitespace(NodeText(child, source))
		}
	}

	var b strings.Builder
	if modifiers != "" {
		b.WriteString(modifiers)
		b.WriteByte(' ')
	}
	b.WriteString("fn ")
	b.WriteString(fieldText(node, "name", source))
	if tp := node.ChildByFieldName("type_parameters"); tp != nil {
		b.WriteString(tidyList(NodeText(tp, source)))
	}
	if params := node.ChildByFieldName("parameters"); params != nil {
		b.WriteString(tidyList(NodeText(params, source)))
	} else {
		b.WriteString("()")
	}
	if ret := node.ChildByFieldName("return_type"); ret != nil {
		b.WriteString(" -> ")
		b.WriteString(CollapseWhitespace(NodeText(ret, source)))
	}
	if where != "" {
		b.WriteByte(' ')
		b.WriteString(where)
	}
	return b.String()
}

// ItemName returns the text of an item's name field.
func ItemName(node *sitter.Node, source []byte) string {
	return fieldText(node, "name", source)
}

// Visibility returns the item's visibility modifier ("pub", "pub(crate)"),
// or "" for private items.
func Visibility(node *sitter.Node, source []byte) string {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child.Type() == "visibility_modifier" {
			return strings.ReplaceAll(CollapseWhitespace(NodeText(child, source)), " ", "")
		}
	}
	return ""
}

// DocComment collects the outer doc comments (/// and /** */) attached to
// an item. Attributes between the comments and the item are skipped.
func DocComment(node *sitter.Node, source []byte) string {
	var blocks []string
	for sib := node.PrevSibling(); sib != nil; sib = sib.PrevSibling() {
		t := sib.Type()
		if t == "attribute_item" {
			continue
		}
		if t != "line_comment" && t != "block_comment" {
			break
		}
		text, ok := outerDoc(NodeText(sib, source))
		if !ok {
			break
		}
		blocks = append(blocks, text)
	}
	if len(blocks) == 0 {
		return ""
	}
	// Collected bottom-up.
	for i, j := 0, len(blocks)-1; i < j; i, j = i+1, j-1 {
		blocks[i], blocks[j] = blocks[j], blocks[i]
	}
	return strings.TrimSpace(strings.Join(blocks, "\n"))
}

func outerDoc(comment string) (string, bool) {
	comment = strings.TrimRight(comment, "\r\n")
	switch {
	case strings.HasPrefix(comment, "///") && !strings.HasPrefix(comment, "////"):
		line := strings.TrimPrefix(comment, "///")
		return strings.TrimPrefix(line, " "), true
	case strings.HasPrefix(comment, "/**") && !strings.HasPrefix(comment, "/***") && comment != "/**/":
		body := strings.TrimSuffix(strings.TrimPrefix(comment, "/**"), "*/")
		lines := strings.Split(body, "\n")
		for i, line := range lines {
			line = strings.TrimSpace(line)
			line = strings.TrimPrefix(line, "*")
			lines[i] = strings.TrimPrefix(line, " ")
		}
		return strings.TrimSpace(strings.Join(lines, "\n")), true
	}
	return "", false
}

// IsTestOnly reports whether an item carries #[cfg(test)].
func IsTestOnly(node *sitter.Node, source []byte) bool {
	for sib := node.PrevSibling(); sib != nil; sib = sib.PrevSibling() {
		switch sib.Type() {
		case "attribute_item":
			attr := strings.ReplaceAll(CollapseWhitespace(NodeText(sib, source)), " ", "")
			if attr == "#[cfg(test)]" {
				return true
			}
		case "line_comment", "block_comment":
		default:
			return false
		}
	}
	return false
}

func fieldText(node *sitter.Node, field string, source []byte) string {
	child := node.ChildByFieldName(field)
	if child == nil {
		return ""
	}
	return NodeText(child, source)
}
