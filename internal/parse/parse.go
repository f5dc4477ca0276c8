// Package parse extracts declaration records from Rust source files using
// tree-sitter.
package parse

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/Ruin0x11/oxidoc/internal/lang"
	"github.com/Ruin0x11/oxidoc/internal/model"
)

// ErrParse matches every *Error.
var ErrParse = errors.New("parse error")

// Error reports a source file that could not be parsed.
type Error struct {
	File string
	Line int // 1-based; 0 when unknown
	Err  error
}

func (e *Error) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %v", e.File, e.Line, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.File, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrParse) match any *Error.
func (e *Error) Is(target error) bool { return target == ErrParse }

// Decl is one declaration found in a file.
type Decl struct {
	Name       string
	Kind       model.Kind
	Signature  string
	Visibility string
	Doc        string
	Line       int

	// Module is the inline module nesting inside the file
	// (mod a { mod b { fn f() {} } } gives [a b]).
	Module []string
}

// File is the result of parsing one source file.
type File struct {
	Decls []Decl

	// Mods lists out-of-line module declarations (mod x;), each as its
	// inline nesting followed by the module name.
	Mods [][]string
}

// Extract parses source and returns the free functions declared directly
// inside a module, plus the out-of-line modules the file declares.
// The parser must be created for Rust. filePath is only used for errors.
func Extract(ctx context.Context, parser *sitter.Parser, source []byte, filePath string) (*File, error) {
	if len(source) == 0 {
		return &File{}, nil
	}
	if !utf8.Valid(source) {
		return nil, &Error{File: filePath, Err: errors.New("source is not valid UTF-8")}
	}

	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, &Error{File: filePath, Err: err}
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, &Error{File: filePath, Line: firstErrorLine(root), Err: errors.New("syntax error")}
	}

	f := &File{}
	f.walk(root, nil, source)
	return f, nil
}

func (f *File) walk(container *sitter.Node, module []string, source []byte) {
	for i := 0; i < int(container.NamedChildCount()); i++ {
		node := container.NamedChild(i)
		switch node.Type() {
		case "function_item":
			name := lang.ItemName(node, source)
			if name == "" {
				continue
			}
			f.Decls = append(f.Decls, Decl{
				Name:       name,
				Kind:       model.Function,
				Signature:  lang.FunctionSignature(node, source),
				Visibility: lang.Visibility(node, source),
				Doc:        lang.DocComment(node, source),
				Line:       int(node.StartPoint().Row) + 1,
				Module:     module,
			})

		case "mod_item":
			name := lang.ItemName(node, source)
			if name == "" || lang.IsTestOnly(node, source) {
				continue
			}
			nested := append(module[:len(module):len(module)], name)
			if body := node.ChildByFieldName("body"); body != nil {
				f.walk(body, nested, source)
			} else {
				f.Mods = append(f.Mods, nested)
			}

		default:
			// impl, trait, struct, enum, const and friends are not modelled yet.
		}
	}
}

func firstErrorLine(node *sitter.Node) int {
	if node.Type() == "ERROR" || node.IsMissing() {
		return int(node.StartPoint().Row) + 1
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.HasError() || child.IsMissing() {
			if line := firstErrorLine(child); line > 0 {
				return line
			}
		}
	}
	return 0
}
