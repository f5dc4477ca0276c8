// Package graph builds a crate's module tree from the module declarations
// found in each source file and decides which files belong to the crate.
package graph

import (
	"sort"
	"strings"
)

// Node is one source file and the modules it declares.
type Node struct {
	Path   string   // crate-relative file path
	Module []string // module path implied by the file's position

	// Declares holds the out-of-line modules the file declares, relative
	// to Module (mod a { mod b; } gives [a b]).
	Declares [][]string

	// Failed marks a file that could not be parsed. Its declarations are
	// unknown, so every file below its module is trusted.
	Failed bool
}

// Orphan is a file that is not part of the module tree.
type Orphan struct {
	Path   string
	Reason string
}

// Tree is the outcome of Build.
type Tree struct {
	// Kept holds indexes into the input of files reachable from the crate
	// root, in input order.
	Kept    []int
	Orphans []Orphan
}

// Build walks the module declarations from the crate root (the node with an
// empty Module) and reports which files are reachable.
func Build(nodes []Node) Tree {
	order := make([]int, len(nodes))
	for i := range order {
		order[i] = i
	}
	// Declaring modules are always shallower than the modules they declare.
	sort.SliceStable(order, func(a, b int) bool {
		return len(nodes[order[a]].Module) < len(nodes[order[b]].Module)
	})

	declared := make(map[string]struct{})
	failed := make(map[string]struct{})
	claimed := make(map[string]string)
	kept := make([]bool, len(nodes))
	var tree Tree

	for _, idx := range order {
		n := &nodes[idx]
		k := key(n.Module)

		if owner, dup := claimed[k]; dup {
			tree.Orphans = append(tree.Orphans, Orphan{Path: n.Path, Reason: "module already provided by " + owner})
			continue
		}
		if len(n.Module) > 0 && !isDeclared(n.Module, declared) && !underFailed(n.Module, failed) {
			tree.Orphans = append(tree.Orphans, Orphan{Path: n.Path, Reason: "not declared by a parent module"})
			continue
		}

		claimed[k] = n.Path
		kept[idx] = true
		if n.Failed {
			failed[k] = struct{}{}
			continue
		}
		for _, d := range n.Declares {
			declared[key(append(n.Module[:len(n.Module):len(n.Module)], d...))] = struct{}{}
		}
	}

	for i, ok := range kept {
		if ok {
			tree.Kept = append(tree.Kept, i)
		}
	}
	sort.Slice(tree.Orphans, func(i, j int) bool {
		return tree.Orphans[i].Path < tree.Orphans[j].Path
	})
	return tree
}

func isDeclared(module []string, declared map[string]struct{}) bool {
	_, ok := declared[key(module)]
	return ok
}

func underFailed(module []string, failed map[string]struct{}) bool {
	for i := 0; i < len(module); i++ {
		if _, ok := failed[key(module[:i])]; ok {
			return true
		}
	}
	return false
}

func key(module []string) string {
	return strings.Join(module, "::")
}
