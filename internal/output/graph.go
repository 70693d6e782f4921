// Package output renders the resolved dependency graph as DOT, Mermaid, or
// TSV for downstream tooling.
package output

import (
	"sort"
	"strings"

	"pyxref/internal/entity"
	"pyxref/internal/parser"
)

type Node struct {
	Path string // canonical dotted path
	Kind string // "function" or "class"
}

type Edge struct {
	From string
	To   string
}

// flatten lists every top-level function and class with its resolved
// dependency edges, in stable order. Dependencies that stayed in short
// local form are qualified with the owning module so edges always use
// canonical paths.
func flatten(proj *entity.Project) ([]Node, []Edge) {
	resolver := parser.NewImportResolver(proj.Path, proj.PackageName)

	var nodes []Node
	var edges []Edge

	proj.RootFolder.WalkFiles(func(file *entity.File) {
		module := resolver.ModulePath(file.Path)

		addEdges := func(from string, deps []string) {
			for _, dep := range deps {
				if strings.HasPrefix(dep, entity.SelfPrefix) {
					continue
				}
				to := dep
				if _, ok := proj.References[to]; !ok {
					to = module + "." + dep
				}
				edges = append(edges, Edge{From: from, To: to})
			}
		}

		for _, fn := range file.Functions {
			path := module + "." + fn.Name
			nodes = append(nodes, Node{Path: path, Kind: "function"})
			addEdges(path, fn.Dependencies)
		}
		for _, cls := range file.Classes {
			path := module + "." + cls.Name
			nodes = append(nodes, Node{Path: path, Kind: "class"})
			addEdges(path, cls.Dependencies)
		}
	})

	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Path < nodes[j].Path })
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].From != edges[j].From {
			return edges[i].From < edges[j].From
		}
		return edges[i].To < edges[j].To
	})

	return nodes, edges
}
