package output

import (
	"fmt"
	"strings"

	"pyxref/internal/entity"
)

type DOTGenerator struct {
	project *entity.Project
}

func NewDOTGenerator(proj *entity.Project) *DOTGenerator {
	return &DOTGenerator{project: proj}
}

func (d *DOTGenerator) Generate() (string, error) {
	nodes, edges := flatten(d.project)

	var buf strings.Builder
	buf.WriteString("digraph dependencies {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  node [shape=box, style=rounded, fontname=\"Helvetica\", fontsize=10];\n")
	buf.WriteString("  edge [fontname=\"Helvetica\", fontsize=8];\n")
	buf.WriteString("  splines=polyline;\n")
	buf.WriteString("  overlap=false;\n\n")

	for _, node := range nodes {
		if node.Kind == "class" {
			buf.WriteString(fmt.Sprintf("  \"%s\" [fillcolor=\"lightsteelblue\", style=\"rounded,filled\"];\n", node.Path))
		} else {
			buf.WriteString(fmt.Sprintf("  \"%s\" [color=\"darkslategrey\"];\n", node.Path))
		}
	}
	buf.WriteString("\n")

	for _, edge := range edges {
		buf.WriteString(fmt.Sprintf("  \"%s\" -> \"%s\";\n", edge.From, edge.To))
	}

	buf.WriteString("}\n")
	return buf.String(), nil
}
