package output

import (
	"fmt"
	"strings"

	"pyxref/internal/entity"
)

type MermaidGenerator struct {
	project *entity.Project
}

func NewMermaidGenerator(proj *entity.Project) *MermaidGenerator {
	return &MermaidGenerator{project: proj}
}

func (m *MermaidGenerator) Generate() (string, error) {
	nodes, edges := flatten(m.project)

	ids := make(map[string]string, len(nodes))
	for i, node := range nodes {
		ids[node.Path] = fmt.Sprintf("n%d", i)
	}

	var b strings.Builder
	b.WriteString("flowchart LR\n")

	for _, node := range nodes {
		label := sanitizeLabel(node.Path)
		if node.Kind == "class" {
			b.WriteString(fmt.Sprintf("    %s[\"%s\"]:::class\n", ids[node.Path], label))
		} else {
			b.WriteString(fmt.Sprintf("    %s[\"%s\"]\n", ids[node.Path], label))
		}
	}

	for _, edge := range edges {
		from, okFrom := ids[edge.From]
		to, okTo := ids[edge.To]
		if !okFrom || !okTo {
			continue
		}
		b.WriteString(fmt.Sprintf("    %s --> %s\n", from, to))
	}

	b.WriteString("    classDef class fill:#dbeafe,stroke:#1d4ed8\n")
	return b.String(), nil
}

func sanitizeLabel(value string) string {
	value = strings.ReplaceAll(value, "\"", "'")
	return strings.ReplaceAll(value, "\n", " ")
}
