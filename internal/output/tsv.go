package output

import (
	"fmt"
	"strings"

	"pyxref/internal/entity"
)

type TSVGenerator struct {
	project *entity.Project
}

func NewTSVGenerator(proj *entity.Project) *TSVGenerator {
	return &TSVGenerator{project: proj}
}

func (t *TSVGenerator) Generate() (string, error) {
	_, edges := flatten(t.project)

	var buf strings.Builder
	buf.WriteString("From\tTo\n")
	for _, edge := range edges {
		buf.WriteString(fmt.Sprintf("%s\t%s\n", edge.From, edge.To))
	}

	return buf.String(), nil
}
