// Package parser turns one Python source file into structured entities with
// raw dependency mentions and a per-file import table.
package parser

import (
	"errors"
	"fmt"
	"os"
	"time"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"

	"pyxref/internal/entity"
	"pyxref/internal/observability"
)

// Parser parses Python files with the tree-sitter grammar. It holds no
// per-file state and may be reused across files.
type Parser struct {
	language *sitter.Language
	resolver *ImportResolver
}

// NewParser builds a parser whose relative imports resolve against
// projectRoot, the directory represented by packageName.
func NewParser(projectRoot, packageName string) *Parser {
	return &Parser{
		language: sitter.NewLanguage(tree_sitter_python.Language()),
		resolver: NewImportResolver(projectRoot, packageName),
	}
}

// Resolver exposes the import resolver so callers can compute canonical
// module paths for parsed files.
func (p *Parser) Resolver() *ImportResolver {
	return p.resolver
}

// ParseFile reads and extracts path. An I/O failure is fatal for the run:
// no partial File entity is produced.
func (p *Parser) ParseFile(path string) (*entity.File, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read source file %q: %w", path, err)
	}
	return p.Parse(path, source)
}

// Parse extracts entities from source already in memory.
func (p *Parser) Parse(path string, source []byte) (*entity.File, error) {
	start := time.Now()
	defer func() {
		observability.ParseDuration.Observe(time.Since(start).Seconds())
	}()

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(p.language)

	tree := parser.Parse(source, nil)
	if tree == nil {
		return nil, errors.New("parse failed")
	}
	defer tree.Close()

	ext := &extractor{
		source:   source,
		resolver: p.resolver,
	}
	return ext.extractFile(tree.RootNode(), path)
}
