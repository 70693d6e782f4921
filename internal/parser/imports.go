package parser

import (
	"path/filepath"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"pyxref/internal/entity"
)

// ImportResolver resolves import statements against the project root. For
// relative imports it ascends one directory level per leading dot beyond
// the first, starting from the importing file's own package directory.
type ImportResolver struct {
	projectRoot string
	packageName string
}

func NewImportResolver(projectRoot, packageName string) *ImportResolver {
	return &ImportResolver{
		projectRoot: projectRoot,
		packageName: packageName,
	}
}

// ModulePath returns the canonical dotted module path of a file, e.g.
// pkg/sub/mod.py -> "<package>.sub.mod".
func (r *ImportResolver) ModulePath(filePath string) string {
	segments := []string{r.packageName}
	rel, err := filepath.Rel(r.projectRoot, filePath)
	if err == nil && rel != "." {
		rel = strings.TrimSuffix(rel, ".py")
		for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
			if part == "" || part == "__init__" {
				continue
			}
			segments = append(segments, part)
		}
	}
	return strings.Join(segments, ".")
}

// PackagePath returns the dotted path of a package directory.
func (r *ImportResolver) PackagePath(dir string) string {
	segments := []string{r.packageName}
	rel, err := filepath.Rel(r.projectRoot, dir)
	if err == nil && rel != "." {
		for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
			if part != "" {
				segments = append(segments, part)
			}
		}
	}
	return strings.Join(segments, ".")
}

// ResolveRelative resolves a relative import observed in filePath. Level is
// the number of leading dots; module may be empty for "from . import x".
func (r *ImportResolver) ResolveRelative(filePath string, level int, module string) string {
	var parts []string
	rel, err := filepath.Rel(r.projectRoot, filepath.Dir(filePath))
	if err == nil && rel != "." {
		parts = strings.Split(filepath.ToSlash(rel), "/")
	}

	ascend := level - 1
	if ascend > len(parts) {
		ascend = len(parts)
	}
	if ascend > 0 {
		parts = parts[:len(parts)-ascend]
	}

	segments := append([]string{r.packageName}, parts...)
	if module != "" {
		segments = append(segments, module)
	}
	return strings.Join(segments, ".")
}

// CollectImport handles "import X" and "import X as Y".
func (r *ImportResolver) CollectImport(e *extractor, node *sitter.Node, file *entity.File, path string) {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		switch child.Kind() {
		case "dotted_name":
			file.Imports = append(file.Imports, e.text(child))
		case "aliased_import":
			target := e.text(child.ChildByFieldName("name"))
			alias := e.text(child.ChildByFieldName("alias"))
			file.Imports = append(file.Imports, target)
			if alias != "" {
				file.Aliases[alias] = target
			}
		}
	}
}

// CollectFromImport handles "from X import Y [as Z]" including relative
// forms. Each imported name becomes an import target "X.Y", and the bound
// name aliases to that target so rewriting can match either form.
func (r *ImportResolver) CollectFromImport(e *extractor, node *sitter.Node, file *entity.File, path string) {
	module := ""
	if moduleNode := node.ChildByFieldName("module_name"); moduleNode != nil {
		switch moduleNode.Kind() {
		case "dotted_name":
			module = e.text(moduleNode)
		case "relative_import":
			module = r.resolveRelativeNode(e, moduleNode, path)
		}
	}
	if module == "" {
		return
	}

	seenImportKeyword := false
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child.Kind() == "import" {
			seenImportKeyword = true
			continue
		}
		if !seenImportKeyword {
			continue
		}

		switch child.Kind() {
		case "dotted_name":
			name := e.text(child)
			file.Imports = append(file.Imports, module+"."+name)
			file.Aliases[name] = module + "." + name
		case "aliased_import":
			name := e.text(child.ChildByFieldName("name"))
			alias := e.text(child.ChildByFieldName("alias"))
			file.Imports = append(file.Imports, module+"."+name)
			if alias != "" {
				file.Aliases[alias] = module + "." + name
			}
		case "wildcard_import":
			file.Imports = append(file.Imports, module)
		}
	}
}

func (r *ImportResolver) resolveRelativeNode(e *extractor, node *sitter.Node, path string) string {
	level := 0
	module := ""
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		switch child.Kind() {
		case "import_prefix":
			level = len(strings.TrimSpace(e.text(child)))
		case "dotted_name":
			module = e.text(child)
		}
	}
	if level == 0 {
		return module
	}
	return r.ResolveRelative(path, level, module)
}
