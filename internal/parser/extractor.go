package parser

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"pyxref/internal/entity"
	"pyxref/internal/observability"
)

// extractor walks one file's syntax tree. It never mutates shared state;
// everything it produces hangs off the returned File.
type extractor struct {
	source   []byte
	resolver *ImportResolver
}

func (e *extractor) extractFile(root *sitter.Node, path string) (*entity.File, error) {
	file := &entity.File{
		Path:    path,
		Aliases: make(map[string]string),
	}
	file.SourceCode = string(e.source)
	file.Docstring = e.docstring(root)

	for i := uint(0); i < root.ChildCount(); i++ {
		e.extractTopLevel(root.Child(i), file, path)
	}

	return file, nil
}

func (e *extractor) extractTopLevel(node *sitter.Node, file *entity.File, path string) {
	switch node.Kind() {
	case "function_definition":
		file.Functions = append(file.Functions, e.parseFunction(node))
		observability.EntitiesExtracted.WithLabelValues("function").Inc()
	case "class_definition":
		file.Classes = append(file.Classes, e.parseClass(node))
		observability.EntitiesExtracted.WithLabelValues("class").Inc()
	case "decorated_definition":
		if def := node.ChildByFieldName("definition"); def != nil {
			e.extractTopLevel(def, file, path)
		}
	case "import_statement":
		e.resolver.CollectImport(e, node, file, path)
	case "import_from_statement":
		e.resolver.CollectFromImport(e, node, file, path)
	}
}

// parseFunction captures a single def: name, docstring, de-indented source
// slice, and every call target in the entire body. A callee that names a
// function defined inside this function is shadowed and not recorded.
func (e *extractor) parseFunction(node *sitter.Node) *entity.Function {
	fn := &entity.Function{
		Name: e.text(node.ChildByFieldName("name")),
	}
	fn.SourceCode = e.sourceSlice(node)

	body := node.ChildByFieldName("body")
	if body == nil {
		return fn
	}
	fn.Docstring = e.docstring(body)

	local := make(map[string]bool)
	e.collectLocalFunctions(body, local)

	e.collectCalls(body, func(callee string) {
		if local[callee] {
			return
		}
		fn.AddDependency(callee)
	})

	return fn
}

// parseClass captures only directly nested method definitions; methods of
// nested classes are not collected. Class dependencies are the union of
// method dependencies that do not reference the instance, plus the
// parent-class strings.
func (e *extractor) parseClass(node *sitter.Node) *entity.Class {
	cls := &entity.Class{
		Name: e.text(node.ChildByFieldName("name")),
	}
	cls.SourceCode = e.sourceSlice(node)
	cls.ParentClasses = e.parentClasses(node)

	body := node.ChildByFieldName("body")
	if body != nil {
		cls.Docstring = e.docstring(body)
		for i := uint(0); i < body.ChildCount(); i++ {
			child := body.Child(i)
			if child.Kind() == "decorated_definition" {
				child = child.ChildByFieldName("definition")
				if child == nil {
					continue
				}
			}
			if child.Kind() == "function_definition" {
				cls.Methods = append(cls.Methods, e.parseFunction(child))
			}
		}
	}

	for _, method := range cls.Methods {
		for _, dep := range method.Dependencies {
			if strings.HasPrefix(dep, entity.SelfPrefix) {
				continue
			}
			cls.AddDependency(dep)
		}
	}
	for _, parent := range cls.ParentClasses {
		cls.AddDependency(parent)
	}

	return cls
}

func (e *extractor) parentClasses(node *sitter.Node) []string {
	args := node.ChildByFieldName("superclasses")
	if args == nil {
		return nil
	}

	var parents []string
	for i := uint(0); i < args.ChildCount(); i++ {
		child := args.Child(i)
		switch child.Kind() {
		case "identifier", "attribute":
			parents = append(parents, e.renderExpr(child))
		case "keyword_argument", "(", ")", ",":
			// keyword arguments (metaclass=...) are not base classes
		default:
			parents = append(parents, entity.UnknownExpr)
		}
	}
	return parents
}

// collectLocalFunctions records the names of every def nested inside node,
// so shadowed callees are not reported as external dependencies.
func (e *extractor) collectLocalFunctions(node *sitter.Node, names map[string]bool) {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child.Kind() == "function_definition" {
			names[e.text(child.ChildByFieldName("name"))] = true
		}
		e.collectLocalFunctions(child, names)
	}
}

// collectCalls visits call expressions in source order, descending into the
// whole body including nested definitions.
func (e *extractor) collectCalls(node *sitter.Node, visit func(string)) {
	if node.Kind() == "call" {
		if callee := node.ChildByFieldName("function"); callee != nil {
			visit(e.renderExpr(callee))
		}
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		e.collectCalls(node.Child(i), visit)
	}
}

// renderExpr turns a callee or base-class expression into a dotted string.
// Anything beyond plain names and attribute chains degrades to the
// UnknownExpr sentinel.
func (e *extractor) renderExpr(node *sitter.Node) string {
	switch node.Kind() {
	case "identifier":
		return e.text(node)
	case "attribute":
		object := node.ChildByFieldName("object")
		attr := node.ChildByFieldName("attribute")
		if object == nil || attr == nil {
			return entity.UnknownExpr
		}
		base := e.renderExpr(object)
		if base == entity.UnknownExpr {
			return entity.UnknownExpr
		}
		return base + "." + e.text(attr)
	default:
		return entity.UnknownExpr
	}
}

// sourceSlice returns the node's lines with the first line's leading
// whitespace stripped from every line.
func (e *extractor) sourceSlice(node *sitter.Node) string {
	lines := strings.Split(string(e.source), "\n")
	start := int(node.StartPosition().Row)
	end := int(node.EndPosition().Row)
	if start < 0 || end >= len(lines) || start > end {
		return ""
	}
	return deindent(lines[start : end+1])
}

func deindent(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	indent := len(lines[0]) - len(strings.TrimLeft(lines[0], " \t"))
	out := make([]string, len(lines))
	for i, line := range lines {
		if len(line) >= indent {
			out[i] = line[indent:]
		} else {
			out[i] = ""
		}
	}
	return strings.Join(out, "\n")
}

// docstring extracts the leading string literal of a module or block, if
// present, cleaned the way Python's inspect.cleandoc cleans it.
func (e *extractor) docstring(block *sitter.Node) string {
	for i := uint(0); i < block.ChildCount(); i++ {
		child := block.Child(i)
		switch child.Kind() {
		case "comment":
			continue
		case "expression_statement":
			if child.ChildCount() == 1 && child.Child(0).Kind() == "string" {
				return cleanDoc(stripQuotes(e.text(child.Child(0))))
			}
			return ""
		default:
			return ""
		}
	}
	return ""
}

func stripQuotes(value string) string {
	// Drop string prefixes (r, b, f, u) before the quote run.
	for len(value) > 0 && value[0] != '"' && value[0] != '\'' {
		value = value[1:]
	}
	for _, quote := range []string{`"""`, "'''", `"`, "'"} {
		if strings.HasPrefix(value, quote) && strings.HasSuffix(value, quote) && len(value) >= 2*len(quote) {
			return value[len(quote) : len(value)-len(quote)]
		}
	}
	return value
}

// cleanDoc mirrors inspect.cleandoc: strip leading whitespace from the
// first line, remove the common indent from the rest, and trim blank
// leading/trailing lines.
func cleanDoc(doc string) string {
	lines := strings.Split(doc, "\n")
	lines[0] = strings.TrimLeft(lines[0], " \t")

	margin := -1
	for _, line := range lines[1:] {
		trimmed := strings.TrimLeft(line, " \t")
		if trimmed == "" {
			continue
		}
		indent := len(line) - len(trimmed)
		if margin < 0 || indent < margin {
			margin = indent
		}
	}
	if margin > 0 {
		for i, line := range lines[1:] {
			if len(line) >= margin {
				lines[i+1] = line[margin:]
			} else {
				lines[i+1] = strings.TrimLeft(line, " \t")
			}
		}
	}

	for len(lines) > 0 && strings.TrimSpace(lines[0]) == "" {
		lines = lines[1:]
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}

func (e *extractor) text(node *sitter.Node) string {
	if node == nil {
		return ""
	}
	return string(e.source[node.StartByte():node.EndByte()])
}
