// Package entity holds the parsed code model: functions, classes, files,
// and the folder tree that mirrors the analyzed project on disk.
package entity

// UnknownExpr marks an expression shape the extractor does not understand.
// It is recorded instead of aborting extraction.
const UnknownExpr = "<unknown>"

// SelfPrefix marks a dependency on the method's own instance. Such
// dependencies stay verbatim on the method and are excluded from the
// class-level aggregate.
const SelfPrefix = "self."

// Entity is implemented by File, Function, and Class.
type Entity interface {
	EntityName() string
}

// Code carries the fields shared by every parsed entity.
type Code struct {
	Dependencies   []string // deduplicated, first-occurrence order
	DependencyRefs []Entity // filled by the reference linker
	Docstring      string
	SourceCode     string // verbatim, de-indented slice
}

// AddDependency appends dep unless it is already present. First-occurrence
// order is preserved.
func (c *Code) AddDependency(dep string) {
	if dep == "" {
		return
	}
	for _, existing := range c.Dependencies {
		if existing == dep {
			return
		}
	}
	c.Dependencies = append(c.Dependencies, dep)
}

type Function struct {
	Code
	Name string
}

func (f *Function) EntityName() string { return f.Name }

type Class struct {
	Code
	Name string
	// Methods are the directly nested function definitions. Methods of
	// nested classes are not collected.
	Methods []*Function
	// ParentClasses are the base-class expressions rendered as dotted
	// strings, or UnknownExpr for shapes the extractor does not handle.
	ParentClasses []string
}

func (c *Class) EntityName() string { return c.Name }

type File struct {
	Code
	Path      string
	Functions []*Function
	Classes   []*Class
	// Imports lists the file's fully-resolved dotted import targets in
	// source order.
	Imports []string
	// Aliases maps each name bound in this file's scope to its
	// fully-resolved dotted path.
	Aliases map[string]string
}

func (f *File) EntityName() string { return f.Path }

// LocalName reports whether name is a top-level function or class defined
// in this file.
func (f *File) LocalName(name string) bool {
	for _, fn := range f.Functions {
		if fn.Name == name {
			return true
		}
	}
	for _, cls := range f.Classes {
		if cls.Name == name {
			return true
		}
	}
	return false
}

// Folder mirrors one project directory. Each Folder exclusively owns its
// files and subfolders; the tree is acyclic by construction.
type Folder struct {
	Path       string
	Files      []*File
	Subfolders []*Folder
}

// WalkFiles visits every file in the folder tree depth-first.
func (f *Folder) WalkFiles(visit func(*File)) {
	for _, file := range f.Files {
		visit(file)
	}
	for _, sub := range f.Subfolders {
		sub.WalkFiles(visit)
	}
}

// Project is the fully resolved analysis result.
type Project struct {
	Path        string
	PackageName string
	RootFolder  *Folder
	// Aliases maps short relative paths to canonical fully-qualified
	// paths. Populated only by the re-export loader.
	Aliases map[string]string
	// References maps canonical paths to their owning entity. The index
	// does not own the entities; the folder tree does.
	References map[string]Entity
}

func NewProject(path, packageName string) *Project {
	return &Project{
		Path:        path,
		PackageName: packageName,
		Aliases:     make(map[string]string),
		References:  make(map[string]Entity),
	}
}
