package project

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"pyxref/internal/entity"
	xerrors "pyxref/internal/errors"
	"pyxref/internal/parser"
)

// writeTree lays out a fixture package named "exampleproject" under a temp
// directory and returns the package root.
func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()

	root := filepath.Join(t.TempDir(), "exampleproject")
	for path, content := range files {
		full := filepath.Join(root, path)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func analyzeTree(t *testing.T, root string, opts Options) *entity.Project {
	t.Helper()

	a, err := NewAnalyzer(opts)
	if err != nil {
		t.Fatal(err)
	}
	proj, err := a.Analyze(context.Background(), root, "exampleproject")
	if err != nil {
		t.Fatal(err)
	}
	return proj
}

func findFile(t *testing.T, proj *entity.Project, name string) *entity.File {
	t.Helper()

	var found *entity.File
	proj.RootFolder.WalkFiles(func(file *entity.File) {
		if filepath.Base(file.Path) == name {
			found = file
		}
	})
	if found == nil {
		t.Fatalf("file %s not found in project", name)
	}
	return found
}

func TestAnalyzeLinksCrossModuleDependencies(t *testing.T) {
	root := writeTree(t, map[string]string{
		"utils.py": `
def base_function():
    pass

def helper_function():
    pass
`,
		"main.py": `
from exampleproject.utils import base_function

def caller():
    base_function()
`,
	})

	proj := analyzeTree(t, root, Options{})
	main := findFile(t, proj, "main.py")

	caller := main.Functions[0]
	want := []string{"exampleproject.utils.base_function"}
	if !reflect.DeepEqual(caller.Dependencies, want) {
		t.Errorf("Expected %v, got %v", want, caller.Dependencies)
	}

	if len(caller.DependencyRefs) != 1 {
		t.Fatalf("Expected 1 linked ref, got %d", len(caller.DependencyRefs))
	}
	if caller.DependencyRefs[0].EntityName() != "base_function" {
		t.Errorf("Expected base_function, got %s", caller.DependencyRefs[0].EntityName())
	}
}

func TestSameFileCallsStayShortForm(t *testing.T) {
	root := writeTree(t, map[string]string{
		"utils.py": `
def base_function():
    pass

def dependent_function():
    base_function()
`,
	})

	proj := analyzeTree(t, root, Options{})
	utils := findFile(t, proj, "utils.py")

	dep := utils.Functions[1]
	want := []string{"base_function"}
	if !reflect.DeepEqual(dep.Dependencies, want) {
		t.Errorf("Expected %v, got %v", want, dep.Dependencies)
	}
	if len(dep.DependencyRefs) != 1 || dep.DependencyRefs[0].EntityName() != "base_function" {
		t.Errorf("Expected linked base_function, got %v", dep.DependencyRefs)
	}
}

func TestBuiltinAndExternalCallsPruned(t *testing.T) {
	root := writeTree(t, map[string]string{
		"main.py": `
import os

def caller():
    print("x")
    os.path.join("a", "b")
`,
	})

	proj := analyzeTree(t, root, Options{})
	main := findFile(t, proj, "main.py")

	if len(main.Functions[0].Dependencies) != 0 {
		t.Errorf("Expected no dependencies, got %v", main.Functions[0].Dependencies)
	}
	if len(main.Dependencies) != 0 {
		t.Errorf("Expected no file dependencies, got %v", main.Dependencies)
	}
}

func TestSelfReferencesStayOnMethods(t *testing.T) {
	root := writeTree(t, map[string]string{
		"models.py": `
def base_function():
    pass

class Worker:
    def step(self):
        base_function()

    def run(self):
        self.step()
`,
	})

	proj := analyzeTree(t, root, Options{})
	models := findFile(t, proj, "models.py")

	cls := models.Classes[0]
	run := cls.Methods[1]

	want := []string{"self.step"}
	if !reflect.DeepEqual(run.Dependencies, want) {
		t.Errorf("Expected %v, got %v", want, run.Dependencies)
	}
	// Instance references are never linked.
	if len(run.DependencyRefs) != 0 {
		t.Errorf("Expected no refs, got %v", run.DependencyRefs)
	}

	// And excluded from the class aggregate.
	wantCls := []string{"base_function"}
	if !reflect.DeepEqual(cls.Dependencies, wantCls) {
		t.Errorf("Expected %v, got %v", wantCls, cls.Dependencies)
	}
}

func TestParentClassLinked(t *testing.T) {
	root := writeTree(t, map[string]string{
		"models.py": `
class Base:
    pass

class Child(Base):
    pass
`,
	})

	proj := analyzeTree(t, root, Options{})
	models := findFile(t, proj, "models.py")

	child := models.Classes[1]
	want := []string{"Base"}
	if !reflect.DeepEqual(child.Dependencies, want) {
		t.Errorf("Expected %v, got %v", want, child.Dependencies)
	}
	if len(child.DependencyRefs) != 1 || child.DependencyRefs[0].EntityName() != "Base" {
		t.Errorf("Expected linked Base, got %v", child.DependencyRefs)
	}
}

func TestRelativeImportAcrossPackages(t *testing.T) {
	root := writeTree(t, map[string]string{
		"utils.py": `
def helper_function():
    pass
`,
		"subpackage/nested.py": `
from ..utils import helper_function

def deep():
    helper_function()
`,
	})

	proj := analyzeTree(t, root, Options{})
	nested := findFile(t, proj, "nested.py")

	want := []string{"exampleproject.utils.helper_function"}
	if !reflect.DeepEqual(nested.Functions[0].Dependencies, want) {
		t.Errorf("Expected %v, got %v", want, nested.Functions[0].Dependencies)
	}
}

func TestFileDependenciesAreUnion(t *testing.T) {
	root := writeTree(t, map[string]string{
		"utils.py": `
def base_function():
    pass

def first_caller():
    base_function()

def second_caller():
    base_function()

class Consumer:
    def use(self):
        base_function()
`,
	})

	proj := analyzeTree(t, root, Options{})
	utils := findFile(t, proj, "utils.py")

	want := []string{"base_function"}
	if !reflect.DeepEqual(utils.Dependencies, want) {
		t.Errorf("Expected %v, got %v", want, utils.Dependencies)
	}
}

func TestRewriteIsIdempotent(t *testing.T) {
	root := writeTree(t, map[string]string{
		"utils.py": `
def base_function():
    pass
`,
		"main.py": `
from exampleproject.utils import base_function

def caller():
    base_function()
`,
	})

	proj := analyzeTree(t, root, Options{})

	snapshot := collectDeps(proj)
	Rewrite(proj)
	if err := Link(proj, parser.NewImportResolver(root, "exampleproject")); err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(snapshot, collectDeps(proj)) {
		t.Errorf("Second rewrite changed dependencies: %v vs %v", snapshot, collectDeps(proj))
	}
}

func TestReexportAliasCanonicalized(t *testing.T) {
	root := writeTree(t, map[string]string{
		"utils.py": `
def base_function():
    pass
`,
		"main.py": `
from exampleproject import base_function

def caller():
    base_function()
`,
	})

	// Run the pipeline by hand so the alias map can stand in for what the
	// loader captures from an initializer doing
	// "from exampleproject.utils import base_function".
	proj := entity.NewProject(root, "exampleproject")
	p := parser.NewParser(root, "exampleproject")
	w := &walker{parser: p, project: proj}
	folder, err := w.walk(root)
	if err != nil {
		t.Fatal(err)
	}
	proj.RootFolder = folder
	proj.Aliases = map[string]string{
		"exampleproject.base_function": "exampleproject.utils.base_function",
	}

	Rewrite(proj)
	if err := Link(proj, p.Resolver()); err != nil {
		t.Fatal(err)
	}

	main := findFile(t, proj, "main.py")
	want := []string{"exampleproject.utils.base_function"}
	if !reflect.DeepEqual(main.Functions[0].Dependencies, want) {
		t.Errorf("Expected %v, got %v", want, main.Functions[0].Dependencies)
	}
	if len(main.Functions[0].DependencyRefs) != 1 {
		t.Fatalf("Expected 1 ref, got %d", len(main.Functions[0].DependencyRefs))
	}
}

func TestStdlibFromImportPruned(t *testing.T) {
	root := writeTree(t, map[string]string{
		"main.py": `
from os.path import join

def caller():
    join("a", "b")
`,
	})

	proj := analyzeTree(t, root, Options{})
	main := findFile(t, proj, "main.py")

	// os.path is outside the project, so the mention is dropped rather
	// than linked or reported as a failure.
	if len(main.Functions[0].Dependencies) != 0 {
		t.Errorf("Expected no dependencies, got %v", main.Functions[0].Dependencies)
	}
	if len(main.Functions[0].DependencyRefs) != 0 {
		t.Errorf("Expected no refs, got %v", main.Functions[0].DependencyRefs)
	}
}

func TestUnresolvableImportTargetPruned(t *testing.T) {
	root := writeTree(t, map[string]string{
		"main.py": `
import exampleproject.missing

def caller():
    exampleproject.missing()
`,
	})

	proj := analyzeTree(t, root, Options{})
	main := findFile(t, proj, "main.py")

	// The target looks project-local but no such module exists, so it is
	// treated like any other out-of-project name.
	if len(main.Functions[0].Dependencies) != 0 {
		t.Errorf("Expected no dependencies, got %v", main.Functions[0].Dependencies)
	}
}

func TestExternalReexportPruned(t *testing.T) {
	root := writeTree(t, map[string]string{
		"main.py": `
from exampleproject import join

def caller():
    join("a", "b")
`,
	})

	// Loader output for an initializer doing
	// "from os.path import join": the defining module is outside the
	// package namespace.
	proj := entity.NewProject(root, "exampleproject")
	p := parser.NewParser(root, "exampleproject")
	w := &walker{parser: p, project: proj}
	folder, err := w.walk(root)
	if err != nil {
		t.Fatal(err)
	}
	proj.RootFolder = folder
	proj.Aliases = map[string]string{
		"exampleproject.join": "posixpath.join",
	}

	Rewrite(proj)
	if err := Link(proj, p.Resolver()); err != nil {
		t.Fatal(err)
	}

	main := findFile(t, proj, "main.py")
	if len(main.Functions[0].Dependencies) != 0 {
		t.Errorf("Expected no dependencies, got %v", main.Functions[0].Dependencies)
	}
}

func TestLinkFailsOnUnregisteredSurvivor(t *testing.T) {
	// A dependency that passes the filter without a registered entity is a
	// resolver defect; construct one directly to exercise the failure path.
	proj := entity.NewProject("/proj", "exampleproject")
	ghost := &entity.Function{Name: "caller"}
	ghost.Dependencies = []string{"exampleproject.ghost.fn"}
	proj.RootFolder = &entity.Folder{
		Path: "/proj",
		Files: []*entity.File{{
			Path:      "/proj/main.py",
			Functions: []*entity.Function{ghost},
		}},
	}

	err := Link(proj, parser.NewImportResolver("/proj", "exampleproject"))
	if err == nil {
		t.Fatal("Expected link failure for unregistered dependency")
	}
	if !xerrors.IsCode(err, xerrors.CodeInvariant) {
		t.Errorf("Expected invariant error, got %v", err)
	}
}

func TestExcludedDirsAndFilesSkipped(t *testing.T) {
	root := writeTree(t, map[string]string{
		"keep.py":           "def kept():\n    pass\n",
		"setup.py":          "def skipped():\n    pass\n",
		"vendor/bundled.py": "def bundled():\n    pass\n",
		".hidden/secret.py": "def hidden():\n    pass\n",
	})

	proj := analyzeTree(t, root, Options{
		ExcludeDirs:  []string{"vendor*"},
		ExcludeFiles: []string{"setup.py"},
	})

	var names []string
	proj.RootFolder.WalkFiles(func(file *entity.File) {
		names = append(names, filepath.Base(file.Path))
	})

	if !reflect.DeepEqual(names, []string{"keep.py"}) {
		t.Errorf("Expected only keep.py, got %v", names)
	}
}

func TestInitializersNotParsedStatically(t *testing.T) {
	root := writeTree(t, map[string]string{
		"__init__.py": "from exampleproject.utils import base_function\n",
		"utils.py":    "def base_function():\n    pass\n",
	})

	proj := analyzeTree(t, root, Options{})

	var names []string
	proj.RootFolder.WalkFiles(func(file *entity.File) {
		names = append(names, filepath.Base(file.Path))
	})
	if !reflect.DeepEqual(names, []string{"utils.py"}) {
		t.Errorf("Expected only utils.py, got %v", names)
	}
}

func TestLoaderRecoversReexports(t *testing.T) {
	python, err := exec.LookPath("python3")
	if err != nil {
		t.Skip("python3 not available")
	}

	root := writeTree(t, map[string]string{
		"__init__.py": `
from exampleproject.utils import base_function

__all__ = ["base_function"]
`,
		"utils.py": `
def base_function():
    pass
`,
		"main.py": `
from exampleproject import base_function

def caller():
    base_function()
`,
	})

	proj := analyzeTree(t, root, Options{
		Python:        python,
		LoaderEnabled: true,
		LoaderTimeout: 30 * time.Second,
	})

	if proj.Aliases["exampleproject.base_function"] != "exampleproject.utils.base_function" {
		t.Fatalf("Expected loader alias, got %v", proj.Aliases)
	}

	main := findFile(t, proj, "main.py")
	want := []string{"exampleproject.utils.base_function"}
	if !reflect.DeepEqual(main.Functions[0].Dependencies, want) {
		t.Errorf("Expected %v, got %v", want, main.Functions[0].Dependencies)
	}
}

func TestChainedReexportsResolveToDefiningModule(t *testing.T) {
	python, err := exec.LookPath("python3")
	if err != nil {
		t.Skip("python3 not available")
	}

	// deep_function is re-exported twice: sub/__init__.py lifts it out of
	// impl.py, and the root __init__.py lifts it again.
	root := writeTree(t, map[string]string{
		"__init__.py": `
from exampleproject.sub import deep_function

__all__ = ["deep_function"]
`,
		"sub/__init__.py": `
from exampleproject.sub.impl import deep_function

__all__ = ["deep_function"]
`,
		"sub/impl.py": `
def deep_function():
    pass
`,
		"main.py": `
from exampleproject import deep_function

def caller():
    deep_function()
`,
		"mid.py": `
from exampleproject.sub import deep_function

def mid_caller():
    deep_function()
`,
	})

	proj := analyzeTree(t, root, Options{
		Python:        python,
		LoaderEnabled: true,
		LoaderTimeout: 30 * time.Second,
	})

	canonical := "exampleproject.sub.impl.deep_function"

	// Importers at both chain depths land on the defining-module path.
	for _, tc := range []struct {
		file string
		fn   int
	}{
		{"main.py", 0},
		{"mid.py", 0},
	} {
		file := findFile(t, proj, tc.file)
		got := file.Functions[tc.fn].Dependencies
		if !reflect.DeepEqual(got, []string{canonical}) {
			t.Errorf("%s: expected [%s], got %v", tc.file, canonical, got)
		}
		refs := file.Functions[tc.fn].DependencyRefs
		if len(refs) != 1 || refs[0].EntityName() != "deep_function" {
			t.Errorf("%s: expected linked deep_function, got %v", tc.file, refs)
		}
	}

	// No intermediate short form survives anywhere in the project.
	proj.RootFolder.WalkFiles(func(file *entity.File) {
		for _, dep := range file.Dependencies {
			if dep == "exampleproject.deep_function" || dep == "exampleproject.sub.deep_function" {
				t.Errorf("Short alias %s survived in %s", dep, file.Path)
			}
		}
	})
}

func TestFoldersWithoutPythonContentPruned(t *testing.T) {
	root := writeTree(t, map[string]string{
		"keep.py":          "def kept():\n    pass\n",
		"docs/readme.txt":  "notes\n",
		"assets/logo.svg":  "<svg/>\n",
		"sub/mod.py":       "def sub_fn():\n    pass\n",
		"sub/fixtures/d.c": "int x;\n",
	})

	proj := analyzeTree(t, root, Options{})

	if len(proj.RootFolder.Subfolders) != 1 {
		t.Fatalf("Expected only sub to survive, got %d subfolders", len(proj.RootFolder.Subfolders))
	}
	sub := proj.RootFolder.Subfolders[0]
	if filepath.Base(sub.Path) != "sub" {
		t.Errorf("Expected sub, got %s", sub.Path)
	}
	if len(sub.Subfolders) != 0 {
		t.Errorf("Expected fixtures to be pruned, got %v", sub.Subfolders)
	}
}

func collectDeps(proj *entity.Project) map[string][]string {
	deps := make(map[string][]string)
	proj.RootFolder.WalkFiles(func(file *entity.File) {
		deps[file.Path] = append([]string(nil), file.Dependencies...)
		for _, fn := range file.Functions {
			deps[file.Path+"#"+fn.Name] = append([]string(nil), fn.Dependencies...)
		}
		for _, cls := range file.Classes {
			deps[file.Path+"#"+cls.Name] = append([]string(nil), cls.Dependencies...)
			for _, method := range cls.Methods {
				deps[file.Path+"#"+cls.Name+"."+method.Name] = append([]string(nil), method.Dependencies...)
			}
		}
	})
	return deps
}
