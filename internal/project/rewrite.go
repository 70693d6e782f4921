package project

import (
	"strings"

	"pyxref/internal/entity"
	"pyxref/internal/util"
)

// aliasChaseLimit bounds alias chasing so a cyclic alias map cannot hang
// the rewrite pass.
const aliasChaseLimit = 16

// Rewrite substitutes every raw dependency mention with its canonical form
// and prunes mentions that are neither in-project import targets nor
// locally defined names. Instance references (self-qualified) stay verbatim
// on their owning entity. Rewriting an already-rewritten project changes
// nothing: canonical strings resolve to themselves.
func Rewrite(proj *entity.Project) {
	proj.RootFolder.WalkFiles(func(file *entity.File) {
		rewriteFile(proj, file)
	})
}

func rewriteFile(proj *entity.Project, file *entity.File) {
	// Import targets are compared in canonical form, so a name imported
	// through a chain of re-exports matches its defining-module path. Only
	// targets registered in the reference index count: names imported from
	// outside the analyzed project are deliberately dropped, including
	// re-exports whose defining module lives outside the package.
	targets := make(map[string]bool, len(file.Imports))
	for _, imp := range file.Imports {
		canonical := chaseAliases(proj.Aliases, imp)
		if _, ok := proj.References[canonical]; ok {
			targets[canonical] = true
		}
	}

	for _, fn := range file.Functions {
		rewriteDeps(&fn.Code, proj, file, targets)
	}
	for _, cls := range file.Classes {
		for _, method := range cls.Methods {
			rewriteDeps(&method.Code, proj, file, targets)
		}
		rewriteDeps(&cls.Code, proj, file, targets)
	}

	// The file's own dependencies are the deduplicated union of its
	// functions' and classes' now-filtered dependencies.
	seen := make(map[string]bool)
	var union []string
	for _, fn := range file.Functions {
		for _, dep := range fn.Dependencies {
			union = util.AppendUnique(union, seen, dep)
		}
	}
	for _, cls := range file.Classes {
		for _, dep := range cls.Dependencies {
			union = util.AppendUnique(union, seen, dep)
		}
	}
	file.Dependencies = union
}

func rewriteDeps(code *entity.Code, proj *entity.Project, file *entity.File, targets map[string]bool) {
	seen := make(map[string]bool)
	var kept []string

	for _, dep := range code.Dependencies {
		if strings.HasPrefix(dep, entity.SelfPrefix) {
			// Instance references stay verbatim on the owning entity.
			kept = util.AppendUnique(kept, seen, dep)
			continue
		}

		resolved := resolveDep(proj, file, dep)
		if targets[resolved] || file.LocalName(resolved) {
			kept = util.AppendUnique(kept, seen, resolved)
		}
	}

	code.Dependencies = kept
}

// resolveDep applies the loader's global alias if present, else the file's
// local import alias, else leaves the mention unchanged; the result is then
// chased through the global map to its canonical defining path.
func resolveDep(proj *entity.Project, file *entity.File, dep string) string {
	if canonical, ok := proj.Aliases[dep]; ok {
		dep = canonical
	} else if local, ok := file.Aliases[dep]; ok {
		dep = local
	}
	return chaseAliases(proj.Aliases, dep)
}

func chaseAliases(aliases map[string]string, dep string) string {
	for i := 0; i < aliasChaseLimit; i++ {
		next, ok := aliases[dep]
		if !ok || next == dep {
			break
		}
		dep = next
	}
	return dep
}
