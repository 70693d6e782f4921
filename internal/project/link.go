package project

import (
	"strings"

	"pyxref/internal/entity"
	xerrors "pyxref/internal/errors"
	"pyxref/internal/observability"
	"pyxref/internal/parser"
)

// Link attaches the owning entity for every dependency string that
// survived rewriting. A lookup miss means a dependency passed the filter
// without being registered as an import target or local symbol; that is a
// resolver defect and fails the run.
func Link(proj *entity.Project, resolver *parser.ImportResolver) error {
	linked := 0
	var failure error

	proj.RootFolder.WalkFiles(func(file *entity.File) {
		if failure != nil {
			return
		}
		module := resolver.ModulePath(file.Path)

		link := func(code *entity.Code, owner string) {
			if failure != nil {
				return
			}
			code.DependencyRefs = code.DependencyRefs[:0]
			for _, dep := range code.Dependencies {
				if strings.HasPrefix(dep, entity.SelfPrefix) {
					// Instance references are not project-level entities.
					continue
				}
				target, ok := proj.References[dep]
				if !ok {
					// Same-file names are indexed under the file's module.
					target, ok = proj.References[module+"."+dep]
				}
				if !ok {
					failure = xerrors.New(xerrors.CodeInvariant,
						"dependency survived filtering but is not registered").
						WithContext(xerrors.CtxDep, dep).
						WithContext(xerrors.CtxEntity, owner).
						WithContext(xerrors.CtxPath, file.Path)
					return
				}
				code.DependencyRefs = append(code.DependencyRefs, target)
				linked++
			}
		}

		for _, fn := range file.Functions {
			link(&fn.Code, fn.Name)
		}
		for _, cls := range file.Classes {
			for _, method := range cls.Methods {
				link(&method.Code, cls.Name+"."+method.Name)
			}
			link(&cls.Code, cls.Name)
		}
		link(&file.Code, file.Path)
	})

	if failure != nil {
		return failure
	}
	observability.ReferencesLinked.Set(float64(linked))
	return nil
}
