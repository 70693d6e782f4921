package project

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"

	"pyxref/internal/entity"
	"pyxref/internal/parser"
	"pyxref/internal/util"
)

// walker builds the owned folder tree depth-first and registers every
// parsed entity in the project reference index as it goes. Hidden entries,
// cache directories, and dunder-named files are skipped; package
// initializers are never parsed statically (the re-export loader executes
// them instead).
type walker struct {
	parser       *parser.Parser
	project      *entity.Project
	excludeDirs  []glob.Glob
	excludeFiles []glob.Glob
}

func (w *walker) walk(dir string) (*entity.Folder, error) {
	folder := &entity.Folder{Path: dir}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list directory %q: %w", dir, err)
	}

	for _, dirent := range entries {
		name := dirent.Name()
		path := filepath.Join(dir, name)

		if dirent.IsDir() {
			if util.IsHiddenName(name) || w.matchAny(w.excludeDirs, name) {
				continue
			}
			sub, err := w.walk(path)
			if err != nil {
				return nil, err
			}
			if len(sub.Files) == 0 && len(sub.Subfolders) == 0 {
				// Directories without Python content contribute no
				// entities and do not appear in the tree.
				continue
			}
			folder.Subfolders = append(folder.Subfolders, sub)
			continue
		}

		if util.IsHiddenName(name) || w.matchAny(w.excludeFiles, name) {
			continue
		}
		if !strings.HasSuffix(name, ".py") {
			continue
		}

		file, err := w.parser.ParseFile(path)
		if err != nil {
			return nil, err
		}
		folder.Files = append(folder.Files, file)
		w.register(file)
	}

	return folder, nil
}

func (w *walker) matchAny(globs []glob.Glob, name string) bool {
	for _, g := range globs {
		if g.Match(name) {
			return true
		}
	}
	return false
}

// register indexes the file and its top-level functions and classes under
// their canonical dotted paths. Key uniqueness follows from the
// one-file-one-module layout.
func (w *walker) register(file *entity.File) {
	module := w.parser.Resolver().ModulePath(file.Path)
	w.project.References[module] = file
	for _, fn := range file.Functions {
		w.project.References[module+"."+fn.Name] = fn
	}
	for _, cls := range file.Classes {
		w.project.References[module+"."+cls.Name] = cls
	}
}
