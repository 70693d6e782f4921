// Package project walks a Python source tree, drives the per-file
// extractor and the re-export loader, and runs the two project-wide
// resolution passes that turn raw dependency mentions into linked entity
// references.
package project

import (
	"context"
	"path/filepath"
	"time"

	"github.com/gobwas/glob"

	"pyxref/internal/entity"
	"pyxref/internal/exports"
	"pyxref/internal/observability"
	"pyxref/internal/parser"
)

// Options controls one analysis run. Each run is a fresh, complete
// rebuild; there is no incremental re-parse.
type Options struct {
	Python        string
	LoaderEnabled bool
	LoaderTimeout time.Duration
	ExcludeDirs   []string
	ExcludeFiles  []string
}

type Analyzer struct {
	opts         Options
	excludeDirs  []glob.Glob
	excludeFiles []glob.Glob
}

func NewAnalyzer(opts Options) (*Analyzer, error) {
	a := &Analyzer{opts: opts}

	for _, pattern := range opts.ExcludeDirs {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, err
		}
		a.excludeDirs = append(a.excludeDirs, g)
	}
	for _, pattern := range opts.ExcludeFiles {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, err
		}
		a.excludeFiles = append(a.excludeFiles, g)
	}

	return a, nil
}

// Analyze builds the fully resolved Project for the tree rooted at root,
// which represents the top-level package packageName. Sequencing is fixed:
// parse-all, then the re-export loader across the whole package tree, then
// the dependency rewriter, then the reference linker.
func (a *Analyzer) Analyze(ctx context.Context, root, packageName string) (*entity.Project, error) {
	ctx, span := observability.Tracer.Start(ctx, "analyzer.Analyze")
	defer span.End()

	root = filepath.Clean(root)
	proj := entity.NewProject(root, packageName)
	p := parser.NewParser(root, packageName)

	if err := a.timedPass(ctx, "parse", func(ctx context.Context) error {
		w := &walker{
			parser:       p,
			project:      proj,
			excludeDirs:  a.excludeDirs,
			excludeFiles: a.excludeFiles,
		}
		folder, err := w.walk(root)
		if err != nil {
			return err
		}
		proj.RootFolder = folder
		return nil
	}); err != nil {
		return nil, err
	}

	if a.opts.LoaderEnabled {
		_ = a.timedPass(ctx, "exports", func(ctx context.Context) error {
			loader := exports.NewLoader(a.opts.Python, a.opts.LoaderTimeout)
			proj.Aliases = loader.Run(ctx, root, packageName)
			return nil
		})
	}

	if err := a.timedPass(ctx, "rewrite", func(ctx context.Context) error {
		Rewrite(proj)
		return nil
	}); err != nil {
		return nil, err
	}

	if err := a.timedPass(ctx, "link", func(ctx context.Context) error {
		return Link(proj, p.Resolver())
	}); err != nil {
		return nil, err
	}

	return proj, nil
}

func (a *Analyzer) timedPass(ctx context.Context, name string, pass func(context.Context) error) error {
	ctx, span := observability.Tracer.Start(ctx, "analyzer."+name)
	defer span.End()

	start := time.Now()
	defer func() {
		observability.AnalysisDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	}()

	return pass(ctx)
}
