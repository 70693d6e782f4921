package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"pyxref/internal/config"
	"pyxref/internal/entity"
	"pyxref/internal/observability"
	"pyxref/internal/output"
	"pyxref/internal/project"
	"pyxref/internal/store"
	"pyxref/internal/util"
	"pyxref/internal/watcher"
)

// RunRecord is one persisted analysis run.
type RunRecord = store.Run

// Summary is what one full analysis produced, for printing and for the UI.
type Summary struct {
	Root            string
	Package         string
	FileCount       int
	FunctionCount   int
	ClassCount      int
	DependencyCount int
	AliasCount      int
	Duration        time.Duration
}

type App struct {
	Config   *config.Config
	analyzer *project.Analyzer
	history  *store.Store
	limiter  *util.Limiter

	mu         sync.Mutex
	project    *entity.Project
	teaProgram *tea.Program
	fsWatcher  *watcher.Watcher
}

func NewApp(cfg *config.Config) (*App, error) {
	analyzer, err := project.NewAnalyzer(project.Options{
		Python:        cfg.Python,
		LoaderEnabled: cfg.Loader.Enabled,
		LoaderTimeout: cfg.Loader.Timeout,
		ExcludeDirs:   cfg.Exclude.Dirs,
		ExcludeFiles:  cfg.Exclude.Files,
	})
	if err != nil {
		return nil, err
	}

	app := &App{
		Config:   cfg,
		analyzer: analyzer,
		limiter:  util.NewLimiter(cfg.Watch.RebuildsPerMinute/60.0, 1),
	}

	if cfg.History.Path != "" {
		h, err := store.Open(cfg.History.Path)
		if err != nil {
			return nil, err
		}
		app.history = h
	}

	return app, nil
}

// Analyze runs one full analysis, records it in the run history, and writes
// the configured graph outputs.
func (a *App) Analyze(ctx context.Context, root, packageName string) (Summary, error) {
	start := time.Now()

	proj, err := a.analyzer.Analyze(ctx, root, packageName)
	if err != nil {
		return Summary{}, err
	}

	a.mu.Lock()
	a.project = proj
	a.mu.Unlock()

	summary := summarize(proj)
	summary.Duration = time.Since(start)

	if a.history != nil {
		_, err := a.history.SaveRun(store.Run{
			ProjectKey:      root,
			Package:         packageName,
			FileCount:       summary.FileCount,
			FunctionCount:   summary.FunctionCount,
			ClassCount:      summary.ClassCount,
			DependencyCount: summary.DependencyCount,
			AliasCount:      summary.AliasCount,
			Duration:        summary.Duration,
		})
		if err != nil {
			slog.Warn("failed to record run", "error", err)
		}
	}

	if err := a.GenerateOutputs(proj); err != nil {
		slog.Error("failed to generate outputs", "error", err)
	}

	return summary, nil
}

func (a *App) GenerateOutputs(proj *entity.Project) error {
	if a.Config.Output.DOT != "" {
		dot, err := output.NewDOTGenerator(proj).Generate()
		if err != nil {
			return err
		}
		if err := os.WriteFile(a.Config.Output.DOT, []byte(dot), 0644); err != nil {
			return err
		}
	}

	if a.Config.Output.Mermaid != "" {
		mermaid, err := output.NewMermaidGenerator(proj).Generate()
		if err != nil {
			return err
		}
		if err := os.WriteFile(a.Config.Output.Mermaid, []byte(mermaid), 0644); err != nil {
			return err
		}
	}

	if a.Config.Output.TSV != "" {
		tsv, err := output.NewTSVGenerator(proj).Generate()
		if err != nil {
			return err
		}
		if err := os.WriteFile(a.Config.Output.TSV, []byte(tsv), 0644); err != nil {
			return err
		}
	}

	return nil
}

// HandleChanges re-runs the whole analysis after a debounced batch of file
// changes. Rebuilds are throttled so a rapid editing session does not pin
// the interpreter.
func (a *App) HandleChanges(ctx context.Context, root, packageName string, paths []string) {
	slog.Info("detected changes", "count", len(paths))

	if !a.limiter.Allow(1) {
		slog.Debug("rebuild throttled", "paths", len(paths))
		return
	}
	observability.RebuildEvents.Inc()

	summary, err := a.Analyze(ctx, root, packageName)
	if err != nil {
		slog.Error("re-analysis failed", "error", err)
		return
	}

	a.PrintSummary(summary)

	if a.teaProgram != nil {
		a.teaProgram.Send(updateMsg{
			summary: summary,
			nodes:   a.entityRows(),
		})
	}
}

func (a *App) StartWatcher(ctx context.Context, root, packageName string) error {
	w, err := watcher.NewWatcher(
		a.Config.Watch.Debounce,
		a.Config.Exclude.Dirs,
		a.Config.Exclude.Files,
		func(paths []string) {
			a.HandleChanges(ctx, root, packageName, paths)
		},
	)
	if err != nil {
		return err
	}
	a.fsWatcher = w
	return w.Watch(root)
}

func (a *App) RecentRuns(root string) ([]RunRecord, error) {
	if a.history == nil {
		return nil, fmt.Errorf("no history path configured")
	}
	return a.history.RecentRuns(root, 20)
}

func (a *App) PrintSummary(s Summary) {
	fmt.Println(strings.Repeat("-", 40))
	fmt.Printf("Analyzed %s (%s) in %v\n", s.Package, s.Root, s.Duration.Round(time.Millisecond))
	fmt.Printf("  %d files, %d functions, %d classes\n", s.FileCount, s.FunctionCount, s.ClassCount)
	fmt.Printf("  %d dependencies resolved, %d re-export aliases\n", s.DependencyCount, s.AliasCount)
	fmt.Println(strings.Repeat("-", 40))
}

func (a *App) RunUI() error {
	m := initialModel()
	p := tea.NewProgram(m, tea.WithAltScreen())
	a.teaProgram = p

	go func() {
		a.mu.Lock()
		proj := a.project
		a.mu.Unlock()
		if proj == nil {
			return
		}
		summary := summarize(proj)
		a.teaProgram.Send(updateMsg{
			summary: summary,
			nodes:   a.entityRows(),
		})
	}()

	_, err := p.Run()
	return err
}

func (a *App) Close() {
	if a.fsWatcher != nil {
		_ = a.fsWatcher.Close()
	}
	if a.history != nil {
		_ = a.history.Close()
	}
}

// entityRows lists every linked entity for the UI, one row per top-level
// function or class.
func (a *App) entityRows() []entityRow {
	a.mu.Lock()
	proj := a.project
	a.mu.Unlock()
	if proj == nil || proj.RootFolder == nil {
		return nil
	}

	var rows []entityRow
	proj.RootFolder.WalkFiles(func(file *entity.File) {
		for _, fn := range file.Functions {
			rows = append(rows, entityRow{
				name: fn.Name,
				kind: "function",
				deps: append([]string(nil), fn.Dependencies...),
			})
		}
		for _, cls := range file.Classes {
			rows = append(rows, entityRow{
				name: cls.Name,
				kind: "class",
				deps: append([]string(nil), cls.Dependencies...),
			})
		}
	})
	return rows
}

func summarize(proj *entity.Project) Summary {
	s := Summary{
		Root:       proj.Path,
		Package:    proj.PackageName,
		AliasCount: len(proj.Aliases),
	}
	if proj.RootFolder == nil {
		return s
	}

	proj.RootFolder.WalkFiles(func(file *entity.File) {
		s.FileCount++
		s.FunctionCount += len(file.Functions)
		s.ClassCount += len(file.Classes)
		for _, fn := range file.Functions {
			s.DependencyCount += len(fn.Dependencies)
		}
		for _, cls := range file.Classes {
			s.DependencyCount += len(cls.Dependencies)
			s.FunctionCount += len(cls.Methods)
			for _, method := range cls.Methods {
				s.DependencyCount += len(method.Dependencies)
			}
		}
	})
	return s
}
