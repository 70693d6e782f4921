package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"pyxref/internal/config"
	"pyxref/internal/observability"
	"strings"
	"time"
)

var (
	configPath = flag.String("config", "./pyxref.toml", "Path to config file")
	once       = flag.Bool("once", false, "Run single analysis and exit")
	ui         = flag.Bool("ui", false, "Enable terminal UI mode")
	history    = flag.Bool("history", false, "Print recent analysis runs and exit")
	verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	version    = flag.Bool("version", false, "Print version and exit")
)

const VERSION = "1.0.0"

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("pyxref v%s\n", VERSION)
		os.Exit(0)
	}

	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}

	output := os.Stdout
	if *ui {
		// In UI mode, avoid stdout logs corrupting the TUI.
		logPath := resolveLogPath()
		if err := os.MkdirAll(filepath.Dir(logPath), 0700); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to create log dir for %s: %v\n", logPath, err)
		} else {
			f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
			if err == nil {
				output = f
			} else {
				fmt.Fprintf(os.Stderr, "warning: failed to open log file %s: %v\n", logPath, err)
			}
		}
	}

	logger := slog.New(slog.NewTextHandler(output, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		if *configPath == "./pyxref.toml" {
			if fallback, ferr := config.Load("./pyxref.example.toml"); ferr == nil {
				cfg, err = fallback, nil
			} else if os.IsNotExist(err) {
				cfg, err = config.Default(), nil
			}
		}
		if err != nil {
			slog.Error("failed to load config", "error", err)
			os.Exit(1)
		}
	}

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: pyxref [flags] <project-root> [package-name]")
		os.Exit(1)
	}

	root, err := filepath.Abs(flag.Arg(0))
	if err != nil {
		slog.Error("failed to resolve project root", "path", flag.Arg(0), "error", err)
		os.Exit(1)
	}

	packageName := filepath.Base(root)
	if flag.NArg() > 1 {
		packageName = flag.Arg(1)
	}

	ctx := context.Background()

	app, err := NewApp(cfg)
	if err != nil {
		slog.Error("failed to initialize app", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	if *history {
		runs, err := app.RecentRuns(root)
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(1)
		}
		fmt.Print(formatRunHistory(runs))
		os.Exit(0)
	}

	shutdownTracing, err := observability.InitTracing(ctx, cfg.Metrics.OTLPEndpoint)
	if err != nil {
		slog.Warn("tracing disabled", "error", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdownTracing(shutdownCtx)
		}()
	}

	if cfg.Metrics.Addr != "" && !*once {
		obsServer := observability.NewServer(cfg.Metrics.Addr)
		if err := obsServer.Start(); err != nil {
			slog.Warn("failed to start observability server", "error", err)
		} else {
			defer func() {
				stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = obsServer.Stop(stopCtx)
			}()
		}
	}

	summary, err := app.Analyze(ctx, root, packageName)
	if err != nil {
		slog.Error("analysis failed", "error", err)
		os.Exit(1)
	}

	if !*ui {
		app.PrintSummary(summary)
	}

	if *once {
		return
	}

	if err := app.StartWatcher(ctx, root, packageName); err != nil {
		slog.Error("failed to start watcher", "error", err)
		os.Exit(1)
	}

	if *ui {
		if err := app.RunUI(); err != nil {
			slog.Error("failed to run UI", "error", err)
			os.Exit(1)
		}
	} else {
		select {}
	}
}

func resolveLogPath() string {
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, "pyxref", "pyxref.log")
	}

	home, err := os.UserHomeDir()
	if err == nil && home != "" {
		return filepath.Join(home, ".local", "state", "pyxref", "pyxref.log")
	}

	return "pyxref.log"
}

func formatRunHistory(runs []RunRecord) string {
	var b strings.Builder

	b.WriteString("Recent Runs\n")
	b.WriteString("===========\n")
	if len(runs) == 0 {
		b.WriteString("(no runs recorded)\n")
		return b.String()
	}

	for _, run := range runs {
		b.WriteString(fmt.Sprintf("%s  %s  files=%d functions=%d classes=%d deps=%d aliases=%d %v\n",
			run.Timestamp.Local().Format("2006-01-02 15:04:05"),
			run.Package,
			run.FileCount,
			run.FunctionCount,
			run.ClassCount,
			run.DependencyCount,
			run.AliasCount,
			run.Duration,
		))
	}
	return b.String()
}
