// Package exports recovers re-export aliases that static parsing cannot
// see. Package initializers may compute their public-export list
// dynamically, so each one is executed in an isolated Python subprocess
// that reports the effective bindings back as JSON.
package exports

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"pyxref/internal/observability"
	"pyxref/internal/util"
)

// driverScript runs inside the sandbox interpreter. It snapshots the
// module registry and search path, imports the package under its
// fully-qualified name (which initializes ancestor packages first), reads
// the declared export list, maps every exported name to its defining
// module, and restores the snapshot on every exit path.
const driverScript = `
import importlib
import json
import sys


def main():
    root_parent = sys.argv[1]
    package = sys.argv[2]

    saved_modules = dict(sys.modules)
    saved_path = list(sys.path)

    aliases = {}
    try:
        sys.path.insert(0, root_parent)
        module = importlib.import_module(package)
        for name in list(getattr(module, "__all__", []) or []):
            obj = getattr(module, name, None)
            if obj is None:
                continue
            defining = getattr(obj, "__module__", None)
            if not defining:
                continue
            aliases[package + "." + name] = defining + "." + name
    finally:
        sys.modules.clear()
        sys.modules.update(saved_modules)
        sys.path[:] = saved_path

    json.dump({"aliases": aliases}, sys.stdout)


main()
`

const initializerName = "__init__.py"

// Loader executes package initializers one at a time. Executions are
// strictly serialized; each one is bounded by the configured deadline.
type Loader struct {
	python  string
	timeout time.Duration
}

func NewLoader(python string, timeout time.Duration) *Loader {
	return &Loader{python: python, timeout: timeout}
}

type driverResult struct {
	Aliases map[string]string `json:"aliases"`
}

// Run walks the package tree breadth-first from the project root and
// returns short-path -> canonical-path aliases for every re-exported name.
// A failing initializer is logged and skipped; aliases captured so far are
// kept.
func (l *Loader) Run(ctx context.Context, projectRoot, packageName string) map[string]string {
	aliases := make(map[string]string)

	rootParent := filepath.Dir(projectRoot)
	for _, pkg := range l.packageDirs(projectRoot, packageName) {
		observability.InitializerRuns.Inc()

		captured, err := l.runInitializer(ctx, rootParent, pkg)
		if err != nil {
			observability.InitializerFailures.Inc()
			slog.Warn("package initializer failed, alias coverage incomplete",
				"package", pkg, "error", err)
			continue
		}

		for short, canonical := range captured {
			if _, exists := aliases[short]; !exists {
				aliases[short] = canonical
			}
		}
	}

	observability.AliasesCaptured.Set(float64(len(aliases)))
	return aliases
}

// packageDirs lists the dotted paths of every package directory holding an
// initializer, breadth-first from the project root.
func (l *Loader) packageDirs(projectRoot, packageName string) []string {
	type dirEntry struct {
		path   string
		dotted string
	}

	var packages []string
	queue := []dirEntry{{path: projectRoot, dotted: packageName}}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		entries, err := os.ReadDir(current.path)
		if err != nil {
			slog.Warn("cannot list package directory", "path", current.path, "error", err)
			continue
		}

		hasInitializer := false
		for _, entry := range entries {
			if !entry.IsDir() && entry.Name() == initializerName {
				hasInitializer = true
				break
			}
		}
		if !hasInitializer {
			// Not a package; subpackages below it are unreachable too.
			continue
		}
		packages = append(packages, current.dotted)

		for _, entry := range entries {
			if entry.IsDir() && !util.IsHiddenName(entry.Name()) {
				queue = append(queue, dirEntry{
					path:   filepath.Join(current.path, entry.Name()),
					dotted: current.dotted + "." + entry.Name(),
				})
			}
		}
	}

	return packages
}

func (l *Loader) runInitializer(ctx context.Context, rootParent, pkg string) (map[string]string, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, l.python, "-c", driverScript, rootParent, pkg)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail != "" {
			return nil, fmt.Errorf("execute initializer: %w: %s", err, detail)
		}
		return nil, fmt.Errorf("execute initializer: %w", err)
	}

	var result driverResult
	if err := json.Unmarshal(stdout.Bytes(), &result); err != nil {
		return nil, fmt.Errorf("decode driver output: %w", err)
	}
	return result.Aliases, nil
}
