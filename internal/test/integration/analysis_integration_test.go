package integration

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pyxref/internal/entity"
	"pyxref/internal/project"
)

func createTestProject(t *testing.T) string {
	root := filepath.Join(t.TempDir(), "shopapp")

	files := map[string]string{
		"__init__.py": `
from shopapp.billing import compute_total

__all__ = ["compute_total"]
`,
		"billing.py": `
def tax_rate():
    return 0.19

def compute_total(amount):
    return amount * (1 + tax_rate())
`,
		"orders.py": `
from shopapp import compute_total

class Order:
    def total(self):
        return compute_total(self.amount)

    def refresh(self):
        self.total()
`,
		"reports/summary.py": `
from ..billing import tax_rate

def render():
    tax_rate()
`,
	}
	for path, content := range files {
		full := filepath.Join(root, path)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
	return root
}

func TestFullPipelineIntegration(t *testing.T) {
	python, err := exec.LookPath("python3")
	if err != nil {
		t.Skip("python3 not available")
	}

	root := createTestProject(t)

	analyzer, err := project.NewAnalyzer(project.Options{
		Python:        python,
		LoaderEnabled: true,
		LoaderTimeout: 30 * time.Second,
	})
	require.NoError(t, err)

	proj, err := analyzer.Analyze(context.Background(), root, "shopapp")
	require.NoError(t, err)

	// The loader recovered the root re-export.
	assert.Equal(t, "shopapp.billing.compute_total", proj.Aliases["shopapp.compute_total"])

	byName := make(map[string]*entity.File)
	proj.RootFolder.WalkFiles(func(f *entity.File) {
		byName[filepath.Base(f.Path)] = f
	})
	require.Contains(t, byName, "orders.py")
	require.Contains(t, byName, "summary.py")

	// Re-exported names resolve to the defining module.
	order := byName["orders.py"].Classes[0]
	assert.Equal(t, []string{"shopapp.billing.compute_total"}, order.Dependencies)

	// Relative imports resolve against the package root.
	render := byName["summary.py"].Functions[0]
	assert.Equal(t, []string{"shopapp.billing.tax_rate"}, render.Dependencies)

	// Instance references stay on their method, unlinked.
	refresh := order.Methods[1]
	assert.Equal(t, []string{"self.total"}, refresh.Dependencies)
	assert.Empty(t, refresh.DependencyRefs)

	// Every surviving dependency has a linked entity.
	total := order.Methods[0]
	require.Len(t, total.DependencyRefs, 1)
	assert.Equal(t, "compute_total", total.DependencyRefs[0].EntityName())
}
