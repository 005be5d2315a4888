package scanner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mkdirs(t *testing.T, root string, dirs ...string) {
	t.Helper()
	for _, d := range dirs {
		require.NoError(t, os.MkdirAll(filepath.Join(root, d), 0o755))
	}
}

func TestPruneNodeModules_Disabled(t *testing.T) {
	root := t.TempDir()
	mkdirs(t, root, "node_modules/left-pad")

	removed := PruneNodeModules(logr.Discard(), root, ScanConfig{})
	assert.Empty(t, removed)
	assert.DirExists(t, filepath.Join(root, "node_modules"))
}

func TestPruneNodeModules_RemovesAllDepths(t *testing.T) {
	root := t.TempDir()
	mkdirs(t, root,
		"node_modules/a/node_modules/b",
		"packages/web/node_modules/react",
		"src",
	)
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "node_modules"), []byte("file, not dir"), 0o644))

	removed := PruneNodeModules(logr.Discard(), root, ScanConfig{PruneNodeModules: true})

	assert.ElementsMatch(t, []string{"node_modules", "packages/web/node_modules"}, removed)
	assert.NoDirExists(t, filepath.Join(root, "node_modules"))
	assert.NoDirExists(t, filepath.Join(root, "packages/web/node_modules"))
	assert.DirExists(t, filepath.Join(root, "src"))
	assert.FileExists(t, filepath.Join(root, "src", "node_modules"))
}

func TestPruneNodeModules_CustomPatterns(t *testing.T) {
	root := t.TempDir()
	mkdirs(t, root, "node_modules/x", "vendor/y")

	removed := PruneNodeModules(logr.Discard(), root, ScanConfig{
		PruneNodeModules: true,
		PrunePatterns:    []string{"vendor"},
	})
	assert.Equal(t, []string{"vendor"}, removed)
	assert.DirExists(t, filepath.Join(root, "node_modules"))
}
