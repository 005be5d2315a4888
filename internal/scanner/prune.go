package scanner

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	doublestar "github.com/bmatcuk/doublestar/v4"
	"github.com/go-logr/logr"
)

// DefaultPrunePatterns match node_modules directories at any depth.
var DefaultPrunePatterns = []string{"node_modules", "**/node_modules"}

// PruneNodeModules deletes directories under root matching the configured
// patterns. It does nothing unless cfg.PruneNodeModules is set. Failures are
// logged and otherwise ignored. It returns the removed paths.
func PruneNodeModules(log logr.Logger, root string, cfg ScanConfig) []string {
	if !cfg.PruneNodeModules {
		return nil
	}
	patterns := cfg.PrunePatterns
	if len(patterns) == 0 {
		patterns = DefaultPrunePatterns
	}

	fsys := os.DirFS(root)
	seen := map[string]bool{}
	var matches []string
	for _, p := range patterns {
		found, err := doublestar.Glob(fsys, p)
		if err != nil {
			log.Error(err, "warning: invalid prune pattern", "pattern", p)
			continue
		}
		for _, m := range found {
			if !seen[m] {
				seen[m] = true
				matches = append(matches, m)
			}
		}
	}

	// Shortest first so nested matches under an already removed directory
	// are skipped.
	sort.Slice(matches, func(i, j int) bool {
		if len(matches[i]) == len(matches[j]) {
			return matches[i] < matches[j]
		}
		return len(matches[i]) < len(matches[j])
	})

	var removed []string
	for _, m := range matches {
		if coveredBy(m, removed) {
			continue
		}
		full := filepath.Join(root, filepath.FromSlash(m))
		st, err := os.Stat(full)
		if err != nil || !st.IsDir() {
			continue
		}
		log.Info("removing directory before scan", "path", full)
		if err := os.RemoveAll(full); err != nil {
			log.Error(err, "warning: failed to remove directory", "path", full)
			continue
		}
		removed = append(removed, m)
	}
	return removed
}

func coveredBy(p string, parents []string) bool {
	for _, parent := range parents {
		if strings.HasPrefix(p, parent+"/") {
			return true
		}
	}
	return false
}
