package pipescan

import (
	"os"
	"path/filepath"

	"github.com/varalys/pipescan/internal/config"
)

// workspaceDir returns GITHUB_WORKSPACE when set, else the working directory.
func workspaceDir(env config.Env) (string, error) {
	if env.Workspace != "" {
		return filepath.Abs(env.Workspace)
	}
	return os.Getwd()
}

// loadFileConfig reads --config when given, else the workspace or global
// config file. The returned path is empty when no file was found.
func loadFileConfig(root string) (config.FileConfig, string, error) {
	if flagConfig != "" {
		fc, err := config.LoadFile(flagConfig)
		return fc, flagConfig, err
	}
	return config.Resolve(root)
}
