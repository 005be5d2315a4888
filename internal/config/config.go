package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk YAML configuration shape. The same file may
// also carry input keys (scan-type, severity, ...), which LoadInputs reads.
type FileConfig struct {
	Trivy    *ToolConfig `yaml:"trivy"`
	Syft     *ToolConfig `yaml:"syft"`
	Gitleaks *ToolConfig `yaml:"gitleaks"`

	// PrunePatterns are doublestar globs removed before scanning when
	// prune-node-modules is enabled.
	PrunePatterns []string `yaml:"prune_patterns"`

	// Audit appends a record of each run to the audit log. Defaults to true.
	Audit *bool `yaml:"audit"`
	// Cache stores the last run for `pipescan report`. Defaults to true.
	Cache *bool `yaml:"cache"`
}

// ToolConfig controls how one external tool is located or installed.
type ToolConfig struct {
	// BinaryPath is an explicit path to the binary.
	// If empty, the binary is searched in $PATH and ~/.pipescan/bin.
	BinaryPath *string `yaml:"binary"`

	// AutoDownload enables downloading the binary when it is not found.
	// Defaults to true.
	AutoDownload *bool `yaml:"auto_download"`

	// Version pins the release to download. Empty means latest.
	Version *string `yaml:"version"`
}

// LocalNames are the repo-local config file names in search order.
var LocalNames = []string{".pipescan.yml", ".pipescan.yaml", "pipescan.yml", "pipescan.yaml"}

// LoadFile reads a YAML config file from the provided path.
func LoadFile(path string) (FileConfig, error) {
	var cfg FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LocalPath returns the first repo-local config file under repoRoot, or "".
func LocalPath(repoRoot string) string {
	for _, name := range LocalNames {
		p := filepath.Join(repoRoot, name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// LoadLocal searches for a repo-local config file in the given root.
func LoadLocal(repoRoot string) (FileConfig, error) {
	if p := LocalPath(repoRoot); p != "" {
		return LoadFile(p)
	}
	return FileConfig{}, errors.New("no local config")
}

// GlobalPath returns $XDG_CONFIG_HOME/pipescan/config.yml (or the
// ~/.config equivalent), or "" when no config directory is known.
func GlobalPath() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, _ := os.UserHomeDir()
		if home != "" {
			base = filepath.Join(home, ".config")
		}
	}
	if base == "" {
		return ""
	}
	return filepath.Join(base, "pipescan", "config.yml")
}

// LoadGlobal loads the global config file.
func LoadGlobal() (FileConfig, error) {
	p := GlobalPath()
	if p == "" {
		return FileConfig{}, errors.New("no config dir")
	}
	if _, err := os.Stat(p); err == nil {
		return LoadFile(p)
	}
	return FileConfig{}, errors.New("no global config")
}

// Resolve returns the repo-local config if present, else the global one,
// else an empty config. The second value is the file that was loaded.
func Resolve(repoRoot string) (FileConfig, string, error) {
	if p := LocalPath(repoRoot); p != "" {
		cfg, err := LoadFile(p)
		return cfg, p, err
	}
	if p := GlobalPath(); p != "" {
		if _, err := os.Stat(p); err == nil {
			cfg, err := LoadFile(p)
			return cfg, p, err
		}
	}
	return FileConfig{}, "", nil
}

// Tool returns the configuration for the named tool with defaults applied.
func (fc FileConfig) Tool(name string) ToolConfig {
	var tc *ToolConfig
	switch name {
	case "trivy":
		tc = fc.Trivy
	case "syft":
		tc = fc.Syft
	case "gitleaks":
		tc = fc.Gitleaks
	}
	if tc == nil {
		return ToolConfig{AutoDownload: boolPtr(true)}
	}
	cfg := *tc
	if cfg.AutoDownload == nil {
		cfg.AutoDownload = boolPtr(true)
	}
	return cfg
}

// AuditEnabled reports whether runs are appended to the audit log.
func (fc FileConfig) AuditEnabled() bool {
	return fc.Audit == nil || *fc.Audit
}

// CacheEnabled reports whether the last run is cached.
func (fc FileConfig) CacheEnabled() bool {
	return fc.Cache == nil || *fc.Cache
}

// GetBinaryPath returns the custom binary path or empty string.
func (tc ToolConfig) GetBinaryPath() string {
	if tc.BinaryPath == nil {
		return ""
	}
	return *tc.BinaryPath
}

// IsAutoDownloadEnabled returns true if auto-download is enabled (default: true).
func (tc ToolConfig) IsAutoDownloadEnabled() bool {
	if tc.AutoDownload == nil {
		return true
	}
	return *tc.AutoDownload
}

// GetVersion returns the pinned version or empty string for latest.
func (tc ToolConfig) GetVersion() string {
	if tc.Version == nil {
		return ""
	}
	return *tc.Version
}

func boolPtr(b bool) *bool { return &b }
