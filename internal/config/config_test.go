package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTemp(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return p
}

func TestLoadFile_Basic(t *testing.T) {
	dir := t.TempDir()
	p := writeTemp(t, dir, "pipescan.yaml", `
trivy:
  binary: /opt/trivy
  version: 0.50.1
gitleaks:
  auto_download: false
prune_patterns: ["**/node_modules", "vendor"]
audit: false
scan-type: secret
`)
	cfg, err := LoadFile(p)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	trivy := cfg.Tool("trivy")
	if trivy.GetBinaryPath() != "/opt/trivy" || trivy.GetVersion() != "0.50.1" {
		t.Fatalf("unexpected trivy config %+v", trivy)
	}
	if !trivy.IsAutoDownloadEnabled() {
		t.Fatal("auto_download should default to true")
	}
	if cfg.Tool("gitleaks").IsAutoDownloadEnabled() {
		t.Fatal("expected gitleaks auto_download=false")
	}
	if len(cfg.PrunePatterns) != 2 || cfg.PrunePatterns[1] != "vendor" {
		t.Fatalf("unexpected prune patterns %#v", cfg.PrunePatterns)
	}
	if cfg.AuditEnabled() {
		t.Fatal("expected audit disabled")
	}
	if !cfg.CacheEnabled() {
		t.Fatal("cache should default to enabled")
	}
}

func TestTool_Defaults(t *testing.T) {
	var cfg FileConfig
	for _, name := range []string{"trivy", "syft", "gitleaks", "unknown"} {
		tc := cfg.Tool(name)
		if tc.GetBinaryPath() != "" || tc.GetVersion() != "" || !tc.IsAutoDownloadEnabled() {
			t.Fatalf("%s: unexpected defaults %+v", name, tc)
		}
	}
}

func TestLoadLocal_PrefersDotfile(t *testing.T) {
	dir := t.TempDir()
	writeTemp(t, dir, "pipescan.yaml", "audit: true\n")
	writeTemp(t, dir, ".pipescan.yaml", "audit: false\n")
	cfg, err := LoadLocal(dir)
	if err != nil {
		t.Fatalf("LoadLocal: %v", err)
	}
	if cfg.AuditEnabled() {
		t.Fatal("expected .pipescan.yaml to win")
	}
}

func TestLoadLocal_NoConfig(t *testing.T) {
	if _, err := LoadLocal(t.TempDir()); err == nil {
		t.Fatal("expected error when no local config exists")
	}
}

func TestLoadGlobal_XDG_Config(t *testing.T) {
	dir := t.TempDir()
	cfgDir := filepath.Join(dir, "pipescan")
	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeTemp(t, cfgDir, "config.yml", "cache: false\n")
	t.Setenv("XDG_CONFIG_HOME", dir)

	cfg, err := LoadGlobal()
	if err != nil {
		t.Fatalf("LoadGlobal: %v", err)
	}
	if cfg.CacheEnabled() {
		t.Fatal("expected cache=false from global config")
	}

	got, path, err := Resolve(t.TempDir())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if path != filepath.Join(cfgDir, "config.yml") || got.CacheEnabled() {
		t.Fatalf("Resolve should fall back to the global config, got %q", path)
	}
}

func TestLoadGlobal_NoConfig(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("HOME", "")
	if _, err := LoadGlobal(); err == nil {
		t.Fatal("expected error when no global config dir exists")
	}
}

func TestResolve_LocalWins(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	dir := t.TempDir()
	p := writeTemp(t, dir, ".pipescan.yml", "audit: false\n")
	cfg, path, err := Resolve(dir)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if path != p || cfg.AuditEnabled() {
		t.Fatalf("expected local config %s, got %s", p, path)
	}

	_, path, err = Resolve(t.TempDir())
	if err != nil || path != "" {
		t.Fatalf("expected empty config, got %q, %v", path, err)
	}
}
