// Package gitleaks implements the secret adapter on top of the gitleaks CLI.
package gitleaks

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-logr/logr"

	"github.com/varalys/pipescan/internal/scanner"
	"github.com/varalys/pipescan/internal/types"
)

// ScannerName labels secret results.
const ScannerName = "gitleaks-secret"

// ErrRulesFileMissing is returned when no gitleaks rules file is available.
var ErrRulesFileMissing = errors.New("gitleaks rules file not found")

// Scanner implements scanner.Scanner using gitleaks.
type Scanner struct {
	installer scanner.Installer
	runner    scanner.Runner
	log       logr.Logger
	handle    *scanner.ToolHandle
}

// NewScanner returns a secret adapter that installs gitleaks via inst.
func NewScanner(inst scanner.Installer, log logr.Logger) *Scanner {
	log = log.WithName(ScannerName)
	return &Scanner{installer: inst, runner: scanner.Runner{Log: log}, log: log}
}

func (s *Scanner) Name() string { return ScannerName }

func (s *Scanner) Category() types.Category { return types.CategorySecret }

// Install implements scanner.Scanner.
func (s *Scanner) Install(ctx context.Context) (scanner.ToolHandle, error) {
	if s.handle != nil {
		return *s.handle, nil
	}
	h, err := s.installer.Ensure(ctx)
	if err != nil {
		return scanner.ToolHandle{}, err
	}
	s.handle = &h
	return h, nil
}

// Scan implements scanner.Scanner. The severity hint is ignored; secrets
// have no severity.
func (s *Scanner) Scan(ctx context.Context, cfg scanner.ScanConfig) (types.ScanResult, error) {
	if cfg.IsImage() {
		return types.ScanResult{}, fmt.Errorf("%s does not support image targets", ScannerName)
	}
	target, err := cfg.ResolveTarget()
	if err != nil {
		return types.ScanResult{}, err
	}
	rules, err := ResolveRules(cfg, target)
	if err != nil {
		return types.ScanResult{}, err
	}
	if s.handle == nil {
		return types.ScanResult{}, scanner.ErrNotInstalled
	}
	scanner.PruneNodeModules(s.log, target, cfg)

	report, cleanup, err := scanner.TempReport("pipescan-gitleaks-*.json")
	if err != nil {
		return types.ScanResult{}, err
	}
	defer cleanup()

	args := []string{
		"detect",
		"--no-git",
		"--source", target,
		"--config", rules,
		"--report-format", "json",
		"--report-path", report,
		"--exit-code", "0",
	}
	if err := s.runner.Run(ctx, "gitleaks", s.handle.Path, args...); err != nil {
		return types.ScanResult{}, err
	}
	data, err := scanner.ReadReport("gitleaks", report)
	if err != nil {
		return types.ScanResult{}, err
	}

	leaks, err := ParseReport(data)
	if err != nil {
		s.log.Error(err, "warning: discarding unreadable gitleaks report", "version", s.handle.Version)
		res := types.NewResult(ScannerName, types.CategorySecret)
		res.Warnings = append(res.Warnings, err.Error())
		return res, nil
	}
	res := BuildResult(ScannerName, target, leaks)
	if dropped := len(leaks) - res.Total; dropped > 0 {
		s.log.V(1).Info("removed duplicate secret findings", "count", dropped)
	}
	return res, nil
}

// ResolveRules returns the rules file to use: cfg.SecretRules (relative to
// the workspace) when set, otherwise a conventional file under target.
func ResolveRules(cfg scanner.ScanConfig, target string) (string, error) {
	if cfg.SecretRules != "" {
		p := cfg.SecretRules
		if !filepath.IsAbs(p) && cfg.WorkspaceDir != "" {
			p = filepath.Join(cfg.WorkspaceDir, p)
		}
		if _, err := os.Stat(p); err != nil {
			return "", fmt.Errorf("%w: %s", ErrRulesFileMissing, p)
		}
		return p, nil
	}
	if p := DetectConfigPath(target); p != "" {
		return p, nil
	}
	return "", fmt.Errorf("%w: set secret-rules or add .gitleaks.toml to %s", ErrRulesFileMissing, target)
}

// DetectConfigPath looks for a gitleaks config in the usual locations.
func DetectConfigPath(repoRoot string) string {
	candidates := []string{
		filepath.Join(repoRoot, ".gitleaks.toml"),
		filepath.Join(repoRoot, ".gitleaks", "config.toml"),
		filepath.Join(repoRoot, ".github", ".gitleaks.toml"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}
