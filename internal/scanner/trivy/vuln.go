package trivy

import (
	"context"

	"github.com/go-logr/logr"

	"github.com/varalys/pipescan/internal/scanner"
	"github.com/varalys/pipescan/internal/types"
)

// VulnScannerName is the ScannerName of plain vulnerability results.
const VulnScannerName = "trivy-vulnerability"

// tool holds the install state shared by the trivy adapters.
type tool struct {
	installer scanner.Installer
	runner    scanner.Runner
	log       logr.Logger
	handle    *scanner.ToolHandle
}

func newTool(inst scanner.Installer, log logr.Logger) tool {
	return tool{installer: inst, runner: scanner.Runner{Log: log}, log: log}
}

// Install implements scanner.Scanner.
func (t *tool) Install(ctx context.Context) (scanner.ToolHandle, error) {
	if t.handle != nil {
		return *t.handle, nil
	}
	h, err := t.installer.Ensure(ctx)
	if err != nil {
		return scanner.ToolHandle{}, err
	}
	t.handle = &h
	return h, nil
}

func (t *tool) bin() (string, error) {
	if t.handle == nil {
		return "", scanner.ErrNotInstalled
	}
	return t.handle.Path, nil
}

// run executes trivy with args, writing its report to a temp file that is
// removed before returning.
func (t *tool) run(ctx context.Context, pattern string, args func(report string) []string) ([]byte, error) {
	bin, err := t.bin()
	if err != nil {
		return nil, err
	}
	report, cleanup, err := scanner.TempReport(pattern)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	if err := t.runner.Run(ctx, "trivy", bin, args(report)...); err != nil {
		return nil, err
	}
	return scanner.ReadReport("trivy", report)
}

// VulnScanner scans a filesystem or image for known vulnerabilities.
type VulnScanner struct {
	tool
}

// NewVulnScanner returns a vulnerability adapter that installs trivy via inst.
func NewVulnScanner(inst scanner.Installer, log logr.Logger) *VulnScanner {
	return &VulnScanner{tool: newTool(inst, log.WithName(VulnScannerName))}
}

func (s *VulnScanner) Name() string { return VulnScannerName }

func (s *VulnScanner) Category() types.Category { return types.CategoryVulnerability }

// Scan implements scanner.Scanner.
func (s *VulnScanner) Scan(ctx context.Context, cfg scanner.ScanConfig) (types.ScanResult, error) {
	target, err := cfg.ResolveAny()
	if err != nil {
		return types.ScanResult{}, err
	}
	if _, err := s.bin(); err != nil {
		return types.ScanResult{}, err
	}

	mode := "fs"
	if cfg.IsImage() {
		mode = "image"
	} else {
		scanner.PruneNodeModules(s.log, target, cfg)
	}

	data, err := s.run(ctx, "pipescan-trivy-vuln-*.json", func(report string) []string {
		return vulnArgs(mode, report, target, cfg)
	})
	if err != nil {
		return types.ScanResult{}, err
	}
	return s.parse(VulnScannerName, data), nil
}

// ScanSBOM scans a previously generated SBOM document. The result is
// labelled with scannerName.
func (s *VulnScanner) ScanSBOM(ctx context.Context, scannerName, sbomPath string, cfg scanner.ScanConfig) (types.ScanResult, error) {
	data, err := s.run(ctx, "pipescan-trivy-sbom-*.json", func(report string) []string {
		return vulnArgs("sbom", report, sbomPath, cfg)
	})
	if err != nil {
		return types.ScanResult{}, err
	}
	return s.parse(scannerName, data), nil
}

func (s *VulnScanner) parse(name string, data []byte) types.ScanResult {
	res := ParseVulnerabilityReport(name, data)
	for _, w := range res.Warnings {
		s.log.Info("warning: "+w, "scanner", name)
	}
	return res
}

func vulnArgs(mode, report, target string, cfg scanner.ScanConfig) []string {
	args := []string{
		mode,
		"--format", "json",
		"--output", report,
		"--scanners", "vuln",
		"--exit-code", "0",
		"--quiet",
	}
	if sev := cfg.SeverityFlag(); sev != "" {
		args = append(args, "--severity", sev)
	}
	if cfg.IgnoreUnfixed {
		args = append(args, "--ignore-unfixed")
	}
	return append(args, target)
}
