package trivy

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/varalys/pipescan/internal/scanner"
	"github.com/varalys/pipescan/internal/types"
)

// ConfigScannerName is the ScannerName of misconfiguration results.
const ConfigScannerName = "trivy-config"

// ConfigScanner checks IaC and configuration files for misconfigurations.
type ConfigScanner struct {
	tool
}

func NewConfigScanner(inst scanner.Installer, log logr.Logger) *ConfigScanner {
	return &ConfigScanner{tool: newTool(inst, log.WithName(ConfigScannerName))}
}

func (s *ConfigScanner) Name() string { return ConfigScannerName }

func (s *ConfigScanner) Category() types.Category { return types.CategoryMisconfiguration }

// Scan implements scanner.Scanner. Image targets are rejected.
func (s *ConfigScanner) Scan(ctx context.Context, cfg scanner.ScanConfig) (types.ScanResult, error) {
	if cfg.IsImage() {
		return types.ScanResult{}, fmt.Errorf("%s does not support image targets", ConfigScannerName)
	}
	target, err := cfg.ResolveTarget()
	if err != nil {
		return types.ScanResult{}, err
	}
	if _, err := s.bin(); err != nil {
		return types.ScanResult{}, err
	}
	scanner.PruneNodeModules(s.log, target, cfg)

	data, err := s.run(ctx, "pipescan-trivy-config-*.json", func(report string) []string {
		args := []string{
			"config",
			"--format", "json",
			"--output", report,
			"--exit-code", "0",
			"--quiet",
		}
		if sev := cfg.SeverityFlag(); sev != "" {
			args = append(args, "--severity", sev)
		}
		return append(args, target)
	})
	if err != nil {
		return types.ScanResult{}, err
	}

	res := ParseConfigReport(ConfigScannerName, data)
	for _, w := range res.Warnings {
		s.log.Info("warning: " + w)
	}
	s.log.V(1).Info("config scan complete", "files", res.FilesScanned, "misconfigurations", res.Total)
	return res, nil
}
