// Package sbom implements the compound adapter that generates a CycloneDX
// SBOM with syft and scans it with trivy. When either step fails it falls
// back, once, to a direct trivy vulnerability scan of the original target.
package sbom

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-logr/logr"

	"github.com/varalys/pipescan/internal/scanner"
	"github.com/varalys/pipescan/internal/scanner/trivy"
	"github.com/varalys/pipescan/internal/types"
)

// ScannerName labels results produced through the SBOM path.
const ScannerName = "sbom-vulnerability"

// FileName is the name of the generated SBOM inside the artifact directory.
const FileName = "sbom.cyclonedx.json"

// Scanner is the SBOM+vulnerability adapter.
type Scanner struct {
	syft   scanner.Installer
	vuln   *trivy.VulnScanner
	runner scanner.Runner
	log    logr.Logger

	syftTried  bool
	syftHandle *scanner.ToolHandle
	syftErr    error
}

// New returns an adapter generating SBOMs with syft (installed via syft)
// and scanning them with vuln, which is also the fallback.
func New(syft scanner.Installer, vuln *trivy.VulnScanner, log logr.Logger) *Scanner {
	log = log.WithName(ScannerName)
	return &Scanner{syft: syft, vuln: vuln, runner: scanner.Runner{Log: log}, log: log}
}

func (s *Scanner) Name() string { return ScannerName }

func (s *Scanner) Category() types.Category { return types.CategoryVulnerability }

// Install implements scanner.Scanner. trivy is required; a syft install
// failure only disables the SBOM path.
func (s *Scanner) Install(ctx context.Context) (scanner.ToolHandle, error) {
	h, err := s.vuln.Install(ctx)
	if err != nil {
		return scanner.ToolHandle{}, err
	}
	if !s.syftTried {
		s.syftTried = true
		sh, err := s.syft.Ensure(ctx)
		if err != nil {
			s.syftErr = err
			s.log.Error(err, "warning: syft unavailable, vulnerabilities will be scanned without an SBOM")
		} else {
			s.syftHandle = &sh
		}
	}
	return h, nil
}

// Scan implements scanner.Scanner.
func (s *Scanner) Scan(ctx context.Context, cfg scanner.ScanConfig) (types.ScanResult, error) {
	target, err := cfg.ResolveAny()
	if err != nil {
		return types.ScanResult{}, err
	}

	res, err := s.scanViaSBOM(ctx, target, cfg)
	if err == nil {
		return res, nil
	}
	s.log.Error(err, "warning: SBOM scan failed, falling back to direct vulnerability scan")
	return s.vuln.Scan(ctx, cfg)
}

func (s *Scanner) scanViaSBOM(ctx context.Context, target string, cfg scanner.ScanConfig) (res types.ScanResult, err error) {
	if s.syftHandle == nil {
		if s.syftErr != nil {
			return types.ScanResult{}, fmt.Errorf("%w: syft: %v", scanner.ErrNotInstalled, s.syftErr)
		}
		return types.ScanResult{}, fmt.Errorf("%w: syft", scanner.ErrNotInstalled)
	}

	dir := cfg.ArtifactDir
	if dir == "" {
		if dir, err = os.MkdirTemp("", "pipescan-sbom-*"); err != nil {
			return types.ScanResult{}, fmt.Errorf("failed to create SBOM directory: %w", err)
		}
		defer func() {
			if err != nil {
				_ = os.RemoveAll(dir)
			}
		}()
	} else if err := os.MkdirAll(dir, 0o755); err != nil {
		return types.ScanResult{}, fmt.Errorf("failed to create SBOM directory: %w", err)
	}
	out := filepath.Join(dir, FileName)
	// a kept sbom-output dir may hold the previous run's SBOM
	if err := os.Remove(out); err != nil && !os.IsNotExist(err) {
		return types.ScanResult{}, fmt.Errorf("failed to remove stale SBOM: %w", err)
	}

	if !cfg.IsImage() {
		scanner.PruneNodeModules(s.log, target, cfg)
	}
	if err := s.runner.Run(ctx, "syft", s.syftHandle.Path, target, "-o", "cyclonedx-json="+out, "-q"); err != nil {
		return types.ScanResult{}, err
	}
	data, err := scanner.ReadReport("syft", out)
	if err != nil {
		return types.ScanResult{}, err
	}
	components, err := CountComponents(data)
	if err != nil {
		return types.ScanResult{}, err
	}
	s.log.V(1).Info("generated SBOM", "path", out, "components", components)

	res, err = s.vuln.ScanSBOM(ctx, ScannerName, out, cfg)
	if err != nil {
		return types.ScanResult{}, err
	}
	res.ArtifactPath = out
	res.Components = components
	return res, nil
}

// CountComponents returns the number of top-level components in a
// CycloneDX JSON document.
func CountComponents(data []byte) (int, error) {
	var doc struct {
		BOMFormat  string            `json:"bomFormat"`
		Components []json.RawMessage `json:"components"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return 0, fmt.Errorf("invalid CycloneDX document: %w", err)
	}
	if doc.BOMFormat != "" && doc.BOMFormat != "CycloneDX" {
		return 0, fmt.Errorf("unexpected SBOM format %q", doc.BOMFormat)
	}
	return len(doc.Components), nil
}
