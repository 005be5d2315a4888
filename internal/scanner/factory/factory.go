package factory

import (
	"fmt"
	"strings"

	"github.com/go-logr/logr"

	"github.com/varalys/pipescan/internal/config"
	"github.com/varalys/pipescan/internal/scanner"
	"github.com/varalys/pipescan/internal/scanner/gitleaks"
	"github.com/varalys/pipescan/internal/scanner/sbom"
	"github.com/varalys/pipescan/internal/scanner/toolbin"
	"github.com/varalys/pipescan/internal/scanner/trivy"
)

// Scan types accepted by the scan-type input.
const (
	TypeAll    = "all"
	TypeVuln   = "vuln"
	TypeSBOM   = "sbom"
	TypeSecret = "secret"
	TypeConfig = "config"
)

// Config is the subset of configuration needed to build the adapters.
type Config struct {
	ScanTypes []string
	Files     config.FileConfig
	// Releases resolves "latest" tool versions; nil requires pinned versions.
	Releases toolbin.ReleaseResolver
	Log      logr.Logger
}

// New builds fresh adapter instances for one run in registration order:
// vulnerabilities (sbom or plain), misconfigurations, secrets. Adapters
// backed by the same tool share one installer.
func New(cfg Config) ([]scanner.Scanner, error) {
	want, err := selected(cfg.ScanTypes)
	if err != nil {
		return nil, err
	}

	managers := map[string]*toolbin.Manager{}
	installer := func(t toolbin.Tool) scanner.Installer {
		if m, ok := managers[t.Name]; ok {
			return m
		}
		tc := cfg.Files.Tool(t.Name)
		m := toolbin.NewManager(t, toolbin.Options{
			CustomPath:   tc.GetBinaryPath(),
			Version:      tc.GetVersion(),
			AutoDownload: tc.IsAutoDownloadEnabled(),
		}, cfg.Releases, cfg.Log)
		managers[t.Name] = m
		return m
	}

	var out []scanner.Scanner
	switch {
	case want[TypeSBOM]:
		if want[TypeVuln] {
			cfg.Log.V(1).Info("sbom scan includes the plain vulnerability scan as its fallback; skipping vuln")
		}
		vuln := trivy.NewVulnScanner(installer(toolbin.Trivy), cfg.Log)
		out = append(out, sbom.New(installer(toolbin.Syft), vuln, cfg.Log))
	case want[TypeVuln]:
		out = append(out, trivy.NewVulnScanner(installer(toolbin.Trivy), cfg.Log))
	}
	if want[TypeConfig] {
		out = append(out, trivy.NewConfigScanner(installer(toolbin.Trivy), cfg.Log))
	}
	if want[TypeSecret] {
		out = append(out, gitleaks.NewScanner(installer(toolbin.Gitleaks), cfg.Log))
	}
	return out, nil
}

func selected(types []string) (map[string]bool, error) {
	want := map[string]bool{}
	for _, t := range types {
		switch t = strings.ToLower(strings.TrimSpace(t)); t {
		case TypeAll:
			want[TypeSBOM] = true
			want[TypeSecret] = true
			want[TypeConfig] = true
		case TypeVuln, TypeSBOM, TypeSecret, TypeConfig:
			want[t] = true
		case "":
		default:
			return nil, fmt.Errorf("unknown scan type %q (want %s)", t,
				strings.Join([]string{TypeAll, TypeVuln, TypeSBOM, TypeSecret, TypeConfig}, ", "))
		}
	}
	if len(want) == 0 {
		return nil, fmt.Errorf("no scan type selected")
	}
	return want, nil
}
