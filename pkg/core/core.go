package core

import (
	"github.com/varalys/pipescan/internal/aggregate"
	"github.com/varalys/pipescan/internal/policy"
	"github.com/varalys/pipescan/internal/scanner/gitleaks"
	"github.com/varalys/pipescan/internal/scanner/trivy"
	"github.com/varalys/pipescan/internal/types"
)

// Re-export selected internal types as a stable public API surface.
type (
	ScanResult      = types.ScanResult
	Finding         = types.Finding
	Severity        = types.Severity
	Category        = types.Category
	AggregateResult = aggregate.Result
	PolicyOptions   = policy.Options
	Verdict         = policy.Verdict
)

// ParseTrivyVulnerabilities normalizes a `trivy fs|image --format json` report.
func ParseTrivyVulnerabilities(data []byte) ScanResult {
	return trivy.ParseVulnerabilityReport(trivy.VulnScannerName, data)
}

// ParseTrivyConfig normalizes a `trivy config --format json` report.
func ParseTrivyConfig(data []byte) ScanResult {
	return trivy.ParseConfigReport(trivy.ConfigScannerName, data)
}

// ParseGitleaks normalizes a gitleaks JSON report. root is the scanned
// directory, used to build display paths.
func ParseGitleaks(root string, data []byte) (ScanResult, error) {
	leaks, err := gitleaks.ParseReport(data)
	if err != nil {
		return ScanResult{}, err
	}
	return gitleaks.BuildResult(gitleaks.ScannerName, root, leaks), nil
}

// Aggregate sums results in the order given.
func Aggregate(results ...ScanResult) AggregateResult {
	a := aggregate.New()
	for _, r := range results {
		a.Aggregate(r)
	}
	return a.Result()
}

// Evaluate applies the fail policy.
func Evaluate(opts PolicyOptions, res AggregateResult) Verdict {
	return policy.Evaluate(opts, res)
}
