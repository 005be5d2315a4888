package aggregate

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/varalys/pipescan/internal/types"
)

func result(name string, cat types.Category, sev ...types.Severity) types.ScanResult {
	r := types.NewResult(name, cat)
	for _, s := range sev {
		r.AddFinding(types.Finding{Category: cat, Severity: s})
	}
	return r
}

func TestAggregate_Additivity(t *testing.T) {
	inputs := []types.ScanResult{
		result("trivy-vulnerability", types.CategoryVulnerability, types.SeverityCritical, types.SeverityHigh, types.SeverityHigh, types.SeverityUnknown),
		result("gitleaks-secret", types.CategorySecret, "", ""),
		result("trivy-config", types.CategoryMisconfiguration, types.SeverityLow, types.SeverityMedium),
	}

	a := New()
	var wantTotal int
	var wantSev types.SeverityCounts
	for _, r := range inputs {
		a.Aggregate(r)
		wantTotal += r.Total
		wantSev = wantSev.Plus(r.BySeverity)
	}
	got := a.Result()

	assert.Equal(t, wantTotal, got.TotalFindings)
	assert.Equal(t, 8, got.TotalFindings)
	assert.Equal(t, wantSev, got.BySeverity)
	assert.Equal(t, types.SeverityCounts{Critical: 1, High: 2, Medium: 1, Low: 1, Unknown: 1}, got.BySeverity)
	require.Len(t, got.PerScanner, 3)
	assert.Equal(t, "gitleaks-secret", got.PerScanner[1].ScannerName, "registration order kept")
}

func TestAggregate_Empty(t *testing.T) {
	got := New().Result()
	assert.Zero(t, got.TotalFindings)
	assert.Empty(t, got.PerScanner)
	_, ok := got.FindByCategory(types.CategoryVulnerability)
	assert.False(t, ok)
	assert.Empty(t, got.SBOMPath())
}

func TestAggregate_SnapshotIsIndependent(t *testing.T) {
	a := New()
	a.Aggregate(result("one", types.CategorySecret, ""))
	snap := a.Result()
	a.Aggregate(result("two", types.CategorySecret, ""))
	assert.Len(t, snap.PerScanner, 1)
	assert.Len(t, a.Result().PerScanner, 2)
}

func TestAggregate_Concurrent(t *testing.T) {
	a := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.Aggregate(result("x", types.CategoryVulnerability, types.SeverityLow))
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, a.Result().TotalFindings)
	assert.Equal(t, 50, a.Result().BySeverity.Low)
}

func TestFind(t *testing.T) {
	a := New()
	a.Aggregate(result("sbom-vulnerability", types.CategoryVulnerability, types.SeverityHigh))
	cfg := result("trivy-config", types.CategoryMisconfiguration)
	a.Aggregate(cfg)
	secret := result("gitleaks-secret", types.CategorySecret, "")
	a.Aggregate(secret)
	got := a.Result()

	r, ok := got.FindByCategory(types.CategoryMisconfiguration)
	require.True(t, ok)
	assert.Equal(t, "trivy-config", r.ScannerName)

	r, ok = got.FindByName("SECRET")
	require.True(t, ok)
	assert.Equal(t, types.CategorySecret, r.Category)

	r, ok = got.FindByName("vulnerab")
	require.True(t, ok)
	assert.Equal(t, "sbom-vulnerability", r.ScannerName)

	_, ok = got.FindByName("dast")
	assert.False(t, ok)
}

func TestSBOMPath(t *testing.T) {
	a := New()
	a.Aggregate(result("trivy-config", types.CategoryMisconfiguration))
	v := result("sbom-vulnerability", types.CategoryVulnerability)
	v.ArtifactPath = "/tmp/pipescan-1/sbom.cyclonedx.json"
	a.Aggregate(v)
	assert.Equal(t, "/tmp/pipescan-1/sbom.cyclonedx.json", a.Result().SBOMPath())
}
