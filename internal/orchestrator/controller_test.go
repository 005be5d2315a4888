package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/varalys/pipescan/internal/audit"
	"github.com/varalys/pipescan/internal/cache"
	"github.com/varalys/pipescan/internal/config"
	"github.com/varalys/pipescan/internal/policy"
	"github.com/varalys/pipescan/internal/scanner"
	"github.com/varalys/pipescan/internal/types"
	"github.com/varalys/pipescan/internal/upload"
)

type mockScanner struct {
	name       string
	category   types.Category
	installErr error
	scanErr    error
	result     types.ScanResult
	calls      *[]string
	gotConfig  scanner.ScanConfig
	// writeArtifact creates a file in cfg.ArtifactDir and reports it.
	writeArtifact bool
}

func (m *mockScanner) Name() string             { return m.name }
func (m *mockScanner) Category() types.Category { return m.category }

func (m *mockScanner) Install(context.Context) (scanner.ToolHandle, error) {
	*m.calls = append(*m.calls, "install:"+m.name)
	if m.installErr != nil {
		return scanner.ToolHandle{}, m.installErr
	}
	return scanner.ToolHandle{Name: m.name, Path: "/bin/" + m.name, Version: "1.0.0"}, nil
}

func (m *mockScanner) Scan(_ context.Context, cfg scanner.ScanConfig) (types.ScanResult, error) {
	*m.calls = append(*m.calls, "scan:"+m.name)
	m.gotConfig = cfg
	if m.scanErr != nil {
		return types.ScanResult{}, m.scanErr
	}
	res := m.result
	if m.writeArtifact {
		if err := os.MkdirAll(cfg.ArtifactDir, 0o755); err != nil {
			return types.ScanResult{}, err
		}
		res.ArtifactPath = filepath.Join(cfg.ArtifactDir, "sbom.cyclonedx.json")
		if err := os.WriteFile(res.ArtifactPath, []byte(`{}`), 0o644); err != nil {
			return types.ScanResult{}, err
		}
	}
	return res, nil
}

type fakeUploader struct {
	configured bool
	err        error
	reqs       []upload.Request
	sbomSeen   bool
}

func (f *fakeUploader) Configured() bool { return f.configured }

func (f *fakeUploader) Upload(_ context.Context, req upload.Request) error {
	f.reqs = append(f.reqs, req)
	if req.SBOMPath != "" {
		_, err := os.Stat(req.SBOMPath)
		f.sbomSeen = err == nil
	}
	return f.err
}

type fakeCommenter struct {
	repo   string
	number int
	body   string
	err    error
}

func (f *fakeCommenter) Post(_ context.Context, repo string, number int, body string) error {
	f.repo, f.number, f.body = repo, number, body
	return f.err
}

func vulnResult(n int) types.ScanResult {
	r := types.NewResult("trivy-vulnerability", types.CategoryVulnerability)
	for i := 0; i < n; i++ {
		r.AddFinding(types.Finding{Category: types.CategoryVulnerability, Severity: types.SeverityHigh,
			Vulnerability: &types.VulnerabilityDetail{ID: "CVE-1", Package: "p"}})
	}
	return r
}

func secretResult() types.ScanResult {
	r := types.NewResult("gitleaks-secret", types.CategorySecret)
	r.AddFinding(types.Finding{Category: types.CategorySecret,
		Secret: &types.SecretDetail{File: "a.env", DisplayFile: "/a.env", RuleID: "generic-api-key", SecretText: "s3cr3t-value", MatchedText: "key=s3cr3t-value"}})
	return r
}

func baseOptions(t *testing.T) Options {
	in := config.DefaultInputs()
	in.Format = "json"
	return Options{Inputs: in, Workspace: t.TempDir(), NoColor: true, Version: "test"}
}

func TestRun_PhasesInOrderAndFailuresExcluded(t *testing.T) {
	var calls []string
	vuln := &mockScanner{name: "trivy-vulnerability", category: types.CategoryVulnerability, result: vulnResult(2), calls: &calls}
	broken := &mockScanner{name: "gitleaks-secret", category: types.CategorySecret, installErr: errors.New("download failed"), calls: &calls}
	misconf := &mockScanner{name: "trivy-config", category: types.CategoryMisconfiguration, scanErr: scanner.ErrTargetNotFound, calls: &calls}

	var out bytes.Buffer
	c := New(baseOptions(t), []scanner.Scanner{vuln, broken, misconf}, logr.Discard())
	c.Stdout = &out

	sum, err := c.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"install:trivy-vulnerability", "install:gitleaks-secret", "install:trivy-config",
		"scan:trivy-vulnerability", "scan:trivy-config",
	}, calls)
	assert.Len(t, sum.Installed, 2)
	assert.Contains(t, sum.Excluded["gitleaks-secret"], "download failed")
	assert.Contains(t, sum.Excluded["trivy-config"], "scan target not found")

	require.Len(t, sum.Result.PerScanner, 1)
	assert.Equal(t, 2, sum.Result.TotalFindings)
	assert.True(t, sum.Verdict.Failed)
	assert.Equal(t, []string{"2 vulnerabilities (0 Critical, 2 High)"}, sum.Verdict.Reasons)
	assert.Contains(t, out.String(), `"totalFindings": 2`)
}

func TestRun_ScanConfigFromInputs(t *testing.T) {
	var calls []string
	s := &mockScanner{name: "trivy-vulnerability", category: types.CategoryVulnerability, result: vulnResult(0), calls: &calls}

	opts := baseOptions(t)
	opts.Inputs.ScanTarget = "app"
	opts.Inputs.Severity = "CRITICAL"
	opts.Inputs.IgnoreUnfixed = true
	opts.Inputs.PruneNodeModules = true
	opts.Inputs.SecretRules = "rules.toml"
	opts.Files.PrunePatterns = []string{"vendor"}

	c := New(opts, []scanner.Scanner{s}, logr.Discard())
	c.Stdout = &bytes.Buffer{}
	_, err := c.Run(context.Background())
	require.NoError(t, err)

	cfg := s.gotConfig
	assert.Equal(t, "app", cfg.ScanTarget)
	assert.Equal(t, opts.Workspace, cfg.WorkspaceDir)
	assert.Equal(t, "CRITICAL", cfg.Severity)
	assert.True(t, cfg.IgnoreUnfixed)
	assert.True(t, cfg.PruneNodeModules)
	assert.Equal(t, []string{"vendor"}, cfg.PrunePatterns)
	assert.Equal(t, "rules.toml", cfg.SecretRules)
	assert.Equal(t, scanner.TargetFilesystem, cfg.TargetKind)
	assert.True(t, strings.HasPrefix(filepath.Base(cfg.ArtifactDir), "pipescan-"))
}

func TestRun_InvalidFormat(t *testing.T) {
	var calls []string
	opts := baseOptions(t)
	opts.Inputs.Format = "xml"
	c := New(opts, []scanner.Scanner{&mockScanner{name: "x", calls: &calls}}, logr.Discard())
	_, err := c.Run(context.Background())
	assert.Error(t, err)
	assert.Empty(t, calls)
}

func TestRun_UploadAndArtifactCleanup(t *testing.T) {
	var calls []string
	sbom := &mockScanner{name: "sbom-vulnerability", category: types.CategoryVulnerability, result: vulnResult(1), calls: &calls, writeArtifact: true}
	sec := &mockScanner{name: "gitleaks-secret", category: types.CategorySecret, result: secretResult(), calls: &calls}

	opts := baseOptions(t)
	opts.Env = config.Env{ProjectID: "proj", Repository: "acme/app", RefName: "main", RunID: "99"}
	up := &fakeUploader{configured: true}
	c := New(opts, []scanner.Scanner{sbom, sec}, logr.Discard())
	c.Stdout = &bytes.Buffer{}
	c.Uploader = up

	sum, err := c.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, up.reqs, 1)
	req := up.reqs[0]
	assert.True(t, up.sbomSeen, "sbom must exist while uploading")
	assert.Equal(t, upload.Metadata{DisplayName: "proj", BranchName: "main", RepoName: "acme/app", JobID: "99"}, req.Meta)
	require.Len(t, req.Payload.ScannerSecretResponse, 1)
	assert.Equal(t, "s3cr3t-value", req.Payload.ScannerSecretResponse[0].Secret)

	_, err = os.Stat(sum.Result.SBOMPath())
	assert.True(t, os.IsNotExist(err), "temporary sbom dir should be removed")
}

func TestRun_SBOMOutputKept(t *testing.T) {
	var calls []string
	sbom := &mockScanner{name: "sbom-vulnerability", category: types.CategoryVulnerability, result: vulnResult(0), calls: &calls, writeArtifact: true}
	opts := baseOptions(t)
	opts.Inputs.SBOMOutput = "artifacts"

	c := New(opts, []scanner.Scanner{sbom}, logr.Discard())
	c.Stdout = &bytes.Buffer{}
	sum, err := c.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(opts.Workspace, "artifacts", "sbom.cyclonedx.json"), sum.Result.SBOMPath())
	assert.FileExists(t, sum.Result.SBOMPath())
}

func TestRun_UploadFailureIsWarning(t *testing.T) {
	var calls []string
	opts := baseOptions(t)
	up := &fakeUploader{configured: true, err: errors.New("connection reset")}
	c := New(opts, []scanner.Scanner{&mockScanner{name: "gitleaks-secret", category: types.CategorySecret, result: secretResult(), calls: &calls}}, logr.Discard())
	c.Stdout = &bytes.Buffer{}
	c.Uploader = up

	sum, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, sum.Verdict.Failed)
	assert.Len(t, up.reqs, 1)
}

func TestRun_UploadSkippedWhenNotConfigured(t *testing.T) {
	var calls []string
	up := &fakeUploader{}
	c := New(baseOptions(t), []scanner.Scanner{&mockScanner{name: "v", category: types.CategoryVulnerability, result: vulnResult(0), calls: &calls}}, logr.Discard())
	c.Stdout = &bytes.Buffer{}
	c.Uploader = up
	_, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, up.reqs)
}

func TestRun_OutputsSummaryAndComment(t *testing.T) {
	var calls []string
	dir := t.TempDir()
	opts := baseOptions(t)
	opts.Env = config.Env{
		Repository:  "acme/app",
		Ref:         "refs/pull/12/merge",
		OutputFile:  filepath.Join(dir, "out"),
		StepSummary: filepath.Join(dir, "summary.md"),
	}
	cm := &fakeCommenter{}
	c := New(opts, []scanner.Scanner{&mockScanner{name: "trivy-vulnerability", category: types.CategoryVulnerability, result: vulnResult(3), calls: &calls}}, logr.Discard())
	c.Stdout = &bytes.Buffer{}
	c.Commenter = cm

	_, err := c.Run(context.Background())
	require.NoError(t, err)

	outputs, err := os.ReadFile(opts.Env.OutputFile)
	require.NoError(t, err)
	assert.Contains(t, string(outputs), "total=3\n")
	assert.Contains(t, string(outputs), "verdict=fail\n")

	summary, err := os.ReadFile(opts.Env.StepSummary)
	require.NoError(t, err)
	assert.Contains(t, string(summary), "## pipescan results")

	assert.Equal(t, "acme/app", cm.repo)
	assert.Equal(t, 12, cm.number)
	assert.Equal(t, string(summary), cm.body)
}

func TestRun_NoCommentOutsidePullRequest(t *testing.T) {
	var calls []string
	opts := baseOptions(t)
	opts.Env = config.Env{Repository: "acme/app", Ref: "refs/heads/main"}
	cm := &fakeCommenter{}
	c := New(opts, []scanner.Scanner{&mockScanner{name: "v", category: types.CategoryVulnerability, result: vulnResult(1), calls: &calls}}, logr.Discard())
	c.Stdout = &bytes.Buffer{}
	c.Commenter = cm
	_, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, cm.number)
}

func TestRun_AuditAndLastRun(t *testing.T) {
	var calls []string
	opts := baseOptions(t)
	opts.Inputs.ExitCode = "0"
	c := New(opts, []scanner.Scanner{&mockScanner{name: "gitleaks-secret", category: types.CategorySecret, result: secretResult(), calls: &calls}}, logr.Discard())
	c.Stdout = &bytes.Buffer{}
	c.Audit = audit.NewLog(opts.Workspace)
	c.SaveLastRun = true

	sum, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, sum.Verdict.Failed)
	assert.Equal(t, policy.SuppressedByExitCode, sum.Verdict.SuppressedBy)

	records, err := c.Audit.History()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, sum.RunID, records[0].RunID)
	assert.Equal(t, "pass", records[0].Verdict)

	last, err := cache.LoadRun(opts.Workspace)
	require.NoError(t, err)
	assert.Equal(t, sum.RunID, last.RunID)
	assert.Equal(t, "[REDACTED]", last.Result.PerScanner[0].Findings[0].Secret.SecretText)
	assert.Equal(t, "s3cr3t-value", sum.Result.PerScanner[0].Findings[0].Secret.SecretText)
}

func TestSummary_String(t *testing.T) {
	s := Summary{}
	s.Result.TotalFindings = 4
	assert.Equal(t, "pipescan: passed (4 findings)", s.String())
	s.Verdict.Failed = true
	assert.Equal(t, "pipescan: failed (4 findings)", s.String())
}
