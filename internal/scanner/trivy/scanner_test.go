package trivy

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/varalys/pipescan/internal/scanner"
	"github.com/varalys/pipescan/internal/scanner/scannertest"
	"github.com/varalys/pipescan/internal/types"
)

type countingInstaller struct {
	handle scanner.ToolHandle
	err    error
	calls  int
}

func (c *countingInstaller) Ensure(context.Context) (scanner.ToolHandle, error) {
	c.calls++
	return c.handle, c.err
}

func fixturePath(t *testing.T, name string) string {
	t.Helper()
	p, err := filepath.Abs(filepath.Join("testdata", name))
	require.NoError(t, err)
	return p
}

func installedVuln(t *testing.T, fixture string) (*VulnScanner, string) {
	t.Helper()
	bin, argsFile := scannertest.ReportTool(t, t.TempDir(), "trivy", "--output", fixture)
	s := NewVulnScanner(scanner.StaticInstaller{Name: "trivy", Path: bin}, logr.Discard())
	_, err := s.Install(context.Background())
	require.NoError(t, err)
	return s, argsFile
}

func argValue(args []string, flag string) string {
	for i, a := range args {
		if a == flag && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

func TestVulnScanner_Metadata(t *testing.T) {
	s := NewVulnScanner(scanner.StaticInstaller{}, logr.Discard())
	assert.Equal(t, "trivy-vulnerability", s.Name())
	assert.Equal(t, types.CategoryVulnerability, s.Category())

	c := NewConfigScanner(scanner.StaticInstaller{}, logr.Discard())
	assert.Equal(t, "trivy-config", c.Name())
	assert.Equal(t, types.CategoryMisconfiguration, c.Category())
}

func TestVulnScanner_Install_Idempotent(t *testing.T) {
	inst := &countingInstaller{handle: scanner.ToolHandle{Name: "trivy", Path: "/bin/trivy", Version: "0.50.1"}}
	s := NewVulnScanner(inst, logr.Discard())

	h1, err := s.Install(context.Background())
	require.NoError(t, err)
	h2, err := s.Install(context.Background())
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
	assert.Equal(t, 1, inst.calls)
}

func TestVulnScanner_Install_Error(t *testing.T) {
	inst := &countingInstaller{err: errors.New("download failed")}
	s := NewVulnScanner(inst, logr.Discard())
	_, err := s.Install(context.Background())
	require.EqualError(t, err, "download failed")

	_, err = s.Scan(context.Background(), scanner.ScanConfig{ScanTarget: t.TempDir()})
	assert.ErrorIs(t, err, scanner.ErrNotInstalled)
}

func TestVulnScanner_Scan_Filesystem(t *testing.T) {
	s, argsFile := installedVuln(t, fixturePath(t, "vuln.json"))
	target := t.TempDir()

	res, err := s.Scan(context.Background(), scanner.ScanConfig{
		ScanTarget:    target,
		Severity:      "critical, HIGH",
		IgnoreUnfixed: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 4, res.Total)
	assert.Equal(t, VulnScannerName, res.ScannerName)

	args := scannertest.Args(t, argsFile)
	assert.Equal(t, "fs", args[0])
	assert.Equal(t, "json", argValue(args, "--format"))
	assert.Equal(t, "vuln", argValue(args, "--scanners"))
	assert.Equal(t, "0", argValue(args, "--exit-code"))
	assert.Equal(t, "CRITICAL,HIGH", argValue(args, "--severity"))
	assert.Contains(t, args, "--ignore-unfixed")
	assert.Equal(t, target, args[len(args)-1])

	assert.NoFileExists(t, argValue(args, "--output"), "temp report must be removed")
}

func TestVulnScanner_Scan_RelativeTarget(t *testing.T) {
	s, argsFile := installedVuln(t, fixturePath(t, "vuln.json"))
	ws := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(ws, "app"), 0o755))

	_, err := s.Scan(context.Background(), scanner.ScanConfig{ScanTarget: "app", WorkspaceDir: ws})
	require.NoError(t, err)

	args := scannertest.Args(t, argsFile)
	assert.Equal(t, filepath.Join(ws, "app"), args[len(args)-1])
	assert.NotContains(t, args, "--ignore-unfixed")
}

func TestVulnScanner_Scan_Image(t *testing.T) {
	s, argsFile := installedVuln(t, fixturePath(t, "vuln.json"))

	_, err := s.Scan(context.Background(), scanner.ScanConfig{
		ScanTarget: "alpine:3.19",
		TargetKind: scanner.TargetImage,
	})
	require.NoError(t, err)

	args := scannertest.Args(t, argsFile)
	assert.Equal(t, "image", args[0])
	assert.Equal(t, "index.docker.io/library/alpine:3.19", args[len(args)-1])
}

func TestVulnScanner_Scan_MissingTarget(t *testing.T) {
	s, _ := installedVuln(t, fixturePath(t, "vuln.json"))
	_, err := s.Scan(context.Background(), scanner.ScanConfig{ScanTarget: filepath.Join(t.TempDir(), "nope")})
	assert.ErrorIs(t, err, scanner.ErrTargetNotFound)
}

func TestVulnScanner_Scan_NoReport(t *testing.T) {
	s, _ := installedVuln(t, "")
	_, err := s.Scan(context.Background(), scanner.ScanConfig{ScanTarget: t.TempDir()})
	assert.ErrorIs(t, err, scanner.ErrNoReport)
}

func TestVulnScanner_Scan_ToolFailure(t *testing.T) {
	bin := scannertest.FakeTool(t, t.TempDir(), "trivy", `echo "FATAL db download failed" >&2
exit 1`)
	s := NewVulnScanner(scanner.StaticInstaller{Path: bin}, logr.Discard())
	_, err := s.Install(context.Background())
	require.NoError(t, err)

	_, err = s.Scan(context.Background(), scanner.ScanConfig{ScanTarget: t.TempDir()})
	var te *scanner.ToolError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, 1, te.ExitCode)
	assert.Contains(t, te.Stderr, "db download failed")
}

func TestVulnScanner_Scan_MalformedReport(t *testing.T) {
	bad := scannertest.WriteFixture(t, t.TempDir(), "bad.json", "<html>rate limited</html>")
	s, _ := installedVuln(t, bad)

	res, err := s.Scan(context.Background(), scanner.ScanConfig{ScanTarget: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Total)
	assert.Len(t, res.Warnings, 1)
}

func TestVulnScanner_Scan_PruneOptIn(t *testing.T) {
	s, _ := installedVuln(t, fixturePath(t, "vuln.json"))
	target := t.TempDir()
	nm := filepath.Join(target, "node_modules")
	require.NoError(t, os.Mkdir(nm, 0o755))

	_, err := s.Scan(context.Background(), scanner.ScanConfig{ScanTarget: target})
	require.NoError(t, err)
	assert.DirExists(t, nm, "pruning is opt-in")

	_, err = s.Scan(context.Background(), scanner.ScanConfig{ScanTarget: target, PruneNodeModules: true})
	require.NoError(t, err)
	assert.NoDirExists(t, nm)
}

func TestVulnScanner_ScanSBOM(t *testing.T) {
	s, argsFile := installedVuln(t, fixturePath(t, "vuln.json"))
	sbomPath := scannertest.WriteFixture(t, t.TempDir(), "sbom.json", "{}")

	res, err := s.ScanSBOM(context.Background(), "sbom-vulnerability", sbomPath, scanner.ScanConfig{Severity: "HIGH"})
	require.NoError(t, err)
	assert.Equal(t, "sbom-vulnerability", res.ScannerName)
	assert.Equal(t, 4, res.Total)

	args := scannertest.Args(t, argsFile)
	assert.Equal(t, "sbom", args[0])
	assert.Equal(t, sbomPath, args[len(args)-1])
}

func TestConfigScanner_Scan(t *testing.T) {
	bin, argsFile := scannertest.ReportTool(t, t.TempDir(), "trivy", "--output", fixturePath(t, "config.json"))
	s := NewConfigScanner(scanner.StaticInstaller{Path: bin}, logr.Discard())
	_, err := s.Install(context.Background())
	require.NoError(t, err)

	target := t.TempDir()
	res, err := s.Scan(context.Background(), scanner.ScanConfig{ScanTarget: target, Severity: "CRITICAL,HIGH,MEDIUM,LOW"})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Total)
	assert.Equal(t, 3, res.FilesScanned)
	assert.Len(t, res.ConfigTargets, 3)

	args := scannertest.Args(t, argsFile)
	assert.Equal(t, "config", args[0])
	assert.Equal(t, "CRITICAL,HIGH,MEDIUM,LOW", argValue(args, "--severity"))
	assert.Equal(t, target, args[len(args)-1])
	assert.False(t, strings.Contains(strings.Join(args, " "), "--scanners"))
}

func TestConfigScanner_RejectsImage(t *testing.T) {
	s := NewConfigScanner(scanner.StaticInstaller{Path: "/bin/true"}, logr.Discard())
	_, err := s.Install(context.Background())
	require.NoError(t, err)

	_, err = s.Scan(context.Background(), scanner.ScanConfig{ScanTarget: "alpine", TargetKind: scanner.TargetImage})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not support image targets")
}
