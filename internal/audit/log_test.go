package audit

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/varalys/pipescan/internal/aggregate"
	"github.com/varalys/pipescan/internal/policy"
	"github.com/varalys/pipescan/internal/types"
)

func TestLog_AppendAndHistory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, ".git"), 0o755))

	l := NewLog(dir)
	assert.Equal(t, filepath.Join(dir, ".git", "pipescan_audit.jsonl"), l.Path())

	require.NoError(t, l.Append(RunRecord{RunID: "first", Verdict: "pass"}))
	require.NoError(t, l.Append(RunRecord{Verdict: "fail"}))

	records, err := l.History()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "fail", records[0].Verdict)
	assert.NotEmpty(t, records[0].RunID)
	assert.Equal(t, "first", records[1].RunID)

	st, err := os.Stat(l.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), st.Mode().Perm())
}

func TestLog_HistoryMissing(t *testing.T) {
	_, err := NewLog(t.TempDir()).History()
	assert.Error(t, err)
}

func TestNewRecord(t *testing.T) {
	a := aggregate.New()
	v := types.NewResult("trivy-vulnerability", types.CategoryVulnerability)
	v.AddFinding(types.Finding{Category: types.CategoryVulnerability, Severity: types.SeverityHigh})
	a.Aggregate(v)
	s := types.NewResult("gitleaks-secret", types.CategorySecret)
	s.AddFinding(types.Finding{Category: types.CategorySecret, Secret: &types.SecretDetail{SecretText: "hunter2"}})
	a.Aggregate(s)

	verdict := policy.Verdict{Failed: true, Reasons: []string{"1 secrets detected"}}
	rec := NewRecord("run-1", ".", a.Result(), verdict, 1500*time.Millisecond)

	assert.Equal(t, "run-1", rec.RunID)
	assert.Equal(t, 2, rec.TotalFindings)
	assert.Equal(t, map[string]int{"vulnerabilities": 1, "secrets": 1}, rec.CategoryTotals)
	assert.Equal(t, 1, rec.SeverityCounts.High)
	assert.Equal(t, []string{"trivy-vulnerability", "gitleaks-secret"}, rec.Scanners)
	assert.Equal(t, "fail", rec.Verdict)
	assert.Equal(t, "1.5s", rec.Duration)
}
