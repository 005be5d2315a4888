package scanner

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanConfig_ResolveTarget(t *testing.T) {
	ws := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(ws, "app"), 0o755))

	tests := []struct {
		name    string
		cfg     ScanConfig
		want    string
		wantErr error
	}{
		{
			name: "relative to workspace",
			cfg:  ScanConfig{ScanTarget: "app", WorkspaceDir: ws},
			want: filepath.Join(ws, "app"),
		},
		{
			name: "dot is workspace",
			cfg:  ScanConfig{ScanTarget: ".", WorkspaceDir: ws},
			want: ws,
		},
		{
			name: "empty is workspace",
			cfg:  ScanConfig{WorkspaceDir: ws},
			want: ws,
		},
		{
			name: "absolute ignores workspace",
			cfg:  ScanConfig{ScanTarget: filepath.Join(ws, "app"), WorkspaceDir: "/nonexistent"},
			want: filepath.Join(ws, "app"),
		},
		{
			name:    "missing target",
			cfg:     ScanConfig{ScanTarget: "missing", WorkspaceDir: ws},
			wantErr: ErrTargetNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.cfg.ResolveTarget()
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestScanConfig_ResolveTarget_RejectsImage(t *testing.T) {
	cfg := ScanConfig{ScanTarget: "alpine:3.19", TargetKind: TargetImage}
	_, err := cfg.ResolveTarget()
	assert.Error(t, err)
}

func TestScanConfig_ResolveImage(t *testing.T) {
	cfg := ScanConfig{ScanTarget: "alpine:3.19", TargetKind: TargetImage}
	ref, err := cfg.ResolveAny()
	require.NoError(t, err)
	assert.Equal(t, "index.docker.io/library/alpine:3.19", ref)

	cfg.ScanTarget = "UPPER/case:tag"
	_, err = cfg.ResolveImage()
	assert.Error(t, err)
}

func TestScanConfig_SeverityList(t *testing.T) {
	cfg := ScanConfig{Severity: " critical, HIGH,,low "}
	assert.Equal(t, []string{"CRITICAL", "HIGH", "LOW"}, cfg.SeverityList())
	assert.Equal(t, "CRITICAL,HIGH,LOW", cfg.SeverityFlag())

	assert.Empty(t, ScanConfig{}.SeverityList())
}
