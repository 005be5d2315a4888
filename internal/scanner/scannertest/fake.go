// Package scannertest provides fake tool binaries for adapter tests.
package scannertest

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// FakeTool writes an executable shell script named name into dir and
// returns its path. Tests using it are skipped on Windows.
func FakeTool(t *testing.T, dir, name, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake tool scripts need a POSIX shell")
	}
	p := filepath.Join(dir, name)
	script := "#!/bin/sh\n" + body + "\n"
	if err := os.WriteFile(p, []byte(script), 0o755); err != nil {
		t.Fatalf("write fake tool: %v", err)
	}
	return p
}

// ArgValue returns a shell snippet that sets $OUT to the argument that
// follows flag on the command line.
func ArgValue(flag string) string {
	return `OUT=""
prev=""
for a in "$@"; do
  if [ "$prev" = "` + flag + `" ]; then OUT="$a"; fi
  prev="$a"
done
`
}

// WriteFixture writes content to dir/name and returns the path.
func WriteFixture(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return p
}

// ReportTool writes a fake tool that records its arguments, one per line,
// and copies fixture to the path following outFlag. An empty fixture makes
// the tool exit successfully without writing a report. It returns the
// binary path and the argument log path.
func ReportTool(t *testing.T, dir, name, outFlag, fixture string) (string, string) {
	t.Helper()
	argsFile := filepath.Join(dir, name+".args")
	body := ArgValue(outFlag) + `printf '%s\n' "$@" > '` + argsFile + "'\n"
	if fixture != "" {
		body += `cp '` + fixture + `' "$OUT"` + "\n"
	}
	return FakeTool(t, dir, name, body), argsFile
}

// Args reads the argument log written by ReportTool.
func Args(t *testing.T, argsFile string) []string {
	t.Helper()
	data, err := os.ReadFile(argsFile)
	if err != nil {
		t.Fatalf("read args: %v", err)
	}
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}
