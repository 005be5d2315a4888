package scanner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/go-logr/logr"
)

// ToolError describes a failed external tool invocation.
type ToolError struct {
	Tool     string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ToolError) Error() string {
	msg := fmt.Sprintf("%s failed (exit code %d)", e.Tool, e.ExitCode)
	if e.ExitCode < 0 {
		msg = fmt.Sprintf("%s execution failed: %v", e.Tool, e.Err)
	}
	switch {
	case contains(e.Stderr, "permission denied"):
		msg += "\n\nPermission denied. Check:\n" +
			"  - the binary has execute permissions\n" +
			"  - you have read access to the scan target"
	case contains(e.Stderr, "no such file"), contains(e.Stderr, "not found"):
		msg += "\n\nA path passed to the tool does not exist."
	case contains(e.Stderr, "config"), contains(e.Stderr, ".toml"):
		msg += "\n\nConfiguration error detected. Check the rules/config file passed to the tool."
	}
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += fmt.Sprintf("\n\n%s error output:\n%s", e.Tool, s)
	}
	return msg
}

func (e *ToolError) Unwrap() error { return e.Err }

// Runner executes external tools. It logs the command line at V(1) and the
// tool's stderr at V(4).
type Runner struct {
	Log logr.Logger
	// Env is appended to the current environment.
	Env []string
}

// Run executes bin with args and waits for it to finish.
func (r Runner) Run(ctx context.Context, tool, bin string, args ...string) error {
	r.Log.V(1).Info("running tool", "tool", tool, "cmd", bin+" "+strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, bin, args...)
	if len(r.Env) > 0 {
		cmd.Env = append(os.Environ(), r.Env...)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if s := stderr.String(); s != "" {
		r.Log.V(4).Info("tool stderr", "tool", tool, "stderr", s)
	}
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &ToolError{Tool: tool, ExitCode: exitErr.ExitCode(), Stderr: stderr.String(), Err: err}
	}
	return &ToolError{Tool: tool, ExitCode: -1, Stderr: stderr.String(), Err: err}
}

// TempReport reserves a temp file path for a tool's JSON report. The
// returned cleanup removes it and never fails.
func TempReport(pattern string) (string, func(), error) {
	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", func() {}, fmt.Errorf("failed to create report file: %w", err)
	}
	path := f.Name()
	_ = f.Close()
	// Tools must create the report themselves, so a missing file after the
	// run means the tool wrote nothing.
	_ = os.Remove(path)
	return path, func() { _ = os.Remove(path) }, nil
}

// ReadReport reads a report written by a tool, mapping a missing file to
// ErrNoReport.
func ReadReport(tool, path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s did not write %s", ErrNoReport, tool, path)
		}
		return nil, fmt.Errorf("failed to read %s report: %w", tool, err)
	}
	return data, nil
}

func contains(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
