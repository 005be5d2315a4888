package scanner

import (
	"context"
	"errors"

	"github.com/varalys/pipescan/internal/types"
)

var (
	// ErrTargetNotFound is returned when the scan target does not exist.
	ErrTargetNotFound = errors.New("scan target not found")
	// ErrNoReport is returned when a tool exits without writing its report.
	ErrNoReport = errors.New("tool produced no report")
	// ErrNotInstalled is returned by Scan when Install has not succeeded.
	ErrNotInstalled = errors.New("scanner tool not installed")
)

// Scanner wraps one external scanning tool and normalizes its output.
// Implementations are constructed per run and hold no package-level state.
type Scanner interface {
	// Name identifies the scanner in logs, reports and results.
	Name() string

	// Category is the kind of findings this scanner produces.
	Category() types.Category

	// Install prepares the external binary. It is idempotent: a second call
	// returns the handle resolved by the first.
	Install(ctx context.Context) (ToolHandle, error)

	// Scan runs the tool against cfg's target. Zero findings is a valid
	// result. Missing targets, missing preconditions and missing reports are
	// errors; unparseable reports degrade to an empty result with a warning.
	Scan(ctx context.Context, cfg ScanConfig) (types.ScanResult, error)
}

// ToolHandle describes an installed external binary.
type ToolHandle struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	Version string `json:"version"`
}

// Installer resolves a tool binary. toolbin.Manager is the production
// implementation.
type Installer interface {
	Ensure(ctx context.Context) (ToolHandle, error)
}

// StaticInstaller always returns the same handle. It is used for binaries
// that are known to be present.
type StaticInstaller ToolHandle

// Ensure implements Installer.
func (s StaticInstaller) Ensure(context.Context) (ToolHandle, error) {
	return ToolHandle(s), nil
}
