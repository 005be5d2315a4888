package scanner

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/go-containerregistry/pkg/name"
)

// TargetKind selects how ScanTarget is interpreted.
type TargetKind string

const (
	TargetFilesystem TargetKind = "fs"
	TargetImage      TargetKind = "image"
)

// ScanConfig carries the per-run options handed to every scanner.
type ScanConfig struct {
	// ScanTarget is the path to scan, resolved against WorkspaceDir when
	// relative. For TargetImage it is a container image reference.
	ScanTarget   string
	TargetKind   TargetKind
	WorkspaceDir string

	// Severity is a comma-separated filter hint, e.g. "CRITICAL,HIGH".
	Severity      string
	IgnoreUnfixed bool

	// PruneNodeModules enables deleting node_modules directories below the
	// target before scanning. PrunePatterns are doublestar globs relative to
	// the target.
	PruneNodeModules bool
	PrunePatterns    []string

	// SecretRules is the rules file for the secret scanner.
	SecretRules string

	// ArtifactDir is where generated artifacts (SBOM) are written.
	ArtifactDir string
}

// IsImage reports whether the target is a container image reference.
func (c ScanConfig) IsImage() bool {
	return c.TargetKind == TargetImage
}

// ResolveTarget returns the absolute filesystem target and verifies it exists.
func (c ScanConfig) ResolveTarget() (string, error) {
	if c.IsImage() {
		return "", fmt.Errorf("image target %q cannot be scanned as a filesystem", c.ScanTarget)
	}
	target := c.ScanTarget
	if target == "" {
		target = "."
	}
	if strings.ContainsRune(target, 0) {
		return "", fmt.Errorf("invalid target: contains null byte")
	}
	if !filepath.IsAbs(target) {
		base := c.WorkspaceDir
		if base == "" {
			wd, err := os.Getwd()
			if err != nil {
				return "", fmt.Errorf("resolving working directory: %w", err)
			}
			base = wd
		}
		target = filepath.Join(base, target)
	}
	target = filepath.Clean(target)
	if _, err := os.Stat(target); err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrTargetNotFound, target)
		}
		return "", fmt.Errorf("cannot access target %q: %w", target, err)
	}
	return target, nil
}

// ResolveImage validates the image reference and returns its canonical form.
func (c ScanConfig) ResolveImage() (string, error) {
	ref, err := name.ParseReference(c.ScanTarget)
	if err != nil {
		return "", fmt.Errorf("invalid image reference %q: %w", c.ScanTarget, err)
	}
	return ref.Name(), nil
}

// ResolveAny returns the filesystem path or image reference for the target.
func (c ScanConfig) ResolveAny() (string, error) {
	if c.IsImage() {
		return c.ResolveImage()
	}
	return c.ResolveTarget()
}

// SeverityList splits Severity into trimmed upper-case values.
func (c ScanConfig) SeverityList() []string {
	var out []string
	for _, s := range strings.Split(c.Severity, ",") {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// SeverityFlag returns the normalized comma-separated severity list.
func (c ScanConfig) SeverityFlag() string {
	return strings.Join(c.SeverityList(), ",")
}
