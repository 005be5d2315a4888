package toolbin

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"github.com/go-logr/logr"
	goversion "github.com/hashicorp/go-version"

	"github.com/varalys/pipescan/internal/scanner"
)

const defaultReleaseBase = "https://github.com"

// ErrVersionMismatch is returned by Find when only binaries of a version
// other than the pinned one are available.
var ErrVersionMismatch = errors.New("installed version does not match pinned version")

// Options controls how a Manager locates or installs its tool.
type Options struct {
	// CustomPath is an explicit binary path; when set nothing else is tried.
	CustomPath string
	// Version pins the release to download. Empty or "latest" resolves the
	// newest release.
	Version string
	// AutoDownload allows downloading the tool when it is not found.
	AutoDownload bool
	// CacheDir holds downloaded binaries (defaults to ~/.pipescan/bin).
	CacheDir string
}

// ReleaseResolver finds the latest release tag of a GitHub repository.
type ReleaseResolver interface {
	LatestTag(ctx context.Context, repo string) (string, error)
}

// Manager handles detection and installation of one tool binary.
type Manager struct {
	tool     Tool
	opts     Options
	log      logr.Logger
	releases ReleaseResolver
	client   *http.Client
	baseURL  string

	handle *scanner.ToolHandle
}

// NewManager creates a Manager for tool.
func NewManager(tool Tool, opts Options, releases ReleaseResolver, log logr.Logger) *Manager {
	if opts.CacheDir == "" {
		home, _ := os.UserHomeDir()
		opts.CacheDir = filepath.Join(home, ".pipescan", "bin")
	}
	return &Manager{
		tool:     tool,
		opts:     opts,
		log:      log.WithValues("tool", tool.Name),
		releases: releases,
		client:   &http.Client{Timeout: 5 * time.Minute},
		baseURL:  defaultReleaseBase,
	}
}

// Ensure returns an installed binary, finding or downloading it on first
// use. Later calls return the same handle.
func (m *Manager) Ensure(ctx context.Context) (scanner.ToolHandle, error) {
	if m.handle != nil {
		return *m.handle, nil
	}

	binPath, err := m.Find()
	if err != nil {
		if !m.opts.AutoDownload && errors.Is(err, ErrVersionMismatch) {
			return scanner.ToolHandle{}, fmt.Errorf("%w (auto-download disabled; install %s %s or unpin %s.version)",
				err, m.tool.Name, m.pinned(), m.tool.Name)
		}
		if !m.opts.AutoDownload {
			return scanner.ToolHandle{}, fmt.Errorf("%s binary not found (auto-download disabled): %w\n\n"+
				"To fix this:\n"+
				"  1. Install %s from https://github.com/%s/releases\n"+
				"  2. Or enable auto-download in .pipescan.yml:\n"+
				"     %s:\n"+
				"       auto_download: true\n"+
				"  3. Or specify an explicit path:\n"+
				"     %s:\n"+
				"       binary: /path/to/%s", m.tool.Name, err, m.tool.Name, m.tool.Repo, m.tool.Name, m.tool.Name, m.tool.Name)
		}
		m.log.Info("no usable binary found, downloading", "version", m.opts.Version, "reason", err.Error())
		binPath, err = m.Download(ctx, m.opts.Version)
		if err != nil {
			return scanner.ToolHandle{}, fmt.Errorf("%s binary not found and auto-download failed: %w", m.tool.Name, err)
		}
	}

	ver, err := m.Version(binPath)
	if err != nil {
		m.log.Error(err, "warning: could not determine tool version")
		ver = "unknown"
	} else if err := m.checkMinimum(ver); err != nil {
		m.log.Error(err, "warning: tool version below supported minimum")
	}

	m.handle = &scanner.ToolHandle{Name: m.tool.Name, Path: binPath, Version: ver}
	m.log.V(1).Info("tool ready", "path", binPath, "version", ver)
	return *m.handle, nil
}

// Find locates the binary using the following search order:
// 1. Custom path (if provided)
// 2. $PATH lookup
// 3. Cached binary in the cache directory
//
// With a pinned version, $PATH and cache candidates of another version are
// skipped and ErrVersionMismatch is returned when nothing else matches. A
// custom path is always used as is.
func (m *Manager) Find() (string, error) {
	if m.opts.CustomPath != "" {
		if _, err := os.Stat(m.opts.CustomPath); err == nil {
			return m.opts.CustomPath, nil
		}
		return "", fmt.Errorf("custom %s path not found: %s", m.tool.Name, m.opts.CustomPath)
	}

	var mismatch error
	if p, err := exec.LookPath(m.tool.Name); err == nil {
		if mismatch = m.matchesPin(p); mismatch == nil {
			return p, nil
		}
		m.log.V(1).Info("skipping binary on PATH", "path", p, "reason", mismatch.Error())
	}

	cached := m.cachedPath()
	if _, err := os.Stat(cached); err == nil {
		if mismatch = m.matchesPin(cached); mismatch == nil {
			return cached, nil
		}
		m.log.V(1).Info("skipping cached binary", "path", cached, "reason", mismatch.Error())
	}

	if mismatch != nil {
		return "", mismatch
	}
	return "", fmt.Errorf("%s binary not found in PATH or cache (%s)", m.tool.Name, cached)
}

// pinned returns the pinned version without a "v" prefix, or "" when the
// latest release is wanted.
func (m *Manager) pinned() string {
	v := strings.TrimSpace(m.opts.Version)
	if v == "" || strings.EqualFold(v, "latest") {
		return ""
	}
	return strings.TrimPrefix(v, "v")
}

func (m *Manager) matchesPin(binPath string) error {
	want := m.pinned()
	if want == "" {
		return nil
	}
	got, err := m.Version(binPath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrVersionMismatch, err)
	}
	if got != want {
		return fmt.Errorf("%w: %s at %s is %s, want %s", ErrVersionMismatch, m.tool.Name, binPath, got, want)
	}
	return nil
}

var versionPattern = regexp.MustCompile(`v?(\d+\.\d+\.\d+)`)

// Version runs the tool's version command and extracts "X.Y.Z".
func (m *Manager) Version(binPath string) (string, error) {
	out, err := exec.Command(binPath, m.tool.VersionArgs...).Output()
	if err != nil {
		return "", fmt.Errorf("failed to get %s version: %w", m.tool.Name, err)
	}
	match := versionPattern.FindSubmatch(out)
	if match == nil {
		return "", fmt.Errorf("no version in %s output: %q", m.tool.Name, strings.TrimSpace(string(out)))
	}
	return string(match[1]), nil
}

func (m *Manager) checkMinimum(ver string) error {
	if m.tool.MinVersion == "" {
		return nil
	}
	v, err := goversion.NewVersion(ver)
	if err != nil {
		return err
	}
	c, err := goversion.NewConstraint(m.tool.MinVersion)
	if err != nil {
		return err
	}
	if !c.Check(v) {
		return fmt.Errorf("%s %s does not satisfy %q", m.tool.Name, ver, m.tool.MinVersion)
	}
	return nil
}

// Download fetches the release archive for version and installs the binary
// into the cache directory, returning its path.
func (m *Manager) Download(ctx context.Context, version string) (string, error) {
	version = strings.TrimSpace(version)
	if version == "" || strings.EqualFold(version, "latest") {
		if m.releases == nil {
			return "", fmt.Errorf("no release resolver configured; pin %s.version", m.tool.Name)
		}
		tag, err := m.releases.LatestTag(ctx, m.tool.Repo)
		if err != nil {
			return "", fmt.Errorf("failed to get latest %s version: %w", m.tool.Name, err)
		}
		version = tag
	}
	tag := "v" + strings.TrimPrefix(version, "v")
	plain := strings.TrimPrefix(tag, "v")

	asset := m.tool.Asset(plain, runtime.GOOS, runtime.GOARCH)
	url := fmt.Sprintf("%s/%s/releases/download/%s/%s", m.baseURL, m.tool.Repo, tag, asset)

	if err := os.MkdirAll(m.opts.CacheDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create cache directory: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download %s: %w", m.tool.Name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to download %s: HTTP %d from %s", m.tool.Name, resp.StatusCode, url)
	}

	dest := m.cachedPath()
	binName := filepath.Base(dest)
	if strings.HasSuffix(asset, ".zip") {
		err = extractFromZip(resp.Body, binName, dest)
	} else {
		err = extractFromTarGz(resp.Body, binName, dest)
	}
	if err != nil {
		return "", fmt.Errorf("failed to extract %s: %w", m.tool.Name, err)
	}

	if runtime.GOOS != "windows" {
		if err := os.Chmod(dest, 0o755); err != nil {
			return "", fmt.Errorf("failed to make %s executable: %w", m.tool.Name, err)
		}
	}
	m.log.Info("installed tool", "version", plain, "path", dest)
	return dest, nil
}

func (m *Manager) cachedPath() string {
	name := m.tool.Name
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	return filepath.Join(m.opts.CacheDir, name)
}

// extractFromTarGz extracts a single file from a tar.gz archive.
func extractFromTarGz(r io.Reader, filename, destPath string) error {
	gzr, err := gzip.NewReader(r)
	if err != nil {
		return err
	}
	defer gzr.Close()

	tr := tar.NewReader(gzr)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if header.Typeflag != tar.TypeReg || path.Base(header.Name) != filename {
			continue
		}
		return writeFile(destPath, tr)
	}
	return fmt.Errorf("file %s not found in archive", filename)
}

// extractFromZip extracts a single file from a zip archive.
func extractFromZip(r io.Reader, filename, destPath string) error {
	// zip needs a ReaderAt
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return err
	}
	for _, f := range zr.File {
		if path.Base(f.Name) != filename {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return err
		}
		err = writeFile(destPath, rc)
		_ = rc.Close()
		return err
	}
	return fmt.Errorf("file %s not found in archive", filename)
}

func writeFile(dest string, r io.Reader) error {
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
