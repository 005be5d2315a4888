package toolbin

import "fmt"

// Tool describes an external scanner binary and how its releases are named.
type Tool struct {
	// Name is the executable name without extension.
	Name string
	// Repo is the GitHub "owner/name" publishing releases.
	Repo string
	// VersionArgs prints the tool version.
	VersionArgs []string
	// MinVersion is a go-version constraint checked after install.
	MinVersion string
	// Asset returns the release asset file name for a version (without the
	// leading "v") and platform.
	Asset func(version, goos, goarch string) string
}

// Trivy scans for vulnerabilities and misconfigurations.
var Trivy = Tool{
	Name:        "trivy",
	Repo:        "aquasecurity/trivy",
	VersionArgs: []string{"--version"},
	MinVersion:  ">= 0.45.0",
	Asset: func(version, goos, goarch string) string {
		osName := map[string]string{"linux": "Linux", "darwin": "macOS", "windows": "windows"}[goos]
		if osName == "" {
			osName = goos
		}
		arch := map[string]string{"amd64": "64bit", "arm64": "ARM64", "386": "32bit", "arm": "ARM"}[goarch]
		if arch == "" {
			arch = goarch
		}
		return fmt.Sprintf("trivy_%s_%s-%s%s", version, osName, arch, archiveExt(goos))
	},
}

// Syft generates CycloneDX SBOMs.
var Syft = Tool{
	Name:        "syft",
	Repo:        "anchore/syft",
	VersionArgs: []string{"version"},
	MinVersion:  ">= 0.90.0",
	Asset: func(version, goos, goarch string) string {
		return fmt.Sprintf("syft_%s_%s_%s%s", version, goos, goarch, archiveExt(goos))
	},
}

// Gitleaks detects hardcoded secrets.
var Gitleaks = Tool{
	Name:        "gitleaks",
	Repo:        "gitleaks/gitleaks",
	VersionArgs: []string{"version"},
	MinVersion:  ">= 8.0.0",
	Asset: func(version, goos, goarch string) string {
		switch goarch {
		case "amd64":
			goarch = "x64"
		case "386":
			goarch = "x32"
		}
		return fmt.Sprintf("gitleaks_%s_%s_%s%s", version, goos, goarch, archiveExt(goos))
	},
}

func archiveExt(goos string) string {
	if goos == "windows" {
		return ".zip"
	}
	return ".tar.gz"
}
