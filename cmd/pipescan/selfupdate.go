package pipescan

import (
	"fmt"
	"runtime/debug"

	semver3 "github.com/blang/semver"
	semver "github.com/blang/semver/v4"
	"github.com/rhysd/go-github-selfupdate/selfupdate"
	"github.com/spf13/cobra"
)

const releaseRepo = "varalys/pipescan"

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "self-update",
		Short: "Update pipescan to the latest release",
		RunE: func(_ *cobra.Command, _ []string) error {
			latest, err := selfUpdate()
			if err != nil {
				return err
			}
			fmt.Println("pipescan is at", latest)
			return nil
		},
	})
}

// currentVersion returns the build version, falling back to 0.0.0 when it
// is not a semantic version.
func currentVersion() semver.Version {
	v := version
	if info, ok := debug.ReadBuildInfo(); ok && v == "" {
		v = info.Main.Version
	}
	ver, err := semver.ParseTolerant(v)
	if err != nil {
		return semver.MustParse("0.0.0")
	}
	return ver
}

func selfUpdate() (string, error) {
	ver := currentVersion()
	latest, err := selfupdate.UpdateSelf(semver3.MustParse(ver.String()), releaseRepo)
	if err != nil {
		return "", err
	}
	return latest.Version.String(), nil
}
