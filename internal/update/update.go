// Package update checks whether a newer pipescan release exists.
package update

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	semver "github.com/blang/semver/v4"

	"github.com/varalys/pipescan/internal/scanner/toolbin"
)

const (
	// Repo publishes pipescan releases.
	Repo          = "varalys/pipescan"
	cacheFileName = "update.json"
	cacheTTL      = 24 * time.Hour
)

type cache struct {
	LastChecked time.Time `json:"last_checked"`
	Latest      string    `json:"latest"`
}

// Checker looks up the latest release, remembering the answer for a day.
type Checker struct {
	Releases toolbin.ReleaseResolver
	// Dir holds the cache file. Empty means the user config dir.
	Dir string
	Now func() time.Time
}

func configDir() string {
	if base := os.Getenv("XDG_CONFIG_HOME"); base != "" {
		return filepath.Join(base, "pipescan")
	}
	home, _ := os.UserHomeDir()
	if home == "" {
		return ""
	}
	return filepath.Join(home, ".config", "pipescan")
}

func (c *Checker) dir() string {
	if c.Dir != "" {
		return c.Dir
	}
	return configDir()
}

func (c *Checker) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c *Checker) load() cache {
	var out cache
	dir := c.dir()
	if dir == "" {
		return out
	}
	b, err := os.ReadFile(filepath.Join(dir, cacheFileName))
	if err != nil {
		return out
	}
	_ = json.Unmarshal(b, &out)
	return out
}

func (c *Checker) save(v cache) {
	dir := c.dir()
	if dir == "" {
		return
	}
	_ = os.MkdirAll(dir, 0755)
	b, _ := json.MarshalIndent(v, "", "  ")
	_ = os.WriteFile(filepath.Join(dir, cacheFileName), b, 0644)
}

// Check returns the latest release and whether it is newer than current.
// It is a no-op in CI. Lookup failures leave latest empty without an error.
func (c *Checker) Check(ctx context.Context, current string) (string, bool, error) {
	if os.Getenv("CI") != "" || c.Releases == nil {
		return "", false, nil
	}
	cached := c.load()
	latest := cached.Latest
	if latest == "" || c.now().Sub(cached.LastChecked) > cacheTTL {
		if tag, err := c.Releases.LatestTag(ctx, Repo); err == nil {
			latest = normalize(tag)
			c.save(cache{LastChecked: c.now(), Latest: latest})
		}
	}
	if latest == "" {
		return "", false, nil
	}
	lv, err := semver.ParseTolerant(latest)
	if err != nil {
		return latest, false, err
	}
	cv, err := semver.ParseTolerant(normalize(current))
	if err != nil {
		return latest, false, nil
	}
	return latest, lv.GT(cv), nil
}

func normalize(v string) string {
	return strings.TrimPrefix(strings.TrimSpace(v), "v")
}
