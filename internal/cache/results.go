// Package cache stores the last run so reports can be re-rendered without
// scanning again.
package cache

import (
	"encoding/json"
	"os"
	"time"

	"github.com/varalys/pipescan/internal/aggregate"
	"github.com/varalys/pipescan/internal/gitmeta"
	"github.com/varalys/pipescan/internal/policy"
)

// LastRun is the stored snapshot of one run.
type LastRun struct {
	RunID     string           `json:"runId"`
	Timestamp time.Time        `json:"timestamp"`
	Target    string           `json:"target"`
	Result    aggregate.Result `json:"result"`
	Verdict   policy.Verdict   `json:"verdict"`
}

func resultsPath(root string) string {
	return gitmeta.StatePath(root, "last_run.json")
}

// SaveRun writes the snapshot, replacing any previous one.
func SaveRun(root string, run LastRun) error {
	if run.Timestamp.IsZero() {
		run.Timestamp = time.Now().UTC()
	}
	b, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(resultsPath(root), b, 0600)
}

// LoadRun reads the last snapshot.
func LoadRun(root string) (LastRun, error) {
	var run LastRun
	b, err := os.ReadFile(resultsPath(root))
	if err != nil {
		return run, err
	}
	if err := json.Unmarshal(b, &run); err != nil {
		return run, err
	}
	return run, nil
}
