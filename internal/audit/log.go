// Package audit keeps an append-only history of scan runs.
package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/varalys/pipescan/internal/aggregate"
	"github.com/varalys/pipescan/internal/gitmeta"
	"github.com/varalys/pipescan/internal/policy"
	"github.com/varalys/pipescan/internal/types"
)

// RunRecord is one line of the audit log. It never contains secret values.
type RunRecord struct {
	Timestamp      time.Time            `json:"timestamp"`
	RunID          string               `json:"run_id"`
	Target         string               `json:"target"`
	TotalFindings  int                  `json:"total_findings"`
	CategoryTotals map[string]int       `json:"category_totals"`
	SeverityCounts types.SeverityCounts `json:"severity_counts"`
	Scanners       []string             `json:"scanners"`
	Verdict        string               `json:"verdict"`
	Reasons        []string             `json:"reasons,omitempty"`
	Duration       string               `json:"duration"`
}

type Log struct {
	path string
}

// NewLog returns the audit log for the workspace root.
func NewLog(root string) *Log {
	return &Log{path: gitmeta.StatePath(root, "audit.jsonl")}
}

func (l *Log) Path() string { return l.path }

// History returns all records, newest first. Malformed lines are skipped.
func (l *Log) History() ([]RunRecord, error) {
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}
	defer f.Close()

	var records []RunRecord
	decoder := json.NewDecoder(f)
	for decoder.More() {
		var record RunRecord
		if err := decoder.Decode(&record); err != nil {
			break
		}
		records = append(records, record)
	}

	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	return records, nil
}

// Append writes one record.
func (l *Log) Append(record RunRecord) error {
	if record.RunID == "" {
		record.RunID = uuid.NewString()
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to open audit log: %w", err)
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(record); err != nil {
		return fmt.Errorf("failed to write audit record: %w", err)
	}
	return nil
}

// NewRecord summarizes a finished run.
func NewRecord(runID, target string, res aggregate.Result, verdict policy.Verdict, duration time.Duration) RunRecord {
	totals := make(map[string]int, len(res.PerScanner))
	scanners := make([]string, 0, len(res.PerScanner))
	for _, r := range res.PerScanner {
		totals[r.Category.Noun()] += r.Total
		scanners = append(scanners, r.ScannerName)
	}
	return RunRecord{
		Timestamp:      time.Now().UTC(),
		RunID:          runID,
		Target:         target,
		TotalFindings:  res.TotalFindings,
		CategoryTotals: totals,
		SeverityCounts: res.BySeverity,
		Scanners:       scanners,
		Verdict:        verdict.String(),
		Reasons:        verdict.Reasons,
		Duration:       duration.Round(time.Millisecond).String(),
	}
}
