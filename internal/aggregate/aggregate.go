// Package aggregate merges per-scanner results into one run total.
package aggregate

import (
	"strings"
	"sync"

	"github.com/varalys/pipescan/internal/types"
)

// Result is the accumulated output of one run. Totals are summed across
// all categories; per-category figures come from PerScanner.
type Result struct {
	TotalFindings int                  `json:"totalFindings"`
	BySeverity    types.SeverityCounts `json:"bySeverity"`
	PerScanner    []types.ScanResult   `json:"perScanner"`
}

// Aggregator accumulates ScanResults for a single run. Scanners run
// sequentially, but the lock keeps the accumulator safe should that change.
type Aggregator struct {
	mu  sync.Mutex
	res Result
}

// New returns an empty Aggregator.
func New() *Aggregator {
	return &Aggregator{res: Result{PerScanner: []types.ScanResult{}}}
}

// Aggregate adds r's totals and keeps r for per-scanner reporting.
func (a *Aggregator) Aggregate(r types.ScanResult) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.res.TotalFindings += r.Total
	a.res.BySeverity = a.res.BySeverity.Plus(r.BySeverity)
	a.res.PerScanner = append(a.res.PerScanner, r)
}

// Result returns a snapshot of the accumulated totals.
func (a *Aggregator) Result() Result {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := a.res
	out.PerScanner = append([]types.ScanResult(nil), a.res.PerScanner...)
	return out
}

// FindByCategory returns the first result of the given category.
func (r Result) FindByCategory(c types.Category) (types.ScanResult, bool) {
	for _, s := range r.PerScanner {
		if s.Category == c {
			return s, true
		}
	}
	return types.ScanResult{}, false
}

// FindByName returns the first result whose scanner name contains sub,
// ignoring case.
func (r Result) FindByName(sub string) (types.ScanResult, bool) {
	sub = strings.ToLower(sub)
	for _, s := range r.PerScanner {
		if strings.Contains(strings.ToLower(s.ScannerName), sub) {
			return s, true
		}
	}
	return types.ScanResult{}, false
}

// SBOMPath returns the first generated SBOM artifact, or "".
func (r Result) SBOMPath() string {
	for _, s := range r.PerScanner {
		if s.ArtifactPath != "" {
			return s.ArtifactPath
		}
	}
	return ""
}
