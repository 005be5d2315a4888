// Package policy decides whether a scan run should be reported as failed.
package policy

import (
	"fmt"
	"strings"

	"github.com/varalys/pipescan/internal/types"
)

// Options carries the raw toggle values. Only the exact string "false"
// disables a toggle; anything else, including "", leaves it enabled.
type Options struct {
	FailOnVulnerability    string
	FailOnMisconfiguration string
	FailOnSecret           string
	// MasterOverride set to "false" suppresses failure unconditionally.
	MasterOverride string
	// ExitCode set to "0" suppresses failure unconditionally.
	ExitCode string
}

// Lookup finds the result for a category.
type Lookup interface {
	FindByCategory(c types.Category) (types.ScanResult, bool)
}

// Suppression names why failure was suppressed.
type Suppression string

const (
	SuppressedByOverride Suppression = "fail_on_vulneribility"
	SuppressedByExitCode Suppression = "exit-code"
)

// Verdict is the outcome of Evaluate. A failed verdict is a normal result,
// not an error.
type Verdict struct {
	Failed       bool        `json:"failed"`
	Reasons      []string    `json:"reasons"`
	SuppressedBy Suppression `json:"suppressedBy,omitempty"`
}

// String returns "fail" or "pass".
func (v Verdict) String() string {
	if v.Failed {
		return "fail"
	}
	return "pass"
}

func enabled(toggle string) bool {
	return toggle != "false"
}

// Evaluate applies the fail policy to the per-category results.
func Evaluate(opts Options, results Lookup) Verdict {
	if opts.MasterOverride == "false" {
		return Verdict{Reasons: []string{}, SuppressedBy: SuppressedByOverride}
	}
	if strings.TrimSpace(opts.ExitCode) == "0" {
		return Verdict{Reasons: []string{}, SuppressedBy: SuppressedByExitCode}
	}

	v := Verdict{Reasons: []string{}}
	for _, c := range types.Categories {
		if !enabled(opts.toggle(c)) {
			continue
		}
		r, ok := results.FindByCategory(c)
		if !ok || r.Total == 0 {
			continue
		}
		v.Failed = true
		v.Reasons = append(v.Reasons, Reason(r))
	}
	return v
}

func (o Options) toggle(c types.Category) string {
	switch c {
	case types.CategoryVulnerability:
		return o.FailOnVulnerability
	case types.CategoryMisconfiguration:
		return o.FailOnMisconfiguration
	case types.CategorySecret:
		return o.FailOnSecret
	}
	return ""
}

// Reason formats the failure reason for one category result.
func Reason(r types.ScanResult) string {
	if r.Category == types.CategorySecret {
		return fmt.Sprintf("%d secrets detected", r.Total)
	}
	return fmt.Sprintf("%d %s (%d Critical, %d High)", r.Total, r.Category.Noun(), r.BySeverity.Critical, r.BySeverity.High)
}
