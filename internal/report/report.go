// Package report renders aggregated scan results for people and tools.
package report

import (
	"fmt"
	"io"
	"os"
	"sort"

	"golang.org/x/term"

	"github.com/varalys/pipescan/internal/aggregate"
	"github.com/varalys/pipescan/internal/policy"
	"github.com/varalys/pipescan/internal/types"
)

// Input is everything a formatter may render.
type Input struct {
	Result  aggregate.Result
	Verdict *policy.Verdict
	// Version is the pipescan version, recorded in machine formats.
	Version string
}

// Formatter renders a report to a writer.
type Formatter interface {
	Format(w io.Writer, in Input) error
}

// Options tune human-readable output.
type Options struct {
	NoColor bool
}

// Formats lists the supported format names.
var Formats = []string{"table", "json", "sarif", "markdown"}

// GetFormatter returns the formatter for the given format string.
func GetFormatter(format string, opts Options) (Formatter, error) {
	switch format {
	case "", "table":
		return &TableFormatter{NoColor: opts.NoColor}, nil
	case "json":
		return &JSONFormatter{}, nil
	case "sarif":
		return &SARIFFormatter{}, nil
	case "markdown":
		return &MarkdownFormatter{}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q (supported: table, json, sarif, markdown)", format)
	}
}

// ColorEnabled reports whether colored output should be written to f.
func ColorEnabled(f *os.File) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// sortedFindings returns a copy of findings ordered most severe first.
// The result itself is never reordered.
func sortedFindings(fs []types.Finding) []types.Finding {
	out := append([]types.Finding(nil), fs...)
	sort.SliceStable(out, func(i, j int) bool {
		return types.SeverityRank(out[i].Severity) < types.SeverityRank(out[j].Severity)
	})
	return out
}

func maskValue(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "…" + s[len(s)-4:]
}

// maskSecrets returns a copy of res whose secret and match values are
// masked the same way the table shows them.
func maskSecrets(res aggregate.Result) aggregate.Result {
	out := res
	out.PerScanner = make([]types.ScanResult, len(res.PerScanner))
	for i, r := range res.PerScanner {
		if r.Category == types.CategorySecret {
			findings := make([]types.Finding, len(r.Findings))
			for j, f := range r.Findings {
				if f.Secret != nil {
					s := *f.Secret
					if s.SecretText != "" {
						s.SecretText = maskValue(s.SecretText)
					}
					if s.MatchedText != "" {
						s.MatchedText = maskValue(s.MatchedText)
					}
					f.Secret = &s
				}
				findings[j] = f
			}
			r.Findings = findings
		}
		out.PerScanner[i] = r
	}
	return out
}
