package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/varalys/pipescan/internal/types"
)

// MarkdownFormatter renders a summary suitable for PR comments and the
// job step summary.
type MarkdownFormatter struct {
	// MaxRows caps the detail rows per category. Zero means 20.
	MaxRows int
}

const defaultMaxRows = 20

func (f MarkdownFormatter) Format(w io.Writer, in Input) error {
	limit := f.MaxRows
	if limit <= 0 {
		limit = defaultMaxRows
	}
	var b strings.Builder

	b.WriteString("## pipescan results\n\n")
	if in.Verdict != nil {
		if in.Verdict.Failed {
			b.WriteString("**Status:** :x: failed\n\n")
			for _, r := range in.Verdict.Reasons {
				fmt.Fprintf(&b, "- %s\n", r)
			}
			b.WriteString("\n")
		} else {
			b.WriteString("**Status:** :white_check_mark: passed\n\n")
		}
	}

	b.WriteString("| Category | Scanner | Total | Critical | High | Medium | Low | Unknown |\n")
	b.WriteString("|---|---|---:|---:|---:|---:|---:|---:|\n")
	for _, cat := range types.Categories {
		res, ok := in.Result.FindByCategory(cat)
		if !ok {
			fmt.Fprintf(&b, "| %s | - | no results found | | | | | |\n", sectionTitle(cat))
			continue
		}
		c := res.BySeverity
		fmt.Fprintf(&b, "| %s | %s | %d | %d | %d | %d | %d | %d |\n",
			sectionTitle(cat), res.ScannerName, res.Total, c.Critical, c.High, c.Medium, c.Low, c.Unknown)
	}

	for _, cat := range types.Categories {
		res, ok := in.Result.FindByCategory(cat)
		if !ok || len(res.Findings) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n<details><summary>%s (%d)</summary>\n\n", sectionTitle(cat), res.Total)
		writeDetails(&b, cat, sortedFindings(res.Findings), limit)
		if len(res.Findings) > limit {
			fmt.Fprintf(&b, "\n_%d more not shown_\n", len(res.Findings)-limit)
		}
		b.WriteString("\n</details>\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func writeDetails(b *strings.Builder, cat types.Category, fs []types.Finding, limit int) {
	if len(fs) > limit {
		fs = fs[:limit]
	}
	switch cat {
	case types.CategoryVulnerability:
		b.WriteString("| Severity | ID | Package | Installed | Fixed |\n|---|---|---|---|---|\n")
		for _, f := range fs {
			if v := f.Vulnerability; v != nil {
				fmt.Fprintf(b, "| %s | %s | %s | %s | %s |\n", f.Severity,
					escapeMarkdown(v.ID), escapeMarkdown(v.Package), escapeMarkdown(v.InstalledVersion), escapeMarkdown(v.FixedVersion))
			}
		}
	case types.CategoryMisconfiguration:
		b.WriteString("| Severity | Rule | File | Title |\n|---|---|---|---|\n")
		for _, f := range fs {
			if m := f.Misconfiguration; m != nil {
				fmt.Fprintf(b, "| %s | %s | %s | %s |\n", f.Severity,
					escapeMarkdown(m.RuleID), escapeMarkdown(m.File), escapeMarkdown(m.Title))
			}
		}
	case types.CategorySecret:
		b.WriteString("| Rule | File | Line |\n|---|---|---:|\n")
		for _, f := range fs {
			if s := f.Secret; s != nil {
				fmt.Fprintf(b, "| %s | %s | %d |\n", escapeMarkdown(s.RuleID), escapeMarkdown(s.DisplayFile), s.StartLine)
			}
		}
	}
}

func escapeMarkdown(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}
