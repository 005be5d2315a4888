package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/varalys/pipescan/internal/types"
)

// TableFormatter renders one console section per category. A category
// without a result prints "no results found", so a missing scanner is
// distinguishable from a clean one.
type TableFormatter struct {
	NoColor bool
}

func (f *TableFormatter) Format(w io.Writer, in Input) error {
	heading := lipgloss.NewRenderer(w).NewStyle().Bold(true).Foreground(lipgloss.Color("6"))

	for _, cat := range types.Categories {
		title := sectionTitle(cat)
		if f.NoColor {
			fmt.Fprintf(w, "\n== %s ==\n", title)
		} else {
			fmt.Fprintf(w, "\n%s\n", heading.Render("== "+title+" =="))
		}

		res, ok := in.Result.FindByCategory(cat)
		if !ok {
			fmt.Fprintln(w, "  no results found")
			continue
		}
		fmt.Fprintf(w, "  %d %s found (%s)\n", res.Total, cat.Noun(), res.ScannerName)
		for _, warn := range res.Warnings {
			fmt.Fprintf(w, "  warning: %s\n", warn)
		}
		if len(res.Findings) == 0 {
			continue
		}

		switch cat {
		case types.CategoryVulnerability:
			f.vulnerabilities(w, res)
		case types.CategoryMisconfiguration:
			f.misconfigurations(w, res)
		case types.CategorySecret:
			f.secrets(w, res)
		}
	}

	r := in.Result
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Total: %d findings (%d critical, %d high, %d medium, %d low, %d unknown)\n",
		r.TotalFindings, r.BySeverity.Critical, r.BySeverity.High, r.BySeverity.Medium, r.BySeverity.Low, r.BySeverity.Unknown)
	if in.Verdict != nil {
		verdict := strings.ToUpper(in.Verdict.String())
		if !f.NoColor {
			if in.Verdict.Failed {
				verdict = color.New(color.FgRed, color.Bold).Sprint(verdict)
			} else {
				verdict = color.New(color.FgGreen, color.Bold).Sprint(verdict)
			}
		}
		fmt.Fprintf(w, "Verdict: %s\n", verdict)
		for _, reason := range in.Verdict.Reasons {
			fmt.Fprintf(w, "  - %s\n", reason)
		}
	}
	return nil
}

func sectionTitle(c types.Category) string {
	switch c {
	case types.CategoryVulnerability:
		return "Vulnerabilities"
	case types.CategoryMisconfiguration:
		return "Misconfigurations"
	default:
		return "Secrets"
	}
}

func newTable(w io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetBorder(false)
	table.SetColumnSeparator("│")
	return table
}

func (f *TableFormatter) vulnerabilities(w io.Writer, res types.ScanResult) {
	table := newTable(w, []string{"Severity", "ID", "Package", "Installed", "Fixed", "Title"})
	for _, fd := range sortedFindings(res.Findings) {
		v := fd.Vulnerability
		if v == nil {
			continue
		}
		table.Append([]string{f.severity(fd.Severity), v.ID, v.Package, v.InstalledVersion, v.FixedVersion, v.Title})
	}
	table.Render()
	fmt.Fprintf(w, "  Summary: %s\n", summary(res))
}

func (f *TableFormatter) misconfigurations(w io.Writer, res types.ScanResult) {
	sorted := sortedFindings(res.Findings)
	table := newTable(w, []string{"Severity", "Rule", "File", "Line", "Title"})
	for _, fd := range sorted {
		m := fd.Misconfiguration
		if m == nil {
			continue
		}
		line := ""
		if m.Line > 0 {
			line = strconv.Itoa(m.Line)
		}
		table.Append([]string{f.severity(fd.Severity), m.RuleID, m.File, line, m.Title})
	}
	table.Render()

	for _, fd := range sorted {
		m := fd.Misconfiguration
		if m == nil || len(m.Code) == 0 {
			continue
		}
		fmt.Fprintf(w, "\n  %s %s:%d\n", m.RuleID, m.File, m.Line)
		for _, l := range m.Code {
			content := l.Content
			if !f.NoColor {
				content = highlightLine(content, m.File)
			}
			fmt.Fprintf(w, "  %4d │ %s\n", l.Number, content)
		}
		if m.Resolution != "" {
			fmt.Fprintf(w, "  fix: %s\n", m.Resolution)
		}
	}
	fmt.Fprintf(w, "  Summary: %s, %d files scanned\n", summary(res), res.FilesScanned)
}

func (f *TableFormatter) secrets(w io.Writer, res types.ScanResult) {
	table := newTable(w, []string{"Rule", "File", "Lines", "Secret"})
	for _, fd := range res.Findings {
		s := fd.Secret
		if s == nil {
			continue
		}
		lines := strconv.Itoa(s.StartLine)
		if s.EndLine != s.StartLine {
			lines += "-" + strconv.Itoa(s.EndLine)
		}
		table.Append([]string{s.RuleID, s.DisplayFile, lines, maskValue(s.SecretText)})
	}
	table.Render()
}

func (f *TableFormatter) severity(s types.Severity) string {
	if f.NoColor {
		return string(s)
	}
	var c *color.Color
	switch s {
	case types.SeverityCritical:
		c = color.New(color.FgRed, color.Bold)
	case types.SeverityHigh:
		c = color.New(color.FgRed)
	case types.SeverityMedium:
		c = color.New(color.FgYellow)
	case types.SeverityLow:
		c = color.New(color.FgCyan)
	default:
		c = color.New(color.FgWhite)
	}
	c.EnableColor()
	return c.Sprint(string(s))
}

func summary(res types.ScanResult) string {
	c := res.BySeverity
	return fmt.Sprintf("%d %s (%d critical, %d high, %d medium, %d low, %d unknown)",
		res.Total, res.Category.Noun(), c.Critical, c.High, c.Medium, c.Low, c.Unknown)
}
