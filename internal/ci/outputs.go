// Package ci publishes run results to the CI system: step outputs, the job
// summary, and a pull request comment.
package ci

import (
	"fmt"
	"os"
	"strconv"

	"github.com/varalys/pipescan/internal/aggregate"
	"github.com/varalys/pipescan/internal/policy"
	"github.com/varalys/pipescan/internal/types"
)

// Output is one step output.
type Output struct {
	Key   string
	Value string
}

// Outputs lists the step outputs for a run in a fixed order. Category
// counts are 0 when the category did not run.
func Outputs(res aggregate.Result, v policy.Verdict) []Output {
	count := func(c types.Category) string {
		r, ok := res.FindByCategory(c)
		if !ok {
			return "0"
		}
		return strconv.Itoa(r.Total)
	}
	return []Output{
		{"total", strconv.Itoa(res.TotalFindings)},
		{"critical", strconv.Itoa(res.BySeverity.Critical)},
		{"high", strconv.Itoa(res.BySeverity.High)},
		{"medium", strconv.Itoa(res.BySeverity.Medium)},
		{"low", strconv.Itoa(res.BySeverity.Low)},
		{"vulnerabilities", count(types.CategoryVulnerability)},
		{"misconfigurations", count(types.CategoryMisconfiguration)},
		{"secrets", count(types.CategorySecret)},
		{"verdict", v.String()},
	}
}

// WriteOutputs appends key=value lines to the outputs file. An empty path
// is a no-op.
func WriteOutputs(path string, outs []Output) error {
	if path == "" {
		return nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open outputs file: %w", err)
	}
	defer f.Close()
	for _, o := range outs {
		if _, err := fmt.Fprintf(f, "%s=%s\n", o.Key, o.Value); err != nil {
			return fmt.Errorf("write outputs file: %w", err)
		}
	}
	return nil
}

// AppendStepSummary appends markdown to the job summary file. An empty
// path is a no-op.
func AppendStepSummary(path string, markdown []byte) error {
	if path == "" {
		return nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open step summary: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(markdown); err != nil {
		return fmt.Errorf("write step summary: %w", err)
	}
	return nil
}
