package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/varalys/pipescan/internal/types"
)

type sarif struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name           string      `json:"name"`
	Version        string      `json:"version,omitempty"`
	InformationURI string      `json:"informationUri,omitempty"`
	Rules          []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string       `json:"id"`
	ShortDescription sarifMessage `json:"shortDescription"`
	HelpURI          string       `json:"helpUri,omitempty"`
}

type sarifResult struct {
	RuleID    string       `json:"ruleId"`
	RuleIndex int          `json:"ruleIndex"`
	Level     string       `json:"level"`
	Message   sarifMessage `json:"message"`
	Locations []sarifLoc   `json:"locations"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLoc struct {
	PhysicalLocation sarifPhys `json:"physicalLocation"`
}

type sarifPhys struct {
	ArtifactLocation sarifArt     `json:"artifactLocation"`
	Region           *sarifRegion `json:"region,omitempty"`
}

type sarifArt struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine int `json:"startLine"`
	EndLine   int `json:"endLine,omitempty"`
}

const sarifSchema = "https://json.schemastore.org/sarif-2.1.0.json"

func sevToLevel(f types.Finding) string {
	if f.Category == types.CategorySecret {
		return "error"
	}
	switch f.Severity {
	case types.SeverityCritical, types.SeverityHigh:
		return "error"
	case types.SeverityMedium:
		return "warning"
	default:
		return "note"
	}
}

// SARIFFormatter writes all findings as a single SARIF 2.1.0 run.
type SARIFFormatter struct{}

func (SARIFFormatter) Format(w io.Writer, in Input) error {
	return WriteSARIF(w, in.Version, in.Result.PerScanner)
}

// WriteSARIF writes the findings of every result as SARIF 2.1.0. Rules are
// emitted once per rule ID in first-seen order.
func WriteSARIF(w io.Writer, version string, results []types.ScanResult) error {
	run := sarifRun{
		Tool: sarifTool{Driver: sarifDriver{
			Name:           "pipescan",
			Version:        version,
			InformationURI: "https://github.com/varalys/pipescan",
			Rules:          []sarifRule{},
		}},
		Results: []sarifResult{},
	}
	ruleIndex := map[string]int{}

	for _, res := range results {
		for _, f := range res.Findings {
			id, desc, help, loc := sarifFields(f)
			if id == "" {
				continue
			}
			idx, ok := ruleIndex[id]
			if !ok {
				idx = len(run.Tool.Driver.Rules)
				ruleIndex[id] = idx
				run.Tool.Driver.Rules = append(run.Tool.Driver.Rules, sarifRule{
					ID:               id,
					ShortDescription: sarifMessage{Text: desc},
					HelpURI:          help,
				})
			}
			run.Results = append(run.Results, sarifResult{
				RuleID:    id,
				RuleIndex: idx,
				Level:     sevToLevel(f),
				Message:   sarifMessage{Text: message(f)},
				Locations: []sarifLoc{{PhysicalLocation: loc}},
			})
		}
	}

	doc := sarif{Schema: sarifSchema, Version: "2.1.0", Runs: []sarifRun{run}}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

func sarifFields(f types.Finding) (id, desc, help string, loc sarifPhys) {
	switch {
	case f.Vulnerability != nil:
		v := f.Vulnerability
		return v.ID, v.Title, v.PrimaryURL, sarifPhys{ArtifactLocation: sarifArt{URI: v.Target}}
	case f.Misconfiguration != nil:
		m := f.Misconfiguration
		loc = sarifPhys{ArtifactLocation: sarifArt{URI: m.File}}
		if m.Line > 0 {
			loc.Region = &sarifRegion{StartLine: m.Line}
		}
		return m.RuleID, m.Title, "", loc
	case f.Secret != nil:
		s := f.Secret
		loc = sarifPhys{ArtifactLocation: sarifArt{URI: s.File}}
		if s.StartLine > 0 {
			loc.Region = &sarifRegion{StartLine: s.StartLine, EndLine: s.EndLine}
		}
		return s.RuleID, s.Description, "", loc
	}
	return "", "", "", loc
}

func message(f types.Finding) string {
	switch {
	case f.Vulnerability != nil:
		v := f.Vulnerability
		msg := fmt.Sprintf("%s %s in %s", v.ID, v.InstalledVersion, v.Package)
		if v.FixedVersion != "" {
			msg += ", fixed in " + v.FixedVersion
		}
		return msg
	case f.Misconfiguration != nil:
		m := f.Misconfiguration
		if m.Message != "" {
			return m.Message
		}
		return m.Title
	case f.Secret != nil:
		return f.Secret.RuleID + " detected"
	}
	return ""
}
