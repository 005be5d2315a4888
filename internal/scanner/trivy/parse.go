package trivy

import (
	"encoding/json"
	"fmt"

	"github.com/varalys/pipescan/internal/types"
)

func decode(data []byte) (Report, error) {
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return Report{}, fmt.Errorf("failed to parse trivy JSON output: %w", err)
	}
	return r, nil
}

// ParseVulnerabilityReport converts a Trivy vulnerability report into a
// ScanResult. Malformed input yields an empty result carrying a warning.
func ParseVulnerabilityReport(scannerName string, data []byte) types.ScanResult {
	res := types.NewResult(scannerName, types.CategoryVulnerability)
	report, err := decode(data)
	if err != nil {
		res.Warnings = append(res.Warnings, err.Error())
		return res
	}
	res.ArtifactName = report.ArtifactName
	res.ArtifactType = report.ArtifactType

	for _, r := range report.Results {
		for _, v := range r.Vulnerabilities {
			res.AddFinding(types.Finding{
				Category: types.CategoryVulnerability,
				Severity: types.ParseSeverity(v.Severity),
				Vulnerability: &types.VulnerabilityDetail{
					ID:               v.VulnerabilityID,
					Package:          v.PkgName,
					InstalledVersion: v.InstalledVersion,
					FixedVersion:     v.FixedVersion,
					Title:            v.Title,
					PrimaryURL:       v.PrimaryURL,
					Target:           r.Target,
				},
			})
		}
	}
	return res
}

// ParseConfigReport converts a Trivy config report into a ScanResult.
// Total counts failed checks; FilesScanned counts report targets. The
// native per-target structure is kept in ConfigTargets.
func ParseConfigReport(scannerName string, data []byte) types.ScanResult {
	res := types.NewResult(scannerName, types.CategoryMisconfiguration)
	report, err := decode(data)
	if err != nil {
		res.Warnings = append(res.Warnings, err.Error())
		return res
	}
	res.ArtifactName = report.ArtifactName
	res.ArtifactType = report.ArtifactType
	res.FilesScanned = len(report.Results)
	res.ConfigTargets = make([]types.MisconfigTarget, 0, len(report.Results))

	for _, r := range report.Results {
		target := types.MisconfigTarget{
			Target:            r.Target,
			Class:             r.Class,
			Type:              r.Type,
			Misconfigurations: []types.MisconfigRecord{},
		}
		for _, m := range r.Misconfigurations {
			if !m.failed() {
				continue
			}
			target.Misconfigurations = append(target.Misconfigurations, types.MisconfigRecord{
				ID:          m.ID,
				Title:       m.Title,
				Description: m.Description,
				Severity:    m.Severity,
				PrimaryURL:  m.PrimaryURL,
				Query:       m.Query,
			})

			var code []types.CodeLine
			for _, l := range m.CauseMetadata.Code.Lines {
				code = append(code, types.CodeLine{Number: l.Number, Content: l.Content})
			}
			res.AddFinding(types.Finding{
				Category: types.CategoryMisconfiguration,
				Severity: types.ParseSeverity(m.Severity),
				Misconfiguration: &types.MisconfigDetail{
					File:        r.Target,
					RuleID:      m.ID,
					Title:       m.Title,
					Description: m.Description,
					Message:     m.Message,
					Resolution:  m.Resolution,
					Line:        m.CauseMetadata.StartLine,
					Code:        code,
				},
			})
		}
		res.ConfigTargets = append(res.ConfigTargets, target)
	}
	return res
}
