// Package upload sends the combined scan report to the remote API.
package upload

import (
	"github.com/varalys/pipescan/internal/aggregate"
	"github.com/varalys/pipescan/internal/types"
)

// CombinedScanRequest is the JSON document sent in the combinedScanRequest
// form field. Field names follow the remote API and must not change.
type CombinedScanRequest struct {
	ConfigScanResponseDto ConfigScanResponse `json:"configScanResponseDto"`
	ScannerSecretResponse []SecretRecord     `json:"scannerSecretResponse"`
}

// ConfigScanResponse mirrors the config scanner's native report shape.
type ConfigScanResponse struct {
	ArtifactName string                  `json:"ArtifactName"`
	ArtifactType string                  `json:"ArtifactType"`
	Results      []types.MisconfigTarget `json:"Results"`
}

// SecretRecord is one deduplicated secret finding.
type SecretRecord struct {
	RuleID      string `json:"RuleID"`
	Description string `json:"Description"`
	File        string `json:"File"`
	Match       string `json:"Match"`
	Secret      string `json:"Secret"`
	StartLine   int    `json:"StartLine"`
	EndLine     int    `json:"EndLine"`
	StartColumn int    `json:"StartColumn"`
	EndColumn   int    `json:"EndColumn"`
}

// BuildPayload assembles the combined request from the run result. Missing
// categories produce empty, non-nil lists.
func BuildPayload(res aggregate.Result) CombinedScanRequest {
	req := CombinedScanRequest{
		ConfigScanResponseDto: ConfigScanResponse{Results: []types.MisconfigTarget{}},
		ScannerSecretResponse: []SecretRecord{},
	}

	if cfg, ok := res.FindByCategory(types.CategoryMisconfiguration); ok {
		req.ConfigScanResponseDto.ArtifactName = cfg.ArtifactName
		req.ConfigScanResponseDto.ArtifactType = cfg.ArtifactType
		for _, t := range cfg.ConfigTargets {
			if t.Misconfigurations == nil {
				t.Misconfigurations = []types.MisconfigRecord{}
			}
			req.ConfigScanResponseDto.Results = append(req.ConfigScanResponseDto.Results, t)
		}
	}

	if sec, ok := res.FindByCategory(types.CategorySecret); ok {
		for _, f := range sec.Findings {
			s := f.Secret
			if s == nil {
				continue
			}
			req.ScannerSecretResponse = append(req.ScannerSecretResponse, SecretRecord{
				RuleID:      s.RuleID,
				Description: s.Description,
				File:        s.File,
				Match:       s.MatchedText,
				Secret:      s.SecretText,
				StartLine:   s.StartLine,
				EndLine:     s.EndLine,
				StartColumn: s.StartColumn,
				EndColumn:   s.EndColumn,
			})
		}
	}
	return req
}
