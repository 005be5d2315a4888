package config

import (
	"bytes"

	"gopkg.in/yaml.v3"
)

type sampleEntry struct {
	key, value, comment string
	tag                 string
}

// Sample returns a commented .pipescan.yml with the default settings.
func Sample() ([]byte, error) {
	d := DefaultInputs()
	root := &yaml.Node{Kind: yaml.MappingNode, HeadComment: "pipescan configuration. Flags and INPUT_* variables override these values."}

	for _, e := range []sampleEntry{
		{key: KeyScanType, value: d.ScanType, comment: "all, or a comma-separated list of vuln, sbom, secret, config"},
		{key: KeyScanTarget, value: d.ScanTarget, comment: "path to scan, relative to the workspace"},
		{key: KeyTargetKind, value: d.TargetKind, comment: "fs or image"},
		{key: KeySeverity, value: d.Severity},
		{key: KeyIgnoreUnfixed, value: "false", tag: "!!bool"},
		{key: KeyFormat, value: d.Format, comment: "table, json, sarif or markdown"},
		{key: KeyExitCode, value: d.ExitCode, comment: "\"0\" never fails the run"},
		{key: KeyFailOnVulnerability, value: d.FailOnVulnerability},
		{key: KeyFailOnMisconfiguration, value: d.FailOnMisconfiguration},
		{key: KeyFailOnSecret, value: d.FailOnSecret},
		{key: KeyPruneNodeModules, value: "false", tag: "!!bool", comment: "deletes node_modules below the target before scanning"},
	} {
		tag := e.tag
		if tag == "" {
			tag = "!!str"
		}
		root.Content = append(root.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: e.key, HeadComment: e.comment},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: e.value},
		)
	}

	for _, tool := range []string{"trivy", "syft", "gitleaks"} {
		tc := &yaml.Node{Kind: yaml.MappingNode}
		tc.Content = append(tc.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: "auto_download"},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: "true"},
			&yaml.Node{Kind: yaml.ScalarNode, Value: "version"},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: "latest"},
		)
		root.Content = append(root.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: tool}, tc)
	}

	root.Content = append(root.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Value: "audit", HeadComment: "append each run to .git/pipescan_audit.jsonl"},
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: "true"},
		&yaml.Node{Kind: yaml.ScalarNode, Value: "cache"},
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: "true"},
	)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{root}}); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
