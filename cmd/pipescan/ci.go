package pipescan

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var ciTemplates = map[string]struct{ path, content string }{
	"github": {
		path: ".github/workflows/pipescan.yml",
		content: `name: pipescan
on: [push, pull_request]

jobs:
  scan:
    runs-on: ubuntu-latest
    permissions:
      contents: read
      pull-requests: write
    steps:
      - uses: actions/checkout@v4
      - uses: actions/setup-go@v5
        with:
          go-version: '1.25'
      - run: go install github.com/varalys/pipescan@latest
      - run: pipescan scan
        env:
          INPUT_GITHUB-TOKEN: ${{ secrets.GITHUB_TOKEN }}
          INPUT_API_ENDPOINT: ${{ vars.PIPESCAN_API_ENDPOINT }}
          X_API_KEY: ${{ secrets.X_API_KEY }}
          X_SECRET_KEY: ${{ secrets.X_SECRET_KEY }}
`,
	},
	"gitlab": {
		path: ".gitlab-ci.yml",
		content: `stages: [scan]
pipescan:
  stage: scan
  image: golang:1.25
  script:
    - go install github.com/varalys/pipescan@latest
    - pipescan scan --format json | tee pipescan-report.json
  artifacts:
    when: always
    paths:
      - pipescan-report.json
`,
	},
	"azure": {
		path: "azure-pipelines.yml",
		content: `trigger:
- main

pool:
  vmImage: 'ubuntu-latest'

steps:
- task: GoTool@0
  inputs:
    version: '1.25.x'
- script: |
    go install github.com/varalys/pipescan@latest
    $(go env GOPATH)/bin/pipescan scan --format sarif > pipescan.sarif
  displayName: 'pipescan'
- publish: pipescan.sarif
  artifact: pipescan
  condition: succeededOrFailed()
`,
	},
}

func init() {
	ci := &cobra.Command{Use: "ci", Short: "CI template helpers for multiple providers"}
	rootCmd.AddCommand(ci)

	var provider string
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a CI pipeline template for your provider",
		RunE: func(_ *cobra.Command, _ []string) error {
			tpl, ok := ciTemplates[provider]
			if !ok {
				return fmt.Errorf("unknown --provider. Supported: github, gitlab, azure")
			}
			if err := os.MkdirAll(filepath.Dir(tpl.path), 0755); err != nil {
				return err
			}
			if err := os.WriteFile(tpl.path, []byte(tpl.content), 0644); err != nil {
				return err
			}
			fmt.Println("Wrote", tpl.path)
			return nil
		},
	}
	initCmd.Flags().StringVar(&provider, "provider", "", "CI provider: github | gitlab | azure")
	if err := initCmd.MarkFlagRequired("provider"); err != nil {
		fmt.Fprintln(os.Stderr, "warning: could not mark --provider as required:", err)
	}
	ci.AddCommand(initCmd)
}
