package pipescan

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/varalys/pipescan/internal/audit"
	"github.com/varalys/pipescan/internal/ci"
	"github.com/varalys/pipescan/internal/config"
	"github.com/varalys/pipescan/internal/orchestrator"
	"github.com/varalys/pipescan/internal/report"
	"github.com/varalys/pipescan/internal/scanner/factory"
	"github.com/varalys/pipescan/internal/scanner/toolbin"
	"github.com/varalys/pipescan/internal/upload"
)

func init() {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Install the scanners, scan the target and apply the fail policy",
		Long: "Every option can also be given as an INPUT_<NAME> environment variable " +
			"(for example INPUT_SCAN-TYPE) or as a key in .pipescan.yml.",
		RunE: runScan,
	}
	addInputFlags(cmd)
	rootCmd.AddCommand(cmd)
}

func addInputFlags(cmd *cobra.Command) {
	d := config.DefaultInputs()
	f := cmd.Flags()
	f.String(config.KeyScanType, d.ScanType, "all, or a comma-separated list of vuln, sbom, secret, config")
	f.String(config.KeyScanTarget, d.ScanTarget, "path or image reference to scan")
	f.String(config.KeyTargetKind, d.TargetKind, "fs or image")
	f.String(config.KeySeverity, d.Severity, "comma-separated severities passed to the scanners")
	f.Bool(config.KeyIgnoreUnfixed, false, "skip vulnerabilities without a fixed version")
	f.String(config.KeyFormat, d.Format, "output format: table | json | sarif | markdown")
	f.String(config.KeyExitCode, d.ExitCode, `"0" never fails the run`)
	f.String(config.KeyFailOnVulnerability, d.FailOnVulnerability, `"false" ignores vulnerabilities in the verdict`)
	f.String(config.KeyFailOnMisconfiguration, d.FailOnMisconfiguration, `"false" ignores misconfigurations in the verdict`)
	f.String(config.KeyFailOnSecret, d.FailOnSecret, `"false" ignores secrets in the verdict`)
	f.String(config.KeyMasterOverride, d.MasterOverride, `"false" never fails the run`)
	f.String(config.KeyGitHubToken, "", "token for pull request comments and release lookups")
	f.String(config.KeyAPIEndpoint, "", "upload endpoint for the combined report")
	f.Bool(config.KeyPruneNodeModules, false, "delete node_modules below the target before scanning")
	f.String(config.KeySBOMOutput, "", "directory to keep the generated SBOM in")
	f.String(config.KeySecretRules, "", "gitleaks rules file, relative to the workspace")
}

func runScan(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	env, err := config.LoadEnv()
	if err != nil {
		return err
	}
	root, err := workspaceDir(env)
	if err != nil {
		return err
	}
	files, cfgPath, err := loadFileConfig(root)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	in, err := config.LoadInputs(cmd.Flags(), cfgPath)
	if err != nil {
		return err
	}

	scanners, err := factory.New(factory.Config{
		ScanTypes: in.ScanTypes(),
		Files:     files,
		Releases:  toolbin.NewGitHubReleases(ctx, in.GitHubToken),
		Log:       logger,
	})
	if err != nil {
		return err
	}

	c := orchestrator.New(orchestrator.Options{
		Inputs:    in,
		Env:       env,
		Files:     files,
		Workspace: root,
		Version:   version,
		NoColor:   flagNoColor || !report.ColorEnabled(os.Stdout),
	}, scanners, logger)
	c.Uploader = upload.NewClient(in.APIEndpoint, upload.Credentials{
		APIKey:    env.APIKey(),
		SecretKey: env.SecretKey(),
		TenantKey: env.TenantKey,
	}, logger.WithName("upload"))
	if in.GitHubToken != "" {
		commenter, err := ci.NewCommenter(ctx, in.GitHubToken, env.APIURL)
		if err != nil {
			logger.Error(err, "warning: pull request comments disabled")
		} else {
			c.Commenter = commenter
		}
	}
	if files.AuditEnabled() {
		c.Audit = audit.NewLog(root)
	}
	c.SaveLastRun = files.CacheEnabled()

	sum, err := c.Run(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr, sum.String())
	if sum.Verdict.Failed {
		return ErrPolicyFailed
	}
	return nil
}
