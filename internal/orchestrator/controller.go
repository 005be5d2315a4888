// Package orchestrator sequences one scan run: install, scan, display,
// outputs, upload, comment and the fail decision.
package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/varalys/pipescan/internal/aggregate"
	"github.com/varalys/pipescan/internal/audit"
	"github.com/varalys/pipescan/internal/cache"
	"github.com/varalys/pipescan/internal/ci"
	"github.com/varalys/pipescan/internal/config"
	"github.com/varalys/pipescan/internal/gitmeta"
	"github.com/varalys/pipescan/internal/policy"
	"github.com/varalys/pipescan/internal/report"
	"github.com/varalys/pipescan/internal/scanner"
	"github.com/varalys/pipescan/internal/types"
	"github.com/varalys/pipescan/internal/upload"
)

// Uploader sends the combined report. *upload.Client implements it.
type Uploader interface {
	Configured() bool
	Upload(ctx context.Context, req upload.Request) error
}

// Commenter posts a pull request comment. *ci.Commenter implements it.
type Commenter interface {
	Post(ctx context.Context, repo string, number int, body string) error
}

// Options configure one run.
type Options struct {
	Inputs config.Inputs
	Env    config.Env
	Files  config.FileConfig
	// Workspace is the absolute base that relative targets resolve against.
	Workspace string
	Version   string
	NoColor   bool
}

// Controller runs the phases strictly in order. Adapters run one at a time
// in registration order; a failing adapter is logged and excluded.
type Controller struct {
	opts     Options
	scanners []scanner.Scanner
	log      logr.Logger

	Stdout    io.Writer
	Uploader  Uploader
	Commenter Commenter
	// Audit is nil when the audit log is disabled.
	Audit *audit.Log
	// SaveLastRun stores the result for `pipescan report`.
	SaveLastRun bool
	// Now is replaceable in tests.
	Now func() time.Time
}

// Summary is the outcome of Run.
type Summary struct {
	RunID     string
	Result    aggregate.Result
	Verdict   policy.Verdict
	Installed []scanner.ToolHandle
	// Excluded maps scanner names to the reason they were dropped.
	Excluded map[string]string
}

// New returns a controller for the given adapters.
func New(opts Options, scanners []scanner.Scanner, log logr.Logger) *Controller {
	return &Controller{
		opts:     opts,
		scanners: scanners,
		log:      log,
		Stdout:   os.Stdout,
		Now:      time.Now,
	}
}

// Install runs the install phase alone. Failed adapters are excluded from
// the returned list.
func (c *Controller) Install(ctx context.Context) ([]scanner.Scanner, []scanner.ToolHandle, map[string]string) {
	excluded := map[string]string{}
	var ready []scanner.Scanner
	var handles []scanner.ToolHandle
	for _, s := range c.scanners {
		h, err := s.Install(ctx)
		if err != nil {
			c.log.Error(err, "warning: install failed, scanner excluded", "scanner", s.Name())
			excluded[s.Name()] = err.Error()
			continue
		}
		c.log.V(1).Info("installed", "scanner", s.Name(), "tool", h.Name, "path", h.Path, "version", h.Version)
		ready = append(ready, s)
		handles = append(handles, h)
	}
	return ready, handles, excluded
}

// Run executes a full run. A failed policy verdict is reported in the
// Summary, not as an error; errors are reserved for invalid options.
func (c *Controller) Run(ctx context.Context) (Summary, error) {
	in := c.opts.Inputs
	formatter, err := report.GetFormatter(in.Format, report.Options{NoColor: c.opts.NoColor})
	if err != nil {
		return Summary{}, err
	}

	started := c.Now()
	sum := Summary{RunID: uuid.NewString()}
	c.log.Info("starting scan", "run", sum.RunID, "target", in.ScanTarget, "scanners", len(c.scanners))

	// install
	ready, handles, excluded := c.Install(ctx)
	sum.Installed = handles
	sum.Excluded = excluded

	// scan + aggregate
	artifactDir, keepArtifacts := c.artifactDir(sum.RunID)
	cfg := scanner.ScanConfig{
		ScanTarget:       in.ScanTarget,
		TargetKind:       scanner.TargetKind(in.TargetKind),
		WorkspaceDir:     c.opts.Workspace,
		Severity:         in.Severity,
		IgnoreUnfixed:    in.IgnoreUnfixed,
		PruneNodeModules: in.PruneNodeModules,
		PrunePatterns:    c.opts.Files.PrunePatterns,
		SecretRules:      in.SecretRules,
		ArtifactDir:      artifactDir,
	}
	agg := aggregate.New()
	for _, s := range ready {
		c.log.Info("scanning", "scanner", s.Name())
		res, err := s.Scan(ctx, cfg)
		if err != nil {
			c.log.Error(err, "warning: scan failed, scanner excluded", "scanner", s.Name())
			sum.Excluded[s.Name()] = err.Error()
			continue
		}
		c.log.Info("scan complete", "scanner", s.Name(), "total", res.Total)
		agg.Aggregate(res)
	}
	sum.Result = agg.Result()
	sum.Verdict = policy.Evaluate(policy.Options{
		FailOnVulnerability:    in.FailOnVulnerability,
		FailOnMisconfiguration: in.FailOnMisconfiguration,
		FailOnSecret:           in.FailOnSecret,
		MasterOverride:         in.MasterOverride,
		ExitCode:               in.ExitCode,
	}, sum.Result)

	// display
	rin := report.Input{Result: sum.Result, Verdict: &sum.Verdict, Version: c.opts.Version}
	if err := formatter.Format(c.Stdout, rin); err != nil {
		c.log.Error(err, "warning: rendering report failed")
	}

	// outputs
	if err := ci.WriteOutputs(c.opts.Env.OutputFile, ci.Outputs(sum.Result, sum.Verdict)); err != nil {
		c.log.Error(err, "warning: writing step outputs failed")
	}
	c.persist(sum, started)

	// upload
	c.upload(ctx, sum.Result)

	// comment
	c.comment(ctx, rin)

	if !keepArtifacts && artifactDir != "" {
		if err := os.RemoveAll(artifactDir); err != nil {
			c.log.Error(err, "warning: removing sbom directory failed", "dir", artifactDir)
		}
	}

	// fail decision
	if sum.Verdict.Failed {
		c.log.Info("scan failed policy", "reasons", sum.Verdict.Reasons)
	} else if sum.Verdict.SuppressedBy != "" {
		c.log.Info("failure suppressed", "by", string(sum.Verdict.SuppressedBy))
	}
	return sum, nil
}

// artifactDir returns where the SBOM is written and whether it is kept
// after the run.
func (c *Controller) artifactDir(runID string) (string, bool) {
	if out := c.opts.Inputs.SBOMOutput; out != "" {
		if !filepath.IsAbs(out) && c.opts.Workspace != "" {
			out = filepath.Join(c.opts.Workspace, out)
		}
		return out, true
	}
	return filepath.Join(os.TempDir(), "pipescan-"+runID), false
}

func (c *Controller) persist(sum Summary, started time.Time) {
	root := c.opts.Workspace
	if root == "" {
		return
	}
	if c.Audit != nil {
		rec := audit.NewRecord(sum.RunID, c.opts.Inputs.ScanTarget, sum.Result, sum.Verdict, c.Now().Sub(started))
		if err := c.Audit.Append(rec); err != nil {
			c.log.Error(err, "warning: audit log write failed")
		}
	}
	if c.SaveLastRun {
		run := cache.LastRun{RunID: sum.RunID, Target: c.opts.Inputs.ScanTarget, Result: stripSecrets(sum.Result), Verdict: sum.Verdict}
		if err := cache.SaveRun(root, run); err != nil {
			c.log.Error(err, "warning: saving last run failed")
		}
	}
}

func (c *Controller) upload(ctx context.Context, res aggregate.Result) {
	if c.Uploader == nil || !c.Uploader.Configured() {
		c.log.Info("upload skipped: api endpoint or credentials not set")
		return
	}
	req := upload.Request{
		Payload:  upload.BuildPayload(res),
		SBOMPath: res.SBOMPath(),
		Meta:     c.metadata(),
	}
	if err := c.Uploader.Upload(ctx, req); err != nil {
		if errors.Is(err, upload.ErrNotConfigured) {
			c.log.Info("upload skipped", "reason", err.Error())
			return
		}
		c.log.Error(err, "warning: upload failed")
	}
}

func (c *Controller) metadata() upload.Metadata {
	env := c.opts.Env
	meta := upload.Metadata{
		RepoName:   env.Repository,
		BranchName: env.Branch(),
		JobID:      env.RunID,
	}
	if meta.RepoName == "" || meta.BranchName == "" {
		repo := gitmeta.Lookup(c.opts.Workspace)
		if meta.RepoName == "" {
			meta.RepoName = repo.Name
		}
		if meta.BranchName == "" {
			meta.BranchName = repo.Branch
		}
	}
	meta.DisplayName = env.ProjectID
	if meta.DisplayName == "" {
		meta.DisplayName = meta.RepoName
	}
	if meta.JobID == "" {
		meta.JobID = uuid.NewString()
	}
	return meta
}

func (c *Controller) comment(ctx context.Context, rin report.Input) {
	var buf bytes.Buffer
	if err := (report.MarkdownFormatter{}).Format(&buf, rin); err != nil {
		c.log.Error(err, "warning: rendering summary failed")
		return
	}
	if err := ci.AppendStepSummary(c.opts.Env.StepSummary, buf.Bytes()); err != nil {
		c.log.Error(err, "warning: writing step summary failed")
	}

	if c.Commenter == nil {
		return
	}
	number, ok := ci.PullRequestNumber(c.opts.Env.Ref)
	if !ok {
		c.log.V(1).Info("not a pull request, no comment posted", "ref", c.opts.Env.Ref)
		return
	}
	if err := c.Commenter.Post(ctx, c.opts.Env.Repository, number, buf.String()); err != nil {
		c.log.Error(err, "warning: posting pull request comment failed")
	}
}

// stripSecrets blanks secret values before a result is written to disk.
func stripSecrets(res aggregate.Result) aggregate.Result {
	out := res
	out.PerScanner = make([]types.ScanResult, len(res.PerScanner))
	for i, r := range res.PerScanner {
		if r.Category == types.CategorySecret {
			findings := make([]types.Finding, len(r.Findings))
			for j, f := range r.Findings {
				if f.Secret != nil {
					s := *f.Secret
					s.SecretText = "[REDACTED]"
					s.MatchedText = "[REDACTED]"
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

// String renders the verdict line printed by the CLI.
func (s Summary) String() string {
	if s.Verdict.Failed {
		return fmt.Sprintf("pipescan: failed (%d findings)", s.Result.TotalFindings)
	}
	return fmt.Sprintf("pipescan: passed (%d findings)", s.Result.TotalFindings)
}
