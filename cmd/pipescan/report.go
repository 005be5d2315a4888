package pipescan

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/varalys/pipescan/internal/audit"
	"github.com/varalys/pipescan/internal/cache"
	"github.com/varalys/pipescan/internal/config"
	"github.com/varalys/pipescan/internal/report"
)

var (
	flagReportFormat  string
	flagReportHistory int
)

func init() {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Re-render the last scan without scanning again",
		RunE:  runReport,
	}
	cmd.Flags().StringVar(&flagReportFormat, config.KeyFormat, "table", "output format: table | json | sarif | markdown")
	cmd.Flags().IntVar(&flagReportHistory, "history", 0, "list the last N runs from the audit log instead")
	rootCmd.AddCommand(cmd)
}

func runReport(cmd *cobra.Command, _ []string) error {
	env, err := config.LoadEnv()
	if err != nil {
		return err
	}
	root, err := workspaceDir(env)
	if err != nil {
		return err
	}
	if flagReportHistory > 0 {
		return printHistory(cmd, root, flagReportHistory)
	}
	last, err := cache.LoadRun(root)
	if err != nil {
		return fmt.Errorf("no cached run found, run `pipescan scan` first: %w", err)
	}
	f, err := report.GetFormatter(flagReportFormat, report.Options{NoColor: flagNoColor || !report.ColorEnabled(os.Stdout)})
	if err != nil {
		return err
	}
	verdict := last.Verdict
	return f.Format(os.Stdout, report.Input{Result: last.Result, Verdict: &verdict, Version: version})
}

func printHistory(cmd *cobra.Command, root string, n int) error {
	records, err := audit.NewLog(root).History()
	if err != nil {
		return fmt.Errorf("no scan history found: %w", err)
	}
	if len(records) > n {
		records = records[:n]
	}
	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.SetHeader([]string{"Time", "Run", "Target", "Findings", "Verdict", "Duration"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	for _, r := range records {
		table.Append([]string{
			r.Timestamp.Local().Format(time.DateTime), r.RunID, r.Target,
			strconv.Itoa(r.TotalFindings), r.Verdict, r.Duration,
		})
	}
	table.Render()
	return nil
}
