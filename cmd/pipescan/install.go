package pipescan

import (
	"fmt"
	"os"
	"sort"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/varalys/pipescan/internal/config"
	"github.com/varalys/pipescan/internal/orchestrator"
	"github.com/varalys/pipescan/internal/scanner/factory"
	"github.com/varalys/pipescan/internal/scanner/toolbin"
)

var (
	flagInstallTypes string
	flagInstallToken string
)

func init() {
	cmd := &cobra.Command{
		Use:   "install",
		Short: "Install the scanner tools without scanning",
		RunE:  runInstall,
	}
	cmd.Flags().StringVar(&flagInstallTypes, config.KeyScanType, "all", "scan types whose tools to install")
	cmd.Flags().StringVar(&flagInstallToken, config.KeyGitHubToken, "", "token for release lookups")
	rootCmd.AddCommand(cmd)
}

func runInstall(cmd *cobra.Command, _ []string) error {
	env, err := config.LoadEnv()
	if err != nil {
		return err
	}
	root, err := workspaceDir(env)
	if err != nil {
		return err
	}
	files, _, err := loadFileConfig(root)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	in := config.DefaultInputs()
	in.ScanType = flagInstallTypes

	scanners, err := factory.New(factory.Config{
		ScanTypes: in.ScanTypes(),
		Files:     files,
		Releases:  toolbin.NewGitHubReleases(cmd.Context(), flagInstallToken),
		Log:       logger,
	})
	if err != nil {
		return err
	}
	_, handles, excluded := orchestrator.New(orchestrator.Options{Inputs: in}, scanners, logger).Install(cmd.Context())

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Tool", "Version", "Path"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	seen := map[string]bool{}
	for _, h := range handles {
		if seen[h.Path] {
			continue
		}
		seen[h.Path] = true
		table.Append([]string{h.Name, h.Version, h.Path})
	}
	table.Render()

	for _, name := range sortedKeys(excluded) {
		fmt.Fprintf(os.Stderr, "warning: %s not installed: %s\n", name, excluded[name])
	}
	if len(handles) == 0 && len(excluded) > 0 {
		return fmt.Errorf("no scanner tools could be installed")
	}
	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
