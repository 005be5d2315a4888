package pipescan

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"github.com/varalys/pipescan/internal/config"
)

// ErrPolicyFailed is returned by scan when the fail policy reports failure.
var ErrPolicyFailed = errors.New("scan failed policy")

var (
	flagNoColor bool
	flagConfig  string

	version = "0.1.0"

	logger = logr.Discard()
	klogFS = flag.NewFlagSet("klog", flag.ContinueOnError)
)

var rootCmd = &cobra.Command{
	Use:   "pipescan",
	Short: "Run vulnerability, SBOM, secret and config scanners in CI",
	Long: "pipescan installs and runs trivy, syft and gitleaks against a workspace, " +
		"aggregates their findings, and decides whether the pipeline should fail.",
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setupLogging,
}

// Execute runs the CLI and returns the process exit code: 0 on success,
// 1 when the fail policy failed the run, 2 on any other error.
func Execute() int {
	err := rootCmd.Execute()
	klog.Flush()
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrPolicyFailed):
		return 1
	default:
		fmt.Fprintln(os.Stderr, "error:", err)
		return 2
	}
}

func init() {
	klog.InitFlags(klogFS)
	rootCmd.PersistentFlags().AddGoFlagSet(klogFS)
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "disable colorized output")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default: .pipescan.yml in the workspace, then the global config)")
}

func setupLogging(_ *cobra.Command, _ []string) error {
	env, err := config.LoadEnv()
	if err != nil {
		return err
	}
	if env.Debug() {
		if err := klogFS.Set("v", "4"); err != nil {
			return err
		}
	}
	logger = klog.NewKlogr().WithName("pipescan")
	return nil
}
