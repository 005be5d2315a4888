package pipescan

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/varalys/pipescan/internal/scanner/toolbin"
	"github.com/varalys/pipescan/internal/update"
)

var flagNoUpdateCheck bool

func init() {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the pipescan version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Println("pipescan", version)
			if flagNoUpdateCheck {
				return
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Second)
			defer cancel()
			checker := &update.Checker{Releases: toolbin.NewGitHubReleases(ctx, "")}
			if latest, newer, _ := checker.Check(ctx, version); newer {
				fmt.Printf("pipescan %s is available; run `pipescan self-update`\n", latest)
			}
		},
	}
	cmd.Flags().BoolVar(&flagNoUpdateCheck, "no-update-check", false, "do not check for a newer release")
	rootCmd.AddCommand(cmd)
}
