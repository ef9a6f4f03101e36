// Command stakeflow runs the utility-locate ticket tracker: an API server
// over the upstream Blue Stakes ticket service plus a one-shot cache
// warming sweep.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "stakeflow",
	Short: "Utility-locate ticket tracking service",
	Long: `stakeflow tracks utility-locate tickets against the upstream
Blue Stakes service: which tracked tickets are due for renewal, which
upstream tickets are not yet assigned to a project, and how renewal
chains advance as tickets are replaced.`,
	SilenceUsage: true,
}

func main() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to YAML config file (optional)")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(sweepCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
