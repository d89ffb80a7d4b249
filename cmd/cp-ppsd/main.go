// Package main provides the entry point for the cp-ppsd CLI tool.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/seiscode/cp-ppsd/cmd/cp-ppsd/commands"
	"github.com/seiscode/cp-ppsd/pkg/version"
)

var (
	verbose bool
	quiet   bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "cp-ppsd",
		Short: "Batch probabilistic power spectral density processing",
		Long: `cp-ppsd computes probabilistic power spectral densities from seismic
waveform archives and renders the results as HTML plot pages.

Commands:
  run       Execute the operations selected by the configuration file
  compute   Turn waveform files into PPSD artifacts
  plot      Turn PPSD artifacts into plot pages`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress output")

	rootCmd.AddCommand(commands.NewRunCommand())
	rootCmd.AddCommand(commands.NewComputeCommand())
	rootCmd.AddCommand(commands.NewPlotCommand())
	rootCmd.AddCommand(versionCmd())

	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(os.Stdout, "cp-ppsd %s\n", version.String())
		},
	}
}
