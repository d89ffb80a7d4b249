package commands

import (
	"github.com/spf13/cobra"
)

// NewPlotCommand creates the plot command.
func NewPlotCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "plot [config]",
		Short: "Turn PPSD artifacts into plot pages",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				configPath = args[0]
			}

			rt, err := setup(cmd, configPath)
			if err != nil {
				return err
			}
			defer rt.close(cmd.Context())

			if !rt.cfg.HasPlot() {
				return ErrPlotNotConfigured
			}

			return rt.runPlot(cmd.Context())
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "configuration file path")

	return cmd
}
