package commands

import (
	"github.com/spf13/cobra"
)

// NewComputeCommand creates the compute command.
func NewComputeCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "compute [config]",
		Short: "Turn waveform files into PPSD artifacts",
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

			if !rt.cfg.HasCompute() {
				return ErrComputeNotConfigured
			}

			return rt.runCompute(cmd.Context())
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "configuration file path")

	return cmd
}
