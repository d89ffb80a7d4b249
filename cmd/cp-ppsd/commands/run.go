package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/seiscode/cp-ppsd/pkg/config"
)

// NewRunCommand creates the run command. Each configuration file selects its
// own operations: compute when an input pattern is set, plot when an artifact
// directory is set. All compute configurations run before any plot
// configuration, so a plot stage can consume artifacts a compute stage just
// produced. A failing configuration aborts the run only when it is the sole
// configuration of its kind; otherwise the failure is reported and the
// remaining configurations still run.
func NewRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [config...]",
		Short: "Execute the operations selected by one or more configuration files",
		RunE: func(cmd *cobra.Command, args []string) error {
			paths := args
			if len(paths) == 0 {
				// Fall back to the default config search.
				paths = []string{""}
			}

			computePaths, plotPaths, err := classifyConfigs(paths)
			if err != nil {
				return err
			}

			err = runStage(cmd, computePaths, (*runtime).runCompute)
			if err != nil {
				return err
			}

			return runStage(cmd, plotPaths, (*runtime).runPlot)
		},
	}

	return cmd
}

// classifyConfigs loads every configuration once and splits the paths by the
// operations they select. A path may land in both lists. Load failures are
// structural: nothing has run yet, so they always abort.
func classifyConfigs(paths []string) (computePaths, plotPaths []string, err error) {
	for _, path := range paths {
		cfg, loadErr := config.Load(path)
		if loadErr != nil {
			return nil, nil, loadErr
		}

		if cfg.HasCompute() {
			computePaths = append(computePaths, path)
		}

		if cfg.HasPlot() {
			plotPaths = append(plotPaths, path)
		}
	}

	return computePaths, plotPaths, nil
}

// runStage executes one operation for every configuration path. With a single
// path a failure propagates; with several, failures are reported and the rest
// keep running.
func runStage(cmd *cobra.Command, paths []string, op func(*runtime, context.Context) error) error {
	for _, path := range paths {
		err := runOne(cmd, path, op)
		if err != nil {
			if len(paths) == 1 {
				return err
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "Error: config %q: %v\n", path, err)
		}
	}

	return nil
}

// runOne brings up the runtime for one configuration, executes the operation
// and tears the runtime down again.
func runOne(cmd *cobra.Command, path string, op func(*runtime, context.Context) error) error {
	rt, err := setup(cmd, path)
	if err != nil {
		return err
	}
	defer rt.close(cmd.Context())

	return op(rt, cmd.Context())
}
