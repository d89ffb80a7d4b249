// Package commands implements CLI command handlers for cp-ppsd.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/seiscode/cp-ppsd/pkg/batch"
	"github.com/seiscode/cp-ppsd/pkg/config"
	"github.com/seiscode/cp-ppsd/pkg/observability"
	"github.com/seiscode/cp-ppsd/pkg/version"
)

// ErrComputeNotConfigured is returned when the compute command runs against
// a configuration without an input pattern.
var ErrComputeNotConfigured = errors.New("configuration selects no compute operation: mseed_pattern is empty")

// ErrPlotNotConfigured is returned when the plot command runs against a
// configuration without an artifact directory.
var ErrPlotNotConfigured = errors.New("configuration selects no plot operation: input_npz_dir is empty")

// runtime bundles the loaded configuration with the observability providers
// every command needs.
type runtime struct {
	cfg        *config.Config
	configPath string
	out        io.Writer
	logger     *slog.Logger
	metrics    *observability.PipelineMetrics
	shutdown   func(context.Context) error
}

// setup loads the configuration and initializes logging and metrics. The
// persistent --verbose and --quiet flags override the configured log level;
// --quiet additionally suppresses the terminal summaries.
func setup(cmd *cobra.Command, configPath string) (*runtime, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	level := observability.ParseLogLevel(cfg.Logging.Level)

	var out io.Writer = os.Stdout

	if verbose, _ := cmd.Root().PersistentFlags().GetBool("verbose"); verbose {
		level = slog.LevelDebug
	}

	if quiet, _ := cmd.Root().PersistentFlags().GetBool("quiet"); quiet {
		level = slog.LevelError
		out = io.Discard
	}

	providers, err := observability.Init(observability.Config{
		ServiceName:        "cp-ppsd",
		ServiceVersion:     version.Version,
		LogLevel:           level,
		LogJSON:            cfg.Logging.Format == "json",
		LogDir:             cfg.Logging.Dir,
		OTLPEndpoint:       cfg.Metrics.Endpoint,
		OTLPInsecure:       true,
		ShutdownTimeoutSec: observability.DefaultConfig().ShutdownTimeoutSec,
	})
	if err != nil {
		return nil, fmt.Errorf("initialize observability: %w", err)
	}

	metrics, err := observability.NewPipelineMetrics(providers.Meter)
	if err != nil {
		return nil, fmt.Errorf("create pipeline metrics: %w", err)
	}

	return &runtime{
		cfg:        cfg,
		configPath: configPath,
		out:        out,
		logger:     providers.Logger,
		metrics:    metrics,
		shutdown:   providers.Shutdown,
	}, nil
}

// close flushes the observability providers.
func (rt *runtime) close(ctx context.Context) {
	err := rt.shutdown(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "observability shutdown: %v\n", err)
	}
}

// runCompute executes the compute stage and reports it.
func (rt *runtime) runCompute(ctx context.Context) error {
	runner, err := batch.NewComputeRunner(rt.cfg.Compute, rt.logger, rt.metrics)
	if err != nil {
		return err
	}

	result, err := runner.Run(ctx)
	if err != nil {
		return err
	}

	batch.WriteComputeSummary(rt.out, result)

	manifest := batch.NewManifest(version.Version, "compute", rt.configPath)
	manifest.AttachCompute(result)

	_, err = manifest.Write(rt.cfg.Compute.OutputDir)
	if err != nil {
		rt.logger.Warn("manifest not written", "error", err)
	}

	return nil
}

// runPlot executes the plot stage and reports it.
func (rt *runtime) runPlot(ctx context.Context) error {
	runner, err := batch.NewPlotRunner(rt.cfg.Plot, rt.logger, rt.metrics)
	if err != nil {
		return err
	}

	result, err := runner.Run(ctx)
	if err != nil {
		return err
	}

	batch.WritePlotSummary(rt.out, result)

	manifest := batch.NewManifest(version.Version, "plot", rt.configPath)
	manifest.AttachPlot(result)

	_, err = manifest.Write(rt.cfg.Plot.OutputDir)
	if err != nil {
		rt.logger.Warn("manifest not written", "error", err)
	}

	return nil
}
