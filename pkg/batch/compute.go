// Package batch contains the sequential orchestrators that drive a full run:
// compute turns waveform files into persisted artifacts, plot turns artifact
// groups into HTML pages. Per-item failures are caught, counted and logged;
// only structural failures propagate.
package batch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/seiscode/cp-ppsd/pkg/config"
	"github.com/seiscode/cp-ppsd/pkg/inventory"
	"github.com/seiscode/cp-ppsd/pkg/miniseed"
	"github.com/seiscode/cp-ppsd/pkg/observability"
	"github.com/seiscode/cp-ppsd/pkg/seismic"
	"github.com/seiscode/cp-ppsd/pkg/snapshot"
	"github.com/seiscode/cp-ppsd/pkg/spectral"
)

// AccumulatorFactory constructs the per-channel accumulator. Injected so
// tests can substitute a fake.
type AccumulatorFactory func(id seismic.ChannelID, params spectral.Params) (spectral.Accumulator, error)

// ComputeResult aggregates the outcome of one compute run. A unit is one
// (file, channel) pair; an unreadable file counts as one failed unit.
type ComputeResult struct {
	Files        int
	Successful   int
	Failed       int
	Windows      int
	Artifacts    []string
	BytesWritten int64
	Elapsed      time.Duration
}

// ComputeRunner drives the waveform-to-artifact pipeline: discover files,
// group traces by channel, apply the gap policy, accumulate, persist. Files
// are processed strictly one at a time.
type ComputeRunner struct {
	cfg       config.ComputeConfig
	params    spectral.Params
	policy    *seismic.GapMergePolicy
	writer    *snapshot.Writer
	inventory inventory.Provider
	factory   AccumulatorFactory
	logger    *slog.Logger
	metrics   *observability.PipelineMetrics
}

// NewComputeRunner resolves the configuration into a ready runner. An
// unreadable station-metadata catalog is a structural failure.
func NewComputeRunner(
	cfg config.ComputeConfig,
	logger *slog.Logger,
	metrics *observability.PipelineMetrics,
) (*ComputeRunner, error) {
	if logger == nil {
		logger = slog.Default()
	}

	fill, err := cfg.Args.FillPolicy()
	if err != nil {
		return nil, err
	}

	method, err := cfg.Args.Method()
	if err != nil {
		return nil, err
	}

	params := cfg.Args.SpectralParams(logger)

	var provider inventory.Provider

	if cfg.InventoryPath != "" {
		inv, readErr := inventory.ReadStationXML(cfg.InventoryPath)
		if readErr != nil {
			return nil, fmt.Errorf("read station metadata: %w", readErr)
		}

		provider = inv
	}

	return &ComputeRunner{
		cfg:       cfg,
		params:    params,
		policy:    seismic.NewGapMergePolicy(params.SkipOnGaps, fill, method, logger),
		writer:    snapshot.NewWriter(cfg.OutputDir, cfg.OutputFilenamePattern, nil, logger),
		inventory: provider,
		factory: func(id seismic.ChannelID, p spectral.Params) (spectral.Accumulator, error) {
			return spectral.New(id, p, nil)
		},
		logger:  logger,
		metrics: metrics,
	}, nil
}

// WithFactory replaces the accumulator factory.
func (r *ComputeRunner) WithFactory(factory AccumulatorFactory) *ComputeRunner {
	r.factory = factory

	return r
}

// Run executes the compute pipeline. It returns an error only for structural
// failures: zero matching input files (discovery) or an invalid output
// directory surfaced by the first write.
func (r *ComputeRunner) Run(ctx context.Context) (*ComputeResult, error) {
	started := time.Now()

	files, err := miniseed.Discover(r.cfg.MSEEDPattern)
	if err != nil {
		return nil, fmt.Errorf("discover waveform files: %w", err)
	}

	mkdirErr := os.MkdirAll(r.cfg.OutputDir, 0o755)
	if mkdirErr != nil {
		return nil, fmt.Errorf("create output dir: %w", mkdirErr)
	}

	result := &ComputeResult{Files: len(files)}

	r.logger.Info("compute batch started",
		"files", len(files), "pattern", r.cfg.MSEEDPattern, "output", r.cfg.OutputDir)

	for _, file := range files {
		r.processFile(ctx, file, result)
	}

	result.Elapsed = time.Since(started)

	r.logger.Info("compute batch finished",
		"successful", result.Successful, "failed", result.Failed,
		"artifacts", len(result.Artifacts), "windows", result.Windows)

	return result, nil
}

// processFile handles one waveform file: every channel inside becomes one
// compute unit with its own accumulator and artifact.
func (r *ComputeRunner) processFile(ctx context.Context, path string, result *ComputeResult) {
	started := time.Now()

	traces, err := miniseed.ReadFile(path)
	if err != nil {
		r.logger.Error("unreadable waveform file", "file", path, "error", err)

		result.Failed++
		r.metrics.RecordFile(ctx, observability.StatusFailed, time.Since(started), 0)

		return
	}

	fileWindows := 0
	fileStatus := observability.StatusOK
	groups := seismic.GroupByChannel(traces)

	for _, group := range groups {
		source := path

		// Default artifact names derive from the source stem; a file
		// carrying several channels needs the channel mixed in to keep
		// the artifacts apart.
		if len(groups) > 1 {
			ext := filepath.Ext(path)
			source = strings.TrimSuffix(path, ext) + "_" + group.ID.Channel + ext
		}

		windows, unitErr := r.processChannel(ctx, group, source, result)
		if unitErr != nil {
			r.logger.Error("channel failed",
				"channel", group.ID.String(), "file", path, "error", unitErr)

			result.Failed++

			fileStatus = observability.StatusFailed

			continue
		}

		result.Successful++

		fileWindows += windows
	}

	result.Windows += fileWindows

	r.metrics.RecordFile(ctx, fileStatus, time.Since(started), fileWindows)
}

// processChannel accumulates one channel group of one file and persists the
// result. A zero-window accumulator is skipped, not an error.
func (r *ComputeRunner) processChannel(
	ctx context.Context,
	group seismic.ChannelGroup,
	sourceFile string,
	result *ComputeResult,
) (int, error) {
	resolved := r.policy.Resolve(group)
	if len(resolved) == 0 {
		return 0, nil
	}

	params, err := r.channelParams(group.ID, resolved[0].StartTime)
	if err != nil {
		return 0, err
	}

	acc, err := r.factory(group.ID, params)
	if err != nil {
		return 0, err
	}

	for _, tr := range resolved {
		addErr := acc.Add(tr)
		if addErr != nil {
			r.logger.Error("trace rejected by accumulator",
				"channel", group.ID.String(), "file", sourceFile, "error", addErr)
		}
	}

	path, written, err := r.writer.Write(acc, sourceFile)
	if err != nil {
		return acc.WindowCount(), fmt.Errorf("persist artifact: %w", err)
	}

	if written {
		result.Artifacts = append(result.Artifacts, path)

		if info, statErr := os.Stat(path); statErr == nil {
			result.BytesWritten += info.Size()
		}

		r.metrics.RecordArtifact(ctx)
	}

	return acc.WindowCount(), nil
}

// channelParams resolves the per-channel sensitivity from the metadata
// catalog. Without a catalog the raw counts pass through uncorrected, which
// ringlaser-class handling refuses.
func (r *ComputeRunner) channelParams(id seismic.ChannelID, at time.Time) (spectral.Params, error) {
	params := r.params

	if r.inventory == nil {
		if params.Handling == spectral.HandlingRinglaser {
			return params, fmt.Errorf("%w: no station metadata configured", spectral.ErrMissingSensitivity)
		}

		return params, nil
	}

	sens, err := r.inventory.Sensitivity(id, at)
	if err != nil {
		if params.Handling == spectral.HandlingRinglaser {
			return params, fmt.Errorf("resolve sensitivity for %s: %w", id, err)
		}

		r.logger.Warn("no sensitivity in metadata, using raw counts",
			"channel", id.String(), "error", err)

		return params, nil
	}

	params.Sensitivity = sens

	return params, nil
}
