package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/seiscode/cp-ppsd/pkg/config"
	"github.com/seiscode/cp-ppsd/pkg/observability"
	"github.com/seiscode/cp-ppsd/pkg/render"
	"github.com/seiscode/cp-ppsd/pkg/snapshot"
	"github.com/seiscode/cp-ppsd/pkg/spectral"
)

// ErrNoArtifacts indicates that the artifact directory held nothing to plot.
var ErrNoArtifacts = errors.New("no artifacts found")

// PlotResult aggregates the outcome of one plot run.
type PlotResult struct {
	Artifacts  int
	Groups     int
	Successful int
	Failed     int
	Images     []string
	Elapsed    time.Duration
}

// PlotRunner drives the artifact-to-plot pipeline: discover artifacts, group
// them by channel identity, merge or iterate per the strategy, render every
// configured plot kind.
type PlotRunner struct {
	cfg      config.PlotConfig
	codec    snapshot.Codec
	engine   *snapshot.MergeEngine
	renderer *render.Renderer
	kinds    []string
	logger   *slog.Logger
	metrics  *observability.PipelineMetrics
}

// NewPlotRunner resolves the configuration into a ready runner.
func NewPlotRunner(
	cfg config.PlotConfig,
	logger *slog.Logger,
	metrics *observability.PipelineMetrics,
) (*PlotRunner, error) {
	if logger == nil {
		logger = slog.Default()
	}

	options, err := renderOptions(cfg.Args)
	if err != nil {
		return nil, err
	}

	codec := snapshot.NewLZ4Codec()

	return &PlotRunner{
		cfg:      cfg,
		codec:    codec,
		engine:   snapshot.NewMergeEngine(codec, logger),
		renderer: render.NewRenderer(cfg.OutputDir, options, logger),
		kinds:    cfg.Args.PlotTypes,
		logger:   logger,
		metrics:  metrics,
	}, nil
}

// renderOptions maps the plot arguments onto renderer options.
func renderOptions(args config.PlotArgs) (render.Options, error) {
	options := render.DefaultOptions()

	if len(args.PeriodLim) == 2 {
		options.PeriodLim = [2]float64{args.PeriodLim[0], args.PeriodLim[1]}
	} else if len(args.PeriodLim) != 0 {
		return options, fmt.Errorf("period_lim wants [min, max], got %d values", len(args.PeriodLim))
	}

	options.ShowPercentiles = args.ShowPercentiles
	options.ShowNoiseModels = args.ShowNoiseModels
	options.ShowMode = args.ShowMode
	options.ShowMean = args.ShowMean
	options.XAxisFrequency = args.XAxisFrequency
	options.Cumulative = args.Cumulative

	if len(args.Percentiles) > 0 {
		options.Percentiles = args.Percentiles
	}

	if args.Cmap != "" {
		options.Cmap = args.Cmap
	}

	if len(args.TemporalPeriods) > 0 {
		options.TemporalPeriods = args.TemporalPeriods
	}

	return options, nil
}

// Run executes the plot pipeline. It returns an error only for structural
// failures: an empty artifact directory. Render and merge failures are
// isolated per group and per plot kind.
func (r *PlotRunner) Run(ctx context.Context) (*PlotResult, error) {
	started := time.Now()

	artifacts, err := discoverArtifacts(r.cfg.InputDir)
	if err != nil {
		return nil, err
	}

	groups := snapshot.GroupByIdentity(artifacts, r.codec)

	result := &PlotResult{Artifacts: len(artifacts), Groups: len(groups)}

	r.logger.Info("plot batch started",
		"artifacts", len(artifacts), "groups", len(groups), "merged", r.cfg.MergeStrategy)

	for _, group := range groups {
		groupErr := r.processGroup(ctx, group, result)
		if groupErr != nil {
			r.logger.Error("group failed",
				"identity", group.Identity, "error", groupErr)

			result.Failed++
			r.metrics.RecordGroup(ctx, observability.StatusFailed)

			continue
		}

		result.Successful++
		r.metrics.RecordGroup(ctx, observability.StatusOK)
	}

	result.Elapsed = time.Since(started)

	r.logger.Info("plot batch finished",
		"successful", result.Successful, "failed", result.Failed,
		"images", len(result.Images))

	return result, nil
}

// discoverArtifacts lists the persisted artifacts under dir in sorted order.
func discoverArtifacts(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*"+snapshot.Extension))
	if err != nil {
		return nil, fmt.Errorf("scan artifact dir: %w", err)
	}

	if len(matches) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoArtifacts, dir)
	}

	sort.Strings(matches)

	return matches, nil
}

// processGroup renders one identity group. Under the merged strategy the
// whole group folds into one snapshot first; otherwise every artifact is
// drawn on its own.
func (r *PlotRunner) processGroup(ctx context.Context, group snapshot.SeedGroup, result *PlotResult) error {
	if r.cfg.MergeStrategy {
		merged, err := r.engine.Merge(group.Paths)
		if err != nil {
			return err
		}

		r.renderSnapshot(ctx, merged.Snapshot(), merged.ID().String(), result)

		return nil
	}

	for _, path := range group.Paths {
		snap, err := snapshot.Load(path, r.codec)
		if err != nil {
			r.logger.Error("skipping unreadable artifact", "path", path, "error", err)

			continue
		}

		stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

		r.renderSnapshot(ctx, snap, stem, result)
	}

	return nil
}

// renderSnapshot draws every configured plot kind for one snapshot. A failed
// kind is logged and skipped.
func (r *PlotRunner) renderSnapshot(ctx context.Context, snap *spectral.Snapshot, stem string, result *PlotResult) {
	for _, kind := range r.kinds {
		path, err := r.renderer.RenderAs(kind, snap, stem)
		if err != nil {
			r.logger.Error("plot failed",
				"identity", snap.ID.String(), "kind", kind, "error", err)

			continue
		}

		result.Images = append(result.Images, path)
		r.metrics.RecordImage(ctx, kind)
	}
}
