package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricFilesTotal     = "cp_ppsd.compute.files.total"
	metricFileDuration   = "cp_ppsd.compute.file.duration.seconds"
	metricWindowsTotal   = "cp_ppsd.compute.windows.total"
	metricArtifactsTotal = "cp_ppsd.compute.artifacts.total"
	metricGroupsTotal    = "cp_ppsd.plot.groups.total"
	metricImagesTotal    = "cp_ppsd.plot.images.total"

	attrStatus = "status"
	attrKind   = "kind"

	// StatusOK and StatusFailed label per-file and per-group outcomes.
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// durationBucketBoundaries covers 10ms to 600s: small day files decode in
// milliseconds while dense broadband files take minutes to accumulate.
var durationBucketBoundaries = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600}

// PipelineMetrics holds the OTel instruments for the compute and plot
// pipelines. All record methods are safe to call on a nil receiver.
type PipelineMetrics struct {
	filesTotal     metric.Int64Counter
	fileDuration   metric.Float64Histogram
	windowsTotal   metric.Int64Counter
	artifactsTotal metric.Int64Counter
	groupsTotal    metric.Int64Counter
	imagesTotal    metric.Int64Counter
}

// NewPipelineMetrics creates pipeline metric instruments from the given meter.
func NewPipelineMetrics(mt metric.Meter) (*PipelineMetrics, error) {
	files, err := mt.Int64Counter(metricFilesTotal,
		metric.WithDescription("Waveform files processed by outcome"),
		metric.WithUnit("{file}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricFilesTotal, err)
	}

	fileDur, err := mt.Float64Histogram(metricFileDuration,
		metric.WithDescription("Per-file processing duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricFileDuration, err)
	}

	windows, err := mt.Int64Counter(metricWindowsTotal,
		metric.WithDescription("Spectral windows accumulated"),
		metric.WithUnit("{window}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricWindowsTotal, err)
	}

	artifacts, err := mt.Int64Counter(metricArtifactsTotal,
		metric.WithDescription("Artifact files written"),
		metric.WithUnit("{artifact}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricArtifactsTotal, err)
	}

	groups, err := mt.Int64Counter(metricGroupsTotal,
		metric.WithDescription("Artifact groups plotted by outcome"),
		metric.WithUnit("{group}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricGroupsTotal, err)
	}

	images, err := mt.Int64Counter(metricImagesTotal,
		metric.WithDescription("Plot images rendered by kind"),
		metric.WithUnit("{image}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricImagesTotal, err)
	}

	return &PipelineMetrics{
		filesTotal:     files,
		fileDuration:   fileDur,
		windowsTotal:   windows,
		artifactsTotal: artifacts,
		groupsTotal:    groups,
		imagesTotal:    images,
	}, nil
}

// RecordFile records one processed waveform file with its outcome, duration
// and accumulated window count.
func (pm *PipelineMetrics) RecordFile(ctx context.Context, status string, duration time.Duration, windows int) {
	if pm == nil {
		return
	}

	pm.filesTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrStatus, status)))
	pm.fileDuration.Record(ctx, duration.Seconds())
	pm.windowsTotal.Add(ctx, int64(windows))
}

// RecordArtifact records one written artifact file.
func (pm *PipelineMetrics) RecordArtifact(ctx context.Context) {
	if pm == nil {
		return
	}

	pm.artifactsTotal.Add(ctx, 1)
}

// RecordGroup records one plotted artifact group with its outcome.
func (pm *PipelineMetrics) RecordGroup(ctx context.Context, status string) {
	if pm == nil {
		return
	}

	pm.groupsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrStatus, status)))
}

// RecordImage records one rendered plot image of the given kind.
func (pm *PipelineMetrics) RecordImage(ctx context.Context, kind string) {
	if pm == nil {
		return
	}

	pm.imagesTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrKind, kind)))
}
