// Package render turns accumulated spectral snapshots into self-contained
// HTML plot pages: the standard probability histogram, the temporal evolution
// of selected periods, and a window-by-window spectrogram.
package render

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/seiscode/cp-ppsd/pkg/spectral"
)

// Plot kinds.
const (
	KindStandard    = "standard"
	KindTemporal    = "temporal"
	KindSpectrogram = "spectrogram"
)

// ErrUnknownKind indicates an unrecognized plot kind.
var ErrUnknownKind = errors.New("unknown plot kind")

// Options controls how snapshots are drawn.
type Options struct {
	// PeriodLim restricts the plotted period range in seconds.
	PeriodLim [2]float64

	// ShowPercentiles draws the Percentiles as lines over the histogram.
	ShowPercentiles bool
	Percentiles     []float64

	// ShowNoiseModels draws the Peterson reference curves.
	ShowNoiseModels bool

	ShowMode bool
	ShowMean bool

	// Cmap names the heatmap colormap.
	Cmap string

	// XAxisFrequency inverts the period axis into frequency.
	XAxisFrequency bool

	// Cumulative plots the cumulative histogram instead of the density.
	Cumulative bool

	// TemporalPeriods selects the periods drawn by the temporal plot.
	TemporalPeriods []float64

	Theme Theme
}

// DefaultOptions returns the rendering defaults.
func DefaultOptions() Options {
	return Options{
		PeriodLim:       [2]float64{0.01, 1000},
		Percentiles:     []float64{0, 25, 50, 75, 100},
		ShowNoiseModels: true,
		Cmap:            "viridis",
		TemporalPeriods: []float64{0.1, 1, 10},
		Theme:           ThemeDark,
	}
}

// Renderer writes plot pages for snapshots into an output directory.
type Renderer struct {
	dir     string
	options Options
	logger  *slog.Logger
}

// NewRenderer creates a renderer writing into dir.
func NewRenderer(dir string, options Options, logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}

	if options.PeriodLim == [2]float64{} {
		options.PeriodLim = DefaultOptions().PeriodLim
	}

	return &Renderer{dir: dir, options: options, logger: logger}
}

// Render draws one plot kind for a snapshot and returns the written path.
// The output filename is derived from the channel identity.
func (r *Renderer) Render(kind string, snap *spectral.Snapshot) (string, error) {
	return r.RenderAs(kind, snap, snap.ID.String())
}

// RenderAs draws one plot kind for a snapshot under an explicit filename
// stem. Callers drawing several same-channel snapshots use this to keep the
// outputs distinct.
func (r *Renderer) RenderAs(kind string, snap *spectral.Snapshot, stem string) (string, error) {
	page, err := r.buildPage(kind, snap)
	if err != nil {
		return "", err
	}

	mkdirErr := os.MkdirAll(r.dir, 0o755)
	if mkdirErr != nil {
		return "", fmt.Errorf("create plot dir: %w", mkdirErr)
	}

	path := filepath.Join(r.dir, fmt.Sprintf("%s_%s.html", stem, kind))

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create plot file: %w", err)
	}
	defer file.Close()

	err = page.Render(file)
	if err != nil {
		return "", fmt.Errorf("render %s plot: %w", kind, err)
	}

	r.logger.Info("plot written", "path", path, "kind", kind, "channel", snap.ID.String())

	return path, nil
}

func (r *Renderer) buildPage(kind string, snap *spectral.Snapshot) (*Page, error) {
	co := NewChartOpts(r.options.Theme)
	subtitle := fmt.Sprintf("%d processed windows, %s to %s",
		snap.WindowCount(),
		snap.DataStart.Format(timeLayout),
		snap.DataEnd.Format(timeLayout))

	page := NewPage(snap.ID.String(), "Probabilistic power spectral density").WithTheme(r.options.Theme)

	switch kind {
	case KindStandard:
		page.Add(Section{
			Title:    "Probability histogram",
			Subtitle: subtitle,
			Chart:    buildStandardChart(snap, r.options, co),
		})
	case KindTemporal:
		chart, err := buildTemporalChart(snap, r.options, co)
		if err != nil {
			return nil, err
		}

		page.Add(Section{
			Title:    "Temporal evolution",
			Subtitle: subtitle,
			Chart:    chart,
		})
	case KindSpectrogram:
		chart, err := buildSpectrogramChart(snap, r.options, co)
		if err != nil {
			return nil, err
		}

		page.Add(Section{
			Title:    "Spectrogram",
			Subtitle: subtitle,
			Chart:    chart,
		})
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	return page, nil
}
