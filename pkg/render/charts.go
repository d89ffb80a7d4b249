package render

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/seiscode/cp-ppsd/pkg/spectral"
)

// ErrNoWindowData indicates a snapshot persisted without per-window
// estimates; temporal and spectrogram rendering need them.
var ErrNoWindowData = errors.New("snapshot carries no per-window estimates")

const (
	chartWidth  = "100%"
	chartHeight = "560px"

	timeLayout = "2006-01-02 15:04"
)

// periodIndices returns the indices of period centers inside the plot limits.
func periodIndices(snap *spectral.Snapshot, lim [2]float64) []int {
	var idx []int

	for i, p := range snap.PeriodCenters {
		if p >= lim[0] && p <= lim[1] {
			idx = append(idx, i)
		}
	}

	return idx
}

// axisLabel formats one period for the x axis, inverted when the axis shows
// frequency.
func axisLabel(period float64, asFrequency bool) string {
	v := period
	if asFrequency {
		v = 1 / period
	}

	return fmt.Sprintf("%.3g", v)
}

func periodAxisName(asFrequency bool) string {
	if asFrequency {
		return "Frequency (Hz)"
	}

	return "Period (s)"
}

// buildStandardChart renders the probability histogram as a period/dB
// heatmap with optional statistics overlays.
func buildStandardChart(snap *spectral.Snapshot, options Options, co *ChartOpts) *charts.HeatMap {
	indices := periodIndices(snap, options.PeriodLim)

	xLabels := make([]string, len(indices))
	for k, i := range indices {
		xLabels[k] = axisLabel(snap.PeriodCenters[i], options.XAxisFrequency)
	}

	dbCenters := snap.DBBinCenters()

	yLabels := make([]string, len(dbCenters))
	for j, db := range dbCenters {
		yLabels[j] = fmt.Sprintf("%.1f", db)
	}

	prob := snap.Probability()

	var (
		data   []opts.HeatMapData
		maxVal float64
	)

	for k, i := range indices {
		running := 0.0

		for j, p := range prob[i] {
			value := p
			if options.Cumulative {
				running += p
				value = running
			}

			if value <= 0 {
				continue
			}

			if value > maxVal {
				maxVal = value
			}

			data = append(data, opts.HeatMapData{Value: []any{k, j, value}})
		}
	}

	if maxVal == 0 {
		maxVal = 1
	}

	hm := charts.NewHeatMap()
	hm.SetGlobalOptions(
		charts.WithInitializationOpts(co.Init(chartWidth, chartHeight)),
		charts.WithTooltipOpts(co.Tooltip("item")),
		charts.WithXAxisOpts(co.CategoryXAxis(periodAxisName(options.XAxisFrequency), xLabels)),
		charts.WithYAxisOpts(co.CategoryYAxis("Amplitude (dB)", yLabels)),
		charts.WithVisualMapOpts(co.VisualMap(0, maxVal, options.Cmap)),
		charts.WithGridOpts(co.Grid()),
		charts.WithLegendOpts(co.Legend()),
	)
	hm.AddSeries("Probability", data)

	overlay := buildStandardOverlays(snap, options, indices, xLabels, co)
	if overlay != nil {
		hm.Overlap(overlay)
	}

	return hm
}

// buildStandardOverlays draws statistics and reference curves as lines in
// dB-bin coordinates on top of the heatmap. Returns nil when nothing is
// enabled.
func buildStandardOverlays(
	snap *spectral.Snapshot,
	options Options,
	indices []int,
	xLabels []string,
	co *ChartOpts,
) *charts.Line {
	type overlaySeries struct {
		name   string
		values []float64
		color  string
	}

	var series []overlaySeries

	if options.ShowMode {
		series = append(series, overlaySeries{"Mode", snap.Mode(), colorMode})
	}

	if options.ShowMean {
		series = append(series, overlaySeries{"Mean", snap.Mean(), colorMean})
	}

	if options.ShowPercentiles {
		for _, p := range options.Percentiles {
			name := fmt.Sprintf("P%g", p)
			series = append(series, overlaySeries{name, snap.Percentile(p), colorPercentile})
		}
	}

	if options.ShowNoiseModels {
		series = append(series, overlaySeries{"NLNM", NLNM(snap.PeriodCenters), colorNoiseModel})
		series = append(series, overlaySeries{"NHNM", NHNM(snap.PeriodCenters), colorNoiseModel})
	}

	if len(series) == 0 {
		return nil
	}

	bins := snap.Params.DBBins

	line := charts.NewLine()
	line.SetXAxis(xLabels)

	for _, s := range series {
		points := make([]opts.LineData, len(indices))

		for k, i := range indices {
			db := s.values[i]
			if math.IsNaN(db) {
				points[k] = opts.LineData{Value: "-"}

				continue
			}

			// Category y axis: convert dB to fractional bin index.
			points[k] = opts.LineData{Value: (db - bins.Min) / bins.Step}
		}

		line.AddSeries(s.name, points,
			charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true), Symbol: "none"}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: s.color}),
			charts.WithLineStyleOpts(opts.LineStyle{Width: 2}),
		)
	}

	return line
}

// buildTemporalChart renders the per-window dB estimates of selected periods
// over time.
func buildTemporalChart(snap *spectral.Snapshot, options Options, co *ChartOpts) (*charts.Line, error) {
	if len(snap.Binned) != snap.WindowCount() || snap.WindowCount() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoWindowData, snap.ID)
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(co.Init(chartWidth, chartHeight)),
		charts.WithTooltipOpts(co.Tooltip("axis")),
		charts.WithXAxisOpts(opts.XAxis{
			Type:      "time",
			Name:      "Time",
			AxisLabel: &opts.AxisLabel{Color: co.TextMutedColor()},
		}),
		charts.WithYAxisOpts(co.ValueYAxis("Amplitude (dB)")),
		charts.WithDataZoomOpts(co.DataZoom()...),
		charts.WithGridOpts(co.Grid()),
		charts.WithLegendOpts(co.Legend()),
	)

	plotted := 0

	for _, period := range options.TemporalPeriods {
		idx := snap.ClosestPeriodIndex(period)

		times, values := snap.TimeSeries(idx)
		if len(times) == 0 {
			continue
		}

		points := make([]opts.LineData, len(times))
		for i := range times {
			points[i] = opts.LineData{Value: []any{times[i].Format(time.RFC3339), values[i]}}
		}

		name := fmt.Sprintf("%.3gs", snap.PeriodCenters[idx])
		line.AddSeries(name, points,
			charts.WithLineChartOpts(opts.LineChart{Symbol: "none"}),
			charts.WithLineStyleOpts(opts.LineStyle{Width: 2}),
		)

		plotted++
	}

	if plotted == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoWindowData, snap.ID)
	}

	return line, nil
}

// buildSpectrogramChart renders every processed window as a time/period
// heatmap of dB estimates.
func buildSpectrogramChart(snap *spectral.Snapshot, options Options, co *ChartOpts) (*charts.HeatMap, error) {
	if len(snap.Binned) != snap.WindowCount() || snap.WindowCount() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoWindowData, snap.ID)
	}

	indices := periodIndices(snap, options.PeriodLim)

	yLabels := make([]string, len(indices))
	for k, i := range indices {
		yLabels[k] = axisLabel(snap.PeriodCenters[i], false)
	}

	order := chronologicalOrder(snap.Times)

	xLabels := make([]string, len(order))
	for k, w := range order {
		xLabels[k] = snap.Times[w].Format(timeLayout)
	}

	var (
		data       []opts.HeatMapData
		minDB      = math.Inf(1)
		maxDB      = math.Inf(-1)
		haveValues bool
	)

	for k, w := range order {
		row := snap.Binned[w]

		for y, i := range indices {
			if i >= len(row) || math.IsNaN(row[i]) {
				continue
			}

			db := row[i]
			if db < minDB {
				minDB = db
			}

			if db > maxDB {
				maxDB = db
			}

			haveValues = true

			data = append(data, opts.HeatMapData{Value: []any{k, y, db}})
		}
	}

	if !haveValues {
		return nil, fmt.Errorf("%w: %s", ErrNoWindowData, snap.ID)
	}

	hm := charts.NewHeatMap()
	hm.SetGlobalOptions(
		charts.WithInitializationOpts(co.Init(chartWidth, chartHeight)),
		charts.WithTooltipOpts(co.Tooltip("item")),
		charts.WithXAxisOpts(co.CategoryXAxis("Time", xLabels)),
		charts.WithYAxisOpts(co.CategoryYAxis("Period (s)", yLabels)),
		charts.WithVisualMapOpts(co.VisualMap(minDB, maxDB, options.Cmap)),
		charts.WithDataZoomOpts(co.DataZoom()...),
		charts.WithGridOpts(co.Grid()),
	)
	hm.AddSeries("Amplitude", data)

	return hm, nil
}

func chronologicalOrder(times []time.Time) []int {
	order := make([]int, len(times))
	for i := range order {
		order[i] = i
	}

	sort.Slice(order, func(i, j int) bool {
		return times[order[i]].Before(times[order[j]])
	})

	return order
}
