package render

import (
	"log/slog"
	"math"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seiscode/cp-ppsd/pkg/seismic"
	"github.com/seiscode/cp-ppsd/pkg/spectral"
)

var renderID = seismic.ChannelID{Network: "BJ", Station: "DAX", Location: "00", Channel: "BHZ"}

func renderSnapshot(windows int) *spectral.Snapshot {
	params := spectral.Params{
		WindowLength:          time.Second,
		Overlap:               0.5,
		SmoothingWidthOctaves: 1.0,
		PeriodStepOctaves:     1.0,
		PeriodLimits:          [2]float64{0.1, 10},
		DBBins:                spectral.BinSpec{Min: -200, Max: -50, Step: 1},
	}

	centers := []float64{0.1, 0.5, 1, 5, 10}

	hist := make([][]int64, len(centers))
	for i := range hist {
		hist[i] = make([]int64, params.DBBins.Count())
	}

	times := make([]time.Time, windows)
	binned := make([][]float64, windows)

	for w := range times {
		times[w] = time.Date(2025, 3, 1, w, 0, 0, 0, time.UTC)
		row := make([]float64, len(centers))

		for i := range centers {
			db := -140.0 + float64(i) + float64(w%3)
			row[i] = db
			hist[i][int(db-params.DBBins.Min)]++
		}

		binned[w] = row
	}

	snap := &spectral.Snapshot{
		ID:            renderID,
		Params:        params,
		PeriodCenters: centers,
		Hist:          hist,
		Times:         times,
		Binned:        binned,
	}

	if windows > 0 {
		snap.DataStart = times[0]
		snap.DataEnd = times[windows-1].Add(time.Hour)
	}

	return snap
}

func testRenderer(t *testing.T, options Options) *Renderer {
	t.Helper()

	return NewRenderer(t.TempDir(), options, slog.New(slog.DiscardHandler))
}

func TestRenderer_Standard(t *testing.T) {
	t.Parallel()

	options := DefaultOptions()
	options.ShowMode = true
	options.ShowMean = true
	options.ShowPercentiles = true

	renderer := testRenderer(t, options)

	path, err := renderer.Render(KindStandard, renderSnapshot(6))

	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, "BJ.DAX.00.BHZ_standard.html"))

	html := readFile(t, path)

	assert.Contains(t, html, "Probability histogram")
	assert.Contains(t, html, "heatmap")
	assert.Contains(t, html, "NLNM")
	assert.Contains(t, html, "NHNM")
	assert.Contains(t, html, "Mode")
	assert.Contains(t, html, "Mean")
	assert.Contains(t, html, "P75")
}

func TestRenderer_Temporal(t *testing.T) {
	t.Parallel()

	renderer := testRenderer(t, DefaultOptions())

	path, err := renderer.Render(KindTemporal, renderSnapshot(6))

	require.NoError(t, err)

	html := readFile(t, path)

	assert.Contains(t, html, "Temporal evolution")
	assert.Contains(t, html, "2025-03-01")
}

func TestRenderer_Spectrogram(t *testing.T) {
	t.Parallel()

	renderer := testRenderer(t, DefaultOptions())

	path, err := renderer.Render(KindSpectrogram, renderSnapshot(4))

	require.NoError(t, err)

	html := readFile(t, path)

	assert.Contains(t, html, "Spectrogram")
	assert.Contains(t, html, "heatmap")
}

func TestRenderer_TemporalWithoutWindowData(t *testing.T) {
	t.Parallel()

	snap := renderSnapshot(5)
	snap.Binned = nil

	renderer := testRenderer(t, DefaultOptions())

	_, err := renderer.Render(KindTemporal, snap)

	require.ErrorIs(t, err, ErrNoWindowData)

	_, err = renderer.Render(KindSpectrogram, snap)

	require.ErrorIs(t, err, ErrNoWindowData)
}

func TestRenderer_UnknownKind(t *testing.T) {
	t.Parallel()

	renderer := testRenderer(t, DefaultOptions())

	_, err := renderer.Render("waterfall", renderSnapshot(2))

	require.ErrorIs(t, err, ErrUnknownKind)
}

func TestPeriodIndices_RespectsLimits(t *testing.T) {
	t.Parallel()

	snap := renderSnapshot(1)

	idx := periodIndices(snap, [2]float64{0.4, 6})

	assert.Equal(t, []int{1, 2, 3}, idx)
}

func TestAxisLabel_FrequencyInversion(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "10", axisLabel(0.1, true))
	assert.Equal(t, "0.1", axisLabel(0.1, false))
}

func TestNoiseModels_KnownValues(t *testing.T) {
	t.Parallel()

	low := NLNM([]float64{1})
	high := NHNM([]float64{1})

	assert.InDelta(t, -166.40, low[0], 0.01)
	assert.InDelta(t, -116.85, high[0], 0.01)

	// Outside the model range.
	assert.True(t, math.IsNaN(NLNM([]float64{0.01})[0]))
	assert.True(t, math.IsNaN(NHNM([]float64{2e5})[0]))
}

func readFile(t *testing.T, path string) string {
	t.Helper()

	data, err := os.ReadFile(path)

	require.NoError(t, err)

	return string(data)
}
