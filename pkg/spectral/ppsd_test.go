package spectral

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seiscode/cp-ppsd/pkg/seismic"
)

var (
	ppsdID    = seismic.ChannelID{Network: "BJ", Station: "DAX", Location: "00", Channel: "BHZ"}
	ppsdStart = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
)

// testParams uses short one-second windows so small traces produce data.
func testParams() Params {
	params := DefaultParams()
	params.WindowLength = time.Second
	params.Handling = HandlingHydrophone // no differentiation, amplitudes stay predictable

	return params
}

// sineTrace builds a trace carrying a pure tone whose PSD level lands inside
// the default dB bins.
func sineTrace(seconds float64, rate, freq, amplitude float64) *seismic.Trace {
	n := int(seconds * rate)
	samples := make([]float64, n)

	for i := range samples {
		samples[i] = amplitude * math.Sin(2*math.Pi*freq*float64(i)/rate)
	}

	return &seismic.Trace{ID: ppsdID, StartTime: ppsdStart, SampleRate: rate, Samples: samples}
}

func TestPPSD_AddAccumulatesWindows(t *testing.T) {
	t.Parallel()

	acc, err := New(ppsdID, testParams(), nil)

	require.NoError(t, err)
	assert.Equal(t, 0, acc.WindowCount())

	err = acc.Add(sineTrace(10, 100, 5, 1e-5))

	require.NoError(t, err)
	assert.Positive(t, acc.WindowCount())

	before := acc.WindowCount()

	err = acc.Add(sineTrace(10, 100, 5, 1e-5))

	require.NoError(t, err)

	// Monotonically non-decreasing.
	assert.GreaterOrEqual(t, acc.WindowCount(), before)
}

func TestPPSD_ShortTraceProcessesZeroWindowsWithoutError(t *testing.T) {
	t.Parallel()

	acc, err := New(ppsdID, testParams(), nil)

	require.NoError(t, err)

	// Half a window of data: the add succeeds but nothing is processed.
	err = acc.Add(sineTrace(0.5, 100, 5, 1e-5))

	require.NoError(t, err)
	assert.Equal(t, 0, acc.WindowCount())
}

func TestPPSD_MaskedWindowsAreSkipped(t *testing.T) {
	t.Parallel()

	acc, err := New(ppsdID, testParams(), nil)

	require.NoError(t, err)

	tr := sineTrace(2, 100, 5, 1e-5)
	tr.Mask = make([]bool, len(tr.Samples))

	for i := range tr.Mask {
		tr.Mask[i] = true
	}

	err = acc.Add(tr)

	require.NoError(t, err)
	assert.Equal(t, 0, acc.WindowCount())
}

func TestPPSD_ChannelMismatch(t *testing.T) {
	t.Parallel()

	acc, err := New(ppsdID, testParams(), nil)

	require.NoError(t, err)

	other := sineTrace(2, 100, 5, 1e-5)
	other.ID = seismic.ChannelID{Network: "IU", Station: "ANMO", Location: "00", Channel: "BHZ"}

	assert.ErrorIs(t, acc.Add(other), ErrTraceChannelMismatch)
}

func TestPPSD_SnapshotTracksDataBounds(t *testing.T) {
	t.Parallel()

	acc, err := New(ppsdID, testParams(), nil)

	require.NoError(t, err)

	tr := sineTrace(5, 100, 5, 1e-5)

	require.NoError(t, acc.Add(tr))

	snap := acc.Snapshot()

	assert.Equal(t, tr.StartTime, snap.DataStart)
	assert.Equal(t, tr.EndTime(), snap.DataEnd)
	assert.Equal(t, acc.WindowCount(), snap.WindowCount())
}

func TestPPSD_InvalidParams(t *testing.T) {
	t.Parallel()

	params := testParams()
	params.Overlap = 2

	_, err := New(ppsdID, params, nil)

	assert.ErrorIs(t, err, ErrInvalidOverlap)
}

func TestFromSnapshot_FoldAccumulates(t *testing.T) {
	t.Parallel()

	first, err := New(ppsdID, testParams(), nil)

	require.NoError(t, err)
	require.NoError(t, first.Add(sineTrace(10, 100, 5, 1e-5)))

	second, err := New(ppsdID, testParams(), nil)

	require.NoError(t, err)
	require.NoError(t, second.Add(sineTrace(6, 100, 5, 1e-5)))

	firstCount := first.WindowCount()
	secondCount := second.WindowCount()

	require.Positive(t, firstCount)
	require.Positive(t, secondCount)

	merged, err := FromSnapshot(first.Snapshot())

	require.NoError(t, err)
	require.NoError(t, merged.Fold(second.Snapshot()))

	assert.Equal(t, firstCount+secondCount, merged.WindowCount())
}

func TestSnapshot_FoldIdentityMismatch(t *testing.T) {
	t.Parallel()

	first, err := New(ppsdID, testParams(), nil)

	require.NoError(t, err)

	otherID := seismic.ChannelID{Network: "IU", Station: "ANMO", Location: "00", Channel: "BHZ"}

	second, err := New(otherID, testParams(), nil)

	require.NoError(t, err)

	assert.ErrorIs(t, first.Fold(second.Snapshot()), ErrIdentityMismatch)
}

func TestSnapshot_FoldIncompatibleBinning(t *testing.T) {
	t.Parallel()

	first, err := New(ppsdID, testParams(), nil)

	require.NoError(t, err)

	coarse := testParams()
	coarse.DBBins.Step = 1.0

	second, err := New(ppsdID, coarse, nil)

	require.NoError(t, err)

	assert.ErrorIs(t, first.Fold(second.Snapshot()), ErrIncompatibleBinning)
}

func TestSnapshot_Statistics(t *testing.T) {
	t.Parallel()

	snap := &Snapshot{
		ID:            ppsdID,
		Params:        Params{DBBins: BinSpec{Min: -10, Max: 0, Step: 1}},
		PeriodCenters: []float64{1},
		Hist:          [][]int64{{0, 3, 1, 0, 0, 0, 0, 0, 0, 0}},
	}

	prob := snap.Probability()

	require.Len(t, prob, 1)
	assert.InDelta(t, 0.75, prob[0][1], 1e-12)
	assert.InDelta(t, 0.25, prob[0][2], 1e-12)

	mode := snap.Mode()

	assert.InDelta(t, -8.5, mode[0], 1e-12) // bin 1 center

	mean := snap.Mean()

	assert.InDelta(t, (3*-8.5+1*-7.5)/4, mean[0], 1e-12)

	median := snap.Percentile(50)

	assert.InDelta(t, -8.5, median[0], 1e-12)
}

func TestSnapshot_StatisticsEmptyColumn(t *testing.T) {
	t.Parallel()

	snap := &Snapshot{
		Params:        Params{DBBins: BinSpec{Min: -10, Max: 0, Step: 1}},
		PeriodCenters: []float64{1},
		Hist:          [][]int64{make([]int64, 10)},
	}

	assert.True(t, math.IsNaN(snap.Mean()[0]))
	assert.True(t, math.IsNaN(snap.Mode()[0]))
	assert.True(t, math.IsNaN(snap.Percentile(50)[0]))
}

func TestPeriodCenters_SpanLimits(t *testing.T) {
	t.Parallel()

	params := DefaultParams()
	centers := periodCenters(params)

	require.NotEmpty(t, centers)
	assert.InDelta(t, params.PeriodLimits[0], centers[0], 1e-12)
	assert.LessOrEqual(t, centers[len(centers)-1], params.PeriodLimits[1]*(1+1e-9))

	for i := 1; i < len(centers); i++ {
		assert.Greater(t, centers[i], centers[i-1])
	}
}
