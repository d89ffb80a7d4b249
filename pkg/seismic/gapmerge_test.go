package seismic

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testID = ChannelID{Network: "BJ", Station: "DAX", Location: "00", Channel: "BHZ"}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestNewGapMergePolicy_SkipOnGapsForcesNoFill(t *testing.T) {
	t.Parallel()

	policy := NewGapMergePolicy(true, FillWith(0), MergeStandard, discardLogger())

	assert.True(t, policy.SkipOnGaps())
	assert.Equal(t, NoFill, policy.Fill())
}

func TestResolve_SkipOnGapsKeepsSegmentsIndependent(t *testing.T) {
	t.Parallel()

	policy := NewGapMergePolicy(true, FillWith(0), MergeStandard, discardLogger())

	group := ChannelGroup{ID: testID, Traces: []*Trace{
		makeTrace(testID, testStart, 10, 100),
		makeTrace(testID, testStart.Add(15*time.Second), 10, 50),
	}}

	out := policy.Resolve(group)

	require.Len(t, out, 2)
	assert.GreaterOrEqual(t, len(out), len(group.Traces))

	for i, tr := range out {
		assert.Same(t, group.Traces[i], tr)
		assert.False(t, tr.HasGaps())
	}
}

func TestResolve_CombinesGappedSegments(t *testing.T) {
	t.Parallel()

	policy := NewGapMergePolicy(false, NoFill, MergeStandard, discardLogger())

	// Two segments at 10 Hz with a 5 s hole between them: the last sample
	// of the first segment is at t+9.9s, the second segment starts at t+15s.
	group := ChannelGroup{ID: testID, Traces: []*Trace{
		makeTrace(testID, testStart, 10, 100),
		makeTrace(testID, testStart.Add(15*time.Second), 10, 50),
	}}

	out := policy.Resolve(group)

	require.Len(t, out, 1)

	merged := out[0]

	require.NoError(t, merged.Validate())
	assert.Equal(t, 200, len(merged.Samples))
	assert.True(t, merged.HasGaps())

	// Missing samples cover indices 100..149.
	assert.Equal(t, 50, merged.GapCount())
	assert.Equal(t, testStart, merged.StartTime)
}

func TestResolve_FillValueReplacesGaps(t *testing.T) {
	t.Parallel()

	policy := NewGapMergePolicy(false, FillWith(-7), MergeStandard, discardLogger())

	group := ChannelGroup{ID: testID, Traces: []*Trace{
		makeTrace(testID, testStart, 10, 10),
		makeTrace(testID, testStart.Add(2*time.Second), 10, 10),
	}}

	out := policy.Resolve(group)

	require.Len(t, out, 1)

	merged := out[0]

	assert.False(t, merged.HasGaps())
	require.Equal(t, 30, len(merged.Samples))

	// Indices 10..19 fall in the hole between segments.
	for i := 10; i < 20; i++ {
		assert.InDelta(t, -7.0, merged.Samples[i], 1e-12, "index %d", i)
	}
}

func TestResolve_InterpolationBridgesGap(t *testing.T) {
	t.Parallel()

	policy := NewGapMergePolicy(false, NoFill, MergeInterpolate, discardLogger())

	left := makeTrace(testID, testStart, 1, 2)
	left.Samples = []float64{0, 0}

	right := makeTrace(testID, testStart.Add(4*time.Second), 1, 2)
	right.Samples = []float64{3, 3}

	out := policy.Resolve(ChannelGroup{ID: testID, Traces: []*Trace{left, right}})

	require.Len(t, out, 1)

	merged := out[0]

	assert.False(t, merged.HasGaps())
	require.Equal(t, 6, len(merged.Samples))

	// Gap at indices 2,3 interpolates between 0 (index 1) and 3 (index 4).
	assert.InDelta(t, 1.0, merged.Samples[2], 1e-12)
	assert.InDelta(t, 2.0, merged.Samples[3], 1e-12)
}

func TestResolve_IncompatibleRatesFallBackToOriginals(t *testing.T) {
	t.Parallel()

	policy := NewGapMergePolicy(false, NoFill, MergeStandard, discardLogger())

	group := ChannelGroup{ID: testID, Traces: []*Trace{
		makeTrace(testID, testStart, 10, 10),
		makeTrace(testID, testStart.Add(time.Second), 20, 10),
	}}

	out := policy.Resolve(group)

	require.Len(t, out, 2)
	assert.Same(t, group.Traces[0], out[0])
	assert.Same(t, group.Traces[1], out[1])
}

func TestResolve_CleanupKeepsFirstContribution(t *testing.T) {
	t.Parallel()

	policy := NewGapMergePolicy(false, NoFill, MergeCleanup, discardLogger())

	first := makeTrace(testID, testStart, 1, 4)
	first.Samples = []float64{1, 1, 1, 1}

	// Overlaps the last two samples of the first segment.
	second := makeTrace(testID, testStart.Add(2*time.Second), 1, 4)
	second.Samples = []float64{9, 9, 9, 9}

	out := policy.Resolve(ChannelGroup{ID: testID, Traces: []*Trace{first, second}})

	require.Len(t, out, 1)

	merged := out[0]

	require.Equal(t, 6, len(merged.Samples))
	assert.Equal(t, []float64{1, 1, 1, 1, 9, 9}, merged.Samples)
}

func TestResolve_StandardOverlapLaterWins(t *testing.T) {
	t.Parallel()

	policy := NewGapMergePolicy(false, NoFill, MergeStandard, discardLogger())

	first := makeTrace(testID, testStart, 1, 4)
	first.Samples = []float64{1, 1, 1, 1}

	second := makeTrace(testID, testStart.Add(2*time.Second), 1, 4)
	second.Samples = []float64{9, 9, 9, 9}

	out := policy.Resolve(ChannelGroup{ID: testID, Traces: []*Trace{first, second}})

	require.Len(t, out, 1)
	assert.Equal(t, []float64{1, 1, 9, 9, 9, 9}, out[0].Samples)
}

func TestResolve_SingleSegmentPassesThrough(t *testing.T) {
	t.Parallel()

	policy := NewGapMergePolicy(false, NoFill, MergeStandard, discardLogger())

	tr := makeTrace(testID, testStart, 10, 10)
	out := policy.Resolve(ChannelGroup{ID: testID, Traces: []*Trace{tr}})

	require.Len(t, out, 1)
	assert.Same(t, tr, out[0])
}

func TestResolve_EmptyGroup(t *testing.T) {
	t.Parallel()

	policy := NewGapMergePolicy(false, NoFill, MergeStandard, discardLogger())

	assert.Nil(t, policy.Resolve(ChannelGroup{ID: testID}))
}

func TestResolve_MaskedInputSamplesStayGaps(t *testing.T) {
	t.Parallel()

	policy := NewGapMergePolicy(false, NoFill, MergeStandard, discardLogger())

	first := makeTrace(testID, testStart, 1, 4)
	first.Mask = []bool{false, true, false, false}

	second := makeTrace(testID, testStart.Add(4*time.Second), 1, 2)

	out := policy.Resolve(ChannelGroup{ID: testID, Traces: []*Trace{first, second}})

	require.Len(t, out, 1)

	merged := out[0]

	assert.True(t, merged.HasGaps())
	assert.True(t, merged.Mask[1])
}
