package seismic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupByChannel(t *testing.T) {
	t.Parallel()

	bhz := ChannelID{Network: "BJ", Station: "DAX", Location: "00", Channel: "BHZ"}
	bhn := ChannelID{Network: "BJ", Station: "DAX", Location: "00", Channel: "BHN"}

	// BHZ segments appear non-contiguously, separated by a BHN segment.
	traces := []*Trace{
		makeTrace(bhz, testStart, 100, 10),
		makeTrace(bhn, testStart, 100, 10),
		makeTrace(bhz, testStart.Add(60e9), 100, 10),
	}

	groups := GroupByChannel(traces)

	require.Len(t, groups, 2)

	// First-appearance order.
	assert.Equal(t, bhz, groups[0].ID)
	assert.Equal(t, bhn, groups[1].ID)

	// Non-contiguous segments land in one group, file order preserved.
	require.Len(t, groups[0].Traces, 2)
	assert.Same(t, traces[0], groups[0].Traces[0])
	assert.Same(t, traces[2], groups[0].Traces[1])

	require.Len(t, groups[1].Traces, 1)
	assert.Same(t, traces[1], groups[1].Traces[0])
}

func TestGroupByChannel_NoSharedTraces(t *testing.T) {
	t.Parallel()

	id := ChannelID{Network: "BJ", Station: "DAX", Location: "00", Channel: "BHZ"}
	traces := []*Trace{
		makeTrace(id, testStart, 100, 10),
		makeTrace(id, testStart.Add(10e9), 100, 10),
	}

	groups := GroupByChannel(traces)

	total := 0
	for _, g := range groups {
		total += len(g.Traces)
	}

	assert.Equal(t, len(traces), total)
}

func TestGroupByChannel_Empty(t *testing.T) {
	t.Parallel()

	assert.Empty(t, GroupByChannel(nil))
}
