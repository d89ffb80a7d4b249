package seismic

// ChannelGroup holds every trace segment from one input file that shares a
// channel identity, in file order.
type ChannelGroup struct {
	ID     ChannelID
	Traces []*Trace
}

// GroupByChannel partitions the traces of one input file by channel identity.
// Segments for the same channel may appear non-contiguously within a file, so
// grouping must happen before any merge decision. Group order follows the
// first appearance of each identity; no two groups share a trace.
func GroupByChannel(traces []*Trace) []ChannelGroup {
	index := make(map[ChannelID]int, len(traces))
	groups := make([]ChannelGroup, 0, len(traces))

	for _, tr := range traces {
		at, seen := index[tr.ID]
		if !seen {
			at = len(groups)
			index[tr.ID] = at
			groups = append(groups, ChannelGroup{ID: tr.ID})
		}

		groups[at].Traces = append(groups[at].Traces, tr)
	}

	return groups
}
