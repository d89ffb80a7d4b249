package seismic

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
)

// sampleRateTolerance is the maximum relative deviation between segment
// sample rates that still allows combination.
const sampleRateTolerance = 1e-6

// Sentinel merge errors.
var (
	ErrEmptyGroup           = errors.New("channel group has no traces")
	ErrIncompatibleSampling = errors.New("segments have incompatible sample rates")
)

// MergeMethod selects how segments of one channel are combined.
type MergeMethod int

// Supported combination methods.
const (
	// MergeStandard concatenates segments; on overlap, later segments win.
	MergeStandard MergeMethod = iota
	// MergeInterpolate fills gaps by linear interpolation across gap edges.
	MergeInterpolate
	// MergeCleanup keeps the first contribution for every sample and
	// discards overlapping data from later segments.
	MergeCleanup
)

// String returns the method name.
func (m MergeMethod) String() string {
	switch m {
	case MergeStandard:
		return "standard"
	case MergeInterpolate:
		return "interpolate"
	case MergeCleanup:
		return "cleanup"
	default:
		return fmt.Sprintf("method(%d)", int(m))
	}
}

// FillPolicy decides what happens to gap samples created by combination.
// The zero value is "no fill": gaps become masked samples.
type FillPolicy struct {
	Fill  bool
	Value float64
}

// NoFill leaves gaps as masked (invalid) samples.
var NoFill = FillPolicy{}

// FillWith fills gap samples with a constant value.
func FillWith(value float64) FillPolicy {
	return FillPolicy{Fill: true, Value: value}
}

// GapMergePolicy decides, per channel group, whether segments are combined
// into one continuous (possibly gapped) series or kept as independent runs.
type GapMergePolicy struct {
	skipOnGaps bool
	fill       FillPolicy
	method     MergeMethod
	logger     *slog.Logger
}

// NewGapMergePolicy builds a policy. When skipOnGaps is set, the fill policy
// is forced to no-fill: gaps must never be silently filled in that mode.
func NewGapMergePolicy(skipOnGaps bool, fill FillPolicy, method MergeMethod, logger *slog.Logger) *GapMergePolicy {
	if logger == nil {
		logger = slog.Default()
	}

	if skipOnGaps && fill.Fill {
		logger.Info("skip_on_gaps forces no-fill", "requested_fill", fill.Value)

		fill = NoFill
	}

	return &GapMergePolicy{
		skipOnGaps: skipOnGaps,
		fill:       fill,
		method:     method,
		logger:     logger,
	}
}

// SkipOnGaps reports whether segments are kept independent.
func (p *GapMergePolicy) SkipOnGaps() bool {
	return p.skipOnGaps
}

// Fill returns the resolved fill policy.
func (p *GapMergePolicy) Fill() FillPolicy {
	return p.fill
}

// Resolve returns the ordered traces ready for accumulation. With skipOnGaps
// each continuous run stays independent; otherwise all segments are combined
// into one series. Combination failure is recoverable: the original segments
// are returned so the channel is still processed.
func (p *GapMergePolicy) Resolve(group ChannelGroup) []*Trace {
	if len(group.Traces) == 0 {
		return nil
	}

	if p.skipOnGaps {
		p.logger.Debug("keeping independent segments",
			"channel", group.ID.String(), "segments", len(group.Traces))

		return group.Traces
	}

	if len(group.Traces) == 1 {
		return group.Traces
	}

	combined, err := p.combine(group)
	if err != nil {
		p.logger.Error("segment combination failed, falling back to original segments",
			"channel", group.ID.String(), "error", err)

		return group.Traces
	}

	if combined.HasGaps() {
		gapCount := combined.GapCount()
		gapPercent := float64(gapCount) / float64(len(combined.Samples)) * 100

		p.logger.Info("combined trace contains gaps",
			"channel", group.ID.String(),
			"gap_samples", gapCount,
			"gap_percent", fmt.Sprintf("%.1f", gapPercent))
	}

	return []*Trace{combined}
}

// combine merges every segment of the group into one trace spanning the
// earliest start to the latest end.
func (p *GapMergePolicy) combine(group ChannelGroup) (*Trace, error) {
	rate := group.Traces[0].SampleRate

	for _, tr := range group.Traces[1:] {
		if math.Abs(tr.SampleRate-rate) > rate*sampleRateTolerance {
			return nil, fmt.Errorf("%w: %s (%v vs %v)",
				ErrIncompatibleSampling, group.ID, rate, tr.SampleRate)
		}
	}

	segments := make([]*Trace, len(group.Traces))
	copy(segments, group.Traces)

	sort.SliceStable(segments, func(i, j int) bool {
		return segments[i].StartTime.Before(segments[j].StartTime)
	})

	base := segments[0]

	length := 0

	for _, seg := range segments {
		endIdx := base.sampleIndex(seg.EndTime()) + 1
		if endIdx > length {
			length = endIdx
		}
	}

	samples := make([]float64, length)
	covered := make([]bool, length)

	for _, seg := range segments {
		p.apply(base, seg, samples, covered)
	}

	merged := &Trace{
		ID:         group.ID,
		StartTime:  base.StartTime,
		SampleRate: rate,
		Samples:    samples,
	}

	p.resolveGaps(merged, covered)

	return merged, nil
}

// apply writes one segment into the combined sample buffer according to the
// merge method.
func (p *GapMergePolicy) apply(base, seg *Trace, samples []float64, covered []bool) {
	offset := base.sampleIndex(seg.StartTime)

	for i, v := range seg.Samples {
		if seg.Mask != nil && seg.Mask[i] {
			continue
		}

		at := offset + i
		if at < 0 || at >= len(samples) {
			continue
		}

		if p.method == MergeCleanup && covered[at] {
			continue
		}

		samples[at] = v
		covered[at] = true
	}
}

// resolveGaps decides what uncovered samples become: interpolated values, a
// constant fill, or masked samples.
func (p *GapMergePolicy) resolveGaps(merged *Trace, covered []bool) {
	gaps := 0

	for _, ok := range covered {
		if !ok {
			gaps++
		}
	}

	if gaps == 0 {
		return
	}

	switch {
	case p.method == MergeInterpolate:
		interpolateGaps(merged.Samples, covered)
	case p.fill.Fill:
		for i, ok := range covered {
			if !ok {
				merged.Samples[i] = p.fill.Value
			}
		}
	default:
		mask := make([]bool, len(covered))

		for i, ok := range covered {
			mask[i] = !ok
		}

		merged.Mask = mask
	}
}

// interpolateGaps fills uncovered runs by linear interpolation between the
// nearest covered neighbors. Runs touching either end take the edge value.
func interpolateGaps(samples []float64, covered []bool) {
	n := len(samples)

	i := 0
	for i < n {
		if covered[i] {
			i++

			continue
		}

		start := i
		for i < n && !covered[i] {
			i++
		}

		end := i // first covered index after the run, or n

		switch {
		case start == 0 && end == n:
			// Nothing covered at all; leave as zeros.
		case start == 0:
			for j := start; j < end; j++ {
				samples[j] = samples[end]
			}
		case end == n:
			for j := start; j < end; j++ {
				samples[j] = samples[start-1]
			}
		default:
			left := samples[start-1]
			right := samples[end]
			span := float64(end - start + 1)

			for j := start; j < end; j++ {
				frac := float64(j-start+1) / span
				samples[j] = left + (right-left)*frac
			}
		}
	}
}
