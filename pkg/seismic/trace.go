package seismic

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel validation errors.
var (
	ErrNoSamples         = errors.New("trace has no samples")
	ErrInvalidSampleRate = errors.New("trace sample rate must be positive")
	ErrMaskLength        = errors.New("trace mask length does not match sample length")
)

// Trace is one sample run for a single channel. A trace produced by the gap
// merge policy may carry a validity mask; a masked sample marks a gap where no
// valid data exists.
type Trace struct {
	ID         ChannelID
	StartTime  time.Time
	SampleRate float64
	Samples    []float64

	// Mask marks missing samples (true = gap). A nil mask means every sample
	// is valid. When non-nil, len(Mask) == len(Samples).
	Mask []bool
}

// Validate checks the structural invariants of the trace.
func (t *Trace) Validate() error {
	if len(t.Samples) == 0 {
		return fmt.Errorf("%w: %s", ErrNoSamples, t.ID)
	}

	if t.SampleRate <= 0 {
		return fmt.Errorf("%w: %s (%v)", ErrInvalidSampleRate, t.ID, t.SampleRate)
	}

	if t.Mask != nil && len(t.Mask) != len(t.Samples) {
		return fmt.Errorf("%w: %s (%d mask, %d samples)", ErrMaskLength, t.ID, len(t.Mask), len(t.Samples))
	}

	return nil
}

// EndTime returns the time of the last sample in the trace.
func (t *Trace) EndTime() time.Time {
	if len(t.Samples) == 0 {
		return t.StartTime
	}

	span := float64(len(t.Samples)-1) / t.SampleRate

	return t.StartTime.Add(time.Duration(span * float64(time.Second)))
}

// Duration returns the time span covered by the trace samples.
func (t *Trace) Duration() time.Duration {
	return t.EndTime().Sub(t.StartTime)
}

// HasGaps reports whether the trace contains any masked (missing) samples.
func (t *Trace) HasGaps() bool {
	return t.GapCount() > 0
}

// GapCount returns the number of masked samples.
func (t *Trace) GapCount() int {
	count := 0

	for _, missing := range t.Mask {
		if missing {
			count++
		}
	}

	return count
}

// sampleIndex converts an absolute time into a sample index relative to the
// trace start, rounding to the nearest sample.
func (t *Trace) sampleIndex(at time.Time) int {
	offset := at.Sub(t.StartTime).Seconds() * t.SampleRate

	return int(offset + 0.5)
}
