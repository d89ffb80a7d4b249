package spectral

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/seiscode/cp-ppsd/pkg/seismic"
)

// ErrTraceChannelMismatch indicates a trace fed to an accumulator built for a
// different channel.
var ErrTraceChannelMismatch = errors.New("trace channel does not match accumulator")

// Accumulator is the per-channel statistical accumulator consumed by the
// batch pipelines. The processed-window count is monotonically non-decreasing
// as data is added; an accumulator with zero processed windows is empty and
// must never be persisted. Add may legitimately process zero windows without
// returning an error, so callers re-check WindowCount after every add.
type Accumulator interface {
	// Add feeds one trace. Windows that are too short or fail validity
	// checks are skipped silently.
	Add(tr *seismic.Trace) error

	// WindowCount returns the number of processed time windows.
	WindowCount() int

	// Snapshot returns the current serializable state. The returned value
	// is owned by the accumulator and remains live across further adds.
	Snapshot() *Snapshot

	// Fold merges a previously persisted snapshot into this accumulator.
	Fold(other *Snapshot) error
}

// PPSD is the concrete probabilistic power spectral density accumulator. It
// keeps a histogram of per-window spectral estimates over log-spaced period
// bins. The per-window spectrum estimation is delegated to an Estimator.
type PPSD struct {
	snap      *Snapshot
	estimator Estimator
}

// Interface check.
var _ Accumulator = (*PPSD)(nil)

// New constructs a PPSD accumulator for one channel identity.
func New(id seismic.ChannelID, params Params, estimator Estimator) (*PPSD, error) {
	err := params.Validate()
	if err != nil {
		return nil, fmt.Errorf("accumulator params for %s: %w", id, err)
	}

	if estimator == nil {
		estimator = HannEstimator{}
	}

	centers := periodCenters(params)

	hist := make([][]int64, len(centers))
	for i := range hist {
		hist[i] = make([]int64, params.DBBins.Count())
	}

	return &PPSD{
		snap: &Snapshot{
			ID:            id,
			Params:        params,
			PeriodCenters: centers,
			Hist:          hist,
		},
		estimator: estimator,
	}, nil
}

// FromSnapshot reconstructs an accumulator around persisted state, the entry
// point for merge folding.
func FromSnapshot(snap *Snapshot) (*PPSD, error) {
	err := snap.Params.Validate()
	if err != nil {
		return nil, fmt.Errorf("snapshot params for %s: %w", snap.ID, err)
	}

	return &PPSD{snap: snap, estimator: HannEstimator{}}, nil
}

// periodCenters builds log-spaced period bin centers between the period
// limits with the configured octave step.
func periodCenters(params Params) []float64 {
	ratio := math.Pow(2, params.PeriodStepOctaves)

	var centers []float64

	for p := params.PeriodLimits[0]; p <= params.PeriodLimits[1]*(1+1e-9); p *= ratio {
		centers = append(centers, p)
	}

	return centers
}

// ID returns the channel identity the accumulator was built for.
func (a *PPSD) ID() seismic.ChannelID {
	return a.snap.ID
}

// WindowCount implements Accumulator.
func (a *PPSD) WindowCount() int {
	return a.snap.WindowCount()
}

// Snapshot implements Accumulator.
func (a *PPSD) Snapshot() *Snapshot {
	return a.snap
}

// Fold implements Accumulator.
func (a *PPSD) Fold(other *Snapshot) error {
	return a.snap.Fold(other)
}

// Add implements Accumulator. The trace is cut into overlapping windows of
// the nominal length; each valid window contributes one spectral estimate to
// the histogram. Windows touching masked samples, or windows the estimator
// rejects, are skipped without error.
func (a *PPSD) Add(tr *seismic.Trace) error {
	err := tr.Validate()
	if err != nil {
		return err
	}

	if tr.ID != a.snap.ID {
		return fmt.Errorf("%w: %s into %s", ErrTraceChannelMismatch, tr.ID, a.snap.ID)
	}

	params := a.snap.Params

	windowSamples := int(params.WindowLength.Seconds() * tr.SampleRate)
	if windowSamples < minEstimateSamples {
		windowSamples = minEstimateSamples
	}

	step := int(float64(windowSamples) * (1 - params.Overlap))
	if step < 1 {
		step = 1
	}

	for start := 0; start+windowSamples <= len(tr.Samples); start += step {
		windowOK := a.processWindow(tr, start, windowSamples)
		if windowOK {
			at := tr.StartTime.Add(time.Duration(float64(start) / tr.SampleRate * float64(time.Second)))
			a.recordWindow(at, tr)
		}
	}

	return nil
}

// processWindow estimates and bins one window. Returns false when the window
// is skipped.
func (a *PPSD) processWindow(tr *seismic.Trace, start, length int) bool {
	if tr.Mask != nil {
		for i := start; i < start+length; i++ {
			if tr.Mask[i] {
				return false
			}
		}
	}

	segment := a.correct(tr.Samples[start:start+length], tr.SampleRate)

	freqs, psd, err := a.estimator.Estimate(segment, tr.SampleRate)
	if err != nil {
		return false
	}

	values, hit := a.bin(freqs, psd)
	if hit {
		a.snap.Binned = append(a.snap.Binned, values)
	}

	return hit
}

// correct applies the sensor-class correction: scalar sensitivity division,
// plus differentiation for the default handling mode.
func (a *PPSD) correct(samples []float64, rate float64) []float64 {
	params := a.snap.Params

	gain := params.Sensitivity
	if gain == 0 {
		gain = 1
	}

	out := make([]float64, len(samples))
	for i, v := range samples {
		out[i] = v / gain
	}

	if params.Handling == HandlingDefault {
		for i := len(out) - 1; i > 0; i-- {
			out[i] = (out[i] - out[i-1]) * rate
		}

		out = out[1:]
	}

	return out
}

// bin smooths the estimate over octave bands around each period center and
// increments the histogram. The returned slice carries the per-period dB
// values (NaN for empty bands); hit is false when nothing fell inside the
// bins.
func (a *PPSD) bin(freqs, psd []float64) ([]float64, bool) {
	params := a.snap.Params
	halfWidth := math.Pow(2, params.SmoothingWidthOctaves/2)

	values := make([]float64, len(a.snap.PeriodCenters))
	for i := range values {
		values[i] = math.NaN()
	}

	hit := false

	for i, center := range a.snap.PeriodCenters {
		lo := center / halfWidth
		hi := center * halfWidth

		var sum float64

		count := 0

		for k, f := range freqs {
			if f <= 0 {
				continue
			}

			period := 1 / f
			if period >= lo && period <= hi {
				sum += psd[k]
				count++
			}
		}

		if count == 0 || sum <= 0 {
			continue
		}

		db := 10 * math.Log10(sum/float64(count))
		values[i] = db

		binIdx := int((db - params.DBBins.Min) / params.DBBins.Step)
		if binIdx < 0 || binIdx >= len(a.snap.Hist[i]) {
			continue
		}

		a.snap.Hist[i][binIdx]++
		hit = true
	}

	return values, hit
}

// recordWindow appends the window time and extends the data time bounds.
func (a *PPSD) recordWindow(at time.Time, tr *seismic.Trace) {
	a.snap.Times = append(a.snap.Times, at)

	if a.snap.DataStart.IsZero() || tr.StartTime.Before(a.snap.DataStart) {
		a.snap.DataStart = tr.StartTime
	}

	if end := tr.EndTime(); end.After(a.snap.DataEnd) {
		a.snap.DataEnd = end
	}
}
