package spectral

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/seiscode/cp-ppsd/pkg/seismic"
)

// Sentinel snapshot errors.
var (
	ErrIncompatibleBinning = errors.New("snapshots have incompatible binning")
	ErrIdentityMismatch    = errors.New("snapshots belong to different channels")
	ErrEmptySnapshot       = errors.New("snapshot has no processed windows")
)

// Snapshot is the serializable statistical state of one accumulator: a
// histogram of spectral estimates over processed time windows. It is the unit
// persisted to artifact files and folded during merge.
type Snapshot struct {
	ID     seismic.ChannelID
	Params Params

	// PeriodCenters are the period bin centers in seconds, ascending.
	PeriodCenters []float64

	// Hist counts estimates per (period bin, dB bin).
	Hist [][]int64

	// Times are the start times of every processed window, in accumulation
	// order.
	Times []time.Time

	// Binned holds, for every processed window, the smoothed dB estimate per
	// period bin (NaN where the band had no contribution). Rows parallel
	// Times; temporal and spectrogram rendering read these.
	Binned [][]float64

	// DataStart and DataEnd bound the raw data that contributed.
	DataStart time.Time
	DataEnd   time.Time
}

// WindowCount returns the number of processed windows.
func (s *Snapshot) WindowCount() int {
	return len(s.Times)
}

// Compatible reports whether another snapshot uses the same identity and
// binning and can therefore be folded into this one.
func (s *Snapshot) compatible(other *Snapshot) error {
	if s.ID != other.ID {
		return fmt.Errorf("%w: %s vs %s", ErrIdentityMismatch, s.ID, other.ID)
	}

	if len(s.PeriodCenters) != len(other.PeriodCenters) || s.Params.DBBins != other.Params.DBBins {
		return fmt.Errorf("%w: %s", ErrIncompatibleBinning, s.ID)
	}

	return nil
}

// Fold merges another snapshot's histogram and window times into this one.
func (s *Snapshot) Fold(other *Snapshot) error {
	err := s.compatible(other)
	if err != nil {
		return err
	}

	for i := range s.Hist {
		for j := range s.Hist[i] {
			s.Hist[i][j] += other.Hist[i][j]
		}
	}

	s.Times = append(s.Times, other.Times...)
	s.Binned = append(s.Binned, other.Binned...)

	if s.DataStart.IsZero() || (!other.DataStart.IsZero() && other.DataStart.Before(s.DataStart)) {
		s.DataStart = other.DataStart
	}

	if other.DataEnd.After(s.DataEnd) {
		s.DataEnd = other.DataEnd
	}

	return nil
}

// Probability returns the histogram normalized per period column, suitable
// for probability density rendering. Columns with no counts are all zero.
func (s *Snapshot) Probability() [][]float64 {
	out := make([][]float64, len(s.Hist))

	for i, column := range s.Hist {
		out[i] = make([]float64, len(column))

		var total int64
		for _, c := range column {
			total += c
		}

		if total == 0 {
			continue
		}

		for j, c := range column {
			out[i][j] = float64(c) / float64(total)
		}
	}

	return out
}

// DBBinCenters returns the amplitude bin centers in dB.
func (s *Snapshot) DBBinCenters() []float64 {
	n := s.Params.DBBins.Count()
	centers := make([]float64, n)

	for i := range centers {
		centers[i] = s.Params.DBBins.Center(i)
	}

	return centers
}

// Mean returns the histogram-weighted mean dB per period bin. Periods with no
// counts yield NaN.
func (s *Snapshot) Mean() []float64 {
	means := make([]float64, len(s.Hist))

	for i, column := range s.Hist {
		var total, weighted float64

		for j, c := range column {
			total += float64(c)
			weighted += float64(c) * s.Params.DBBins.Center(j)
		}

		if total == 0 {
			means[i] = math.NaN()

			continue
		}

		means[i] = weighted / total
	}

	return means
}

// Mode returns the most probable dB per period bin. Periods with no counts
// yield NaN.
func (s *Snapshot) Mode() []float64 {
	modes := make([]float64, len(s.Hist))

	for i, column := range s.Hist {
		best := -1

		var bestCount int64

		for j, c := range column {
			if c > bestCount {
				bestCount = c
				best = j
			}
		}

		if best < 0 {
			modes[i] = math.NaN()

			continue
		}

		modes[i] = s.Params.DBBins.Center(best)
	}

	return modes
}

// Percentile returns the dB value at the given percentile (0-100) per period
// bin. Periods with no counts yield NaN.
func (s *Snapshot) Percentile(p float64) []float64 {
	out := make([]float64, len(s.Hist))

	for i, column := range s.Hist {
		var total int64
		for _, c := range column {
			total += c
		}

		if total == 0 {
			out[i] = math.NaN()

			continue
		}

		threshold := int64(math.Ceil(p / 100 * float64(total)))
		if threshold < 1 {
			threshold = 1
		}

		var running int64

		for j, c := range column {
			running += c
			if running >= threshold {
				out[i] = s.Params.DBBins.Center(j)

				break
			}
		}
	}

	return out
}

// SortedTimes returns the processed window times in chronological order.
func (s *Snapshot) SortedTimes() []time.Time {
	times := append([]time.Time(nil), s.Times...)

	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })

	return times
}

// ClosestPeriodIndex returns the index of the period bin center nearest to
// the requested period, or -1 when there are no bins.
func (s *Snapshot) ClosestPeriodIndex(period float64) int {
	best := -1
	bestDist := math.Inf(1)

	for i, center := range s.PeriodCenters {
		dist := math.Abs(math.Log(center) - math.Log(period))
		if dist < bestDist {
			bestDist = dist
			best = i
		}
	}

	return best
}

// TimeSeries returns the per-window dB estimates for one period bin in
// chronological order. Windows without an estimate for the bin are dropped.
// Snapshots persisted without per-window values yield empty slices.
func (s *Snapshot) TimeSeries(periodIdx int) ([]time.Time, []float64) {
	if periodIdx < 0 || len(s.Binned) != len(s.Times) {
		return nil, nil
	}

	order := make([]int, len(s.Times))
	for i := range order {
		order[i] = i
	}

	sort.Slice(order, func(i, j int) bool {
		return s.Times[order[i]].Before(s.Times[order[j]])
	})

	times := make([]time.Time, 0, len(order))
	values := make([]float64, 0, len(order))

	for _, idx := range order {
		row := s.Binned[idx]
		if periodIdx >= len(row) || math.IsNaN(row[periodIdx]) {
			continue
		}

		times = append(times, s.Times[idx])
		values = append(values, row[periodIdx])
	}

	return times, values
}
