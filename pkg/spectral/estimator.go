package spectral

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
	"gonum.org/v1/gonum/floats"
)

// minEstimateSamples is the shortest sequence a spectrum can be estimated
// from.
const minEstimateSamples = 16

// ErrTooFewSamples indicates a window too short for spectral estimation.
var ErrTooFewSamples = errors.New("too few samples for spectral estimation")

// Estimator produces a one-sided power spectral density estimate for one time
// window. The pipeline consumes estimators opaquely; the concrete algorithm
// is replaceable.
type Estimator interface {
	// Estimate returns parallel frequency (Hz) and PSD slices for the
	// given samples. The zero-frequency bin is excluded.
	Estimate(samples []float64, rate float64) (freqs, psd []float64, err error)
}

// HannEstimator is the default estimator: mean removal, a Hann taper and a
// single FFT periodogram normalized to power spectral density.
type HannEstimator struct{}

// Estimate implements Estimator.
func (HannEstimator) Estimate(samples []float64, rate float64) ([]float64, []float64, error) {
	n := len(samples)
	if n < minEstimateSamples {
		return nil, nil, fmt.Errorf("%w: %d", ErrTooFewSamples, n)
	}

	work := append([]float64(nil), samples...)

	mean := floats.Sum(work) / float64(n)
	for i := range work {
		work[i] -= mean
	}

	window.Hann(work)

	// Window power normalization for the Hann taper.
	var sumSquares float64

	taper := window.Hann(onesLike(n))
	for _, w := range taper {
		sumSquares += w * w
	}

	fft := fourier.NewFFT(n)
	coeffs := fft.Coefficients(nil, work)

	bins := len(coeffs) - 1 // drop the zero-frequency bin
	freqs := make([]float64, bins)
	psd := make([]float64, bins)

	for k := 1; k <= bins; k++ {
		c := coeffs[k]
		power := real(c)*real(c) + imag(c)*imag(c)

		// One-sided density; the Nyquist bin is not doubled.
		scale := 2.0
		if n%2 == 0 && k == bins {
			scale = 1.0
		}

		freqs[k-1] = fft.Freq(k) * rate
		psd[k-1] = scale * power / (rate * sumSquares)
	}

	return freqs, psd, nil
}

func onesLike(n int) []float64 {
	ones := make([]float64, n)
	for i := range ones {
		ones[i] = 1
	}

	return ones
}
