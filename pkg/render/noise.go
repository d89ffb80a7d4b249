package render

import "math"

// Peterson (1993) global noise model segments. Within a segment starting at
// period P the acceleration power level is A + B*log10(period) dB.
type noiseSegment struct {
	period float64
	a      float64
	b      float64
}

// maxModelPeriod bounds both models.
const maxModelPeriod = 1e5

// nlnmSegments is the New Low Noise Model.
var nlnmSegments = []noiseSegment{
	{0.10, -162.36, 5.64},
	{0.17, -166.7, 0.00},
	{0.40, -170.00, -8.30},
	{0.80, -166.40, 28.90},
	{1.24, -168.60, 52.48},
	{2.40, -159.98, 29.81},
	{4.30, -141.10, 0.00},
	{5.00, -71.36, -99.77},
	{6.00, -97.26, -66.49},
	{10.00, -132.18, -31.57},
	{12.00, -205.27, 36.16},
	{15.60, -37.65, -104.33},
	{21.90, -114.37, -47.10},
	{31.60, -160.58, -16.28},
	{45.00, -187.50, 0.00},
	{70.00, -216.47, 15.70},
	{101.00, -185.00, 0.00},
	{154.00, -168.34, -7.61},
	{328.00, -217.43, 11.90},
	{600.00, -258.28, 26.60},
	{10000.00, -346.88, 48.75},
}

// nhnmSegments is the New High Noise Model.
var nhnmSegments = []noiseSegment{
	{0.10, -108.73, -17.23},
	{0.22, -150.34, -80.50},
	{0.32, -122.31, -23.87},
	{0.80, -116.85, 32.51},
	{3.80, -108.48, 18.08},
	{4.60, -74.66, -32.95},
	{6.30, 0.66, -127.18},
	{7.90, -93.37, -22.42},
	{15.40, 73.54, -162.98},
	{20.00, -151.52, 10.01},
	{354.80, -206.66, 31.63},
}

func evalModel(segments []noiseSegment, period float64) float64 {
	if period < segments[0].period || period > maxModelPeriod {
		return math.NaN()
	}

	seg := segments[0]

	for _, s := range segments[1:] {
		if s.period > period {
			break
		}

		seg = s
	}

	return seg.a + seg.b*math.Log10(period)
}

// NLNM returns the New Low Noise Model level in dB for each period. Periods
// outside the model's range yield NaN.
func NLNM(periods []float64) []float64 {
	out := make([]float64, len(periods))
	for i, p := range periods {
		out[i] = evalModel(nlnmSegments, p)
	}

	return out
}

// NHNM returns the New High Noise Model level in dB for each period. Periods
// outside the model's range yield NaN.
func NHNM(periods []float64) []float64 {
	out := make([]float64, len(periods))
	for i, p := range periods {
		out[i] = evalModel(nhnmSegments, p)
	}

	return out
}
