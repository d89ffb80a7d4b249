// Package spectral defines the per-channel spectral density accumulator: its
// construction parameters, usage contract, serializable snapshot state and a
// concrete probabilistic power spectral density implementation.
package spectral

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Default construction parameters.
const (
	DefaultWindowLength   = time.Hour
	DefaultOverlap        = 0.5
	DefaultSmoothingWidth = 1.0
	DefaultPeriodStep     = 0.125
)

// Sentinel parameter errors.
var (
	ErrInvalidWindowLength = errors.New("window length must be positive")
	ErrInvalidOverlap      = errors.New("overlap must be in [0, 1)")
	ErrInvalidPeriodStep   = errors.New("period step must be positive")
	ErrInvalidPeriodLimits = errors.New("period limits must satisfy 0 < min < max")
	ErrInvalidBinSpec      = errors.New("amplitude bin spec must satisfy min < max with positive step")
	ErrMissingSensitivity  = errors.New("ringlaser handling requires a resolved sensitivity")
)

// SpecialHandling selects the sensor-class correction mode.
type SpecialHandling int

// The three handling variants. Default applies full response correction plus
// differentiation; Ringlaser divides by a caller-resolved scalar sensitivity
// only; Hydrophone applies response correction without differentiation.
const (
	HandlingDefault SpecialHandling = iota
	HandlingRinglaser
	HandlingHydrophone
)

// String returns the mode name.
func (h SpecialHandling) String() string {
	switch h {
	case HandlingRinglaser:
		return "ringlaser"
	case HandlingHydrophone:
		return "hydrophone"
	default:
		return "default"
	}
}

// ParseSpecialHandling resolves a configuration string into a handling mode.
// Empty and "none"/"null" select the default; an unrecognized value also
// selects the default with a warning, never a hard failure.
func ParseSpecialHandling(s string, logger *slog.Logger) SpecialHandling {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "null", "default":
		return HandlingDefault
	case "ringlaser":
		return HandlingRinglaser
	case "hydrophone":
		return HandlingHydrophone
	default:
		if logger == nil {
			logger = slog.Default()
		}

		logger.Warn("unrecognized special_handling value, using default", "value", s)

		return HandlingDefault
	}
}

// BinSpec describes the amplitude-domain histogram bin edges in dB.
type BinSpec struct {
	Min  float64
	Max  float64
	Step float64
}

// Count returns the number of bins the spec spans.
func (b BinSpec) Count() int {
	return int((b.Max - b.Min) / b.Step)
}

// Center returns the center value of bin i.
func (b BinSpec) Center(i int) float64 {
	return b.Min + (float64(i)+0.5)*b.Step
}

// Params is the accumulator construction contract.
type Params struct {
	// WindowLength is the nominal time window of one spectral estimate.
	WindowLength time.Duration

	// Overlap is the window overlap fraction in [0, 1).
	Overlap float64

	// SmoothingWidthOctaves is the period-domain averaging band width.
	SmoothingWidthOctaves float64

	// PeriodStepOctaves is the spacing of period bin centers.
	PeriodStepOctaves float64

	// PeriodLimits bounds the period bin centers, in seconds.
	PeriodLimits [2]float64

	// DBBins are the amplitude histogram bin edges.
	DBBins BinSpec

	// SkipOnGaps refuses windows that touch masked samples.
	SkipOnGaps bool

	// Handling selects the sensor-class correction mode.
	Handling SpecialHandling

	// Sensitivity is the scalar gain divided out of the raw counts. For
	// HandlingRinglaser the caller must resolve it from metadata itself.
	Sensitivity float64
}

// DefaultParams returns the conventional long-term noise study parameters.
func DefaultParams() Params {
	return Params{
		WindowLength:          DefaultWindowLength,
		Overlap:               DefaultOverlap,
		SmoothingWidthOctaves: DefaultSmoothingWidth,
		PeriodStepOctaves:     DefaultPeriodStep,
		PeriodLimits:          [2]float64{0.01, 1000.0},
		DBBins:                BinSpec{Min: -200, Max: -50, Step: 0.25},
	}
}

// Validate checks the construction contract.
func (p Params) Validate() error {
	if p.WindowLength <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidWindowLength, p.WindowLength)
	}

	if p.Overlap < 0 || p.Overlap >= 1 {
		return fmt.Errorf("%w: %v", ErrInvalidOverlap, p.Overlap)
	}

	if p.PeriodStepOctaves <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidPeriodStep, p.PeriodStepOctaves)
	}

	if p.PeriodLimits[0] <= 0 || p.PeriodLimits[0] >= p.PeriodLimits[1] {
		return fmt.Errorf("%w: %v", ErrInvalidPeriodLimits, p.PeriodLimits)
	}

	if p.DBBins.Step <= 0 || p.DBBins.Min >= p.DBBins.Max {
		return fmt.Errorf("%w: %+v", ErrInvalidBinSpec, p.DBBins)
	}

	if p.Handling == HandlingRinglaser && p.Sensitivity == 0 {
		return ErrMissingSensitivity
	}

	return nil
}
