// Package config provides configuration loading and validation for the
// cp-ppsd batch tool. One file can describe a compute job, a plot job, or
// both; string-typed mode keys are resolved into closed enum types here so
// the pipelines never dispatch on raw strings.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/seiscode/cp-ppsd/pkg/seismic"
	"github.com/seiscode/cp-ppsd/pkg/spectral"
)

// Sentinel validation errors.
var (
	ErrNoOperation        = errors.New("configuration selects neither compute nor plot")
	ErrMissingOutputDir   = errors.New("output_dir is required")
	ErrInvalidPPSDLength  = errors.New("ppsd_length must be positive")
	ErrInvalidOverlap     = errors.New("overlap must be in [0, 1)")
	ErrInvalidPeriodRange = errors.New("period limits must be two ascending positive values")
	ErrInvalidDBBins      = errors.New("db_bins must be [min, max, step] with min < max and step > 0")
	ErrInvalidMergeMethod = errors.New("merge_method must be 0, 1 or -1")
	ErrInvalidFillValue   = errors.New("merge_fill_value must be a number, \"none\" or \"null\"")
	ErrInvalidPlotType    = errors.New("unknown plot type")
	ErrInvalidPercentile  = errors.New("percentiles must be in [0, 100]")
)

// Default configuration values.
const (
	DefaultPPSDLength     = 3600.0
	DefaultOverlap        = 0.5
	DefaultSmoothingWidth = 1.0
	DefaultPeriodStep     = 0.125
	DefaultColormap       = "viridis"
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "text"
	defaultMergeFill      = "none"
)

// Default slice values, copied into each loaded configuration.
var (
	DefaultPeriodLimits    = []float64{0.01, 1000}
	DefaultDBBins          = []float64{-200, -50, 0.25}
	DefaultPlotTypes       = []string{"standard"}
	DefaultPercentiles     = []float64{0, 25, 50, 75, 100}
	DefaultTemporalPeriods = []float64{0.1, 1, 10}
)

// Recognized plot kinds.
const (
	PlotStandard    = "standard"
	PlotTemporal    = "temporal"
	PlotSpectrogram = "spectrogram"
)

// Config holds all configuration for one cp-ppsd invocation.
type Config struct {
	Compute ComputeConfig `mapstructure:"compute"`
	Plot    PlotConfig    `mapstructure:"plot"`
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// ComputeConfig describes a waveform-to-artifact job.
type ComputeConfig struct {
	MSEEDPattern          string      `mapstructure:"mseed_pattern"`
	InventoryPath         string      `mapstructure:"inventory_path"`
	OutputDir             string      `mapstructure:"output_dir"`
	OutputFilenamePattern string      `mapstructure:"output_npz_filename_pattern"`
	Args                  ComputeArgs `mapstructure:"args"`
}

// ComputeArgs carries the spectral estimation parameters of a compute job.
type ComputeArgs struct {
	PPSDLength                  float64   `mapstructure:"ppsd_length"`
	Overlap                     float64   `mapstructure:"overlap"`
	PeriodSmoothingWidthOctaves float64   `mapstructure:"period_smoothing_width_octaves"`
	PeriodStepOctaves           float64   `mapstructure:"period_step_octaves"`
	PeriodLimits                []float64 `mapstructure:"period_limits"`
	DBBins                      []float64 `mapstructure:"db_bins"`
	SkipOnGaps                  bool      `mapstructure:"skip_on_gaps"`

	// MergeFillValue accepts either a number or the strings "none"/"null";
	// both spellings disable gap filling.
	MergeFillValue  any    `mapstructure:"merge_fill_value"`
	MergeMethod     int    `mapstructure:"merge_method"`
	SpecialHandling string `mapstructure:"special_handling"`
}

// PlotConfig describes an artifact-to-image job.
type PlotConfig struct {
	InputDir      string   `mapstructure:"input_npz_dir"`
	OutputDir     string   `mapstructure:"output_dir"`
	InventoryPath string   `mapstructure:"inventory_path"`
	MergeStrategy bool     `mapstructure:"npz_merge_strategy"`
	Args          PlotArgs `mapstructure:"args"`
}

// PlotArgs carries the rendering options of a plot job.
type PlotArgs struct {
	PlotTypes       []string  `mapstructure:"plot_type"`
	PeriodLim       []float64 `mapstructure:"period_lim"`
	ShowPercentiles bool      `mapstructure:"show_percentiles"`
	Percentiles     []float64 `mapstructure:"percentiles"`
	ShowNoiseModels bool      `mapstructure:"show_noise_models"`
	ShowMode        bool      `mapstructure:"show_mode"`
	ShowMean        bool      `mapstructure:"show_mean"`
	Cmap            string    `mapstructure:"cmap"`
	XAxisFrequency  bool      `mapstructure:"xaxis_frequency"`
	Cumulative      bool      `mapstructure:"cumulative"`

	// TemporalPeriods selects the periods, in seconds, drawn by the
	// temporal plot kind.
	TemporalPeriods []float64 `mapstructure:"temporal_plot_periods"`
}

// LoggingConfig holds logging-specific configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Dir    string `mapstructure:"dir"`
}

// MetricsConfig holds the OTLP metrics export settings. An empty endpoint
// disables export.
type MetricsConfig struct {
	Endpoint string `mapstructure:"otlp_endpoint"`
}

// Load reads the configuration file and environment variables. When path is
// empty the usual locations are searched; a missing file yields defaults.
func Load(path string) (*Config, error) {
	viperCfg := viper.New()

	setDefaults(viperCfg)

	if path != "" {
		viperCfg.SetConfigFile(path)
	} else {
		viperCfg.SetConfigName("cp-ppsd")
		viperCfg.SetConfigType("toml")
		viperCfg.AddConfigPath(".")
		viperCfg.AddConfigPath("/etc/cp-ppsd")
	}

	viperCfg.SetEnvPrefix("CPPSD")
	viperCfg.AutomaticEnv()
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFoundErr) {
			return nil, fmt.Errorf("failed to read config file: %w", readErr)
		}
	}

	var config Config

	// Weak typing lets a bare string stand in for a one-element list, which
	// the plot_type key historically allowed.
	unmarshalErr := viperCfg.Unmarshal(&config, func(dc *mapstructure.DecoderConfig) {
		dc.WeaklyTypedInput = true
	})
	if unmarshalErr != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", unmarshalErr)
	}

	validateErr := validateConfig(&config)
	if validateErr != nil {
		return nil, fmt.Errorf("invalid configuration: %w", validateErr)
	}

	return &config, nil
}

// HasCompute reports whether the configuration describes a compute job.
func (c *Config) HasCompute() bool {
	return c.Compute.MSEEDPattern != ""
}

// HasPlot reports whether the configuration describes a plot job.
func (c *Config) HasPlot() bool {
	return c.Plot.InputDir != ""
}

// SpectralParams resolves the compute args into accumulator parameters.
// The per-channel sensitivity is filled in later from station metadata.
func (a ComputeArgs) SpectralParams(logger *slog.Logger) spectral.Params {
	return spectral.Params{
		WindowLength:          time.Duration(a.PPSDLength * float64(time.Second)),
		Overlap:               a.Overlap,
		SmoothingWidthOctaves: a.PeriodSmoothingWidthOctaves,
		PeriodStepOctaves:     a.PeriodStepOctaves,
		PeriodLimits:          [2]float64{a.PeriodLimits[0], a.PeriodLimits[1]},
		DBBins: spectral.BinSpec{
			Min:  a.DBBins[0],
			Max:  a.DBBins[1],
			Step: a.DBBins[2],
		},
		SkipOnGaps: a.SkipOnGaps,
		Handling:   spectral.ParseSpecialHandling(a.SpecialHandling, logger),
	}
}

// FillPolicy resolves the merge_fill_value key into a gap fill policy.
func (a ComputeArgs) FillPolicy() (seismic.FillPolicy, error) {
	switch v := a.MergeFillValue.(type) {
	case nil:
		return seismic.NoFill, nil
	case float64:
		return seismic.FillWith(v), nil
	case int:
		return seismic.FillWith(float64(v)), nil
	case int64:
		return seismic.FillWith(float64(v)), nil
	case string:
		lowered := strings.ToLower(strings.TrimSpace(v))
		if lowered == "" || lowered == "none" || lowered == "null" {
			return seismic.NoFill, nil
		}

		value, err := strconv.ParseFloat(lowered, 64)
		if err != nil {
			return seismic.NoFill, fmt.Errorf("%w: %q", ErrInvalidFillValue, v)
		}

		return seismic.FillWith(value), nil
	default:
		return seismic.NoFill, fmt.Errorf("%w: %T", ErrInvalidFillValue, v)
	}
}

// Method resolves the numeric merge_method key into the closed enum.
func (a ComputeArgs) Method() (seismic.MergeMethod, error) {
	switch a.MergeMethod {
	case 0:
		return seismic.MergeStandard, nil
	case 1:
		return seismic.MergeInterpolate, nil
	case -1:
		return seismic.MergeCleanup, nil
	default:
		return seismic.MergeStandard, fmt.Errorf("%w: %d", ErrInvalidMergeMethod, a.MergeMethod)
	}
}

// setDefaults sets default configuration values.
func setDefaults(viperCfg *viper.Viper) {
	// Compute defaults.
	viperCfg.SetDefault("compute.args.ppsd_length", DefaultPPSDLength)
	viperCfg.SetDefault("compute.args.overlap", DefaultOverlap)
	viperCfg.SetDefault("compute.args.period_smoothing_width_octaves", DefaultSmoothingWidth)
	viperCfg.SetDefault("compute.args.period_step_octaves", DefaultPeriodStep)
	viperCfg.SetDefault("compute.args.period_limits", DefaultPeriodLimits)
	viperCfg.SetDefault("compute.args.db_bins", DefaultDBBins)
	viperCfg.SetDefault("compute.args.skip_on_gaps", false)
	viperCfg.SetDefault("compute.args.merge_fill_value", defaultMergeFill)
	viperCfg.SetDefault("compute.args.merge_method", 0)
	viperCfg.SetDefault("compute.args.special_handling", "")

	// Plot defaults.
	viperCfg.SetDefault("plot.npz_merge_strategy", false)
	viperCfg.SetDefault("plot.args.plot_type", DefaultPlotTypes)
	viperCfg.SetDefault("plot.args.period_lim", []float64{DefaultPeriodLimits[0], DefaultPeriodLimits[1]})
	viperCfg.SetDefault("plot.args.show_percentiles", false)
	viperCfg.SetDefault("plot.args.percentiles", DefaultPercentiles)
	viperCfg.SetDefault("plot.args.show_noise_models", true)
	viperCfg.SetDefault("plot.args.show_mode", false)
	viperCfg.SetDefault("plot.args.show_mean", false)
	viperCfg.SetDefault("plot.args.cmap", DefaultColormap)
	viperCfg.SetDefault("plot.args.xaxis_frequency", false)
	viperCfg.SetDefault("plot.args.cumulative", false)
	viperCfg.SetDefault("plot.args.temporal_plot_periods", DefaultTemporalPeriods)

	// Logging defaults.
	viperCfg.SetDefault("logging.level", DefaultLogLevel)
	viperCfg.SetDefault("logging.format", DefaultLogFormat)

	// Metrics defaults.
	viperCfg.SetDefault("metrics.otlp_endpoint", "")
}

// validateConfig validates the configuration.
func validateConfig(config *Config) error {
	if !config.HasCompute() && !config.HasPlot() {
		return ErrNoOperation
	}

	if config.HasCompute() {
		err := validateCompute(&config.Compute)
		if err != nil {
			return err
		}
	}

	if config.HasPlot() {
		err := validatePlot(&config.Plot)
		if err != nil {
			return err
		}
	}

	return nil
}

func validateCompute(compute *ComputeConfig) error {
	if compute.OutputDir == "" {
		return fmt.Errorf("%w: compute", ErrMissingOutputDir)
	}

	args := compute.Args

	if args.PPSDLength <= 0 {
		return fmt.Errorf("%w: %g", ErrInvalidPPSDLength, args.PPSDLength)
	}

	if args.Overlap < 0 || args.Overlap >= 1 {
		return fmt.Errorf("%w: %g", ErrInvalidOverlap, args.Overlap)
	}

	err := validatePeriodRange(args.PeriodLimits)
	if err != nil {
		return err
	}

	if len(args.DBBins) != 3 || args.DBBins[0] >= args.DBBins[1] || args.DBBins[2] <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidDBBins, args.DBBins)
	}

	_, err = args.Method()
	if err != nil {
		return err
	}

	_, err = args.FillPolicy()
	if err != nil {
		return err
	}

	return nil
}

func validatePlot(plot *PlotConfig) error {
	if plot.OutputDir == "" {
		return fmt.Errorf("%w: plot", ErrMissingOutputDir)
	}

	for _, kind := range plot.Args.PlotTypes {
		switch kind {
		case PlotStandard, PlotTemporal, PlotSpectrogram:
		default:
			return fmt.Errorf("%w: %q", ErrInvalidPlotType, kind)
		}
	}

	for _, p := range plot.Args.Percentiles {
		if p < 0 || p > 100 {
			return fmt.Errorf("%w: %g", ErrInvalidPercentile, p)
		}
	}

	return validatePeriodRange(plot.Args.PeriodLim)
}

func validatePeriodRange(limits []float64) error {
	if len(limits) != 2 || limits[0] <= 0 || limits[0] >= limits[1] {
		return fmt.Errorf("%w: %v", ErrInvalidPeriodRange, limits)
	}

	return nil
}
