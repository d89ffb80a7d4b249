// Package observability provides structured logging and OpenTelemetry
// metrics for the cp-ppsd pipelines. When no OTLP endpoint is configured,
// no-op providers are used with zero export overhead.
package observability

import "log/slog"

const defaultShutdownTimeoutSec = 5

// Config controls logger and metrics initialization.
type Config struct {
	// ServiceName identifies this process in exported telemetry.
	ServiceName string

	// ServiceVersion is the build version, empty when unknown.
	ServiceVersion string

	// Environment tags telemetry with a deployment environment.
	Environment string

	// LogLevel is the minimum level emitted by the logger.
	LogLevel slog.Level

	// LogJSON selects JSON log output instead of text.
	LogJSON bool

	// LogDir, when set, duplicates log output into a file in this
	// directory in addition to stderr.
	LogDir string

	// OTLPEndpoint is the gRPC metrics collector address. Empty disables
	// metric export entirely.
	OTLPEndpoint string

	// OTLPInsecure disables transport security on the exporter connection.
	OTLPInsecure bool

	// OTLPHeaders are extra headers sent with each export request.
	OTLPHeaders map[string]string

	// ShutdownTimeoutSec bounds the final telemetry flush.
	ShutdownTimeoutSec int
}

// DefaultConfig returns the configuration used when nothing is specified.
func DefaultConfig() Config {
	return Config{
		ServiceName:        "cp-ppsd",
		LogLevel:           slog.LevelInfo,
		ShutdownTimeoutSec: defaultShutdownTimeoutSec,
	}
}
