package observability

import "log/slog"

const defaultShutdownTimeoutSec = 5

// Config controls logging and metrics initialization.
type Config struct {
	// ServiceName identifies the process in log records and metric resources.
	ServiceName string

	// ServiceVersion is attached to the metric resource when non-empty.
	ServiceVersion string

	// Environment names the deployment environment (dev, staging, prod).
	Environment string

	// LogLevel is the minimum level emitted by the logger.
	LogLevel slog.Level

	// LogJSON selects JSON log output instead of text.
	LogJSON bool

	// MetricsEnabled turns on the Prometheus metric pipeline. When false,
	// no-op instruments are used with zero collection overhead.
	MetricsEnabled bool

	// ShutdownTimeoutSec bounds how long Shutdown waits for the metric
	// pipeline to flush. Zero means the default of 5 seconds.
	ShutdownTimeoutSec int
}
