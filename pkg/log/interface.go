// Package log provides the structured logging interface used by tabprep stages
// and the pipeline composer.
//
// The interface is slog-compatible so callers can pick a backend: the default
// provider writes through github.com/rs/zerolog, and a log/slog provider emits
// Cloud Logging shaped JSON. Stage and pipeline code only depend on Logger.
//
// Example usage:
//
//	logger := log.GetLoggerWithName("pipeline").With(
//	    log.PipelineIDKey, id,
//	)
//	logger.Info("stage fitted",
//	    log.StageKey, "impute",
//	    log.RowsKey, 1460,
//	    log.ColumnsOutKey, 79,
//	)

package log

import (
	"context"
)

// Logger defines a structured logging interface compatible with Go's log/slog.
//
// Fields are passed as alternating key/value pairs. With returns a child
// logger carrying pre-populated fields.
type Logger interface {
	// Debug logs a debug-level message with optional structured fields.
	Debug(msg string, fields ...any)

	// Info logs an info-level message with optional structured fields.
	//
	// Example:
	//   logger.Info("pipeline fitted",
	//       log.DurationMsKey, 12,
	//       log.FeaturesKey, 212,
	//   )
	Info(msg string, fields ...any)

	// Warn logs a warning-level message with optional structured fields.
	Warn(msg string, fields ...any)

	// Error logs an error-level message with optional structured fields.
	// Pass the error under log.ErrAttrKey ("error") so backends can attach
	// the cockroachdb/errors stack trace.
	Error(msg string, fields ...any)

	// With returns a new Logger with the given fields pre-populated.
	With(fields ...any) Logger

	// Enabled reports whether the logger emits log records at the given level.
	Enabled(ctx context.Context, level Level) bool
}

// Level represents a logging level, compatible with slog.Level.
type Level int

// Standard logging levels, values are compatible with slog.Level.
const (
	LevelDebug Level = -4
	LevelInfo  Level = 0
	LevelWarn  Level = 4
	LevelError Level = 8
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// LoggerProvider creates loggers that share one backend and level.
type LoggerProvider interface {
	// GetLogger returns the default logger instance.
	GetLogger() Logger

	// GetLoggerWithName returns a logger tagged with a component name.
	GetLoggerWithName(name string) Logger

	// SetLevel sets the minimum log level for all loggers created by this provider.
	SetLevel(level Level)
}
