package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// SetupLogger installs a slog default logger that writes Cloud Logging shaped
// JSON to stdout, and makes it the process-wide provider.
func SetupLogger(loglevel string) {
	handler := NewCloudHandler(os.Stdout, ToLogLevel(loglevel))
	slog.SetDefault(slog.New(handler))
	SetProvider(NewSlogProvider(handler))
}

// NewCloudHandler returns a JSON slog handler using Cloud Logging field names,
// wrapped so that cockroachdb/errors stack traces are emitted.
func NewCloudHandler(w io.Writer, level slog.Level) slog.Handler {
	ops := slog.HandlerOptions{
		AddSource: true,
		Level:     level,
		ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
			switch attr.Key {
			case slog.LevelKey:
				attr = slog.Attr{Key: "severity", Value: attr.Value}
			case slog.MessageKey:
				attr = slog.Attr{Key: "message", Value: attr.Value}
			case slog.SourceKey:
				attr = slog.Attr{Key: "logging.googleapis.com/sourceLocation", Value: attr.Value}
			}
			return attr
		},
	}
	return WrapByErrFmtHandler(slog.NewJSONHandler(w, &ops))
}

// ToLogLevel converts a level name to slog.Level. It panics on unknown names;
// use ParseLevel for user input.
func ToLogLevel(level string) slog.Level {
	l, err := ParseLevel(level)
	if err != nil {
		panic(err.Error())
	}
	return slog.Level(l)
}

// ParseLevel converts "debug", "info", "warn" or "error" to a Level.
func ParseLevel(level string) (Level, error) {
	switch strings.ToLower(level) {
	case "info", "":
		return LevelInfo, nil
	case "debug":
		return LevelDebug, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("invalid log level :%s", level)
	}
}

const (
	ErrAttrKey        = "error"
	StacktraceAttrKey = "stacktrace"
)

// ErrAttr is a wrapper to pass err to slog.
func ErrAttr(err error) slog.Attr {
	return slog.Any(ErrAttrKey, err)
}

// SlogProvider serves Loggers backed by a slog.Handler.
type SlogProvider struct {
	handler slog.Handler
	level   *slog.LevelVar
}

// NewSlogProvider wraps handler. The level set through SetLevel is applied on
// top of the handler's own level.
func NewSlogProvider(handler slog.Handler) *SlogProvider {
	return &SlogProvider{handler: handler, level: new(slog.LevelVar)}
}

// GetLogger implements LoggerProvider.GetLogger.
func (p *SlogProvider) GetLogger() Logger {
	return &slogLogger{logger: slog.New(p.handler), level: p.level}
}

// GetLoggerWithName implements LoggerProvider.GetLoggerWithName.
func (p *SlogProvider) GetLoggerWithName(name string) Logger {
	return &slogLogger{logger: slog.New(p.handler).With(ComponentKey, name), level: p.level}
}

// SetLevel implements LoggerProvider.SetLevel.
func (p *SlogProvider) SetLevel(level Level) {
	p.level.Set(slog.Level(level))
}

type slogLogger struct {
	logger *slog.Logger
	level  *slog.LevelVar
}

func (l *slogLogger) log(level Level, msg string, fields []any) {
	if slog.Level(level) < l.level.Level() {
		return
	}
	l.logger.Log(context.Background(), slog.Level(level), msg, fields...)
}

func (l *slogLogger) Debug(msg string, fields ...any) { l.log(LevelDebug, msg, fields) }
func (l *slogLogger) Info(msg string, fields ...any)  { l.log(LevelInfo, msg, fields) }
func (l *slogLogger) Warn(msg string, fields ...any)  { l.log(LevelWarn, msg, fields) }
func (l *slogLogger) Error(msg string, fields ...any) { l.log(LevelError, msg, fields) }

func (l *slogLogger) With(fields ...any) Logger {
	return &slogLogger{logger: l.logger.With(fields...), level: l.level}
}

func (l *slogLogger) Enabled(ctx context.Context, level Level) bool {
	return slog.Level(level) >= l.level.Level() && l.logger.Enabled(ctx, slog.Level(level))
}
