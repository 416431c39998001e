package log

import (
	"context"
	"log/slog"

	crdb "github.com/cockroachdb/errors"

	"github.com/YuminosukeSato/tabprep/pkg/errors"
)

// ErrFmtHandler is a slog handler that expands the error attribute of a
// record. It adds the cockroachdb/errors stack trace and, when the error
// chain carries them, the failing pipeline stage and column.
type ErrFmtHandler struct {
	handler slog.Handler
}

// WrapByErrFmtHandler wraps handler with an ErrFmtHandler.
func WrapByErrFmtHandler(handler slog.Handler) slog.Handler {
	return &ErrFmtHandler{handler: handler}
}

func (eh *ErrFmtHandler) Enabled(ctx context.Context, l slog.Level) bool {
	return eh.handler.Enabled(ctx, l)
}

func (eh *ErrFmtHandler) Handle(ctx context.Context, r slog.Record) error {
	var err error
	r.Attrs(func(attr slog.Attr) bool {
		if attr.Key != ErrAttrKey {
			return true
		}
		err, _ = attr.Value.Any().(error)
		return false
	})
	if err != nil {
		r.AddAttrs(errorAttrs(err)...)
	}
	return eh.handler.Handle(ctx, r)
}

func (eh *ErrFmtHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ErrFmtHandler{handler: eh.handler.WithAttrs(attrs)}
}

func (eh *ErrFmtHandler) WithGroup(g string) slog.Handler {
	return &ErrFmtHandler{handler: eh.handler.WithGroup(g)}
}

// errorAttrs lists the attributes derived from err: stage and column first,
// then the stack trace.
func errorAttrs(err error) []slog.Attr {
	var attrs []slog.Attr

	var stageErr *errors.StageError
	if errors.As(err, &stageErr) {
		attrs = append(attrs, slog.String(StageKey, stageErr.Stage))
	}
	if column := errorColumn(err); column != "" {
		attrs = append(attrs, slog.String(ColumnKey, column))
	}
	if st := extractStacktrace(err); st != "" {
		attrs = append(attrs, slog.String(StacktraceAttrKey, st))
	}
	return attrs
}

func errorColumn(err error) string {
	var cfgErr *errors.ConfigurationError
	if errors.As(err, &cfgErr) {
		return cfgErr.Column
	}
	var levelErr *errors.UnknownLevelError
	if errors.As(err, &levelErr) {
		return levelErr.Column
	}
	return ""
}

// extractStacktrace returns the outermost stack recorded by cockroachdb/errors.
func extractStacktrace(err error) string {
	for ; err != nil; err = crdb.UnwrapOnce(err) {
		if details := crdb.GetSafeDetails(err).SafeDetails; len(details) > 0 {
			return details[0]
		}
	}
	return ""
}
