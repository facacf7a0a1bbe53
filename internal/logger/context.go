package logger

import (
	"context"
	"fmt"
	"log/slog"
)

type contextKey struct{}

// WithLogger attaches l to ctx so downstream code can retrieve it via
// FromContext without threading a Logger argument through every call.
func WithLogger(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, l)
}

// FromContext returns the Logger attached to ctx, or a quiet default
// logger if none was attached.
func FromContext(ctx context.Context) Logger {
	if l, ok := ctx.Value(contextKey{}).(Logger); ok {
		return l
	}
	return NewLogger(WithQuiet())
}

func Debug(ctx context.Context, msg string, args ...any) {
	logWithSkip(FromContext(ctx), slog.LevelDebug, msg, args...)
}
func Info(ctx context.Context, msg string, args ...any) {
	logWithSkip(FromContext(ctx), slog.LevelInfo, msg, args...)
}
func Warn(ctx context.Context, msg string, args ...any) {
	logWithSkip(FromContext(ctx), slog.LevelWarn, msg, args...)
}
func Error(ctx context.Context, msg string, args ...any) {
	logWithSkip(FromContext(ctx), slog.LevelError, msg, args...)
}

func Debugf(ctx context.Context, format string, args ...any) {
	logWithSkip(FromContext(ctx), slog.LevelDebug, fmt.Sprintf(format, args...))
}
func Infof(ctx context.Context, format string, args ...any) {
	logWithSkip(FromContext(ctx), slog.LevelInfo, fmt.Sprintf(format, args...))
}
func Warnf(ctx context.Context, format string, args ...any) {
	logWithSkip(FromContext(ctx), slog.LevelWarn, fmt.Sprintf(format, args...))
}
func Errorf(ctx context.Context, format string, args ...any) {
	logWithSkip(FromContext(ctx), slog.LevelError, fmt.Sprintf(format, args...))
}
