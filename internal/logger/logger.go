// Package logger provides presto's structured logger, built on log/slog
// and fanned out to multiple destinations with samber/slog-multi.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"time"

	slogmulti "github.com/samber/slog-multi"
)

// levelCritical sits above slog.LevelError: slog has no built-in CRITICAL
// level, and presto's --log flag accepts one (spec.md §6).
const levelCritical = slog.Level(12)

// ParseLevel maps presto's --log flag values to a slog.Level, matching
// spec.md §6: DEBUG|INFO|WARNING|ERROR|CRITICAL, case-insensitive.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToUpper(name) {
	case "DEBUG":
		return slog.LevelDebug, nil
	case "INFO", "":
		return slog.LevelInfo, nil
	case "WARNING", "WARN":
		return slog.LevelWarn, nil
	case "ERROR":
		return slog.LevelError, nil
	case "CRITICAL":
		return levelCritical, nil
	default:
		return 0, fmt.Errorf("logger: unknown log level %q", name)
	}
}

// Logger is the logging surface used throughout presto. Attribution
// methods (With, WithGroup) return a Logger so call sites can build up
// structured context without ever touching slog directly.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	With(args ...any) Logger
	WithGroup(name string) Logger
}

type logger struct {
	base *slog.Logger
}

// Option configures NewLogger.
type Option func(*config)

type config struct {
	debug   bool
	level   *slog.Level
	format  string
	writer  io.Writer
	quiet   bool
	logFile *os.File
}

// WithDebug enables debug-level logging and source-location attribution.
func WithDebug() Option {
	return func(c *config) { c.debug = true }
}

// WithLevel sets the minimum record level directly, for callers (the CLI's
// --log flag) that resolve a level more granular than the debug/info
// split WithDebug covers. A level at or below slog.LevelDebug also turns
// on source-location attribution, matching WithDebug's behavior.
func WithLevel(level slog.Level) Option {
	return func(c *config) { c.level = &level }
}

// WithFormat selects "text" (default) or "json" record formatting.
func WithFormat(format string) Option {
	return func(c *config) { c.format = format }
}

// WithWriter sets the primary destination for log records. Defaults to
// os.Stderr.
func WithWriter(w io.Writer) Option {
	return func(c *config) { c.writer = w }
}

// WithQuiet suppresses the additional stdout mirror NewLogger otherwise
// adds, leaving only the configured writer (and log file, if any).
func WithQuiet() Option {
	return func(c *config) { c.quiet = true }
}

// WithLogFile fans records out to f in addition to the primary writer.
func WithLogFile(f *os.File) Option {
	return func(c *config) { c.logFile = f }
}

// NewLogger builds a Logger from the given options.
func NewLogger(opts ...Option) Logger {
	c := &config{format: "text", writer: os.Stderr}
	for _, opt := range opts {
		opt(c)
	}

	var writers []io.Writer
	writers = append(writers, c.writer)
	if !c.quiet && c.writer != os.Stdout {
		writers = append(writers, os.Stdout)
	}
	if c.logFile != nil {
		writers = append(writers, c.logFile)
	}

	level := slog.LevelInfo
	if c.level != nil {
		level = *c.level
	}
	if c.debug {
		level = slog.LevelDebug
	}

	handlerOpts := &slog.HandlerOptions{Level: level, AddSource: level <= slog.LevelDebug}

	handlers := make([]slog.Handler, 0, len(writers))
	for _, w := range writers {
		if c.format == "json" {
			handlers = append(handlers, slog.NewJSONHandler(w, handlerOpts))
		} else {
			handlers = append(handlers, slog.NewTextHandler(w, handlerOpts))
		}
	}

	var handler slog.Handler
	if len(handlers) == 1 {
		handler = handlers[0]
	} else {
		fanout := make([]slog.Handler, len(handlers))
		copy(fanout, handlers)
		handler = slogmulti.Fanout(fanout...)
	}

	return &logger{base: slog.New(handler)}
}

// logAt emits a record attributed to the caller of the logging method
// that called logAt, so the reported source is the application call site
// rather than a frame inside this package. extraSkip lets a wrapper
// (e.g. the context-carried package functions) account for its own
// additional frame.
func (l *logger) logAt(level slog.Level, extraSkip int, msg string, args ...any) {
	if !l.base.Enabled(context.Background(), level) {
		return
	}
	var pcs [1]uintptr
	runtime.Callers(3+extraSkip, pcs[:])
	r := slog.NewRecord(time.Now(), level, msg, pcs[0])
	r.Add(args...)
	_ = l.base.Handler().Handle(context.Background(), r)
}

func (l *logger) Debug(msg string, args ...any) { l.logAt(slog.LevelDebug, 0, msg, args...) }
func (l *logger) Info(msg string, args ...any)  { l.logAt(slog.LevelInfo, 0, msg, args...) }
func (l *logger) Warn(msg string, args ...any)  { l.logAt(slog.LevelWarn, 0, msg, args...) }
func (l *logger) Error(msg string, args ...any) { l.logAt(slog.LevelError, 0, msg, args...) }

func (l *logger) Debugf(format string, args ...any) {
	l.logAt(slog.LevelDebug, 0, fmt.Sprintf(format, args...))
}
func (l *logger) Infof(format string, args ...any) {
	l.logAt(slog.LevelInfo, 0, fmt.Sprintf(format, args...))
}
func (l *logger) Warnf(format string, args ...any) {
	l.logAt(slog.LevelWarn, 0, fmt.Sprintf(format, args...))
}
func (l *logger) Errorf(format string, args ...any) {
	l.logAt(slog.LevelError, 0, fmt.Sprintf(format, args...))
}

// logWithSkip is used by the context-carried package-level functions in
// context.go to account for their own extra call frame. Loggers that
// are not *logger (a custom Logger implementation) fall back to the
// plain interface methods, losing the precise source location.
func logWithSkip(l Logger, level slog.Level, msg string, args ...any) {
	if impl, ok := l.(*logger); ok {
		impl.logAt(level, 1, msg, args...)
		return
	}
	switch level {
	case slog.LevelDebug:
		l.Debug(msg, args...)
	case slog.LevelWarn:
		l.Warn(msg, args...)
	case slog.LevelError:
		l.Error(msg, args...)
	default:
		l.Info(msg, args...)
	}
}

func (l *logger) With(args ...any) Logger {
	return &logger{base: l.base.With(args...)}
}

func (l *logger) WithGroup(name string) Logger {
	return &logger{base: l.base.WithGroup(name)}
}
