package logger

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoggerSourceLocation(t *testing.T) {
	tests := []struct {
		name    string
		logFunc func(Logger)
	}{
		{"info", func(l Logger) { l.Info("test message") }},
		{"debug", func(l Logger) { l.Debug("debug message") }},
		{"warn", func(l Logger) { l.Warn("warn message") }},
		{"error", func(l Logger) { l.Error("error message") }},
		{"infof", func(l Logger) { l.Infof("formatted %s", "message") }},
		{"debugf", func(l Logger) { l.Debugf("debug %d", 42) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			l := NewLogger(WithDebug(), WithFormat("text"), WithWriter(&buf), WithQuiet())
			tt.logFunc(l)
			output := buf.String()
			assert.Contains(t, output, "logger_test.go:")
			assert.NotContains(t, output, "internal/logger/logger.go")
		})
	}
}

func TestLoggerSourceLocationWithContext(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(WithDebug(), WithFormat("text"), WithWriter(&buf), WithQuiet())
	ctx := WithLogger(context.Background(), l)

	Info(ctx, "context info message")

	output := buf.String()
	assert.Contains(t, output, "logger_test.go:")
	assert.NotContains(t, output, "internal/logger/logger.go")
	assert.NotContains(t, output, "internal/logger/context.go")
}

func TestLoggerSourceLocationDisabledInProduction(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(WithFormat("text"), WithWriter(&buf), WithQuiet())
	l.Info("production mode")
	assert.False(t, strings.Contains(buf.String(), "source="))
}

func TestLoggerJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(WithDebug(), WithFormat("json"), WithWriter(&buf), WithQuiet())
	l.Info("json format test")
	output := buf.String()
	assert.Contains(t, output, "logger_test.go")
}

func TestLoggerWithAttributesAndGroup(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(WithDebug(), WithFormat("text"), WithWriter(&buf), WithQuiet())
	l.With("key", "value").Info("with attributes")
	assert.Contains(t, buf.String(), "key=value")

	buf.Reset()
	l.WithGroup("grp").With("key", "value").Info("with group")
	assert.Contains(t, buf.String(), "grp.key=value")
}
