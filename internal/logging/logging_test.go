package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), "not JSON: %s", buf.String())
	return entry
}

func TestSetup_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("authcore", "1.2.3", "json", "info", &buf)

	logger.Info("hello")

	entry := decodeLine(t, &buf)
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, "authcore", entry["service"])
	assert.Equal(t, "1.2.3", entry["version"])
	assert.Contains(t, entry, "time")
	assert.Contains(t, entry, "level")
}

func TestSetup_ServiceStaysTopLevelInGroups(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("authcore", "1.2.3", "json", "info", &buf)

	logger.WithGroup("http").Info("request", slog.Int("status", 200))

	entry := decodeLine(t, &buf)
	assert.Equal(t, "authcore", entry["service"])
	assert.Equal(t, "1.2.3", entry["version"])
	group, ok := entry["http"].(map[string]any)
	require.True(t, ok, "missing http group: %v", entry)
	assert.Equal(t, float64(200), group["status"])
	assert.NotContains(t, group, "service")
	assert.NotContains(t, group, "version")
}

func TestSetup_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("authcore", "dev", "text", "info", &buf)

	logger.Info("plain message")

	out := buf.String()
	assert.Contains(t, out, "plain message")
	assert.Contains(t, out, "service=authcore")
}

func TestSetup_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("authcore", "dev", "json", "warn", &buf)

	logger.Info("dropped")
	assert.Zero(t, buf.Len())

	logger.Warn("kept")
	assert.Equal(t, "kept", decodeLine(t, &buf)["msg"])
}

func TestHandler_TraceContext(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("authcore", "dev", "json", "info", &buf)

	traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	require.NoError(t, err)
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID,
		SpanID:  spanID,
	}))

	logger.InfoContext(ctx, "traced")

	entry := decodeLine(t, &buf)
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", entry["trace_id"])
	assert.Equal(t, "00f067aa0ba902b7", entry["span_id"])
}

func TestHandler_NoTraceContext(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("authcore", "dev", "json", "info", &buf)

	logger.Info("untraced")

	entry := decodeLine(t, &buf)
	assert.NotContains(t, entry, "trace_id")
	assert.NotContains(t, entry, "span_id")
}

func TestHandler_WithAttrsKeepsService(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("authcore", "dev", "json", "info", &buf).With("component", "api")

	logger.Info("scoped")

	entry := decodeLine(t, &buf)
	assert.Equal(t, "api", entry["component"])
	assert.Equal(t, "authcore", entry["service"])
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{" warn ", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestLogError_OopsCodeAndContext(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("authcore", "dev", "json", "info", &buf)

	err := oops.Code("POSTGRES_QUERY_FAILED").With("operation", "insert identity").Wrap(errors.New("boom"))
	LogError(context.Background(), logger, "register failed", err)

	entry := decodeLine(t, &buf)
	assert.Equal(t, "register failed", entry["msg"])
	assert.Equal(t, "ERROR", entry["level"])
	assert.Equal(t, "POSTGRES_QUERY_FAILED", entry["code"])
	assert.Equal(t, "insert identity", entry["operation"])
	assert.Contains(t, entry["error"], "boom")
}

func TestLogError_PlainError(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("authcore", "dev", "json", "info", &buf)

	LogError(context.Background(), logger, "failed", errors.New("plain"))

	entry := decodeLine(t, &buf)
	assert.Equal(t, "plain", entry["error"])
	assert.NotContains(t, entry, "code")
}

func TestLogError_NilInputs(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("authcore", "dev", "json", "info", &buf)

	LogError(context.Background(), logger, "nothing", nil)
	LogError(context.Background(), nil, "nothing", errors.New("x"))

	assert.Zero(t, buf.Len())
}
