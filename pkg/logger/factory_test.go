package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/rtkit/pkg/logger"
)

type requestIDKey struct{}

func logLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	return record
}

func TestNew_Defaults(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.New(logger.WithOutput(&buf))
	log.Info("hello")

	record := logLine(t, &buf)
	assert.Equal(t, "hello", record["msg"])
	assert.Equal(t, "INFO", record["level"])
}

func TestNew_DebugFilteredByDefault(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.New(logger.WithOutput(&buf))
	log.Debug("hidden")
	assert.Empty(t, buf.Bytes())
}

func TestNew_ProductionPreset(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.New(logger.WithProduction("rtkit"), logger.WithOutput(&buf))
	log.Info("up")

	record := logLine(t, &buf)
	assert.Equal(t, "rtkit", record["service"])
	assert.Equal(t, "production", record["env"])
}

func TestNew_TextFormat(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.New(logger.WithFormat(logger.FormatText), logger.WithOutput(&buf))
	log.Info("plain")
	assert.Contains(t, buf.String(), "msg=plain")
}

func TestNew_InvalidFormatPanics(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { logger.New(logger.WithFormat("yaml")) })
}

func TestNew_ContextValue(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.New(
		logger.WithOutput(&buf),
		logger.WithContextValue("request_id", requestIDKey{}),
	)

	ctx := context.WithValue(context.Background(), requestIDKey{}, "req-1")
	log.InfoContext(ctx, "with request")

	record := logLine(t, &buf)
	assert.Equal(t, "req-1", record["request_id"])
}

func TestNew_ContextValueAbsent(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.New(
		logger.WithOutput(&buf),
		logger.WithContextValue("request_id", requestIDKey{}),
	)
	log.InfoContext(context.Background(), "no request")

	record := logLine(t, &buf)
	_, ok := record["request_id"]
	assert.False(t, ok)
}

func TestNew_StaticAttrs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.New(
		logger.WithOutput(&buf),
		logger.WithAttr(slog.String("component", "notifier")),
	)
	log.Info("tagged")

	record := logLine(t, &buf)
	assert.Equal(t, "notifier", record["component"])
}
