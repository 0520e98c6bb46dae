package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLogConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultLogConfig()

	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, "json", cfg.Format)
	assert.Equal(t, "stdout", cfg.Output)
}

func TestNewLogger(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		config  LogConfig
		wantErr bool
	}{
		{name: "default config", config: DefaultLogConfig()},
		{name: "console format", config: LogConfig{Level: "debug", Format: "console", Output: "stdout"}},
		{name: "stderr output", config: LogConfig{Level: "warn", Format: "json", Output: "stderr"}},
		{name: "invalid level", config: LogConfig{Level: "loud", Format: "json"}, wantErr: true},
		{name: "invalid format", config: LogConfig{Level: "info", Format: "xml"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			logger, err := NewLogger(tt.config)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, logger)
				return
			}
			assert.NoError(t, err)
			assert.NotNil(t, logger)
		})
	}
}

func TestNewLogger_FileOutput(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "proxy.log")
	logger, err := NewLogger(LogConfig{Level: "info", Format: "json", Output: path})
	require.NoError(t, err)

	logger.Info("written to file")
	require.NoError(t, logger.Sync())
	assert.FileExists(t, path)
}

func TestLogger_WithContext(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger, err := NewLoggerWithWriter(LogConfig{Level: "debug", Format: "json"}, &buf)
	require.NoError(t, err)

	ctx := ContextWithRequestID(context.Background(), "req-1")
	ctx = ContextWithTraceID(ctx, "trace-1")
	ctx = ContextWithSpanID(ctx, "span-1")
	ctx = ContextWithMount(ctx, "dataset")

	logger.WithContext(ctx).Info("graph forwarded", Int("triples", 3))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "graph forwarded", entry["message"])
	assert.Equal(t, "req-1", entry["request_id"])
	assert.Equal(t, "trace-1", entry["trace_id"])
	assert.Equal(t, "span-1", entry["span_id"])
	assert.Equal(t, "dataset", entry["mount"])
	assert.EqualValues(t, 3, entry["triples"])
}

func TestLogger_WithContextEmpty(t *testing.T) {
	t.Parallel()

	logger := NopLogger()
	assert.Same(t, logger, logger.WithContext(context.Background()))
}

func TestLogger_LevelFiltering(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger, err := NewLoggerWithWriter(LogConfig{Level: "warn"}, &buf)
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("hidden")
	assert.Zero(t, buf.Len())

	logger.With(String("component", "test")).Warn("shown")
	assert.Contains(t, buf.String(), `"component":"test"`)
}

func TestContextAccessors_NotSet(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	assert.Empty(t, RequestIDFromContext(ctx))
	assert.Empty(t, TraceIDFromContext(ctx))
	assert.Empty(t, SpanIDFromContext(ctx))
	assert.Empty(t, MountFromContext(ctx))
}

func TestSetMount(t *testing.T) {
	t.Parallel()

	holder := &MountHolder{}
	ctx := ContextWithMountHolder(context.Background(), holder)

	ctx = SetMount(ctx, "docs")
	assert.Equal(t, "docs", holder.Get())
	assert.Equal(t, "docs", MountFromContext(ctx))

	ctx = SetMount(context.Background(), "orphan")
	assert.Equal(t, "orphan", MountFromContext(ctx))
}

func TestEnsureMountHolder(t *testing.T) {
	t.Parallel()

	ctx, outer := EnsureMountHolder(context.Background())
	ctx, inner := EnsureMountHolder(ctx)
	assert.Same(t, outer, inner)

	SetMount(ctx, "data")
	assert.Equal(t, "data", outer.Get())
}

func TestGlobalLogger(t *testing.T) {
	logger := NopLogger()
	SetGlobalLogger(logger)
	t.Cleanup(func() { SetGlobalLogger(nil) })

	assert.Same(t, logger, L())

	SetGlobalLogger(nil)
	assert.NotNil(t, GetGlobalLogger())
}
