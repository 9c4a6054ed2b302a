package logger

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"laundry-api/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNilLoggerSafety(t *testing.T) {
	Set(nil)
	Debug("debug")
	Info("info")
	Warn("warn")
	Error("error")
	assert.NotNil(t, With(zap.String("k", "v")))
	assert.NotNil(t, WithRequestID("req-1"))
	assert.NotNil(t, FromContext(context.Background()))
}

func TestFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "app.log")
	require.NoError(t, Init(config.LogConfig{Level: "info", Format: "json", Output: "file", FilePath: path}, "production"))
	t.Cleanup(func() { Set(nil) })

	Info("file logger initialised", zap.Int("entry", 1))
	require.NoError(t, Sync())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestRequestIDPropagation(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	Set(zap.New(core))
	t.Cleanup(func() { Set(nil) })

	ctx := ContextWithRequestID(context.Background(), "req-42")
	FromContext(ctx).Info("hello")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "req-42", logs.All()[0].ContextMap()["request_id"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("warn"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("bogus"))
}
