package stdout

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogger_Levels(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := NewFromZap(zap.New(core))

	logger.Debug("debug msg", "k", 1)
	logger.Info("info msg")
	logger.Warn("warn msg")
	logger.Error("error msg", "error", errors.New("boom"))

	entries := logs.All()
	require.Len(t, entries, 4)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, int64(1), entries[0].ContextMap()["k"])
	assert.Equal(t, zapcore.WarnLevel, entries[2].Level)
	assert.Equal(t, "boom", entries[3].ContextMap()["error"])
}

func TestLogger_WithFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger := NewFromZap(zap.New(core)).WithFields(map[string]interface{}{
		"component": "runtime-adapter",
	})

	logger.Info("ready", "port", 8080)
	logger.Debug("filtered out")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "runtime-adapter", entries[0].ContextMap()["component"])
	assert.Equal(t, int64(8080), entries[0].ContextMap()["port"])
}

func TestNewLogger_InvalidLevel(t *testing.T) {
	_, err := NewLogger("verbose", true)
	assert.Error(t, err)

	l, err := NewLogger("debug", false)
	require.NoError(t, err)
	assert.NotNil(t, l)
}
