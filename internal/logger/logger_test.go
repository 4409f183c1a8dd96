package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger_Levels(t *testing.T) {
	tests := []struct {
		level   string
		enabled zapcore.Level
		off     zapcore.Level
	}{
		{"debug", zapcore.DebugLevel, zapcore.DebugLevel - 1},
		{"", zapcore.InfoLevel, zapcore.DebugLevel},
		{"warn", zapcore.WarnLevel, zapcore.InfoLevel},
		{"error", zapcore.ErrorLevel, zapcore.WarnLevel},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			l, err := NewLogger(Options{Level: tt.level, Output: zapcore.AddSync(&bytes.Buffer{})})
			require.NoError(t, err)
			assert.True(t, l.Core().Enabled(tt.enabled))
			assert.False(t, l.Core().Enabled(tt.off))
		})
	}
}

func TestNewLogger_RejectsUnknownSettings(t *testing.T) {
	_, err := NewLogger(Options{Level: "verbose"})
	assert.Error(t, err)

	_, err = NewLogger(Options{Format: "xml"})
	assert.Error(t, err)
}

func TestNewLogger_JSONFields(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewLogger(Options{Service: "spl-relay", Output: zapcore.AddSync(&buf)})
	require.NoError(t, err)

	l.Info("Reading ingested", zap.String("device_id", "3"))
	require.NoError(t, l.Sync())

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "Reading ingested", entry["msg"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "spl-relay", entry["service_name"])
	assert.Equal(t, "3", entry["device_id"])
	assert.Contains(t, entry, "timestamp")
	assert.Contains(t, entry, "hostname")
}

func TestNewLogger_Console(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewLogger(Options{Format: "console", Output: zapcore.AddSync(&buf)})
	require.NoError(t, err)

	l.Warn("Device cache write failed")
	assert.Contains(t, buf.String(), "WARN")
	assert.Contains(t, buf.String(), "Device cache write failed")
}

func TestNewLogger_Sampling(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewLogger(Options{Sampling: true, Output: zapcore.AddSync(&buf)})
	require.NoError(t, err)

	for i := 0; i < sampleFirst+50; i++ {
		l.Warn("Ignoring bus reading for unknown device")
	}
	lines := strings.Count(buf.String(), "\n")
	assert.Less(t, lines, sampleFirst+50)
	assert.GreaterOrEqual(t, lines, sampleFirst)
}

func TestNewLogger_DevelopmentPanicsOnDPanic(t *testing.T) {
	l, err := NewLogger(Options{Development: true, Output: zapcore.AddSync(&bytes.Buffer{})})
	require.NoError(t, err)
	assert.Panics(t, func() { l.DPanic("unexpected state") })

	l, err = NewLogger(Options{Output: zapcore.AddSync(&bytes.Buffer{})})
	require.NoError(t, err)
	assert.NotPanics(t, func() { l.DPanic("unexpected state") })
}
