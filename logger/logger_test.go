package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"DEBUG", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"", zapcore.InfoLevel},
		{"verbose", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseLevel(tt.level))
		})
	}
}

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bms-lock.log")

	log, err := New(Config{Level: "debug", Format: "json", File: path, Quiet: true})
	require.NoError(t, err)

	log.Named("monitor").Debug("Connecting")
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"Connecting"`)
	assert.Contains(t, string(data), `"logger":"monitor"`)
	assert.Contains(t, string(data), `"timestamp"`)
}

func TestNewRespectsLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bms-lock.log")

	log, err := New(Config{Level: "warn", File: path, Quiet: true})
	require.NoError(t, err)

	log.Info("hidden")
	log.Warn("shown")
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hidden")
	assert.Contains(t, string(data), "shown")
}

func TestOutputPathsKeepStdoutFree(t *testing.T) {
	assert.Equal(t, []string{"stderr"}, outputPaths(Config{}))
	assert.Equal(t, []string{"stderr", "/var/log/bms-lock.log"}, outputPaths(Config{File: "/var/log/bms-lock.log"}))
	assert.Equal(t, []string{"/var/log/bms-lock.log"}, outputPaths(Config{File: "/var/log/bms-lock.log", Quiet: true}))
	assert.Empty(t, outputPaths(Config{Quiet: true}))
}

func TestNewQuietWithoutFile(t *testing.T) {
	log, err := New(Config{Quiet: true})
	require.NoError(t, err)
	assert.False(t, log.Core().Enabled(zapcore.ErrorLevel))
}
