package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/queryscout/queryscout/internal/config"
)

func TestNewLoggerWritesToFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "logs", "app.log")

	logger, err := NewLogger(config.LoggingConfig{
		Level:  "debug",
		Format: "json",
		Output: "file",
		File:   logFile,
	})
	require.NoError(t, err)

	logger.Infow("index built", "documents", 3)
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "index built")
	assert.Contains(t, string(data), `"documents":3`)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"INFO", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"nonsense", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, parseLevel(tt.input), "level %q", tt.input)
	}
}

func TestGetLoggerUninitializedIsNoop(t *testing.T) {
	previous := globalLogger
	SetLogger(nil)

	defer SetLogger(previous)

	logger := GetLogger()
	require.NotNil(t, logger)

	// Must not panic
	logger.Debugw("ignored", "key", "value")
}
