package logging

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/queryscout/queryscout/internal/config"
)

const logDirPerm = 0755

var (
	globalLogger *zap.SugaredLogger
	loggerOnce   sync.Once
)

// InitializeLogger initializes the global logger with the given configuration.
// Subsequent calls are no-ops; the first configuration wins.
func InitializeLogger(cfg config.LoggingConfig) error {
	var err error

	loggerOnce.Do(func() {
		globalLogger, err = NewLogger(cfg)
	})

	return err
}

// NewLogger creates a new logger with the given configuration
func NewLogger(cfg config.LoggingConfig) (*zap.SugaredLogger, error) {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	var encoder zapcore.Encoder
	if strings.ToLower(cfg.Format) == "json" {
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	} else {
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	}

	sink, err := openSink(cfg)
	if err != nil {
		return nil, err
	}

	core := zapcore.NewCore(encoder, sink, parseLevel(cfg.Level))

	return zap.New(core).Sugar(), nil
}

func openSink(cfg config.LoggingConfig) (zapcore.WriteSyncer, error) {
	switch strings.ToLower(cfg.Output) {
	case "stdout":
		return zapcore.Lock(os.Stdout), nil
	case "file":
		if err := os.MkdirAll(filepath.Dir(cfg.File), logDirPerm); err != nil {
			return nil, err
		}

		file, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, err
		}

		return zapcore.Lock(file), nil
	default:
		return zapcore.Lock(os.Stderr), nil
	}
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// GetLogger returns the global logger, falling back to a no-op logger when
// InitializeLogger has not been called (tests, library use).
func GetLogger() *zap.SugaredLogger {
	if globalLogger == nil {
		return zap.NewNop().Sugar()
	}

	return globalLogger
}

// SetLogger replaces the global logger. Intended for tests.
func SetLogger(logger *zap.SugaredLogger) {
	globalLogger = logger
}
