// Package logger builds the zap logger shared by every component.
package logger

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	Level  string
	Format string // json or console
	// File receives a copy of the log when set.
	File string
	// Quiet drops the stderr sink, used while the terminal UI owns the screen.
	Quiet bool
}

// New creates a logger writing to stderr and the optional file. Stdout is left to the serial
// stream.
func New(cfg Config) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	if cfg.Format == "console" {
		config = zap.NewDevelopmentConfig()
	}
	config.Level = zap.NewAtomicLevelAt(ParseLevel(cfg.Level))
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.DisableStacktrace = true

	config.OutputPaths = outputPaths(cfg)
	if len(config.OutputPaths) == 0 {
		return zap.NewNop(), nil
	}

	return config.Build()
}

func outputPaths(cfg Config) []string {
	var paths []string
	if !cfg.Quiet {
		paths = append(paths, "stderr")
	}
	if cfg.File != "" {
		paths = append(paths, cfg.File)
	}
	return paths
}

// ParseLevel maps a level name to a zap level, defaulting to info.
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
