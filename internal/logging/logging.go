// Package logging builds the planner's zap logger.
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ParseLevel accepts debug, info, warn and error. Empty means info.
func ParseLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel, nil
	case "", "info":
		return zapcore.InfoLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level: %q (expected debug|info|warn|error)", level)
	}
}

// New returns a logger writing to outputs (stderr when none). format is "json" or
// "console".
func New(level, format string, outputs ...string) (*zap.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	var cfg zap.Config
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "console":
		cfg = zap.NewDevelopmentConfig()
		cfg.DisableStacktrace = true
	case "json":
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "timestamp"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	default:
		return nil, fmt.Errorf("unknown log format: %q (expected console|json)", format)
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	if len(outputs) == 0 {
		outputs = []string{"stderr"}
	}
	cfg.OutputPaths = outputs
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg.Build()
}
