// Package logging provides zap logger helpers.
package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a zap.Logger configured for development or production.
// Extra output paths (typically the human-readable run log) receive every
// entry in addition to stderr; their parent directories are created.
func New(development bool, extraOutputs ...string) (*zap.Logger, error) {
	for _, out := range extraOutputs {
		if err := ensureDir(out); err != nil {
			return nil, err
		}
	}
	if development {
		cfg := zap.NewDevelopmentConfig()
		cfg.EncoderConfig.TimeKey = "ts"
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		if len(extraOutputs) == 0 {
			cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		}
		cfg.OutputPaths = append(cfg.OutputPaths, extraOutputs...)
		logger, err := cfg.Build()
		if err != nil {
			return nil, fmt.Errorf("build dev logger: %w", err)
		}
		return logger, nil
	}
	cfg := zap.NewProductionConfig()
	cfg.DisableStacktrace = false
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.OutputPaths = append(cfg.OutputPaths, extraOutputs...)
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build prod logger: %w", err)
	}
	return logger, nil
}

func ensureDir(path string) error {
	switch path {
	case "", "stdout", "stderr":
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create log dir for %s: %w", path, err)
	}
	return nil
}
