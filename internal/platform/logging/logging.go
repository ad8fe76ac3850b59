// Package logging builds the zap loggers shared by guildboard commands.
package logging

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// EnvProduction selects JSON output and sampling.
const EnvProduction = "production"

// New returns a logger for env at level.
//
// Unknown levels fall back to info so a typo in configuration never stops
// the process from starting.
func New(env, level string) (*zap.Logger, error) {
	var config zap.Config

	if strings.EqualFold(strings.TrimSpace(env), EnvProduction) {
		config = zap.NewProductionConfig()
	} else {
		config = zap.NewDevelopmentConfig()
	}

	zapLevel, err := zapcore.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		zapLevel = zapcore.InfoLevel
	}
	config.Level = zap.NewAtomicLevelAt(zapLevel)

	return config.Build()
}

// OrNop returns logger, or a no-op logger when logger is nil.
func OrNop(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
