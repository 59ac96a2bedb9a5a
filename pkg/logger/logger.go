// Package logger builds the structured loggers shared by every subsystem
// of ignite. Every component takes a *zap.SugaredLogger in its Config
// rather than constructing its own, so callers can redirect output or
// attach fields (request IDs, data directory, etc.) in one place.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a production-style zap logger scoped to service, with a
// human-readable console encoder suitable for a CLI/embedded store. It
// never fails: if the underlying zap config can't build for some reason
// the fallback is zap.NewNop(), since a logging failure should never take
// the store down with it.
func New(service string) *zap.SugaredLogger {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.Encoding = "console"

	log, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return zap.NewNop().Sugar()
	}

	return log.Sugar().With("service", service)
}

// Nop returns a logger that discards everything, useful for tests that
// don't want log noise on failure paths they're deliberately exercising.
func Nop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
