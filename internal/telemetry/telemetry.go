// Package telemetry constructs the injected zap logger shared by the
// scoring packets and CLI collaborators. No logger is ever reached
// via a package-level global; callers receive one explicitly.
package telemetry

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds a production-formatted logger. When verbose is
// true the level is lowered to debug, surfacing StalePhenotype skips
// during ingestion and per-packet start/finish lines from the
// scheduler.
func NewLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return cfg.Build()
}

// Noop returns a logger that discards everything, for tests and
// library callers that don't want scoring telemetry.
func Noop() *zap.Logger {
	return zap.NewNop()
}
