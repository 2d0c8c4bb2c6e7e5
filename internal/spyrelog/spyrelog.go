// Package spyrelog provides the process-wide structured logger shared by
// the driver and the VM's debug-trace path. It wraps zap the way the
// corpus's other VM-shaped projects do: one logger built in main, threaded
// down rather than reached for as a global.
package spyrelog

import "go.uber.org/zap"

// New builds a logger for interactive/CLI use: colored level, short caller,
// console-friendly. Pass debug=true to include zap.DebugLevel output (the
// driver's per-stage "emitted assembly"/"assembled" lines); the VM itself
// logs only its fatal-error line.
func New(debug bool) *zap.Logger {
	cfg := zap.NewDevelopmentConfig()
	if !debug {
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	cfg.DisableStacktrace = true
	logger, err := cfg.Build()
	if err != nil {
		// Logger construction failure is not itself a Spyre fatal error
		// (no source location applies); fall back to a no-op logger so
		// callers never need a nil check.
		return zap.NewNop()
	}
	return logger
}
