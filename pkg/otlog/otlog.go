// Package otlog is the structured logger shared by the reference
// coordinator, its transport, and cmd/server: a single package-level
// zap.SugaredLogger, configured once at startup from the environment.
package otlog

import (
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	once sync.Once
	base *zap.SugaredLogger
)

// Init configures the package logger from levelName ("debug", "info",
// "warn", "error"; defaults to "info"). It is safe to call more than
// once; only the first call takes effect. Tests that need a fresh
// logger should use NewTest instead of relying on Init.
func Init(levelName string) {
	once.Do(func() {
		base = newSugared(parseLevel(levelName), false)
	})
}

// L returns the package logger, lazily defaulting to info level if Init
// was never called — this keeps library code that logs through otlog
// safe to use standalone, e.g. from tests.
func L() *zap.SugaredLogger {
	Init("info")
	return base
}

// NewTest returns a logger at debug level that writes through the
// standard zap development encoder; intended for use in _test.go files
// that want assertions over log output are out of scope, but still want
// readable failure output.
func NewTest() *zap.SugaredLogger {
	return newSugared(zapcore.DebugLevel, true)
}

func newSugared(level zapcore.Level, development bool) *zap.SugaredLogger {
	cfg := zap.NewProductionConfig()
	if development {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		// Build only fails on a malformed config, which NewProductionConfig
		// never produces; fall back to a bare logger rather than panic.
		logger = zap.NewNop()
	}
	return logger.Sugar()
}

func parseLevel(name string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
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

// Sync flushes any buffered log entries; call it once before process
// exit.
func Sync() {
	if base != nil {
		_ = base.Sync()
	}
}
