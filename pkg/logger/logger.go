// Package logger provides structured, leveled logging for the whole project,
// backed by go.uber.org/zap. Components receive a [Logger] via constructor
// options and fall back to the process-wide [Default] when none is given.
package logger

import (
	"sync/atomic"

	"go.uber.org/zap"
)

// Logger is the logging contract used across the project. All methods accept
// a message followed by alternating key/value pairs.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
	Fatal(msg string, keysAndValues ...any)

	// With returns a child logger with the given key/value pairs attached
	// to every subsequent entry.
	With(keysAndValues ...any) Logger

	// Sync flushes any buffered log entries.
	Sync() error
}

// Compile-time interface check.
var _ Logger = (*zapLogger)(nil)

type zapLogger struct {
	s *zap.SugaredLogger
}

// New wraps a zap.Logger in the project [Logger] interface.
func New(z *zap.Logger) Logger {
	// Skip one frame so call sites, not this wrapper, are reported.
	return &zapLogger{s: z.WithOptions(zap.AddCallerSkip(1)).Sugar()}
}

// MustProduction returns a production-configured logger (JSON, info level).
// Panics if the zap core cannot be built.
func MustProduction() Logger {
	return New(zap.Must(zap.NewProduction()))
}

// MustDevelopment returns a development-configured logger (console, debug
// level). Panics if the zap core cannot be built.
func MustDevelopment() Logger {
	return New(zap.Must(zap.NewDevelopment()))
}

// Nop returns a logger that discards everything. Useful in tests.
func Nop() Logger {
	return New(zap.NewNop())
}

func (l *zapLogger) Debug(msg string, kv ...any) { l.s.Debugw(msg, kv...) }
func (l *zapLogger) Info(msg string, kv ...any)  { l.s.Infow(msg, kv...) }
func (l *zapLogger) Warn(msg string, kv ...any)  { l.s.Warnw(msg, kv...) }
func (l *zapLogger) Error(msg string, kv ...any) { l.s.Errorw(msg, kv...) }
func (l *zapLogger) Fatal(msg string, kv ...any) { l.s.Fatalw(msg, kv...) }

func (l *zapLogger) With(kv ...any) Logger {
	return &zapLogger{s: l.s.With(kv...)}
}

func (l *zapLogger) Sync() error { return l.s.Sync() }

// ---------------------------------------------------------------------------
// Process-wide default
// ---------------------------------------------------------------------------

var defaultLogger atomic.Pointer[Logger]

func init() {
	l := Nop()
	defaultLogger.Store(&l)
}

// Default returns the process-wide logger. Until [SetDefault] is called it
// discards all output.
func Default() Logger {
	return *defaultLogger.Load()
}

// SetDefault replaces the process-wide logger.
func SetDefault(l Logger) {
	if l == nil {
		return
	}
	defaultLogger.Store(&l)
}

// SyncDefault flushes the process-wide logger. Intended for use in defer at
// the top of main.
func SyncDefault() {
	_ = Default().Sync()
}

// Fatal logs through the process-wide logger and exits.
func Fatal(msg string, keysAndValues ...any) {
	Default().Fatal(msg, keysAndValues...)
}
