// Package logger wraps zap the way the rest of this lineage's services do:
// a thin Logger with leveled, structured methods and a .With for scoped
// child loggers, so callers never touch zap's Config directly.
package logger

import (
	"strings"

	"go.uber.org/zap"
)

type Logger struct {
	sugar *zap.SugaredLogger
}

// New builds a Logger. mode "prod"/"production" gets zap's production
// config (JSON encoding); anything else gets the development config
// (console encoding, colorized levels). Both run at debug level so the demo
// harness is chatty by default.
func New(mode string) (*Logger, error) {
	var cfg zap.Config
	switch strings.ToLower(mode) {
	case "prod", "production":
		cfg = zap.NewProductionConfig()
	default:
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)

	built, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{sugar: built.Sugar()}, nil
}

// Noop returns a Logger that discards everything, for tests and for
// components that accept a nil-safe default when the caller doesn't care.
func Noop() *Logger {
	return &Logger{sugar: zap.NewNop().Sugar()}
}

func (l *Logger) Sync() {
	if l == nil || l.sugar == nil {
		return
	}
	_ = l.sugar.Sync()
}

func (l *Logger) Debug(msg string, kv ...any) { l.log(l.sugar.Debugw, msg, kv) }
func (l *Logger) Info(msg string, kv ...any)   { l.log(l.sugar.Infow, msg, kv) }
func (l *Logger) Warn(msg string, kv ...any)   { l.log(l.sugar.Warnw, msg, kv) }
func (l *Logger) Error(msg string, kv ...any)  { l.log(l.sugar.Errorw, msg, kv) }

func (l *Logger) log(f func(string, ...any), msg string, kv []any) {
	if l == nil || l.sugar == nil {
		return
	}
	f(msg, kv...)
}

func (l *Logger) With(kv ...any) *Logger {
	if l == nil || l.sugar == nil {
		return l
	}
	return &Logger{sugar: l.sugar.With(kv...)}
}
