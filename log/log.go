// Package log provides the module-scoped structured logger used across the
// indexer core. The calling convention (NewModuleLogger(name), then
// logger.Info("message", "key", value, "key", value...)) mirrors the
// klaytn/go-ethereum "log15" style; the backend is zap.
package log

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var root *zap.Logger

func init() {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.TimeKey = "ts"
	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		// fall back to a bare-bones logger rather than panic during package init
		l = zap.NewNop()
	}
	root = l
}

// SetDevelopment swaps in a human-readable console encoder, used by the CLI
// when --dev is set.
func SetDevelopment() {
	cfg := zap.NewDevelopmentConfig()
	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err == nil {
		root = l
	}
}

// Logger is a module-scoped structured logger using the key/value calling
// convention: Info("message", "key1", val1, "key2", val2, ...).
type Logger struct {
	module string
	sugar  *zap.SugaredLogger
}

// NewModuleLogger returns a Logger tagged with the given module name, the
// same way every klaytn package obtains its package-level `logger` var.
func NewModuleLogger(module string) *Logger {
	return &Logger{
		module: module,
		sugar:  root.Sugar().With("module", module),
	}
}

func (l *Logger) Debug(msg string, kv ...interface{}) { l.sugar.Debugw(msg, kv...) }
func (l *Logger) Info(msg string, kv ...interface{})  { l.sugar.Infow(msg, kv...) }
func (l *Logger) Warn(msg string, kv ...interface{})  { l.sugar.Warnw(msg, kv...) }
func (l *Logger) Error(msg string, kv ...interface{}) { l.sugar.Errorw(msg, kv...) }

// Crit logs at error level, prints the message to stderr, and terminates
// the process with exit status 1. Use only for errors that must abort the
// whole run.
func (l *Logger) Crit(msg string, kv ...interface{}) {
	l.sugar.Errorw(msg, kv...)
	fmt.Fprintln(os.Stderr, "fatal error, terminating:", msg)
	os.Exit(1)
}
