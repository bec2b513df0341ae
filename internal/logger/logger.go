// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package logger provides the structured logger shared by the import, index
// and serving paths.
package logger

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	sigilerr "github.com/sigil-dev/snomed/pkg/errors"
)

// Logger wraps a zap sugared logger with key/value helpers.
type Logger struct {
	SugaredLogger *zap.SugaredLogger
}

// New builds a logger. Mode "prod" or "production" emits JSON; anything else
// uses the development console encoder. Level is a zap level name.
func New(mode, level string) (*Logger, error) {
	lvl, err := zapcore.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return nil, sigilerr.Wrapf(err, sigilerr.CodeConfigValidateInvalidValue, "parsing log level %q", level)
	}

	var cfg zap.Config
	switch strings.ToLower(mode) {
	case "prod", "production":
		cfg = zap.NewProductionConfig()
	default:
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	// Command output goes to stdout; diagnostics stay on stderr.
	cfg.OutputPaths = []string{"stderr"}

	zl, err := cfg.Build()
	if err != nil {
		return nil, sigilerr.Wrap(err, sigilerr.CodeConfigValidateInvalidValue, "building logger")
	}
	return &Logger{SugaredLogger: zl.Sugar()}, nil
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar()}
}

func (l *Logger) Sync() {
	_ = l.SugaredLogger.Sync()
}

func (l *Logger) Debug(msg string, keysAndValues ...any) {
	l.SugaredLogger.Debugw(msg, keysAndValues...)
}

func (l *Logger) Info(msg string, keysAndValues ...any) {
	l.SugaredLogger.Infow(msg, keysAndValues...)
}

func (l *Logger) Warn(msg string, keysAndValues ...any) {
	l.SugaredLogger.Warnw(msg, keysAndValues...)
}

// Error logs err with its coded fields attached.
func (l *Logger) Error(msg string, err error, keysAndValues ...any) {
	kv := append([]any{"error", err}, keysAndValues...)
	if code := sigilerr.CodeOf(err); code != "" {
		kv = append(kv, "code", string(code))
	}
	l.SugaredLogger.Errorw(msg, kv...)
}

func (l *Logger) With(keysAndValues ...any) *Logger {
	return &Logger{SugaredLogger: l.SugaredLogger.With(keysAndValues...)}
}

// Named returns a child logger scoped to a component.
func (l *Logger) Named(name string) *Logger {
	return &Logger{SugaredLogger: l.SugaredLogger.Named(name)}
}
