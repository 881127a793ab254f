package logging

import (
	"strings"

	"go.uber.org/zap"
)

// Zap adapts a sugared zap logger to the printf style Logger used across
// the module
type Zap struct {
	sugar *zap.SugaredLogger
}

// New builds a zap logger. Development switches to the console encoder.
func New(level string, development bool) (*Zap, error) {
	cfg := zap.NewProductionConfig()
	if development {
		cfg = zap.NewDevelopmentConfig()
	}

	if strings.TrimSpace(level) != "" {
		lvl, err := zap.ParseAtomicLevel(strings.ToLower(level))
		if err != nil {
			return nil, err
		}
		cfg.Level = lvl
	}

	logger, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, err
	}

	return &Zap{sugar: logger.Sugar()}, nil
}

// Wrap adapts an existing zap logger
func Wrap(logger *zap.Logger) *Zap {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Zap{sugar: logger.Sugar()}
}

// Named returns a child logger scoped to name
func (z *Zap) Named(name string) *Zap {
	return &Zap{sugar: z.sugar.Named(name)}
}

// With returns a child logger carrying key/value pairs
func (z *Zap) With(args ...any) *Zap {
	return &Zap{sugar: z.sugar.With(args...)}
}

func (z *Zap) Debug(format string, args ...any) {
	z.sugar.Debugf(format, args...)
}

func (z *Zap) Info(format string, args ...any) {
	z.sugar.Infof(format, args...)
}

func (z *Zap) Error(format string, args ...any) {
	z.sugar.Errorf(format, args...)
}

// Sync flushes buffered entries
func (z *Zap) Sync() error {
	return z.sugar.Sync()
}
