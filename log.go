package kadedb

import (
	"sync"

	"go.uber.org/zap"
)

var (
	loggerMu sync.RWMutex
	logger   *zap.Logger = zap.NewNop()
)

// SetLogger overrides the package-level logger. Embedders call this once
// at startup with their own configured *zap.Logger; tests call it with
// zap.NewNop() or an observer-backed logger. The default, before any call,
// is a no-op logger.
func SetLogger(l *zap.Logger) {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	if l == nil {
		l = zap.NewNop()
	}
	logger = l
}

// L returns the current package-level logger.
func L() *zap.Logger {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return logger
}

func zapLevel(level string) zap.AtomicLevel {
	var l zap.AtomicLevel
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	return l
}

// NewProductionLogger builds a zap.Logger configured from cfg, suitable
// for passing to SetLogger.
func NewProductionLogger(cfg LoggingConfig) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zapLevel(cfg.Level)
	return zcfg.Build()
}
