// Package logging holds the process-wide zap logger.
//
// The logger is a no-op until Init is called, so library code and tests can
// log freely without configuring anything. Output goes to stderr because
// stdout carries MCP and CLI payloads.
package logging

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu     sync.RWMutex
	logger = zap.NewNop()
)

// Init builds the global logger. env "development" (or "dev") selects the
// console encoder at debug level; anything else selects the production JSON
// encoder at info level.
func Init(env string) error {
	var (
		l   *zap.Logger
		err error
	)
	switch env {
	case "development", "dev":
		l, err = zap.NewDevelopment()
	default:
		l, err = zap.NewProduction()
	}
	if err != nil {
		return err
	}
	Set(l)
	return nil
}

// Set replaces the global logger. A nil logger resets to a no-op.
func Set(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	mu.Lock()
	logger = l
	mu.Unlock()
}

// L returns the global logger.
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// Sync flushes buffered entries.
func Sync() {
	// stderr sync fails on some platforms; nothing useful to do about it
	_ = L().Sync()
}

func Debug(msg string, fields ...zapcore.Field) {
	L().Debug(msg, fields...)
}

func Info(msg string, fields ...zapcore.Field) {
	L().Info(msg, fields...)
}

func Warn(msg string, fields ...zapcore.Field) {
	L().Warn(msg, fields...)
}

func Error(msg string, fields ...zapcore.Field) {
	L().Error(msg, fields...)
}
