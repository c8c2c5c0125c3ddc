// Package logger is the structured logger shared by the service and the CLI.
package logger

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LoggerOptions attaches one key/value pair to a log entry.
type LoggerOptions struct {
	Key  string
	Data any
}

var (
	mu     sync.RWMutex
	Logger = zap.NewNop()
)

// Init replaces the no-op logger. format is "json" or "console".
func Init(level, format string) error {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}

	var cfg zap.Config
	switch strings.ToLower(format) {
	case "", "json":
		cfg = zap.NewProductionConfig()
	case "console":
		cfg = zap.NewDevelopmentConfig()
	default:
		return fmt.Errorf("invalid log format %q", format)
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	l, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	Set(l)
	return nil
}

// Set installs l as the package logger.
func Set(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	Logger = l
}

// Sync flushes buffered entries.
func Sync() {
	_ = get().Sync()
}

func get() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return Logger
}

func fields(payload []LoggerOptions) []zapcore.Field {
	zapFields := make([]zapcore.Field, 0, len(payload))
	for _, data := range payload {
		if err, ok := data.Data.(error); ok {
			zapFields = append(zapFields, zap.NamedError(data.Key, err))
			continue
		}
		zapFields = append(zapFields, zap.Any(data.Key, data.Data))
	}
	return zapFields
}

// Debug logs debug level messages.
func Debug(msg string, payload ...LoggerOptions) {
	get().Debug(msg, fields(payload)...)
}

// Info logs info level messages.
func Info(msg string, payload ...LoggerOptions) {
	get().Info(msg, fields(payload)...)
}

// Warning logs warning messages.
func Warning(msg string, payload ...LoggerOptions) {
	get().Warn(msg, fields(payload)...)
}

// Error logs error messages.
// Describe the incident in msg and pass the error through logger options
// with key "error".
func Error(msg string, payload ...LoggerOptions) {
	get().Error(msg, fields(payload)...)
}
