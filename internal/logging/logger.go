// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package logging provides the logger used by event processors.
//
// The default logger is a zap SugaredLogger. DISRUPTOR_LOGGING_LEVEL sets
// its level as a zapcore level integer (-1 debug, 0 info, 1 warn, 2 error).
// DISRUPTOR_LOGGING_FILE, when set, sends output to a rotating local file
// instead of stderr.
//
// Processors never log on the per-event path; only lifecycle changes and
// handler failures are logged.
package logging

import (
	"errors"
	"os"
	"strconv"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Level is the alias of zapcore.Level.
type Level = zapcore.Level

const (
	// DebugLevel logs are typically voluminous, and are usually disabled in
	// production.
	DebugLevel Level = iota - 1
	// InfoLevel is the default logging priority.
	InfoLevel
	// WarnLevel logs are more important than Info, but don't need individual
	// human review.
	WarnLevel
	// ErrorLevel logs are high-priority.
	ErrorLevel
)

const (
	envLevel = "DISRUPTOR_LOGGING_LEVEL"
	envFile  = "DISRUPTOR_LOGGING_FILE"
)

// Logger is used for logging formatted messages.
type Logger interface {
	// Debugf logs messages at DEBUG level.
	Debugf(format string, args ...any)
	// Infof logs messages at INFO level.
	Infof(format string, args ...any)
	// Warnf logs messages at WARN level.
	Warnf(format string, args ...any)
	// Errorf logs messages at ERROR level.
	Errorf(format string, args ...any)
}

// Flusher flushes any buffered log entries to the underlying writer.
type Flusher = func() error

var (
	mu           sync.RWMutex
	defaultLog   Logger
	flushLogs    Flusher
	defaultLevel = InfoLevel
)

func init() {
	if lvl := os.Getenv(envLevel); lvl != "" {
		n, err := strconv.ParseInt(lvl, 10, 8)
		if err != nil {
			panic("invalid " + envLevel + ", " + err.Error())
		}
		defaultLevel = Level(n)
	}

	if fileName := os.Getenv(envFile); fileName != "" {
		var err error
		defaultLog, flushLogs, err = CreateLoggerAsLocalFile(fileName, defaultLevel)
		if err != nil {
			panic("invalid " + envFile + ", " + err.Error())
		}
		return
	}

	defaultLog, flushLogs = NewConsoleLogger(defaultLevel)
}

// NewConsoleLogger creates a development logger writing to stderr at level.
func NewConsoleLogger(level Level) (Logger, func() error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.EncoderConfig.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	zapLogger, err := cfg.Build()
	if err != nil {
		zapLogger = zap.NewNop()
	}
	return zapLogger.Sugar(), zapLogger.Sync
}

// CreateLoggerAsLocalFile creates a logger writing to a rotating local file.
func CreateLoggerAsLocalFile(localFilePath string, level Level) (Logger, func() error, error) {
	if localFilePath == "" {
		return nil, nil, errors.New("invalid local logger path")
	}

	// lumberjack.Logger is already safe for concurrent use.
	sink := &lumberjack.Logger{
		Filename:   localFilePath,
		MaxSize:    100, // megabytes
		MaxBackups: 2,
		MaxAge:     15, // days
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.AddSync(sink),
		zap.LevelEnablerFunc(func(l Level) bool { return l >= level }),
	)
	zapLogger := zap.New(core, zap.AddCaller())
	return zapLogger.Sugar(), zapLogger.Sync, nil
}

// NewNop returns a logger that discards everything.
func NewNop() Logger {
	return zap.NewNop().Sugar()
}

// GetDefaultLogger returns the default logger.
func GetDefaultLogger() Logger {
	mu.RLock()
	defer mu.RUnlock()
	return defaultLog
}

// GetDefaultFlusher returns the flusher of the default logger.
func GetDefaultFlusher() Flusher {
	mu.RLock()
	defer mu.RUnlock()
	return flushLogs
}

// SetDefaultLoggerAndFlusher replaces the default logger and its flusher.
// A nil logger discards output.
func SetDefaultLoggerAndFlusher(l Logger, flush Flusher) {
	if l == nil {
		l = NewNop()
	}
	mu.Lock()
	defaultLog, flushLogs = l, flush
	mu.Unlock()
}

// Cleanup flushes the default logger's buffered output.
func Cleanup() {
	if flush := GetDefaultFlusher(); flush != nil {
		_ = flush()
	}
}

// Error logs err through the default logger if it's not nil.
func Error(err error) {
	if err != nil {
		GetDefaultLogger().Errorf("error occurs during runtime, %v", err)
	}
}
