package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap's sugared logger for structured key/value logging
type Logger struct {
	*zap.SugaredLogger
}

// New creates a new logger with the specified level and format
func New(level, format string) *Logger {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	cfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(parseLevel(level)),
		Encoding:         parseEncoding(format),
		EncoderConfig:    encoderCfg,
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	log, err := cfg.Build()
	if err != nil {
		// Build only fails on an unknown encoding, which parseEncoding prevents
		log = zap.NewNop()
	}

	return &Logger{
		SugaredLogger: log.Sugar(),
	}
}

// With creates a child logger with additional fields
func (l *Logger) With(args ...interface{}) *Logger {
	return &Logger{
		SugaredLogger: l.SugaredLogger.With(args...),
	}
}

// Debug logs a message with key/value pairs at debug level
func (l *Logger) Debug(msg string, args ...interface{}) {
	l.Debugw(msg, args...)
}

// Info logs a message with key/value pairs at info level
func (l *Logger) Info(msg string, args ...interface{}) {
	l.Infow(msg, args...)
}

// Warn logs a message with key/value pairs at warn level
func (l *Logger) Warn(msg string, args ...interface{}) {
	l.Warnw(msg, args...)
}

// Error logs a message with key/value pairs at error level
func (l *Logger) Error(msg string, args ...interface{}) {
	l.Errorw(msg, args...)
}

// parseLevel converts string level to zapcore.Level
func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// parseEncoding converts a format string to a zap encoding name
func parseEncoding(format string) string {
	if format == "text" {
		return "console"
	}
	return "json"
}
