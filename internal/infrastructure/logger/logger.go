package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Level represents log level
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (l Level) zerolog() zerolog.Level {
	switch l {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// ParseLevel parses log level from string
func ParseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// SessionID identifies this process in every log line
var SessionID = uuid.NewString()

// Logger provides structured logging
type Logger struct {
	zl zerolog.Logger
}

func init() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
}

// New creates a new JSON logger
func New(level Level, output io.Writer) *Logger {
	if output == nil {
		output = os.Stdout
	}
	zl := zerolog.New(output).
		Level(level.zerolog()).
		With().
		Timestamp().
		Str("session", SessionID).
		Logger()
	return &Logger{zl: zl}
}

// NewConsole creates a logger with human readable output
func NewConsole(level Level, output io.Writer) *Logger {
	if output == nil {
		output = os.Stderr
	}
	return New(level, zerolog.ConsoleWriter{Out: output, TimeFormat: time.RFC3339})
}

// WithField returns a new logger with the field added
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{zl: l.zl.With().Interface(key, value).Logger()}
}

// WithFields returns a new logger with the fields added
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	return &Logger{zl: l.zl.With().Fields(fields).Logger()}
}

// Debug logs a debug message
func (l *Logger) Debug(msg string, args ...interface{}) {
	l.zl.Debug().Msg(format(msg, args))
}

// Info logs an info message
func (l *Logger) Info(msg string, args ...interface{}) {
	l.zl.Info().Msg(format(msg, args))
}

// Warn logs a warning message
func (l *Logger) Warn(msg string, args ...interface{}) {
	l.zl.Warn().Msg(format(msg, args))
}

// Error logs an error message
func (l *Logger) Error(msg string, args ...interface{}) {
	l.zl.Error().Msg(format(msg, args))
}

// TrackTime logs the start of msg and returns a func logging its completion
// with the elapsed time. Use as defer log.TrackTime("refresh")().
func (l *Logger) TrackTime(msg string) func() {
	start := time.Now()
	l.zl.Debug().Msg("Start " + msg)
	return func() {
		l.zl.Debug().
			Int64("elapsed_ms", time.Since(start).Milliseconds()).
			Msg("Completed " + msg)
	}
}

func format(msg string, args []interface{}) string {
	if len(args) == 0 {
		return msg
	}
	return fmt.Sprintf(msg, args...)
}

// Global logger instance
var defaultLogger = New(LevelInfo, os.Stdout)

// SetDefault sets the default logger
func SetDefault(l *Logger) {
	defaultLogger = l
}

// Default returns the default logger
func Default() *Logger {
	return defaultLogger
}
