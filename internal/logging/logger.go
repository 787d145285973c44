package logging

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type requestIDKey struct{}

// Setup configures the global zerolog logger. Development gets a console
// writer; everything else logs JSON lines to stderr.
func Setup(level, env string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = time.RFC3339Nano

	var out io.Writer = os.Stderr
	if env != "production" {
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}

	logger := zerolog.New(out).With().Timestamp().Logger()
	log.Logger = logger
	return logger
}

// WithRequestID stores the request ID on ctx.
func WithRequestID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, rid)
}

// RequestID extracts the request ID from ctx, or "" when none was set.
func RequestID(ctx context.Context) string {
	if rid, ok := ctx.Value(requestIDKey{}).(string); ok {
		return rid
	}
	return ""
}

// Logger provides structured logging for services, tagged with the
// request that triggered the work.
type Logger struct {
	zl zerolog.Logger
}

// New creates a logger bound to the request ID carried by ctx.
func New(ctx context.Context) *Logger {
	requestID := RequestID(ctx)
	if requestID == "" {
		requestID = "unknown"
	}
	return &Logger{zl: log.Logger.With().Str("request_id", requestID).Logger()}
}

// Error logs an error with context.
func (l *Logger) Error(operation string, err error) {
	l.zl.Error().Str("operation", operation).Err(err).Send()
}

// Errorf logs a formatted error with context.
func (l *Logger) Errorf(operation string, format string, args ...interface{}) {
	l.zl.Error().Str("operation", operation).Msgf(format, args...)
}

// Info logs an info message with context.
func (l *Logger) Info(operation string, message string) {
	l.zl.Info().Str("operation", operation).Msg(message)
}

// Infof logs a formatted info message with context.
func (l *Logger) Infof(operation string, format string, args ...interface{}) {
	l.zl.Info().Str("operation", operation).Msgf(format, args...)
}

// Warn logs a warning with context.
func (l *Logger) Warn(operation string, message string) {
	l.zl.Warn().Str("operation", operation).Msg(message)
}

// Warnf logs a formatted warning with context.
func (l *Logger) Warnf(operation string, format string, args ...interface{}) {
	l.zl.Warn().Str("operation", operation).Msgf(format, args...)
}

// Zerolog exposes the underlying logger for callers that need extra fields.
func (l *Logger) Zerolog() *zerolog.Logger {
	return &l.zl
}
