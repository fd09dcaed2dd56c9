// Package observability configures structured logging.
package observability

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// LogConfig holds logger configuration.
type LogConfig struct {
	Level       string
	Format      string // json or console
	Output      io.Writer
	ServiceName string
}

// NewLogger creates a zerolog logger with the given configuration.
func NewLogger(cfg LogConfig) zerolog.Logger {
	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}

	var zl zerolog.Logger
	if cfg.Format == "console" {
		zl = zerolog.New(zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		})
	} else {
		zl = zerolog.New(output)
	}

	return zl.Level(ParseLevel(cfg.Level)).
		With().
		Timestamp().
		Str("service", cfg.ServiceName).
		Logger()
}

// ParseLevel converts a string level to zerolog.Level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

type contextKey string

const requestIDKey contextKey = "request_id"

// ContextWithRequestID adds a request ID to the context.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext extracts a request ID from the context.
func RequestIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// FromContext returns logger annotated with the request ID carried by ctx, if any.
func FromContext(ctx context.Context, logger zerolog.Logger) *zerolog.Logger {
	if id := RequestIDFromContext(ctx); id != "" {
		logger = logger.With().Str("request_id", id).Logger()
	}
	return &logger
}
