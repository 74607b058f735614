package logging

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// New builds the process logger. Development environments get a console writer,
// everything else gets JSON lines with timestamp and caller.
func New(service, env, level string) zerolog.Logger {
	return NewWithWriter(os.Stdout, service, env, level)
}

func NewWithWriter(w io.Writer, service, env, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	if env == "dev" || env == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}).
			Level(lvl).
			With().
			Timestamp().
			Str("service", service).
			Logger()
	}

	return zerolog.New(w).
		Level(lvl).
		With().
		Timestamp().
		Caller().
		Str("service", service).
		Logger()
}

// WithTrace returns l enriched with the trace and span ids of the span in ctx.
func WithTrace(ctx context.Context, l zerolog.Logger) *zerolog.Logger {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.IsValid() {
		return &l
	}
	traced := l.With().
		Str("trace_id", sc.TraceID().String()).
		Str("span_id", sc.SpanID().String()).
		Logger()
	return &traced
}
