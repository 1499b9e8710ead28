package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/trace"
)

var (
	instance *slog.Logger
	once     sync.Once

	hostInstance string
	hostOnce     sync.Once
)

// Instance returns the process logger. Output goes to stderr so it never
// interleaves with what the CLI prints for the user.
func Instance() *slog.Logger {
	once.Do(func() {
		instance = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: parseLevel(os.Getenv("LOG_LEVEL")),
			// AddSource: true,
		}))
	})

	return instance
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// emit writes one record and, from info upwards, ships it to the remote sink.
func emit(ctx context.Context, level slog.Level, msg string, attrs []slog.Attr) {
	attrs = enrich(ctx, attrs...)
	Instance().LogAttrs(context.Background(), level, msg, attrs...)
	if level >= slog.LevelInfo && Instance().Enabled(context.Background(), level) {
		sendLog(strings.ToLower(level.String()), msg, attrs)
	}
}

func Debug(ctx context.Context, msg string, attrs ...slog.Attr) { emit(ctx, slog.LevelDebug, msg, attrs) }
func Info(ctx context.Context, msg string, attrs ...slog.Attr)  { emit(ctx, slog.LevelInfo, msg, attrs) }
func Warn(ctx context.Context, msg string, attrs ...slog.Attr)  { emit(ctx, slog.LevelWarn, msg, attrs) }
func Error(ctx context.Context, msg string, attrs ...slog.Attr) { emit(ctx, slog.LevelError, msg, attrs) }

// Err is shorthand for the error attribute used across the client.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}

// enrich tags records made inside a span so they can be joined to the trace.
func enrich(ctx context.Context, attrs ...slog.Attr) []slog.Attr {
	if ctx == nil {
		return attrs
	}
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return attrs
	}
	return append(attrs,
		slog.String("trace_id", sc.TraceID().String()),
		slog.String("span_id", sc.SpanID().String()),
		slog.String("hostname", Hostname()),
	)
}

// Hostname is resolved once.
func Hostname() string {
	hostOnce.Do(func() {
		hostInstance = "unknown"
		if h, err := os.Hostname(); err == nil {
			hostInstance = h
		}
	})
	return hostInstance
}
