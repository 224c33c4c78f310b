// Package observability provides structured logging, metrics collection
// and health reporting for the Snapyr bridge.
package observability

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// ServiceName is attached to every log entry.
const ServiceName = "snapyr-bridge"

// LogConfig configures NewLogger.
type LogConfig struct {
	Level     slog.Level
	JSON      bool
	AddSource bool
	Version   string
	// Output defaults to os.Stderr. Stdout belongs to the host bridge.
	Output io.Writer
}

// LogConfigFor returns the logging defaults for an APP_ENV value.
// Production logs JSON with source locations; everything else logs text.
func LogConfigFor(appEnv, level string) LogConfig {
	cfg := LogConfig{
		Level:   ParseLevel(level),
		Version: "dev",
		Output:  os.Stderr,
	}
	if appEnv == "production" {
		cfg.JSON = true
		cfg.AddSource = true
		cfg.Version = "unknown"
	}
	return cfg
}

// NewLogger creates a logger that stamps the service name and version on
// every record and copies correlation and command ids out of the context.
func NewLogger(cfg LogConfig) *slog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: cfg.Level, AddSource: cfg.AddSource}

	var base slog.Handler = slog.NewTextHandler(out, opts)
	if cfg.JSON {
		base = slog.NewJSONHandler(out, opts)
	}

	attrs := []slog.Attr{slog.String("service", ServiceName)}
	if cfg.Version != "" {
		attrs = append(attrs, slog.String("version", cfg.Version))
	}
	return slog.New(&contextHandler{Handler: base.WithAttrs(attrs)})
}

// LoggerFromEnv builds a logger before configuration is loaded, from
// APP_ENV, LOG_LEVEL, LOG_FORMAT (text or json) and SNAPYR_BRIDGE_VERSION.
func LoggerFromEnv() *slog.Logger {
	cfg := LogConfigFor(os.Getenv("APP_ENV"), os.Getenv("LOG_LEVEL"))
	switch strings.ToLower(os.Getenv("LOG_FORMAT")) {
	case "json":
		cfg.JSON = true
	case "text":
		cfg.JSON = false
	}
	if v := os.Getenv("SNAPYR_BRIDGE_VERSION"); v != "" {
		cfg.Version = v
	}
	return NewLogger(cfg)
}

// ParseLevel maps debug, info, warn and error to slog levels. Anything
// else is info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

// contextHandler adds ids carried by the context. The command name is only
// added when the logger was not already bound to one with LogCommand.
type contextHandler struct {
	slog.Handler
	boundCommand bool
}

func (h *contextHandler) Handle(ctx context.Context, r slog.Record) error {
	if id := CorrelationIDFromContext(ctx); id != "" {
		r.AddAttrs(slog.String(CorrelationIDKey, id))
	}
	if id := CommandIDFromContext(ctx); id != "" {
		r.AddAttrs(slog.String(CommandIDKey, id))
	}
	if cmd := CommandFromContext(ctx); cmd != "" && !h.boundCommand && !recordHas(r, CommandKey) {
		r.AddAttrs(slog.String(CommandKey, cmd))
	}
	return h.Handler.Handle(ctx, r)
}

func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	bound := h.boundCommand
	for _, a := range attrs {
		if a.Key == CommandKey {
			bound = true
		}
	}
	return &contextHandler{Handler: h.Handler.WithAttrs(attrs), boundCommand: bound}
}

func (h *contextHandler) WithGroup(name string) slog.Handler {
	return &contextHandler{Handler: h.Handler.WithGroup(name), boundCommand: h.boundCommand}
}

func recordHas(r slog.Record, key string) bool {
	found := false
	r.Attrs(func(a slog.Attr) bool {
		found = a.Key == key
		return !found
	})
	return found
}

// LogCommand returns a logger bound to a command name.
func LogCommand(logger *slog.Logger, command string, attrs ...any) *slog.Logger {
	return logger.With(append([]any{CommandKey, command}, attrs...)...)
}

// LogDuration logs how long operation took since start.
func LogDuration(logger *slog.Logger, operation string, start time.Time) {
	logger.Info("operation completed",
		"operation", operation,
		DurationKey, time.Since(start).Milliseconds(),
	)
}
