package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// New creates the process logger.
// Kubernetes, prod and dev: JSON handler for log aggregation.
// Local runs: text handler with ERROR lines highlighted.
func New(env string) *slog.Logger {
	return slog.New(newHandler(os.Stdout, env))
}

// NewWithServiceContext tags every record with the service identity.
func NewWithServiceContext(serviceName, version, env string) *slog.Logger {
	return New(env).With(
		slog.String("service", serviceName),
		slog.String("version", version),
		slog.String("environment", env),
	)
}

func newHandler(w io.Writer, env string) slog.Handler {
	_, inK8s := os.LookupEnv("KUBERNETES_SERVICE_HOST")
	if inK8s || env == "prod" || env == "production" || env == "dev" {
		return slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level:     slog.LevelInfo,
			AddSource: true,
		})
	}
	return &colorTextHandler{handler: slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})}
}

// colorTextHandler paints ERROR messages red.
type colorTextHandler struct {
	handler slog.Handler
}

func (h *colorTextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *colorTextHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level < slog.LevelError {
		return h.handler.Handle(ctx, r)
	}
	painted := slog.NewRecord(r.Time, r.Level, fmt.Sprintf("\x1b[31m%s\x1b[0m", r.Message), r.PC)
	r.Attrs(func(a slog.Attr) bool {
		painted.AddAttrs(a)
		return true
	})
	return h.handler.Handle(ctx, painted)
}

func (h *colorTextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &colorTextHandler{handler: h.handler.WithAttrs(attrs)}
}

func (h *colorTextHandler) WithGroup(name string) slog.Handler {
	return &colorTextHandler{handler: h.handler.WithGroup(name)}
}

// Discard returns a logger that drops everything. Used by tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
