// Package log carries request scoped slog loggers through a context.
package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/levenlabs/go-llog"
)

var (
	level         slog.LevelVar
	defaultLogger = New(os.Stdout)
)

func init() {
	level.Set(slog.LevelInfo)
}

// New returns a JSON logger writing to w at the shared level.
func New(w io.Writer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		AddSource: true,
		Level:     &level,
	}))
}

type contextKey struct{}

var loggerKey = contextKey{}

// Ctx returns the logger from the context or the default logger.
func Ctx(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return l
	}
	return defaultLogger
}

// With returns a new context with the given logger.
func With(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// WithAttrs returns a new context whose logger adds attrs to every record.
func WithAttrs(ctx context.Context, attrs ...slog.Attr) context.Context {
	args := make([]any, len(attrs))
	for i, a := range attrs {
		args[i] = a
	}
	return With(ctx, Ctx(ctx).With(args...))
}

// SetLevel changes the level of every logger created by this package.
func SetLevel(l slog.Level) {
	level.Set(l)
}

// SyncLevel copies the level llog was configured with by the -log-level
// flag. It must be called after lflag.Configure.
func SyncLevel() error {
	switch llog.GetLevel() {
	case llog.DebugLevel:
		SetLevel(slog.LevelDebug)
	case llog.InfoLevel:
		SetLevel(slog.LevelInfo)
	case llog.WarnLevel:
		SetLevel(slog.LevelWarn)
	case llog.ErrorLevel:
		SetLevel(slog.LevelError)
	default:
		return fmt.Errorf("unknown log level: %s", llog.GetLevel().String())
	}
	slog.SetDefault(defaultLogger)
	return nil
}
