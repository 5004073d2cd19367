// Package logging provides structured logging for fatigue-go.
//
// It wraps log/slog rather than rolling a bespoke logger: structured,
// leveled logging with text or JSON output, integrated with context.Context
// for call-scoped loggers. This is the substrate a front end's own
// colorized/pretty output would sit on top of — fatigue-go's core never
// colorizes or formats for a terminal itself (see spec.md §1).
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
)

type ctxKey struct{}

var (
	defaultLogger *slog.Logger
	loggerMu      sync.RWMutex
)

func init() {
	defaultLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// Config configures a logger built with NewLogger.
type Config struct {
	Level     slog.Level
	Format    string // "text" or "json"
	Output    io.Writer
	AddSource bool
}

// NewLogger builds a structured logger from cfg.
func NewLogger(cfg Config) *slog.Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: cfg.Level, AddSource: cfg.AddSource}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(cfg.Output, opts)
	} else {
		handler = slog.NewTextHandler(cfg.Output, opts)
	}
	return slog.New(handler)
}

// SetDefault replaces the package default logger.
func SetDefault(logger *slog.Logger) {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	defaultLogger = logger
}

// Default returns the package default logger.
func Default() *slog.Logger {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return defaultLogger
}

// WithPID returns a logger annotated with a target process ID.
func WithPID(logger *slog.Logger, pid int) *slog.Logger {
	return logger.With(slog.Int("pid", pid))
}

// WithRegion returns a logger annotated with a region's name and address
// range.
func WithRegion(logger *slog.Logger, name string, start, end uintptr) *slog.Logger {
	return logger.With(slog.String("region", name), slog.Uint64("start", uint64(start)), slog.Uint64("end", uint64(end)))
}

// WithMethod returns a logger annotated with an access method name.
func WithMethod(logger *slog.Logger, method string) *slog.Logger {
	return logger.With(slog.String("method", method))
}

// WithAddress returns a logger annotated with an absolute address.
func WithAddress(logger *slog.Logger, address uintptr) *slog.Logger {
	return logger.With(slog.Uint64("address", uint64(address)))
}

// ContextWithLogger attaches logger to ctx.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext retrieves the logger attached to ctx, or Default() if none.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
		return logger
	}
	return Default()
}

// ParseLevel parses a level name ("debug", "info", "warn"/"warning",
// "error"), defaulting to Info for unrecognized input.
func ParseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Convenience wrappers over the default logger, matching every I/O failure
// and soft-fail path in this module logging rather than raising (§7).

func Debug(msg string, args ...any) { Default().Debug(msg, args...) }
func Info(msg string, args ...any)  { Default().Info(msg, args...) }
func Warn(msg string, args ...any)  { Default().Warn(msg, args...) }
func Error(msg string, args ...any) { Default().Error(msg, args...) }
