package ngramstore

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/dustin/go-humanize"
)

// Logger wraps slog.Logger with ngramstore-specific helpers.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{Logger: slog.New(handler)}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
func NewJSONLogger(level slog.Level) *Logger {
	return &Logger{Logger: slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))}
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return &Logger{Logger: slog.New(slog.DiscardHandler)}
}

// WithOrder adds an order field to the logger.
func (l *Logger) WithOrder(order int) *Logger {
	return &Logger{Logger: l.Logger.With("order", order)}
}

// WithModel tags every record with a model name.
func (l *Logger) WithModel(name string) *Logger {
	return &Logger{Logger: l.Logger.With("model", name)}
}

// LogPhase logs the end of a build phase.
func (l *Logger) LogPhase(ctx context.Context, phase Phase, ngrams int64, elapsed time.Duration) {
	l.InfoContext(ctx, "build phase completed",
		"phase", phase.String(),
		"ngrams", humanize.Comma(ngrams),
		"elapsed", elapsed.Round(time.Millisecond),
	)
}

// LogProgress logs the progress of a running phase.
func (l *Logger) LogProgress(ctx context.Context, phase Phase, ngrams int64) {
	l.DebugContext(ctx, "build progress",
		"phase", phase.String(),
		"ngrams", humanize.Comma(ngrams),
	)
}

// LogSeal logs a sealed order.
func (l *Logger) LogSeal(ctx context.Context, order int, entries int64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "seal failed",
			"order", order,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "order sealed",
		"order", order,
		"entries", humanize.Comma(entries),
	)
}

// LogGaps logs a round of missing contexts.
func (l *Logger) LogGaps(ctx context.Context, placeholders, failed int) {
	l.WarnContext(ctx, "n-grams arrived before their contexts",
		"placeholders", placeholders,
		"failed_puts", failed,
	)
}

// LogRehash logs the growth of an explicit table.
func (l *Logger) LogRehash(ctx context.Context, order int, oldCapacity, newCapacity int64) {
	l.DebugContext(ctx, "table grown",
		"order", order,
		"old_capacity", humanize.Comma(oldCapacity),
		"new_capacity", humanize.Comma(newCapacity),
	)
}

// LogSave logs a save operation.
func (l *Logger) LogSave(ctx context.Context, name string, size int64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "save failed",
			"name", name,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "model saved",
		"name", name,
		"size", humanize.IBytes(uint64(max(size, 0))),
	)
}

// LogLoad logs a load operation.
func (l *Logger) LogLoad(ctx context.Context, name string, size uint64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "load failed",
			"name", name,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "model loaded",
		"name", name,
		"size", humanize.IBytes(size),
	)
}
