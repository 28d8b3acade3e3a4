package errors

import (
	"context"
	"log/slog"
	"os"
)

// LogHandler is an ErrorHandler that writes structured records through slog.
// Resolution misses are logged at warn level; everything else at error level.
type LogHandler struct {
	// Logger receives the records. A text logger on stderr is used when nil.
	Logger *slog.Logger
	// Verbose enables detailed output including stack traces.
	Verbose bool
}

// NewLogHandler creates a LogHandler writing to logger.
func NewLogHandler(logger *slog.Logger, verbose bool) *LogHandler {
	return &LogHandler{Logger: logger, Verbose: verbose}
}

func (h *LogHandler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}

// HandleError logs a RuntimeError.
func (h *LogHandler) HandleError(err *RuntimeError) {
	if err == nil {
		return
	}
	level := slog.LevelError
	msg := "runtime error"
	if err.Kind == KindResolve {
		level = slog.LevelWarn
		msg = "runtime warning"
	}

	attrs := []slog.Attr{
		slog.String("op", err.Op),
		slog.String("kind", err.Kind.String()),
	}
	if err.Token != "" {
		attrs = append(attrs, slog.String("token", err.Token))
	}
	if err.Component != "" {
		attrs = append(attrs, slog.String("component", err.Component))
	}
	if err.Err != nil {
		attrs = append(attrs, slog.String("error", err.Err.Error()))
	}
	if h.Verbose && err.StackTrace != "" {
		attrs = append(attrs, slog.String("stack", err.StackTrace))
	}
	h.logger().LogAttrs(context.Background(), level, msg, attrs...)
}

// HandlePanic logs a PanicError.
func (h *LogHandler) HandlePanic(err *PanicError) {
	if err == nil {
		return
	}
	attrs := []slog.Attr{
		slog.String("op", err.Op),
		slog.Any("value", err.Value),
	}
	if h.Verbose && err.StackTrace != "" {
		attrs = append(attrs, slog.String("stack", err.StackTrace))
	}
	h.logger().LogAttrs(context.Background(), slog.LevelError, "recovered panic", attrs...)
}
