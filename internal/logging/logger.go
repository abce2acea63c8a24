package logging

import (
	"log/slog"
	"os"
)

// Logger is a thin wrapper around slog.Logger used across the application.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a logger. Development mode logs human-readable text at
// debug level, otherwise JSON at info level.
func NewLogger(isDevelopment bool) *Logger {
	var handler slog.Handler
	if isDevelopment {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	return &Logger{Logger: slog.New(handler)}
}

// New wraps an existing slog.Logger.
func New(l *slog.Logger) *Logger {
	return &Logger{Logger: l}
}

// WithFields returns a child logger that always includes the given fields
func (l *Logger) WithFields(fields map[string]any) *Logger {
	args := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return &Logger{Logger: l.Logger.With(args...)}
}
