package logger

import (
	"log/slog"
	"os"
)

// New returns the root structured logger. format is "json" for production
// deployments; anything else gets the text handler.
func New(format string, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
