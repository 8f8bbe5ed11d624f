// Package logging provides structured logging setup for dv.
package logging

import (
	"io"
	"log/slog"
	"os"
)

// Setup initializes the default slog logger on stderr, leaving stdout to
// command output.
func Setup(devMode bool) {
	slog.SetDefault(New(os.Stderr, devMode))
}

// New builds a logger writing to w.
// Dev mode uses human-readable text at debug level; otherwise JSON at info.
func New(w io.Writer, devMode bool) *slog.Logger {
	var handler slog.Handler
	if devMode {
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})
	} else {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return slog.New(handler)
}
