// Package log configures the process-wide slog logger shared by the
// Flowdeck API, the maintenance CLI and the service layer. Every module
// derives its logger through WithModule so log lines carry the emitting
// component.
package log

import (
	"log/slog"
	"os"
)

// Setup installs the default text logger at the given level. Unknown level
// names fall back to info.
func Setup(logLevel string) {
	var level slog.Level

	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))
}

// WithModule returns a logger tagged with the component name, e.g.
// "flow_service" or "wizard".
func WithModule(module string) *slog.Logger {
	return slog.With("module", module)
}
