package app

import (
	"io"
	"log/slog"
)

// newLogger builds the app's slog.Logger writing to outW. Level and format
// arrive pre-validated from the CLI; anything unrecognized degrades to
// info-level text logging rather than failing startup. The logger is never
// installed as the process default, so app instances stay isolated.
func newLogger(level, format string, outW io.Writer) *slog.Logger {
	lvl := slog.LevelInfo
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: lvl}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(outW, opts))
	}
	return slog.New(slog.NewTextHandler(outW, opts))
}
