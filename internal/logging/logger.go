package logging

import (
	"log/slog"
	"os"
)

// Setup installs a JSON stdout logger as the slog default. Extra handlers
// (such as the DB error sink) receive the same records.
func Setup(debug bool, extra ...slog.Handler) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	var handler slog.Handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})
	if len(extra) > 0 {
		handler = NewMultiHandler(append([]slog.Handler{handler}, extra...)...)
	}
	slog.SetDefault(slog.New(handler))
}
