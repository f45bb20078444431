package cli

import (
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
	"golang.org/x/term"

	"github.com/dbmux-labs/dbmux/internal/config"
)

// newLogger builds the process logger from the log config. Logs go to
// stderr so query output on stdout stays pipeable. Format "auto" picks
// text on a terminal and json otherwise.
func newLogger(cfg config.LogConfig) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	isTTY := term.IsTerminal(int(os.Stderr.Fd()))

	format := cfg.Format
	if format == "auto" {
		if isTTY {
			format = "text"
		} else {
			format = "json"
		}
	}

	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	}
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:   level,
		NoColor: !isTTY,
	}))
}
