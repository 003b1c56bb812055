package cmd

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/term"
)

// setupLogger installs the default logger: text on a terminal, JSON otherwise
func setupLogger(w *os.File, level string, debug bool) {
	isTerm := term.IsTerminal(int(w.Fd()))
	slog.SetDefault(newLogger(w, isTerm, logLevel(level, debug || os.Getenv("DEBUG") != "")))
}

func newLogger(w io.Writer, text bool, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if text {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// logLevel parses a configured level name, falling back to info
func logLevel(name string, debug bool) slog.Level {
	if debug {
		return slog.LevelDebug
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(name))); err != nil {
		return slog.LevelInfo
	}
	return level
}
