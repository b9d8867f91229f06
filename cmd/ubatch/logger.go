package main

import (
	"io"
	"log/slog"
	"os"

	slogmulti "github.com/samber/slog-multi"
	"golang.org/x/term"
)

// newLogger logs to stderr, as text on a terminal and JSON otherwise,
// and also as JSON to record when it is not nil.
func newLogger(stderr io.Writer, record io.Writer, verbose bool) *slog.Logger {
	level := new(slog.LevelVar)
	if verbose {
		level.Set(slog.LevelDebug)
	}
	opts := &slog.HandlerOptions{Level: level}

	var handlers []slog.Handler

	if file, ok := stderr.(*os.File); ok && term.IsTerminal(int(file.Fd())) {
		handlers = append(handlers, slog.NewTextHandler(stderr, opts))
	} else {
		handlers = append(handlers, slog.NewJSONHandler(stderr, opts))
	}

	if record != nil {
		handlers = append(handlers, slog.NewJSONHandler(record, opts))
	}

	return slog.New(slogmulti.Fanout(handlers...))
}
