// ABOUTME: slog setup for the tubular CLI and server with colored terminal output.
// ABOUTME: Supports an optional rotating log file (lumberjack) alongside the terminal handler.
package logger

import (
	"io"
	"log/slog"
	"os"

	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// Rotation defaults, in lumberjack semantics.
const (
	DefaultMaxSizeMB  = 10
	DefaultMaxBackups = 3
	DefaultMaxAgeDays = 7
)

// Config describes logging destinations and verbosity.
type Config struct {
	Level      slog.Level
	File       string // when set, logs are also written to this rotating file
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	NoColor    bool
}

// Setup builds a slog.Logger from the config and installs it as the default.
// Terminal output goes to stderr so it never mixes with piped answer text.
// Returns a close function for the file sink (no-op when no file is set).
func Setup(cfg Config) (*slog.Logger, func() error) {
	opts := &slog.HandlerOptions{Level: cfg.Level}

	var w io.Writer = os.Stderr
	closeFn := func() error { return nil }

	if cfg.File != "" {
		lj := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    valOr(cfg.MaxSizeMB, DefaultMaxSizeMB),
			MaxBackups: valOr(cfg.MaxBackups, DefaultMaxBackups),
			MaxAge:     valOr(cfg.MaxAgeDays, DefaultMaxAgeDays),
		}
		w = io.MultiWriter(os.Stderr, lj)
		closeFn = lj.Close
	}

	var handler slog.Handler
	if cfg.NoColor || !isTerminal(os.Stderr) {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = NewColorTextHandler(w, opts)
	}

	log := slog.New(handler)
	slog.SetDefault(log)
	return log, closeFn
}

func valOr(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// isTerminal reports whether f is attached to a terminal. Character-device
// detection is enough here; we only use it to decide on ANSI colors.
func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
