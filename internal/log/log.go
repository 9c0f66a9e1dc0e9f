// Package log holds the process-wide slog logger shared by the snapsolve
// commands. Packages take a *slog.Logger through their options and fall
// back to slog.Default, which Init replaces.
package log

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	global   *slog.Logger
	initOnce sync.Once
)

// ParseLevel maps debug, info, warn and error to a slog level, ignoring
// case. Anything else is info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// New returns a logger writing text, or JSON when json is set, to w.
func New(w io.Writer, level string, json bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	var h slog.Handler = slog.NewTextHandler(w, opts)
	if json {
		h = slog.NewJSONHandler(w, opts)
	}
	return slog.New(h)
}

// Init installs the global logger on stdout and makes it slog's default.
// GO_ENV=production switches to JSON. Only the first call has effect.
func Init(level string) {
	initOnce.Do(func() {
		global = New(os.Stdout, level, os.Getenv("GO_ENV") == "production")
		slog.SetDefault(global)
	})
}

// L returns the global logger, initializing it at info level if needed.
func L() *slog.Logger {
	Init("info")
	return global
}

// Component tags the global logger the way every package tags its own.
func Component(name string) *slog.Logger {
	return L().With("component", name)
}
