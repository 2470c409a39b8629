// Package logging builds the structured loggers used across ggraph.
package logging

import (
	"io"
	"log/slog"
	"os"
)

// Format names accepted by New.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// New creates the application logger. It writes to stderr so that command
// output on stdout stays machine readable.
func New(level slog.Level, format string) *slog.Logger {
	return NewTo(os.Stderr, level, format)
}

// NewTo creates a logger writing to w. Unknown formats fall back to text.
// The "error" key is standardized to "err".
func NewTo(w io.Writer, level slog.Level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == "error" {
				a.Key = "err"
			}
			return a
		},
	}
	if format == FormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// NewNop returns a logger that discards everything.
func NewNop() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
