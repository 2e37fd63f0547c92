package mirror

import (
	"fmt"
	"io"
	"log/slog"
	"time"
)

// Ensure *slog.Logger implements Logger.
var _ Logger = (*slog.Logger)(nil)

// NewSlogLogger builds the CLI logger. format is "text" or "json". The level
// is Warn, Debug when verbose, Error when quiet.
func NewSlogLogger(w io.Writer, format string, verbose, quiet bool) (*slog.Logger, error) {
	level := slog.LevelWarn
	switch {
	case verbose:
		level = slog.LevelDebug
	case quiet:
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && a.Value.Kind() == slog.KindTime {
				a.Value = slog.StringValue(a.Value.Time().UTC().Format(time.RFC3339Nano))
			}
			return a
		},
	}

	switch format {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return nil, fmt.Errorf("%w: unknown log format %q", ErrInvalidConfig, format)
}
