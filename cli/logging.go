package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/petal-labs/petalcalc/config"
)

// newLogger builds the process logger. --verbose and --quiet override the
// configured level.
func newLogger(w io.Writer, cfg config.LoggingConfig, verbose, quiet bool) (*slog.Logger, error) {
	level, err := config.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	switch {
	case verbose:
		level = slog.LevelDebug
	case quiet:
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	switch cfg.Format {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "text", "":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}
}
