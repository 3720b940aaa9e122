package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// SetupLogger installs the default slog logger on stderr
func SetupLogger(level, format string) error {
	lvl := slog.LevelInfo
	if level = strings.TrimSpace(level); level != "" {
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			return fmt.Errorf("invalid log level %q: %w", level, err)
		}
	}

	opts := &slog.HandlerOptions{Level: lvl}

	var handler slog.Handler
	switch strings.ToLower(format) {
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	case "", "text", "console":
		handler = slog.NewTextHandler(os.Stderr, opts)
	default:
		return fmt.Errorf("invalid log format %q (supported: text, json)", format)
	}

	slog.SetDefault(slog.New(handler))
	return nil
}
