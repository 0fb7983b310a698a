package app

import (
	"io"
	"log/slog"
	"os"
)

// NewLogger returns the process logger. JSON output is used when LOG_FORMAT
// is json, text otherwise.
func NewLogger(cfg *Config) *slog.Logger {
	return newLogger(cfg, os.Stdout)
}

func newLogger(cfg *Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{AddSource: true}
	env := "development"
	if cfg != nil {
		if level, err := cfg.logLevel(); err == nil {
			opts.Level = level
		}
		env = cfg.AppEnv
	}
	var handler slog.Handler
	if cfg != nil && cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler).With(slog.String("service", "erpsolutions"), slog.String("env", env))
}
