package logger

import (
	"log/slog"
	"os"

	"rfqportal/internal/config"
)

// New returns a configured slog.Logger based on configuration.
func New(cfg *config.Config) *slog.Logger {
	if cfg != nil && cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{AddSource: true}))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}
