// Package slogutil provides configuration and setup utilities for slog.
package slogutil

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// redacted replaces the value of attributes that may carry credentials.
const redacted = "[REDACTED]"

// sensitiveKeys are attribute keys whose values are never written.
var sensitiveKeys = map[string]struct{}{
	"authorization": {},
	"token":         {},
	"password":      {},
	"dsn":           {},
}

// Config holds configuration for slog setup.
type Config struct {
	// Level is the minimum log level.
	// Valid values: "debug", "info", "warn", "warning", "error".
	// Default: "info"
	Level string `koanf:"level"`

	// Format is the output format.
	// Valid values: "text", "json".
	// Default: "text"
	Format string `koanf:"format"`

	// AddSource adds the source file and line to every record.
	AddSource bool `koanf:"add_source"`

	// Service, when set, is attached to every record as "service".
	Service string `koanf:"service"`

	// Output selects the stream Setup writes to.
	// Valid values: "stderr", "stdout".
	// Default: "stderr"
	Output string `koanf:"output"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Level:   "info",
		Format:  "text",
		Service: "castingd",
		Output:  "stderr",
	}
}

// Validate checks Level, Format and Output.
func (c Config) Validate() error {
	if _, err := parseLevel(c.Level); err != nil {
		return err
	}
	switch strings.ToLower(c.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidFormat, c.Format)
	}
	_, err := output(c.Output)
	return err
}

// Setup configures the global slog logger based on cfg.
// It sets slog.SetDefault() with the configured handler writing to the
// selected Output and returns the logger.
func Setup(cfg Config) (*slog.Logger, error) {
	w, err := output(cfg.Output)
	if err != nil {
		return nil, fmt.Errorf("setup slog: %w", err)
	}
	logger, err := New(cfg, w)
	if err != nil {
		return nil, fmt.Errorf("setup slog: %w", err)
	}
	slog.SetDefault(logger)
	return logger, nil
}

// New builds a logger writing to w without touching the global default.
func New(cfg Config, w io.Writer) (*slog.Logger, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	handler, err := newHandler(w, cfg.Format, &slog.HandlerOptions{
		Level:       level,
		AddSource:   cfg.AddSource,
		ReplaceAttr: redact,
	})
	if err != nil {
		return nil, err
	}

	logger := slog.New(handler)
	if cfg.Service != "" {
		logger = logger.With(slog.String("service", cfg.Service))
	}
	return logger, nil
}

// output maps an Output name to its stream. Empty means stderr.
func output(name string) (io.Writer, error) {
	switch strings.ToLower(name) {
	case "", "stderr":
		return os.Stderr, nil
	case "stdout":
		return os.Stdout, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidOutput, name)
	}
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidLevel, s)
	}
}

func newHandler(w io.Writer, format string, opts *slog.HandlerOptions) (slog.Handler, error) {
	switch strings.ToLower(format) {
	case "text":
		return slog.NewTextHandler(w, opts), nil
	case "json":
		return slog.NewJSONHandler(w, opts), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidFormat, format)
	}
}

func redact(_ []string, a slog.Attr) slog.Attr {
	if _, ok := sensitiveKeys[strings.ToLower(a.Key)]; ok {
		return slog.String(a.Key, redacted)
	}
	return a
}
