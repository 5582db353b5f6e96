package slogutil

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()

	if cfg.Level != "info" {
		t.Errorf("Level = %q, want %q", cfg.Level, "info")
	}
	if cfg.Format != "text" {
		t.Errorf("Format = %q, want %q", cfg.Format, "text")
	}
	if cfg.Service != "castingd" {
		t.Errorf("Service = %q, want %q", cfg.Service, "castingd")
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{
			name:    "default config",
			cfg:     DefaultConfig(),
			wantErr: nil,
		},
		{
			name:    "debug level json format",
			cfg:     Config{Level: "debug", Format: "json"},
			wantErr: nil,
		},
		{
			name:    "warn level",
			cfg:     Config{Level: "warn", Format: "text"},
			wantErr: nil,
		},
		{
			name:    "warning alias",
			cfg:     Config{Level: "warning", Format: "text"},
			wantErr: nil,
		},
		{
			name:    "error level",
			cfg:     Config{Level: "error", Format: "json"},
			wantErr: nil,
		},
		{
			name:    "case insensitive level",
			cfg:     Config{Level: "DEBUG", Format: "TEXT"},
			wantErr: nil,
		},
		{
			name:    "invalid level",
			cfg:     Config{Level: "trace", Format: "text"},
			wantErr: ErrInvalidLevel,
		},
		{
			name:    "invalid format",
			cfg:     Config{Level: "info", Format: "xml"},
			wantErr: ErrInvalidFormat,
		},
		{
			name:    "empty level",
			cfg:     Config{Level: "", Format: "text"},
			wantErr: ErrInvalidLevel,
		},
		{
			name:    "empty format",
			cfg:     Config{Level: "info", Format: ""},
			wantErr: ErrInvalidFormat,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := New(tt.cfg, io.Discard)

			if tt.wantErr != nil {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("New() error = %v, want %v", err, tt.wantErr)
				}
				return
			}

			if err != nil {
				t.Errorf("New() unexpected error: %v", err)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input   string
		want    slog.Level
		wantErr error
	}{
		{"debug", slog.LevelDebug, nil},
		{"DEBUG", slog.LevelDebug, nil},
		{"Debug", slog.LevelDebug, nil},
		{"info", slog.LevelInfo, nil},
		{"INFO", slog.LevelInfo, nil},
		{"warn", slog.LevelWarn, nil},
		{"WARN", slog.LevelWarn, nil},
		{"warning", slog.LevelWarn, nil},
		{"WARNING", slog.LevelWarn, nil},
		{"error", slog.LevelError, nil},
		{"ERROR", slog.LevelError, nil},
		{"trace", 0, ErrInvalidLevel},
		{"", 0, ErrInvalidLevel},
		{"invalid", 0, ErrInvalidLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()

			got, err := parseLevel(tt.input)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("parseLevel(%q) error = %v, want %v", tt.input, err, tt.wantErr)
				}
				return
			}

			if err != nil {
				t.Errorf("parseLevel(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestNewHandler(t *testing.T) {
	t.Parallel()

	tests := []struct {
		format  string
		wantErr error
	}{
		{"text", nil},
		{"TEXT", nil},
		{"Text", nil},
		{"json", nil},
		{"JSON", nil},
		{"Json", nil},
		{"xml", ErrInvalidFormat},
		{"", ErrInvalidFormat},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			t.Parallel()

			handler, err := newHandler(io.Discard, tt.format, &slog.HandlerOptions{Level: slog.LevelInfo})

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("newHandler(%q) error = %v, want %v", tt.format, err, tt.wantErr)
				}
				return
			}

			if err != nil {
				t.Errorf("newHandler(%q) unexpected error: %v", tt.format, err)
			}
			if handler == nil {
				t.Errorf("newHandler(%q) returned nil handler", tt.format)
			}
		})
	}
}

func TestNew_RedactsCredentials(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger, err := New(Config{Level: "info", Format: "json", Service: "castingd"}, &buf)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	logger.Info("authorization failed",
		slog.String("Authorization", "Bearer eyJhbGciOi"),
		slog.String("token", "eyJhbGciOi"),
		slog.String("auth_code", "token_expired"),
	)

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	if record["Authorization"] != redacted || record["token"] != redacted {
		t.Errorf("credentials not redacted: %v", record)
	}
	if record["auth_code"] != "token_expired" {
		t.Errorf("auth_code = %v, want token_expired", record["auth_code"])
	}
	if record["service"] != "castingd" {
		t.Errorf("service = %v, want castingd", record["service"])
	}
	if strings.Contains(buf.String(), "eyJhbGciOi") {
		t.Error("raw token leaked into log output")
	}
}

func TestNew_AddSource(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger, err := New(Config{Level: "debug", Format: "json", AddSource: true}, &buf)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	logger.Debug("hello")

	if !strings.Contains(buf.String(), `"source"`) {
		t.Errorf("record lacks source: %s", buf.String())
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{name: "defaults", cfg: DefaultConfig()},
		{name: "json warning", cfg: Config{Level: "WARNING", Format: "JSON"}},
		{name: "bad level", cfg: Config{Level: "verbose", Format: "text"}, wantErr: ErrInvalidLevel},
		{name: "bad format", cfg: Config{Level: "info", Format: "xml"}, wantErr: ErrInvalidFormat},
		{name: "stdout", cfg: Config{Level: "info", Format: "text", Output: "STDOUT"}},
		{name: "bad output", cfg: Config{Level: "info", Format: "text", Output: "syslog"}, wantErr: ErrInvalidOutput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
