package koanfutil

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/v2"
)

func writeSecret(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestFileResolver(t *testing.T) {
	t.Parallel()

	password := writeSecret(t, "pg-password", "  s3cret\n")
	audience := writeSecret(t, "audience", "casting-api\n")

	k := koanf.New(".")
	err := k.Load(confmap.Provider(map[string]any{
		"postgres.password": "file://" + password,
		"postgres.host":     "db.internal",
		"postgres.port":     5432,
		"auth.audience":     "file://" + audience,
		"auth.algorithms":   []any{"RS256", "file://" + audience},
		"auth.domain":       "casting.us.auth0.com",
	}, "."), nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	changes, err := FileResolver(k).Read()
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if _, ok := changes["postgres"].(map[string]any)["host"]; ok {
		t.Error("unchanged key postgres.host returned by resolver")
	}

	if err := k.Load(FileResolver(k), nil); err != nil {
		t.Fatalf("Load(FileResolver) error = %v", err)
	}

	tests := []struct {
		key  string
		want string
	}{
		{"postgres.password", "s3cret"},
		{"postgres.host", "db.internal"},
		{"auth.audience", "casting-api"},
		{"auth.domain", "casting.us.auth0.com"},
	}
	for _, tt := range tests {
		if got := k.String(tt.key); got != tt.want {
			t.Errorf("%s = %q, want %q", tt.key, got, tt.want)
		}
	}
	if got := k.Int("postgres.port"); got != 5432 {
		t.Errorf("postgres.port = %d, want 5432", got)
	}
	if got := k.Strings("auth.algorithms"); len(got) != 2 || got[1] != "casting-api" {
		t.Errorf("auth.algorithms = %v, want [RS256 casting-api]", got)
	}
}

func TestFileResolver_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		values  map[string]any
		wantErr error
	}{
		{
			name:    "missing file",
			values:  map[string]any{"auth.audience": "file:///nonexistent/casting/audience"},
			wantErr: os.ErrNotExist,
		},
		{
			name:    "empty path",
			values:  map[string]any{"postgres.password": "file://"},
			wantErr: ErrEmptyFileURI,
		},
		{
			name:    "missing file in list",
			values:  map[string]any{"auth.algorithms": []any{"file:///nonexistent/alg"}},
			wantErr: os.ErrNotExist,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			k := koanf.New(".")
			if err := k.Load(confmap.Provider(tt.values, "."), nil); err != nil {
				t.Fatalf("load: %v", err)
			}
			_, err := FileResolver(k).Read()
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Read() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestFileResolver_ReadBytes(t *testing.T) {
	t.Parallel()

	if _, err := FileResolver(koanf.New(".")).ReadBytes(); !errors.Is(err, errReadBytes) {
		t.Errorf("ReadBytes() error = %v, want %v", err, errReadBytes)
	}
}
