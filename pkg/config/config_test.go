package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/deepworx/casting-agency/pkg/jwtauth"
	"github.com/deepworx/casting-agency/pkg/postgres"
	"github.com/deepworx/casting-agency/pkg/slogutil"
)

func validConfig() Config {
	cfg := Default()
	cfg.Auth.Domain = "casting.us.auth0.com"
	cfg.Auth.Audience = "casting"
	return cfg
}

func TestDefault(t *testing.T) {
	t.Parallel()

	cfg := Default()
	if cfg.Store != StorePostgres {
		t.Errorf("Store = %q, want %q", cfg.Store, StorePostgres)
	}
	if cfg.Auth.CacheTTL != 10*time.Minute {
		t.Errorf("Auth.CacheTTL = %v, want 10m", cfg.Auth.CacheTTL)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("Server.Addr = %q, want :8080", cfg.Server.Addr)
	}
	if cfg.Casting.PageSize != 10 {
		t.Errorf("Casting.PageSize = %d, want 10", cfg.Casting.PageSize)
	}
	if !errors.Is(cfg.Validate(), jwtauth.ErrDomainRequired) {
		t.Errorf("Default().Validate() should require an auth domain")
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{name: "valid", mutate: func(*Config) {}},
		{
			name:    "unknown store",
			mutate:  func(c *Config) { c.Store = "sqlite" },
			wantErr: ErrUnknownStore,
		},
		{
			name: "memory store skips postgres",
			mutate: func(c *Config) {
				c.Store = StoreMemory
				c.Postgres = postgres.Config{}
			},
		},
		{
			name:    "postgres store checks postgres",
			mutate:  func(c *Config) { c.Postgres = postgres.Config{} },
			wantErr: postgres.ErrDSNRequired,
		},
		{
			name:    "missing audience",
			mutate:  func(c *Config) { c.Auth.Audience = "" },
			wantErr: jwtauth.ErrAudienceRequired,
		},
		{
			name:    "bad log format",
			mutate:  func(c *Config) { c.Log.Format = "xml" },
			wantErr: slogutil.ErrInvalidFormat,
		},
		{
			name:    "zero health interval",
			mutate:  func(c *Config) { c.Health.Interval = 0 },
			wantErr: ErrInvalidHealth,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_ValidateDeadline(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Connect.Deadline.Overrides = map[string]time.Duration{
		"/casting.v1.CastingService/ListActors": time.Hour,
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate() = nil, want error for override above max timeout")
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "castingd.toml")
	content := `
store = "memory"

[server]
addr = ":9000"

[auth]
domain = "file.us.auth0.com"
audience = "casting"
leeway = "30s"

[casting]
page_size = 25

[connect.deadline.overrides]
ListPerformances = "1m"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("CASTING_AUTH__DOMAIN", "env.us.auth0.com")
	t.Setenv("CASTING_LOG__FORMAT", "json")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Store != StoreMemory {
		t.Errorf("Store = %q, want memory", cfg.Store)
	}
	if cfg.Server.Addr != ":9000" {
		t.Errorf("Server.Addr = %q, want :9000", cfg.Server.Addr)
	}
	if cfg.Auth.Domain != "env.us.auth0.com" {
		t.Errorf("Auth.Domain = %q, want env override", cfg.Auth.Domain)
	}
	if cfg.Auth.Leeway != 30*time.Second {
		t.Errorf("Auth.Leeway = %v, want 30s", cfg.Auth.Leeway)
	}
	if cfg.Auth.CacheTTL != 10*time.Minute {
		t.Errorf("Auth.CacheTTL = %v, want default 10m", cfg.Auth.CacheTTL)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("Log.Format = %q, want json", cfg.Log.Format)
	}
	if cfg.Casting.PageSize != 25 {
		t.Errorf("Casting.PageSize = %d, want 25", cfg.Casting.PageSize)
	}
	got := cfg.Connect.Deadline.Overrides["ListPerformances"]
	if got != time.Minute {
		t.Errorf("deadline override = %v, want 1m", got)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err == nil {
		t.Fatal("Load() = nil error, want error for missing file")
	}
}

func TestLoad_InvalidFromEnv(t *testing.T) {
	t.Setenv("CASTING_STORE", "memory")
	t.Setenv("CASTING_AUTH__DOMAIN", "casting.us.auth0.com")

	_, err := Load("")
	if !errors.Is(err, jwtauth.ErrAudienceRequired) {
		t.Fatalf("Load() error = %v, want %v", err, jwtauth.ErrAudienceRequired)
	}
}
