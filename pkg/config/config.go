// Package config aggregates the castingd configuration and loads it from
// defaults, an optional TOML file and CASTING_* environment variables.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/deepworx/casting-agency/pkg/casting"
	"github.com/deepworx/casting-agency/pkg/castingapi"
	"github.com/deepworx/casting-agency/pkg/connectrpc/deadline"
	"github.com/deepworx/casting-agency/pkg/connectrpc/recovery"
	"github.com/deepworx/casting-agency/pkg/connectrpc/requestid"
	"github.com/deepworx/casting-agency/pkg/grpchealth"
	"github.com/deepworx/casting-agency/pkg/jwtauth"
	"github.com/deepworx/casting-agency/pkg/koanfutil"
	"github.com/deepworx/casting-agency/pkg/otel"
	"github.com/deepworx/casting-agency/pkg/postgres"
	"github.com/deepworx/casting-agency/pkg/slogutil"
)

// EnvPrefix selects the environment variables read by Load.
// Nested keys are separated by a double underscore: CASTING_AUTH__DOMAIN.
const EnvPrefix = "CASTING_"

// Store backends.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

var (
	// ErrUnknownStore is returned for a store other than StorePostgres or StoreMemory.
	ErrUnknownStore = errors.New("unknown store")

	// ErrInvalidHealth is returned for a non-positive health interval or timeout.
	ErrInvalidHealth = errors.New("health interval and timeout must be positive")
)

// Connect holds the interceptor settings.
type Connect struct {
	Deadline  deadline.Config  `koanf:"deadline"`
	RequestID requestid.Config `koanf:"request_id"`
	Recovery  recovery.Config  `koanf:"recovery"`
}

// Config is the complete castingd configuration.
type Config struct {
	// Store selects the casting store backend: "postgres" or "memory".
	Store string `koanf:"store"`

	Server   castingapi.ServerConfig `koanf:"server"`
	Auth     jwtauth.Config          `koanf:"auth"`
	Log      slogutil.Config         `koanf:"log"`
	OTel     otel.Config             `koanf:"otel"`
	Postgres postgres.Config         `koanf:"postgres"`
	Health   grpchealth.Config       `koanf:"health"`
	Casting  casting.Config          `koanf:"casting"`
	Connect  Connect                 `koanf:"connect"`

	// ShutdownTimeout bounds graceful shutdown after a signal.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// Default returns the configuration used when nothing overrides it. The
// identity provider Domain and Audience have no defaults.
func Default() Config {
	auth := jwtauth.DefaultConfig()
	auth.CacheTTL = 10 * time.Minute

	return Config{
		Store:    StorePostgres,
		Server:   castingapi.DefaultServerConfig(),
		Auth:     auth,
		Log:      slogutil.DefaultConfig(),
		OTel:     otel.DefaultConfig(),
		Postgres: postgres.DefaultConfig(),
		Health:   grpchealth.DefaultConfig(),
		Casting:  casting.DefaultConfig(),
		Connect: Connect{
			Deadline:  deadline.DefaultConfig(),
			RequestID: requestid.DefaultConfig(),
			Recovery:  recovery.DefaultConfig(),
		},
		ShutdownTimeout: 30 * time.Second,
	}
}

// Load reads path (optional, TOML) and the environment over Default and
// validates the result. A non-empty path must exist.
func Load(path string) (Config, error) {
	cfg, err := koanfutil.Unmarshal(Default(), koanfutil.Source{
		File:         path,
		FileRequired: path != "",
		EnvPrefix:    EnvPrefix,
	})
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate checks every section. Postgres is only checked when it is the
// selected store.
func (c Config) Validate() error {
	switch c.Store {
	case StorePostgres:
		if err := c.Postgres.Validate(); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
	case StoreMemory:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownStore, c.Store)
	}

	if err := c.Auth.Validate(); err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	if err := c.Log.Validate(); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	if err := c.OTel.Validate(); err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	if c.Health.Interval <= 0 || c.Health.Timeout <= 0 {
		return fmt.Errorf("health: %w", ErrInvalidHealth)
	}
	if err := c.Connect.Deadline.Validate(); err != nil {
		return fmt.Errorf("connect.deadline: %w", err)
	}
	return nil
}
