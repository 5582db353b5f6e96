package jwtauth

import (
	"fmt"
	"net/http"
	"time"

	"github.com/lestrrat-go/jwx/v3/jwa"
)

// Config holds the identity provider settings used by the verifier.
type Config struct {
	// Domain is the Auth0 tenant domain (e.g., "example.us.auth0.com").
	// The issuer is "https://<Domain>/" and keys are fetched from
	// "https://<Domain>/.well-known/jwks.json".
	// Required.
	Domain string `koanf:"domain"`

	// Audience is the expected "aud" claim value.
	// Required.
	Audience string `koanf:"audience"`

	// Algorithms lists the accepted signing algorithms.
	// Default: ["RS256"]
	Algorithms []string `koanf:"algorithms"`

	// HTTPTimeout bounds each JWKS fetch.
	// Default: 5s
	HTTPTimeout time.Duration `koanf:"http_timeout"`

	// Leeway is the clock skew tolerated for exp/nbf. Zero means none.
	Leeway time.Duration `koanf:"leeway"`

	// CacheTTL enables a cached key directory refreshed at this interval.
	// Zero fetches the key set on every verification.
	CacheTTL time.Duration `koanf:"cache_ttl"`

	// HTTPClient overrides the client used for JWKS fetches. HTTPTimeout is
	// ignored when set.
	HTTPClient *http.Client `koanf:"-"`
}

// DefaultConfig returns a Config with sensible default values.
// Domain and Audience must be set by the caller.
func DefaultConfig() Config {
	return Config{
		Algorithms:  []string{"RS256"},
		HTTPTimeout: 5 * time.Second,
	}
}

// Validate checks that the required fields are set and the algorithms are known.
func (c Config) Validate() error {
	if c.Domain == "" {
		return ErrDomainRequired
	}
	if c.Audience == "" {
		return ErrAudienceRequired
	}
	if len(c.Algorithms) == 0 {
		return ErrAlgorithmsRequired
	}
	for _, name := range c.Algorithms {
		if _, ok := jwa.LookupSignatureAlgorithm(name); !ok {
			return fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, name)
		}
	}
	return nil
}

// Issuer returns the expected "iss" claim value.
func (c Config) Issuer() string {
	return "https://" + c.Domain + "/"
}

// JWKSURL returns the well-known key set location for Domain.
func (c Config) JWKSURL() string {
	return "https://" + c.Domain + "/.well-known/jwks.json"
}

func (c Config) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	timeout := c.HTTPTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

func (c Config) acceptsAlgorithm(alg string) bool {
	for _, a := range c.Algorithms {
		if a == alg {
			return true
		}
	}
	return false
}
