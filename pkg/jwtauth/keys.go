package jwtauth

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/lestrrat-go/httprc/v3"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"go.opentelemetry.io/otel/attribute"

	"github.com/deepworx/casting-agency/pkg/tracing"
)

// SigningKey is one public key published by the identity provider.
type SigningKey struct {
	KeyID    string
	KeyType  string
	Usage    string
	Modulus  string
	Exponent string

	key jwk.Key
}

// PublicKey returns the parsed JWK backing the signing key.
func (k SigningKey) PublicKey() jwk.Key {
	return k.key
}

// KeySet is an ordered collection of signing keys from a single fetch.
type KeySet struct {
	keys []SigningKey
}

// NewKeySet converts a jwk.Set into a KeySet, preserving order.
// Keys without a key ID are skipped since tokens cannot reference them.
func NewKeySet(set jwk.Set) KeySet {
	keys := make([]SigningKey, 0, set.Len())
	for i := range set.Len() {
		key, ok := set.Key(i)
		if !ok {
			continue
		}
		kid, ok := key.KeyID()
		if !ok || kid == "" {
			continue
		}
		sk := SigningKey{
			KeyID:   kid,
			KeyType: key.KeyType().String(),
			key:     key,
		}
		if use, ok := key.KeyUsage(); ok {
			sk.Usage = use
		}
		if rsaKey, ok := key.(jwk.RSAPublicKey); ok {
			if n, ok := rsaKey.N(); ok {
				sk.Modulus = base64.RawURLEncoding.EncodeToString(n)
			}
			if e, ok := rsaKey.E(); ok {
				sk.Exponent = base64.RawURLEncoding.EncodeToString(e)
			}
		}
		keys = append(keys, sk)
	}
	return KeySet{keys: keys}
}

// Len returns the number of keys.
func (s KeySet) Len() int {
	return len(s.keys)
}

// Keys returns a copy of the keys in fetch order.
func (s KeySet) Keys() []SigningKey {
	out := make([]SigningKey, len(s.keys))
	copy(out, s.keys)
	return out
}

// Lookup returns the key with the given key ID. Key sets hold a handful of
// keys, so a linear scan is used.
func (s KeySet) Lookup(kid string) (SigningKey, bool) {
	for _, k := range s.keys {
		if k.KeyID == kid {
			return k, true
		}
	}
	return SigningKey{}, false
}

// KeyDirectory provides the identity provider's current signing keys.
type KeyDirectory interface {
	FetchKeys(ctx context.Context) (KeySet, error)
}

// KeyRefresher is implemented by directories that can bypass their cache.
// The verifier calls Refresh once when a key ID is not found.
type KeyRefresher interface {
	Refresh(ctx context.Context) (KeySet, error)
}

// HTTPKeyDirectory fetches the key set on every call.
type HTTPKeyDirectory struct {
	url    string
	client *http.Client
}

// NewHTTPKeyDirectory creates an uncached directory for cfg.JWKSURL().
func NewHTTPKeyDirectory(cfg Config) *HTTPKeyDirectory {
	return &HTTPKeyDirectory{
		url:    cfg.JWKSURL(),
		client: cfg.httpClient(),
	}
}

// FetchKeys performs one GET against the JWKS endpoint.
func (d *HTTPKeyDirectory) FetchKeys(ctx context.Context) (KeySet, error) {
	set, err := tracing.WithSpanResult(ctx, "jwtauth.fetch_jwks", func(ctx context.Context) (jwk.Set, error) {
		return jwk.Fetch(ctx, d.url, jwk.WithHTTPClient(d.client))
	}, attribute.String("jwks.url", d.url))
	if err != nil {
		return KeySet{}, fmt.Errorf("fetch jwks from %s: %w", d.url, errors.Join(ErrJWKSFetch, err))
	}
	return NewKeySet(set), nil
}

// CachedKeyDirectory keeps the key set in a jwk.Cache refreshed in the
// background at most every TTL.
type CachedKeyDirectory struct {
	cache *jwk.Cache
	url   string
}

// NewCachedKeyDirectory registers cfg.JWKSURL() with a background cache and
// performs the initial fetch. The ctx controls the lifecycle of the refresh
// goroutine.
func NewCachedKeyDirectory(ctx context.Context, cfg Config) (*CachedKeyDirectory, error) {
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		return nil, fmt.Errorf("create cached key directory: cache ttl must be positive")
	}

	cache, err := jwk.NewCache(ctx, httprc.NewClient(
		httprc.WithHTTPClient(cfg.httpClient()),
	))
	if err != nil {
		return nil, fmt.Errorf("create jwk cache: %w", err)
	}

	url := cfg.JWKSURL()
	if err := cache.Register(ctx, url,
		jwk.WithMinInterval(minRefreshInterval(ttl)),
		jwk.WithMaxInterval(ttl),
	); err != nil {
		return nil, fmt.Errorf("register jwks url %s: %w", url, errors.Join(ErrJWKSFetch, err))
	}

	if _, err := cache.Lookup(ctx, url); err != nil {
		return nil, fmt.Errorf("initial jwks fetch from %s: %w", url, errors.Join(ErrJWKSFetch, err))
	}

	return &CachedKeyDirectory{cache: cache, url: url}, nil
}

// FetchKeys returns the cached key set.
func (d *CachedKeyDirectory) FetchKeys(ctx context.Context) (KeySet, error) {
	set, err := tracing.WithSpanResult(ctx, "jwtauth.lookup_jwks", func(ctx context.Context) (jwk.Set, error) {
		return d.cache.Lookup(ctx, d.url)
	}, attribute.String("jwks.url", d.url))
	if err != nil {
		return KeySet{}, fmt.Errorf("lookup jwks: %w", errors.Join(ErrJWKSFetch, err))
	}
	return NewKeySet(set), nil
}

// Refresh forces a fetch, making a rotated key visible before the next
// scheduled refresh.
func (d *CachedKeyDirectory) Refresh(ctx context.Context) (KeySet, error) {
	set, err := tracing.WithSpanResult(ctx, "jwtauth.refresh_jwks", func(ctx context.Context) (jwk.Set, error) {
		return d.cache.Refresh(ctx, d.url)
	}, attribute.String("jwks.url", d.url))
	if err != nil {
		return KeySet{}, fmt.Errorf("refresh jwks: %w", errors.Join(ErrJWKSFetch, err))
	}
	return NewKeySet(set), nil
}

// NewKeyDirectory returns a cached directory when cfg.CacheTTL is positive and
// an uncached one otherwise.
func NewKeyDirectory(ctx context.Context, cfg Config) (KeyDirectory, error) {
	if cfg.CacheTTL > 0 {
		return NewCachedKeyDirectory(ctx, cfg)
	}
	return NewHTTPKeyDirectory(cfg), nil
}

// DirectoryHealthChecker reports whether the key directory can serve keys.
// Implements grpchealth.HealthChecker.
type DirectoryHealthChecker struct {
	dir KeyDirectory
}

// NewDirectoryHealthChecker creates a health checker for dir.
func NewDirectoryHealthChecker(dir KeyDirectory) *DirectoryHealthChecker {
	return &DirectoryHealthChecker{dir: dir}
}

// Check returns true if at least one key is available.
func (c *DirectoryHealthChecker) Check(ctx context.Context) bool {
	keys, err := c.dir.FetchKeys(ctx)
	return err == nil && keys.Len() > 0
}

func minRefreshInterval(ttl time.Duration) time.Duration {
	if ttl < time.Minute {
		return ttl
	}
	return time.Minute
}

// compile-time checks
var (
	_ KeyDirectory = (*HTTPKeyDirectory)(nil)
	_ KeyDirectory = (*CachedKeyDirectory)(nil)
	_ KeyRefresher = (*CachedKeyDirectory)(nil)
)
