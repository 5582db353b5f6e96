// Package jwtauthtest provides an in-process identity provider for tests:
// a TLS server publishing a JWKS and helpers to sign RS256 tokens.
package jwtauthtest

import (
	"crypto/rand"
	"crypto/rsa"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"
)

// DefaultKeyID is the key ID of the key published by NewProvider.
const DefaultKeyID = "K1"

// DefaultAudience is the audience used by Claims.
const DefaultAudience = "http://localhost:5000"

// Provider is a fake identity provider serving /.well-known/jwks.json.
type Provider struct {
	server *httptest.Server

	mu        sync.Mutex
	keys      map[string]*rsa.PrivateKey
	published []string

	requests    atomic.Int64
	unavailable atomic.Bool
}

// NewProvider starts a provider publishing one RS256 key with DefaultKeyID.
// The server is closed when the test ends.
func NewProvider(tb testing.TB) *Provider {
	tb.Helper()

	p := &Provider{keys: make(map[string]*rsa.PrivateKey)}
	p.server = httptest.NewTLSServer(http.HandlerFunc(p.serveJWKS))
	tb.Cleanup(p.server.Close)

	p.AddKey(tb, DefaultKeyID)
	return p
}

// Domain returns the host:port the provider listens on.
func (p *Provider) Domain() string {
	return p.server.Listener.Addr().String()
}

// Issuer returns the issuer expected for tokens of this provider.
func (p *Provider) Issuer() string {
	return "https://" + p.Domain() + "/"
}

// Client returns an HTTP client trusting the provider's certificate.
func (p *Provider) Client() *http.Client {
	return p.server.Client()
}

// Requests returns the number of JWKS requests served.
func (p *Provider) Requests() int64 {
	return p.requests.Load()
}

// SetUnavailable makes the JWKS endpoint answer 503 while true.
func (p *Provider) SetUnavailable(v bool) {
	p.unavailable.Store(v)
}

// AddKey generates an RSA key and publishes it under kid.
func (p *Provider) AddKey(tb testing.TB, kid string) {
	tb.Helper()
	key := generateKey(tb)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys[kid] = key
	p.published = append(p.published, kid)
}

// AddUnpublishedKey generates an RSA key usable for signing under kid that is
// not part of the served key set.
func (p *Provider) AddUnpublishedKey(tb testing.TB, kid string) {
	tb.Helper()
	key := generateKey(tb)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys[kid] = key
}

// Claims returns a valid claim set for this provider with the given scope.
func (p *Provider) Claims(scope string) map[string]any {
	return map[string]any{
		"iss":   p.Issuer(),
		"aud":   []string{DefaultAudience},
		"sub":   "auth0|test-user",
		"exp":   time.Now().Add(time.Hour).Unix(),
		"iat":   time.Now().Unix(),
		"scope": scope,
	}
}

// Token signs claims with the default key using RS256.
func (p *Provider) Token(tb testing.TB, claims map[string]any) string {
	tb.Helper()
	return p.Sign(tb, jwa.RS256(), DefaultKeyID, claims)
}

// Sign signs claims with the key registered under kid. An empty kid signs
// with the default key and omits the kid header.
func (p *Provider) Sign(tb testing.TB, alg jwa.SignatureAlgorithm, kid string, claims map[string]any) string {
	tb.Helper()

	lookup := kid
	if lookup == "" {
		lookup = DefaultKeyID
	}
	p.mu.Lock()
	priv, ok := p.keys[lookup]
	p.mu.Unlock()
	if !ok {
		tb.Fatalf("no key registered for kid %q", lookup)
	}

	tok := jwt.New()
	for k, v := range claims {
		if err := tok.Set(k, v); err != nil {
			tb.Fatalf("set claim %s: %v", k, err)
		}
	}

	privJWK, err := jwk.Import(priv)
	if err != nil {
		tb.Fatalf("import private key: %v", err)
	}
	if kid != "" {
		if err := privJWK.Set(jwk.KeyIDKey, kid); err != nil {
			tb.Fatalf("set key ID: %v", err)
		}
	}

	signed, err := jwt.Sign(tok, jwt.WithKey(alg, privJWK))
	if err != nil {
		tb.Fatalf("sign token: %v", err)
	}
	return string(signed)
}

func (p *Provider) serveJWKS(w http.ResponseWriter, r *http.Request) {
	p.requests.Add(1)

	if r.URL.Path != "/.well-known/jwks.json" {
		http.NotFound(w, r)
		return
	}
	if p.unavailable.Load() {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
		return
	}

	set, err := p.publicSet()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(set)
}

func (p *Provider) publicSet() (jwk.Set, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	set := jwk.NewSet()
	for _, kid := range p.published {
		pub, err := jwk.Import(&p.keys[kid].PublicKey)
		if err != nil {
			return nil, err
		}
		if err := pub.Set(jwk.KeyIDKey, kid); err != nil {
			return nil, err
		}
		if err := pub.Set(jwk.AlgorithmKey, jwa.RS256()); err != nil {
			return nil, err
		}
		if err := pub.Set(jwk.KeyUsageKey, "sig"); err != nil {
			return nil, err
		}
		if err := set.AddKey(pub); err != nil {
			return nil, err
		}
	}
	return set, nil
}

func generateKey(tb testing.TB) *rsa.PrivateKey {
	tb.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		tb.Fatalf("generate RSA key: %v", err)
	}
	return key
}
