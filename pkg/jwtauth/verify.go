package jwtauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	json "github.com/goccy/go-json"
	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jws"
	"github.com/lestrrat-go/jwx/v3/jwt"

	"github.com/deepworx/casting-agency/pkg/tracing"
)

// TokenVerifier verifies a bearer token and returns its claims.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (Claims, error)
}

// Verifier checks token signatures against a KeyDirectory and validates the
// standard claims.
type Verifier struct {
	cfg  Config
	keys KeyDirectory
}

// NewVerifier creates a Verifier. The configuration is copied and never mutated.
func NewVerifier(cfg Config, keys KeyDirectory) (*Verifier, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("create verifier: %w", err)
	}
	if keys == nil {
		return nil, fmt.Errorf("create verifier: key directory is required")
	}
	cfg.Algorithms = append([]string(nil), cfg.Algorithms...)
	return &Verifier{cfg: cfg, keys: keys}, nil
}

// Verify returns the claims of token if its signature matches a published key
// and its expiry, audience and issuer are valid. Failures are *Failure values.
func (v *Verifier) Verify(ctx context.Context, token string) (Claims, error) {
	keys, err := v.keys.FetchKeys(ctx)
	if err != nil {
		return Claims{}, keyDirectoryUnavailable(err)
	}

	kid, alg, err := unverifiedHeader(token)
	if err != nil {
		return Claims{}, err
	}

	key, ok := keys.Lookup(kid)
	if !ok {
		key, err = v.refreshAndLookup(ctx, kid)
		if err != nil {
			return Claims{}, err
		}
	}

	if !v.cfg.acceptsAlgorithm(alg.String()) {
		return Claims{}, malformedToken("Unable to parse authentication token.", http.StatusBadRequest,
			fmt.Errorf("algorithm %s not accepted", alg))
	}

	tok, err := tracing.WithSpanResult(ctx, "jwtauth.parse_token", func(ctx context.Context) (jwt.Token, error) {
		return jwt.Parse(
			[]byte(token),
			jwt.WithKey(alg, key.PublicKey()),
			jwt.WithValidate(true),
			jwt.WithIssuer(v.cfg.Issuer()),
			jwt.WithAudience(v.cfg.Audience),
			jwt.WithAcceptableSkew(v.cfg.Leeway),
		)
	})
	if err != nil {
		return Claims{}, mapJWTError(err)
	}

	payload, err := json.Marshal(tok)
	if err != nil {
		return Claims{}, fmt.Errorf("encode verified token: %w", err)
	}
	return claimsFromPayload(payload)
}

// refreshAndLookup retries a missed key ID once against a refreshed key set
// when the directory supports it.
func (v *Verifier) refreshAndLookup(ctx context.Context, kid string) (SigningKey, error) {
	refresher, ok := v.keys.(KeyRefresher)
	if !ok {
		return SigningKey{}, keyNotFound(kid)
	}
	keys, err := refresher.Refresh(ctx)
	if err != nil {
		return SigningKey{}, keyDirectoryUnavailable(err)
	}
	key, ok := keys.Lookup(kid)
	if !ok {
		return SigningKey{}, keyNotFound(kid)
	}
	return key, nil
}

// unverifiedHeader reads kid and alg from the protected header without
// checking the signature.
func unverifiedHeader(token string) (string, jwa.SignatureAlgorithm, error) {
	msg, err := jws.Parse([]byte(token))
	if err != nil {
		return "", jwa.SignatureAlgorithm{}, malformedToken("Unable to parse authentication token.", http.StatusBadRequest, err)
	}
	sigs := msg.Signatures()
	if len(sigs) != 1 {
		return "", jwa.SignatureAlgorithm{}, malformedToken("Unable to parse authentication token.", http.StatusBadRequest,
			fmt.Errorf("expected one signature, got %d", len(sigs)))
	}
	headers := sigs[0].ProtectedHeaders()

	kid, ok := headers.KeyID()
	if !ok || kid == "" {
		return "", jwa.SignatureAlgorithm{}, malformedToken("Authorization malformed.", http.StatusUnauthorized, nil)
	}
	alg, ok := headers.Algorithm()
	if !ok {
		return "", jwa.SignatureAlgorithm{}, malformedToken("Unable to parse authentication token.", http.StatusBadRequest,
			errors.New("missing alg header"))
	}
	return kid, alg, nil
}

func mapJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.TokenExpiredError()):
		return tokenExpired(err)
	case errors.Is(err, jwt.InvalidIssuerError()),
		errors.Is(err, jwt.InvalidAudienceError()),
		errors.Is(err, jwt.TokenNotYetValidError()):
		return invalidClaims(err)
	default:
		return malformedToken("Unable to parse authentication token.", http.StatusBadRequest, err)
	}
}

var _ TokenVerifier = (*Verifier)(nil)
