package jwtauth

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

// Claims is the verified payload of a token. Only the Verifier produces a
// populated value; the zero value carries no identity.
type Claims struct {
	issuer    string
	subject   string
	audience  []string
	expiresAt time.Time
	scope     string
	hasScope  bool
	scopes    []string
	raw       map[string]any
}

// Issuer returns the "iss" claim.
func (c Claims) Issuer() string { return c.issuer }

// Subject returns the "sub" claim.
func (c Claims) Subject() string { return c.subject }

// Audience returns a copy of the "aud" claim.
func (c Claims) Audience() []string { return slices.Clone(c.audience) }

// ExpiresAt returns the "exp" claim, or the zero time if absent.
func (c Claims) ExpiresAt() time.Time { return c.expiresAt }

// Scope returns the space-delimited scope string and whether the claim was present.
func (c Claims) Scope() (string, bool) { return c.scope, c.hasScope }

// Scopes returns a copy of the individual scope tokens.
func (c Claims) Scopes() []string { return slices.Clone(c.scopes) }

// HasPermission reports whether permission is one of the scope tokens.
func (c Claims) HasPermission(permission string) bool {
	return slices.Contains(c.scopes, permission)
}

// Get returns a copy of a raw claim value as decoded from JSON. Nested
// objects and arrays are copied too, so the result may be modified freely.
func (c Claims) Get(name string) (any, bool) {
	v, ok := c.raw[name]
	return cloneValue(v), ok
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(val))
		for k, item := range val {
			m[k] = cloneValue(item)
		}
		return m
	case []any:
		list := make([]any, len(val))
		for i, item := range val {
			list[i] = cloneValue(item)
		}
		return list
	default:
		return v
	}
}

// MarshalJSON encodes the raw payload.
func (c Claims) MarshalJSON() ([]byte, error) {
	if c.raw == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(c.raw)
}

// claimsFromPayload builds Claims from a verified JSON payload.
func claimsFromPayload(payload []byte) (Claims, error) {
	var raw map[string]any
	if err := json.Unmarshal(payload, &raw); err != nil {
		return Claims{}, fmt.Errorf("decode claims: %w", err)
	}

	c := Claims{raw: raw}
	c.issuer, _ = raw["iss"].(string)
	c.subject, _ = raw["sub"].(string)

	if aud, ok := raw["aud"]; ok {
		if list, err := toStringSlice(aud); err == nil {
			c.audience = list
		}
	}
	if exp, ok := raw["exp"].(float64); ok {
		c.expiresAt = time.Unix(int64(exp), 0).UTC()
	}
	if v, ok := raw["scope"]; ok {
		if scopes, err := toStringSlice(v); err == nil {
			c.hasScope = true
			c.scopes = scopes
			c.scope = strings.Join(scopes, " ")
			if s, ok := v.(string); ok {
				c.scope = s
			}
		}
	}
	return c, nil
}

// toStringSlice converts a claim value to []string.
func toStringSlice(v any) ([]string, error) {
	switch val := v.(type) {
	case []string:
		return val, nil
	case []any:
		result := make([]string, 0, len(val))
		for i, item := range val {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("element %d: cannot convert %T to string", i, item)
			}
			result = append(result, s)
		}
		return result, nil
	case string:
		return strings.Fields(val), nil
	default:
		return nil, fmt.Errorf("cannot convert %T to []string", v)
	}
}

type ctxKey int

const claimsKey ctxKey = iota

// WithClaims returns a new context carrying claims.
func WithClaims(ctx context.Context, claims Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// ClaimsFromContext returns the claims attached by the guard.
func ClaimsFromContext(ctx context.Context) (Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(Claims)
	return claims, ok
}
