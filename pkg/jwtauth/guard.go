package jwtauth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	json "github.com/goccy/go-json"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/deepworx/casting-agency/pkg/ctxutil"
)

const meterName = "github.com/deepworx/casting-agency/pkg/jwtauth"

// Guard composes extraction, verification and permission checking into a
// single authorization step.
type Guard struct {
	verifier TokenVerifier
	outcomes metric.Int64Counter
}

// NewGuard creates a Guard backed by verifier.
func NewGuard(verifier TokenVerifier) (*Guard, error) {
	if verifier == nil {
		return nil, fmt.Errorf("create guard: verifier is required")
	}
	outcomes, err := otel.Meter(meterName).Int64Counter(
		"jwtauth.authorizations",
		metric.WithDescription("Authorization attempts by outcome code"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, fmt.Errorf("register authorization metric: %w", err)
	}
	return &Guard{verifier: verifier, outcomes: outcomes}, nil
}

// New builds the full pipeline from cfg: key directory, verifier and guard.
// The ctx controls the lifecycle of a cached key directory.
func New(ctx context.Context, cfg Config) (*Guard, KeyDirectory, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("create guard: %w", err)
	}
	dir, err := NewKeyDirectory(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	verifier, err := NewVerifier(cfg, dir)
	if err != nil {
		return nil, nil, err
	}
	guard, err := NewGuard(verifier)
	if err != nil {
		return nil, nil, err
	}
	return guard, dir, nil
}

// Authorize returns the verified claims for an Authorization header value if
// they grant permission. An empty header is treated as absent. Every error
// returned is a *Failure.
func (g *Guard) Authorize(ctx context.Context, header, permission string) (Claims, error) {
	claims, err := g.authorize(ctx, header, permission)
	code := "ok"
	if err != nil {
		f, _ := AsFailure(err)
		code = f.Code
		if f.Kind == KindKeyDirectoryUnavailable || f.Kind == KindUnexpectedVerificationError {
			slog.WarnContext(ctx, "authorization failed",
				slog.String("auth_code", f.Code),
				slog.String("kind", f.Kind.String()),
				slog.String("error", f.Error()),
			)
		}
	}
	g.outcomes.Add(ctx, 1, metric.WithAttributes(attribute.String("code", code)))
	return claims, err
}

func (g *Guard) authorize(ctx context.Context, header, permission string) (Claims, error) {
	token, err := ExtractToken(header)
	if err != nil {
		return Claims{}, err
	}

	claims, err := g.verifier.Verify(ctx, token)
	if err != nil {
		if f, ok := AsFailure(err); ok {
			return Claims{}, f
		}
		return Claims{}, unexpectedVerificationError(err)
	}

	if err := CheckPermission(permission, claims); err != nil {
		return Claims{}, err
	}
	return claims, nil
}

// Do authorizes the request and, on success, calls fn with the claims and a
// context carrying them. fn is never called on failure.
func (g *Guard) Do(ctx context.Context, header, permission string, fn func(ctx context.Context, claims Claims) error) error {
	claims, err := g.Authorize(ctx, header, permission)
	if err != nil {
		return err
	}
	return fn(ContextWithPrincipal(ctx, claims), claims)
}

// Require wraps next so that it only runs for requests whose Authorization
// header grants permission. Failures are written as JSON.
func (g *Guard) Require(permission string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := g.Authorize(r.Context(), r.Header.Get("Authorization"), permission)
		if err != nil {
			f, _ := AsFailure(err)
			WriteFailure(w, f)
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), claims)))
	})
}

// ContextWithPrincipal attaches claims and the derived ctxutil.Principal to ctx.
func ContextWithPrincipal(ctx context.Context, claims Claims) context.Context {
	ctx = WithClaims(ctx, claims)
	return ctxutil.WithPrincipal(ctx, ctxutil.Principal{
		Subject:     claims.Subject(),
		Permissions: claims.Scopes(),
	})
}

type failureBody struct {
	Success bool   `json:"success"`
	Error   int    `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteFailure renders f as a JSON error response with its HTTP status.
func WriteFailure(w http.ResponseWriter, f *Failure) {
	w.Header().Set("Content-Type", "application/json")
	if f.HTTPStatus == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", fmt.Sprintf(`Bearer error=%q`, f.Code))
	}
	w.WriteHeader(f.HTTPStatus)
	_ = json.NewEncoder(w).Encode(failureBody{
		Success: false,
		Error:   f.HTTPStatus,
		Code:    f.Code,
		Message: f.Description,
	})
}
