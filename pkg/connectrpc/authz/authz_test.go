package authz

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"connectrpc.com/connect"

	"github.com/deepworx/casting-agency/pkg/ctxutil"
	"github.com/deepworx/casting-agency/pkg/jwtauth"
	"github.com/deepworx/casting-agency/pkg/jwtauth/jwtauthtest"
)

const (
	listProcedure   = "/casting.v1.CastingService/ListMovies"
	deleteProcedure = "/casting.v1.CastingService/DeleteMovie"
	whoamiProcedure = "/casting.v1.CastingService/WhoAmI"
)

func newTestInterceptor(t *testing.T) (*interceptor, *jwtauthtest.Provider) {
	t.Helper()

	p := jwtauthtest.NewProvider(t)
	guard, _, err := jwtauth.New(context.Background(), jwtauth.Config{
		Domain:     p.Domain(),
		Audience:   jwtauthtest.DefaultAudience,
		Algorithms: []string{"RS256"},
		HTTPClient: p.Client(),
	})
	if err != nil {
		t.Fatalf("jwtauth.New() error = %v", err)
	}

	i, err := NewInterceptor(guard, Rules{
		listProcedure:   "get:movies",
		deleteProcedure: "delete:movies",
		whoamiProcedure: "",
	})
	if err != nil {
		t.Fatalf("NewInterceptor() error = %v", err)
	}
	return i.(*interceptor), p
}

func TestInterceptor_Authorize(t *testing.T) {
	t.Parallel()

	i, p := newTestInterceptor(t)
	token := p.Token(t, p.Claims("get:movies post:movies"))

	tests := []struct {
		name       string
		procedure  string
		authHeader string
		wantCode   connect.Code
		wantAuth   string
	}{
		{
			name:       "granted",
			procedure:  listProcedure,
			authHeader: "Bearer " + token,
		},
		{
			name:       "authenticate only",
			procedure:  whoamiProcedure,
			authHeader: "Bearer " + token,
		},
		{
			name:       "permission denied",
			procedure:  deleteProcedure,
			authHeader: "Bearer " + token,
			wantCode:   connect.CodePermissionDenied,
			wantAuth:   jwtauth.CodeUnauthorized,
		},
		{
			name:      "missing header",
			procedure: listProcedure,
			wantCode:  connect.CodeUnauthenticated,
			wantAuth:  jwtauth.CodeHeaderMissing,
		},
		{
			name:       "basic scheme",
			procedure:  listProcedure,
			authHeader: "Basic abc123",
			wantCode:   connect.CodeUnauthenticated,
			wantAuth:   jwtauth.CodeInvalidHeader,
		},
		{
			name:       "unparseable token",
			procedure:  listProcedure,
			authHeader: "Bearer invalid.token.here",
			wantCode:   connect.CodeInvalidArgument,
			wantAuth:   jwtauth.CodeInvalidHeader,
		},
		{
			name:       "unmapped procedure",
			procedure:  "/casting.v1.CastingService/Unknown",
			authHeader: "Bearer " + token,
			wantCode:   connect.CodePermissionDenied,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			headers := http.Header{}
			if tt.authHeader != "" {
				headers.Set("Authorization", tt.authHeader)
			}

			ctx, err := i.authorize(context.Background(), tt.procedure, headers)

			if tt.wantCode != 0 {
				var connectErr *connect.Error
				if !errors.As(err, &connectErr) {
					t.Fatalf("expected connect.Error, got %T (%v)", err, err)
				}
				if connectErr.Code() != tt.wantCode {
					t.Errorf("code = %v, want %v", connectErr.Code(), tt.wantCode)
				}
				if got := connectErr.Meta().Get(AuthErrorHeader); got != tt.wantAuth {
					t.Errorf("%s = %q, want %q", AuthErrorHeader, got, tt.wantAuth)
				}
				return
			}

			if err != nil {
				t.Fatalf("authorize() error = %v", err)
			}
			if sub, ok := ctxutil.Subject(ctx); !ok || sub != "auth0|test-user" {
				t.Errorf("Subject() = %q, %v", sub, ok)
			}
			if _, ok := jwtauth.ClaimsFromContext(ctx); !ok {
				t.Error("claims not found in context")
			}
		})
	}
}

func TestInterceptor_UnmappedIsNotAuthorized(t *testing.T) {
	t.Parallel()

	stub := &stubAuthorizer{}
	i, err := NewInterceptor(stub, Rules{})
	if err != nil {
		t.Fatalf("NewInterceptor() error = %v", err)
	}

	_, err = i.(*interceptor).authorize(context.Background(), listProcedure, http.Header{})
	if !errors.Is(err, ErrProcedureNotMapped) {
		t.Errorf("authorize() error = %v, want %v", err, ErrProcedureNotMapped)
	}
	if stub.calls != 0 {
		t.Errorf("Authorize calls = %d, want 0", stub.calls)
	}
}

func TestInterceptor_RulesAreCopied(t *testing.T) {
	t.Parallel()

	rules := Rules{listProcedure: "get:movies"}
	stub := &stubAuthorizer{}
	i, err := NewInterceptor(stub, rules)
	if err != nil {
		t.Fatalf("NewInterceptor() error = %v", err)
	}
	rules[listProcedure] = ""

	_, _ = i.(*interceptor).authorize(context.Background(), listProcedure, http.Header{})
	if stub.permission != "get:movies" {
		t.Errorf("permission = %q, want %q", stub.permission, "get:movies")
	}
}

func TestNewInterceptor_NilAuthorizer(t *testing.T) {
	t.Parallel()

	if _, err := NewInterceptor(nil, Rules{}); !errors.Is(err, ErrAuthorizerRequired) {
		t.Errorf("NewInterceptor() error = %v, want %v", err, ErrAuthorizerRequired)
	}
}

func TestCodeForStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status int
		want   connect.Code
	}{
		{status: http.StatusBadRequest, want: connect.CodeInvalidArgument},
		{status: http.StatusUnauthorized, want: connect.CodeUnauthenticated},
		{status: http.StatusForbidden, want: connect.CodePermissionDenied},
		{status: http.StatusServiceUnavailable, want: connect.CodeUnavailable},
		{status: http.StatusTeapot, want: connect.CodeUnauthenticated},
	}
	for _, tt := range tests {
		if got := codeForStatus(tt.status); got != tt.want {
			t.Errorf("codeForStatus(%d) = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestToConnectError_NonFailure(t *testing.T) {
	t.Parallel()

	err := toConnectError(errors.New("database password is hunter2"))
	if err.Code() != connect.CodeUnauthenticated {
		t.Errorf("code = %v, want %v", err.Code(), connect.CodeUnauthenticated)
	}
	if err.Message() != "unauthorized" {
		t.Errorf("message = %q, want sanitized", err.Message())
	}
}

type stubAuthorizer struct {
	calls      int
	permission string
}

func (s *stubAuthorizer) Authorize(_ context.Context, _, permission string) (jwtauth.Claims, error) {
	s.calls++
	s.permission = permission
	return jwtauth.Claims{}, nil
}
