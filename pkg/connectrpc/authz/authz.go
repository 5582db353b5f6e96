package authz

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net/http"

	"connectrpc.com/connect"

	"github.com/deepworx/casting-agency/pkg/jwtauth"
)

// Authorizer checks an Authorization header value against a permission.
// *jwtauth.Guard implements it.
type Authorizer interface {
	Authorize(ctx context.Context, header, permission string) (jwtauth.Claims, error)
}

// Rules maps a fully qualified procedure name to the permission it requires.
// An empty permission only requires a verified token.
type Rules map[string]string

// NewInterceptor creates a Connect RPC interceptor that authorizes every
// inbound call against rules. Calls to procedures missing from rules are
// rejected. On success the verified claims and ctxutil.Principal are attached
// to the handler context.
func NewInterceptor(auth Authorizer, rules Rules) (connect.Interceptor, error) {
	if auth == nil {
		return nil, fmt.Errorf("create authz interceptor: %w", ErrAuthorizerRequired)
	}
	return &interceptor{auth: auth, rules: maps.Clone(rules)}, nil
}

type interceptor struct {
	auth  Authorizer
	rules Rules
}

func (i *interceptor) WrapUnary(next connect.UnaryFunc) connect.UnaryFunc {
	return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		if req.Spec().IsClient {
			return next(ctx, req)
		}

		ctx, err := i.authorize(ctx, req.Spec().Procedure, req.Header())
		if err != nil {
			return nil, err
		}

		return next(ctx, req)
	}
}

func (i *interceptor) WrapStreamingClient(next connect.StreamingClientFunc) connect.StreamingClientFunc {
	return next
}

func (i *interceptor) WrapStreamingHandler(next connect.StreamingHandlerFunc) connect.StreamingHandlerFunc {
	return func(ctx context.Context, conn connect.StreamingHandlerConn) error {
		ctx, err := i.authorize(ctx, conn.Spec().Procedure, conn.RequestHeader())
		if err != nil {
			return err
		}
		return next(ctx, conn)
	}
}

func (i *interceptor) authorize(ctx context.Context, procedure string, headers http.Header) (context.Context, error) {
	permission, ok := i.rules[procedure]
	if !ok {
		slog.WarnContext(ctx, "rejected unmapped procedure", slog.String("procedure", procedure))
		return nil, connect.NewError(connect.CodePermissionDenied, fmt.Errorf("%s: %w", procedure, ErrProcedureNotMapped))
	}

	claims, err := i.auth.Authorize(ctx, headers.Get("Authorization"), permission)
	if err != nil {
		return nil, toConnectError(err)
	}

	return jwtauth.ContextWithPrincipal(ctx, claims), nil
}

// toConnectError converts an authorization failure into a Connect error whose
// code follows the failure's HTTP status. The message is the failure
// description and the failure code is exposed in AuthErrorHeader.
func toConnectError(err error) *connect.Error {
	f, ok := jwtauth.AsFailure(err)
	if !ok {
		return connect.NewError(connect.CodeUnauthenticated, errors.New("unauthorized"))
	}

	connectErr := connect.NewError(codeForStatus(f.HTTPStatus), errors.New(f.Description))
	connectErr.Meta().Set(AuthErrorHeader, f.Code)
	return connectErr
}

func codeForStatus(status int) connect.Code {
	switch status {
	case http.StatusBadRequest:
		return connect.CodeInvalidArgument
	case http.StatusForbidden:
		return connect.CodePermissionDenied
	case http.StatusServiceUnavailable:
		return connect.CodeUnavailable
	default:
		return connect.CodeUnauthenticated
	}
}
