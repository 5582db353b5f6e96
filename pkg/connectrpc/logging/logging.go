// Package logging provides structured request/response logging for Connect RPC handlers.
package logging

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"connectrpc.com/connect"

	"github.com/deepworx/casting-agency/pkg/connectrpc/authz"
	"github.com/deepworx/casting-agency/pkg/ctxutil"
)

// NewInterceptor creates a Connect RPC interceptor that logs requests and responses.
// Successful requests are logged at Info level, errors at Warn level.
func NewInterceptor() connect.Interceptor {
	return &interceptor{}
}

type interceptor struct{}

func (i *interceptor) WrapUnary(next connect.UnaryFunc) connect.UnaryFunc {
	return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		start := time.Now()
		ctx, recorded := ctxutil.WithPrincipalRecorder(ctx)
		resp, err := next(ctx, req)
		logRequest(withRecorded(ctx, recorded), req.Spec().Procedure, time.Since(start), err)
		return resp, err
	}
}

func (i *interceptor) WrapStreamingClient(next connect.StreamingClientFunc) connect.StreamingClientFunc {
	return next
}

func (i *interceptor) WrapStreamingHandler(next connect.StreamingHandlerFunc) connect.StreamingHandlerFunc {
	return func(ctx context.Context, conn connect.StreamingHandlerConn) error {
		start := time.Now()
		ctx, recorded := ctxutil.WithPrincipalRecorder(ctx)
		err := next(ctx, conn)
		logRequest(withRecorded(ctx, recorded), conn.Spec().Procedure, time.Since(start), err)
		return err
	}
}

// withRecorded copies the principal established downstream into ctx.
func withRecorded(ctx context.Context, recorded func() (ctxutil.Principal, bool)) context.Context {
	if p, ok := recorded(); ok {
		return ctxutil.WithPrincipal(ctx, p)
	}
	return ctx
}

// logRequest writes one record per call. Calls rejected by authz carry an
// auth_code instead of a subject.
func logRequest(ctx context.Context, procedure string, elapsed time.Duration, err error) {
	attrs := []any{
		slog.String("procedure", procedure),
		slog.String("status", getStatus(err)),
		slog.Duration("duration", elapsed),
	}

	if reqID, ok := ctxutil.RequestID(ctx); ok {
		attrs = append(attrs, slog.String("request_id", reqID))
	}
	if subject, ok := ctxutil.Subject(ctx); ok {
		attrs = append(attrs, slog.String("subject", subject))
	}
	if code := authCode(err); code != "" {
		attrs = append(attrs, slog.String("auth_code", code))
	}

	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
		slog.WarnContext(ctx, "rpc failed", attrs...)
		return
	}

	slog.InfoContext(ctx, "rpc completed", attrs...)
}

func getStatus(err error) string {
	if err == nil {
		return "ok"
	}
	var connectErr *connect.Error
	if errors.As(err, &connectErr) {
		return connectErr.Code().String()
	}
	return "unknown"
}

func authCode(err error) string {
	var connectErr *connect.Error
	if errors.As(err, &connectErr) {
		return connectErr.Meta().Get(authz.AuthErrorHeader)
	}
	return ""
}
