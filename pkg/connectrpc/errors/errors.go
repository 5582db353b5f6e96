// Package errors provides error mapping for Connect RPC handlers.
package errors

import (
	"context"
	"errors"
	"log/slog"

	"connectrpc.com/connect"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ConnectCoder allows errors to specify their Connect RPC error code.
// Implement this interface on domain errors to map them to appropriate
// Connect codes while preserving the original error message.
type ConnectCoder interface {
	ConnectCode() connect.Code
}

// Postgres SQLSTATE codes surfaced to clients.
const (
	pgNotNullViolation    = "23502"
	pgForeignKeyViolation = "23503"
	pgUniqueViolation     = "23505"
	pgCheckViolation      = "23514"
)

// NewInterceptor creates a Connect RPC interceptor that maps errors to
// appropriate Connect codes.
//
// Error mapping priority:
//  1. context.Canceled → CodeCanceled
//  2. context.DeadlineExceeded → CodeDeadlineExceeded
//  3. ConnectCoder interface → code from ConnectCode()
//  4. *connect.Error → preserved as-is
//  5. pgx.ErrNoRows → CodeNotFound
//  6. Postgres constraint violations → FailedPrecondition, AlreadyExists or InvalidArgument
//  7. Any other error → CodeInternal with message "internal error"
//
// For mapped errors (1-4), the original message is preserved. Database errors
// (5-6) get a fixed message so that SQL details never reach the client.
func NewInterceptor() connect.Interceptor {
	return &interceptor{}
}

type interceptor struct{}

func (i *interceptor) WrapUnary(next connect.UnaryFunc) connect.UnaryFunc {
	return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		resp, err := next(ctx, req)
		if err != nil {
			return resp, mapLogged(ctx, req.Spec().Procedure, err)
		}
		return resp, nil
	}
}

func (i *interceptor) WrapStreamingClient(next connect.StreamingClientFunc) connect.StreamingClientFunc {
	return next
}

func (i *interceptor) WrapStreamingHandler(next connect.StreamingHandlerFunc) connect.StreamingHandlerFunc {
	return func(ctx context.Context, conn connect.StreamingHandlerConn) error {
		err := next(ctx, conn)
		if err != nil {
			return mapLogged(ctx, conn.Spec().Procedure, err)
		}
		return nil
	}
}

// mapLogged maps err and logs the original cause when the mapping hides it.
func mapLogged(ctx context.Context, procedure string, err error) *connect.Error {
	mapped := mapError(err)
	if mapped.Code() == connect.CodeInternal && !errors.Is(mapped, err) {
		slog.ErrorContext(ctx, "internal error",
			slog.String("procedure", procedure),
			slog.String("error", err.Error()),
		)
	}
	return mapped
}

func mapError(err error) *connect.Error {
	// Check context errors first
	if errors.Is(err, context.Canceled) {
		return connect.NewError(connect.CodeCanceled, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	}

	// Check if error implements ConnectCoder
	var coder ConnectCoder
	if errors.As(err, &coder) {
		return connect.NewError(coder.ConnectCode(), err)
	}

	// Check if already a connect.Error
	var connectErr *connect.Error
	if errors.As(err, &connectErr) {
		return connectErr
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return connect.NewError(connect.CodeNotFound, errors.New("not found"))
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if mapped := mapPgError(pgErr); mapped != nil {
			return mapped
		}
	}

	// Unmapped error: return CodeInternal with sanitized message
	return connect.NewError(connect.CodeInternal, errors.New("internal error"))
}

func mapPgError(pgErr *pgconn.PgError) *connect.Error {
	switch pgErr.Code {
	case pgForeignKeyViolation:
		return connect.NewError(connect.CodeFailedPrecondition, errors.New("referenced record does not exist"))
	case pgUniqueViolation:
		return connect.NewError(connect.CodeAlreadyExists, errors.New("record already exists"))
	case pgNotNullViolation, pgCheckViolation:
		return connect.NewError(connect.CodeInvalidArgument, errors.New("record violates a constraint"))
	default:
		return nil
	}
}
