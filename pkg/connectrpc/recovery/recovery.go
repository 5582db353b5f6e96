// Package recovery provides panic recovery for Connect RPC handlers.
package recovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"

	"connectrpc.com/connect"

	"github.com/deepworx/casting-agency/pkg/ctxutil"
)

// Config holds configuration for the recovery interceptor.
type Config struct {
	// StackSize is the maximum number of stack bytes logged per panic.
	StackSize int `koanf:"stack_size"`
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		StackSize: 8192,
	}
}

// NewInterceptor creates a Connect RPC interceptor that recovers from panics.
// It catches panics in handlers, logs them with stack traces, and returns
// a connect.CodeInternal error to the client. The error message carries the
// request ID so that a client report can be matched with the log record.
func NewInterceptor(cfg Config) connect.Interceptor {
	stackSize := cfg.StackSize
	if stackSize <= 0 {
		stackSize = DefaultConfig().StackSize
	}
	return &interceptor{stackSize: stackSize}
}

type interceptor struct {
	stackSize int
}

func (i *interceptor) WrapUnary(next connect.UnaryFunc) connect.UnaryFunc {
	return func(ctx context.Context, req connect.AnyRequest) (resp connect.AnyResponse, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = i.recoverPanic(ctx, req.Spec().Procedure, r)
			}
		}()
		return next(ctx, req)
	}
}

func (i *interceptor) WrapStreamingClient(next connect.StreamingClientFunc) connect.StreamingClientFunc {
	return next
}

func (i *interceptor) WrapStreamingHandler(next connect.StreamingHandlerFunc) connect.StreamingHandlerFunc {
	return func(ctx context.Context, conn connect.StreamingHandlerConn) (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = i.recoverPanic(ctx, conn.Spec().Procedure, r)
			}
		}()
		return next(ctx, conn)
	}
}

func (i *interceptor) recoverPanic(ctx context.Context, procedure string, r any) *connect.Error {
	stack := make([]byte, i.stackSize)
	n := runtime.Stack(stack, false)

	attrs := []any{
		slog.String("procedure", procedure),
		slog.Any("panic", r),
		slog.String("stack", string(stack[:n])),
	}

	reqID, hasReqID := ctxutil.RequestID(ctx)
	if hasReqID {
		attrs = append(attrs, slog.String("request_id", reqID))
	}
	if subject, ok := ctxutil.Subject(ctx); ok {
		attrs = append(attrs, slog.String("subject", subject))
	}

	slog.ErrorContext(ctx, "panic recovered", attrs...)

	if hasReqID {
		return connect.NewError(connect.CodeInternal, fmt.Errorf("internal error (request %s)", reqID))
	}
	return connect.NewError(connect.CodeInternal, errors.New("internal error"))
}
