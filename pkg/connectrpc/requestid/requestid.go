// Package requestid provides request ID propagation for Connect RPC handlers.
package requestid

import (
	"context"
	"encoding/hex"
	"errors"
	"net/http"

	"connectrpc.com/connect"
	"github.com/google/uuid"

	"github.com/deepworx/casting-agency/pkg/ctxutil"
)

// Config holds configuration for the request ID interceptor.
type Config struct {
	// HeaderName is the HTTP header to read request IDs from and echo them in.
	HeaderName string `koanf:"header_name"`

	// MaxLength bounds accepted inbound IDs. Longer or non-printable IDs are
	// replaced with a generated one.
	MaxLength int `koanf:"max_length"`
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		HeaderName: "X-Request-ID",
		MaxLength:  128,
	}
}

// NewInterceptor creates a Connect RPC interceptor that propagates or generates request IDs.
// It extracts the request ID from the configured header, or generates a new UUID v4 if missing.
// The request ID is stored in the context via ctxutil.WithRequestID and echoed in the
// response headers, including on errors.
func NewInterceptor(cfg Config) connect.Interceptor {
	def := DefaultConfig()
	headerName := cfg.HeaderName
	if headerName == "" {
		headerName = def.HeaderName
	}
	maxLength := cfg.MaxLength
	if maxLength <= 0 {
		maxLength = def.MaxLength
	}
	return &interceptor{headerName: headerName, maxLength: maxLength}
}

type interceptor struct {
	headerName string
	maxLength  int
}

func (i *interceptor) WrapUnary(next connect.UnaryFunc) connect.UnaryFunc {
	return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		if req.Spec().IsClient {
			return next(ctx, req)
		}
		ctx = i.ensureRequestID(ctx, req.Header())
		id, _ := ctxutil.RequestID(ctx)

		resp, err := next(ctx, req)
		if err != nil {
			i.annotateError(err, id)
			return resp, err
		}
		if resp != nil {
			resp.Header().Set(i.headerName, id)
		}
		return resp, nil
	}
}

func (i *interceptor) WrapStreamingClient(next connect.StreamingClientFunc) connect.StreamingClientFunc {
	return next
}

func (i *interceptor) WrapStreamingHandler(next connect.StreamingHandlerFunc) connect.StreamingHandlerFunc {
	return func(ctx context.Context, conn connect.StreamingHandlerConn) error {
		ctx = i.ensureRequestID(ctx, conn.RequestHeader())
		id, _ := ctxutil.RequestID(ctx)
		conn.ResponseHeader().Set(i.headerName, id)

		err := next(ctx, conn)
		if err != nil {
			i.annotateError(err, id)
		}
		return err
	}
}

func (i *interceptor) ensureRequestID(ctx context.Context, headers http.Header) context.Context {
	id := headers.Get(i.headerName)
	if !i.acceptable(id) {
		id = generateID()
	}
	return ctxutil.WithRequestID(ctx, id)
}

// annotateError attaches the request ID to Connect errors, which are sent
// with their own metadata instead of the response headers.
func (i *interceptor) annotateError(err error, id string) {
	var connectErr *connect.Error
	if errors.As(err, &connectErr) {
		connectErr.Meta().Set(i.headerName, id)
	}
}

func (i *interceptor) acceptable(id string) bool {
	if id == "" || len(id) > i.maxLength {
		return false
	}
	for j := 0; j < len(id); j++ {
		if id[j] < 0x21 || id[j] > 0x7e {
			return false
		}
	}
	return true
}

func generateID() string {
	id := uuid.New()
	return hex.EncodeToString(id[:])
}
