// Package interceptor provides default interceptor chain builders for Connect RPC services.
package interceptor

import (
	"fmt"

	"connectrpc.com/connect"
	"connectrpc.com/otelconnect"

	"github.com/deepworx/casting-agency/pkg/connectrpc/authz"
	"github.com/deepworx/casting-agency/pkg/connectrpc/deadline"
	"github.com/deepworx/casting-agency/pkg/connectrpc/errors"
	"github.com/deepworx/casting-agency/pkg/connectrpc/logging"
	"github.com/deepworx/casting-agency/pkg/connectrpc/recovery"
	"github.com/deepworx/casting-agency/pkg/connectrpc/requestid"
	"github.com/deepworx/casting-agency/pkg/connectrpc/validate"
)

// Options configures the interceptor chain.
type Options struct {
	deadlineCfg  *deadline.Config
	requestIDCfg *requestid.Config
	recoveryCfg  *recovery.Config
}

// Option configures the interceptor builder.
type Option func(*Options)

// WithDeadline overrides the default deadline configuration.
func WithDeadline(cfg deadline.Config) Option {
	return func(o *Options) {
		o.deadlineCfg = &cfg
	}
}

// WithRequestID overrides the default request ID configuration.
func WithRequestID(cfg requestid.Config) Option {
	return func(o *Options) {
		o.requestIDCfg = &cfg
	}
}

// WithRecovery overrides the default recovery configuration.
func WithRecovery(cfg recovery.Config) Option {
	return func(o *Options) {
		o.recoveryCfg = &cfg
	}
}

// BuildDefault creates a standard interceptor chain without authorization.
// Returns interceptors in order: recovery, deadline, requestid, otel, logging, validate, errors.
func BuildDefault(opts ...Option) ([]connect.Interceptor, error) {
	o := &Options{}
	for _, opt := range opts {
		opt(o)
	}
	return buildChain(o, nil)
}

// BuildDefaultWithAuth creates a standard interceptor chain that authorizes
// every procedure against rules.
// Returns interceptors in order: recovery, deadline, requestid, otel, logging, authz, validate, errors.
// Returns error if auth is nil.
func BuildDefaultWithAuth(auth authz.Authorizer, rules authz.Rules, opts ...Option) ([]connect.Interceptor, error) {
	if auth == nil {
		return nil, fmt.Errorf("build interceptors: authorizer is required")
	}
	o := &Options{}
	for _, opt := range opts {
		opt(o)
	}
	authInterceptor, err := authz.NewInterceptor(auth, rules)
	if err != nil {
		return nil, fmt.Errorf("build interceptors: %w", err)
	}
	return buildChain(o, authInterceptor)
}

func buildChain(o *Options, auth connect.Interceptor) ([]connect.Interceptor, error) {
	interceptors := make([]connect.Interceptor, 0, 8)

	// 1. Recovery - always first, catches panics from all downstream
	recoveryCfg := recovery.DefaultConfig()
	if o.recoveryCfg != nil {
		recoveryCfg = *o.recoveryCfg
	}
	interceptors = append(interceptors, recovery.NewInterceptor(recoveryCfg))

	// 2. Deadline - enforces timeouts early
	deadlineCfg := deadline.DefaultConfig()
	if o.deadlineCfg != nil {
		deadlineCfg = *o.deadlineCfg
	}
	interceptors = append(interceptors, deadline.NewInterceptor(deadlineCfg))

	// 3. RequestID - generates ID before logging/tracing uses it
	requestIDCfg := requestid.DefaultConfig()
	if o.requestIDCfg != nil {
		requestIDCfg = *o.requestIDCfg
	}
	interceptors = append(interceptors, requestid.NewInterceptor(requestIDCfg))

	// 4. OTel - captures full span including auth/validation time
	otelInterceptor, err := otelconnect.NewInterceptor()
	if err != nil {
		return nil, fmt.Errorf("create otel interceptor: %w", err)
	}
	interceptors = append(interceptors, otelInterceptor)

	// 5. Logging - logs with request ID context, sees auth rejections
	interceptors = append(interceptors, logging.NewInterceptor())

	// 6. Authz (optional) - verifies the bearer token and the procedure's permission
	if auth != nil {
		interceptors = append(interceptors, auth)
	}

	// 7. Validate - validates request payloads after auth
	interceptors = append(interceptors, validate.NewInterceptor())

	// 8. Errors - always last, maps all errors to Connect codes
	interceptors = append(interceptors, errors.NewInterceptor())

	return interceptors, nil
}
