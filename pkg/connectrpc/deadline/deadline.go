// Package deadline provides deadline enforcement for Connect RPC handlers.
package deadline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"connectrpc.com/connect"
)

// Config holds configuration for the deadline interceptor.
type Config struct {
	// DefaultTimeout is applied when the incoming context has no deadline.
	// Must be positive (> 0).
	DefaultTimeout time.Duration `koanf:"default_timeout"`

	// MaxTimeout caps existing deadlines to min(existingDeadline, MaxTimeout).
	// Zero means no cap is applied (only DefaultTimeout is used).
	// If positive, must be >= DefaultTimeout.
	MaxTimeout time.Duration `koanf:"max_timeout"`

	// Overrides replaces DefaultTimeout for individual procedures, keyed by
	// the full procedure name or by the bare method name ("ListActors"). The
	// full name wins when both are present. Each value must be positive and,
	// when MaxTimeout is set, not exceed it.
	Overrides map[string]time.Duration `koanf:"overrides"`
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		DefaultTimeout: 30 * time.Second,
		MaxTimeout:     300 * time.Second,
	}
}

// Validate reports the first problem that would make NewInterceptor panic.
func (c Config) Validate() error {
	if c.DefaultTimeout <= 0 {
		return errors.New("DefaultTimeout must be positive")
	}
	if c.MaxTimeout > 0 && c.MaxTimeout < c.DefaultTimeout {
		return errors.New("MaxTimeout must be >= DefaultTimeout when set")
	}
	for procedure, timeout := range c.Overrides {
		if timeout <= 0 {
			return fmt.Errorf("override for %s must be positive", procedure)
		}
		if c.MaxTimeout > 0 && timeout > c.MaxTimeout {
			return fmt.Errorf("override for %s exceeds MaxTimeout", procedure)
		}
	}
	return nil
}

// NewInterceptor creates a Connect RPC interceptor that enforces deadlines.
// It applies DefaultTimeout when no deadline exists on the incoming context,
// and caps existing deadlines to MaxTimeout if configured.
//
// Panics if cfg.Validate fails.
func NewInterceptor(cfg Config) connect.Interceptor {
	if err := cfg.Validate(); err != nil {
		panic("deadline: " + err.Error())
	}
	overrides := make(map[string]time.Duration, len(cfg.Overrides))
	for procedure, timeout := range cfg.Overrides {
		overrides[procedure] = timeout
	}
	return &interceptor{
		defaultTimeout: cfg.DefaultTimeout,
		maxTimeout:     cfg.MaxTimeout,
		overrides:      overrides,
	}
}

type interceptor struct {
	defaultTimeout time.Duration
	maxTimeout     time.Duration
	overrides      map[string]time.Duration
}

func (i *interceptor) WrapUnary(next connect.UnaryFunc) connect.UnaryFunc {
	return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		if req.Spec().IsClient {
			return next(ctx, req)
		}

		ctx, cancel := i.applyDeadline(ctx, req.Spec().Procedure)
		defer cancel()

		return next(ctx, req)
	}
}

func (i *interceptor) WrapStreamingClient(next connect.StreamingClientFunc) connect.StreamingClientFunc {
	return next
}

func (i *interceptor) WrapStreamingHandler(next connect.StreamingHandlerFunc) connect.StreamingHandlerFunc {
	return next
}

// applyDeadline returns a context with an appropriate deadline and a cancel function.
func (i *interceptor) applyDeadline(ctx context.Context, procedure string) (context.Context, context.CancelFunc) {
	deadline, hasDeadline := ctx.Deadline()

	if !hasDeadline {
		return context.WithTimeout(ctx, i.timeoutFor(procedure))
	}

	if i.maxTimeout == 0 {
		return ctx, func() {}
	}

	maxDeadline := time.Now().Add(i.maxTimeout)
	if deadline.After(maxDeadline) {
		return context.WithDeadline(ctx, maxDeadline)
	}

	return ctx, func() {}
}

func (i *interceptor) timeoutFor(procedure string) time.Duration {
	if timeout, ok := i.overrides[procedure]; ok {
		return timeout
	}
	if idx := strings.LastIndexByte(procedure, '/'); idx >= 0 {
		if timeout, ok := i.overrides[procedure[idx+1:]]; ok {
			return timeout
		}
	}
	return i.defaultTimeout
}
