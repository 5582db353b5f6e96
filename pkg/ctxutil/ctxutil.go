// Package ctxutil provides utility functions for storing and retrieving
// request-scoped values in context.Context.
package ctxutil

import (
	"context"
	"sync"
)

// ctxKey is an unexported type for context keys to prevent collisions.
type ctxKey int

const (
	requestIDKey ctxKey = iota
	principalKey
	recorderKey
)

// Principal is the caller identity made available to logging and handlers
// after authorization succeeds.
type Principal struct {
	Subject     string
	Permissions []string
}

// WithRequestID returns a new context with the request ID set.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestID returns the request ID from the context.
func RequestID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey).(string)
	return id, ok
}

// WithPrincipal returns a new context with the principal set. The principal is
// also reported to a recorder installed by an enclosing WithPrincipalRecorder.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	if r, ok := ctx.Value(recorderKey).(*principalRecorder); ok {
		r.set(p)
	}
	return context.WithValue(ctx, principalKey, p)
}

// WithPrincipalRecorder returns a context whose descendants report the
// principal they establish, and a function that reads it back. Outer
// middleware uses it to learn the caller after inner middleware authorized it.
func WithPrincipalRecorder(ctx context.Context) (context.Context, func() (Principal, bool)) {
	r := &principalRecorder{}
	return context.WithValue(ctx, recorderKey, r), r.get
}

type principalRecorder struct {
	mu sync.Mutex
	p  Principal
	ok bool
}

func (r *principalRecorder) set(p Principal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.p, r.ok = p, true
}

func (r *principalRecorder) get() (Principal, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.p, r.ok
}

// GetPrincipal returns the principal from the context.
func GetPrincipal(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok
}

// Subject returns the authenticated subject, if any.
func Subject(ctx context.Context) (string, bool) {
	p, ok := GetPrincipal(ctx)
	if !ok || p.Subject == "" {
		return "", false
	}
	return p.Subject, true
}

// Permissions returns the granted permissions from the context principal.
func Permissions(ctx context.Context) ([]string, bool) {
	p, ok := GetPrincipal(ctx)
	if !ok {
		return nil, false
	}
	return p.Permissions, true
}
