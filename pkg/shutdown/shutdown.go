// Package shutdown runs named cleanup handlers in reverse registration order
// when a service stops.
package shutdown

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// DefaultShutdownTimeout is the default time allowed for graceful shutdown.
const DefaultShutdownTimeout = 30 * time.Second

// Handler is called during shutdown with the provided context.
type Handler func(ctx context.Context) error

type namedHandler struct {
	name string
	fn   Handler
}

// Registry holds shutdown handlers. The zero value is ready to use.
type Registry struct {
	mu       sync.Mutex
	handlers []namedHandler
}

// Register adds h under name. Handlers run last-registered first, so
// resources opened later are released before the ones they depend on.
func (r *Registry) Register(name string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers = append(r.handlers, namedHandler{name: name, fn: h})
}

// Names returns the registered handler names in the order they will run.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.handlers))
	for i := len(r.handlers) - 1; i >= 0; i-- {
		names = append(names, r.handlers[i].name)
	}
	return names
}

// Shutdown runs and clears every handler. A failing handler does not stop
// the others; the returned error joins each failure prefixed by its name.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	handlers := r.handlers
	r.handlers = nil
	r.mu.Unlock()

	var errs []error
	for i := len(handlers) - 1; i >= 0; i-- {
		h := handlers[i]
		start := time.Now()
		err := h.fn(ctx)
		attrs := []any{
			slog.String("handler", h.name),
			slog.Duration("duration", time.Since(start)),
		}
		if err != nil {
			slog.ErrorContext(ctx, "shutdown handler failed", append(attrs, slog.String("error", err.Error()))...)
			errs = append(errs, fmt.Errorf("%s: %w", h.name, err))
			continue
		}
		slog.DebugContext(ctx, "shutdown handler completed", attrs...)
	}
	return errors.Join(errs...)
}

// WaitForSignal blocks until SIGINT or SIGTERM arrives or ctx is done, then
// runs Shutdown with a fresh context bounded by timeout.
func (r *Registry) WaitForSignal(ctx context.Context, timeout time.Duration) error {
	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	<-sigCtx.Done()
	slog.InfoContext(ctx, "shutting down",
		slog.Duration("timeout", timeout),
		slog.Any("handlers", r.Names()),
	)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	return r.Shutdown(shutdownCtx)
}

var defaultRegistry Registry

// Register adds h to the process-wide registry.
func Register(name string, h Handler) {
	defaultRegistry.Register(name, h)
}

// Shutdown runs the process-wide registry.
func Shutdown(ctx context.Context) error {
	return defaultRegistry.Shutdown(ctx)
}

// WaitForSignal waits on the process-wide registry with DefaultShutdownTimeout.
func WaitForSignal(ctx context.Context) error {
	return defaultRegistry.WaitForSignal(ctx, DefaultShutdownTimeout)
}

// WaitForSignalWithTimeout waits on the process-wide registry.
func WaitForSignalWithTimeout(ctx context.Context, timeout time.Duration) error {
	return defaultRegistry.WaitForSignal(ctx, timeout)
}
