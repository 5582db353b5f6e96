// Package grpchealth aggregates dependency health checks behind the
// connectrpc.com/grpchealth endpoint and a plain HTTP readiness probe.
//
// Registered checkers are probed in parallel at a fixed interval. Each
// checker is published as its own health service, and the aggregate ("")
// service is serving only if every check passes.
package grpchealth

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"connectrpc.com/connect"
	"connectrpc.com/grpchealth"
	json "github.com/goccy/go-json"
)

// HealthChecker checks the readiness of a dependency.
type HealthChecker interface {
	// Check returns true if the dependency is ready.
	// The context contains the configured timeout.
	Check(ctx context.Context) bool
}

// HealthCheckerFunc allows simple functions to be used as HealthChecker.
type HealthCheckerFunc func(ctx context.Context) bool

// Check implements HealthChecker.
func (f HealthCheckerFunc) Check(ctx context.Context) bool {
	return f(ctx)
}

// Config holds configuration for the health aggregator.
type Config struct {
	// Interval between health check cycles.
	Interval time.Duration `koanf:"interval"`

	// Timeout for each individual health check.
	Timeout time.Duration `koanf:"timeout"`
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		Interval: 10 * time.Second,
		Timeout:  5 * time.Second,
	}
}

// Report is a snapshot of the last check cycle.
type Report struct {
	Serving   bool            `json:"serving"`
	Checks    map[string]bool `json:"checks"`
	CheckedAt time.Time       `json:"checked_at"`
}

// Aggregator probes registered health checkers and updates health status.
type Aggregator struct {
	cfg     Config
	checker *grpchealth.StaticChecker

	mu       sync.RWMutex
	services map[string]HealthChecker
	serving  bool
	results  map[string]bool
	checked  time.Time
}

// NewAggregator creates a new health aggregator.
// The aggregator starts in NotServing state until the first check cycle completes.
func NewAggregator(cfg Config) *Aggregator {
	checker := grpchealth.NewStaticChecker()
	checker.SetStatus("", grpchealth.StatusNotServing)

	return &Aggregator{
		cfg:      cfg,
		checker:  checker,
		services: make(map[string]HealthChecker),
	}
}

// Register adds a health checker with the given name. The name is also the
// health service name reported by the gRPC endpoint.
// Returns the Aggregator for method chaining.
// Panics if name is empty or already registered.
func (a *Aggregator) Register(name string, checker HealthChecker) *Aggregator {
	if name == "" {
		panic("grpchealth: name cannot be empty")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists := a.services[name]; exists {
		panic("grpchealth: checker already registered: " + name)
	}

	a.services[name] = checker
	a.checker.SetStatus(name, grpchealth.StatusNotServing)
	return a
}

// Handler returns the HTTP handler for the gRPC health endpoint.
// Mount on your HTTP mux: mux.Handle(aggregator.Handler())
func (a *Aggregator) Handler(opts ...connect.HandlerOption) (string, http.Handler) {
	return grpchealth.NewHandler(a.checker, opts...)
}

// ReadinessHandler serves the last Report as JSON with status 200 when
// serving and 503 otherwise.
func (a *Aggregator) ReadinessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		report := a.Report()
		status := http.StatusOK
		if !report.Serving {
			status = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(report)
	})
}

// Run starts the health check loop and blocks until ctx is cancelled.
// It probes all registered checkers in parallel and updates the aggregate status.
func (a *Aggregator) Run(ctx context.Context) error {
	ticker := time.NewTicker(a.cfg.Interval)
	defer ticker.Stop()

	// Run first check immediately
	a.runChecks(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			a.runChecks(ctx)
		}
	}
}

// IsServing returns the current aggregate health status (thread-safe).
func (a *Aggregator) IsServing() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.serving
}

// Report returns a copy of the last check cycle's results.
func (a *Aggregator) Report() Report {
	a.mu.RLock()
	defer a.mu.RUnlock()

	checks := make(map[string]bool, len(a.results))
	for name, ok := range a.results {
		checks[name] = ok
	}
	return Report{Serving: a.serving, Checks: checks, CheckedAt: a.checked}
}

// runChecks executes all registered health checks in parallel.
func (a *Aggregator) runChecks(ctx context.Context) {
	a.mu.RLock()
	services := make(map[string]HealthChecker, len(a.services))
	for name, checker := range a.services {
		services[name] = checker
	}
	a.mu.RUnlock()

	results := make(map[string]bool, len(services))
	var resultsMu sync.Mutex
	var wg sync.WaitGroup

	for name, checker := range services {
		wg.Add(1)
		go func(name string, checker HealthChecker) {
			defer wg.Done()

			checkCtx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
			defer cancel()

			healthy := a.safeCheck(checkCtx, name, checker)

			resultsMu.Lock()
			results[name] = healthy
			resultsMu.Unlock()
		}(name, checker)
	}

	wg.Wait()

	allHealthy := true
	for _, healthy := range results {
		if !healthy {
			allHealthy = false
			break
		}
	}

	a.updateStatus(allHealthy, results)
}

// safeCheck executes a health check with panic recovery.
func (a *Aggregator) safeCheck(ctx context.Context, name string, checker HealthChecker) (healthy bool) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("health check panicked",
				slog.String("service", name),
				slog.Any("panic", r),
			)
			healthy = false
		}
	}()

	return checker.Check(ctx)
}

// updateStatus records results, publishes per-service and aggregate status,
// and logs transitions.
func (a *Aggregator) updateStatus(serving bool, results map[string]bool) {
	a.mu.Lock()
	changed := a.serving != serving
	previous := a.results
	a.serving = serving
	a.results = results
	a.checked = time.Now()
	a.mu.Unlock()

	a.checker.SetStatus("", statusOf(serving))
	for name, healthy := range results {
		a.checker.SetStatus(name, statusOf(healthy))
		if prev, ok := previous[name]; ok && prev != healthy {
			slog.Warn("health check changed",
				slog.String("service", name),
				slog.Bool("healthy", healthy),
			)
		}
	}

	if changed {
		slog.Info("health status changed",
			slog.Bool("serving", serving),
			slog.Any("failing", failing(results)),
		)
	}
}

func statusOf(healthy bool) grpchealth.Status {
	if healthy {
		return grpchealth.StatusServing
	}
	return grpchealth.StatusNotServing
}

func failing(results map[string]bool) []string {
	var names []string
	for name, healthy := range results {
		if !healthy {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
