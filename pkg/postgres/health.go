package postgres

import (
	"context"
	"log/slog"
)

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthChecker checks database connectivity.
// Implements grpchealth.HealthChecker interface.
type HealthChecker struct {
	db Pinger
}

// NewHealthChecker creates a health checker for the given pool.
func NewHealthChecker(db Pinger) *HealthChecker {
	return &HealthChecker{db: db}
}

// Check returns true if the database is reachable.
func (c *HealthChecker) Check(ctx context.Context) bool {
	if c.db == nil {
		return false
	}
	if err := c.db.Ping(ctx); err != nil {
		slog.DebugContext(ctx, "postgres health check failed", slog.String("error", err.Error()))
		return false
	}
	return true
}
