package postgres

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v5"
)

// InMemoryUnitOfWork implements UnitOfWork for in-process stores.
// Units run one at a time, so reads and writes against an in-memory store
// inside one unit never interleave with another unit's.
// The callback receives a nilTransaction where Tx() returns nil.
type InMemoryUnitOfWork struct {
	mu sync.Mutex
}

// NewInMemoryUnitOfWork creates a serializing UnitOfWork without a database.
func NewInMemoryUnitOfWork() *InMemoryUnitOfWork {
	return &InMemoryUnitOfWork{}
}

// Execute runs fn while holding the unit lock.
func (u *InMemoryUnitOfWork) Execute(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	return fn(ctx, nilTransaction{})
}

// nilTransaction implements Transaction with Tx() returning nil.
type nilTransaction struct{}

func (nilTransaction) Tx() pgx.Tx {
	return nil
}

// compile-time checks
var (
	_ UnitOfWork  = (*InMemoryUnitOfWork)(nil)
	_ Transaction = nilTransaction{}
)
