package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"

	"github.com/deepworx/casting-agency/pkg/tracing"
)

// Transaction is the handle a unit of work passes to store methods.
// In-memory units hand out a Transaction whose Tx() is nil.
type Transaction interface {
	Tx() pgx.Tx
}

// UnitOfWork runs a function inside one transaction boundary.
type UnitOfWork interface {
	Execute(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error
}

// PgUnitOfWork opens one pool transaction per Execute.
type PgUnitOfWork struct {
	pool *pgxpool.Pool
	opts pgx.TxOptions
}

// UnitOfWorkOption configures a PgUnitOfWork.
type UnitOfWorkOption func(*PgUnitOfWork)

// WithTxOptions sets the isolation level and access mode of every unit,
// typically from Config.TxOptions.
func WithTxOptions(opts pgx.TxOptions) UnitOfWorkOption {
	return func(u *PgUnitOfWork) {
		u.opts = opts
	}
}

// NewUnitOfWork creates a UnitOfWork on pool.
func NewUnitOfWork(pool *pgxpool.Pool, opts ...UnitOfWorkOption) *PgUnitOfWork {
	u := &PgUnitOfWork{pool: pool}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Execute commits when fn returns nil and rolls back on error or panic.
func (u *PgUnitOfWork) Execute(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error {
	return tracing.WithSpan(ctx, "postgres.unit_of_work", func(ctx context.Context) error {
		return WithTxOpts(ctx, u.pool, u.opts, func(tx pgx.Tx) error {
			return fn(ctx, poolTx{tx: tx})
		})
	}, attribute.String("db.tx.isolation", isolationName(u.opts.IsoLevel)))
}

func isolationName(level pgx.TxIsoLevel) string {
	if level == "" {
		return "default"
	}
	return string(level)
}

type poolTx struct {
	tx pgx.Tx
}

func (t poolTx) Tx() pgx.Tx {
	return t.tx
}

var (
	_ UnitOfWork  = (*PgUnitOfWork)(nil)
	_ Transaction = poolTx{}
)
