package postgres

import "errors"

// ErrDSNRequired is returned when neither DSN nor Host is set in Config.
var ErrDSNRequired = errors.New("dsn or host is required")

// ErrPoolSize is returned when MinConns exceeds MaxConns.
var ErrPoolSize = errors.New("min_conns must not exceed max_conns")

// ErrIsolation is returned for an unknown transaction isolation level.
var ErrIsolation = errors.New("unknown isolation level")
