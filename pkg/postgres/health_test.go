package postgres

import (
	"context"
	"errors"
	"testing"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthChecker_Check(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		db   Pinger
		want bool
	}{
		{
			name: "reachable",
			db:   pingFunc(func(context.Context) error { return nil }),
			want: true,
		},
		{
			name: "unreachable",
			db:   pingFunc(func(context.Context) error { return errors.New("connection refused") }),
			want: false,
		},
		{
			name: "cancelled context",
			db:   pingFunc(func(ctx context.Context) error { return ctx.Err() }),
			want: false,
		},
		{
			name: "nil pinger",
			db:   nil,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctx, cancel := context.WithCancel(context.Background())
			if tt.name == "cancelled context" {
				cancel()
			} else {
				defer cancel()
			}

			if got := NewHealthChecker(tt.db).Check(ctx); got != tt.want {
				t.Errorf("Check() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHealthChecker_ImplementsInterface(t *testing.T) {
	t.Parallel()

	var _ interface {
		Check(ctx context.Context) bool
	} = (*HealthChecker)(nil)
}
