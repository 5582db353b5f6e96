package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/deepworx/casting-agency/pkg/casting/pgstore"
	"github.com/deepworx/casting-agency/pkg/config"
	"github.com/deepworx/casting-agency/pkg/postgres"
	"github.com/deepworx/casting-agency/pkg/slogutil"
)

func migrateCmd(load loader) *cobra.Command {
	var reset bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the casting schema to Postgres",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if _, err := slogutil.Setup(cfg.Log); err != nil {
				return err
			}
			return migrate(cmd.Context(), cfg, reset)
		},
	}
	cmd.Flags().BoolVar(&reset, "reset", false, "Drop all tables before applying the schema")
	return cmd
}

func migrate(ctx context.Context, cfg config.Config, reset bool) error {
	if cfg.Store != config.StorePostgres {
		return fmt.Errorf("migrate: store is %q, want %q", cfg.Store, config.StorePostgres)
	}

	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return err
	}
	defer pool.Close()

	store := pgstore.New(pool)
	if reset {
		return store.Reset(ctx)
	}
	return store.Migrate(ctx)
}
