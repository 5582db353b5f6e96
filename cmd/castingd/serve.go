package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"connectrpc.com/connect"
	"github.com/spf13/cobra"

	"github.com/deepworx/casting-agency/pkg/casting"
	"github.com/deepworx/casting-agency/pkg/casting/pgstore"
	"github.com/deepworx/casting-agency/pkg/castingapi"
	"github.com/deepworx/casting-agency/pkg/config"
	"github.com/deepworx/casting-agency/pkg/connectrpc/interceptor"
	"github.com/deepworx/casting-agency/pkg/grpchealth"
	"github.com/deepworx/casting-agency/pkg/jwtauth"
	"github.com/deepworx/casting-agency/pkg/otel"
	"github.com/deepworx/casting-agency/pkg/postgres"
	"github.com/deepworx/casting-agency/pkg/shutdown"
	"github.com/deepworx/casting-agency/pkg/slogutil"
)

const abortTimeout = 5 * time.Second

func serveCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the casting API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(ctx context.Context, cfg config.Config) error {
	if _, err := slogutil.Setup(cfg.Log); err != nil {
		return err
	}
	if err := otel.Setup(ctx, cfg.OTel); err != nil {
		return abort(err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	health := grpchealth.NewAggregator(cfg.Health)

	svc, err := openService(ctx, cfg, health)
	if err != nil {
		return abort(err)
	}

	guard, dir, err := jwtauth.New(ctx, cfg.Auth)
	if err != nil {
		return abort(err)
	}
	health.Register("jwks", jwtauth.NewDirectoryHealthChecker(dir))

	interceptors, err := interceptor.BuildDefaultWithAuth(guard, castingapi.Rules(),
		interceptor.WithDeadline(cfg.Connect.Deadline),
		interceptor.WithRequestID(cfg.Connect.RequestID),
		interceptor.WithRecovery(cfg.Connect.Recovery),
	)
	if err != nil {
		return abort(err)
	}

	mux := castingapi.NewMux(castingapi.Routes{
		Handler: castingapi.NewHandler(svc),
		Guard:   guard,
		Health:  health,
		Options: []connect.HandlerOption{connect.WithInterceptors(interceptors...)},
	})
	srv := castingapi.NewServer(cfg.Server, mux)

	go func() { _ = health.Run(ctx) }()

	registerServer(shutdown.Register, srv, cancel)

	waitCtx, stop := context.WithCancel(ctx)
	defer stop()

	served := make(chan error, 1)
	go func() {
		slog.InfoContext(ctx, "listening",
			slog.String("addr", cfg.Server.Addr),
			slog.String("store", cfg.Store),
			slog.String("issuer", cfg.Auth.Issuer()),
		)
		err := srv.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		if err != nil {
			stop()
		}
		served <- err
	}()

	shutdownErr := shutdown.WaitForSignalWithTimeout(waitCtx, cfg.ShutdownTimeout)
	if err := <-served; err != nil {
		return errors.Join(fmt.Errorf("serve http: %w", err), shutdownErr)
	}
	return shutdownErr
}

// registerServer registers cancel ahead of srv so the HTTP drain runs
// first. Handlers still in flight keep a live key cache and health loop.
func registerServer(register func(string, shutdown.Handler), srv *http.Server, cancel context.CancelFunc) {
	register("background", func(context.Context) error {
		cancel()
		return nil
	})
	register("http", srv.Shutdown)
}

// openService builds the casting service on the configured store and
// registers the store's health checker.
func openService(ctx context.Context, cfg config.Config, health *grpchealth.Aggregator) (*casting.Service, error) {
	if cfg.Store == config.StoreMemory {
		store := casting.NewMemoryStore()
		health.Register("memory", store)
		return casting.NewService(store, postgres.NewInMemoryUnitOfWork(), cfg.Casting), nil
	}

	txOpts, err := cfg.Postgres.TxOptions()
	if err != nil {
		return nil, err
	}
	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return nil, err
	}
	store := pgstore.New(pool)
	if err := store.Migrate(ctx); err != nil {
		return nil, err
	}
	health.Register("postgres", postgres.NewHealthChecker(pool))
	return casting.NewService(store, postgres.NewUnitOfWork(pool, postgres.WithTxOptions(txOpts)), cfg.Casting), nil
}

// abort releases whatever was registered for shutdown before startup failed.
func abort(err error) error {
	ctx, cancel := context.WithTimeout(context.Background(), abortTimeout)
	defer cancel()
	return errors.Join(err, shutdown.Shutdown(ctx))
}
