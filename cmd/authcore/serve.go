package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/api"
	"github.com/MrEthical07/authcore/internal/logging"
	"github.com/MrEthical07/authcore/metrics/export/prometheus"
	"github.com/MrEthical07/authcore/refresh"
	"github.com/MrEthical07/authcore/store/memory"
	"github.com/MrEthical07/authcore/store/postgres"
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the authentication HTTP API",
		Long: `Run the HTTP API. Identities and refresh tokens live in PostgreSQL when
database.url is set; refresh.store=redis moves refresh tokens to Redis.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd.Flags())
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return runServe(ctx, cfg, cmd.ErrOrStderr(), nil)
		},
	}
}

// runServe blocks until ctx ends or the listener fails. When ready is non-nil it
// receives the bound address once the server accepts connections.
func runServe(ctx context.Context, cfg Config, logOut io.Writer, ready chan<- string) error {
	logger := logging.Setup("authcore", version, cfg.Log.Format, cfg.Log.Level, logOut)

	engineCfg, err := cfg.engineConfig()
	if err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}
	for _, w := range engineCfg.Lint().AtLeast(authcore.LintWarn) {
		logger.Warn("risky configuration", slog.String("code", w.Code), slog.String("detail", w.Message))
	}

	builder := authcore.New().WithConfig(engineCfg).WithLogger(logger)
	checks := map[string]func(context.Context) error{}

	if cfg.Database.URL != "" {
		pool, err := postgres.Connect(ctx, postgres.PoolConfig{
			URL:      cfg.Database.URL,
			MaxConns: cfg.Database.MaxConns,
			Attempts: cfg.Database.ConnectAttempts,
			Backoff:  cfg.Database.ConnectBackoff,
		}, logger)
		if err != nil {
			return err
		}
		defer pool.Close()

		repo := postgres.NewRepository(pool, nil)
		builder = builder.WithRepository(repo)
		checks["postgres"] = pool.Ping
		logger.Info("using postgres store")

		if cfg.Refresh.Store == "postgres" && cfg.Refresh.PurgeInterval > 0 {
			go purgeExpired(ctx, repo, cfg.Refresh.PurgeInterval, logger)
		}
	} else {
		builder = builder.WithRepository(memory.New(nil))
		logger.Warn("database.url is empty; identities are kept in memory and lost on exit")
	}

	if cfg.Refresh.Store == "redis" {
		client, err := refresh.Dial(ctx, refresh.DialConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, logger)
		if err != nil {
			return err
		}
		defer client.Close()

		builder = builder.WithRefreshStore(refresh.NewStore(client, cfg.Redis.Prefix, nil))
		checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
		logger.Info("using redis refresh store", slog.String("addr", cfg.Redis.Addr))
	}

	if cfg.Audit.Enabled {
		builder = builder.WithAuditSink(authcore.NewSlogSink(logger.With(slog.String("component", "audit"))))
	}

	engine, err := builder.Build()
	if err != nil {
		return oops.Code("ENGINE_BUILD_FAILED").Wrap(err)
	}
	defer engine.Close()

	opts := api.Options{
		Logger:       logger,
		Checks:       checks,
		Mode:         authcore.ModeInherit,
		MaxBodyBytes: cfg.HTTP.MaxBodyBytes,
	}
	if cfg.Metrics.Enabled {
		opts.Metrics = prometheus.Handler(engine)
	}

	listener, err := net.Listen("tcp", cfg.HTTP.Addr)
	if err != nil {
		return oops.Code("LISTEN_FAILED").With("addr", cfg.HTTP.Addr).Wrap(err)
	}

	srv := &http.Server{
		Handler:           api.NewRouter(engine, opts),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(listener)
	}()

	logger.Info("http server listening", slog.String("addr", listener.Addr().String()))
	if ready != nil {
		ready <- listener.Addr().String()
	}

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return oops.Code("HTTP_SERVE_FAILED").Wrap(err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return oops.Code("HTTP_SHUTDOWN_FAILED").Wrap(err)
	}
	return nil
}

type refreshPurger interface {
	PurgeExpiredRefreshTokens(ctx context.Context) (int64, error)
}

// purgeExpired deletes expired refresh rows every interval until ctx ends.
// Consume already rejects expired rows; this only reclaims space.
func purgeExpired(ctx context.Context, p refreshPurger, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := p.PurgeExpiredRefreshTokens(ctx)
			if err != nil {
				if ctx.Err() == nil {
					logging.LogError(ctx, logger, "refresh token purge failed", err)
				}
				continue
			}
			if n > 0 {
				logger.Info("purged expired refresh tokens", slog.Int64("count", n))
			}
		}
	}
}
