package postgres

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// PoolConfig tunes the connection pool. Zero fields keep pgxpool defaults.
type PoolConfig struct {
	URL             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	// Attempts is how many times Connect tries before giving up. Default 5.
	Attempts uint64
	// Backoff is the first retry delay; later delays double. Default 500ms.
	Backoff time.Duration
}

// Connect opens a pool and pings it, retrying with jittered exponential backoff
// while the database comes up.
func Connect(ctx context.Context, cfg PoolConfig, logger *slog.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, oops.Code("POSTGRES_CONFIG_INVALID").Wrap(err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	if cfg.Attempts == 0 {
		cfg.Attempts = 5
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 500 * time.Millisecond
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	backoff := retry.WithMaxRetries(cfg.Attempts-1, retry.WithJitterPercent(25, retry.NewExponential(cfg.Backoff)))

	var pool *pgxpool.Pool
	attempt := 0
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		p, err := pgxpool.NewWithConfig(ctx, poolConfig)
		if err == nil {
			err = p.Ping(ctx)
			if err != nil {
				p.Close()
			}
		}
		if err != nil {
			logger.Warn("postgres connection failed",
				slog.Int("attempt", attempt),
				slog.Uint64("max_attempts", cfg.Attempts),
				slog.String("error", err.Error()),
			)
			return retry.RetryableError(err)
		}
		pool = p
		return nil
	})
	if err != nil {
		return nil, oops.Code("POSTGRES_CONNECT_FAILED").With("attempts", attempt).Wrap(err)
	}
	return pool, nil
}
