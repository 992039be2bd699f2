package refresh

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// DialConfig describes the Redis server. Attempts and Backoff behave as in
// postgres.PoolConfig.
type DialConfig struct {
	Addr     string
	Password string
	DB       int
	Attempts uint64
	Backoff  time.Duration
}

// Dial returns a client whose PING succeeded, retrying with jittered exponential
// backoff while Redis comes up.
func Dial(ctx context.Context, cfg DialConfig, logger *slog.Logger) (*redis.Client, error) {
	if cfg.Addr == "" {
		return nil, oops.Code("REDIS_CONFIG_INVALID").Errorf("redis address is required")
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

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	backoff := retry.WithMaxRetries(cfg.Attempts-1, retry.WithJitterPercent(25, retry.NewExponential(cfg.Backoff)))

	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warn("redis connection failed",
				slog.Int("attempt", attempt),
				slog.Uint64("max_attempts", cfg.Attempts),
				slog.String("error", err.Error()),
			)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		_ = client.Close()
		return nil, oops.Code("REDIS_CONNECT_FAILED").With("attempts", attempt).Wrap(err)
	}
	return client, nil
}
