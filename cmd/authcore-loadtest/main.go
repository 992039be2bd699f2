// Command authcore-loadtest hammers the Redis refresh store and the password
// hashing pool, then checks that no refresh token was redeemed twice.
//
// With no -redis-addr and no REDIS_ADDR it runs against an in-process miniredis.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/internal"
	"github.com/MrEthical07/authcore/password"
	"github.com/MrEthical07/authcore/refresh"
)

type options struct {
	tokens      int
	consumes    int
	workers     int
	hashes      int
	hashWorkers int
	redisAddr   string
	prefix      string
}

func main() {
	var o options
	flag.IntVar(&o.tokens, "tokens", 100000, "refresh tokens to seed")
	flag.IntVar(&o.consumes, "ops", 200000, "consume attempts; digests are drawn at random so most are replays")
	flag.IntVar(&o.workers, "concurrency", 256, "concurrent callers")
	flag.IntVar(&o.hashes, "hash-ops", 200, "password hashes to time (0 skips the phase)")
	flag.IntVar(&o.hashWorkers, "hash-workers", runtime.GOMAXPROCS(0), "hashing pool size")
	flag.StringVar(&o.redisAddr, "redis-addr", os.Getenv("REDIS_ADDR"), "redis address (default: miniredis)")
	flag.StringVar(&o.prefix, "prefix", "authcore:loadtest", "refresh key prefix")
	flag.Parse()

	if o.tokens <= 0 || o.consumes <= 0 || o.workers <= 0 || o.hashes < 0 || o.hashWorkers <= 0 {
		fmt.Fprintln(os.Stderr, "tokens, ops, concurrency and hash-workers must be positive")
		os.Exit(2)
	}
	if err := run(context.Background(), o); err != nil {
		fmt.Fprintln(os.Stderr, "FAIL:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, o options) error {
	client, shutdown, err := connect(o.redisAddr)
	if err != nil {
		return err
	}
	defer shutdown()

	store := refresh.NewStore(client, o.prefix, nil)

	started := time.Now()
	digests, err := seed(ctx, store, o.tokens)
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	fmt.Printf("seeded %d refresh tokens in %s\n", len(digests), time.Since(started).Round(time.Millisecond))

	var (
		mu   sync.Mutex
		wins = make(map[string]int, len(digests))
	)
	consume := runPhase(o.consumes, o.workers, func(_ int, rng *rand.Rand) error {
		digest := digests[rng.Intn(len(digests))]
		_, err := store.ConsumeRefreshToken(ctx, digest)
		switch {
		case err == nil:
			mu.Lock()
			wins[digest]++
			mu.Unlock()
			return nil
		case errors.Is(err, authcore.ErrInvalidRefreshToken):
			return nil
		default:
			return err
		}
	})
	consume.print("consume")

	if o.hashes > 0 {
		hasher, err := password.NewArgon2(password.DefaultConfig())
		if err != nil {
			return err
		}
		pool := password.NewPool(hasher, o.hashWorkers, nil)
		hashing := runPhase(o.hashes, o.workers, func(i int, _ *rand.Rand) error {
			_, err := pool.Hash(ctx, fmt.Sprintf("Loadtest%d", i))
			return err
		})
		hashing.print("hash")
	}

	for digest, n := range wins {
		if n > 1 {
			return fmt.Errorf("refresh token %s… redeemed %d times", digest[:12], n)
		}
	}
	fmt.Printf("single use holds: %d distinct tokens redeemed once each\n", len(wins))
	return nil
}

func connect(addr string) (redis.UniversalClient, func(), error) {
	if addr != "" {
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		fmt.Printf("redis: %s\n", addr)
		return client, func() { _ = client.Close() }, nil
	}

	mr, err := miniredis.Run()
	if err != nil {
		return nil, nil, fmt.Errorf("start miniredis: %w", err)
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
	fmt.Printf("redis: miniredis at %s\n", mr.Addr())
	return client, func() {
		_ = client.Close()
		mr.Close()
	}, nil
}

func seed(ctx context.Context, store *refresh.Store, n int) ([]string, error) {
	now := time.Now()
	digests := make([]string, 0, n)
	for i := 0; i < n; i++ {
		_, digest, err := internal.NewRefreshToken()
		if err != nil {
			return nil, err
		}
		rec := authcore.RefreshRecord{
			Digest:     digest,
			IdentityID: fmt.Sprintf("identity-%d", i%1000),
			CreatedAt:  now,
			ExpiresAt:  now.Add(24 * time.Hour),
		}
		if err := store.InsertRefreshToken(ctx, rec); err != nil {
			return nil, err
		}
		digests = append(digests, digest)
	}
	return digests, nil
}
