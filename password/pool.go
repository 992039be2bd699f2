package password

import (
	"context"
	"runtime"
	"time"

	"golang.org/x/sync/semaphore"
)

// Pool runs a [Hasher] with bounded parallelism.
//
// At most the configured number of hash or verify computations run at once; callers
// beyond that wait on ctx. A caller whose ctx ends mid-computation gets ctx.Err()
// and the result is discarded, so an aborted request never receives a hash.
type Pool struct {
	hasher  Hasher
	sem     *semaphore.Weighted
	size    int
	observe func(time.Duration)
}

type result struct {
	hash string
	ok   bool
	err  error
}

// NewPool bounds h to workers concurrent computations. workers <= 0 means GOMAXPROCS.
// observe, when non-nil, receives the duration of every completed computation.
func NewPool(h Hasher, workers int, observe func(time.Duration)) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Pool{
		hasher:  h,
		sem:     semaphore.NewWeighted(int64(workers)),
		size:    workers,
		observe: observe,
	}
}

// Size returns the concurrency bound.
func (p *Pool) Size() int {
	return p.size
}

// Hash hashes password on a pool slot.
func (p *Pool) Hash(ctx context.Context, password string) (string, error) {
	res, err := p.run(ctx, func() result {
		hash, err := p.hasher.Hash(password)
		return result{hash: hash, err: err}
	})
	if err != nil {
		return "", err
	}
	return res.hash, res.err
}

// Verify checks password against encodedHash on a pool slot. The error is non-nil
// only when ctx ends first.
func (p *Pool) Verify(ctx context.Context, password, encodedHash string) (bool, error) {
	res, err := p.run(ctx, func() result {
		return result{ok: p.hasher.Verify(password, encodedHash)}
	})
	if err != nil {
		return false, err
	}
	return res.ok, nil
}

// NeedsUpgrade parses encodedHash only and does not take a slot.
func (p *Pool) NeedsUpgrade(encodedHash string) bool {
	return p.hasher.NeedsUpgrade(encodedHash)
}

func (p *Pool) run(ctx context.Context, fn func() result) (result, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return result{}, err
	}

	done := make(chan result, 1)
	go func() {
		defer p.sem.Release(1)
		start := time.Now()
		res := fn()
		if p.observe != nil {
			p.observe(time.Since(start))
		}
		done <- res
	}()

	select {
	case res := <-done:
		return res, nil
	case <-ctx.Done():
		return result{}, ctx.Err()
	}
}
