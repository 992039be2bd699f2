package main

import (
	"fmt"
	"math/rand"
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

type result struct {
	wall      time.Duration
	latencies []time.Duration // sorted
	errors    int64
}

// runPhase calls op ops times spread across workers goroutines. Each worker keeps
// its own latency slice and RNG; they are merged once all workers finish.
func runPhase(ops, workers int, op func(i int, rng *rand.Rand) error) result {
	var (
		next    atomic.Int64
		errs    atomic.Int64
		wg      sync.WaitGroup
		perW    = make([][]time.Duration, workers)
		seed    = time.Now().UnixNano()
		started = time.Now()
	)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed + int64(w)))
			for {
				i := int(next.Add(1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				if err := op(i, rng); err != nil {
					errs.Add(1)
				}
				perW[w] = append(perW[w], time.Since(t0))
			}
		}(w)
	}
	wg.Wait()

	all := make([]time.Duration, 0, ops)
	for _, l := range perW {
		all = append(all, l...)
	}
	slices.Sort(all)
	return result{wall: time.Since(started), latencies: all, errors: errs.Load()}
}

// quantile returns the nearest-rank q-quantile, q in [0, 1].
func (r result) quantile(q float64) time.Duration {
	n := len(r.latencies)
	if n == 0 {
		return 0
	}
	idx := int(q*float64(n)+0.5) - 1
	idx = max(0, min(idx, n-1))
	return r.latencies[idx]
}

func (r result) throughput() float64 {
	if r.wall <= 0 {
		return 0
	}
	return float64(len(r.latencies)) / r.wall.Seconds()
}

func (r result) print(name string) {
	fmt.Printf("%-8s n=%d err=%d wall=%s rate=%.0f/s p50=%s p95=%s p99=%s max=%s\n",
		name, len(r.latencies), r.errors,
		r.wall.Round(time.Millisecond), r.throughput(),
		r.quantile(0.50).Round(time.Microsecond),
		r.quantile(0.95).Round(time.Microsecond),
		r.quantile(0.99).Round(time.Microsecond),
		r.quantile(1).Round(time.Microsecond),
	)
}
