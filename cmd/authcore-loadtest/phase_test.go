package main

import (
	"context"
	"errors"
	"math/rand"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunPhaseCallsEveryIndexOnce(t *testing.T) {
	var seen [100]atomic.Int32
	res := runPhase(len(seen), 8, func(i int, _ *rand.Rand) error {
		seen[i].Add(1)
		if i%10 == 0 {
			return errors.New("boom")
		}
		return nil
	})

	for i := range seen {
		assert.Equal(t, int32(1), seen[i].Load(), "index %d", i)
	}
	assert.Len(t, res.latencies, 100)
	assert.Equal(t, int64(10), res.errors)
}

func TestQuantile(t *testing.T) {
	res := result{}
	assert.Zero(t, res.quantile(0.5))

	for i := 1; i <= 100; i++ {
		res.latencies = append(res.latencies, time.Duration(i)*time.Millisecond)
	}
	assert.Equal(t, 50*time.Millisecond, res.quantile(0.50))
	assert.Equal(t, 99*time.Millisecond, res.quantile(0.99))
	assert.Equal(t, 100*time.Millisecond, res.quantile(1))
	assert.Equal(t, time.Millisecond, res.quantile(0))
}

func TestRunAgainstMiniredis(t *testing.T) {
	err := run(context.Background(), options{
		tokens:      50,
		consumes:    400,
		workers:     16,
		hashWorkers: 1,
		prefix:      "lt",
	})
	require.NoError(t, err)
}
