package metrics

import (
	"sync/atomic"
	"time"
)

// ID identifies one counter or histogram slot.
type ID uint16

const (
	RegisterSuccess ID = iota
	RegisterDuplicate
	RegisterInvalid
	LoginSuccess
	LoginFailure
	RefreshSuccess
	RefreshFailure
	TokenRejected
	Logout
	Deactivate
	IdentityUpdated
	PasswordHashUpgraded
	HashLatency
	idCount
)

// Count is the number of defined IDs.
const Count = int(idCount)

const (
	HistBucketCount = 8
	cacheLineSize   = 64
)

type histogram struct {
	buckets [HistBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds fixed-size counter and histogram slots. The zero value is disabled.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [idCount]paddedCounter
	histograms    [idCount]histogram
}

// Snapshot is a point-in-time copy of all slots.
type Snapshot struct {
	Counters   map[ID]uint64
	Histograms map[ID][]uint64
}

func New(enabled, latency bool) *Metrics {
	return &Metrics{
		enabled:       enabled,
		enableLatency: enabled && latency,
	}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

func (m *Metrics) Inc(id ID) {
	if m == nil || !m.enabled || id >= idCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d in the histogram for id. Only histogram IDs accept observations.
func (m *Metrics) Observe(id ID, d time.Duration) {
	if m == nil || !m.enableLatency || id >= idCount {
		return
	}
	if !IsHistogram(id) {
		return
	}

	atomic.AddUint64(&m.histograms[id].buckets[bucketIndex(d)], 1)
}

func (m *Metrics) Value(id ID) uint64 {
	if m == nil || id >= idCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

func (m *Metrics) Snapshot() Snapshot {
	if m == nil || !m.enabled {
		return Snapshot{
			Counters:   map[ID]uint64{},
			Histograms: map[ID][]uint64{},
		}
	}

	s := Snapshot{
		Counters:   make(map[ID]uint64, Count),
		Histograms: make(map[ID][]uint64, 1),
	}

	for id := ID(0); id < idCount; id++ {
		if IsHistogram(id) {
			continue
		}
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, HistBucketCount)
		for i := 0; i < HistBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[HashLatency].buckets[i])
		}
		s.Histograms[HashLatency] = buckets
	}

	return s
}

// IsHistogram reports whether id names a histogram rather than a counter.
func IsHistogram(id ID) bool {
	return id == HashLatency
}

// BucketUpperBounds are the inclusive upper bounds of the first HistBucketCount-1
// buckets. The last bucket is unbounded.
var BucketUpperBounds = [HistBucketCount - 1]time.Duration{
	10 * time.Millisecond,
	25 * time.Millisecond,
	50 * time.Millisecond,
	100 * time.Millisecond,
	250 * time.Millisecond,
	500 * time.Millisecond,
	time.Second,
}

func bucketIndex(d time.Duration) int {
	for i, bound := range BucketUpperBounds {
		if d <= bound {
			return i
		}
	}
	return HistBucketCount - 1
}
