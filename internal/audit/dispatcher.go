package audit

import (
	"context"
	"sync"
	"sync/atomic"
)

// Config controls dispatcher buffering.
type Config struct {
	Enabled    bool
	BufferSize int
	// DropIfFull drops and counts events when the buffer is full instead of
	// blocking the emitting request.
	DropIfFull bool
}

// queued keeps the emitting request's values (trace ids, client ip) for the sink,
// detached from its cancellation.
type queued struct {
	ctx   context.Context
	event Event
}

// Dispatcher relays events to a Sink from a single goroutine. A nil *Dispatcher
// is valid and discards everything.
type Dispatcher struct {
	sink       Sink
	dropIfFull bool
	queue      chan queued
	stop       chan struct{}
	stopped    sync.WaitGroup
	closing    atomic.Bool
	once       sync.Once

	dropped   atomic.Uint64
	delivered atomic.Uint64
	panicked  atomic.Uint64
}

// NewDispatcher starts a dispatcher, or returns nil when cfg is disabled.
func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	size := cfg.BufferSize
	if size < 1 {
		size = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &Dispatcher{
		sink:       sink,
		dropIfFull: cfg.DropIfFull,
		queue:      make(chan queued, size),
		stop:       make(chan struct{}),
	}
	d.stopped.Add(1)
	go d.loop()
	return d
}

func (d *Dispatcher) loop() {
	defer d.stopped.Done()
	for {
		select {
		case q := <-d.queue:
			d.deliver(q)
		case <-d.stop:
			d.drain()
			return
		}
	}
}

func (d *Dispatcher) drain() {
	for {
		select {
		case q := <-d.queue:
			d.deliver(q)
		default:
			return
		}
	}
}

// deliver isolates sink panics so one bad event does not stop auditing.
func (d *Dispatcher) deliver(q queued) {
	defer func() {
		if recover() != nil {
			d.panicked.Add(1)
		}
	}()
	d.sink.Emit(q.ctx, q.event)
	d.delivered.Add(1)
}

// Emit enqueues event. In blocking mode it waits for buffer space until ctx ends
// or the dispatcher closes; the event is then lost but not counted as dropped.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil || d.closing.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	q := queued{ctx: context.WithoutCancel(ctx), event: event}

	if d.dropIfFull {
		select {
		case d.queue <- q:
		case <-d.stop:
		default:
			d.dropped.Add(1)
		}
		return
	}

	select {
	case d.queue <- q:
	case <-ctx.Done():
	case <-d.stop:
	}
}

// Close stops accepting events, delivers what is buffered, and waits for the
// sink to finish. It is safe to call more than once.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.once.Do(func() {
		d.closing.Store(true)
		close(d.stop)
		d.stopped.Wait()
	})
}

// Dropped counts events discarded because the buffer was full.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

// Delivered counts events the sink accepted.
func (d *Dispatcher) Delivered() uint64 {
	if d == nil {
		return 0
	}
	return d.delivered.Load()
}

// Panicked counts events whose sink call panicked.
func (d *Dispatcher) Panicked() uint64 {
	if d == nil {
		return 0
	}
	return d.panicked.Load()
}
