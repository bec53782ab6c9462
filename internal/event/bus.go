// File: internal/event/bus.go
// Author: momentics <momentics@gmail.com>
//
// A minimal, allocation-light process-local event bus (spec component
// I): Post(kind, id) / Subscribe(kind) <-chan api.Event. Internally
// backed by the same lock-free MPMC ring pattern as
// core/concurrency.LockFreeQueue (Vyukov-style sequence numbers), one
// ring per kind, drained by a single fan-out goroutine per kind. A full
// ring drops the oldest posted event with a warning log rather than
// blocking the socket's own I/O path — events are best-effort
// telemetry, not a delivery guarantee; no operation in spec.md blocks
// on event delivery.
package event

import (
	"log/slog"
	"runtime"
	"sync"

	"github.com/momentics/netcore/api"
	"github.com/momentics/netcore/core/concurrency"
)

const ringCapacity = 1024

// Bus is a process-local, best-effort pub/sub of api.Event values.
type Bus struct {
	mu    sync.Mutex
	rings map[api.EventKind]*concurrency.LockFreeQueue[api.Event]
	subs  map[api.EventKind][]chan api.Event
	log   *slog.Logger
}

// NewBus creates an empty bus. A kind's fan-out goroutine starts the
// first time that kind is posted or subscribed.
func NewBus(log *slog.Logger) *Bus {
	if log == nil {
		log = slog.Default()
	}
	b := &Bus{
		rings: make(map[api.EventKind]*concurrency.LockFreeQueue[api.Event]),
		subs:  make(map[api.EventKind][]chan api.Event),
		log:   log.With(slog.String("component", "netcore")),
	}
	return b
}

func (b *Bus) ringFor(kind api.EventKind) *concurrency.LockFreeQueue[api.Event] {
	b.mu.Lock()
	defer b.mu.Unlock()
	r, ok := b.rings[kind]
	if !ok {
		r = concurrency.NewLockFreeQueue[api.Event](ringCapacity)
		b.rings[kind] = r
		go b.fanOut(kind, r)
	}
	return r
}

// fanOut is the single goroutine per kind that drains the lock-free
// ring and delivers to every current subscriber channel.
func (b *Bus) fanOut(kind api.EventKind, r *concurrency.LockFreeQueue[api.Event]) {
	for {
		ev, ok := r.Dequeue()
		if !ok {
			// Ring temporarily empty; yield rather than busy-spin. This
			// goroutine lives for the process lifetime of the bus.
			runtime.Gosched()
			continue
		}
		b.mu.Lock()
		chans := append([]chan api.Event(nil), b.subs[kind]...)
		b.mu.Unlock()
		for _, ch := range chans {
			select {
			case ch <- ev:
			default:
				b.log.Warn("event dropped, subscriber channel full",
					slog.String("kind", kind.String()),
					slog.Uint64("id", uint64(ev.ID)))
			}
		}
	}
}

// Subscribe returns a channel that receives every event of the given
// kind posted after this call.
func (b *Bus) Subscribe(kind api.EventKind) <-chan api.Event {
	ch := make(chan api.Event, ringCapacity)
	b.mu.Lock()
	b.subs[kind] = append(b.subs[kind], ch)
	b.mu.Unlock()
	b.ringFor(kind) // ensure the fan-out goroutine exists
	return ch
}

// Post publishes an event of the given kind for id. If the kind's ring
// is full, the oldest queued event is dropped to make room — Post
// never blocks the caller's I/O path.
func (b *Bus) Post(kind api.EventKind, id api.ID) {
	r := b.ringFor(kind)
	ev := api.Event{Kind: kind, ID: id}
	if r.Enqueue(ev) {
		return
	}
	// Ring full: drop the oldest and retry once.
	if _, ok := r.Dequeue(); ok {
		b.log.Warn("event ring full, dropping oldest",
			slog.String("kind", kind.String()))
	}
	r.Enqueue(ev)
}
