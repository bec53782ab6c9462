// File: internal/registry/registry.go
// Author: momentics <momentics@gmail.com>
//
// The handle registry (spec component A): a fixed-capacity, open-addressed
// table mapping opaque 64-bit socket identifiers to live records, sized
// maxSockets + min(maxSockets, 256) at Init. reserve/lookup/free are fully
// thread-safe; destruction of a record on ref==0 is the caller's
// responsibility and must be driven by exactly the thread that observes
// the zero transition (spec.md 4.A).
package registry

import (
	"sync"
	"sync/atomic"

	"github.com/momentics/netcore/api"
)

// Record is the minimal contract the registry needs from a socket
// record: an identity and a reference count it can manipulate on the
// caller's behalf. internal/socket.Record satisfies this.
type Record interface {
	ID() api.ID
	// Ref increments the reference count.
	Ref() int32
	// Unref decrements the reference count and returns the new value.
	Unref() int32
}

type row struct {
	mu     sync.Mutex
	id     atomic.Uint64
	record Record
}

// Registry is the fixed-capacity handle table.
type Registry struct {
	rows   []row
	cursor atomic.Uint64
	// nextID hands out monotonically increasing identifiers so that a
	// freed row's stale id can never alias a still-live lookup racing
	// against reservation of the same row.
	nextID atomic.Uint64
}

// New allocates a registry sized to hold maxSockets live records, with
// headroom for in-flight churn exactly as spec.md 4.G specifies:
// maxSockets + min(maxSockets, 256).
func New(maxSockets int) *Registry {
	headroom := maxSockets
	if headroom > 256 {
		headroom = 256
	}
	r := &Registry{rows: make([]row, maxSockets+headroom)}
	r.nextID.Store(1) // 0 is api.InvalidID
	return r
}

// Cap returns the registry's fixed row capacity.
func (r *Registry) Cap() int { return len(r.rows) }

// Reserve claims a free row and returns a fresh identifier for it, or
// api.InvalidID if the registry is exhausted. The row is not
// associated with a record until Set is called.
func (r *Registry) Reserve() api.ID {
	n := uint64(len(r.rows))
	if n == 0 {
		return api.InvalidID
	}
	for attempt := uint64(0); attempt < n; attempt++ {
		idx := r.cursor.Add(1) % n
		row := &r.rows[idx]
		if row.id.Load() == 0 {
			row.mu.Lock()
			if row.id.Load() == 0 {
				id := r.nextID.Add(1) - 1
				if id == 0 {
					id = r.nextID.Add(1) - 1
				}
				row.id.Store(id)
				row.mu.Unlock()
				return api.ID(id)
			}
			row.mu.Unlock()
		}
	}
	return api.InvalidID
}

func (r *Registry) findRow(id api.ID) *row {
	if id == api.InvalidID {
		return nil
	}
	n := uint64(len(r.rows))
	for i := uint64(0); i < n; i++ {
		row := &r.rows[i]
		if row.id.Load() == uint64(id) {
			return row
		}
	}
	return nil
}

// Set associates rec with id, completing a prior Reserve.
func (r *Registry) Set(id api.ID, rec Record) bool {
	row := r.findRow(id)
	if row == nil {
		return false
	}
	row.mu.Lock()
	defer row.mu.Unlock()
	if row.id.Load() != uint64(id) {
		return false
	}
	row.record = rec
	return true
}

// Lookup returns the record for id, incrementing its refcount, or nil
// if no live record has that id. Callers must call Release when done.
func (r *Registry) Lookup(id api.ID) Record {
	row := r.findRow(id)
	if row == nil {
		return nil
	}
	row.mu.Lock()
	rec := row.record
	if rec == nil {
		row.mu.Unlock()
		return nil
	}
	rec.Ref()
	row.mu.Unlock()
	return rec
}

// Free decouples id from its row immediately; subsequent lookups
// return nil. It does not itself destroy the record — the caller must
// still drive the refcount to zero via Release.
func (r *Registry) Free(id api.ID) {
	row := r.findRow(id)
	if row == nil {
		return
	}
	row.mu.Lock()
	row.record = nil
	row.id.Store(0)
	row.mu.Unlock()
}

// Release decrements id's record's refcount; if it reaches zero, the
// caller (this thread) is responsible for destroying the record — the
// registry itself performs no destruction, matching spec.md's
// "destruction is not thread-safe, driven by exactly one thread"
// contract.
func (r *Registry) Release(rec Record) (destroyed bool) {
	if rec == nil {
		return false
	}
	return rec.Unref() == 0
}

// Ref is a scoped guard over a Lookup result. Release is idempotent-
// protected by a single-use flag: a caller invoking Release twice hits
// a no-op on the second call rather than double-decrementing the
// refcount (recorded as an Open Question decision in DESIGN.md).
type Ref struct {
	reg      *Registry
	rec      Record
	released atomic.Bool
}

// LookupRef performs Lookup and wraps the result in a scoped guard.
// Returns nil if the id has no live record.
func (r *Registry) LookupRef(id api.ID) *Ref {
	rec := r.Lookup(id)
	if rec == nil {
		return nil
	}
	return &Ref{reg: r, rec: rec}
}

// Record returns the guarded record.
func (g *Ref) Record() Record { return g.rec }

// Release releases the reference this guard holds. Safe to call more
// than once; only the first call has effect.
func (g *Ref) Release() (destroyed bool) {
	if !g.released.CompareAndSwap(false, true) {
		return false
	}
	return g.reg.Release(g.rec)
}
