// File: stream/adapter.go
// Author: momentics <momentics@gmail.com>
//
// The stream adapter (spec component F): presents a TCP socket id as a
// sequential, binary, little-endian-by-default byte stream. Grounded
// on the stream vtable in original_source/network/socket.c
// (_socket_read, _socket_write, _socket_eos, _socket_available_read,
// _socket_buffer_read, _socket_flush, _socket_seek/_socket_tell,
// _socket_last_modified).
package stream

import (
	"errors"
	"io"
	"runtime"
	"time"

	"github.com/momentics/netcore/api"
	"github.com/momentics/netcore/internal/tcp"
)

// maxReadIterations bounds the read() retry loop (spec.md 4.F step 3:
// "up to a small bounded number of iterations").
const maxReadIterations = 4

// Adapter is a sequential byte-stream view over a TCP socket id. New
// does not attach the adapter as the record's stream back-pointer, and
// nothing here prevents two Adapters over the same id; each holds and
// releases its own reference.
type Adapter struct {
	mgr *tcp.Manager
	id  api.ID
}

// New wraps id in a stream adapter, taking exactly one reference on
// id — the single ref transferred at construction that the finalizer
// must later balance (spec.md 4.F / 9's fourth open question).
func New(mgr *tcp.Manager, id api.ID) *Adapter {
	a := &Adapter{mgr: mgr, id: mgr.Ref(id)}
	runtime.SetFinalizer(a, (*Adapter).finalize)
	return a
}

// finalize releases exactly one reference, matching the single ref
// transferred at construction — not the two socket_destroy call sites
// seen in the original source, whose net effect is a single decrement
// once the lookup-side release is accounted for (spec.md 9, decision
// recorded in DESIGN.md).
func (a *Adapter) finalize() {
	a.mgr.Destroy(a.id)
}

// Close detaches the finalizer and releases the adapter's reference
// immediately, for callers that want deterministic cleanup instead of
// waiting on the garbage collector.
func (a *Adapter) Close() error {
	runtime.SetFinalizer(a, nil)
	a.mgr.Destroy(a.id)
	return nil
}

// ID returns the wrapped socket identifier.
func (a *Adapter) ID() api.ID { return a.id }

// Read drains the in-ring into p, invoking the transport's buffered
// read for any shortfall, per spec.md 4.F's read().
func (a *Adapter) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	state := a.mgr.State(a.id)
	if state != api.StateConnected && state != api.StateDisconnected {
		return 0, io.EOF
	}

	total := 0
	for iter := 0; iter < maxReadIterations && total < len(p); iter++ {
		n := a.drainRing(p[total:])
		total += n
		if total == len(p) {
			break
		}
		if err := a.mgr.BufferedRead(a.id, len(p)-total); err != nil {
			if errors.Is(err, api.ErrConnectionTerminated) {
				break
			}
		}
		if n == 0 && a.mgr.BufferedInLen(a.id) == 0 {
			// No progress this iteration and nothing new arrived.
			break
		}
	}
	if total < len(p) {
		a.mgr.State(a.id) // re-poll on any shortfall, per spec.md 4.F step 4.
	}
	if total > 0 {
		a.mgr.AddBytesRead(a.id, uint64(total))
	}
	if total == 0 && a.Eos() {
		return 0, io.EOF
	}
	return total, nil
}

func (a *Adapter) drainRing(p []byte) int {
	return a.mgr.DrainRing(a.id, p)
}

// Write copies into the out-buffer, flushing via buffered write
// whenever it fills, per spec.md 4.F's write().
func (a *Adapter) Write(p []byte) (int, error) {
	if a.mgr.State(a.id) != api.StateConnected {
		return 0, api.ErrInvalidState
	}
	total := 0
	for total < len(p) {
		if a.mgr.State(a.id) != api.StateConnected {
			break
		}
		n := a.mgr.FillOutBuffer(a.id, p[total:])
		total += n
		if a.mgr.OutBufferFull(a.id) {
			if err := a.mgr.BufferedWrite(a.id); err != nil {
				break
			}
		}
		if n == 0 {
			if err := a.mgr.BufferedWrite(a.id); err != nil {
				break
			}
			if a.mgr.OutBufferFull(a.id) {
				break // out buffer still full after a flush attempt.
			}
		}
	}
	if total > 0 {
		a.mgr.AddBytesWritten(a.id, uint64(total))
	}
	return total, nil
}

// Eos reports end-of-stream: state isn't CONNECTED (or the fd is
// invalid) and the in-ring is empty.
func (a *Adapter) Eos() bool {
	state := a.mgr.State(a.id)
	return (state != api.StateConnected || !a.mgr.HasFD(a.id)) && a.mgr.BufferedInLen(a.id) == 0
}

// AvailableRead returns buffered-in plus kernel-reported readiness, if
// positive.
func (a *Adapter) AvailableRead() int {
	return a.mgr.AvailableRead(a.id)
}

// BufferRead invokes the transport's buffered read for a non-polled,
// CONNECTED, live socket with room remaining in the in-ring.
func (a *Adapter) BufferRead() {
	if a.mgr.State(a.id) != api.StateConnected {
		return
	}
	if a.mgr.IsPolled(a.id) {
		return
	}
	avail := a.mgr.AvailableRead(a.id)
	if avail <= 0 {
		return
	}
	_ = a.mgr.BufferedRead(a.id, avail)
}

// Flush invokes buffered write if the out-buffer is non-empty and the
// socket is CONNECTED.
func (a *Adapter) Flush() error {
	if a.mgr.State(a.id) != api.StateConnected {
		return nil
	}
	if a.mgr.OutBufferLen(a.id) == 0 {
		return nil
	}
	return a.mgr.BufferedWrite(a.id)
}

// SeekMode enumerates the only seek mode this stream honors.
type SeekMode int

const (
	// SeekCurrent is the sole valid mode: discard-read offset bytes.
	SeekCurrent SeekMode = iota
)

// ErrSeekUnsupported is returned for any seek mode other than
// SeekCurrent, or a negative offset.
var ErrSeekUnsupported = errors.New("stream: only non-negative SeekCurrent is supported")

// Seek implements the discard-read semantics of spec.md 4.F's seek():
// only SeekCurrent with a non-negative offset is valid.
func (a *Adapter) Seek(offset int64, mode SeekMode) error {
	if mode != SeekCurrent || offset < 0 {
		return ErrSeekUnsupported
	}
	sink := make([]byte, 4096)
	remaining := offset
	for remaining > 0 {
		n := remaining
		if n > int64(len(sink)) {
			n = int64(len(sink))
		}
		read, err := a.Read(sink[:n])
		if read == 0 || err != nil {
			break
		}
		remaining -= int64(read)
	}
	return nil
}

// Tell returns the lifetime read counter cast to signed 64-bit.
func (a *Adapter) Tell() int64 {
	return int64(a.mgr.BytesRead(a.id))
}

// Size is a no-op returning zero: streaming has no size.
func (a *Adapter) Size() int64 { return 0 }

// Truncate is a no-op: streaming has no size to truncate.
func (a *Adapter) Truncate(int64) {}

// LastModified returns the current wall-clock time.
func (a *Adapter) LastModified() time.Time { return time.Now() }
