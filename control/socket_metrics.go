// control/socket_metrics.go
// Author: momentics <momentics@gmail.com>
//
// Typed socket lifecycle counters layered over MetricsRegistry (spec
// component L). internal/tcp.Manager increments these at the same
// points spec.md 4.D names as tcp_create/destroy/accept/connect and
// their timeout paths.

package control

import "sync/atomic"

// SocketMetrics counts socket lifecycle and IO events. Each counter is
// independently atomic; Snapshot merges them into the backing
// MetricsRegistry so DebugProbes and hot-reload observers see one
// consistent view alongside any other registered metric.
type SocketMetrics struct {
	registry *MetricsRegistry

	socketsCreated   atomic.Int64
	socketsDestroyed atomic.Int64
	bytesRead        atomic.Int64
	bytesWritten     atomic.Int64
	acceptCount      atomic.Int64
	connectCount     atomic.Int64
	timeoutCount     atomic.Int64
}

// NewSocketMetrics creates counters backed by registry. registry may be
// nil, in which case Snapshot is the only way to read the counters.
func NewSocketMetrics(registry *MetricsRegistry) *SocketMetrics {
	return &SocketMetrics{registry: registry}
}

func (m *SocketMetrics) SocketCreated()     { m.socketsCreated.Add(1) }
func (m *SocketMetrics) SocketDestroyed()   { m.socketsDestroyed.Add(1) }
func (m *SocketMetrics) AddBytesRead(n int) { m.bytesRead.Add(int64(n)) }
func (m *SocketMetrics) AddBytesWritten(n int) {
	m.bytesWritten.Add(int64(n))
}
func (m *SocketMetrics) Accepted() { m.acceptCount.Add(1) }
func (m *SocketMetrics) Connected() { m.connectCount.Add(1) }
func (m *SocketMetrics) TimedOut()   { m.timeoutCount.Add(1) }

// Snapshot returns the current counter values and, if a registry was
// supplied at construction, also pushes them into it under the
// "socket.*" key namespace.
func (m *SocketMetrics) Snapshot() map[string]int64 {
	snap := map[string]int64{
		"socket.created":       m.socketsCreated.Load(),
		"socket.destroyed":     m.socketsDestroyed.Load(),
		"socket.bytes_read":    m.bytesRead.Load(),
		"socket.bytes_written": m.bytesWritten.Load(),
		"socket.accepted":      m.acceptCount.Load(),
		"socket.connected":     m.connectCount.Load(),
		"socket.timed_out":     m.timeoutCount.Load(),
	}
	if m.registry != nil {
		for k, v := range snap {
			m.registry.Set(k, v)
		}
	}
	return snap
}
