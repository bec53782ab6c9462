// File: netcore.go
// Author: momentics <momentics@gmail.com>
//
// Module lifecycle (spec component G) and the public constructor
// surface mirroring original_source/network's C API: network_init
// probes IPv4/IPv6 support the way network.c's network_module_initialize
// does with a paired open/close of a UDP datagram socket per family;
// Init/Shutdown allocate and release the handle registry and slot table
// sized exactly as spec.md 4.G specifies.
package netcore

import (
	"log/slog"
	"sync"

	"github.com/momentics/netcore/addr"
	"github.com/momentics/netcore/api"
	"github.com/momentics/netcore/control"
	"github.com/momentics/netcore/internal/event"
	"github.com/momentics/netcore/internal/registry"
	"github.com/momentics/netcore/internal/slot"
	"github.com/momentics/netcore/internal/sysnet"
	"github.com/momentics/netcore/internal/tcp"
	"github.com/momentics/netcore/pool"
	"github.com/momentics/netcore/stream"
)

// Capabilities records which address families this process can open,
// probed once at network initialization time.
type Capabilities struct {
	IPv4 bool
	IPv6 bool
}

// Module is a live netcore instance: one handle registry, one slot
// table, one event bus, one buffer pool, and the TCP transport manager
// bound to all four. Callers normally hold a single process-wide
// Module, but nothing here prevents running several in the same
// process with independent MaxSockets budgets (e.g. one per test).
type Module struct {
	mu     sync.Mutex
	closed bool

	Config  control.SocketConfig
	Metrics *control.SocketMetrics
	Debug   *control.DebugProbes
	Bus     *event.Bus

	caps Capabilities

	mgr *tcp.Manager
}

// Init allocates the handle registry and slot table for up to
// maxSockets concurrently open descriptors and wires the buffer pool,
// event bus, and control-plane counters together, matching spec.md
// 4.G's init(max_sockets). bufSize overrides the ring buffer backing
// array size; zero selects tcp.DefaultBufferSize.
func Init(maxSockets, bufSize int, log *slog.Logger) *Module {
	if log == nil {
		log = slog.Default()
	}
	cfg := control.SocketConfig{MaxSockets: maxSockets, BufferSize: bufSize}
	metricsRegistry := control.NewMetricsRegistry()
	sm := control.NewSocketMetrics(metricsRegistry)
	debug := control.NewDebugProbes()
	control.RegisterPlatformProbes(debug, sm)

	bus := event.NewBus(log)
	bufPool := pool.NewSlabPool()

	m := &Module{
		Config:  cfg,
		Metrics: sm,
		Debug:   debug,
		Bus:     bus,
		mgr: &tcp.Manager{
			Registry: registry.New(maxSockets),
			Slots:    slot.NewTable(maxSockets),
			Bus:      bus,
			Pool:     bufPool,
			BufSize:  bufSize,
			Log:      log,
			Metrics:  sm,
		},
	}
	debug.RegisterProbe("netcore.bufpool", func() any { return bufPool.Stats() })
	debug.RegisterProbe("netcore.config", func() any { return m.Config })
	return m
}

// NetworkInit probes IPv4/IPv6 capability by opening and closing a UDP
// datagram socket of each family, matching network.c's
// network_module_initialize capability check. It records the result on
// the module and returns it.
func (m *Module) NetworkInit() Capabilities {
	m.caps = Capabilities{
		IPv4: sysnet.ProbeCapability(api.FamilyIPv4),
		IPv6: sysnet.ProbeCapability(api.FamilyIPv6),
	}
	return m.caps
}

// Capabilities returns the result of the most recent NetworkInit call.
func (m *Module) Capabilities() Capabilities { return m.caps }

// Shutdown marks the module closed. It frees nothing itself: the
// registry, slot table and buffer pool stay allocated while the Module
// is reachable, and open descriptors are not closed. It is not safe to
// use the module, or any id it produced, after Shutdown returns.
func (m *Module) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
}

// --- Public constructor surface, mirroring the C API's tcp_socket_*/
// socket_* naming from original_source/network/tcp.c and socket.c. ---

// TCPSocketCreate allocates a new TCP socket record, matching
// tcp_socket_create.
func (m *Module) TCPSocketCreate() api.ID { return m.mgr.Create() }

// SocketBind binds a socket's local address, matching socket_bind.
func (m *Module) SocketBind(id api.ID, local addr.Address) bool {
	return m.mgr.Bind(id, local)
}

// TCPSocketListen marks a bound socket as listening, matching
// tcp_socket_listen.
func (m *Module) TCPSocketListen(id api.ID) bool { return m.mgr.Listen(id) }

// TCPSocketAccept accepts one pending connection, matching
// tcp_socket_accept. With timeoutMs > 0 it waits at most that long.
// With timeoutMs == 0 a blocking listener waits in accept until a
// connection arrives, and a non-blocking one returns api.InvalidID at
// once if none is pending.
func (m *Module) TCPSocketAccept(id api.ID, timeoutMs int) api.ID {
	return m.mgr.Accept(id, timeoutMs)
}

// TCPSocketConnect drives the connect sequence, matching
// tcp_socket_connect.
func (m *Module) TCPSocketConnect(id api.ID, remote addr.Address, timeoutMs int) error {
	return m.mgr.Connect(id, remote, timeoutMs)
}

// SocketClose drives a socket into closed state without releasing the
// record itself, matching socket_close.
func (m *Module) SocketClose(id api.ID) { m.mgr.Close(id) }

// SocketSetBlocking toggles blocking mode, matching
// socket_set_blocking.
func (m *Module) SocketSetBlocking(id api.ID, blocking bool) bool {
	return m.mgr.SetBlocking(id, blocking)
}

// SocketBlocking reports the current blocking-mode flag.
func (m *Module) SocketBlocking(id api.ID) bool { return m.mgr.Blocking(id) }

// TCPSocketSetDelay toggles TCP_NODELAY, matching tcp_socket_set_delay.
func (m *Module) TCPSocketSetDelay(id api.ID, delay bool) bool {
	return m.mgr.SetDelay(id, delay)
}

// SocketSetReuseAddress toggles SO_REUSEADDR.
func (m *Module) SocketSetReuseAddress(id api.ID, on bool) bool {
	return m.mgr.ReuseAddress(id, on)
}

// SocketSetReusePort toggles SO_REUSEPORT.
func (m *Module) SocketSetReusePort(id api.ID, on bool) bool {
	return m.mgr.ReusePort(id, on)
}

// SocketAddressLocal returns the socket's local address, matching
// socket_address_local.
func (m *Module) SocketAddressLocal(id api.ID) *addr.Address {
	return m.mgr.AddressLocal(id)
}

// SocketAddressRemote returns the socket's peer address, matching
// socket_address_remote.
func (m *Module) SocketAddressRemote(id api.ID) *addr.Address {
	return m.mgr.AddressRemote(id)
}

// SocketState returns the connection state machine value, matching
// socket_state.
func (m *Module) SocketState(id api.ID) api.State { return m.mgr.State(id) }

// SocketStream wraps id in a stream.Adapter, matching socket_stream.
func (m *Module) SocketStream(id api.ID) *stream.Adapter {
	return stream.New(m.mgr, id)
}

// SocketRef extends id's lifetime, matching socket_ref.
func (m *Module) SocketRef(id api.ID) api.ID { return m.mgr.Ref(id) }

// SocketDestroy releases one reference on id, matching socket_destroy.
func (m *Module) SocketDestroy(id api.ID) { m.mgr.Destroy(id) }

// IsSocket reports whether id currently resolves to a live record,
// matching socket_is_socket.
func (m *Module) IsSocket(id api.ID) bool { return m.mgr.IsSocket(id) }

// Stats returns a point-in-time snapshot of the module's socket
// lifecycle and IO counters.
func (m *Module) Stats() api.Metrics {
	snap := m.Metrics.Snapshot()
	return api.Metrics{
		SocketsCreated:   snap["socket.created"],
		SocketsDestroyed: snap["socket.destroyed"],
		SocketsActive:    snap["socket.created"] - snap["socket.destroyed"],
		BytesRead:        uint64(snap["socket.bytes_read"]),
		BytesWritten:     uint64(snap["socket.bytes_written"]),
		Accepts:          snap["socket.accepted"],
		Connects:         snap["socket.connected"],
		Timeouts:         snap["socket.timed_out"],
	}
}
