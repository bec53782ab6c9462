// control/socket_config.go
// Author: momentics <momentics@gmail.com>
//
// Typed view of component G's tunables (spec.md section 3's build
// constants: MaxSockets and the buffer size range) layered over
// ConfigStore's hot-reloadable map, following the teacher's pattern of
// a typed accessor reading through a generic snapshot rather than
// exposing the raw map to callers.

package control

const (
	keyMaxSockets = "netcore.max_sockets"
	keyBufferSize = "netcore.buffer_size"
)

// SocketConfig is the netcore.Init tunable set: the socket table
// capacity and the ring buffer backing array size new records are
// created with.
type SocketConfig struct {
	MaxSockets int
	BufferSize int
}

// NewSocketConfigStore seeds a ConfigStore with cfg's values so
// RegisterReloadHook observers and DebugProbes can read them uniformly
// with any other runtime configuration.
func NewSocketConfigStore(cfg SocketConfig) *ConfigStore {
	cs := NewConfigStore()
	cs.SetConfig(map[string]any{
		keyMaxSockets: cfg.MaxSockets,
		keyBufferSize: cfg.BufferSize,
	})
	return cs
}

// ReadSocketConfig extracts a SocketConfig back out of a ConfigStore's
// snapshot, defaulting missing or mistyped keys to zero rather than
// erroring — hot-reload callers can always re-SetConfig a corrected
// snapshot.
func ReadSocketConfig(cs *ConfigStore) SocketConfig {
	snap := cs.GetSnapshot()
	var out SocketConfig
	if v, ok := snap[keyMaxSockets].(int); ok {
		out.MaxSockets = v
	}
	if v, ok := snap[keyBufferSize].(int); ok {
		out.BufferSize = v
	}
	return out
}
