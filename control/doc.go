// Package control
// Author: momentics <momentics@gmail.com>
//
// Hot-reload, runtime metrics, configuration control, and debug
// introspection layer (spec component L). Provides concurrent-safe
// state handling primitives including:
//   - Immutable snapshot config reads and atomic updates (ConfigStore,
//     SocketConfig)
//   - Runtime observers for hot-reload (RegisterReloadHook)
//   - Socket lifecycle and IO telemetry (SocketMetrics over
//     MetricsRegistry)
//   - State export, debug hooks, and probe registration (DebugProbes)
//
// This package is cross-platform and build-tag-partitioned as needed.
package control
