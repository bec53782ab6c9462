// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor provides the core poll-mode event reactor abstraction
// (spec component K) plus epoll (linux), IOCP (windows) and poll(2)
// (other unix) implementations, bound to internal/slot.Table by
// SlotReactor so an external event loop can drive readiness off raw
// descriptors without dereferencing a socket record.
package reactor
