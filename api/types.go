// File: api/types.go
// Author: momentics <momentics@gmail.com>
//
// Shared API-level type declarations, DTOs, and constants for netcore.

package api

import "time"

// ID is an opaque handle to a socket record. Zero (InvalidID) is reserved.
type ID uint64

// InvalidID is the reserved zero identifier; no live socket ever has it.
const InvalidID ID = 0

// Family identifies an address family.
type Family int

const (
	FamilyUnspecified Family = iota
	FamilyIPv4
	FamilyIPv6
)

func (f Family) String() string {
	switch f {
	case FamilyIPv4:
		return "ipv4"
	case FamilyIPv6:
		return "ipv6"
	default:
		return "unspecified"
	}
}

// State is the connection state machine tracked per descriptor slot.
type State int

const (
	StateNotConnected State = iota
	StateConnecting
	StateConnected
	StateListening
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateNotConnected:
		return "not_connected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateListening:
		return "listening"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Metrics provides a standard layout for module health/statistics reporting.
type Metrics struct {
	SocketsActive   int64
	SocketsCreated  int64
	SocketsDestroyed int64
	BytesRead       uint64
	BytesWritten    uint64
	Accepts         int64
	Connects        int64
	Timeouts        int64
	StartedAt       time.Time
}
