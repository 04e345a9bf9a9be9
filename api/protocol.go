// File: api/protocol.go
// Package api
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Protocol is the pluggable framing contract shared by every built-in and
// user-defined application protocol (C4). It replaces the source's "class
// with three static methods" with a small capability interface held by
// value/pointer on each listener (see DESIGN.md, "dynamic dispatch").

package api

// Protocol defines the three pure functions every framing protocol supplies.
type Protocol interface {
	// Input returns the expected length of the next frame within buf:
	//   0   -> need more bytes
	//   <0  -> fatal protocol error, connection must close
	//   n>0 -> frame is exactly n bytes once present
	Input(buf []byte, conn Connection) int

	// Decode parses exactly the first n bytes returned by the most recent
	// Input call into an application message. Side effects on conn's
	// Context (e.g. WebSocket handshake state) are allowed.
	Decode(buf []byte, conn Connection) (any, error)

	// Encode serializes an outbound message into bytes ready for the wire.
	// May consult conn's Context. Returning a nil slice with a nil error
	// means the payload was buffered internally and nothing should be
	// written to the socket yet (deferred send).
	Encode(msg any, conn Connection) ([]byte, error)
}
