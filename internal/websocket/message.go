// File: internal/websocket/message.go
// Package websocket
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package websocket

// Kind classifies a decoded WebSocket unit so the connection dispatch layer
// can route it to onMessage vs. the onWebSocket{Ping,Pong,Close} callbacks.
type Kind int

const (
	KindHandshake Kind = iota
	KindText
	KindBinary
	KindPing
	KindPong
	KindClose
)

// Message is what Decode produces for a WebSocket connection.
type Message struct {
	Kind    Kind
	Payload []byte
	// Accept is set only for KindHandshake: the full 101 response the
	// caller must write back before processing further input. A rejected
	// handshake yields a KindClose Message whose Payload is the rejection
	// response.
	Accept []byte
}
