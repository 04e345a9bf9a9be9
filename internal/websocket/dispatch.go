// File: internal/websocket/dispatch.go
// Package websocket
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Wrap gives a Listener the control-frame behavior spec.md §4.6/§2 expects
// of the built-in WebSocket protocol "for free": the handshake's 101
// response is written back without user code, pings are echoed as pongs
// unless the caller wants to see them itself, and a close frame is
// echoed-then-closed. netio.Conn stays protocol-agnostic (it only ever
// calls OnMessage); this wrapper is what Server's *Message values are
// routed through before the caller's own handlers run.

package websocket

import "github.com/localzet/webcore/api"

// Wrap returns a *api.Callbacks that intercepts the server protocol's
// *Message values on their way through OnMessage, dispatching handshake,
// ping, pong and close frames to the matching OnWebSocket* hook (when
// set) and performing the default wire behavior the hook would otherwise
// have to implement by hand. Plain text/binary messages, and any message
// produced by a different protocol, pass through to cb.OnMessage
// untouched. A nil cb is treated as an all-defaults *api.Callbacks.
func Wrap(cb *api.Callbacks) *api.Callbacks {
	if cb == nil {
		cb = &api.Callbacks{}
	}
	wrapped := *cb
	userOnMessage := cb.OnMessage

	wrapped.OnMessage = func(conn api.Connection, msg any) {
		m, ok := msg.(*Message)
		if !ok {
			if userOnMessage != nil {
				userOnMessage(conn, msg)
			}
			return
		}

		switch m.Kind {
		case KindHandshake:
			if len(m.Accept) > 0 {
				_, _ = conn.Send(m.Accept, true)
			}
			if cb.OnWebSocketConnect != nil {
				cb.OnWebSocketConnect(conn, string(m.Payload), nil)
			}

		case KindPing:
			if cb.OnWebSocketPing != nil {
				cb.OnWebSocketPing(conn, m.Payload)
				return
			}
			// No user handler: auto-echo a pong, per §4.6. Connection.Send
			// only accepts raw bytes, so the frame is built directly
			// rather than routed back through Protocol.Encode.
			_, _ = conn.Send(EncodeFrame(OpPong, m.Payload), true)

		case KindPong:
			if cb.OnWebSocketPong != nil {
				cb.OnWebSocketPong(conn, m.Payload)
			}

		case KindClose:
			code, reason := decodeCloseFrame(m.Payload)
			if cb.OnWebSocketClose != nil {
				cb.OnWebSocketClose(conn, code, reason)
			}
			_, _ = conn.Send(EncodeFrame(OpClose, m.Payload), true)
			_ = conn.Close(nil, true)

		default:
			if userOnMessage != nil {
				userOnMessage(conn, msg)
			}
		}
	}

	return &wrapped
}

// decodeCloseFrame splits an RFC 6455 close payload into its status code
// (big-endian uint16, defaulting to 1005/"no status received" when absent)
// and the trailing UTF-8 reason.
func decodeCloseFrame(payload []byte) (code int, reason string) {
	if len(payload) < 2 {
		return 1005, ""
	}
	code = int(payload[0])<<8 | int(payload[1])
	reason = string(payload[2:])
	return code, reason
}
