// File: internal/websocket/dispatch_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package websocket

import (
	"bytes"
	"testing"

	"github.com/localzet/webcore/api"
)

func TestWrap_HandshakeWritesAcceptAndFiresConnect(t *testing.T) {
	conn := newFakeConn()

	var connectPath string
	cb := Wrap(&api.Callbacks{
		OnWebSocketConnect: func(c api.Connection, path string, headers map[string][]string) {
			connectPath = path
		},
	})

	cb.OnMessage(conn, &Message{Kind: KindHandshake, Payload: []byte("/ws"), Accept: []byte("HTTP/1.1 101\r\n\r\n")})

	if !conn.sendCalled || !bytes.Contains(conn.lastSent, []byte("101")) {
		t.Fatalf("expected the 101 response to be written, got %q", conn.lastSent)
	}
	if connectPath != "/ws" {
		t.Fatalf("OnWebSocketConnect path = %q, want /ws", connectPath)
	}
}

func TestWrap_PingAutoEchoesPongWithoutHandler(t *testing.T) {
	conn := newFakeConn()
	cb := Wrap(&api.Callbacks{})

	cb.OnMessage(conn, &Message{Kind: KindPing, Payload: []byte("payload")})

	if !conn.sendCalled {
		t.Fatal("expected Wrap to auto-echo a pong via conn.Send")
	}
	if conn.lastSent[0] != finBit|OpPong {
		t.Errorf("echoed opcode byte = %x, want pong", conn.lastSent[0])
	}
}

func TestWrap_PingHandlerSuppressesAutoEcho(t *testing.T) {
	conn := newFakeConn()
	var gotPayload []byte
	cb := Wrap(&api.Callbacks{
		OnWebSocketPing: func(c api.Connection, payload []byte) {
			gotPayload = payload
		},
	})

	cb.OnMessage(conn, &Message{Kind: KindPing, Payload: []byte("ping-data")})

	if !bytes.Equal(gotPayload, []byte("ping-data")) {
		t.Fatalf("OnWebSocketPing payload = %q, want %q", gotPayload, "ping-data")
	}
	if conn.sendCalled {
		t.Fatal("a user ping handler should suppress the automatic pong echo")
	}
}

func TestWrap_CloseFiresCallbackAndClosesConnection(t *testing.T) {
	conn := newFakeConn()
	var gotCode int
	var gotReason string
	cb := Wrap(&api.Callbacks{
		OnWebSocketClose: func(c api.Connection, code int, reason string) {
			gotCode, gotReason = code, reason
		},
	})

	payload := append([]byte{0x03, 0xE8}, []byte("bye")...) // 1000, "bye"
	cb.OnMessage(conn, &Message{Kind: KindClose, Payload: payload})

	if gotCode != 1000 || gotReason != "bye" {
		t.Fatalf("OnWebSocketClose(code=%d, reason=%q), want (1000, \"bye\")", gotCode, gotReason)
	}
	if !conn.sendCalled {
		t.Fatal("expected an echoed close frame")
	}
	if !conn.closeCalled {
		t.Fatal("expected the connection to be closed after echoing the close frame")
	}
}

func TestWrap_PassesDataMessagesThrough(t *testing.T) {
	conn := newFakeConn()
	var gotPayload []byte
	cb := Wrap(&api.Callbacks{
		OnMessage: func(c api.Connection, msg any) {
			gotPayload = msg.(*Message).Payload
		},
	})

	cb.OnMessage(conn, &Message{Kind: KindText, Payload: []byte("hello")})

	if !bytes.Equal(gotPayload, []byte("hello")) {
		t.Fatalf("OnMessage payload = %q, want %q", gotPayload, "hello")
	}
}
