// File: internal/websocket/handshake_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package websocket

import (
	"bytes"
	"testing"
)

func TestComputeAcceptKey_RFC6455Example(t *testing.T) {
	// From RFC 6455 §1.3's worked example.
	got := computeAcceptKey("dGhlIHNhbXBsZSBub25jZQ==")
	want := "s3pPLMBiTxaQ9kYGzzhZRbK+xOo="
	if got != want {
		t.Errorf("computeAcceptKey = %q, want %q", got, want)
	}
}

func TestParseHandshake_Valid(t *testing.T) {
	req := "GET /chat HTTP/1.1\r\n" +
		"Host: example.com\r\n" +
		"Upgrade: websocket\r\n" +
		"Connection: Upgrade\r\n" +
		"Sec-WebSocket-Key: dGhlIHNhbXBsZSBub25jZQ==\r\n" +
		"Sec-WebSocket-Version: 13\r\n\r\n"

	hr, n, err := ParseHandshake([]byte(req))
	if err != nil {
		t.Fatalf("ParseHandshake: %v", err)
	}
	if n != len(req) {
		t.Errorf("consumed = %d, want %d", n, len(req))
	}
	if hr.Path != "/chat" {
		t.Errorf("Path = %q, want /chat", hr.Path)
	}
	if hr.Accept != "s3pPLMBiTxaQ9kYGzzhZRbK+xOo=" {
		t.Errorf("Accept = %q", hr.Accept)
	}
}

func TestParseHandshake_Incomplete(t *testing.T) {
	req := "GET /chat HTTP/1.1\r\nHost: example.com\r\n"
	_, _, err := ParseHandshake([]byte(req))
	if err != ErrIncompleteHandshake {
		t.Errorf("err = %v, want ErrIncompleteHandshake", err)
	}
}

func TestParseHandshake_MissingKey(t *testing.T) {
	req := "GET /chat HTTP/1.1\r\n" +
		"Host: example.com\r\n" +
		"Upgrade: websocket\r\n" +
		"Connection: Upgrade\r\n" +
		"Sec-WebSocket-Version: 13\r\n\r\n"
	_, _, err := ParseHandshake([]byte(req))
	if err != ErrMissingKey {
		t.Errorf("err = %v, want ErrMissingKey", err)
	}
}

func TestBuildSwitchingProtocolsResponse(t *testing.T) {
	out := BuildSwitchingProtocolsResponse("abc123", nil)
	if !bytes.Contains(out, []byte("101 Switching Protocols")) {
		t.Errorf("missing status line: %q", out)
	}
	if !bytes.Contains(out, []byte("Sec-WebSocket-Accept: abc123")) {
		t.Errorf("missing accept header: %q", out)
	}
}
