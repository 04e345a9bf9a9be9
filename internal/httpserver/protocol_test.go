// File: internal/httpserver/protocol_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package httpserver

import (
	"strings"
	"testing"

	"github.com/localzet/webcore/api"
)

type fakeConn struct {
	ctx  *api.ScratchContext
	sent [][]byte
}

func newFakeConn() *fakeConn { return &fakeConn{ctx: api.NewScratchContext()} }

func (f *fakeConn) ID() uint64 { return 1 }
func (f *fakeConn) Send(data []byte, raw bool) (bool, error) {
	cp := append([]byte(nil), data...)
	f.sent = append(f.sent, cp)
	return true, nil
}
func (f *fakeConn) Close(data []byte, graceful bool) error { return nil }
func (f *fakeConn) PauseRecv()                             {}
func (f *fakeConn) ResumeRecv()                             {}
func (f *fakeConn) ConsumeRecvBuffer(n int)                 {}
func (f *fakeConn) Context() *api.ScratchContext            { return f.ctx }
func (f *fakeConn) Status() api.Status                      { return api.StatusEstablished }
func (f *fakeConn) LocalAddr() string                       { return "127.0.0.1:1" }
func (f *fakeConn) RemoteAddr() string                      { return "127.0.0.1:2" }
func (f *fakeConn) Stats() api.ConnStats                    { return api.ConnStats{} }

var _ api.Connection = (*fakeConn)(nil)

func TestHTTPProtocol_InputIncomplete(t *testing.T) {
	p := NewProtocol(0)
	conn := newFakeConn()
	n := p.Input([]byte("GET / HTTP/1.1\r\nHost: x\r\n"), conn)
	if n != 0 {
		t.Fatalf("Input (incomplete headers) = %d, want 0", n)
	}
}

func TestHTTPProtocol_InputComplete(t *testing.T) {
	p := NewProtocol(0)
	conn := newFakeConn()
	req := "GET /index.html HTTP/1.1\r\nHost: x\r\n\r\n"
	n := p.Input([]byte(req), conn)
	if n != len(req) {
		t.Fatalf("Input = %d, want %d", n, len(req))
	}
}

func TestHTTPProtocol_InputMissingHost(t *testing.T) {
	p := NewProtocol(0)
	conn := newFakeConn()
	req := "GET / HTTP/1.1\r\n\r\n"
	n := p.Input([]byte(req), conn)
	if n >= 0 {
		t.Fatalf("Input (missing Host) = %d, want <0", n)
	}
	if len(conn.sent) != 1 {
		t.Fatalf("expected one error response sent, got %d", len(conn.sent))
	}
}

func TestHTTPProtocol_InputChunkedRejected(t *testing.T) {
	p := NewProtocol(0)
	conn := newFakeConn()
	req := "POST / HTTP/1.1\r\nHost: x\r\nTransfer-Encoding: chunked\r\n\r\n"
	n := p.Input([]byte(req), conn)
	if n >= 0 {
		t.Fatalf("Input (chunked upload) = %d, want <0", n)
	}
}

func TestHTTPProtocol_InputWithBody(t *testing.T) {
	p := NewProtocol(0)
	conn := newFakeConn()
	head := "POST /submit HTTP/1.1\r\nHost: x\r\nContent-Length: 5\r\n\r\n"
	n := p.Input([]byte(head), conn) // body not yet arrived
	if n != 0 {
		t.Fatalf("Input (body pending) = %d, want 0", n)
	}
	full := head + "hello"
	n = p.Input([]byte(full), conn)
	if n != len(full) {
		t.Fatalf("Input (full) = %d, want %d", n, len(full))
	}
}

func TestHTTPProtocol_DecodeRequest(t *testing.T) {
	p := NewProtocol(0)
	conn := newFakeConn()
	raw := "GET /path?x=1 HTTP/1.1\r\nHost: x\r\nCookie: a=1; b=2\r\n\r\n"
	n := p.Input([]byte(raw), conn)
	msg, err := p.Decode([]byte(raw)[:n], conn)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	req := msg.(*Request)
	if req.Path != "/path" || req.Query.Get("x") != "1" {
		t.Errorf("unexpected path/query: %q %q", req.Path, req.Query.Get("x"))
	}
	cookies := req.Cookies()
	if cookies["a"] != "1" || cookies["b"] != "2" {
		t.Errorf("unexpected cookies: %+v", cookies)
	}
}

func TestHTTPProtocol_EncodeResponse(t *testing.T) {
	p := NewProtocol(0)
	resp := NewResponse(200, []byte("hi\n"))
	enc, err := p.Encode(resp, newFakeConn())
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	s := string(enc)
	for _, want := range []string{"HTTP/1.1 200 OK", "Content-Length: 3", "hi\n"} {
		if !strings.Contains(s, want) {
			t.Errorf("encoding %q missing %q", s, want)
		}
	}
}
