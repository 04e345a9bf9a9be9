// File: listener/listener_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package listener

import (
	"net"
	"testing"
	"time"

	"github.com/localzet/webcore/api"
	"github.com/localzet/webcore/internal/evloop"
	"github.com/localzet/webcore/protocol"
	"github.com/localzet/webcore/reactor"
)

func TestInstance_UnixTextEcho(t *testing.T) {
	sockPath := t.TempDir() + "/test.sock"

	r, err := reactor.New()
	if err != nil {
		t.Fatalf("reactor.New: %v", err)
	}
	loop := evloop.New(r)

	received := make(chan string, 1)
	spec := Spec{
		Scheme:   TransportUnix,
		Address:  sockPath,
		Count:    1,
		Protocol: protocol.NewText(),
		Callbacks: &api.Callbacks{
			OnMessage: func(conn api.Connection, msg any) {
				received <- string(msg.([]byte))
				conn.Send([]byte("pong"), false)
			},
		},
	}

	inst, err := Listen(loop, spec, -1)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer inst.Close()

	go loop.Run()
	defer loop.Stop()

	// Give the accept watcher a moment to register before dialing.
	time.Sleep(10 * time.Millisecond)

	client, err := net.Dial("unix", sockPath)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	if _, err := client.Write([]byte("hello\n")); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case got := <-received:
		if got != "hello" {
			t.Errorf("onMessage = %q, want %q", got, "hello")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for onMessage")
	}

	buf := make([]byte, 16)
	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, err := client.Read(buf)
	if err != nil {
		t.Fatalf("read reply: %v", err)
	}
	if string(buf[:n]) != "pong\n" {
		t.Errorf("reply = %q, want %q", buf[:n], "pong\n")
	}
}
