// File: netio/conn_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package netio

import (
	"testing"
	"time"

	"golang.org/x/sys/unix"

	"github.com/localzet/webcore/api"
	"github.com/localzet/webcore/internal/evloop"
	"github.com/localzet/webcore/protocol"
	"github.com/localzet/webcore/reactor"
)

func TestConn_TextEcho(t *testing.T) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_NONBLOCK, 0)
	if err != nil {
		t.Fatalf("socketpair: %v", err)
	}
	serverFD, peerFD := fds[0], fds[1]
	defer unix.Close(peerFD)

	r, err := reactor.New()
	if err != nil {
		t.Fatalf("reactor.New: %v", err)
	}
	loop := evloop.New(r)

	received := make(chan string, 1)

	_ = New(loop, serverFD, "local", "peer", Options{
		Protocol: protocol.NewText(),
		Callbacks: &api.Callbacks{
			OnMessage: func(conn api.Connection, msg any) {
				received <- string(msg.([]byte))
			},
		},
	})

	go loop.Run()
	defer loop.Stop()

	if _, err := unix.Write(peerFD, []byte("ping\n")); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case got := <-received:
		if got != "ping" {
			t.Errorf("onMessage = %q, want %q", got, "ping")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for onMessage")
	}
}
