// File: listener/listener.go
// Package listener implements Listener/ServerInstance (C8): a bound
// socket, its application protocol, user callbacks, worker count, and
// TLS/reusePort options.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Grounded on the teacher's server/hioload_server.go lifecycle shape
// (construct from config, Start/Stop) and on
// Ankit-Kulkarni-go-experiments/graceful_restarts for SO_REUSEPORT /
// inherited-listener idioms, since the teacher itself has no multi-worker
// listener abstraction.

package listener

import (
	"crypto/tls"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"net"
	"os"
	"strconv"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"

	"github.com/localzet/webcore/api"
	"github.com/localzet/webcore/internal/evloop"
	"github.com/localzet/webcore/netio"
)

// Transport identifies the socket family/scheme a Listener binds.
type Transport string

const (
	TransportTCP  Transport = "tcp"
	TransportUDP  Transport = "udp"
	TransportUnix Transport = "unix"
	TransportSSL  Transport = "ssl"
)

// Spec is a Listener's configuration (§3 Data Model): bound at config
// load time, consumed by the supervisor to create one Instance per
// worker slot.
type Spec struct {
	Scheme     Transport
	Address    string // host:port for tcp/udp/ssl, path for unix
	Count      int
	Reloadable bool
	ReusePort  bool
	User       string
	Group      string
	Protocol   api.Protocol
	Callbacks  *api.Callbacks
	Pool       api.BufferPool

	TLSConfig *tls.Config

	MaxPackageSize    int
	MaxSendBufferSize int
}

// ID is a stable hash of scheme://host:port, used to correlate a Spec
// across master/worker and across reload.
func (s Spec) ID() string {
	sum := sha1.Sum([]byte(fmt.Sprintf("%s://%s", s.Scheme, s.Address)))
	return hex.EncodeToString(sum[:8])
}

// Instance owns one bound listening socket (or, for reusePort, one socket
// per worker) and drives accept/datagram handling against a worker's
// event loop.
type Instance struct {
	spec Spec
	loop *evloop.Loop

	listenFD int // -1 for UDP, which has no accept loop
	udpFD    int // -1 unless spec.Scheme == TransportUDP

	tlsConfig *tls.Config

	connCount    atomic.Int64
	totalRequest atomic.Int64
	sendFail     atomic.Int64

	connsMu sync.Mutex
	conns   map[uint64]api.Connection
}

// Stats is the per-process counter snapshot the statusfile's per-process
// table draws its `connections`/`send_fail`/`total_request` columns from
// (§6).
type Stats struct {
	Connections  int64
	TotalRequest int64
	SendFail     int64
}

// Stats returns a snapshot of this instance's live counters.
func (i *Instance) Stats() Stats {
	return Stats{
		Connections:  i.connCount.Load(),
		TotalRequest: i.totalRequest.Load(),
		SendFail:     i.sendFail.Load(),
	}
}

// ServerName is the human-readable listener identity used in the
// statusfile's per-process table.
func (i *Instance) ServerName() string {
	return fmt.Sprintf("%s://%s", i.spec.Scheme, i.spec.Address)
}

// Spec returns the listener's configuration, including the scheme/address
// and protocol the statusfile's connection dump needs to label each row.
func (i *Instance) Spec() Spec {
	return i.spec
}

// Connections returns a point-in-time snapshot of live connections, for the
// statusfile's per-connection dump (SIGIO, §6).
func (i *Instance) Connections() []api.Connection {
	i.connsMu.Lock()
	defer i.connsMu.Unlock()
	out := make([]api.Connection, 0, len(i.conns))
	for _, c := range i.conns {
		out = append(out, c)
	}
	return out
}

// Listen binds (or, if fd >= 0, adopts an inherited) socket for spec and
// registers its accept/datagram handler with loop.
func Listen(loop *evloop.Loop, spec Spec, inheritedFD int) (*Instance, error) {
	inst := &Instance{spec: spec, loop: loop, listenFD: -1, udpFD: -1, tlsConfig: spec.TLSConfig, conns: make(map[uint64]api.Connection)}
	inst.spec.Callbacks = inst.countingCallbacks(spec.Callbacks)

	switch spec.Scheme {
	case TransportUDP:
		fd, err := bindOrAdopt(spec, inheritedFD, unix.SOCK_DGRAM)
		if err != nil {
			return nil, err
		}
		inst.udpFD = fd
		loop.OnReadable(uintptr(fd), inst.onUDPReadable)
		return inst, nil

	case TransportTCP, TransportUnix, TransportSSL:
		fd, err := bindOrAdopt(spec, inheritedFD, unix.SOCK_STREAM)
		if err != nil {
			return nil, err
		}
		if err := unix.Listen(fd, 1024); err != nil {
			unix.Close(fd)
			return nil, fmt.Errorf("listen: %w", err)
		}
		inst.listenFD = fd
		loop.OnReadable(uintptr(fd), inst.onAcceptable)
		return inst, nil

	default:
		return nil, fmt.Errorf("listener: unknown transport %q", spec.Scheme)
	}
}

// countingCallbacks wraps user callbacks so the instance's connections/
// total_request/send_fail counters (§6 statusfile per-process table) stay
// live without every caller having to remember to update them.
func (i *Instance) countingCallbacks(orig *api.Callbacks) *api.Callbacks {
	wrapped := &api.Callbacks{}
	if orig != nil {
		*wrapped = *orig
	}
	userConnect, userClose, userMessage, userError := wrapped.OnConnect, wrapped.OnClose, wrapped.OnMessage, wrapped.OnError
	userDrain := wrapped.OnBufferDrain

	wrapped.OnConnect = func(conn api.Connection) {
		i.connCount.Add(1)
		i.connsMu.Lock()
		i.conns[conn.ID()] = conn
		i.connsMu.Unlock()
		if userConnect != nil {
			userConnect(conn)
		}
	}
	wrapped.OnClose = func(conn api.Connection) {
		i.connCount.Add(-1)
		i.connsMu.Lock()
		delete(i.conns, conn.ID())
		i.connsMu.Unlock()
		if userClose != nil {
			userClose(conn)
		}
	}
	wrapped.OnMessage = func(conn api.Connection, msg any) {
		i.totalRequest.Add(1)
		if userMessage != nil {
			userMessage(conn, msg)
		}
	}
	wrapped.OnError = func(conn api.Connection, err *api.CallbackError) {
		if err != nil && err.Code == api.ErrCodeSendFail {
			i.sendFail.Add(1)
		}
		if userError != nil {
			userError(conn, err)
		}
	}
	// Dispatch a one-shot drain continuation before the listener's own
	// onBufferDrain hook, so a protocol-level streamer (HTTP file
	// responses, §4.5) can chain 1 MiB chunks across onBufferFull/
	// onBufferDrain cycles without the listener itself knowing about it.
	wrapped.OnBufferDrain = func(conn api.Connection) {
		if v, ok := conn.Context().Get(api.ScratchKeyDrainContinuation); ok {
			if fn, ok := v.(func()); ok {
				conn.Context().Delete(api.ScratchKeyDrainContinuation)
				fn()
			}
		}
		if userDrain != nil {
			userDrain(conn)
		}
	}
	return wrapped
}

// FD exposes the raw listening descriptor so the supervisor can pass it to
// re-exec'd workers via ExtraFiles, or persist it across a tableflip upgrade.
func (i *Instance) FD() int {
	if i.listenFD >= 0 {
		return i.listenFD
	}
	return i.udpFD
}

// BindOnly binds spec's listening socket (TCP/UDP/Unix) and returns its fd
// without registering it on any event loop. Used by the master process to
// bind non-reusePort listeners before passing the fd down to a worker via
// ExtraFiles (§4.2 bootstrap: "bind listener sockets (unless reusePort)").
func BindOnly(spec Spec) (int, error) {
	sockType := unix.SOCK_STREAM
	if spec.Scheme == TransportUDP {
		sockType = unix.SOCK_DGRAM
	}
	fd, err := bindOrAdopt(spec, -1, sockType)
	if err != nil {
		return -1, err
	}
	if spec.Scheme != TransportUDP {
		if err := unix.Listen(fd, 1024); err != nil {
			unix.Close(fd)
			return -1, fmt.Errorf("listen: %w", err)
		}
	}
	return fd, nil
}

func bindOrAdopt(spec Spec, inheritedFD int, sockType int) (int, error) {
	if inheritedFD >= 0 {
		if err := unix.SetNonblock(inheritedFD, true); err != nil {
			return -1, fmt.Errorf("set inherited fd nonblocking: %w", err)
		}
		return inheritedFD, nil
	}

	domain := unix.AF_INET
	if spec.Scheme == TransportUnix {
		domain = unix.AF_UNIX
	}
	fd, err := unix.Socket(domain, sockType|unix.SOCK_NONBLOCK, 0)
	if err != nil {
		return -1, fmt.Errorf("socket: %w", err)
	}

	if spec.ReusePort {
		if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEPORT, 1); err != nil {
			unix.Close(fd)
			return -1, fmt.Errorf("setsockopt SO_REUSEPORT: %w", err)
		}
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("setsockopt SO_REUSEADDR: %w", err)
	}

	sa, err := sockaddrFor(spec)
	if err != nil {
		unix.Close(fd)
		return -1, err
	}
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("bind %s: %w", spec.Address, err)
	}
	return fd, nil
}

func sockaddrFor(spec Spec) (unix.Sockaddr, error) {
	if spec.Scheme == TransportUnix {
		_ = os.Remove(spec.Address)
		return &unix.SockaddrUnix{Name: spec.Address}, nil
	}
	host, portStr, err := net.SplitHostPort(spec.Address)
	if err != nil {
		return nil, fmt.Errorf("parse address %q: %w", spec.Address, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("parse port %q: %w", portStr, err)
	}
	ip := net.ParseIP(host)
	if ip == nil {
		ips, err := net.LookupIP(host)
		if err != nil || len(ips) == 0 {
			return nil, fmt.Errorf("resolve host %q: %w", host, err)
		}
		ip = ips[0]
	}
	var addr [4]byte
	copy(addr[:], ip.To4())
	return &unix.SockaddrInet4{Port: port, Addr: addr}, nil
}

func (i *Instance) onAcceptable() {
	for {
		fd, _, err := unix.Accept(i.listenFD)
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return
		}
		if err != nil {
			if i.spec.Callbacks != nil && i.spec.Callbacks.OnError != nil {
				i.spec.Callbacks.OnError(nil, api.NewCallbackError(api.ErrCodeInternal, err.Error(), err))
			}
			return
		}
		unix.SetNonblock(fd, true)
		unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1)

		opt := netio.Options{
			Protocol:          i.spec.Protocol,
			Callbacks:         i.spec.Callbacks,
			Pool:              i.spec.Pool,
			MaxPackageSize:    i.spec.MaxPackageSize,
			MaxSendBufferSize: i.spec.MaxSendBufferSize,
		}

		if i.tlsConfig != nil {
			i.acceptTLS(fd, opt)
			continue
		}

		conn := netio.New(i.loop, fd, i.spec.Address, peerAddrString(fd), opt)
		if i.spec.Callbacks != nil && i.spec.Callbacks.OnConnect != nil {
			i.spec.Callbacks.OnConnect(conn)
		}
	}
}

func (i *Instance) acceptTLS(fd int, opt netio.Options) {
	// crypto/tls operates on a net.Conn, not a raw fd; os.NewFile bridges
	// the accepted socket into one without copying (§ SPEC_FULL TLS note).
	f := os.NewFile(uintptr(fd), "conn")
	rawConn, err := net.FileConn(f)
	f.Close()
	if err != nil {
		unix.Close(fd)
		return
	}
	tlsConn := tls.Server(rawConn, i.tlsConfig)
	if err := tlsConn.Handshake(); err != nil {
		tlsConn.Close()
		return
	}
	conn := netio.NewTLSConn(i.loop, tlsConn, opt)
	if i.spec.Callbacks != nil && i.spec.Callbacks.OnConnect != nil {
		i.spec.Callbacks.OnConnect(conn)
	}
}

func peerAddrString(fd int) string {
	sa, err := unix.Getpeername(fd)
	if err != nil {
		return ""
	}
	switch v := sa.(type) {
	case *unix.SockaddrInet4:
		return fmt.Sprintf("%d.%d.%d.%d:%d", v.Addr[0], v.Addr[1], v.Addr[2], v.Addr[3], v.Port)
	case *unix.SockaddrUnix:
		return v.Name
	default:
		return ""
	}
}

const maxUDPDatagram = 64 * 1024

func (i *Instance) onUDPReadable() {
	buf := make([]byte, maxUDPDatagram)
	for {
		n, from, err := unix.Recvfrom(i.udpFD, buf, 0)
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return
		}
		if err != nil {
			return
		}
		payload := make([]byte, n)
		copy(payload, buf[:n])

		conn := netio.NewUDPConn(i.udpFD, from, i.spec.Address, udpPeerString(from), n)

		if i.spec.Protocol != nil {
			length := i.spec.Protocol.Input(payload, conn)
			if length <= 0 || length > len(payload) {
				continue
			}
			msg, err := i.spec.Protocol.Decode(payload[:length], conn)
			if err != nil {
				continue
			}
			if i.spec.Callbacks != nil && i.spec.Callbacks.OnMessage != nil {
				i.spec.Callbacks.OnMessage(conn, msg)
			}
			continue
		}
		if i.spec.Callbacks != nil && i.spec.Callbacks.OnMessage != nil {
			i.spec.Callbacks.OnMessage(conn, payload)
		}
	}
}

func udpPeerString(sa unix.Sockaddr) string {
	if v, ok := sa.(*unix.SockaddrInet4); ok {
		return fmt.Sprintf("%d.%d.%d.%d:%d", v.Addr[0], v.Addr[1], v.Addr[2], v.Addr[3], v.Port)
	}
	return ""
}

// Close tears down the listening socket (but not already-accepted
// connections, which the worker's own shutdown path drains).
func (i *Instance) Close() error {
	if i.listenFD >= 0 {
		i.loop.OffReadable(uintptr(i.listenFD))
		return unix.Close(i.listenFD)
	}
	if i.udpFD >= 0 {
		i.loop.OffReadable(uintptr(i.udpFD))
		return unix.Close(i.udpFD)
	}
	return nil
}
