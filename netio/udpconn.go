// File: netio/udpconn.go
// Package netio
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// UDPConn is the short-lived per-datagram Connection the spec calls for
// (§4.3: "UDP is simpler: no buffers; each datagram goes through
// input/decode once"). One value is constructed per received datagram and
// discarded after the handler returns.

package netio

import (
	"sync/atomic"

	"golang.org/x/sys/unix"

	"github.com/localzet/webcore/api"
)

// UDPConn wraps one inbound datagram and the listening socket needed to
// reply to its sender.
type UDPConn struct {
	id         uint64
	fd         int
	peer       unix.Sockaddr
	localAddr  string
	remoteAddr string
	ctx        *api.ScratchContext
	closed     bool

	bytesRead    int64
	bytesWritten int64
}

// NewUDPConn constructs the per-datagram connection used for one onMessage
// dispatch.
func NewUDPConn(fd int, peer unix.Sockaddr, localAddr, remoteAddr string, payloadLen int) *UDPConn {
	return &UDPConn{
		id:         atomic.AddUint64(&nextConnID, 1),
		fd:         fd,
		peer:       peer,
		localAddr:  localAddr,
		remoteAddr: remoteAddr,
		ctx:        api.NewScratchContext(),
		bytesRead:  int64(payloadLen),
	}
}

func (c *UDPConn) ID() uint64                   { return c.id }
func (c *UDPConn) Context() *api.ScratchContext { return c.ctx }
func (c *UDPConn) LocalAddr() string            { return c.localAddr }
func (c *UDPConn) RemoteAddr() string           { return c.remoteAddr }
func (c *UDPConn) PauseRecv()                   {}
func (c *UDPConn) ResumeRecv()                  {}
func (c *UDPConn) ConsumeRecvBuffer(int)        {}

func (c *UDPConn) Status() api.Status {
	if c.closed {
		return api.StatusClosed
	}
	return api.StatusEstablished
}

func (c *UDPConn) Stats() api.ConnStats {
	return api.ConnStats{BytesRead: c.bytesRead, BytesWritten: c.bytesWritten}
}

// Send performs a single sendto to the datagram's sender.
func (c *UDPConn) Send(data []byte, raw bool) (bool, error) {
	if c.closed {
		return false, api.ErrClosed
	}
	if err := unix.Sendto(c.fd, data, 0, c.peer); err != nil {
		return false, err
	}
	c.bytesWritten += int64(len(data))
	return true, nil
}

// Close releases nothing, since a UDPConn has no per-peer socket: it sends
// data (if any) to the peer and marks the UDPConn closed, so later Sends
// return ErrClosed.
func (c *UDPConn) Close(data []byte, graceful bool) error {
	if len(data) > 0 {
		_, _ = c.Send(data, true)
	}
	c.closed = true
	return nil
}

var _ api.Connection = (*UDPConn)(nil)
