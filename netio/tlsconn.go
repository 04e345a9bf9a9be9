// File: netio/tlsconn.go
// Package netio
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// TLSConn adapts a *tls.Conn to the same Connection contract as the raw-fd
// Conn. TLS record decryption needs its own buffered reads ahead of
// whatever the kernel reports readable, so unlike Conn this does not
// register with the reactor directly: one blocking-read goroutine per
// connection feeds decrypted bytes back onto the worker's event loop via
// Loop.Queue, keeping every callback invocation on the loop's single
// goroutine as the rest of the package guarantees. Grounded on the
// teacher's reactor/-registration pattern (internal/evloop) for how
// callbacks re-enter the loop, adapted here since the teacher never wired
// TLS into its transport layer.

package netio

import (
	"crypto/tls"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/localzet/webcore/api"
	"github.com/localzet/webcore/internal/evloop"
)

// TLSConn wraps a handshake-complete *tls.Conn.
type TLSConn struct {
	id   uint64
	conn *tls.Conn
	loop *evloop.Loop

	protocol  api.Protocol
	callbacks *api.Callbacks
	ctx       *api.ScratchContext

	maxPackageSize    int
	maxSendBufferSize int

	mu         sync.Mutex
	recvBuf    []byte
	sendMu     sync.Mutex
	recvPaused atomic.Bool

	status atomic.Int32

	bytesRead    atomic.Int64
	bytesWritten atomic.Int64

	localAddr  string
	remoteAddr string
}

// NewTLSConn starts the background read pump and registers the connection
// as ESTABLISHED. conn must already have completed its handshake.
func NewTLSConn(loop *evloop.Loop, conn *tls.Conn, opt Options) *TLSConn {
	if opt.MaxPackageSize == 0 {
		opt.MaxPackageSize = defaultMaxPackageSize
	}
	if opt.MaxSendBufferSize == 0 {
		opt.MaxSendBufferSize = defaultMaxSendBufSize
	}
	c := &TLSConn{
		id:                atomic.AddUint64(&nextConnID, 1),
		conn:              conn,
		loop:              loop,
		protocol:          opt.Protocol,
		callbacks:         opt.Callbacks,
		ctx:               api.NewScratchContext(),
		maxPackageSize:    opt.MaxPackageSize,
		maxSendBufferSize: opt.MaxSendBufferSize,
		localAddr:         conn.LocalAddr().String(),
		remoteAddr:        conn.RemoteAddr().String(),
	}
	c.status.Store(int32(api.StatusEstablished))
	go c.readPump()
	return c
}

func (c *TLSConn) ID() uint64                   { return c.id }
func (c *TLSConn) Context() *api.ScratchContext { return c.ctx }
func (c *TLSConn) Status() api.Status           { return api.Status(c.status.Load()) }
func (c *TLSConn) LocalAddr() string            { return c.localAddr }
func (c *TLSConn) RemoteAddr() string           { return c.remoteAddr }

func (c *TLSConn) Stats() api.ConnStats {
	c.mu.Lock()
	rq := len(c.recvBuf)
	c.mu.Unlock()
	return api.ConnStats{
		BytesRead:    c.bytesRead.Load(),
		BytesWritten: c.bytesWritten.Load(),
		RecvQueued:   rq,
	}
}

func (c *TLSConn) readPump() {
	buf := make([]byte, readChunkSize)
	for {
		n, err := c.conn.Read(buf)
		if n > 0 {
			c.bytesRead.Add(int64(n))
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			c.mu.Lock()
			c.recvBuf = append(c.recvBuf, chunk...)
			c.mu.Unlock()
			c.loop.Queue(c.drainProtocol)
		}
		if err != nil {
			c.loop.Queue(func() { c.teardown(api.StatusClosed) })
			return
		}
		if c.recvPaused.Load() {
			return // resumed externally triggers a fresh readPump via ResumeRecv
		}
	}
}

func (c *TLSConn) drainProtocol() {
	if c.protocol == nil || c.recvPaused.Load() {
		return
	}
	for {
		c.mu.Lock()
		buf := c.recvBuf
		c.mu.Unlock()
		if len(buf) == 0 {
			return
		}
		n := c.protocol.Input(buf, c)
		if n < 0 {
			c.reportError(api.ErrCodeProtocolError, fmt.Errorf("protocol rejected input"))
			c.teardown(api.StatusClosed)
			return
		}
		if n == 0 || n > len(buf) {
			return
		}
		if n > c.maxPackageSize {
			c.reportError(api.ErrCodeProtocolError, fmt.Errorf("package exceeds maxPackageSize"))
			c.teardown(api.StatusClosed)
			return
		}
		msg, err := c.protocol.Decode(buf[:n], c)
		c.ConsumeRecvBuffer(n)
		if err != nil {
			c.reportError(api.ErrCodeProtocolError, err)
			c.teardown(api.StatusClosed)
			return
		}
		if msg != nil && c.callbacks != nil && c.callbacks.OnMessage != nil {
			c.callbacks.OnMessage(c, msg)
		}
	}
}

func (c *TLSConn) ConsumeRecvBuffer(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n >= len(c.recvBuf) {
		c.recvBuf = c.recvBuf[:0]
		return
	}
	copy(c.recvBuf, c.recvBuf[n:])
	c.recvBuf = c.recvBuf[:len(c.recvBuf)-n]
}

func (c *TLSConn) PauseRecv()  { c.recvPaused.Store(true) }
func (c *TLSConn) ResumeRecv() {
	if c.recvPaused.CompareAndSwap(true, false) {
		go c.readPump()
		c.loop.Queue(c.drainProtocol)
	}
}

// Send encodes (unless raw) and writes synchronously; tls.Conn.Write
// already buffers/flushes a full record per call, so there is no separate
// outbound queue to drain on writability the way the raw-fd Conn needs.
func (c *TLSConn) Send(data []byte, raw bool) (bool, error) {
	if c.Status() != api.StatusEstablished {
		return false, api.ErrClosed
	}
	payload := data
	if !raw && c.protocol != nil {
		encoded, err := c.protocol.Encode(data, c)
		if err != nil {
			c.reportError(api.ErrCodeSendFail, err)
			return false, err
		}
		if len(encoded) == 0 {
			return true, nil
		}
		payload = encoded
	}
	c.sendMu.Lock()
	n, err := c.conn.Write(payload)
	c.sendMu.Unlock()
	if n > 0 {
		c.bytesWritten.Add(int64(n))
	}
	if err != nil {
		c.reportError(api.ErrCodeSendFail, err)
		return false, err
	}
	return true, nil
}

func (c *TLSConn) Close(data []byte, graceful bool) error {
	if c.Status() == api.StatusClosed {
		return nil
	}
	if len(data) > 0 {
		_, _ = c.Send(data, true)
	}
	c.teardown(api.StatusClosed)
	return nil
}

func (c *TLSConn) teardown(final api.Status) {
	if api.Status(c.status.Swap(int32(final))) == api.StatusClosed {
		return
	}
	c.conn.Close()
	if c.callbacks != nil && c.callbacks.OnClose != nil {
		c.callbacks.OnClose(c)
	}
}

func (c *TLSConn) reportError(code api.ErrorCode, err error) {
	if c.callbacks != nil && c.callbacks.OnError != nil {
		c.callbacks.OnError(c, api.NewCallbackError(code, err.Error(), err))
	}
}

var _ api.Connection = (*TLSConn)(nil)
