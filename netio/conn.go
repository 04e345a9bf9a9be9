// File: netio/conn.go
// Package netio implements Connection (C3): a non-blocking socket wrapper
// with read/write buffers, high/low-water marks, buffer-full/drain
// callbacks, a status machine, and statistics, driven by the worker's
// evloop.Loop reactor.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Grounded on the teacher's internal/transport/transport_linux.go for the
// non-blocking-socket/golang.org/x/sys/unix idiom (TCP_NODELAY, raw fd
// read/write), generalized from transport.go's batch Send/Recv contract
// into the spec's single-stream read/write-buffer model (§4.3).

package netio

import (
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"

	"github.com/localzet/webcore/api"
	"github.com/localzet/webcore/internal/evloop"
)

const (
	defaultMaxPackageSize   = 10 << 20 // 10 MB (§4.3)
	defaultMaxSendBufSize   = 1 << 20  // 1 MB (§4.3)
	readChunkSize           = 64 << 10
)

var nextConnID uint64

// Conn is a non-blocking TCP/Unix connection wrapping a raw file descriptor.
type Conn struct {
	id   uint64
	fd   int
	loop *evloop.Loop

	protocol  api.Protocol
	callbacks *api.Callbacks
	pool      api.BufferPool
	ctx       *api.ScratchContext

	maxPackageSize    int
	maxSendBufferSize int

	mu          sync.Mutex
	recvBuf     []byte
	sendBuf     []byte
	bufferFull  bool
	recvPaused  bool

	status atomic.Int32

	bytesRead    atomic.Int64
	bytesWritten atomic.Int64

	localAddr  string
	remoteAddr string
}

// Options configures a new Conn.
type Options struct {
	Protocol          api.Protocol
	Callbacks         *api.Callbacks
	Pool              api.BufferPool
	MaxPackageSize    int
	MaxSendBufferSize int
}

// New wraps fd (already non-blocking, already accepted/connected) as a Conn
// registered with loop for read/write readiness.
func New(loop *evloop.Loop, fd int, localAddr, remoteAddr string, opt Options) *Conn {
	if opt.MaxPackageSize == 0 {
		opt.MaxPackageSize = defaultMaxPackageSize
	}
	if opt.MaxSendBufferSize == 0 {
		opt.MaxSendBufferSize = defaultMaxSendBufSize
	}
	c := &Conn{
		id:                atomic.AddUint64(&nextConnID, 1),
		fd:                fd,
		loop:              loop,
		protocol:          opt.Protocol,
		callbacks:         opt.Callbacks,
		pool:              opt.Pool,
		ctx:               api.NewScratchContext(),
		maxPackageSize:    opt.MaxPackageSize,
		maxSendBufferSize: opt.MaxSendBufferSize,
		localAddr:         localAddr,
		remoteAddr:        remoteAddr,
	}
	c.status.Store(int32(api.StatusEstablished))
	loop.OnReadable(uintptr(fd), c.onReadable)
	return c
}

func (c *Conn) ID() uint64                  { return c.id }
func (c *Conn) Context() *api.ScratchContext { return c.ctx }
func (c *Conn) Status() api.Status          { return api.Status(c.status.Load()) }
func (c *Conn) LocalAddr() string           { return c.localAddr }
func (c *Conn) RemoteAddr() string          { return c.remoteAddr }

func (c *Conn) Stats() api.ConnStats {
	c.mu.Lock()
	rq, sq := len(c.recvBuf), len(c.sendBuf)
	c.mu.Unlock()
	return api.ConnStats{
		BytesRead:    c.bytesRead.Load(),
		BytesWritten: c.bytesWritten.Load(),
		RecvQueued:   rq,
		SendQueued:   sq,
	}
}

// onReadable drains available bytes from the socket into the receive
// buffer, then repeatedly calls protocol.Input/Decode per the receive path
// contract (§4.3).
func (c *Conn) onReadable() {
	if c.Status() == api.StatusClosed {
		return
	}
	buf := make([]byte, readChunkSize)
	for {
		n, err := unix.Read(c.fd, buf)
		if n > 0 {
			c.bytesRead.Add(int64(n))
			c.mu.Lock()
			c.recvBuf = append(c.recvBuf, buf[:n]...)
			c.mu.Unlock()
		}
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			break
		}
		if err != nil {
			c.fail(api.ErrCodeRecvFail, err)
			return
		}
		if n == 0 {
			c.teardown(api.StatusClosed)
			return
		}
		if n < len(buf) {
			break
		}
	}
	c.drainProtocol()
}

func (c *Conn) drainProtocol() {
	if c.protocol == nil || c.recvPaused {
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
			c.fail(api.ErrCodeProtocolError, fmt.Errorf("protocol rejected input"))
			return
		}
		if n == 0 {
			return
		}
		// Checked before the "need more bytes" wait below: a declared
		// length over the limit must be rejected immediately, not once
		// recvBuf has actually grown to n bytes (§4.3).
		if c.maxPackageSize > 0 && n > c.maxPackageSize {
			c.fail(api.ErrCodeProtocolError, fmt.Errorf("package exceeds maxPackageSize (%d > %d)", n, c.maxPackageSize))
			return
		}
		if n > len(buf) {
			return
		}
		msg, err := c.protocol.Decode(buf[:n], c)
		c.ConsumeRecvBuffer(n)
		if err != nil {
			c.fail(api.ErrCodeProtocolError, err)
			return
		}
		if msg != nil && c.callbacks != nil && c.callbacks.OnMessage != nil {
			c.callbacks.OnMessage(c, msg)
		}
		if c.recvPaused {
			return
		}
	}
}

// ConsumeRecvBuffer drops n already-processed bytes from the inbound buffer.
func (c *Conn) ConsumeRecvBuffer(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n >= len(c.recvBuf) {
		c.recvBuf = c.recvBuf[:0]
		return
	}
	copy(c.recvBuf, c.recvBuf[n:])
	c.recvBuf = c.recvBuf[:len(c.recvBuf)-n]
}

// PauseRecv / ResumeRecv implement read-side backpressure (§5).
func (c *Conn) PauseRecv() {
	c.mu.Lock()
	c.recvPaused = true
	c.mu.Unlock()
	c.loop.OffReadable(uintptr(c.fd))
}

func (c *Conn) ResumeRecv() {
	c.mu.Lock()
	c.recvPaused = false
	c.mu.Unlock()
	c.loop.OnReadable(uintptr(c.fd), c.onReadable)
	c.drainProtocol()
}

// Send implements the send path (§4.4): encode (unless raw), attempt a
// non-blocking write, buffer the remainder and arm the writable watcher on
// partial write/EAGAIN, fire onBufferFull/onBufferDrain at the edges.
func (c *Conn) Send(data []byte, raw bool) (bool, error) {
	if c.Status() == api.StatusClosed || c.Status() == api.StatusClosing {
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
			return true, nil // deferred/buffered by the protocol itself
		}
		payload = encoded
	}

	c.mu.Lock()
	hadPending := len(c.sendBuf) > 0
	c.mu.Unlock()

	if !hadPending {
		n, err := unix.Write(c.fd, payload)
		if err != nil && err != unix.EAGAIN && err != unix.EWOULDBLOCK {
			c.reportError(api.ErrCodeSendFail, err)
			return false, err
		}
		if n > 0 {
			c.bytesWritten.Add(int64(n))
		}
		if n == len(payload) {
			return true, nil
		}
		payload = payload[max(n, 0):]
	}

	c.mu.Lock()
	c.sendBuf = append(c.sendBuf, payload...)
	over := len(c.sendBuf) > c.maxSendBufferSize
	fireFull := over && !c.bufferFull
	if fireFull {
		c.bufferFull = true
	}
	c.mu.Unlock()

	c.loop.OnWritable(uintptr(c.fd), c.onWritable)

	if fireFull && c.callbacks != nil && c.callbacks.OnBufferFull != nil {
		c.callbacks.OnBufferFull(c)
	}
	return true, nil
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func (c *Conn) onWritable() {
	c.mu.Lock()
	buf := c.sendBuf
	c.mu.Unlock()
	if len(buf) == 0 {
		c.loop.OffWritable(uintptr(c.fd))
		return
	}
	n, err := unix.Write(c.fd, buf)
	if n > 0 {
		c.bytesWritten.Add(int64(n))
	}
	if err != nil && err != unix.EAGAIN && err != unix.EWOULDBLOCK {
		c.reportError(api.ErrCodeSendFail, err)
		return
	}

	c.mu.Lock()
	c.sendBuf = c.sendBuf[n:]
	drained := len(c.sendBuf) == 0
	wasFull := c.bufferFull
	if drained {
		c.bufferFull = false
	}
	c.mu.Unlock()

	if drained {
		c.loop.OffWritable(uintptr(c.fd))
		if wasFull && c.callbacks != nil && c.callbacks.OnBufferDrain != nil {
			c.callbacks.OnBufferDrain(c)
		}
		if c.Status() == api.StatusClosing {
			c.teardown(api.StatusClosed)
		}
	}
}

// Close enqueues an optional final payload, then tears the connection down.
// graceful=true drains pending output before closing the socket.
func (c *Conn) Close(data []byte, graceful bool) error {
	if c.Status() == api.StatusClosed {
		return nil
	}
	if len(data) > 0 {
		_, _ = c.Send(data, true)
	}
	c.status.Store(int32(api.StatusClosing))
	if !graceful {
		c.teardown(api.StatusClosed)
		return nil
	}
	c.mu.Lock()
	pending := len(c.sendBuf) > 0
	c.mu.Unlock()
	if !pending {
		c.teardown(api.StatusClosed)
	}
	// else: onWritable drains the buffer and tears the connection down
	// once sendBuf is empty.
	return nil
}

func (c *Conn) teardown(final api.Status) {
	if api.Status(c.status.Swap(int32(final))) == api.StatusClosed {
		return
	}
	c.loop.OffReadable(uintptr(c.fd))
	c.loop.OffWritable(uintptr(c.fd))
	unix.Close(c.fd)
	if c.callbacks != nil && c.callbacks.OnClose != nil {
		c.callbacks.OnClose(c)
	}
}

func (c *Conn) fail(code api.ErrorCode, err error) {
	c.reportError(code, err)
	c.teardown(api.StatusClosed)
}

func (c *Conn) reportError(code api.ErrorCode, err error) {
	if c.callbacks != nil && c.callbacks.OnError != nil {
		c.callbacks.OnError(c, api.NewCallbackError(code, err.Error(), err))
	}
}

var _ api.Connection = (*Conn)(nil)
