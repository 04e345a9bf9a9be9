// File: internal/httpserver/protocol.go
// Package httpserver
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// HTTPProtocol implements api.Protocol for HTTP/1.1 (§4.5). Input both
// measures frame length AND, on a fatal condition, writes the appropriate
// error response directly via conn.Send before returning a negative length
// — Protocol.Input is handed the Connection precisely so a codec can do
// this without netio needing any HTTP-specific knowledge.

package httpserver

import (
	"bytes"

	"github.com/localzet/webcore/api"
)

const (
	maxHeaderBytes    = 16 << 10 // 16 KiB (§4.5)
	cacheEntryMaxSize = 512      // (§4.5)
	cacheCapacity     = 512      // (§4.5)
)

// HTTPProtocol is the C5 codec: a Protocol plus its mime table and small
// per-listener input-length cache.
type HTTPProtocol struct {
	MimeTable      *MimeTable
	MaxPackageSize int

	cache *lengthCache
}

// NewProtocol constructs an HTTPProtocol with its own mime table and parse
// cache; maxPackageSize caps total request size (headers+body), 0 meaning
// "use the connection's own maxPackageSize enforcement only".
func NewProtocol(maxPackageSize int) *HTTPProtocol {
	return &HTTPProtocol{
		MimeTable:      NewMimeTable(),
		MaxPackageSize: maxPackageSize,
		cache:          newLengthCache(cacheCapacity),
	}
}

func headerEnd(buf []byte) int {
	idx := bytes.Index(buf, []byte("\r\n\r\n"))
	if idx < 0 {
		return -1
	}
	return idx + 4
}

// Input implements api.Protocol (§4.5).
func (p *HTTPProtocol) Input(buf []byte, conn api.Connection) int {
	if len(buf) < cacheEntryMaxSize {
		if n, ok := p.cache.Get(string(buf)); ok {
			return n
		}
	}

	end := headerEnd(buf)
	if end < 0 {
		if len(buf) >= maxHeaderBytes {
			p.reject(conn, 413, "Request Header Too Large")
			return -1
		}
		return 0
	}

	req, err := parseRequest(buf, end, conn)
	if err != nil {
		p.reject(conn, 400, "Bad Request")
		return -1
	}
	if !validMethods[req.Method] {
		p.reject(conn, 400, "Bad Request")
		return -1
	}
	if req.Proto == "HTTP/1.1" && req.Host() == "" {
		p.reject(conn, 400, "Bad Request")
		return -1
	}
	if len(req.TransferEncoding) > 0 {
		p.reject(conn, 400, "Bad Request")
		return -1
	}

	contentLength := 0
	if req.ContentLength > 0 {
		contentLength = int(req.ContentLength)
	}
	total := end + contentLength

	if p.MaxPackageSize > 0 && total > p.MaxPackageSize {
		p.reject(conn, 413, "Payload Too Large")
		return -1
	}
	if len(buf) < total {
		return 0
	}

	if total == len(buf) && total < cacheEntryMaxSize {
		p.cache.Add(string(buf), total)
	}
	return total
}

// Decode implements api.Protocol: re-parses the now-complete buffer into a
// *Request. The header parse is cheap relative to I/O; Input's cache
// absorbs the cost for repeated identical small requests.
func (p *HTTPProtocol) Decode(buf []byte, conn api.Connection) (any, error) {
	end := headerEnd(buf)
	if end < 0 {
		end = len(buf)
	}
	return parseRequest(buf, end, conn)
}

// Encode implements api.Protocol. msg must be *Response; every file-backed
// response (File set) is rejected here — callers send those directly via
// ServeFile instead of routing them through conn.Send/Encode.
func (p *HTTPProtocol) Encode(msg any, conn api.Connection) ([]byte, error) {
	resp, ok := msg.(*Response)
	if !ok {
		return nil, api.ErrInvalidArgument
	}
	if resp.File != nil {
		return nil, api.ErrInvalidArgument
	}
	return resp.Encode(), nil
}

func (p *HTTPProtocol) reject(conn api.Connection, status int, reason string) {
	conn.Send(writeError(status, reason).Encode(), true)
}

var _ api.Protocol = (*HTTPProtocol)(nil)
