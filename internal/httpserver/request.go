// File: internal/httpserver/request.go
// Package httpserver implements the HTTP/1.1 codec (C5): Request parsing,
// Response building, file streaming with backpressure, Server-Sent Events,
// and the mime.types table.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Grounded on the teacher's protocol.Protocol shape (Input/Decode/Encode)
// for the overall codec skeleton — the teacher has no HTTP codec of its
// own, so the request/response model here is built fresh in that same
// three-function idiom, using net/http's textproto-based header parser
// (http.ReadRequest) rather than hand-rolling one, matching §4.5's
// "case-insensitive, preserve order and multi-values" header requirement.

package httpserver

import (
	"bufio"
	"bytes"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/localzet/webcore/api"
)

// Request is the parsed view over one inbound HTTP/1.1 message (§4.3
// "HTTP Request"). Method/URI/headers come straight from net/http's
// parser; Body is resolved lazily on first access per §4.5 ("body is
// parsed lazily on first access of POST / uploaded files").
type Request struct {
	Method     string
	URI        string
	Path       string
	Query      url.Values
	Proto      string
	Header     http.Header
	HostHeader string // net/http.ReadRequest extracts Host out of Header, so it's kept separately

	// ContentLength and TransferEncoding mirror the same-named *http.Request
	// fields, which http.ReadRequest strips out of Header once parsed.
	ContentLength    int64
	TransferEncoding []string

	Conn api.Connection

	// Session is attached by user code (or session middleware) once a
	// SessionStore lookup has resolved the request's session id; nil until
	// then (§4.7).
	Session any

	// TLSFingerprint is populated best-effort when the raw buffer carries a
	// TLS ClientHello prefix; its absence is never an error (§4.5).
	TLSFingerprint string

	rawBody    []byte
	bodyOnce   sync.Once
	parsedBody []byte
}

// parseRequest builds a Request from the header block in raw[:headEnd] and
// attaches body (the remaining, already-buffered bytes) for lazy access.
func parseRequest(raw []byte, headEnd int, conn api.Connection) (*Request, error) {
	httpReq, err := http.ReadRequest(bufio.NewReader(bytes.NewReader(raw[:headEnd])))
	if err != nil {
		return nil, err
	}
	req := &Request{
		Method:           httpReq.Method,
		URI:              httpReq.RequestURI,
		Path:             httpReq.URL.Path,
		Query:            httpReq.URL.Query(),
		Proto:            httpReq.Proto,
		Header:           httpReq.Header,
		HostHeader:       httpReq.Host,
		ContentLength:    httpReq.ContentLength,
		TransferEncoding: httpReq.TransferEncoding,
		Conn:             conn,
		rawBody:          raw[headEnd:],
	}
	return req, nil
}

// Body returns the request body, parsing it from the raw buffer on first
// call (§4.5 lazy body access).
func (r *Request) Body() []byte {
	r.bodyOnce.Do(func() {
		r.parsedBody = append([]byte(nil), r.rawBody...)
	})
	return r.parsedBody
}

// Cookies parses the Cookie header into a name->value map.
func (r *Request) Cookies() map[string]string {
	out := make(map[string]string)
	for _, line := range r.Header.Values("Cookie") {
		for _, pair := range strings.Split(line, ";") {
			pair = strings.TrimSpace(pair)
			if pair == "" {
				continue
			}
			name, value, ok := strings.Cut(pair, "=")
			if !ok {
				continue
			}
			out[strings.TrimSpace(name)] = strings.TrimSpace(value)
		}
	}
	return out
}

// Host returns the Host header, which §4.5 requires every HTTP/1.1 request
// to carry.
func (r *Request) Host() string {
	return r.HostHeader
}

// KeepAlive reports whether the connection should stay open after this
// request per HTTP/1.1 default semantics and any explicit Connection header.
func (r *Request) KeepAlive() bool {
	conn := strings.ToLower(r.Header.Get("Connection"))
	if conn == "close" {
		return false
	}
	if conn == "keep-alive" {
		return true
	}
	return r.Proto == "HTTP/1.1"
}

var validMethods = map[string]bool{
	"GET": true, "POST": true, "OPTIONS": true, "HEAD": true,
	"DELETE": true, "PUT": true, "PATCH": true,
}
