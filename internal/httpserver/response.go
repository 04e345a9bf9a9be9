// File: internal/httpserver/response.go
// Package httpserver
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package httpserver

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// statusText holds the reason phrases for the handful of codes this codec
// actually emits.
var statusText = map[int]string{
	200: "OK",
	206: "Partial Content",
	301: "Moved Permanently",
	302: "Found",
	304: "Not Modified",
	400: "Bad Request",
	403: "Forbidden",
	404: "Not Found",
	413: "Payload Too Large",
	500: "Internal Server Error",
}

func reasonFor(code int) string {
	if r, ok := statusText[code]; ok {
		return r
	}
	return "Unknown"
}

// FileBody describes a file-backed response (§4.3 "Response"): exactly one
// of Response.Body or Response.File is ever non-empty.
type FileBody struct {
	Path   string
	Offset int64
	Length int64
}

// Response is the codec's outbound message (§4.3 "HTTP Response").
type Response struct {
	StatusCode int
	Reason     string
	Header     http.Header
	Body       []byte
	File       *FileBody

	// Chunked, when true, wraps Body in chunked transfer-encoding framing
	// instead of emitting Content-Length.
	Chunked bool
}

// NewResponse builds a Response with the canonical default headers (§4.5):
// Server, Connection: keep-alive, Content-Type: text/html;charset=utf-8.
func NewResponse(status int, body []byte) *Response {
	return &Response{
		StatusCode: status,
		Reason:     reasonFor(status),
		Header: http.Header{
			"Server":       {"Localzet-Server"},
			"Connection":   {"keep-alive"},
			"Content-Type": {"text/html;charset=utf-8"},
		},
		Body: body,
	}
}

// writeError builds a small plain-text error Response for protocol-level
// rejections (§7 "Protocol/parse errors").
func writeError(status int, reason string) *Response {
	body := []byte(fmt.Sprintf("%d %s\n", status, reason))
	resp := NewResponse(status, body)
	resp.Reason = reason
	resp.Header.Set("Content-Type", "text/plain;charset=utf-8")
	resp.Header.Set("Connection", "close")
	return resp
}

// Encode serializes the status line, headers, and (non-chunked) body into
// wire bytes. For a Chunked response it writes only the status line and
// headers (with Transfer-Encoding: chunked); the body goes out through
// EncodeChunk. File is not read here; file responses are sent by ServeFile.
// An explicitly set Content-Length header is kept as is.
func (r *Response) Encode() []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "HTTP/1.1 %d %s\r\n", r.StatusCode, r.Reason)

	header := r.Header.Clone()
	if header.Get("Server") == "" {
		header.Set("Server", "Localzet-Server")
	}
	if header.Get("Connection") == "" {
		header.Set("Connection", "keep-alive")
	}
	if header.Get("Content-Type") == "" {
		header.Set("Content-Type", "text/html;charset=utf-8")
	}
	if r.Chunked {
		header.Set("Transfer-Encoding", "chunked")
		header.Del("Content-Length")
	} else if header.Get("Transfer-Encoding") == "" && header.Get("Content-Length") == "" {
		header.Set("Content-Length", strconv.Itoa(len(r.Body)))
	}

	for name, values := range header {
		for _, v := range values {
			fmt.Fprintf(&buf, "%s: %s\r\n", name, v)
		}
	}
	buf.WriteString("\r\n")
	if !r.Chunked {
		buf.Write(r.Body)
	}
	return buf.Bytes()
}

// EncodeChunk wraps one chunked-transfer body fragment: hex(len)\r\nbody\r\n
// (§4.5). A zero-length chunk is the terminator.
func EncodeChunk(data []byte) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%x\r\n", len(data))
	buf.Write(data)
	buf.WriteString("\r\n")
	return buf.Bytes()
}

func httpTimeHeader(t time.Time) string {
	return t.UTC().Format(http.TimeFormat)
}
