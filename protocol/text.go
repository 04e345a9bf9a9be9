// File: protocol/text.go
// Package protocol
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Text is the line-oriented built-in protocol (§4.4): a package is
// everything up to and including the first LF; decode strips the trailing
// CR/LF, encode appends a single LF.

package protocol

import (
	"bytes"

	"github.com/localzet/webcore/api"
)

// Text implements api.Protocol for newline-delimited messages.
type Text struct{}

// NewText constructs a Text protocol instance.
func NewText() *Text { return &Text{} }

// Input returns pos+1 at the first '\n', or 0 if no full line is buffered yet.
func (Text) Input(buf []byte, conn api.Connection) int {
	idx := bytes.IndexByte(buf, '\n')
	if idx < 0 {
		return 0
	}
	return idx + 1
}

// Decode strips the trailing "\r\n" or "\n".
func (Text) Decode(buf []byte, conn api.Connection) (any, error) {
	line := buf
	line = bytes.TrimSuffix(line, []byte("\n"))
	line = bytes.TrimSuffix(line, []byte("\r"))
	out := make([]byte, len(line))
	copy(out, line)
	return out, nil
}

// Encode appends a trailing '\n' to msg.
func (Text) Encode(msg any, conn api.Connection) ([]byte, error) {
	var payload []byte
	switch v := msg.(type) {
	case []byte:
		payload = v
	case string:
		payload = []byte(v)
	default:
		return nil, api.ErrInvalidArgument
	}
	out := make([]byte, 0, len(payload)+1)
	out = append(out, payload...)
	out = append(out, '\n')
	return out, nil
}

var _ api.Protocol = (*Text)(nil)
