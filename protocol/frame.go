// File: protocol/frame.go
// Package protocol
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Frame is the length-prefixed built-in protocol (§4.4): a 4-byte
// big-endian total length covering the header itself precedes the
// payload. Grounded on the teacher's protocol/frame_codec.go framing
// math (u32be length word), generalized from WebSocket-specific framing
// to the spec's plain application-level Frame protocol.

package protocol

import (
	"encoding/binary"

	"github.com/localzet/webcore/api"
)

const frameHeaderLen = 4

// Frame implements api.Protocol for u32be length-prefixed messages. The
// length field counts the header itself, so the minimum valid frame is 4.
type Frame struct{}

// NewFrame constructs a Frame protocol instance.
func NewFrame() *Frame { return &Frame{} }

// Input reports the total frame length once the 4-byte header is buffered.
func (Frame) Input(buf []byte, conn api.Connection) int {
	if len(buf) < frameHeaderLen {
		return 0
	}
	return int(binary.BigEndian.Uint32(buf[:frameHeaderLen]))
}

// Decode drops the 4-byte length header and returns the payload.
func (Frame) Decode(buf []byte, conn api.Connection) (any, error) {
	if len(buf) < frameHeaderLen {
		return nil, api.ErrInvalidArgument
	}
	out := make([]byte, len(buf)-frameHeaderLen)
	copy(out, buf[frameHeaderLen:])
	return out, nil
}

// Encode prepends a u32be(4+len(data)) header to data.
func (Frame) Encode(msg any, conn api.Connection) ([]byte, error) {
	var payload []byte
	switch v := msg.(type) {
	case []byte:
		payload = v
	case string:
		payload = []byte(v)
	default:
		return nil, api.ErrInvalidArgument
	}
	out := make([]byte, frameHeaderLen+len(payload))
	binary.BigEndian.PutUint32(out[:frameHeaderLen], uint32(frameHeaderLen+len(payload)))
	copy(out[frameHeaderLen:], payload)
	return out, nil
}

var _ api.Protocol = (*Frame)(nil)
