// File: internal/websocket/server.go
// Package websocket
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Server implements api.Protocol for server-side WebSocket connections
// (C6): it multiplexes the handshake and the RFC 6455 frame codec behind
// the same three-method capability the Text/Frame protocols use, carrying
// handshake/fragmentation state in the connection's ScratchContext rather
// than in protocol-instance fields, since one Server value is shared by
// every connection on a listener.

package websocket

import (
	"fmt"

	"github.com/localzet/webcore/api"
)

const (
	ctxHandshakeDone = "ws_handshake_done"
	ctxFragBuf       = "ws_frag_buf"
	ctxFragOpcode    = "ws_frag_opcode"
	ctxMaxPackage    = "ws_max_package"

	defaultMaxPackage = 10 << 20 // 10 MB, matches the connection default (§4.3)
)

// Server is the built-in server-side WebSocket protocol.
type Server struct{}

// NewServer constructs a server-side WebSocket protocol instance.
func NewServer() *Server { return &Server{} }

func maxPackage(ctx *api.ScratchContext) int {
	if v, ok := ctx.Get(ctxMaxPackage); ok {
		if n, ok := v.(int); ok {
			return n
		}
	}
	return defaultMaxPackage
}

func handshakeDone(ctx *api.ScratchContext) bool {
	v, ok := ctx.Get(ctxHandshakeDone)
	return ok && v == true
}

// Input returns the byte length of the next decodable unit: the full
// handshake request while the upgrade hasn't completed, else one RFC 6455
// frame.
func (Server) Input(buf []byte, conn api.Connection) int {
	ctx := conn.Context()
	if !handshakeDone(ctx) {
		end := headerEnd(buf)
		if end < 0 {
			if len(buf) > maxHandshakeHeaderBytes {
				return -1
			}
			return 0
		}
		return end
	}
	n, err := PeekFrameLen(buf, maxPackage(ctx))
	if err != nil {
		return -1
	}
	return n
}

// Decode turns the bytes Input delimited into either a handshake Message
// (carrying the 101 response the caller must write) or a data/control
// Message. Fragmented data frames are reassembled across calls using the
// connection's scratch context; Decode returns (nil, nil) for
// intermediate fragments so the caller skips dispatch until FIN.
func (Server) Decode(buf []byte, conn api.Connection) (any, error) {
	ctx := conn.Context()

	if !handshakeDone(ctx) {
		req, _, err := ParseHandshake(buf)
		if err != nil {
			return &Message{Kind: KindClose, Payload: BuildRejectionResponse(err.Error())}, err
		}
		ctx.Set(ctxHandshakeDone, true)
		return &Message{
			Kind:    KindHandshake,
			Payload: []byte(req.Path),
			Accept:  BuildSwitchingProtocolsResponse(req.Accept, nil),
		}, nil
	}

	frame, _, err := ParseFrame(buf, maxPackage(ctx))
	if err != nil {
		return nil, err
	}
	if frame == nil {
		return nil, fmt.Errorf("websocket: decode invoked on an incomplete frame")
	}

	limit := maxPackage(ctx)

	switch frame.Opcode {
	case OpContinuation:
		var acc []byte
		if v, ok := ctx.Get(ctxFragBuf); ok {
			acc = v.([]byte)
		}
		// Total accumulated size across every fragment must stay within
		// the package limit even though each individual frame already
		// passed ParseFrame's single-frame bound (§4.6).
		if len(acc)+len(frame.Payload) > limit {
			ctx.Delete(ctxFragBuf)
			ctx.Delete(ctxFragOpcode)
			return nil, fmt.Errorf("websocket: reassembled message exceeds maxPackageSize (%d)", limit)
		}
		acc = append(acc, frame.Payload...)
		if !frame.Fin {
			ctx.Set(ctxFragBuf, acc)
			return nil, nil
		}
		opcode, _ := ctx.Get(ctxFragOpcode)
		ctx.Delete(ctxFragBuf)
		ctx.Delete(ctxFragOpcode)
		kind := KindBinary
		if opcode == OpText {
			kind = KindText
		}
		return &Message{Kind: kind, Payload: acc}, nil

	case OpText, OpBinary:
		if !frame.Fin {
			if len(frame.Payload) > limit {
				return nil, fmt.Errorf("websocket: reassembled message exceeds maxPackageSize (%d)", limit)
			}
			ctx.Set(ctxFragBuf, append([]byte(nil), frame.Payload...))
			ctx.Set(ctxFragOpcode, frame.Opcode)
			return nil, nil
		}
		kind := KindBinary
		if frame.Opcode == OpText {
			kind = KindText
		}
		return &Message{Kind: kind, Payload: frame.Payload}, nil

	case OpClose:
		return &Message{Kind: KindClose, Payload: frame.Payload}, nil
	case OpPing:
		return &Message{Kind: KindPing, Payload: frame.Payload}, nil
	case OpPong:
		return &Message{Kind: KindPong, Payload: frame.Payload}, nil
	default:
		return nil, fmt.Errorf("websocket: reserved opcode %#x", frame.Opcode)
	}
}

// Encode frames msg as a server-to-client (unmasked) frame. Callers that
// need to echo a control frame (e.g. ping→pong) pass a *Message; plain
// []byte/string payloads default to opcode BLOB (0x81) per the glossary.
func (Server) Encode(msg any, conn api.Connection) ([]byte, error) {
	switch v := msg.(type) {
	case *Message:
		op := OpcodeBlob
		switch v.Kind {
		case KindBinary:
			op = OpBinary
		case KindPing:
			op = OpPing
		case KindPong:
			op = OpPong
		case KindClose:
			op = OpClose
		}
		return EncodeFrame(op, v.Payload), nil
	case []byte:
		return EncodeFrame(OpcodeBlob, v), nil
	case string:
		return EncodeFrame(OpcodeBlob, []byte(v)), nil
	default:
		return nil, api.ErrInvalidArgument
	}
}

var _ api.Protocol = (*Server)(nil)
