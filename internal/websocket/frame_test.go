// File: internal/websocket/frame_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package websocket

import (
	"bytes"
	"testing"
)

func maskPayload(payload []byte, key [4]byte) []byte {
	out := make([]byte, len(payload))
	copy(out, payload)
	unmask(out, key)
	return out
}

func buildClientFrame(opcode byte, payload []byte, fin bool) []byte {
	key := [4]byte{0x11, 0x22, 0x33, 0x44}
	masked := maskPayload(payload, key)

	var hdr []byte
	b0 := opcode
	if fin {
		b0 |= finBit
	}
	hdr = append(hdr, b0)

	n := len(payload)
	switch {
	case n <= 125:
		hdr = append(hdr, byte(n)|maskBit)
	case n <= 0xFFFF:
		hdr = append(hdr, 126|maskBit, byte(n>>8), byte(n))
	default:
		t := make([]byte, 8)
		for i := 0; i < 8; i++ {
			t[i] = byte(n >> uint(56-8*i))
		}
		hdr = append(hdr, append([]byte{127 | maskBit}, t...)...)
	}
	hdr = append(hdr, key[:]...)
	return append(hdr, masked...)
}

func TestParseFrame_Basic(t *testing.T) {
	payload := []byte("hello")
	buf := buildClientFrame(OpText, payload, true)

	f, n, err := ParseFrame(buf, 1<<20)
	if err != nil {
		t.Fatalf("ParseFrame: %v", err)
	}
	if n != len(buf) {
		t.Errorf("consumed = %d, want %d", n, len(buf))
	}
	if !f.Fin || f.Opcode != OpText {
		t.Errorf("fin/opcode = %v/%x", f.Fin, f.Opcode)
	}
	if !bytes.Equal(f.Payload, payload) {
		t.Errorf("payload = %q, want %q", f.Payload, payload)
	}
}

func TestParseFrame_Incomplete(t *testing.T) {
	buf := buildClientFrame(OpText, []byte("hello"), true)
	f, n, err := ParseFrame(buf[:4], 1<<20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f != nil || n != 0 {
		t.Errorf("expected incomplete, got frame=%v n=%d", f, n)
	}
}

func TestParseFrame_RejectsUnmasked(t *testing.T) {
	buf := []byte{finBit | OpText, 0x05, 'h', 'e', 'l', 'l', 'o'}
	_, _, err := ParseFrame(buf, 1<<20)
	if err != ErrFrameUnmasked {
		t.Errorf("err = %v, want ErrFrameUnmasked", err)
	}
}

func TestParseFrame_TooLarge(t *testing.T) {
	buf := buildClientFrame(OpBinary, bytes.Repeat([]byte{0x01}, 200), true)
	_, _, err := ParseFrame(buf, 10)
	if err != ErrFrameTooLarge {
		t.Errorf("err = %v, want ErrFrameTooLarge", err)
	}
}

func TestEncodeFrame_Unmasked(t *testing.T) {
	payload := []byte("world")
	out := EncodeFrame(OpBinary, payload)
	if out[0] != finBit|OpBinary {
		t.Errorf("first byte = %x", out[0])
	}
	if out[1]&maskBit != 0 {
		t.Errorf("server frame must not set mask bit")
	}
	if int(out[1]&0x7F) != len(payload) {
		t.Errorf("length byte = %d, want %d", out[1]&0x7F, len(payload))
	}
	if !bytes.Equal(out[2:], payload) {
		t.Errorf("payload mismatch")
	}
}

func TestPeekFrameLen_MatchesParseFrame(t *testing.T) {
	buf := buildClientFrame(OpText, bytes.Repeat([]byte{0x42}, 300), true)
	n, err := PeekFrameLen(buf, 1<<20)
	if err != nil {
		t.Fatalf("PeekFrameLen: %v", err)
	}
	_, n2, err := ParseFrame(buf, 1<<20)
	if err != nil {
		t.Fatalf("ParseFrame: %v", err)
	}
	if n != n2 {
		t.Errorf("PeekFrameLen = %d, ParseFrame consumed = %d", n, n2)
	}
}
