// File: protocol/text_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package protocol

import (
	"bytes"
	"testing"
)

func TestText_Input(t *testing.T) {
	cases := []struct {
		name string
		buf  []byte
		want int
	}{
		{"empty", nil, 0},
		{"no newline", []byte("hello"), 0},
		{"one line", []byte("hello\n"), 6},
		{"line plus extra", []byte("hello\nworld"), 6},
		{"crlf", []byte("hello\r\n"), 7},
	}
	p := NewText()
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := p.Input(c.buf, nil); got != c.want {
				t.Errorf("Input(%q) = %d, want %d", c.buf, got, c.want)
			}
		})
	}
}

func TestText_DecodeEncode(t *testing.T) {
	p := NewText()
	msg, err := p.Decode([]byte("hello\r\n"), nil)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !bytes.Equal(msg.([]byte), []byte("hello")) {
		t.Errorf("Decode = %q, want %q", msg, "hello")
	}

	enc, err := p.Encode([]byte("hello"), nil)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !bytes.Equal(enc, []byte("hello\n")) {
		t.Errorf("Encode = %q, want %q", enc, "hello\n")
	}
}

func TestText_RoundTrip(t *testing.T) {
	p := NewText()
	enc, _ := p.Encode([]byte("hello world"), nil)
	n := p.Input(enc, nil)
	if n != len(enc) {
		t.Fatalf("Input after Encode = %d, want %d", n, len(enc))
	}
	dec, _ := p.Decode(enc[:n], nil)
	if !bytes.Equal(dec.([]byte), []byte("hello world")) {
		t.Errorf("round-trip = %q, want %q", dec, "hello world")
	}
}
