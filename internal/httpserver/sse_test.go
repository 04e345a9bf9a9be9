// File: internal/httpserver/sse_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package httpserver

import (
	"strings"
	"testing"
)

func TestEncodeSSE(t *testing.T) {
	out := string(EncodeSSE(SSEEvent{Event: "update", Data: "line1\nline2", ID: "42", Retry: 3000}))
	want := "event: update\ndata: line1\ndata: line2\nid: 42\nretry: 3000\n\n"
	if out != want {
		t.Errorf("EncodeSSE = %q, want %q", out, want)
	}
}

func TestEncodeSSE_MinimalFields(t *testing.T) {
	out := string(EncodeSSE(SSEEvent{Data: "hi"}))
	if !strings.HasPrefix(out, "data: hi\n") || !strings.HasSuffix(out, "\n\n") {
		t.Errorf("EncodeSSE minimal = %q", out)
	}
}
