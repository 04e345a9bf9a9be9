// File: internal/httpserver/sse.go
// Package httpserver — Server-Sent Events formatter (§4.5).
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package httpserver

import (
	"bytes"
	"fmt"
	"strings"
)

// SSEEvent is one Server-Sent Events message.
type SSEEvent struct {
	Event string
	Data  string
	ID    string
	Retry int // milliseconds; 0 means omit
}

// EncodeSSE formats an SSEEvent per the spec: multi-line Data becomes
// multiple `data:` lines, terminated by a blank line.
func EncodeSSE(ev SSEEvent) []byte {
	var buf bytes.Buffer
	if ev.Event != "" {
		fmt.Fprintf(&buf, "event: %s\n", ev.Event)
	}
	for _, line := range strings.Split(ev.Data, "\n") {
		fmt.Fprintf(&buf, "data: %s\n", line)
	}
	if ev.ID != "" {
		fmt.Fprintf(&buf, "id: %s\n", ev.ID)
	}
	if ev.Retry > 0 {
		fmt.Fprintf(&buf, "retry: %d\n", ev.Retry)
	}
	buf.WriteString("\n")
	return buf.Bytes()
}
