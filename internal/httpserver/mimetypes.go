// File: internal/httpserver/mimetypes.go
// Package httpserver
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// The Response mime table loads once from a packaged mime.types file in
// nginx's own format (§6: "loaded once from a packaged mime.types file
// (nginx format)"). fsnotify.Watcher support for hot-reloading an
// operator-supplied replacement file lives in control.Watcher; this
// file only owns the parser and the embedded fallback table.

package httpserver

import (
	_ "embed"
	"strings"
	"sync"
)

//go:embed mime.types
var embeddedMimeTypes string

const fallbackMimeType = "application/octet-stream"

// MimeTable resolves a file extension to a MIME type, nginx mime.types
// format ("type ext1 ext2 ...;" lines inside a types{} block).
type MimeTable struct {
	mu    sync.RWMutex
	byExt map[string]string
}

// NewMimeTable parses the embedded mime.types packaged with this module.
func NewMimeTable() *MimeTable {
	t := &MimeTable{byExt: make(map[string]string, 128)}
	t.loadFrom(embeddedMimeTypes)
	return t
}

// Reload replaces the table's contents from raw mime.types text, used by
// the config hot-reload path when an operator supplies their own file.
func (t *MimeTable) Reload(raw string) {
	next := make(map[string]string, 128)
	t.loadInto(raw, next)
	t.mu.Lock()
	t.byExt = next
	t.mu.Unlock()
}

func (t *MimeTable) loadFrom(raw string) {
	next := make(map[string]string, 128)
	t.loadInto(raw, next)
	t.byExt = next
}

func (t *MimeTable) loadInto(raw string, dst map[string]string) {
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimSuffix(line, ";")
		if line == "" || strings.HasPrefix(line, "#") || line == "types {" || line == "}" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		mimeType := fields[0]
		for _, ext := range fields[1:] {
			dst[strings.ToLower(ext)] = mimeType
		}
	}
}

// Lookup returns the MIME type for ext (with or without a leading dot),
// falling back to application/octet-stream for unknown extensions.
func (t *MimeTable) Lookup(ext string) string {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	t.mu.RLock()
	defer t.mu.RUnlock()
	if mt, ok := t.byExt[ext]; ok {
		return mt
	}
	return fallbackMimeType
}
