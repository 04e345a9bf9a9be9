// File: internal/httpserver/mimetypes_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package httpserver

import "testing"

func TestMimeTable_Lookup(t *testing.T) {
	m := NewMimeTable()
	cases := map[string]string{
		"html": "text/html",
		".css": "text/css",
		"JSON": "application/json",
		"zzz":  fallbackMimeType,
	}
	for ext, want := range cases {
		if got := m.Lookup(ext); got != want {
			t.Errorf("Lookup(%q) = %q, want %q", ext, got, want)
		}
	}
}

func TestMimeTable_Reload(t *testing.T) {
	m := NewMimeTable()
	m.Reload("types {\n  application/x-custom cus;\n}\n")
	if got := m.Lookup("cus"); got != "application/x-custom" {
		t.Errorf("Lookup after reload = %q", got)
	}
	if got := m.Lookup("html"); got != fallbackMimeType {
		t.Errorf("Lookup(html) after reload = %q, want fallback (table replaced)", got)
	}
}
