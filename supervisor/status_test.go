// File: supervisor/status_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package supervisor

import "testing"

func TestSplitAddrFamily(t *testing.T) {
	cases := []struct {
		addr     string
		wantIPv4 string
		wantIPv6 string
	}{
		{"127.0.0.1:8080", "127.0.0.1:8080", ""},
		{"[::1]:8080", "", "[::1]:8080"},
		{"", "", ""},
	}
	for _, c := range cases {
		ipv4, ipv6 := splitAddrFamily(c.addr)
		if ipv4 != c.wantIPv4 || ipv6 != c.wantIPv6 {
			t.Errorf("splitAddrFamily(%q) = (%q, %q), want (%q, %q)", c.addr, ipv4, ipv6, c.wantIPv4, c.wantIPv6)
		}
	}
}

func TestProtocolName(t *testing.T) {
	if got := protocolName(nil); got != "-" {
		t.Errorf("protocolName(nil) = %q, want %q", got, "-")
	}
	if got := protocolName(&struct{ X int }{}); got == "-" || got == "" {
		t.Errorf("protocolName(non-nil) = %q, want a non-empty type name", got)
	}
}

func TestLoadAverage_NeverFails(t *testing.T) {
	if got := loadAverage(); got == "" {
		t.Error("loadAverage() returned empty string")
	}
}
