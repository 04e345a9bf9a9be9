// File: supervisor/systemd_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package supervisor

import (
	"os"
	"testing"
)

func TestMatchActivationFiles(t *testing.T) {
	a, _ := os.CreateTemp(t.TempDir(), "a")
	b, _ := os.CreateTemp(t.TempDir(), "b")
	defer a.Close()
	defer b.Close()

	got := matchActivationFiles([]*os.File{a, b}, []string{"listener-a", "listener-b"})
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	if got["listener-a"] != a || got["listener-b"] != b {
		t.Fatalf("files matched to the wrong spec ids: %#v", got)
	}
}

func TestMatchActivationFiles_MoreFilesThanIDs(t *testing.T) {
	a, _ := os.CreateTemp(t.TempDir(), "a")
	defer a.Close()

	got := matchActivationFiles([]*os.File{a, a}, []string{"only-one"})
	if len(got) != 1 {
		t.Fatalf("expected extra files beyond known ids to be dropped, got %d entries", len(got))
	}
}
