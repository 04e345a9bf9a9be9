// File: control/watcher_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package control

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcher_FiresOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("a: 1\n"), 0644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	w, err := NewWatcher()
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()

	fired := make(chan struct{}, 4)
	if err := w.Watch(path, func() { fired <- struct{}{} }); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	// give the watcher goroutine a moment to register with the OS before
	// the write happens, avoiding a race against fsnotify's Add call
	time.Sleep(50 * time.Millisecond)

	if err := os.WriteFile(path, []byte("a: 2\n"), 0644); err != nil {
		t.Fatalf("rewrite file: %v", err)
	}

	select {
	case <-fired:
	case <-time.After(3 * time.Second):
		t.Fatal("watcher did not fire on file write")
	}
}

func TestDirOf(t *testing.T) {
	cases := map[string]string{
		"/a/b/c.yaml": "/a/b",
		"c.yaml":      ".",
		"/c.yaml":     "",
	}
	for in, want := range cases {
		if got := dirOf(in); got != want {
			t.Errorf("dirOf(%q) = %q, want %q", in, got, want)
		}
	}
}
