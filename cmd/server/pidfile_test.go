// File: cmd/server/pidfile_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestReadPID(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "webcore.pid")
	if err := os.WriteFile(path, []byte("1234\n"), 0644); err != nil {
		t.Fatalf("write pidfile: %v", err)
	}

	pid, err := readPID(path)
	if err != nil {
		t.Fatalf("readPID: %v", err)
	}
	if pid != 1234 {
		t.Fatalf("readPID = %d, want 1234", pid)
	}
}

func TestReadPID_Malformed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "webcore.pid")
	if err := os.WriteFile(path, []byte("not-a-pid"), 0644); err != nil {
		t.Fatalf("write pidfile: %v", err)
	}
	if _, err := readPID(path); err == nil {
		t.Fatal("expected an error parsing a malformed pidfile")
	}
}

func TestReadPID_Missing(t *testing.T) {
	if _, err := readPID(filepath.Join(t.TempDir(), "missing.pid")); err == nil {
		t.Fatal("expected an error reading a missing pidfile")
	}
}
