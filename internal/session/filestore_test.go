// File: internal/session/filestore_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package session_test

import (
	"testing"
	"time"

	"github.com/localzet/webcore/internal/session"
)

func TestFileStore_ReadWriteDestroy(t *testing.T) {
	dir := t.TempDir()
	store := session.NewFileStore(dir)
	if err := store.Open(); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	id := "abc123"
	if err := store.Write(id, []byte("payload")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := store.Read(id)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "payload" {
		t.Fatalf("Read = %q, want %q", got, "payload")
	}

	if err := store.Destroy(id); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	got, err = store.Read(id)
	if err != nil {
		t.Fatalf("Read after destroy: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no data after destroy, got %d bytes", len(got))
	}
}

func TestFileStore_RejectsInvalidID(t *testing.T) {
	store := session.NewFileStore(t.TempDir())
	if err := store.Write("../escape", []byte("x")); err == nil {
		t.Fatal("expected rejection of a non-alphanumeric session id")
	}
}

func TestFileStore_GC(t *testing.T) {
	dir := t.TempDir()
	store := session.NewFileStore(dir)
	store.Open()
	if err := store.Write("stale1234", []byte("x")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	time.Sleep(2 * time.Millisecond)
	if err := store.GC(time.Millisecond); err != nil {
		t.Fatalf("GC: %v", err)
	}
	got, err := store.Read("stale1234")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(got) != 0 {
		t.Fatal("expected GC to remove the stale file")
	}
}
