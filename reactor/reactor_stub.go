//go:build !linux

// File: reactor/reactor_stub.go
// Package reactor
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Portable fallback Reactor for non-Linux GOOS. spec.md's open question
// accepts a POSIX-only implementation; this stub keeps the module buildable
// elsewhere without claiming production-grade readiness there.

package reactor

import (
	"sync"
	"time"

	"github.com/localzet/webcore/api"
)

type stubReactor struct {
	mu        sync.Mutex
	callbacks map[uintptr]api.FDCallback
	closed    bool
}

func newPlatformReactor() (api.Reactor, error) {
	return &stubReactor{callbacks: make(map[uintptr]api.FDCallback)}, nil
}

func (r *stubReactor) Register(fd uintptr, interest api.EventKind, cb api.FDCallback) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.callbacks[fd] = cb
	return nil
}

func (r *stubReactor) Modify(fd uintptr, interest api.EventKind) error { return nil }

func (r *stubReactor) Unregister(fd uintptr) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.callbacks, fd)
	return nil
}

// Poll on the stub simply sleeps for the requested timeout; readiness is
// expected to be driven externally (e.g. by goroutines blocking on Read).
func (r *stubReactor) Poll(timeoutMs int) error {
	if timeoutMs < 0 {
		timeoutMs = 50
	}
	time.Sleep(time.Duration(timeoutMs) * time.Millisecond)
	return nil
}

func (r *stubReactor) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}
