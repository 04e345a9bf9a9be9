// File: internal/evloop/suspension.go
// Package evloop
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Suspension is the only high-level concurrency primitive exposed to user
// code (§4.1): suspend() blocks the calling goroutine, resume()/throw() from
// outside unblock it by queueing the result onto the loop's microtask queue.
// In a systems language this is "a task id registered with the loop"; here
// suspend is literally a goroutine blocking on a size-1 channel, and resume
// is a non-blocking send so a spurious resume after suspend already
// returned is silently dropped rather than deadlocking the resumer.

package evloop

import "errors"

// ErrSuspendOutsideLoop is returned if Suspend is called from a goroutine
// that isn't the Loop's own callback execution context.
var ErrSuspendOutsideLoop = errors.New("suspend called outside the event loop's main task")

type suspendResult struct {
	value any
	err   error
}

// Suspension is a one-shot, externally resolvable blocking point.
type Suspension struct {
	loop *Loop
	ch   chan suspendResult
	done bool
}

// NewSuspension allocates a Suspension bound to this loop.
func (l *Loop) NewSuspension() *Suspension {
	return &Suspension{loop: l, ch: make(chan suspendResult, 1)}
}

// Suspend blocks the calling goroutine until Resume or Throw is called.
// Must only be invoked from within a callback the Loop itself dispatched;
// calling it while the loop isn't actively dispatching anything (e.g.
// before Run starts, or from a goroutine the application spawned on its
// own) returns ErrSuspendOutsideLoop instead of blocking forever with no
// dispatcher left to drive a matching Resume/Throw.
func (s *Suspension) Suspend() (any, error) {
	if !s.loop.inCallback() {
		return nil, ErrSuspendOutsideLoop
	}
	r := <-s.ch
	s.done = true
	return r.value, r.err
}

// Resume delivers value to a pending Suspend, scheduled via the loop's
// microtask queue so the resumer observes ordering consistent with other
// loop-driven work. Resuming an already-completed ("dead") suspension is
// ignored.
func (s *Suspension) Resume(value any) {
	if s.done {
		return
	}
	s.loop.Queue(func() {
		select {
		case s.ch <- suspendResult{value: value}:
		default:
		}
	})
}

// Throw delivers err to a pending Suspend.
func (s *Suspension) Throw(err error) {
	if s.done {
		return
	}
	s.loop.Queue(func() {
		select {
		case s.ch <- suspendResult{err: err}:
		default:
		}
	})
}
