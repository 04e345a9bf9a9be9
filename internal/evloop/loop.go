// File: internal/evloop/loop.go
// Package evloop implements the single-threaded cooperative reactor (C1):
// I/O readiness on file descriptors, timers, POSIX signals, a microtask
// queue, and an explicit Suspension primitive.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Adapted from the teacher's core/concurrency/eventloop.go (batched
// handler dispatch over an inbox channel) and internal/concurrency/executor.go
// (eapache/queue-backed task queue), generalized from a fixed-handler batch
// loop into the full reactor described in spec.md §4.1: one loop instance
// per process, every user callback runs on its single goroutine.

package evloop

import (
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eapache/queue"

	"github.com/localzet/webcore/api"
)

type fdWatcher struct {
	fd       uintptr
	readCB   func()
	writeCB  func()
	interest api.EventKind
}

type sigWatcher struct {
	ch   chan os.Signal
	stop chan struct{}
	cb   func()
}

// Loop is the single-threaded event loop for one worker process.
type Loop struct {
	reactor api.Reactor

	mu       sync.Mutex
	watchers map[uintptr]*fdWatcher
	sigs     map[os.Signal]*sigWatcher

	timers *timerWheel

	microtasks *queue.Queue
	mtMu       sync.Mutex

	deferred   []func()
	deferredMu sync.Mutex

	// enableQueue holds callbacks registered during the current tick; they
	// become invocable only starting the *next* tick (no same-tick fire,
	// per spec.md §4.1 "Ordering guarantees").
	enableQueue   []func()
	enableQueueMu sync.Mutex

	errHandler atomic.Value // api.ErrorHandler

	idlePrevTick atomic.Bool
	running      atomic.Bool
	dispatching  atomic.Bool
	stopCh       chan struct{}

	nextTimerID uint64
}

// New constructs a Loop backed by reactor r.
func New(r api.Reactor) *Loop {
	l := &Loop{
		reactor:    r,
		watchers:   make(map[uintptr]*fdWatcher),
		sigs:       make(map[os.Signal]*sigWatcher),
		microtasks: queue.New(),
		stopCh:     make(chan struct{}),
	}
	l.timers = newTimerWheel()
	return l
}

// SetErrorHandler installs the loop-wide backstop for panicking callbacks (§4.1).
func (l *Loop) SetErrorHandler(cb api.ErrorHandler) {
	l.errHandler.Store(cb)
}

func (l *Loop) reportError(err error) {
	if h, ok := l.errHandler.Load().(api.ErrorHandler); ok && h != nil {
		func() {
			defer func() { _ = recover() }() // a misbehaving handler becomes fatal-but-contained
			h(err)
		}()
	}
}

func (l *Loop) safeCall(cb func()) {
	l.dispatching.Store(true)
	defer func() {
		l.dispatching.Store(false)
		if r := recover(); r != nil {
			if err, ok := r.(error); ok {
				l.reportError(err)
			} else {
				l.reportError(&panicValue{r})
			}
		}
	}()
	cb()
}

// inCallback reports whether the calling goroutine is (to the extent this
// can be checked at all without goroutine-local storage) inside a callback
// this Loop's own Run goroutine is currently dispatching via safeCall.
func (l *Loop) inCallback() bool {
	return l.dispatching.Load()
}

type panicValue struct{ v any }

func (p *panicValue) Error() string { return "panic recovered in event loop callback" }

// OnReadable arms a readable watcher for fd.
func (l *Loop) OnReadable(fd uintptr, cb func()) error {
	return l.arm(fd, api.EventRead, cb, nil)
}

// OnWritable arms a writable watcher for fd.
func (l *Loop) OnWritable(fd uintptr, cb func()) error {
	return l.arm(fd, api.EventWrite, nil, cb)
}

func (l *Loop) arm(fd uintptr, kind api.EventKind, readCB, writeCB func()) error {
	l.mu.Lock()
	w, ok := l.watchers[fd]
	if !ok {
		w = &fdWatcher{fd: fd}
		l.watchers[fd] = w
	}
	if readCB != nil {
		w.readCB = readCB
	}
	if writeCB != nil {
		w.writeCB = writeCB
	}
	newInterest := w.interest | kind
	changed := newInterest != w.interest || !ok
	w.interest = newInterest
	l.mu.Unlock()

	if !ok {
		return l.reactor.Register(fd, newInterest, func(fd uintptr, kind api.EventKind) {
			l.onFDReady(fd, kind)
		})
	}
	if changed {
		return l.reactor.Modify(fd, newInterest)
	}
	return nil
}

func (l *Loop) onFDReady(fd uintptr, kind api.EventKind) {
	l.mu.Lock()
	w, ok := l.watchers[fd]
	l.mu.Unlock()
	if !ok {
		return
	}
	if kind&api.EventRead != 0 && w.readCB != nil {
		l.pushMicrotask(w.readCB)
	}
	if kind&(api.EventWrite|api.EventError) != 0 && w.writeCB != nil {
		l.pushMicrotask(w.writeCB)
	}
}

// OffReadable disarms the readable interest for fd.
func (l *Loop) OffReadable(fd uintptr) error { return l.disarm(fd, api.EventRead) }

// OffWritable disarms the writable interest for fd.
func (l *Loop) OffWritable(fd uintptr) error { return l.disarm(fd, api.EventWrite) }

func (l *Loop) disarm(fd uintptr, kind api.EventKind) error {
	l.mu.Lock()
	w, ok := l.watchers[fd]
	if !ok {
		l.mu.Unlock()
		return nil
	}
	w.interest &^= kind
	if kind == api.EventRead {
		w.readCB = nil
	} else {
		w.writeCB = nil
	}
	remaining := w.interest
	if remaining == 0 {
		delete(l.watchers, fd)
	}
	l.mu.Unlock()

	if remaining == 0 {
		return l.reactor.Unregister(fd)
	}
	return l.reactor.Modify(fd, remaining)
}

// OnSignal registers cb to run when sig is delivered to this process.
func (l *Loop) OnSignal(sig os.Signal, cb func()) {
	l.mu.Lock()
	if existing, ok := l.sigs[sig]; ok {
		close(existing.stop)
	}
	ch := make(chan os.Signal, 1)
	stop := make(chan struct{})
	l.sigs[sig] = &sigWatcher{ch: ch, stop: stop, cb: cb}
	l.mu.Unlock()

	signal.Notify(ch, sig)
	go func() {
		for {
			select {
			case <-ch:
				l.pushMicrotask(cb)
			case <-stop:
				signal.Stop(ch)
				return
			}
		}
	}()
}

// OffSignal cancels a prior OnSignal registration; a no-op if none exists.
func (l *Loop) OffSignal(sig os.Signal) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if w, ok := l.sigs[sig]; ok {
		close(w.stop)
		delete(l.sigs, sig)
	}
}

// Queue schedules cb as a microtask: it runs before the next I/O poll, FIFO.
func (l *Loop) Queue(cb func()) {
	l.pushMicrotask(cb)
}

func (l *Loop) pushMicrotask(cb func()) {
	l.mtMu.Lock()
	l.microtasks.Add(cb)
	l.mtMu.Unlock()
}

// Defer schedules cb to run at the start of the tick *after* the current one
// completes (§4.1: "before I/O is polled again").
func (l *Loop) Defer(cb func()) {
	l.deferredMu.Lock()
	l.deferred = append(l.deferred, cb)
	l.deferredMu.Unlock()
}

// enableLater registers cb so it becomes invocable starting next tick.
// Delay, Repeat and OnReadable do not go through it.
func (l *Loop) enableLater(cb func()) {
	l.enableQueueMu.Lock()
	l.enableQueue = append(l.enableQueue, cb)
	l.enableQueueMu.Unlock()
}

// Run drives the tick algorithm (§4.1) until Stop is called.
func (l *Loop) Run() {
	if !l.running.CompareAndSwap(false, true) {
		return
	}
	defer l.running.Store(false)

	for {
		select {
		case <-l.stopCh:
			return
		default:
		}

		// (1) activate enable-queue
		l.enableQueueMu.Lock()
		toActivate := l.enableQueue
		l.enableQueue = nil
		l.enableQueueMu.Unlock()
		for _, cb := range toActivate {
			l.pushMicrotask(cb)
		}

		// (2) enqueue deferred callbacks from the previous tick
		l.deferredMu.Lock()
		toDefer := l.deferred
		l.deferred = nil
		l.deferredMu.Unlock()
		for _, cb := range toDefer {
			l.pushMicrotask(cb)
		}

		// (3) decide whether to block
		hasPending := len(toActivate) > 0 || len(toDefer) > 0
		timeout := l.timers.nextTimeoutMs(time.Now())
		block := !hasPending && l.idlePrevTick.Load()
		if !block {
			timeout = 0
		}

		// (4) poll I/O, timers, signals with the computed timeout
		if err := l.reactor.Poll(timeout); err != nil {
			l.reportError(err)
		}
		fired := l.timers.fireDue(time.Now())
		for _, cb := range fired {
			l.pushMicrotask(cb)
		}

		// (5) drain microtasks then ready callbacks, arrival order
		didWork := l.drainMicrotasks()
		l.idlePrevTick.Store(!didWork)
	}
}

func (l *Loop) drainMicrotasks() bool {
	ran := false
	for {
		l.mtMu.Lock()
		if l.microtasks.Length() == 0 {
			l.mtMu.Unlock()
			break
		}
		cb := l.microtasks.Peek().(func())
		l.microtasks.Remove()
		l.mtMu.Unlock()

		ran = true
		l.safeCall(cb)
	}
	return ran
}

// Stop requests loop termination; Run returns once the current tick ends.
func (l *Loop) Stop() {
	select {
	case <-l.stopCh:
	default:
		close(l.stopCh)
	}
}

// Now returns seconds since process start with nanosecond precision; it
// never goes backward (monotonic clock per §4.1).
func Now() time.Duration {
	return time.Since(processStart)
}

var processStart = time.Now()
