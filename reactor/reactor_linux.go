//go:build linux

// File: reactor/reactor_linux.go
// Package reactor
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Linux epoll(7)-based Reactor, adapted from the teacher's
// reactor/epoll_reactor.go and reactor/reactor_linux.go (the two competing
// prototypes are merged into one canonical implementation here).

package reactor

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/localzet/webcore/api"
)

type epollReactor struct {
	epfd int

	mu        sync.RWMutex
	callbacks map[uintptr]api.FDCallback
}

func newPlatformReactor() (api.Reactor, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("epoll create: %w", err)
	}
	return &epollReactor{
		epfd:      epfd,
		callbacks: make(map[uintptr]api.FDCallback),
	}, nil
}

func toEpollEvents(interest api.EventKind) uint32 {
	var ev uint32
	if interest&api.EventRead != 0 {
		ev |= unix.EPOLLIN
	}
	if interest&api.EventWrite != 0 {
		ev |= unix.EPOLLOUT
	}
	return ev
}

func (r *epollReactor) Register(fd uintptr, interest api.EventKind, cb api.FDCallback) error {
	ev := &unix.EpollEvent{Events: toEpollEvents(interest), Fd: int32(fd)}
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_ADD, int(fd), ev); err != nil {
		return fmt.Errorf("epoll ctl add: %w", err)
	}
	r.mu.Lock()
	r.callbacks[fd] = cb
	r.mu.Unlock()
	return nil
}

func (r *epollReactor) Modify(fd uintptr, interest api.EventKind) error {
	ev := &unix.EpollEvent{Events: toEpollEvents(interest), Fd: int32(fd)}
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_MOD, int(fd), ev); err != nil {
		return fmt.Errorf("epoll ctl mod: %w", err)
	}
	return nil
}

func (r *epollReactor) Unregister(fd uintptr) error {
	_ = unix.EpollCtl(r.epfd, unix.EPOLL_CTL_DEL, int(fd), nil)
	r.mu.Lock()
	delete(r.callbacks, fd)
	r.mu.Unlock()
	return nil
}

func (r *epollReactor) Poll(timeoutMs int) error {
	const maxEvents = 256
	var events [maxEvents]unix.EpollEvent

	n, err := unix.EpollWait(r.epfd, events[:], timeoutMs)
	if err != nil {
		if err == unix.EINTR {
			return nil
		}
		return fmt.Errorf("epoll wait: %w", err)
	}

	for i := 0; i < n; i++ {
		ev := events[i]
		fd := uintptr(ev.Fd)

		r.mu.RLock()
		cb, ok := r.callbacks[fd]
		r.mu.RUnlock()
		if !ok {
			continue
		}

		var kind api.EventKind
		if ev.Events&unix.EPOLLIN != 0 {
			kind |= api.EventRead
		}
		if ev.Events&unix.EPOLLOUT != 0 {
			kind |= api.EventWrite
		}
		if ev.Events&(unix.EPOLLERR|unix.EPOLLHUP) != 0 {
			kind |= api.EventError
		}

		func() {
			defer func() { _ = recover() }()
			cb(fd, kind)
		}()
	}
	return nil
}

func (r *epollReactor) Close() error {
	return unix.Close(r.epfd)
}
