// File: supervisor/worker.go
// Package supervisor
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// RunWorker is the entrypoint a re-exec'd child runs (§4.2 "Child signal
// handling"): it identifies its own (listenerId, slot) from the
// environment the master set in spawnChild, binds or adopts that
// listener's socket, and drives one internal/evloop.Loop for the
// connection's lifetime. Signal handling is wired through the loop's own
// OnSignal (C1), so a worker's SIGINT/SIGQUIT/SIGUSR1/SIGUSR2 handling
// runs on the same single goroutine as every other callback.

package supervisor

import (
	"fmt"
	"os"
	"strconv"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/localzet/webcore/internal/evloop"
	"github.com/localzet/webcore/listener"
	"github.com/localzet/webcore/reactor"
)

// IsWorker reports whether this process was re-exec'd by a Master.
func IsWorker() bool {
	return os.Getenv("WEBCORE_WORKER") == "1"
}

// RunWorker runs the worker entrypoint for the slot identified by the
// process environment. specs must be the same list the Master was
// constructed with (every process derives it identically from user code;
// only the env selects which one this process serves).
func RunWorker(specs []listener.Spec) error {
	listenerID := os.Getenv("WEBCORE_LISTENER_ID")
	slot, _ := strconv.Atoi(os.Getenv("WEBCORE_SLOT"))
	statusFile := os.Getenv("WEBCORE_STATUS_FILE")
	startedAt := time.Now()
	log := logrus.WithFields(logrus.Fields{"component": "worker", "listener": listenerID, "slot": slot, "pid": os.Getpid()})

	var spec listener.Spec
	found := false
	for _, s := range specs {
		if s.ID() == listenerID {
			spec, found = s, true
			break
		}
	}
	if !found {
		return fmt.Errorf("supervisor: worker started for unknown listener %q", listenerID)
	}

	inheritedFD := -1
	if v := os.Getenv("WEBCORE_LISTENER_FD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			inheritedFD = n
		}
	}

	r, err := reactor.New()
	if err != nil {
		return fmt.Errorf("supervisor: new reactor: %w", err)
	}
	loop := evloop.New(r)
	loop.SetErrorHandler(func(err error) {
		log.WithError(err).Error("unhandled callback error")
	})

	inst, err := listener.Listen(loop, spec, inheritedFD)
	if err != nil {
		return fmt.Errorf("supervisor: listen: %w", err)
	}

	gracefulStop := false
	stopping := false

	stopWorker := func(graceful bool) {
		if stopping {
			return
		}
		stopping = true
		gracefulStop = graceful
		inst.Close()
		log.WithField("graceful", graceful).Info("worker stopping")
		loop.Stop()
	}

	loop.OnSignal(syscall.SIGINT, func() { stopWorker(false) })
	loop.OnSignal(syscall.SIGQUIT, func() { stopWorker(true) })
	loop.OnSignal(syscall.SIGUSR1, func() {
		if spec.Callbacks != nil && spec.Callbacks.OnReload != nil {
			spec.Callbacks.OnReload()
		}
		stopWorker(false)
	})
	loop.OnSignal(syscall.SIGUSR2, func() {
		if spec.Callbacks != nil && spec.Callbacks.OnReload != nil {
			spec.Callbacks.OnReload()
		}
		stopWorker(true)
	})
	loop.OnSignal(syscall.SIGIOT, func() {
		if statusFile == "" {
			return
		}
		if err := appendProcessStatusLine(statusFile, inst, slot, startedAt); err != nil {
			log.WithError(err).Error("status dump failed")
		}
	})
	loop.OnSignal(syscall.SIGIO, func() {
		if statusFile == "" {
			return
		}
		if err := appendConnectionStatusLines(statusFile, inst); err != nil {
			log.WithError(err).Error("connection dump failed")
		}
	})
	loop.OnSignal(syscall.SIGPIPE, func() {})

	if spec.Callbacks != nil && spec.Callbacks.OnStart != nil {
		spec.Callbacks.OnStart()
	}

	loop.Run()

	if spec.Callbacks != nil && spec.Callbacks.OnStop != nil {
		spec.Callbacks.OnStop()
	}
	if spec.Callbacks != nil && spec.Callbacks.OnExit != nil {
		spec.Callbacks.OnExit()
	}
	_ = gracefulStop
	return nil
}
