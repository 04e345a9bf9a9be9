// File: supervisor/master.go
// Package supervisor implements the master/worker process supervisor (C9)
// and the process-wide status surface (C10).
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Grounded on Ankit-Kulkarni-go-experiments/graceful_restarts/SocketHandoff
// (re-exec + os/exec.Cmd.ExtraFiles FD passing, SIGHUP-driven restart,
// connection drain on shutdown) since the teacher repo has no process
// supervisor of its own; generalized from that single-listener demo into
// the spec's per-(listener,slot) worker pool with its full signal table
// (§4.2) and statusfile format (§6).

package supervisor

import (
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/cloudflare/tableflip"
	"github.com/gofrs/flock"
	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/localzet/webcore/control"
	"github.com/localzet/webcore/listener"
)

// childKey identifies one worker process by listener and slot (§3: "Worker
// process. Identity: (listenerId, slot)").
type childKey struct {
	listenerID string
	slot       int
}

type childProc struct {
	cmd        *exec.Cmd
	pid        int
	listenerID string
	slot       int
	reloadable bool
	startedAt  time.Time

	exitCounts map[string]int64 // status string -> count, for the statusfile
}

// Master supervises one worker process per (listener, slot) pair.
type Master struct {
	Specs       []listener.Spec
	Binary      string // re-exec target; defaults to os.Args[0]
	ConfigFile  string // propagated to workers via WEBCORE_CONFIG_FILE
	PIDFile     string
	StatusFile  string
	StopTimeout time.Duration

	// Config and Metrics are optional: cmd/server attaches them so the
	// statusfile header (§6) can surface live runtime metrics and the last
	// reload reason a control.Watcher recorded in the ConfigStore. reload
	// (SIGUSR1/SIGUSR2) does not read or write Config.
	Config  *control.ConfigStore
	Metrics *control.MetricsRegistry

	log *logrus.Entry

	mu           sync.Mutex
	children     map[childKey]*childProc
	listenFDs    map[string]int // listenerID -> bound fd, for non-reusePort listeners
	shuttingDown bool
	gracefulStop bool
	restartQueue []childKey

	lock      *flock.Flock
	sigCh     chan os.Signal
	monitorCh chan childExit
	startTime time.Time

	// upgrader, when enabled via EnableBinaryUpgrade, lets a graceful
	// reload (SIGUSR2) also replace the master binary itself in place
	// (graceful_restarts/tbflip idiom), independent of the per-worker
	// recycle reload already does.
	upgrader *tableflip.Upgrader
}

// EnableBinaryUpgrade wires a tableflip.Upgrader into the master so that a
// graceful reload (SIGUSR2) triggers a zero-downtime swap of the master
// binary in addition to cycling reloadable workers. Call before Start.
func (m *Master) EnableBinaryUpgrade() error {
	upg, err := tableflip.New(tableflip.Options{PIDFile: m.PIDFile + ".upgrade"})
	if err != nil {
		return fmt.Errorf("supervisor: tableflip: %w", err)
	}
	m.upgrader = upg
	return nil
}

type childExit struct {
	key childKey
	err error
}

// New constructs a Master for the given listener specs.
func New(specs []listener.Spec, pidFile, statusFile string) *Master {
	bin, _ := os.Executable()
	return &Master{
		Specs:       specs,
		Binary:      bin,
		PIDFile:     pidFile,
		StatusFile:  statusFile,
		StopTimeout: 10 * time.Second,
		log:         logrus.WithField("component", "master"),
		children:    make(map[childKey]*childProc),
		listenFDs:   make(map[string]int),
		sigCh:       make(chan os.Signal, 8),
		monitorCh:   make(chan childExit, 16),
	}
}

// Start implements the bootstrap sequence (§4.2): acquire the pidfile
// lock, bind listener sockets (unless reusePort), install signal handlers,
// fork one child per (listener, slot), record the PID map, release the
// lock, and enter the monitor loop. Start blocks until shutdown completes.
func (m *Master) Start() error {
	m.startTime = time.Now()
	m.lock = flock.New(m.PIDFile + ".lock")
	locked, err := m.lock.TryLock()
	if err != nil || !locked {
		return fmt.Errorf("supervisor: acquire pidfile lock: %w", err)
	}
	defer m.lock.Unlock()

	currentSpecOrder = currentSpecOrder[:0]
	for _, spec := range m.Specs {
		if !spec.ReusePort {
			currentSpecOrder = append(currentSpecOrder, spec.ID())
		}
	}
	systemdFDs, err := systemdActivationFiles()
	if err != nil {
		m.log.WithError(err).Debug("no systemd-activated sockets")
	}

	for _, spec := range m.Specs {
		if spec.ReusePort {
			continue // each worker binds its own socket
		}
		if f, ok := systemdFDs[spec.ID()]; ok {
			m.listenFDs[spec.ID()] = int(f.Fd())
			continue
		}
		fd, err := bindListenerFD(spec)
		if err != nil {
			return fmt.Errorf("supervisor: bind %s: %w", spec.ID(), err)
		}
		m.listenFDs[spec.ID()] = fd
	}

	m.installSignalHandlers()

	// Each (listener, slot) is independent, so bring-up fans out across an
	// errgroup instead of a sequential loop: one slow worker spawn doesn't
	// hold up the rest of the pool.
	var g errgroup.Group
	for _, spec := range m.Specs {
		spec := spec
		for slot := 0; slot < max(spec.Count, 1); slot++ {
			slot := slot
			g.Go(func() error {
				if err := m.spawnChild(spec, slot); err != nil {
					return fmt.Errorf("supervisor: spawn %s[%d]: %w", spec.ID(), slot, err)
				}
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if err := m.writePIDFile(); err != nil {
		return err
	}

	if m.upgrader != nil {
		if err := m.upgrader.Ready(); err != nil {
			m.log.WithError(err).Warn("tableflip upgrader not ready")
		}
	}

	// bootstrap is done: release the lock before entering the monitor loop
	m.lock.Unlock()

	m.monitorLoop()
	os.Remove(m.PIDFile)
	return nil
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func bindListenerFD(spec listener.Spec) (int, error) {
	return listener.BindOnly(spec)
}

func (m *Master) writePIDFile() error {
	return os.WriteFile(m.PIDFile, []byte(fmt.Sprintf("%d\n", os.Getpid())), 0644)
}

// spawnChild re-execs Binary as a worker bound to (spec, slot), passing the
// pre-bound listener FD (if any) as ExtraFiles[0].
func (m *Master) spawnChild(spec listener.Spec, slot int) error {
	cmd := exec.Command(m.Binary, "-worker")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = append(os.Environ(),
		"WEBCORE_WORKER=1",
		fmt.Sprintf("WEBCORE_LISTENER_ID=%s", spec.ID()),
		fmt.Sprintf("WEBCORE_SLOT=%d", slot),
		fmt.Sprintf("WEBCORE_STATUS_FILE=%s", m.StatusFile),
		fmt.Sprintf("WEBCORE_CONFIG_FILE=%s", m.ConfigFile),
	)

	if fd, ok := m.listenFDs[spec.ID()]; ok {
		f := os.NewFile(uintptr(fd), "listener-"+spec.ID())
		cmd.ExtraFiles = []*os.File{f}
		cmd.Env = append(cmd.Env, "WEBCORE_LISTENER_FD=3")
	}

	if err := cmd.Start(); err != nil {
		return err
	}

	key := childKey{listenerID: spec.ID(), slot: slot}
	cp := &childProc{
		cmd:        cmd,
		pid:        cmd.Process.Pid,
		listenerID: spec.ID(),
		slot:       slot,
		reloadable: spec.Reloadable,
		startedAt:  time.Now(),
		exitCounts: make(map[string]int64),
	}
	m.mu.Lock()
	m.children[key] = cp
	m.mu.Unlock()

	go func() {
		err := cmd.Wait()
		m.monitorCh <- childExit{key: key, err: err}
	}()

	m.log.WithFields(logrus.Fields{"listener": spec.ID(), "slot": slot, "pid": cp.pid}).Info("worker started")
	return nil
}

func (m *Master) installSignalHandlers() {
	signal.Notify(m.sigCh,
		syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP, syscall.SIGQUIT,
		syscall.SIGUSR1, syscall.SIGUSR2, syscall.SIGIOT, syscall.SIGIO,
		syscall.SIGPIPE,
	)
}

// monitorLoop is the master's event loop (§4.2): wait for child exits and
// respawn, while servicing signals.
func (m *Master) monitorLoop() {
	for {
		select {
		case sig := <-m.sigCh:
			if m.handleSignal(sig) {
				return
			}
		case ev := <-m.monitorCh:
			m.handleChildExit(ev)
			m.mu.Lock()
			done := m.shuttingDown && len(m.children) == 0
			m.mu.Unlock()
			if done {
				return
			}
		}
	}
}

func (m *Master) handleChildExit(ev childExit) {
	m.mu.Lock()
	cp, ok := m.children[ev.key]
	if ok {
		delete(m.children, ev.key)
	}
	shuttingDown := m.shuttingDown
	m.mu.Unlock()
	if !ok {
		return
	}

	status := "exited"
	if ev.err != nil {
		status = "crashed"
	}
	m.log.WithFields(logrus.Fields{
		"listener": cp.listenerID, "slot": cp.slot, "pid": cp.pid, "status": status,
	}).Warn("worker exited")

	if shuttingDown {
		return
	}

	// respawn a fresh child for the slot unless we are mid-reload for it
	m.mu.Lock()
	inRestartQueue := false
	for _, k := range m.restartQueue {
		if k == ev.key {
			inRestartQueue = true
			break
		}
	}
	m.mu.Unlock()
	if inRestartQueue {
		return
	}

	for _, spec := range m.Specs {
		if spec.ID() == ev.key.listenerID {
			if err := m.spawnChild(spec, ev.key.slot); err != nil {
				m.log.WithError(err).Error("respawn failed")
			}
			return
		}
	}
}

// handleSignal applies the master signal table (§4.2). Returns true once
// the monitor loop should stop.
func (m *Master) handleSignal(sig os.Signal) bool {
	switch sig {
	case syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP:
		m.log.Info("immediate stop requested")
		m.beginShutdown(false)
		return m.waitForChildren()

	case syscall.SIGQUIT:
		m.log.Info("graceful stop requested")
		m.beginShutdown(true)
		return m.waitForChildren()

	case syscall.SIGUSR1:
		m.log.Info("hot reload requested")
		m.reload(false)

	case syscall.SIGUSR2:
		m.log.Info("graceful hot reload requested")
		m.reload(true)

	case syscall.SIGIOT:
		if err := m.dumpStatus(false); err != nil {
			m.log.WithError(err).Error("status dump failed")
		}

	case syscall.SIGIO:
		if err := m.dumpStatus(true); err != nil {
			m.log.WithError(err).Error("connection dump failed")
		}

	case syscall.SIGPIPE:
		// ignored (§4.2)
	}
	return false
}

func (m *Master) beginShutdown(graceful bool) {
	m.mu.Lock()
	m.shuttingDown = true
	m.gracefulStop = graceful
	children := make([]*childProc, 0, len(m.children))
	for _, cp := range m.children {
		children = append(children, cp)
	}
	m.mu.Unlock()

	sig := syscall.SIGINT
	if graceful {
		sig = syscall.SIGQUIT
	}
	var sigErrs []error
	for _, cp := range children {
		sigErrs = append(sigErrs, cp.cmd.Process.Signal(sig))
	}
	if err := aggregateErrors(sigErrs...); err != nil {
		m.log.WithError(err).Warn("some children did not accept the stop signal")
	}

	if !graceful {
		time.AfterFunc(m.StopTimeout, func() {
			m.mu.Lock()
			remaining := make([]*childProc, 0, len(m.children))
			for _, cp := range m.children {
				remaining = append(remaining, cp)
			}
			m.mu.Unlock()
			for _, cp := range remaining {
				_ = cp.cmd.Process.Kill()
			}
		})
	}
}

func (m *Master) waitForChildren() bool {
	m.mu.Lock()
	empty := len(m.children) == 0
	m.mu.Unlock()
	return empty
}

// reload implements hot reload (SIGUSR1) and graceful hot reload (SIGUSR2):
// collect reloadable child PIDs into a restart queue and cycle them one at
// a time: each child is signalled and waited for, and its slot is refilled
// before the next child is signalled.
func (m *Master) reload(graceful bool) {
	if graceful && m.upgrader != nil {
		if err := m.upgrader.Upgrade(); err != nil {
			m.log.WithError(err).Warn("binary upgrade failed, continuing with worker-only reload")
		}
	}

	m.mu.Lock()
	var queue []childKey
	for k, cp := range m.children {
		if cp.reloadable {
			queue = append(queue, k)
		}
	}
	m.restartQueue = queue
	m.mu.Unlock()

	sig := syscall.SIGUSR1
	if graceful {
		sig = syscall.SIGUSR2
	}

	go func() {
		for _, key := range queue {
			m.mu.Lock()
			cp, ok := m.children[key]
			m.mu.Unlock()
			if !ok {
				continue
			}
			_ = cp.cmd.Process.Signal(sig)
			cp.cmd.Wait()

			m.mu.Lock()
			delete(m.children, key)
			m.restartQueue = removeKey(m.restartQueue, key)
			m.mu.Unlock()

			for _, spec := range m.Specs {
				if spec.ID() == key.listenerID {
					if err := m.spawnChild(spec, key.slot); err != nil {
						m.log.WithError(err).Error("reload respawn failed")
					}
					break
				}
			}
		}
	}()
}

func removeKey(keys []childKey, target childKey) []childKey {
	out := keys[:0]
	for _, k := range keys {
		if k != target {
			out = append(out, k)
		}
	}
	return out
}

// Shutdown errors from multiple children are aggregated with
// go-multierror rather than dropped, per SPEC_FULL's ambient-stack choice.
func aggregateErrors(errs ...error) error {
	var result *multierror.Error
	for _, e := range errs {
		if e != nil {
			result = multierror.Append(result, e)
		}
	}
	return result.ErrorOrNil()
}
