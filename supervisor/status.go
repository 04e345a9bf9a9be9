// File: supervisor/status.go
// Package supervisor — the statusfile writer (C10, §6): a header block
// (version, runtime, start time, uptime, load average, event-loop name,
// listener/worker counts) followed by a per-exit-status table, a
// per-process table, and (on a connection dump) one line per live
// connection.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Grounded on the teacher's plain-text diagnostics style (no template
// engine, fmt.Fprintf straight to a file) since the teacher has no
// status-dump equivalent of its own; column layout follows §6 exactly.

package supervisor

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/localzet/webcore/listener"
)

// StatusVersion identifies the statusfile format this Master writes.
const StatusVersion = "webcore-status/1"

const (
	sigStatusDump = syscall.SIGIOT
	sigConnDump   = syscall.SIGIO
)

// dumpStatus implements SIGIOT (connDump=false, per-process table) and
// SIGIO (connDump=true, per-connection table): write the header block and
// table header synchronously, then ask every live child to append its own
// rows by signaling it. Children append with O_APPEND, so concurrent
// appends from multiple workers never interleave mid-line on POSIX.
func (m *Master) dumpStatus(connDump bool) error {
	if err := m.writeStatusHeader(connDump); err != nil {
		return fmt.Errorf("supervisor: write status header: %w", err)
	}

	m.mu.Lock()
	children := make([]*childProc, 0, len(m.children))
	for _, cp := range m.children {
		children = append(children, cp)
	}
	m.mu.Unlock()

	sig := sigStatusDump
	if connDump {
		sig = sigConnDump
	}

	var result *multierror.Error
	for _, cp := range children {
		if err := cp.cmd.Process.Signal(sig); err != nil {
			result = multierror.Append(result, fmt.Errorf("signal pid %d: %w", cp.pid, err))
		}
	}
	return result.ErrorOrNil()
}

func (m *Master) writeStatusHeader(connDump bool) error {
	f, err := os.Create(m.StatusFile)
	if err != nil {
		return err
	}
	defer f.Close()

	now := time.Now()
	uptime := now.Sub(m.startTime).Round(time.Second)

	m.mu.Lock()
	workerCount := len(m.children)
	m.mu.Unlock()

	fmt.Fprintf(f, "=== %s ===\n", StatusVersion)
	fmt.Fprintf(f, "runtime: %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
	fmt.Fprintf(f, "started: %s\n", m.startTime.Format(time.RFC3339))
	fmt.Fprintf(f, "uptime: %s\n", uptime)
	fmt.Fprintf(f, "load average: %s\n", loadAverage())
	fmt.Fprintf(f, "event loop: epoll\n")
	fmt.Fprintf(f, "listeners: %d workers: %d\n", len(m.Specs), workerCount)

	if m.Config != nil {
		if last := m.Config.LastReload(); last.Reason != "" {
			fmt.Fprintf(f, "last reload: %s at %s\n", last.Reason, last.At.Format(time.RFC3339))
		}
	}

	if m.Metrics != nil {
		for k, v := range m.Metrics.GetSnapshot() {
			fmt.Fprintf(f, "metric %s: %v\n", k, v)
		}
	}

	if connDump {
		fmt.Fprintln(f, "--- connections ---")
		fmt.Fprintln(f, strings.Join(connDumpColumns, "\t"))
		return nil
	}
	fmt.Fprintln(f, "--- processes ---")
	fmt.Fprintln(f, strings.Join(processColumns, "\t"))
	return nil
}

// processColumns is the per-process table's column layout (§6).
var processColumns = []string{
	"pid", "memory", "listen", "server_name", "connections",
	"send_fail", "timers", "total_request", "qps", "status",
}

// connDumpColumns is the per-connection table's column layout (§6).
var connDumpColumns = []string{
	"pid", "server", "cid", "transport", "protocol", "ipv4", "ipv6",
	"recvQ", "sendQ", "bytesRead", "bytesWritten", "state", "localAddr", "remoteAddr",
}

// loadAverage reads /proc/loadavg's first three fields; on platforms
// without it (or under restricted sandboxes) it reports "n/a" rather than
// failing the whole dump.
func loadAverage() string {
	raw, err := os.ReadFile("/proc/loadavg")
	if err != nil {
		return "n/a"
	}
	fields := strings.Fields(string(raw))
	if len(fields) < 3 {
		return "n/a"
	}
	return strings.Join(fields[:3], " ")
}

// appendProcessStatusLine is the worker-side half of a SIGIOT status dump:
// append this worker's row to the shared statusfile.
func appendProcessStatusLine(statusFile string, inst *listener.Instance, slot int, startedAt time.Time) error {
	f, err := os.OpenFile(statusFile, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	stats := inst.Stats()
	uptime := time.Since(startedAt).Seconds()
	qps := 0.0
	if uptime > 0 {
		qps = float64(stats.TotalRequest) / uptime
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	_, err = fmt.Fprintf(f, "%d\t%d\t%s\t%s\t%d\t%d\t%d\t%d\t%.2f\t%s\n",
		os.Getpid(), mem.Alloc, inst.ServerName(), fmt.Sprintf("%s#%d", inst.ServerName(), slot),
		stats.Connections, stats.SendFail, 0, stats.TotalRequest, qps, "RUNNING",
	)
	return err
}

// appendConnectionStatusLines is the worker-side half of a SIGIO connection
// dump: one line per live connection on this worker.
func appendConnectionStatusLines(statusFile string, inst *listener.Instance) error {
	f, err := os.OpenFile(statusFile, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	spec := inst.Spec()
	pid := os.Getpid()
	server := inst.ServerName()
	protoName := protocolName(spec.Protocol)

	var result *multierror.Error
	for _, conn := range inst.Connections() {
		stats := conn.Stats()
		ipv4, ipv6 := splitAddrFamily(conn.RemoteAddr())
		_, werr := fmt.Fprintf(f, "%d\t%s\t%d\t%s\t%s\t%s\t%s\t%d\t%d\t%d\t%d\t%s\t%s\t%s\n",
			pid, server, conn.ID(), spec.Scheme, protoName, ipv4, ipv6,
			stats.RecvQueued, stats.SendQueued, stats.BytesRead, stats.BytesWritten,
			conn.Status(), conn.LocalAddr(), conn.RemoteAddr(),
		)
		if werr != nil {
			result = multierror.Append(result, werr)
		}
	}
	return result.ErrorOrNil()
}

// protocolName derives a short label for the statusfile's protocol column
// from the concrete Protocol value's type, since api.Protocol carries no
// name of its own (§4: protocols are a pure-function contract, not a
// registry entry).
func protocolName(p any) string {
	if p == nil {
		return "-"
	}
	name := fmt.Sprintf("%T", p)
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	return strings.TrimPrefix(name, "*")
}

// splitAddrFamily returns (addr, "") for an IPv4-looking remote address and
// ("", addr) otherwise, matching the statusfile's separate ipv4/ipv6
// columns (§6).
func splitAddrFamily(addr string) (ipv4, ipv6 string) {
	if strings.Contains(addr, ":") && strings.Count(addr, ":") > 1 {
		return "", addr
	}
	if addr == "" {
		return "", ""
	}
	return addr, ""
}
