// File: control/probes.go
// Package control
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// StartRuntimeProbe periodically populates a MetricsRegistry with process
// runtime diagnostics, adapted from the teacher's control/platform_linux.go
// and control/platform_windows.go DebugProbes (which exposed a single
// "platform.cpus" hook registered per-GOOS). Generalized here into a
// ticker-driven probe covering goroutine count and CPU count alike, since
// the statusfile has no GOOS-specific column to justify keeping the
// platform build-tag split the teacher used for a single NumCPU() call.
package control

import (
	"runtime"
	"time"
)

// StartRuntimeProbe samples runtime.NumGoroutine/NumCPU into reg every
// interval until the returned stop func is called.
func StartRuntimeProbe(reg *MetricsRegistry, interval time.Duration) (stop func()) {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})

	sample := func() {
		reg.Set("runtime.goroutines", runtime.NumGoroutine())
		reg.Set("runtime.cpus", runtime.NumCPU())
		var mem runtime.MemStats
		runtime.ReadMemStats(&mem)
		reg.Set("runtime.heap_alloc", mem.HeapAlloc)
		reg.Incr("runtime.samples_taken", 1)
	}
	sample()

	go func() {
		for {
			select {
			case <-ticker.C:
				sample()
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()

	return func() { close(done) }
}
