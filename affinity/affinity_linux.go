//go:build linux

// File: affinity/affinity_linux.go
// Package affinity
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Linux CPU pinning via sched_setaffinity, adapted from the teacher's
// affinity/affinity_linux.go. Pin can give a worker process a dedicated
// core; no listener setting turns pinning on.

package affinity

import (
	"fmt"
	"runtime"

	"golang.org/x/sys/unix"

	"github.com/localzet/webcore/api"
)

type linuxAffinity struct {
	pinnedCPU int
}

// New constructs the platform Affinity pinner.
func New() api.Affinity {
	return &linuxAffinity{pinnedCPU: -1}
}

func (a *linuxAffinity) Pin(cpu int) error {
	runtime.LockOSThread()
	var set unix.CPUSet
	set.Zero()
	set.Set(cpu)
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		runtime.UnlockOSThread()
		return fmt.Errorf("sched_setaffinity cpu=%d: %w", cpu, err)
	}
	a.pinnedCPU = cpu
	return nil
}

func (a *linuxAffinity) Unpin() error {
	if a.pinnedCPU < 0 {
		return nil
	}
	runtime.UnlockOSThread()
	a.pinnedCPU = -1
	return nil
}
