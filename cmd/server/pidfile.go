// File: cmd/server/pidfile.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
)

func readPID(pidFile string) (int, error) {
	raw, err := os.ReadFile(pidFile)
	if err != nil {
		return 0, fmt.Errorf("cmd/server: read pidfile %s: %w", pidFile, err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil {
		return 0, fmt.Errorf("cmd/server: parse pidfile %s: %w", pidFile, err)
	}
	return pid, nil
}

func signalMaster(pidFile string, sig syscall.Signal) error {
	pid, err := readPID(pidFile)
	if err != nil {
		return err
	}
	return syscall.Kill(pid, sig)
}
