// File: cmd/server/stop.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package main

import (
	"syscall"

	"github.com/spf13/cobra"

	"github.com/localzet/webcore/control"
)

func newStopCmd() *cobra.Command {
	var graceful bool
	cmd := &cobra.Command{
		Use:   "stop",
		Short: "stop the running master (SIGINT, or SIGQUIT with -g)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return stopMaster(graceful)
		},
	}
	cmd.Flags().BoolVarP(&graceful, "graceful", "g", false, "graceful stop (SIGQUIT) instead of immediate (SIGINT)")
	return cmd
}

func stopMaster(graceful bool) error {
	cfg, err := control.LoadConfig(configPath)
	if err != nil {
		return err
	}
	pidFile := orDefault(cfg.PIDFile, "webcore.pid")
	sig := syscall.SIGINT
	if graceful {
		sig = syscall.SIGQUIT
	}
	return signalMaster(pidFile, sig)
}
