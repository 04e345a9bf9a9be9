// File: cmd/server/reload.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package main

import (
	"syscall"

	"github.com/spf13/cobra"

	"github.com/localzet/webcore/control"
)

func newReloadCmd() *cobra.Command {
	var graceful bool
	cmd := &cobra.Command{
		Use:   "reload",
		Short: "hot-reload workers (SIGUSR1, or SIGUSR2 with -g)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := control.LoadConfig(configPath)
			if err != nil {
				return err
			}
			pidFile := orDefault(cfg.PIDFile, "webcore.pid")
			sig := syscall.SIGUSR1
			if graceful {
				sig = syscall.SIGUSR2
			}
			return signalMaster(pidFile, sig)
		},
	}
	cmd.Flags().BoolVarP(&graceful, "graceful", "g", false, "graceful reload (SIGUSR2) instead of immediate (SIGUSR1)")
	return cmd
}
