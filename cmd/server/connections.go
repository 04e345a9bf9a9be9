// File: cmd/server/connections.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// connections asks the master for a one-shot dump of open connections
// (§6: "connections | — | — | SIGIO to master").

package main

import (
	"syscall"

	"github.com/spf13/cobra"

	"github.com/localzet/webcore/control"
)

func newConnectionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "connections",
		Short: "ask the master to dump open connections (SIGIO)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := control.LoadConfig(configPath)
			if err != nil {
				return err
			}
			pidFile := orDefault(cfg.PIDFile, "webcore.pid")
			return signalMaster(pidFile, syscall.SIGIO)
		},
	}
	return cmd
}
