// File: cmd/server/status.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// status sends SIGIOT; -d repeats the dump every few seconds until
// interrupted (§6: "status | repeat | — | SIGIOT to master").

package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/localzet/webcore/control"
)

func newStatusCmd() *cobra.Command {
	var repeat bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "ask the master to dump per-process status (SIGIOT)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := control.LoadConfig(configPath)
			if err != nil {
				return err
			}
			pidFile := orDefault(cfg.PIDFile, "webcore.pid")

			if !repeat {
				return signalMaster(pidFile, syscall.SIGIOT)
			}

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			ticker := time.NewTicker(2 * time.Second)
			defer ticker.Stop()

			for {
				if err := signalMaster(pidFile, syscall.SIGIOT); err != nil {
					return err
				}
				select {
				case <-ticker.C:
					continue
				case <-sigCh:
					return nil
				}
			}
		},
	}
	cmd.Flags().BoolVarP(&repeat, "repeat", "d", false, "repeat the status dump every few seconds until interrupted")
	return cmd
}
