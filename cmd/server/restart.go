// File: cmd/server/restart.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// restart is stop followed by start, polling for the pidfile's removal
// (the master unlinks it once every child has exited, §4.2 monitor loop)
// before re-bootstrapping, rather than a blind fixed sleep.

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/localzet/webcore/control"
)

func newRestartCmd() *cobra.Command {
	var daemonize, graceful bool
	cmd := &cobra.Command{
		Use:   "restart",
		Short: "stop then start the master",
		RunE: func(cmd *cobra.Command, args []string) error {
			if os.Getenv("WEBCORE_DAEMONIZED") == "1" {
				// re-exec'd by daemonizeSelf below: the stop phase already ran
				return startMaster()
			}
			cfg, err := control.LoadConfig(configPath)
			if err != nil {
				return err
			}
			pidFile := orDefault(cfg.PIDFile, "webcore.pid")

			if err := stopMaster(graceful); err != nil {
				return err
			}
			if err := waitForPIDFileGone(pidFile, 30*time.Second); err != nil {
				return err
			}
			if daemonize {
				return daemonizeSelf()
			}
			return startMaster()
		},
	}
	cmd.Flags().BoolVarP(&daemonize, "daemonize", "d", false, "daemonize after stopping")
	cmd.Flags().BoolVarP(&graceful, "graceful", "g", false, "graceful stop phase (SIGQUIT) before restarting")
	return cmd
}

func waitForPIDFileGone(pidFile string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(pidFile); os.IsNotExist(err) {
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("cmd/server: master did not shut down within %s", timeout)
}
