// File: cmd/server/main.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// main dispatches between the worker re-exec path (env-gated, matching
// supervisor.spawnChild's WEBCORE_WORKER=1) and the cobra CLI surface
// (§6: start|stop|restart|reload|status|connections).

package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/localzet/webcore/supervisor"
)

func main() {
	if supervisor.IsWorker() {
		if err := runWorkerProcess(); err != nil {
			logrus.WithError(err).Error("worker exited with error")
			os.Exit(1)
		}
		return
	}

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runWorkerProcess() error {
	configPath := os.Getenv("WEBCORE_CONFIG_FILE")
	if configPath == "" {
		configPath = defaultConfigPath
	}
	log := logrus.WithField("component", "worker-bootstrap")
	rt, err := buildRuntime(configPath, log)
	if err != nil {
		return err
	}
	return supervisor.RunWorker(rt.specs)
}
