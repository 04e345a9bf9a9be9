// File: cmd/server/start.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// start bootstraps the master (§4.8). -d re-execs the process detached
// from the controlling terminal (Setsid, stdio to /dev/null) and returns
// immediately — Go has no fork(), so daemonizing is done the way the
// graceful_restarts pack examples do process handoff: re-exec plus
// explicit session detachment rather than a raw syscall.Fork.

package main

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/localzet/webcore/control"
	"github.com/localzet/webcore/supervisor"
)

func newStartCmd() *cobra.Command {
	var daemonize bool
	cmd := &cobra.Command{
		Use:   "start",
		Short: "bootstrap the master process",
		RunE: func(cmd *cobra.Command, args []string) error {
			if daemonize && os.Getenv("WEBCORE_DAEMONIZED") != "1" {
				return daemonizeSelf()
			}
			return startMaster()
		},
	}
	cmd.Flags().BoolVarP(&daemonize, "daemonize", "d", false, "daemonize: detach into the background")
	return cmd
}

func daemonizeSelf() error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("cmd/server: resolve executable: %w", err)
	}
	devnull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		return err
	}
	defer devnull.Close()

	child := exec.Command(exe, os.Args[1:]...)
	child.Env = append(os.Environ(), "WEBCORE_DAEMONIZED=1")
	child.Stdin = devnull
	child.Stdout = devnull
	child.Stderr = devnull
	child.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := child.Start(); err != nil {
		return fmt.Errorf("cmd/server: daemonize: %w", err)
	}
	fmt.Printf("webcore: started in background, pid %d\n", child.Process.Pid)
	return nil
}

func startMaster() error {
	log := logrus.WithField("component", "cli-start")
	rt, err := buildRuntime(configPath, log)
	if err != nil {
		return err
	}

	pidFile := orDefault(rt.cfg.PIDFile, "webcore.pid")
	statusFile := orDefault(rt.cfg.StatusFile, "webcore.status")

	m := supervisor.New(rt.specs, pidFile, statusFile)
	m.ConfigFile = configPath
	m.Config = control.NewConfigStore()
	m.Metrics = control.NewMetricsRegistry()
	for _, lc := range rt.cfg.Listeners {
		m.Config.SetListenerConfig(lc.Name, map[string]any{
			"protocol":       lc.Protocol,
			"address":        lc.Address,
			"count":          lc.Count,
			"reloadable":     lc.Reloadable,
			"maxPackageSize": lc.MaxPackageSize,
		})
	}

	if rt.cfg.BinaryUpgrade {
		if err := m.EnableBinaryUpgrade(); err != nil {
			log.WithError(err).Warn("binary upgrade unavailable, SIGUSR2 will only recycle workers")
		}
	}

	stopProbe := control.StartRuntimeProbe(m.Metrics, 5*time.Second)
	defer stopProbe()

	if watcher, err := control.NewWatcher(); err != nil {
		log.WithError(err).Warn("config hot-reload watcher unavailable")
	} else {
		defer watcher.Close()
		watcher.Watch(configPath, func() {
			m.Config.SetConfigReason("config file changed", map[string]any{"config_changed_at": time.Now().Format(time.RFC3339)})
		})
		if rt.cfg.MimeTypesFile != "" {
			watcher.Watch(rt.cfg.MimeTypesFile, func() {
				raw, err := os.ReadFile(rt.cfg.MimeTypesFile)
				if err != nil {
					log.WithError(err).Warn("mime.types reload failed")
					return
				}
				rt.mimeTable.Reload(string(raw))
				m.Config.SetConfigReason("mime.types changed", map[string]any{"mime_types_reloaded_at": time.Now().Format(time.RFC3339)})
				log.Info("mime.types reloaded")
			})
		}
	}

	return m.Start()
}
