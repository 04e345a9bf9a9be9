// File: cmd/server/config.go
// Package main is the `webcore` binary entrypoint: a cobra CLI (§6) for
// the master process plus the worker re-exec path, sharing one code path
// that turns a YAML config into live listener.Spec values.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/localzet/webcore/api"
	"github.com/localzet/webcore/control"
	"github.com/localzet/webcore/internal/httpserver"
	"github.com/localzet/webcore/internal/websocket"
	"github.com/localzet/webcore/listener"
	"github.com/localzet/webcore/pool"
	"github.com/localzet/webcore/protocol"
)

const defaultConfigPath = "webcore.yaml"

// runtime bundles everything buildRuntime derives from a config file, so
// both the master (start command) and a re-exec'd worker construct
// byte-for-byte identical listener.Spec values.
type runtime struct {
	cfg       *control.Config
	mimeTable *httpserver.MimeTable
	specs     []listener.Spec
}

func buildRuntime(configPath string, log *logrus.Entry) (*runtime, error) {
	cfg, err := control.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	mimeTable := httpserver.NewMimeTable()
	if cfg.MimeTypesFile != "" {
		raw, err := os.ReadFile(cfg.MimeTypesFile)
		if err != nil {
			return nil, fmt.Errorf("cmd/server: read mime.types override: %w", err)
		}
		mimeTable.Reload(string(raw))
	}

	bufPool := pool.New()

	specs := make([]listener.Spec, 0, len(cfg.Listeners))
	for _, lc := range cfg.Listeners {
		spec, err := lc.ToSpec()
		if err != nil {
			return nil, err
		}
		spec.Pool = bufPool
		spec.Protocol = protocolFor(lc.Protocol, mimeTable)
		spec.Callbacks = defaultCallbacks(log.WithField("listener", lc.Name))
		if lc.Protocol == "websocket" {
			spec.Callbacks = websocket.Wrap(spec.Callbacks)
		}
		specs = append(specs, spec)
	}

	return &runtime{cfg: cfg, mimeTable: mimeTable, specs: specs}, nil
}

func protocolFor(name string, mimeTable *httpserver.MimeTable) api.Protocol {
	switch name {
	case "frame":
		return protocol.NewFrame()
	case "http":
		p := httpserver.NewProtocol(0)
		p.MimeTable = mimeTable
		return p
	case "websocket":
		return websocket.NewServer()
	default:
		return protocol.NewText()
	}
}

// defaultCallbacks gives every listener basic lifecycle logging so a
// config entry with no user-attached handler still does something
// observable; real deployments override this by constructing their own
// []listener.Spec and driving supervisor.New directly instead of going
// through this CLI's YAML loader.
func defaultCallbacks(log *logrus.Entry) *api.Callbacks {
	return &api.Callbacks{
		OnStart: func() { log.Info("listener started") },
		OnConnect: func(conn api.Connection) {
			log.WithField("cid", conn.ID()).Debug("connection opened")
		},
		OnClose: func(conn api.Connection) {
			log.WithField("cid", conn.ID()).Debug("connection closed")
		},
		OnError: func(conn api.Connection, err *api.CallbackError) {
			log.WithError(err).Warn("connection error")
		},
		OnStop: func() { log.Info("listener stopped") },
	}
}
