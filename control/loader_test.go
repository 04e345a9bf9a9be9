// File: control/loader_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package control

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/localzet/webcore/listener"
)

const sampleConfig = `
pidFile: webcore.pid
statusFile: webcore.status
mimeTypesFile: ""
listeners:
  - name: http-main
    scheme: tcp
    address: "0.0.0.0:8080"
    count: 4
    reloadable: true
    reusePort: true
    protocol: http
  - name: chat
    scheme: tcp
    address: "0.0.0.0:9000"
    count: 2
    protocol: websocket
`

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "webcore.yaml")
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoadConfig_ParsesListeners(t *testing.T) {
	path := writeTempConfig(t, sampleConfig)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if len(cfg.Listeners) != 2 {
		t.Fatalf("expected 2 listeners, got %d", len(cfg.Listeners))
	}
	if cfg.Listeners[0].Name != "http-main" || cfg.Listeners[0].Count != 4 {
		t.Fatalf("unexpected first listener: %#v", cfg.Listeners[0])
	}
	if cfg.PIDFile != "webcore.pid" || cfg.StatusFile != "webcore.status" {
		t.Fatalf("unexpected pidfile/statusfile: %q %q", cfg.PIDFile, cfg.StatusFile)
	}
}

func TestListenerConfig_ToSpec(t *testing.T) {
	lc := ListenerConfig{
		Name:       "http-main",
		Scheme:     "tcp",
		Address:    "0.0.0.0:8080",
		Count:      4,
		Reloadable: true,
		ReusePort:  true,
	}
	spec, err := lc.ToSpec()
	if err != nil {
		t.Fatalf("ToSpec: %v", err)
	}
	if spec.Scheme != listener.TransportTCP || spec.Address != "0.0.0.0:8080" {
		t.Fatalf("unexpected spec: %#v", spec)
	}
	if !spec.ReusePort || !spec.Reloadable || spec.Count != 4 {
		t.Fatalf("flags/count did not round-trip: %#v", spec)
	}
	if spec.TLSConfig != nil {
		t.Fatalf("expected no TLS config when TLS is unset")
	}
}

func TestListenerConfig_ToSpec_MissingTLSCert(t *testing.T) {
	lc := ListenerConfig{
		Name:    "ssl-listener",
		Scheme:  "ssl",
		Address: "0.0.0.0:8443",
		TLS:     &TLSOptions{CertFile: "/nonexistent/cert.pem", KeyFile: "/nonexistent/key.pem"},
	}
	if _, err := lc.ToSpec(); err == nil {
		t.Fatal("expected an error loading a nonexistent TLS keypair")
	}
}

func TestConfig_Dump_RoundTrips(t *testing.T) {
	path := writeTempConfig(t, sampleConfig)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	out, err := cfg.Dump()
	if err != nil {
		t.Fatalf("Dump: %v", err)
	}

	dumped := filepath.Join(t.TempDir(), "dumped.yaml")
	if err := os.WriteFile(dumped, out, 0644); err != nil {
		t.Fatalf("write dumped config: %v", err)
	}
	reloaded, err := LoadConfig(dumped)
	if err != nil {
		t.Fatalf("reload dumped config: %v", err)
	}
	if len(reloaded.Listeners) != len(cfg.Listeners) {
		t.Fatalf("listener count changed across dump/reload: %d vs %d", len(reloaded.Listeners), len(cfg.Listeners))
	}
}
