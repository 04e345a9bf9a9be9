// File: control/config.go
// Package control implements the configuration/hot-reload/metrics layer
// whose reload reason and metrics the supervisor's statusfile (C10)
// reports.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Grounded on the teacher's control/config.go (ConfigStore's mutex-guarded
// map plus listener-dispatch shape satisfies api.Control's SetConfig/
// GetSnapshot/OnReload contract as-is), adapted here for this module's own
// use: keys are namespaced per listener so one store can hold every
// listener's live config side by side (SetListenerConfig/ListenerSnapshot),
// and a merge made through SetConfigReason records *why* it ran (LastReload)
// so the statusfile can report more than a bare timestamp.

package control

import (
	"sync"
	"time"

	"github.com/localzet/webcore/api"
)

// ReloadInfo records the reason and time of the most recent SetConfigReason.
type ReloadInfo struct {
	Reason string
	At     time.Time
}

// ConfigStore is a dynamic key/value map with atomic snapshot and
// listener-dispatch support, matching api.Control. Keys written through
// SetListenerConfig are namespaced "listener.<id>.<key>" so configuration
// for every listener this process runs can live in one store without
// collisions.
type ConfigStore struct {
	mu         sync.RWMutex
	config     map[string]any
	listeners  []func()
	lastReload ReloadInfo
}

const listenerKeyPrefix = "listener."

// NewConfigStore initializes a new config store with empty data.
func NewConfigStore() *ConfigStore {
	return &ConfigStore{
		config:    make(map[string]any),
		listeners: make([]func(), 0),
	}
}

// GetSnapshot returns a copy of all config values.
func (cs *ConfigStore) GetSnapshot() map[string]any {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	out := make(map[string]any, len(cs.config))
	for k, v := range cs.config {
		out[k] = v
	}
	return out
}

// SetConfig merges new values and dispatches reload listeners. The reload
// reason is left as whatever SetConfigReason last recorded (or empty, for
// a store that has never had a reason attached).
func (cs *ConfigStore) SetConfig(newCfg map[string]any) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.merge(newCfg)
	cs.dispatchReload()
}

// SetConfigReason merges new values exactly like SetConfig, additionally
// recording reason (e.g. "config file changed", "mime.types changed") and
// the current time for LastReload to report.
func (cs *ConfigStore) SetConfigReason(reason string, newCfg map[string]any) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.merge(newCfg)
	cs.lastReload = ReloadInfo{Reason: reason, At: time.Now()}
	cs.dispatchReload()
}

// LastReload reports the reason and time of the most recent SetConfigReason
// call; plain SetConfig calls do not change it. The zero value if
// SetConfigReason has never run.
func (cs *ConfigStore) LastReload() ReloadInfo {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.lastReload
}

// SetListenerConfig merges kv under a per-listener namespace, so several
// listeners' config can be tracked by the same store without their keys
// colliding (e.g. two listeners both reporting a "protocol" key).
func (cs *ConfigStore) SetListenerConfig(listenerID string, kv map[string]any) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	namespaced := make(map[string]any, len(kv))
	for k, v := range kv {
		namespaced[listenerKeyPrefix+listenerID+"."+k] = v
	}
	cs.merge(namespaced)
}

// ListenerSnapshot returns listenerID's config values with the namespace
// prefix stripped back off.
func (cs *ConfigStore) ListenerSnapshot(listenerID string) map[string]any {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	prefix := listenerKeyPrefix + listenerID + "."
	out := make(map[string]any)
	for k, v := range cs.config {
		if len(k) > len(prefix) && k[:len(prefix)] == prefix {
			out[k[len(prefix):]] = v
		}
	}
	return out
}

// OnReload registers a listener hook called whenever SetConfig runs.
func (cs *ConfigStore) OnReload(fn func()) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.listeners = append(cs.listeners, fn)
}

func (cs *ConfigStore) merge(newCfg map[string]any) {
	for k, v := range newCfg {
		cs.config[k] = v
	}
}

func (cs *ConfigStore) dispatchReload() {
	for _, fn := range cs.listeners {
		go fn()
	}
}

var _ api.Control = (*ConfigStore)(nil)
