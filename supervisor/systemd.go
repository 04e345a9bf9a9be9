// File: supervisor/systemd.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// systemdActivationFiles adopts LISTEN_FDS-passed sockets instead of
// binding fresh ones, matching
// Ankit-Kulkarni-go-experiments/graceful_restarts/systemd-socket-activation's
// use of go-systemd/activation. Unlike that demo (one anonymous listener),
// the master has several listeners to place, so files are matched to specs
// positionally in Specs order — systemd unit files that declare sockets in
// the same order the YAML config lists listeners get the mapping for free.

package supervisor

import (
	"os"

	"github.com/coreos/go-systemd/v22/activation"
)

// systemdActivationFiles returns the socket files systemd passed to this
// process (empty, no error, if LISTEN_PID/LISTEN_FDS aren't set), keyed by
// listener.Spec.ID() in the order m.Specs lists non-reusePort listeners.
func systemdActivationFiles() (map[string]*os.File, error) {
	files := activation.Files(true)
	if len(files) == 0 {
		return nil, nil
	}
	return matchActivationFiles(files, currentSpecOrder), nil
}

// currentSpecOrder is set by Master.Start before calling
// systemdActivationFiles, since activation.Files has no notion of specs.
var currentSpecOrder []string

func matchActivationFiles(files []*os.File, ids []string) map[string]*os.File {
	out := make(map[string]*os.File, len(files))
	for i, f := range files {
		if i >= len(ids) {
			break
		}
		out[ids[i]] = f
	}
	return out
}
