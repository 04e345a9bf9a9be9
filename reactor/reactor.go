// File: reactor/reactor.go
// Package reactor
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Doc-only file: see reactor_linux.go for the epoll(7) implementation and
// reactor_stub.go for the portable fallback used on non-Linux GOOS, matching
// spec.md's "a POSIX-only implementation is acceptable" open question.

package reactor

import "github.com/localzet/webcore/api"

// New constructs the platform Reactor. On Linux this is epoll-backed; on
// every other GOOS it falls back to a stub whose Poll only sleeps, enough
// to keep non-Linux development builds compiling, never for production load.
func New() (api.Reactor, error) {
	return newPlatformReactor()
}
