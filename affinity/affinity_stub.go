//go:build !linux

// File: affinity/affinity_stub.go
// Package affinity
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package affinity

import "github.com/localzet/webcore/api"

type noopAffinity struct{}

// New constructs a no-op Affinity pinner for non-Linux GOOS.
func New() api.Affinity { return &noopAffinity{} }

func (noopAffinity) Pin(cpu int) error { return nil }
func (noopAffinity) Unpin() error      { return nil }
