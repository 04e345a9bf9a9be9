// File: pool/bufferpool.go
// Package pool
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Cross-platform BufferPool, adapted from the teacher's
// pool.BufferPoolManager. The teacher segmented pools per NUMA node and
// per-size allocator backend (linux/windows); this port drops that tier
// (see DESIGN.md) and keeps the part every Connection actually needs: a
// sync.Pool bucketed by rounded-up size class so read/write buffers are
// reused across connections without per-request GC pressure.

package pool

import (
	"sync"

	"github.com/localzet/webcore/api"
)

const minClass = 512

// BufferPool is a size-classed, sync.Pool-backed api.BufferPool.
type BufferPool struct {
	mu      sync.Mutex
	classes map[int]*sync.Pool
}

// New constructs an empty BufferPool.
func New() *BufferPool {
	return &BufferPool{classes: make(map[int]*sync.Pool)}
}

func classFor(n int) int {
	c := minClass
	for c < n {
		c <<= 1
	}
	return c
}

func (p *BufferPool) poolFor(class int) *sync.Pool {
	p.mu.Lock()
	defer p.mu.Unlock()
	sp, ok := p.classes[class]
	if !ok {
		sz := class
		sp = &sync.Pool{New: func() any { return make([]byte, sz) }}
		p.classes[class] = sp
	}
	return sp
}

// Get returns a []byte with length n, backed by a pooled buffer of the
// rounded-up size class, or a fresh allocation if none is classed yet.
func (p *BufferPool) Get(n int) []byte {
	class := classFor(n)
	buf := p.poolFor(class).Get().([]byte)
	return buf[:n]
}

// Put returns buf to its size class for reuse. Buffers smaller than
// minClass are not pooled (not worth the bookkeeping).
func (p *BufferPool) Put(buf []byte) {
	c := cap(buf)
	if c < minClass {
		return
	}
	class := classFor(c)
	if class != c {
		return
	}
	p.poolFor(class).Put(buf[:c])
}

var _ api.BufferPool = (*BufferPool)(nil)
