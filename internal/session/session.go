// File: internal/session/session.go
// Package session
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Session is the decoded-map + dirty-bit object named in spec.md §3/§4.7:
// every mutator marks the session dirty; Save persists iff dirty (destroying
// the backing entry if the map ended up empty), otherwise it optionally
// refreshes the store's timestamp. A destroy rolls GCProbability[0]/[1]
// odds to trigger the store's GC.
//
// Grounded on the teacher's sessionImpl (internal/session/session.go):
// same id/dirty-on-mutate shape, generalized from an in-memory-only
// cancellation object into one that round-trips through a SessionStore
// via gob encoding.

package session

import (
	"bytes"
	"crypto/rand"
	"encoding/gob"
	mathrand "math/rand"
	"sync"
	"time"
)

const idAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// NewID generates a session id matching ^[A-Za-z0-9]+$ (§3).
func NewID() string {
	const length = 32
	buf := make([]byte, length)
	rand.Read(buf)
	out := make([]byte, length)
	for i, b := range buf {
		out[i] = idAlphabet[int(b)%len(idAlphabet)]
	}
	return string(out)
}

// CookieParams are the process-wide session cookie attributes (§4.7),
// initialized from environment defaults if present.
type CookieParams struct {
	Name     string
	Lifetime time.Duration
	Path     string
	Domain   string
	Secure   bool
	HTTPOnly bool
	SameSite string
}

// DefaultCookieParams returns the process-wide cookie defaults, overridden
// by SESSION_COOKIE_* environment variables when set.
func DefaultCookieParams() CookieParams {
	return CookieParams{
		Name:     envOr("SESSION_COOKIE_NAME", "WEBCORE_SESSID"),
		Lifetime: envDuration("SESSION_COOKIE_LIFETIME", 0),
		Path:     envOr("SESSION_COOKIE_PATH", "/"),
		Domain:   envOr("SESSION_COOKIE_DOMAIN", ""),
		Secure:   envBool("SESSION_COOKIE_SECURE", false),
		HTTPOnly: envBool("SESSION_COOKIE_HTTPONLY", true),
		SameSite: envOr("SESSION_COOKIE_SAMESITE", "Lax"),
	}
}

// Session holds a decoded name->value map, a dirty bit, and the GC/cookie
// parameters that govern Save (§4.7).
type Session struct {
	mu sync.Mutex

	id    string
	store SessionStore
	data  map[string]any
	dirty bool

	// AutoUpdateTimestamp refreshes the store's last-touched time on a
	// non-dirty Save, keeping an otherwise-unchanged session alive.
	AutoUpdateTimestamp bool

	// GCProbability[0]/GCProbability[1] is the odds a Destroy triggers
	// store.GC(MaxLifetime) (§3 "Session").
	GCProbability [2]int
	MaxLifetime   time.Duration

	Cookie CookieParams
}

// Load reads id's bytes from store (if any) and decodes them into a
// Session. A store miss yields a fresh, empty (non-dirty) session.
func Load(store SessionStore, id string) (*Session, error) {
	raw, err := store.Read(id)
	if err != nil {
		return nil, err
	}
	data := make(map[string]any)
	if len(raw) > 0 {
		dec := gob.NewDecoder(bytes.NewReader(raw))
		if err := dec.Decode(&data); err != nil {
			return nil, err
		}
	}
	return &Session{
		id:            id,
		store:         store,
		data:          data,
		GCProbability: [2]int{1, 1000},
		MaxLifetime:   24 * time.Hour,
		Cookie:        DefaultCookieParams(),
	}, nil
}

// ID returns the session's identifier.
func (s *Session) ID() string { return s.id }

// Get returns the value stored under key.
func (s *Session) Get(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	return v, ok
}

// Set assigns a value, marking the session dirty.
func (s *Session) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	s.dirty = true
}

// Delete removes a key, marking the session dirty.
func (s *Session) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[key]; !ok {
		return
	}
	delete(s.data, key)
	s.dirty = true
}

// Dirty reports whether the session has unsaved mutations.
func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// Save persists the session iff dirty: an empty dirty map destroys the
// backing entry (rolling GC odds), otherwise the map is gob-encoded and
// written. A non-dirty Save refreshes the store's timestamp when
// AutoUpdateTimestamp is set (§4.7).
func (s *Session) Save() error {
	s.mu.Lock()
	dirty := s.dirty
	empty := len(s.data) == 0
	var encoded []byte
	if dirty && !empty {
		var buf bytes.Buffer
		if err := gob.NewEncoder(&buf).Encode(s.data); err != nil {
			s.mu.Unlock()
			return err
		}
		encoded = buf.Bytes()
	}
	s.dirty = false
	s.mu.Unlock()

	if !dirty {
		if s.AutoUpdateTimestamp {
			return s.store.UpdateTimestamp(s.id)
		}
		return nil
	}

	if empty {
		if err := s.store.Destroy(s.id); err != nil {
			return err
		}
		s.maybeGC()
		return nil
	}

	return s.store.Write(s.id, encoded)
}

// Destroy unconditionally removes the session from its store and rolls
// GC odds, regardless of the dirty bit.
func (s *Session) Destroy() error {
	if err := s.store.Destroy(s.id); err != nil {
		return err
	}
	s.maybeGC()
	return nil
}

func (s *Session) maybeGC() {
	num, den := s.GCProbability[0], s.GCProbability[1]
	if num <= 0 || den <= 0 {
		return
	}
	if mathrand.Intn(den) < num {
		s.store.GC(s.MaxLifetime)
	}
}
