// File: internal/session/doc.go
// Package session implements the Session layer (C7): a SessionStore
// capability contract, in-memory and file-backed stores, and the
// Session value that tracks a dirty bit across its name->value map.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package session
