// File: api/handler.go
// Package api defines the user-facing callback surface (§3 Listener attributes).
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// Callbacks groups every hook a Listener may register. All are optional;
// a nil hook is simply not invoked. Every invocation is wrapped by the
// worker so that a panicking callback cannot escape to the event loop (§7).
type Callbacks struct {
	OnStart   func()
	OnConnect func(conn Connection)
	OnMessage func(conn Connection, msg any)
	OnClose   func(conn Connection)
	OnError   func(conn Connection, err *CallbackError)

	OnBufferFull  func(conn Connection)
	OnBufferDrain func(conn Connection)

	OnStop   func()
	OnReload func()
	OnExit   func()

	OnWebSocketConnect func(conn Connection, path string, headers map[string][]string)
	OnWebSocketPing    func(conn Connection, payload []byte)
	OnWebSocketPong    func(conn Connection, payload []byte)
	OnWebSocketClose   func(conn Connection, code int, reason string)
}

// ErrorHandler is the loop-wide backstop registered via EventLoop.SetErrorHandler (§4.1).
type ErrorHandler func(err error)
