// Package chat implements the AceChat core: the session and channel
// registries, the command dispatcher, the broadcast engine, and disconnect
// cleanup. The core is transport-agnostic; it receives parsed envelopes,
// mutates registry state under a single lock, and pushes outbound frames
// through each session's Conn handle.
package chat

import "github.com/google/uuid"

// Conn is the transport handle for one connected client. Send must never
// block: it enqueues one serialized frame and reports false when the
// connection is gone or its outbound buffer is full.
type Conn interface {
	Send(payload []byte) bool
}

// Session is the server-side state for one connected client. All fields
// except the immutable id and conn are guarded by the owning Core's lock.
type Session struct {
	id       uuid.UUID
	conn     Conn
	username string
	channels map[string]struct{}

	// closing is set when disconnect cleanup begins; envelopes dispatched
	// after that point are dropped.
	closing bool
}

// ID returns the session's connection identifier, assigned at registration.
func (s *Session) ID() uuid.UUID { return s.id }

// Username returns the session's username, or "" before USER succeeds.
func (s *Session) Username() string { return s.username }

func (s *Session) authenticated() bool { return s.username != "" }

func (s *Session) inChannel(name string) bool {
	_, ok := s.channels[name]
	return ok
}
