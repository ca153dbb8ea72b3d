package chat

import (
	"log/slog"
	"sync"
	"time"

	"github.com/Tyrowin/acechat/internal/protocol"
)

// command is the closed set of protocol commands. Keeping it as an enum with
// an exhaustive switch makes adding or removing a command a compile-time
// checked change.
type command uint8

const (
	cmdUnknown command = iota
	cmdUser
	cmdUserList
	cmdMsg
	cmdPrivMsg
	cmdJoin
	cmdPart
	cmdInvite
	cmdChanList
)

func parseCommand(name string) command {
	switch name {
	case protocol.CmdUser:
		return cmdUser
	case protocol.CmdUserList:
		return cmdUserList
	case protocol.CmdMsg:
		return cmdMsg
	case protocol.CmdPrivMsg:
		return cmdPrivMsg
	case protocol.CmdJoin:
		return cmdJoin
	case protocol.CmdPart:
		return cmdPart
	case protocol.CmdInvite:
		return cmdInvite
	case protocol.CmdChanList:
		return cmdChanList
	default:
		return cmdUnknown
	}
}

// Core is the session/channel state machine and command-dispatch engine. All
// registry mutations and recipient-set computations happen under one lock, so
// the username-uniqueness and membership invariants hold at every observation
// point. Outbound delivery is non-blocking per recipient, so a stalled
// connection never delays the rest of a broadcast.
type Core struct {
	mu       sync.Mutex
	sessions *sessionRegistry
	channels *channelRegistry
	log      *slog.Logger
	now      func() time.Time
}

// NewCore creates a core with empty registries.
func NewCore(log *slog.Logger) *Core {
	if log == nil {
		log = slog.Default()
	}
	return &Core{
		sessions: newSessionRegistry(),
		channels: newChannelRegistry(),
		log:      log.With("component", "core"),
		now:      time.Now,
	}
}

// Connect registers a new unauthenticated session for the given transport
// handle.
func (c *Core) Connect(conn Conn) *Session {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.sessions.register(conn)
	c.log.Info("session connected", "session", s.id)
	return s
}

// OnEnvelope dispatches one parsed envelope from a session. Shape errors,
// gating errors, unknown commands, and handler failures all produce an ERROR
// envelope back to the sender and leave shared state untouched.
func (c *Core) OnEnvelope(s *Session, env protocol.Envelope) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if s.closing {
		return
	}

	cmd := parseCommand(env.Command)

	// Pre-authentication gate: only USER is allowed before a username is
	// set, and that includes commands outside the closed set.
	if !s.authenticated() && cmd != cmdUser {
		c.sendError(s, protocol.ErrNotAuthenticated())
		return
	}

	switch cmd {
	case cmdUser:
		c.handleUser(s, env.Args)
	case cmdUserList:
		c.handleUserList(s, env.Args)
	case cmdMsg:
		c.handleMsg(s, env.Args)
	case cmdPrivMsg:
		c.handlePrivMsg(s, env.Args)
	case cmdJoin:
		c.handleJoin(s, env.Args)
	case cmdPart:
		c.handlePart(s, env.Args)
	case cmdInvite:
		c.handleInvite(s, env.Args)
	case cmdChanList:
		c.handleChanList(s, env.Args)
	case cmdUnknown:
		c.sendError(s, protocol.ErrUnknownCommand(env.Command))
	}
}

// OnDisconnect runs disconnect cleanup for a session: part every joined
// channel, notifying the remaining members and deleting channels left empty,
// then drop the session from the registry. The whole sequence holds the core
// lock, so no command from any session observes a half-removed member and no
// further envelope from this session is dispatched once cleanup has begun.
func (c *Core) OnDisconnect(s *Session) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if s.closing {
		return
	}
	s.closing = true

	for _, name := range c.channels.names() {
		if !s.inChannel(name) {
			continue
		}
		remaining, perr := c.channels.part(s, name)
		if perr != nil {
			continue
		}
		c.broadcast(remaining, nil, protocol.Envelope{
			Command: protocol.CmdPart,
			User:    s.username,
			Args:    append([]string{name}, c.namesOf(remaining)...),
		})
	}

	c.sessions.unregister(s)
	c.log.Info("session disconnected", "session", s.id, "username", s.username)
}

// Usernames returns a snapshot of all claimed usernames in registration
// order.
func (c *Core) Usernames() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessions.usernames()
}

// ChannelNames returns a snapshot of existing channel names in creation
// order.
func (c *Core) ChannelNames() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.channels.names()
}
