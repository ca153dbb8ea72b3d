package chat

import (
	"github.com/samber/lo"

	"github.com/Tyrowin/acechat/internal/protocol"
)

// Command handlers. Every handler runs under the core lock, checks its own
// argument arity, and resolves its recipient set before any delivery is
// issued. Delivery failures are a transport concern; the registries are
// never rolled back for them.

// handleUser claims the session's username and echoes the accepted envelope
// back to the caller.
func (c *Core) handleUser(s *Session, args []string) {
	if len(args) != 1 {
		c.sendError(s, protocol.ErrBadArgs())
		return
	}
	name := args[0]
	if perr := c.sessions.setUsername(s, name); perr != nil {
		c.sendError(s, perr)
		return
	}
	c.log.Info("username claimed", "session", s.id, "username", name)
	c.send(s, protocol.Envelope{
		Command: protocol.CmdUser,
		User:    name,
		Args:    []string{name},
	})
}

// handleUserList replies with every claimed username on the server.
func (c *Core) handleUserList(s *Session, args []string) {
	if len(args) != 0 {
		c.sendError(s, protocol.ErrBadArgs())
		return
	}
	c.send(s, protocol.Envelope{
		Command: protocol.CmdUserList,
		User:    s.username,
		Args:    c.sessions.usernames(),
	})
}

// handleMsg broadcasts a message to a channel the sender is a member of.
// Messages to channels the sender is not in are dropped without a reply.
func (c *Core) handleMsg(s *Session, args []string) {
	if len(args) != 2 {
		c.sendError(s, protocol.ErrBadArgs())
		return
	}
	name, text := args[0], args[1]
	if !s.inChannel(name) {
		return
	}
	c.broadcast(c.channels.membersOf(name), s, protocol.Envelope{
		Command: protocol.CmdMsg,
		User:    s.username,
		Args:    []string{name, text},
	})
}

// handlePrivMsg delivers a message to a single named user. Unknown
// recipients are dropped without a reply.
func (c *Core) handlePrivMsg(s *Session, args []string) {
	if len(args) != 2 {
		c.sendError(s, protocol.ErrBadArgs())
		return
	}
	recipient, text := args[0], args[1]
	to, ok := c.sessions.lookup(recipient)
	if !ok {
		return
	}
	c.send(to, protocol.Envelope{
		Command: protocol.CmdPrivMsg,
		User:    s.username,
		Args:    []string{recipient, text},
	})
}

// handleJoin joins the session to each named channel in turn. Every current
// member, the joiner included, gets a JOIN envelope carrying the channel and
// the updated member list. A channel that fails only errors the caller; the
// remaining names are still processed.
func (c *Core) handleJoin(s *Session, args []string) {
	if len(args) == 0 {
		c.sendError(s, protocol.ErrBadArgs())
		return
	}
	for _, name := range args {
		members, perr := c.channels.join(s, name)
		if perr != nil {
			c.sendError(s, perr)
			continue
		}
		c.broadcast(members, nil, protocol.Envelope{
			Command: protocol.CmdJoin,
			User:    s.username,
			Args:    append([]string{name}, c.namesOf(members)...),
		})
	}
}

// handlePart removes the session from each named channel in turn, notifying
// the remaining members with the updated member list. As with JOIN, a failed
// name only errors the caller.
func (c *Core) handlePart(s *Session, args []string) {
	if len(args) == 0 {
		c.sendError(s, protocol.ErrBadArgs())
		return
	}
	for _, name := range args {
		remaining, perr := c.channels.part(s, name)
		if perr != nil {
			c.sendError(s, perr)
			continue
		}
		c.broadcast(remaining, nil, protocol.Envelope{
			Command: protocol.CmdPart,
			User:    s.username,
			Args:    append([]string{name}, c.namesOf(remaining)...),
		})
	}
}

// handleInvite sends an INVITE for a channel to each named user that
// currently exists. Unknown usernames are skipped. Membership of the inviter
// is not checked.
func (c *Core) handleInvite(s *Session, args []string) {
	if len(args) < 2 {
		c.sendError(s, protocol.ErrBadArgs())
		return
	}
	name := args[0]
	for _, username := range args[1:] {
		to, ok := c.sessions.lookup(username)
		if !ok {
			continue
		}
		c.send(to, protocol.Envelope{
			Command: protocol.CmdInvite,
			User:    s.username,
			Args:    []string{name},
		})
	}
}

// handleChanList replies with every existing channel name.
func (c *Core) handleChanList(s *Session, args []string) {
	if len(args) != 0 {
		c.sendError(s, protocol.ErrBadArgs())
		return
	}
	c.send(s, protocol.Envelope{
		Command: protocol.CmdChanList,
		User:    s.username,
		Args:    c.channels.names(),
	})
}

func (c *Core) namesOf(members []*Session) []string {
	return lo.Map(members, func(m *Session, _ int) string {
		return m.username
	})
}

// send stamps, serializes, and enqueues one envelope for one session.
func (c *Core) send(to *Session, env protocol.Envelope) {
	env.Timestamp = c.now().Unix()
	payload, err := protocol.Encode(env)
	if err != nil {
		c.log.Error("failed to encode envelope", "command", env.Command, "error", err)
		return
	}
	if !to.conn.Send(payload) {
		c.log.Warn("dropping envelope for unreachable session",
			"session", to.id, "username", to.username, "command", env.Command)
	}
}

// broadcast delivers one envelope to every listed member, optionally
// skipping the sender. The envelope is stamped and serialized once; each
// enqueue is non-blocking, so one stalled recipient cannot hold up the rest.
func (c *Core) broadcast(members []*Session, skip *Session, env protocol.Envelope) {
	env.Timestamp = c.now().Unix()
	payload, err := protocol.Encode(env)
	if err != nil {
		c.log.Error("failed to encode envelope", "command", env.Command, "error", err)
		return
	}
	for _, m := range members {
		if m == skip {
			continue
		}
		if !m.conn.Send(payload) {
			c.log.Warn("dropping envelope for unreachable session",
				"session", m.id, "username", m.username, "command", env.Command)
		}
	}
}

// sendError replies to the offending session with an ERROR envelope. Shared
// state is never changed on the error path.
func (c *Core) sendError(s *Session, perr *protocol.Error) {
	c.log.Debug("protocol error", "session", s.id, "error", perr.Message)
	c.send(s, protocol.ErrorEnvelope(perr))
}
