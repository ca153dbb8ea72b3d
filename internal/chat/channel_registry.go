package chat

import (
	"github.com/samber/lo"

	"github.com/Tyrowin/acechat/internal/protocol"
)

// channel is a named broadcast group. Members are kept in join order so that
// member-list snapshots are deterministic.
type channel struct {
	name    string
	members []*Session
}

// channelRegistry owns the channel -> member-set mapping. Channels are
// created lazily on first join and deleted the moment the last member
// leaves: a channel entity never exists with zero members. Membership is
// mirrored into each session's joined-channel set so the two stay mutual
// inverses. Not safe for concurrent use on its own; the Core serializes
// access.
type channelRegistry struct {
	channels map[string]*channel
	ordered  []string // creation order
}

func newChannelRegistry() *channelRegistry {
	return &channelRegistry{channels: make(map[string]*channel)}
}

// join adds the session to the channel, creating the channel if absent, and
// returns the updated member set for broadcast.
func (r *channelRegistry) join(s *Session, name string) ([]*Session, *protocol.Error) {
	if s.inChannel(name) {
		return nil, protocol.ErrAlreadyInChannel(name)
	}
	ch, ok := r.channels[name]
	if !ok {
		ch = &channel{name: name}
		r.channels[name] = ch
		r.ordered = append(r.ordered, name)
	}
	ch.members = append(ch.members, s)
	s.channels[name] = struct{}{}
	return ch.members, nil
}

// part removes the session from the channel and returns the remaining member
// set for broadcast (possibly empty). When the last member leaves, the
// channel entity is deleted immediately.
func (r *channelRegistry) part(s *Session, name string) ([]*Session, *protocol.Error) {
	ch, ok := r.channels[name]
	if !ok || !s.inChannel(name) {
		return nil, protocol.ErrNotInChannel(name)
	}
	ch.members = lo.Without(ch.members, s)
	delete(s.channels, name)
	if len(ch.members) == 0 {
		delete(r.channels, name)
		r.ordered = lo.Without(r.ordered, name)
	}
	return ch.members, nil
}

// membersOf returns the channel's member set. An absent channel yields an
// empty set, not an error: readers treat "no members" and "never created"
// identically.
func (r *channelRegistry) membersOf(name string) []*Session {
	ch, ok := r.channels[name]
	if !ok {
		return nil
	}
	return ch.members
}

// names returns the existing channel names in creation order.
func (r *channelRegistry) names() []string {
	return append([]string(nil), r.ordered...)
}
