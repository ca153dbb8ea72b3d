package chat

import (
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/Tyrowin/acechat/internal/protocol"
)

var validate = newUsernameValidator()

func newUsernameValidator() *validator.Validate {
	v := validator.New()
	// "handle" restricts usernames to the wire-safe charset [A-Za-z0-9_-].
	_ = v.RegisterValidation("handle", func(fl validator.FieldLevel) bool {
		for _, r := range fl.Field().String() {
			switch {
			case r >= 'a' && r <= 'z':
			case r >= 'A' && r <= 'Z':
			case r >= '0' && r <= '9':
			case r == '_' || r == '-':
			default:
				return false
			}
		}
		return true
	})
	return v
}

type usernameClaim struct {
	Name string `validate:"required,max=10,handle"`
}

func validUsername(name string) bool {
	return validate.Struct(usernameClaim{Name: name}) == nil
}

// sessionRegistry owns the set of connected sessions and enforces the
// one-time-set and uniqueness rules for usernames. It is not safe for
// concurrent use on its own; the Core serializes access.
type sessionRegistry struct {
	ordered []*Session // registration order
	byName  map[string]*Session
}

func newSessionRegistry() *sessionRegistry {
	return &sessionRegistry{byName: make(map[string]*Session)}
}

// register creates a session with no username. It always succeeds.
func (r *sessionRegistry) register(conn Conn) *Session {
	s := &Session{
		id:       uuid.New(),
		conn:     conn,
		channels: make(map[string]struct{}),
	}
	r.ordered = append(r.ordered, s)
	return s
}

// setUsername binds a username to a session. The name is immutable once set
// and unique among live sessions.
func (r *sessionRegistry) setUsername(s *Session, name string) *protocol.Error {
	if s.authenticated() {
		return protocol.ErrUsernameAlreadySet()
	}
	if !validUsername(name) {
		return protocol.ErrInvalidUsername(name)
	}
	if _, taken := r.byName[name]; taken {
		return protocol.ErrUsernameTaken(name)
	}
	s.username = name
	r.byName[name] = s
	return nil
}

// lookup resolves a username to its live session.
func (r *sessionRegistry) lookup(name string) (*Session, bool) {
	s, ok := r.byName[name]
	return s, ok
}

// usernames returns all claimed usernames in registration order.
func (r *sessionRegistry) usernames() []string {
	named := lo.Filter(r.ordered, func(s *Session, _ int) bool {
		return s.authenticated()
	})
	return lo.Map(named, func(s *Session, _ int) string {
		return s.username
	})
}

// unregister removes the session. Callers must already have parted it from
// every channel; channel state is untouched here.
func (r *sessionRegistry) unregister(s *Session) {
	r.ordered = lo.Without(r.ordered, s)
	if s.authenticated() {
		delete(r.byName, s.username)
	}
}
