package protocol

import "fmt"

// Kind classifies a protocol error. Every kind is recoverable at the session
// level: the offending session gets an ERROR envelope and stays connected.
type Kind uint8

const (
	KindMalformedEnvelope Kind = iota
	KindUnknownCommand
	KindNotAuthenticated
	KindUsernameAlreadySet
	KindUsernameTaken
	KindInvalidUsernameFormat
	KindAlreadyInChannel
	KindNotInChannel
	KindArityOrTypeMismatch
)

// Error is a typed protocol error. Message is the human-readable text sent to
// the client in the ERROR envelope.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

// ErrMalformedEnvelope reports a frame whose command or args field is missing
// or mistyped.
func ErrMalformedEnvelope() *Error {
	return &Error{Kind: KindMalformedEnvelope, Message: "invalid message format"}
}

// ErrUnknownCommand reports a command outside the closed command set.
func ErrUnknownCommand(name string) *Error {
	return &Error{Kind: KindUnknownCommand, Message: fmt.Sprintf("command %s does not exist", name)}
}

// ErrNotAuthenticated reports a non-USER command before a username was set.
func ErrNotAuthenticated() *Error {
	return &Error{Kind: KindNotAuthenticated, Message: "must set username first"}
}

// ErrUsernameAlreadySet reports a second USER command on the same session.
func ErrUsernameAlreadySet() *Error {
	return &Error{Kind: KindUsernameAlreadySet, Message: "can only set username once"}
}

// ErrUsernameTaken reports a USER command naming a username another live
// session already holds.
func ErrUsernameTaken(name string) *Error {
	return &Error{Kind: KindUsernameTaken, Message: fmt.Sprintf("username %s is already taken", name)}
}

// ErrInvalidUsername reports a username that is empty, longer than ten
// characters, or contains characters outside [A-Za-z0-9_-].
func ErrInvalidUsername(name string) *Error {
	return &Error{Kind: KindInvalidUsernameFormat, Message: fmt.Sprintf("invalid username %s", name)}
}

// ErrAlreadyInChannel reports a JOIN for a channel the session is in.
func ErrAlreadyInChannel(channel string) *Error {
	return &Error{Kind: KindAlreadyInChannel, Message: fmt.Sprintf("already in channel %s", channel)}
}

// ErrNotInChannel reports a PART for a channel the session is not in.
func ErrNotInChannel(channel string) *Error {
	return &Error{Kind: KindNotInChannel, Message: fmt.Sprintf("not in channel %s", channel)}
}

// ErrBadArgs reports a per-command arity or argument-type mismatch. The wire
// text matches the envelope shape error; the kind keeps them distinguishable.
func ErrBadArgs() *Error {
	return &Error{Kind: KindArityOrTypeMismatch, Message: "invalid message format"}
}
