// Package protocol defines the JSON envelope exchanged between AceChat
// clients and the server, along with the strict inbound decoder and the
// protocol error taxonomy.
package protocol

import "encoding/json"

// Wire command names. The dispatcher maps these onto its closed command set;
// everything else is rejected as an unknown command.
const (
	CmdUser     = "USER"
	CmdUserList = "USERLIST"
	CmdMsg      = "MSG"
	CmdPrivMsg  = "PRIVMSG"
	CmdJoin     = "JOIN"
	CmdPart     = "PART"
	CmdInvite   = "INVITE"
	CmdChanList = "CHANLIST"
	CmdError    = "ERROR"
)

// Envelope is one protocol message. User and Timestamp are server-stamped on
// outbound envelopes and ignored on inbound ones.
type Envelope struct {
	Command   string   `json:"command"`
	Args      []string `json:"args"`
	User      string   `json:"user,omitempty"`
	Timestamp int64    `json:"timestamp,omitempty"`
}

// wireEnvelope distinguishes absent fields from empty ones so that a missing
// command or args list is rejected rather than defaulted.
type wireEnvelope struct {
	Command *string   `json:"command"`
	Args    *[]string `json:"args"`
}

// Decode parses one inbound frame. It enforces the envelope shape only:
// command present and a string, args present and an array of strings.
// Per-command arity checks belong to the command handlers. Any client-sent
// user or timestamp field is dropped here.
func Decode(data []byte) (Envelope, error) {
	var w wireEnvelope
	if err := json.Unmarshal(data, &w); err != nil {
		return Envelope{}, ErrMalformedEnvelope()
	}
	if w.Command == nil || w.Args == nil {
		return Envelope{}, ErrMalformedEnvelope()
	}
	return Envelope{Command: *w.Command, Args: *w.Args}, nil
}

// Encode serializes an envelope to one wire frame.
func Encode(env Envelope) ([]byte, error) {
	return json.Marshal(env)
}

// ErrorEnvelope builds the ERROR reply for a protocol error.
func ErrorEnvelope(err *Error) Envelope {
	return Envelope{Command: CmdError, Args: []string{err.Message}}
}
