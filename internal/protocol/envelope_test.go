package protocol

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecode_ValidEnvelope(t *testing.T) {
	req := require.New(t)

	env, err := Decode([]byte(`{"command":"USER","args":["dan"]}`))

	req.NoError(err)
	req.Equal("USER", env.Command)
	req.Equal([]string{"dan"}, env.Args)
}

func TestDecode_EmptyArgs(t *testing.T) {
	req := require.New(t)

	env, err := Decode([]byte(`{"command":"USERLIST","args":[]}`))

	req.NoError(err)
	req.Equal("USERLIST", env.Command)
	req.Empty(env.Args)
	req.NotNil(env.Args)
}

func TestDecode_IgnoresClientUserAndTimestamp(t *testing.T) {
	req := require.New(t)

	env, err := Decode([]byte(`{"command":"MSG","args":["general","hi"],"user":"spoofed","timestamp":123}`))

	req.NoError(err)
	req.Empty(env.User)
	req.Zero(env.Timestamp)
}

func TestDecode_MalformedEnvelopes(t *testing.T) {
	cases := []struct {
		name string
		data string
	}{
		{"not json", `hello`},
		{"missing command", `{"args":[]}`},
		{"missing args", `{"command":"USER"}`},
		{"command not a string", `{"command":5,"args":[]}`},
		{"args not an array", `{"command":"USER","args":"dan"}`},
		{"args element not a string", `{"command":"USER","args":[1]}`},
		{"null command", `{"command":null,"args":[]}`},
		{"null args", `{"command":"USER","args":null}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := require.New(t)

			_, err := Decode([]byte(tc.data))

			req.Error(err)
			var perr *Error
			req.ErrorAs(err, &perr)
			req.Equal(KindMalformedEnvelope, perr.Kind)
			req.Equal("invalid message format", perr.Message)
		})
	}
}

func TestEncode_OmitsUnsetMetadata(t *testing.T) {
	req := require.New(t)

	data, err := Encode(Envelope{Command: CmdError, Args: []string{"boom"}})

	req.NoError(err)
	req.JSONEq(`{"command":"ERROR","args":["boom"]}`, string(data))
}

func TestEncode_IncludesStampedMetadata(t *testing.T) {
	req := require.New(t)

	data, err := Encode(Envelope{Command: CmdMsg, Args: []string{"general", "hi"}, User: "dan", Timestamp: 1700000000})

	req.NoError(err)
	req.JSONEq(`{"command":"MSG","args":["general","hi"],"user":"dan","timestamp":1700000000}`, string(data))
}

func TestErrorEnvelope(t *testing.T) {
	req := require.New(t)

	env := ErrorEnvelope(ErrUnknownCommand("KICK"))

	req.Equal(CmdError, env.Command)
	req.Equal([]string{"command KICK does not exist"}, env.Args)
}

func TestErrorMessages(t *testing.T) {
	req := require.New(t)

	req.Equal("invalid message format", ErrMalformedEnvelope().Error())
	req.Equal("invalid message format", ErrBadArgs().Error())
	req.Equal("must set username first", ErrNotAuthenticated().Error())
	req.Equal("can only set username once", ErrUsernameAlreadySet().Error())
	req.Equal("username dan is already taken", ErrUsernameTaken("dan").Error())
	req.Equal("invalid username a b", ErrInvalidUsername("a b").Error())
	req.Equal("already in channel general", ErrAlreadyInChannel("general").Error())
	req.Equal("not in channel general", ErrNotInChannel("general").Error())

	// The two "invalid message format" errors stay distinguishable by kind.
	req.NotEqual(ErrMalformedEnvelope().Kind, ErrBadArgs().Kind)
}
