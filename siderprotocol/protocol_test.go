package siderprotocol

import (
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProtocolConstants(t *testing.T) {
	assert.Equal(t, "localhost", DefaultHost)
	assert.Equal(t, 4000, DefaultPort)
	assert.Equal(t, "\n", LineTerminator)
	assert.Equal(t, 4096, MaxResponseSize)
	assert.Equal(t, 5*time.Second, ConnectTimeout)
	assert.Equal(t, 5*time.Second, ReadTimeout)
}

func TestEndpointString(t *testing.T) {
	tests := []struct {
		ep       Endpoint
		expected string
	}{
		{Endpoint{Host: "localhost", Port: 4000}, "localhost:4000"},
		{Endpoint{Host: "10.0.0.5", Port: 5000}, "10.0.0.5:5000"},
		{Endpoint{Host: "::1", Port: 4000}, "[::1]:4000"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.ep.String())
		})
	}
}

func TestParseEndpoint(t *testing.T) {
	tests := []struct {
		input    string
		expected Endpoint
		wantErr  bool
	}{
		{"localhost", Endpoint{Host: "localhost", Port: 4000}, false},
		{"db.internal:5000", Endpoint{Host: "db.internal", Port: 5000}, false},
		{" 127.0.0.1:4001 ", Endpoint{Host: "127.0.0.1", Port: 4001}, false},
		{"[::1]:4002", Endpoint{Host: "::1", Port: 4002}, false},
		{"[::1]", Endpoint{Host: "::1", Port: 4000}, false},
		{"", Endpoint{}, true},
		{"host:0", Endpoint{}, true},
		{"host:70000", Endpoint{}, true},
		{"host:abc", Endpoint{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			ep, err := ParseEndpoint(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, ep)
		})
	}
}

func TestEndpointValidate(t *testing.T) {
	assert.NoError(t, Endpoint{Host: "h", Port: 1}.Validate())
	assert.NoError(t, Endpoint{Host: "h", Port: 65535}.Validate())
	assert.Error(t, Endpoint{Host: "", Port: 4000}.Validate())
	assert.Error(t, Endpoint{Host: "  ", Port: 4000}.Validate())
	assert.Error(t, Endpoint{Host: "h", Port: 0}.Validate())
	assert.Error(t, Endpoint{Host: "h", Port: 65536}.Validate())
}

func TestParsePort(t *testing.T) {
	port, err := ParsePort("4000")
	require.NoError(t, err)
	assert.Equal(t, 4000, port)

	for _, bad := range []string{"", "-1", "0", "65536", "40a"} {
		_, err := ParsePort(bad)
		assert.Error(t, err, "ParsePort(%q)", bad)
	}
}

func TestCommandFormatting(t *testing.T) {
	tests := []struct {
		name     string
		cmd      Command
		expected string
	}{
		{"Put", NewPutCommand("user:100", "Alice"), "PUT user:100 Alice"},
		{"Put with spaces", NewPutCommand("greeting", "hello big world"), "PUT greeting hello big world"},
		{"Get", NewGetCommand("user:100"), "GET user:100"},
		{"Del", NewDelCommand("user:100"), "DEL user:100"},
		{"Compact", NewCompactCommand(), "COMPACT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.cmd.Format())
			assert.Equal(t, tt.expected, tt.cmd.String())
			assert.Equal(t, []byte(tt.expected+"\n"), tt.cmd.Encode())
		})
	}
}

func TestCommandEncodeUTF8(t *testing.T) {
	cmd := NewPutCommand("città", "naïve ☕")
	assert.Equal(t, []byte("PUT città naïve ☕\n"), cmd.Encode())
}

func TestCommandArgsIsFresh(t *testing.T) {
	cmd := NewPutCommand("k", "v")
	args := cmd.Args()
	args[0] = "mutated"
	assert.Equal(t, []string{"k", "v"}, cmd.Args())
	assert.Equal(t, "k", cmd.Key)
	assert.Nil(t, NewCompactCommand().Args())
}

func TestCommandTypeString(t *testing.T) {
	assert.Equal(t, "PUT", CmdPut.String())
	assert.Equal(t, "GET", CmdGet.String())
	assert.Equal(t, "DEL", CmdDel.String())
	assert.Equal(t, "COMPACT", CmdCompact.String())
	assert.Equal(t, "UNKNOWN", CommandType(99).String())
}

func TestCommandValidate(t *testing.T) {
	tests := []struct {
		name string
		cmd  Command
		kind ArgumentErrorKind
		ok   bool
	}{
		{"put ok", NewPutCommand("k", "v w"), 0, true},
		{"get ok", NewGetCommand("k"), 0, true},
		{"del ok", NewDelCommand("k"), 0, true},
		{"compact ok", NewCompactCommand(), 0, true},
		{"put missing key", NewPutCommand("", "v"), ArgMissing, false},
		{"put missing value", NewPutCommand("k", ""), ArgMissing, false},
		{"put key with space", NewPutCommand("a b", "v"), ArgInvalidKey, false},
		{"put value with newline", NewPutCommand("k", "line1\nline2"), ArgInvalidValue, false},
		{"put value with carriage return", NewPutCommand("k", "a\rb"), ArgInvalidValue, false},
		{"get missing key", NewGetCommand(""), ArgMissing, false},
		{"get key with tab", NewGetCommand("a\tb"), ArgInvalidKey, false},
		{"get with value", Command{Type: CmdGet, Key: "k", Value: "v"}, ArgUnexpected, false},
		{"del missing key", NewDelCommand(""), ArgMissing, false},
		{"compact with key", Command{Type: CmdCompact, Key: "k"}, ArgUnexpected, false},
		{"unknown type", Command{Type: CommandType(42)}, ArgUnknownCommand, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cmd.Validate()
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidArgument)

			var argErr *ArgumentError
			require.ErrorAs(t, err, &argErr)
			assert.Equal(t, tt.kind, argErr.Kind)
		})
	}
}

func TestUsage(t *testing.T) {
	assert.Equal(t, "PUT <key> <value>", Usage("put"))
	assert.Equal(t, "GET <key>", Usage("GET"))
	assert.Equal(t, "COMPACT", Usage("compact"))
	assert.Equal(t, "FOO", Usage("FOO"))

	assert.True(t, IsStoreVerb("del"))
	assert.False(t, IsStoreVerb("CONNECT"))
}

func TestResponseDecoding(t *testing.T) {
	tests := []struct {
		name     string
		raw      []byte
		expected string
	}{
		{"ok with newline", []byte("OK\n"), "OK"},
		{"crlf", []byte("Alice\r\n"), "Alice"},
		{"surrounding whitespace", []byte("  hello world \n"), "hello world"},
		{"internal whitespace kept", []byte("a  b\tc\n"), "a  b\tc"},
		{"whitespace only", []byte(" \n\t"), ""},
		{"utf8", []byte("naïve ☕\n"), "naïve ☕"},
		{"invalid utf8 replaced", []byte("ab\xffcd\n"), "ab�cd"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, decodeResponse(tt.raw).Data)
		})
	}
}

func TestResponseIsStoreError(t *testing.T) {
	assert.True(t, Response{Data: "ERR Unknown Command"}.IsStoreError())
	assert.True(t, Response{Data: "ERR"}.IsStoreError())
	assert.False(t, Response{Data: "ERRATIC"}.IsStoreError())
	assert.False(t, Response{Data: "OK"}.IsStoreError())
	assert.Equal(t, "OK", Response{Data: "OK"}.String())
}

func TestConnectionErrorMatching(t *testing.T) {
	cause := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
	err := newConnectionError(ErrNotConnected, "connect to localhost:4000", cause)

	assert.ErrorIs(t, err, ErrNotConnected)
	assert.NotErrorIs(t, err, ErrConnectionLost)

	var opErr *net.OpError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, "dial", opErr.Op)

	assert.Equal(t, "not connected to server: connect to localhost:4000: dial tcp: connection refused", err.Error())
	assert.Equal(t, "connection lost: send", newConnectionError(ErrConnectionLost, "send", nil).Error())
}

func TestKindOf(t *testing.T) {
	timeout := newConnectionError(ErrTimeout, "connect", errors.New("i/o timeout"))
	wrapped := newConnectionError(ErrNotConnected, "connect", timeout)

	tests := []struct {
		name     string
		err      error
		expected error
	}{
		{"nil", nil, nil},
		{"plain", errors.New("boom"), nil},
		{"argument", &ArgumentError{Kind: ArgMissing, Verb: "GET"}, ErrInvalidArgument},
		{"connection lost", newConnectionError(ErrConnectionLost, "send", nil), ErrConnectionLost},
		{"outermost kind wins", wrapped, ErrNotConnected},
		{"wrapped with fmt", fmt.Errorf("shell: %w", ErrConnectionClosed), ErrConnectionClosed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, KindOf(tt.err))
		})
	}

	assert.ErrorIs(t, wrapped, ErrTimeout, "inner kind stays reachable")
}

func TestRootCause(t *testing.T) {
	netErr := errors.New("connection refused")
	err := newConnectionError(ErrNotConnected, "connect", netErr)

	assert.Equal(t, netErr, rootCause(err))
	assert.Equal(t, netErr, rootCause(netErr))
}

func TestArgumentErrorMessages(t *testing.T) {
	tests := []struct {
		err      *ArgumentError
		expected string
	}{
		{&ArgumentError{Kind: ArgEmptyCommand}, "empty command"},
		{&ArgumentError{Kind: ArgUnknownCommand, Value: "FOO"}, "unknown command 'FOO'"},
		{&ArgumentError{Kind: ArgMissing, Verb: "GET"}, "GET: missing argument, usage: GET <key>"},
		{&ArgumentError{Kind: ArgUnexpected, Verb: "COMPACT", Value: "now"}, "COMPACT: unexpected argument 'now', usage: COMPACT"},
		{&ArgumentError{Kind: ArgInvalidKey, Verb: "PUT", Value: "a b"}, `PUT: key "a b" must not contain whitespace`},
		{&ArgumentError{Kind: ArgInvalidValue, Verb: "PUT"}, "PUT: value must not contain line breaks"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}
