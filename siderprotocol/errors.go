package siderprotocol

import (
	"errors"
	"fmt"
)

// Sentinel errors. Every error returned by Client and ConnManager matches at
// least one of these with errors.Is; KindOf gives the single kind to report.
// A connect timeout from Execute matches both ErrNotConnected and ErrTimeout
// and its kind is ErrNotConnected.
var (
	// ErrNotConnected indicates no connection existed and establishing one
	// failed. The request was never sent.
	ErrNotConnected = errors.New("not connected to server")

	// ErrConnectionLost indicates a send, or the reconnect after a failed
	// send, did not succeed. The request may or may not have reached the
	// server.
	ErrConnectionLost = errors.New("connection lost")

	// ErrConnectionClosed indicates the server closed the stream instead of
	// replying.
	ErrConnectionClosed = errors.New("server closed connection")

	// ErrTimeout indicates connect or receive exceeded its bound.
	ErrTimeout = errors.New("request timed out")

	// ErrInvalidArgument indicates a malformed command. No I/O was attempted.
	ErrInvalidArgument = errors.New("invalid argument")
)

// ConnectionError is a transport failure of a given kind.
type ConnectionError struct {
	Kind    error  // One of the sentinel errors above
	Message string // What the client was doing
	Cause   error  // Underlying network error, if any
}

// Error implements the error interface.
func (e *ConnectionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%v: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%v: %s", e.Kind, e.Message)
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *ConnectionError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

func newConnectionError(kind error, message string, cause error) error {
	return &ConnectionError{Kind: kind, Message: message, Cause: cause}
}

// rootCause strips a ConnectionError down to its network-level cause so a
// re-classified failure does not also match the inner kind.
func rootCause(err error) error {
	var connErr *ConnectionError
	if errors.As(err, &connErr) && connErr.Cause != nil {
		return connErr.Cause
	}
	return err
}

// ArgumentErrorKind categorizes command validation errors.
type ArgumentErrorKind int

const (
	// ArgEmptyCommand indicates a blank command line.
	ArgEmptyCommand ArgumentErrorKind = iota
	// ArgUnknownCommand indicates a verb the protocol does not define.
	ArgUnknownCommand
	// ArgMissing indicates a required argument was not provided.
	ArgMissing
	// ArgUnexpected indicates more arguments than the verb accepts.
	ArgUnexpected
	// ArgInvalidKey indicates a key containing whitespace.
	ArgInvalidKey
	// ArgInvalidValue indicates a value containing a line break.
	ArgInvalidValue
)

// ArgumentError reports a command rejected before any I/O.
type ArgumentError struct {
	Kind  ArgumentErrorKind
	Verb  string // The command verb, upper case
	Value string // The offending token, if any
}

// Error implements the error interface.
func (e *ArgumentError) Error() string {
	switch e.Kind {
	case ArgEmptyCommand:
		return "empty command"
	case ArgUnknownCommand:
		return fmt.Sprintf("unknown command '%s'", e.Value)
	case ArgMissing:
		return fmt.Sprintf("%s: missing argument, usage: %s", e.Verb, Usage(e.Verb))
	case ArgUnexpected:
		return fmt.Sprintf("%s: unexpected argument '%s', usage: %s", e.Verb, e.Value, Usage(e.Verb))
	case ArgInvalidKey:
		return fmt.Sprintf("%s: key %q must not contain whitespace", e.Verb, e.Value)
	case ArgInvalidValue:
		return fmt.Sprintf("%s: value must not contain line breaks", e.Verb)
	default:
		return fmt.Sprintf("%s: invalid argument", e.Verb)
	}
}

// Unwrap makes every ArgumentError match ErrInvalidArgument.
func (e *ArgumentError) Unwrap() error {
	return ErrInvalidArgument
}

// KindOf returns the sentinel kind of an error, or nil if it has none. For a
// ConnectionError whose cause is itself a transport error (a NotConnected
// failure caused by a connect timeout), the outermost kind wins.
func KindOf(err error) error {
	var connErr *ConnectionError
	if errors.As(err, &connErr) {
		return connErr.Kind
	}
	for _, kind := range []error{
		ErrInvalidArgument,
		ErrNotConnected,
		ErrConnectionClosed,
		ErrTimeout,
		ErrConnectionLost,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
