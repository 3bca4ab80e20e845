// =============================================================================
// translate.go - Shell Input Translation
// =============================================================================
//
// Every line typed at the sider prompt is translated into exactly one shell
// action before anything touches the network. Local commands (CONNECT, HELP,
// STATS, EXIT) never reach the store; store verbs become a validated
// siderprotocol.Command; anything else is reported as unknown and dropped.
//
// =============================================================================

package main

import (
	"errors"
	"strings"

	"github.com/sider-db/sider-cli/siderprotocol"
)

// actionKind identifies what the shell should do with a line.
type actionKind int

const (
	// actNone is a blank line.
	actNone actionKind = iota
	// actQuit ends the session (EXIT or QUIT).
	actQuit
	// actHelp prints help, optionally for one topic.
	actHelp
	// actConnect switches to another server.
	actConnect
	// actStats prints client metrics.
	actStats
	// actStore sends a command to the store.
	actStore
	// actUnknown is a verb the shell does not know.
	actUnknown
	// actUsage is a known verb used incorrectly.
	actUsage
)

// action is the translation of one input line.
type action struct {
	kind     actionKind
	topic    string                 // actHelp
	endpoint siderprotocol.Endpoint // actConnect
	command  siderprotocol.Command  // actStore
	word     string                 // actUnknown: the verb as typed, upper case
	message  string                 // actUsage
}

// connectUsage is printed for a malformed CONNECT.
const connectUsage = "Usage: CONNECT <host> [port]"

// translate turns an input line into a shell action.
//
// GO CONCEPT: Returning Structs by Value
// --------------------------------------
// action is small and immutable once built, so it is returned by value.
// Callers switch on action.kind and read only the fields that kind uses.
func translate(line string) action {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return action{kind: actNone}
	}

	verb := strings.ToUpper(fields[0])
	args := fields[1:]

	switch verb {
	case "EXIT", "QUIT":
		return action{kind: actQuit}

	case "HELP", "?":
		topic := ""
		if len(args) > 0 {
			topic = args[0]
		}
		return action{kind: actHelp, topic: topic}

	case "STATS":
		return action{kind: actStats}

	case "CONNECT":
		return translateConnect(args)
	}

	if !siderprotocol.IsStoreVerb(verb) {
		return action{kind: actUnknown, word: verb}
	}

	cmd, err := siderprotocol.ParseCommand(line)
	if err != nil {
		return action{kind: actUsage, message: usageMessage(verb, err)}
	}
	return action{kind: actStore, command: cmd}
}

// translateConnect accepts "host", "host port" or "host:port".
func translateConnect(args []string) action {
	if len(args) == 0 || len(args) > 2 {
		return action{kind: actUsage, message: connectUsage}
	}

	ep, err := siderprotocol.ParseEndpoint(args[0])
	if err != nil {
		return action{kind: actUsage, message: connectUsage}
	}

	if len(args) == 2 {
		port, err := siderprotocol.ParsePort(args[1])
		if err != nil {
			return action{kind: actUsage, message: connectUsage}
		}
		ep.Port = port
	}
	return action{kind: actConnect, endpoint: ep}
}

// usageMessage renders a parse error for the prompt. Missing or extra
// arguments print the verb's synopsis; other problems print the reason.
func usageMessage(verb string, err error) string {
	var argErr *siderprotocol.ArgumentError
	if errors.As(err, &argErr) {
		switch argErr.Kind {
		case siderprotocol.ArgMissing, siderprotocol.ArgUnexpected:
			return "Usage: " + siderprotocol.Usage(verb)
		}
	}
	return "Error: " + err.Error()
}
