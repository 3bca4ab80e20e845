// =============================================================================
// help.go - Help System
// =============================================================================
//
//   - "HELP"         lists every command
//   - "HELP <topic>" prints detailed help for one command
//
// =============================================================================

package main

import (
	"fmt"
	"io"
	"strings"
)

// printHelp writes the command listing, or the detailed entry for topic.
// Unknown topics are reported on errOut.
func printHelp(out, errOut io.Writer, topic string) {
	if topic == "" {
		fmt.Fprint(out, helpOverview)
		return
	}

	if text, ok := helpTopics[strings.ToLower(topic)]; ok {
		fmt.Fprintln(out, text)
		return
	}

	fmt.Fprintf(errOut, "Error: No help for '%s'. Type HELP to see available commands.\n", topic)
}

const helpOverview = `Store Commands:
  PUT <key> <value>     Save data (the value may contain spaces)
  GET <key>             Read data
  DEL <key>             Delete data
  COMPACT               Trigger disk compaction

Shell Commands:
  CONNECT <host> [port] Switch server (default port 4000)
  STATS                 Show client request and connection counters
  HELP [command]        Show help (or help for a specific command)
  EXIT, QUIT            Quit
`

// GO CONCEPT: Map Literals for Lookup Tables
// -------------------------------------------
// Topic lookup is a plain map[string]string. Aliases (quit/exit, del/delete)
// simply share the same text.
var helpTopics = map[string]string{
	"put": `  PUT <key> <value>
    Store value under key. Everything after the key is the value, so
    values may contain spaces. Keys may not contain whitespace.
    Examples:
      PUT user:100 Alice
      PUT motd be kind to each other`,

	"get": `  GET <key>
    Print the value stored under key. A missing key is reported by the
    server (NOT_FOUND or (nil), depending on the server).
    Example:
      GET user:100`,

	"del": `  DEL <key>
    Delete key. Deleting a missing key is not an error.
    Example:
      DEL user:100`,

	"compact": `  COMPACT
    Ask the server to compact its on-disk tables. The server replies as
    soon as compaction is scheduled.`,

	"connect": `  CONNECT <host> [port]
    Close the current connection and switch to another server. The port
    defaults to 4000; host:port is also accepted.
    Examples:
      CONNECT localhost
      CONNECT 10.0.0.5 5000
      CONNECT db.internal:4001`,

	"stats": `  STATS
    Show counters for this shell session: requests by verb and result,
    connect attempts, and reconnects after a failed send.`,

	"help": `  HELP [command]
    Show all commands, or detailed help for one command.
    Example:
      HELP connect`,

	"exit": `  EXIT
    Close the connection and quit. QUIT and Ctrl-D do the same.`,
}

func init() {
	helpTopics["delete"] = helpTopics["del"]
	helpTopics["quit"] = helpTopics["exit"]
}
