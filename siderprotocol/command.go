package siderprotocol

import (
	"strings"
	"unicode"
)

// CommandType represents the verb of a store command.
type CommandType int

const (
	// CmdPut stores a value under a key.
	CmdPut CommandType = iota
	// CmdGet reads the value stored under a key.
	CmdGet
	// CmdDel deletes a key.
	CmdDel
	// CmdCompact asks the store to compact its on-disk tables.
	CmdCompact
)

// verbs maps command types to their wire verbs.
var verbs = map[CommandType]string{
	CmdPut:     "PUT",
	CmdGet:     "GET",
	CmdDel:     "DEL",
	CmdCompact: "COMPACT",
}

// String returns the wire verb, or "UNKNOWN".
func (t CommandType) String() string {
	if v, ok := verbs[t]; ok {
		return v
	}
	return "UNKNOWN"
}

// usages holds the argument synopsis for each verb.
var usages = map[string]string{
	"PUT":     "PUT <key> <value>",
	"GET":     "GET <key>",
	"DEL":     "DEL <key>",
	"COMPACT": "COMPACT",
}

// Usage returns the synopsis for a verb, e.g. "GET <key>". Unknown verbs
// return the verb itself.
func Usage(verb string) string {
	if u, ok := usages[strings.ToUpper(verb)]; ok {
		return u
	}
	return verb
}

// IsStoreVerb reports whether word (any case) is a protocol verb.
func IsStoreVerb(word string) bool {
	_, ok := usages[strings.ToUpper(word)]
	return ok
}

// Command is a single store request. Commands are values: build them with
// the New*Command constructors and pass them by value. Nothing in this
// package modifies a Command after construction.
type Command struct {
	Type  CommandType
	Key   string // For PUT, GET, DEL
	Value string // For PUT; may contain spaces
}

// NewPutCommand creates a PUT command.
func NewPutCommand(key, value string) Command {
	return Command{Type: CmdPut, Key: key, Value: value}
}

// NewGetCommand creates a GET command.
func NewGetCommand(key string) Command {
	return Command{Type: CmdGet, Key: key}
}

// NewDelCommand creates a DEL command.
func NewDelCommand(key string) Command {
	return Command{Type: CmdDel, Key: key}
}

// NewCompactCommand creates a COMPACT command.
func NewCompactCommand() Command {
	return Command{Type: CmdCompact}
}

// Verb returns the wire verb of the command.
func (c Command) Verb() string {
	return c.Type.String()
}

// Args returns the command's arguments in wire order. The slice is freshly
// allocated on every call.
func (c Command) Args() []string {
	switch c.Type {
	case CmdPut:
		return []string{c.Key, c.Value}
	case CmdGet, CmdDel:
		return []string{c.Key}
	default:
		return nil
	}
}

// Validate checks arity and the protocol's unescaped-argument constraints.
func (c Command) Validate() error {
	verb := c.Verb()
	switch c.Type {
	case CmdPut:
		if err := validateKey(verb, c.Key); err != nil {
			return err
		}
		if c.Value == "" {
			return &ArgumentError{Kind: ArgMissing, Verb: verb}
		}
		if strings.ContainsAny(c.Value, "\r\n") {
			return &ArgumentError{Kind: ArgInvalidValue, Verb: verb, Value: c.Value}
		}
	case CmdGet, CmdDel:
		if err := validateKey(verb, c.Key); err != nil {
			return err
		}
		if c.Value != "" {
			return &ArgumentError{Kind: ArgUnexpected, Verb: verb, Value: c.Value}
		}
	case CmdCompact:
		if c.Key != "" {
			return &ArgumentError{Kind: ArgUnexpected, Verb: verb, Value: c.Key}
		}
		if c.Value != "" {
			return &ArgumentError{Kind: ArgUnexpected, Verb: verb, Value: c.Value}
		}
	default:
		return &ArgumentError{Kind: ArgUnknownCommand, Verb: verb, Value: verb}
	}
	return nil
}

func validateKey(verb, key string) error {
	if key == "" {
		return &ArgumentError{Kind: ArgMissing, Verb: verb}
	}
	if strings.IndexFunc(key, unicode.IsSpace) >= 0 {
		return &ArgumentError{Kind: ArgInvalidKey, Verb: verb, Value: key}
	}
	return nil
}

// Format returns the command line without the terminator, e.g.
// "PUT user:100 Alice".
func (c Command) Format() string {
	parts := append([]string{c.Verb()}, c.Args()...)
	return strings.Join(parts, " ")
}

// Encode returns the UTF-8 wire bytes of the command, terminator included.
func (c Command) Encode() []byte {
	return []byte(c.Format() + LineTerminator)
}

// String implements fmt.Stringer.
func (c Command) String() string {
	return c.Format()
}
