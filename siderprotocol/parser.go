package siderprotocol

import (
	"strings"
	"unicode"
)

// ParseCommand parses a typed command line such as "put user:100 Alice Smith"
// into a Command.
//
// The verb is case-insensitive. For PUT, everything after the key is the
// value with its internal whitespace preserved. GET and DEL take exactly one
// key and COMPACT takes nothing. The returned error is always an
// *ArgumentError.
func ParseCommand(line string) (Command, error) {
	word, rest := cutField(line)
	if word == "" {
		return Command{}, &ArgumentError{Kind: ArgEmptyCommand}
	}

	verb := strings.ToUpper(word)
	switch verb {
	case "PUT":
		key, value := cutField(rest)
		value = strings.TrimRightFunc(value, unicode.IsSpace)
		if key == "" || value == "" {
			return Command{}, &ArgumentError{Kind: ArgMissing, Verb: verb}
		}
		return NewPutCommand(key, value), nil

	case "GET", "DEL":
		key, extra := cutField(rest)
		if key == "" {
			return Command{}, &ArgumentError{Kind: ArgMissing, Verb: verb}
		}
		if extra != "" {
			next, _ := cutField(extra)
			return Command{}, &ArgumentError{Kind: ArgUnexpected, Verb: verb, Value: next}
		}
		if verb == "GET" {
			return NewGetCommand(key), nil
		}
		return NewDelCommand(key), nil

	case "COMPACT":
		if extra, _ := cutField(rest); extra != "" {
			return Command{}, &ArgumentError{Kind: ArgUnexpected, Verb: verb, Value: extra}
		}
		return NewCompactCommand(), nil

	default:
		return Command{}, &ArgumentError{Kind: ArgUnknownCommand, Verb: verb, Value: word}
	}
}

// cutField splits off the first whitespace-delimited field. rest has its
// leading whitespace removed but is otherwise untouched.
func cutField(s string) (field, rest string) {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	i := strings.IndexFunc(s, unicode.IsSpace)
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimLeftFunc(s[i:], unicode.IsSpace)
}
