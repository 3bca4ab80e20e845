package sidertest

import (
	"strings"
	"sync"
)

// Replies of the reference store.
const (
	ReplyOK             = "OK"
	ReplyNotFound       = "NOT_FOUND"
	ReplyUnknownCommand = "ERR Unknown Command"
)

// Store is an in-memory key-value handler that answers like the reference
// store. It is safe for use by concurrent connections.
type Store struct {
	mu   sync.Mutex
	data map[string]string

	compactions int
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{data: make(map[string]string)}
}

// Handle answers one request line. It is a HandlerFunc.
//
//	PUT <key> <value...>  -> OK
//	GET <key>             -> value, or NOT_FOUND
//	DEL <key>             -> OK
//	COMPACT               -> OK
//	anything else         -> ERR Unknown Command
func (s *Store) Handle(line string) Reply {
	parts := strings.SplitN(strings.TrimSpace(line), " ", 3)
	verb := strings.ToUpper(parts[0])

	s.mu.Lock()
	defer s.mu.Unlock()

	switch verb {
	case "PUT":
		if len(parts) < 3 {
			return Reply{Text: "ERR Usage: PUT <key> <val>"}
		}
		s.data[parts[1]] = parts[2]
		return Reply{Text: ReplyOK}

	case "GET":
		if len(parts) < 2 {
			return Reply{Text: "ERR Usage: GET <key>"}
		}
		if v, ok := s.data[parts[1]]; ok {
			return Reply{Text: v}
		}
		return Reply{Text: ReplyNotFound}

	case "DEL":
		if len(parts) < 2 {
			return Reply{Text: "ERR Usage: DEL <key>"}
		}
		delete(s.data, parts[1])
		return Reply{Text: ReplyOK}

	case "COMPACT":
		s.compactions++
		return Reply{Text: ReplyOK}

	default:
		return Reply{Text: ReplyUnknownCommand}
	}
}

// Value returns the stored value for key.
func (s *Store) Value(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	return v, ok
}

// Compactions returns how many COMPACT requests were served.
func (s *Store) Compactions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.compactions
}
