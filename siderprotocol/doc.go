// Package siderprotocol provides a Go client for the Sider key-value store's
// newline-delimited text protocol over TCP.
//
// # Protocol Overview
//
// Each request is one line. The server answers with a short UTF-8 payload.
//
//	Request:   <VERB> [arg1] [arg2]\n      VERB is PUT, GET, DEL or COMPACT
//	Response:  <payload>                   OK, a stored value, a missing-key
//	                                       marker, or an ERR message
//
// Example session against the reference store:
//
//	CLI: PUT user:100 Alice
//	SRV: OK
//	CLI: GET user:100
//	SRV: Alice
//	CLI: DEL user:100
//	SRV: OK
//	CLI: GET user:100
//	SRV: (nil)
//
// # Known Protocol Constraints
//
// Arguments are joined with single spaces and nothing is escaped. A PUT value
// may contain spaces (the store takes everything after the key), but keys
// must not contain whitespace and values must not contain line breaks.
// Commands that break these rules are rejected with ErrInvalidArgument before
// any I/O.
//
// Responses have no explicit message boundary. By default the client performs
// a single read of up to MaxResponseSize bytes, so a reply larger than the
// buffer, or one split across TCP segments, may be truncated. WithLineFraming
// switches to reading until the first newline; this changes receive behavior
// and must be enabled deliberately.
//
// # Basic Usage
//
//	client := siderprotocol.NewClient(siderprotocol.Endpoint{Host: "localhost", Port: 4000})
//	defer client.Close()
//
//	resp, err := client.Put("user:100", "Alice")
//	if err != nil {
//	    // errors.Is(err, siderprotocol.ErrNotConnected), ErrConnectionLost, ...
//	    log.Fatal(err)
//	}
//	fmt.Println(resp.Data) // "OK"
//
// # Reconnection
//
// Execute connects on demand. If sending fails on an established connection,
// the client reconnects exactly once and resends once; it never loops. The
// request may or may not have reached the server on that path.
//
// # Thread Safety
//
// A Client owns exactly one socket and has no internal locking. It is not
// safe for concurrent use; callers that share one must serialize access.
package siderprotocol
