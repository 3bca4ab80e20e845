package siderprotocol

import (
	"strings"
	"unicode/utf8"
)

// StoreErrorPrefix starts error replies from the reference store, e.g.
// "ERR Unknown Command".
const StoreErrorPrefix = "ERR"

// Response is a decoded reply from the store. Its content is defined by the
// store; the client only strips surrounding whitespace.
type Response struct {
	Data string
}

// decodeResponse turns raw reply bytes into a Response. Invalid UTF-8
// sequences are replaced rather than rejected.
func decodeResponse(raw []byte) Response {
	text := string(raw)
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, string(utf8.RuneError))
	}
	return Response{Data: strings.TrimSpace(text)}
}

// IsStoreError reports whether the reply follows the reference store's
// "ERR ..." convention. This is a store-level error, not a transport one.
func (r Response) IsStoreError() bool {
	return r.Data == StoreErrorPrefix || strings.HasPrefix(r.Data, StoreErrorPrefix+" ")
}

// String returns the payload.
func (r Response) String() string {
	return r.Data
}
