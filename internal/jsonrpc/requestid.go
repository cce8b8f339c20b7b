package jsonrpc

import "bytes"

var nullLiteral = []byte("null")

// RequestID is a JSON-RPC id captured as the raw bytes that appeared on the
// wire. The relay must echo ids verbatim in the eventual response, and `0`,
// `""`, and `"0"` are all distinct, legitimate ids, so the bytes are retained
// rather than decoded into a string-or-number union that would normalize them.
//
// A zero-length RequestID means the id key was absent.
type RequestID []byte

// Present reports whether an id key appeared at all (including `"id":null`).
func (id RequestID) Present() bool { return len(id) > 0 }

// IsNull reports whether the id was the JSON literal null.
func (id RequestID) IsNull() bool { return bytes.Equal(id, nullLiteral) }

// Concrete reports whether the id carries a usable value: present and not
// null. Only messages with a concrete id are requests that demand a response.
func (id RequestID) Concrete() bool { return id.Present() && !id.IsNull() }

// String returns the id's wire form, quoting included for string ids. Intended
// for diagnostics only.
func (id RequestID) String() string {
	if !id.Present() {
		return ""
	}
	return string(id)
}

// MarshalJSON emits the retained wire bytes unchanged.
func (id RequestID) MarshalJSON() ([]byte, error) {
	if len(id) == 0 {
		return nullLiteral, nil
	}
	return id, nil
}

// UnmarshalJSON retains the wire bytes verbatim, null included.
func (id *RequestID) UnmarshalJSON(data []byte) error {
	*id = append((*id)[:0], data...)
	return nil
}
