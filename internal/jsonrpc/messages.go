package jsonrpc

import (
	"encoding/json"
	"fmt"
)

// ProtocolVersion is the supported JSON-RPC protocol version.
const ProtocolVersion = "2.0"

// Request is an inbound JSON-RPC message read off the line-delimited stream.
// It is a request when it carries a concrete id and a notification otherwise;
// the distinction depends solely on presence of the id key, never on the
// truthiness of its value.
type Request struct {
	JSONRPCVersion string          `json:"jsonrpc"`
	Method         string          `json:"method"`
	Params         json.RawMessage `json:"params,omitempty"`
	ID             RequestID       `json:"id,omitempty"`
}

// IsRequest reports whether the message demands a correlated response. An
// explicit `"id":null` counts as a notification, matching JSON-RPC 2.0's
// treatment of null ids.
func (r *Request) IsRequest() bool { return r.ID.Concrete() }

// ParseRequest decodes one line into a Request. It rejects lines that are not
// JSON objects and lines without a method key; both rejections are framing
// problems the relay discards rather than surfaces.
func ParseRequest(line []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if req.Method == "" {
		return nil, fmt.Errorf("message has no method")
	}
	return &req, nil
}

// Response is a JSON-RPC response the relay synthesizes itself. Replies that
// arrive from upstream are forwarded as raw bytes and never pass through this
// type; re-serializing them could silently reorder or drop fields.
type Response struct {
	JSONRPCVersion string          `json:"jsonrpc"`
	ID             RequestID       `json:"id"`
	Result         json.RawMessage `json:"result,omitempty"`
	Error          *Error          `json:"error,omitempty"`
}

// Error is a JSON-RPC error object.
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// NewErrorResponse builds an error response correlated to the given id.
func NewErrorResponse(id RequestID, code ErrorCode, message string) *Response {
	return &Response{
		JSONRPCVersion: ProtocolVersion,
		ID:             id,
		Error: &Error{
			Code:    code,
			Message: message,
		},
	}
}
