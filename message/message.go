// Package message defines the JSON-RPC 2.0 envelopes exchanged with the provider.
//
// A Request is the "envelope" for every call. It gets serialized by the codec layer
// and POSTed over HTTP, alone or inside a JSON array when calls are batched.
package message

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Version is the protocol version tag carried by every envelope.
const Version = "2.0"

// Request carries one remote procedure call.
type Request struct {
	JSONRPC string         `json:"jsonrpc"`
	ID      string         `json:"id"`
	Method  string         `json:"method"`
	Params  map[string]any `json:"params"`
}

// Response carries the outcome of one call. Result and Error are mutually exclusive.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *ErrorObject    `json:"error,omitempty"`
}

// HasResult reports whether the response carries a non-null result.
func (r *Response) HasResult() bool {
	return !isNull(r.Result)
}

// IntID returns the correlation id as an integer. Both 7 and "7" are accepted.
func (r *Response) IntID() (int64, bool) {
	raw := bytes.TrimSpace(r.ID)
	if isNull(raw) {
		return 0, false
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, false
		}
		raw = []byte(s)
	}
	n, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func isNull(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}
