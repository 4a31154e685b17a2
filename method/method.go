// Package method describes the remote procedures of the provider.
//
// A Method is an immutable value: its name and params are fixed at
// construction, it does no I/O, and it knows how to turn a result payload
// into its declared Go type.
package method

import (
	"encoding/json"

	"avtocod/apierr"
	"avtocod/message"
)

// Method is one remote procedure call.
type Method interface {
	// Name is the remote procedure, e.g. "report.get".
	Name() string
	// Params are sent as the params object. Nil values are dropped by the codec.
	Params() map[string]any
	// Result decodes a successful result payload into the declared type and
	// applies the post-parse hook, if any.
	Result(raw json.RawMessage) (any, error)
}

// Batchable marks methods that may be queued in a pipeline.
type Batchable interface {
	Method
	batchable()
}

// Pipelined is embedded by methods that can be sent inside a batch.
type Pipelined struct{}

func (Pipelined) batchable() {}

// BuildRequest wraps m in a request envelope with the given correlation id.
func BuildRequest(m Method, id string) message.Request {
	params := m.Params()
	if params == nil {
		params = map[string]any{}
	}
	return message.Request{
		JSONRPC: message.Version,
		ID:      id,
		Method:  m.Name(),
		Params:  params,
	}
}

// BuildResponse decodes one response envelope for m. A provider error is
// classified and returned; a result is never returned together with an error.
func BuildResponse(m Method, raw json.RawMessage) (any, error) {
	var resp message.Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, apierr.Decoding("%s: response envelope: %v", m.Name(), err)
	}
	return ParseResponse(m, &resp)
}

// ParseResponse is BuildResponse for an already decoded envelope.
func ParseResponse(m Method, resp *message.Response) (any, error) {
	if resp.Error != nil {
		return nil, apierr.Classify(resp.Error)
	}
	if !resp.HasResult() {
		return nil, apierr.Decoding("%s: response has neither result nor error", m.Name())
	}
	return m.Result(resp.Result)
}

// decode unmarshals raw into T. It is the result-type descriptor shared by all methods.
func decode[T any](name string, raw json.RawMessage) (*T, error) {
	v := new(T)
	if err := json.Unmarshal(raw, v); err != nil {
		return nil, apierr.Decoding("%s: result: %v", name, err)
	}
	return v, nil
}

// Validator is implemented by methods that check their params before anything is sent.
type Validator interface {
	Validate() error
}

// Validate runs m's own checks, if it has any.
func Validate(m Method) error {
	if v, ok := m.(Validator); ok {
		return v.Validate()
	}
	return nil
}
