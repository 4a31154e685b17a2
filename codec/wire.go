package codec

import (
	"bytes"
	"encoding/json"
	"mime"
	"time"

	"avtocod/apierr"
	"avtocod/message"
)

// Payload is a decoded response body: one envelope, or the elements of a batch array.
type Payload struct {
	Items []json.RawMessage
	Batch bool
}

// EncodeRequests serializes reqs as one object, or as an ordered array when batch is set.
// Params are cleaned relative to now before encoding.
func EncodeRequests(c Codec, reqs []message.Request, batch bool, now time.Time) ([]byte, error) {
	cleaned := make([]message.Request, len(reqs))
	for i, r := range reqs {
		r.Params = CleanParams(r.Params, now)
		cleaned[i] = r
	}
	if batch {
		return c.Encode(cleaned)
	}
	if len(cleaned) != 1 {
		return nil, apierr.Usage("single request payload needs exactly one request, got %d", len(cleaned))
	}
	return c.Encode(cleaned[0])
}

// DecodeBody checks the content type and splits the body into envelopes.
// Anything but the codec's content type is a network failure: the provider
// always answers in JSON, so a different type means a proxy or transport problem.
func DecodeBody(c Codec, contentType string, body []byte) (*Payload, error) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil || mediaType != c.ContentType() {
		return nil, apierr.Networkf("invalid response with content type %q: %q", contentType, truncate(body, 256))
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, apierr.Decoding("empty response body")
	}
	if trimmed[0] == '[' {
		var items []json.RawMessage
		if err := c.Decode(trimmed, &items); err != nil {
			return nil, apierr.Decoding("batch response: %v", err)
		}
		return &Payload{Items: items, Batch: true}, nil
	}
	if !json.Valid(trimmed) {
		return nil, apierr.Decoding("response is not valid JSON")
	}
	return &Payload{Items: []json.RawMessage{json.RawMessage(trimmed)}}, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
