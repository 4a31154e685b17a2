// Package codec turns envelopes into HTTP bodies and back.
package codec

// Codec serializes envelopes. The provider speaks JSON only, but the
// interface keeps the wire format swappable in tests.
type Codec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, v any) error
	// ContentType is the media type sent in Content-Type and Accept, and
	// the only one accepted on responses.
	ContentType() string
}
