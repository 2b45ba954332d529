// Package wire implements the wire codec (C2): a tag-byte-prefixed
// serialization registry for shipping custom operators and table providers
// to remote workers, delegating anything it does not recognize to an inner,
// engine-provided codec.
package wire

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrEmptyBuffer is returned when Decode is given a zero-length buffer.
var ErrEmptyBuffer = errors.New("wire: empty buffer")

// InnerCodec is the engine-provided codec C2 delegates to for its own
// shuffle operators and for any tag this registry does not recognize.
type InnerCodec interface {
	Encode(v any) ([]byte, error)
	Decode(buf []byte) (any, error)
}

// entry is one registered type's tag plus its encode/decode functions.
type entry struct {
	tag    byte
	encode func(v any) ([]byte, bool)
	decode func(payload []byte) (any, error)
}

// Codec is the registry-driven codec of §4.2. Entries are registered once
// at daemon start and read-only thereafter (§9 "global state").
type Codec struct {
	entries []entry
	inner   InnerCodec
}

// NewCodec returns a Codec delegating unknown tags to inner.
func NewCodec(inner InnerCodec) *Codec {
	return &Codec{inner: inner}
}

// Register adds a new custom type: a unique 1-byte tag, an encoder that
// downcasts v and returns an optional payload, and a decoder that
// reconstructs the value from a payload.
func (c *Codec) Register(tag byte, encode func(v any) ([]byte, bool), decode func(payload []byte) (any, error)) {
	c.entries = append(c.entries, entry{tag: tag, encode: encode, decode: decode})
}

// Encode walks the registry; the first entry whose encoder accepts v writes
// tag||payload. No match delegates to the inner codec.
func (c *Codec) Encode(v any) ([]byte, error) {
	for _, e := range c.entries {
		if payload, ok := e.encode(v); ok {
			out := make([]byte, 0, 1+len(payload))
			out = append(out, e.tag)
			out = append(out, payload...)
			return out, nil
		}
	}
	return c.inner.Encode(v)
}

// Decode reads the leading tag and scans the registry; the first matching
// tag decodes the payload. No match delegates to the inner codec. A corrupt
// payload after a valid tag returns the type's own parse error, never a
// delegation.
func (c *Codec) Decode(buf []byte) (any, error) {
	if len(buf) == 0 {
		return nil, ErrEmptyBuffer
	}
	tag, payload := buf[0], buf[1:]
	for _, e := range c.entries {
		if e.tag == tag {
			v, err := e.decode(payload)
			if err != nil {
				return nil, fmt.Errorf("wire: decode tag 0x%02x: %w", tag, err)
			}
			return v, nil
		}
	}
	return c.inner.Decode(buf)
}

// jsonEncode is the shared payload encoding for custom operators/providers:
// the reference implementation's own description calls for "JSON DTOs
// enumerating every field".
func jsonEncode(v any) ([]byte, error) {
	return json.Marshal(v)
}

func jsonDecode(payload []byte, v any) error {
	return json.Unmarshal(payload, v)
}
