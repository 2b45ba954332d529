package wire

import (
	"bytes"
	"encoding/gob"
	"fmt"
)

// GobInnerCodec is the concrete InnerCodec this module ships: the engine's
// own shuffle operators and table providers are plain Go structs, so the
// inner codec this registry delegates to is just gob, the same way the
// teacher's queue adapters move structured payloads without a bespoke wire
// format of their own. Callers register each concrete type they expect to
// ship with RegisterGobType before first use; gob itself rejects an
// unregistered concrete type at Encode time.
type GobInnerCodec struct{}

// NewGobInnerCodec returns an InnerCodec backed by encoding/gob.
func NewGobInnerCodec() *GobInnerCodec {
	return &GobInnerCodec{}
}

// RegisterGobType records that values of v's concrete type may be shipped
// through this codec, registering it with the gob package so interface
// values round-trip correctly.
func (c *GobInnerCodec) RegisterGobType(name string, v any) {
	gob.RegisterName(name, v)
}

// Encode gob-encodes v, wrapped so Decode can recover the concrete type.
func (c *GobInnerCodec) Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(&gobEnvelope{Value: v}); err != nil {
		return nil, fmt.Errorf("wire: gob encode: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode reverses Encode.
func (c *GobInnerCodec) Decode(buf []byte) (any, error) {
	var env gobEnvelope
	dec := gob.NewDecoder(bytes.NewReader(buf))
	if err := dec.Decode(&env); err != nil {
		return nil, fmt.Errorf("wire: gob decode: %w", err)
	}
	return env.Value, nil
}

// gobEnvelope carries an interface value so gob can round-trip its
// concrete, pre-registered type.
type gobEnvelope struct {
	Value any
}
