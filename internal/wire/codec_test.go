package wire

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stringInner is a minimal InnerCodec standing in for the real engine-provided
// codec: it only knows how to round-trip plain strings, so anything else
// reaching it surfaces as a distinctive error the tests can assert on.
type stringInner struct {
	decodeCalls int
}

func (s *stringInner) Encode(v any) ([]byte, error) {
	str, ok := v.(string)
	if !ok {
		return nil, errors.New("stringInner: unsupported type")
	}
	return []byte("S" + str), nil
}

func (s *stringInner) Decode(buf []byte) (any, error) {
	s.decodeCalls++
	if len(buf) == 0 || buf[0] != 'S' {
		return nil, errors.New("stringInner: malformed")
	}
	return string(buf[1:]), nil
}

type widget struct{ N int }

func codecWithWidget() (*Codec, *stringInner) {
	inner := &stringInner{}
	c := NewCodec(inner)
	c.Register(0x7F,
		func(v any) ([]byte, bool) {
			w, ok := v.(widget)
			if !ok {
				return nil, false
			}
			return []byte{byte(w.N)}, true
		},
		func(payload []byte) (any, error) {
			if len(payload) != 1 {
				return nil, errors.New("widget: bad payload")
			}
			return widget{N: int(payload[0])}, nil
		},
	)
	return c, inner
}

func TestCodec_RoundTripRegisteredType(t *testing.T) {
	c, _ := codecWithWidget()

	encoded, err := c.Encode(widget{N: 42})
	require.NoError(t, err)
	assert.Equal(t, byte(0x7F), encoded[0])

	decoded, err := c.Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, widget{N: 42}, decoded)
}

func TestCodec_DecodeEmptyBufferErrors(t *testing.T) {
	c, _ := codecWithWidget()
	_, err := c.Decode(nil)
	assert.ErrorIs(t, err, ErrEmptyBuffer)
}

func TestCodec_UnregisteredTagDelegatesToInner(t *testing.T) {
	c, inner := codecWithWidget()

	encoded, err := c.Encode("hello")
	require.NoError(t, err)
	assert.Equal(t, []byte("Shello"), encoded)

	decoded, err := c.Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, "hello", decoded)
	assert.Equal(t, 1, inner.decodeCalls)
}

func TestCodec_CorruptPayloadAfterValidTagDoesNotDelegate(t *testing.T) {
	c, inner := codecWithWidget()

	// Valid tag, malformed payload (widget wants exactly 1 byte).
	bad := []byte{0x7F, 0x01, 0x02}
	_, err := c.Decode(bad)
	require.Error(t, err)
	assert.Equal(t, 0, inner.decodeCalls, "a corrupt payload under a known tag must not fall through to the inner codec")
}

func TestCodec_EncodeUnknownTypeDelegatesToInner(t *testing.T) {
	c, _ := codecWithWidget()
	_, err := c.Encode(42)
	assert.Error(t, err, "stringInner only accepts strings, so an int should surface stringInner's own error")
}
