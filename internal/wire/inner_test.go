package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type shuffleBatch struct {
	PartitionID int
	Rows        [][]byte
}

type shuffleBatch2 struct {
	PartitionID int
}

func TestGobInnerCodec_RoundTripsRegisteredType(t *testing.T) {
	codec := NewGobInnerCodec()
	codec.RegisterGobType("wire_test.shuffleBatch", shuffleBatch{})

	want := shuffleBatch{PartitionID: 3, Rows: [][]byte{[]byte("a"), []byte("b")}}
	buf, err := codec.Encode(want)
	require.NoError(t, err)

	got, err := codec.Decode(buf)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestGobInnerCodec_EncodeUnregisteredTypeErrors(t *testing.T) {
	codec := NewGobInnerCodec()
	type unregistered struct{ X int }

	_, err := codec.Encode(unregistered{X: 1})
	assert.Error(t, err)
}

func TestCodec_WithGobInnerCodec_DelegatesUnknownTag(t *testing.T) {
	inner := NewGobInnerCodec()
	inner.RegisterGobType("wire_test.shuffleBatch2", shuffleBatch2{})
	codec := NewCodec(inner)

	want := shuffleBatch2{PartitionID: 7}
	buf, err := codec.Encode(want)
	require.NoError(t, err)

	got, err := codec.Decode(buf)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
