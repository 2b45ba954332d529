package wire

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kallahq/kalla/internal/scan"
)

type noopInner struct{}

func (noopInner) Encode(v any) ([]byte, error) { return nil, errNoopInner }
func (noopInner) Decode(buf []byte) (any, error) { return nil, errNoopInner }

var errNoopInner = assertErr("noopInner: no such operator")

type assertErr string

func (e assertErr) Error() string { return string(e) }

func TestRegisterOperators_RelationalScanExecRoundTrip(t *testing.T) {
	codec := NewCodec(noopInner{})
	RegisterOperators(codec)

	schema := scan.BuildArrowSchema([]scan.Column{
		{Name: "id", Type: arrow.PrimitiveTypes.Int64, Nullable: false},
		{Name: "name", Type: arrow.BinaryTypes.String, Nullable: true},
	})
	op := &scan.RelationalScanExec{
		ConnString:  "postgresql://localhost/db",
		TableName:   "accounts",
		TableSchema: schema,
		Offset:      10,
		Limit:       5,
		OrderColumn: "id",
		Where:       `"amount" > 0`,
	}

	encoded, err := codec.Encode(op)
	require.NoError(t, err)
	assert.Equal(t, TagRelationalScanExec, encoded[0])

	decoded, err := codec.Decode(encoded)
	require.NoError(t, err)
	got, ok := decoded.(*scan.RelationalScanExec)
	require.True(t, ok)
	assert.Equal(t, op.ConnString, got.ConnString)
	assert.Equal(t, op.TableName, got.TableName)
	assert.Equal(t, op.Offset, got.Offset)
	assert.Equal(t, op.Limit, got.Limit)
	assert.Equal(t, op.OrderColumn, got.OrderColumn)
	assert.Equal(t, op.Where, got.Where)
	require.NotNil(t, got.TableSchema)
	assert.True(t, got.TableSchema.Equal(schema))
}

func TestRegisterOperators_ObjectStoreScanExecRoundTrip(t *testing.T) {
	codec := NewCodec(noopInner{})
	RegisterOperators(codec)

	schema := scan.BuildArrowSchema([]scan.Column{
		{Name: "id", Type: arrow.BinaryTypes.String, Nullable: true},
		{Name: "amount", Type: arrow.BinaryTypes.String, Nullable: true},
	})
	op := &scan.ObjectStoreCsvScanExec{
		Bucket:           "bucket",
		Key:              "path/file.csv",
		TableSchema:      schema,
		StartByte:        0,
		EndByte:          100,
		IsFirstPartition: true,
		HeaderLine:       "id,amount",
		Config: scan.ObjectStoreConfig{
			Region:    "us-east-1",
			AccessKey: "ak",
			SecretKey: "sk",
			Endpoint:  "s3.example.com",
			AllowHTTP: false,
		},
	}

	encoded, err := codec.Encode(op)
	require.NoError(t, err)
	assert.Equal(t, TagObjectStoreScanExec, encoded[0])

	decoded, err := codec.Decode(encoded)
	require.NoError(t, err)
	got, ok := decoded.(*scan.ObjectStoreCsvScanExec)
	require.True(t, ok)
	assert.Equal(t, op.Bucket, got.Bucket)
	assert.Equal(t, op.Key, got.Key)
	assert.Equal(t, op.StartByte, got.StartByte)
	assert.Equal(t, op.EndByte, got.EndByte)
	assert.Equal(t, op.IsFirstPartition, got.IsFirstPartition)
	assert.Equal(t, op.HeaderLine, got.HeaderLine)
	assert.Equal(t, op.Config, got.Config)
	require.NotNil(t, got.TableSchema)
	assert.True(t, got.TableSchema.Equal(schema))
}
