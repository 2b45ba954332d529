package engine

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/stretchr/testify/assert"
)

func TestDuckDBType_MapsArrowTypesToSQLNames(t *testing.T) {
	cases := []struct {
		in   arrow.DataType
		want string
	}{
		{arrow.PrimitiveTypes.Int16, "SMALLINT"},
		{arrow.PrimitiveTypes.Int32, "INTEGER"},
		{arrow.PrimitiveTypes.Int64, "BIGINT"},
		{arrow.PrimitiveTypes.Float32, "REAL"},
		{arrow.PrimitiveTypes.Float64, "DOUBLE"},
		{arrow.FixedWidthTypes.Boolean, "BOOLEAN"},
		{arrow.BinaryTypes.Binary, "BLOB"},
		{arrow.BinaryTypes.String, "VARCHAR"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, duckDBType(c.in))
	}
}

func TestBuildInsertSQL_OnePlaceholderPerColumn(t *testing.T) {
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "id", Type: arrow.PrimitiveTypes.Int64},
		{Name: "name", Type: arrow.BinaryTypes.String},
	}, nil)
	got := buildInsertSQL("accounts", schema)
	assert.Equal(t, `INSERT INTO "accounts" VALUES (?, ?)`, got)
}

func TestQuoteLiteral_EscapesSingleQuotes(t *testing.T) {
	assert.Equal(t, `'it''s'`, quoteLiteral("it's"))
}

func TestMode_String(t *testing.T) {
	assert.Equal(t, "local", ModeLocal.String())
	assert.Equal(t, "cluster", ModeCluster.String())
}
