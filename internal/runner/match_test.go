package runner

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRewriteForCluster_ReplacesProjection(t *testing.T) {
	got := RewriteForCluster(`SELECT l.id, l.amount FROM orders l JOIN payments r ON l.id = r.id`)
	assert.Equal(t, `SELECT * FROM orders l JOIN payments r ON l.id = r.id`, got)
}

func TestRewriteForCluster_CaseInsensitive(t *testing.T) {
	got := RewriteForCluster("select a, b from t")
	assert.Equal(t, "SELECT * from t", got)
}

func TestRewriteForCluster_LeavesNonSelectUnchanged(t *testing.T) {
	got := RewriteForCluster("EXPLAIN SELECT 1")
	assert.Equal(t, "EXPLAIN SELECT 1", got)
}

func buildInt64Record(t *testing.T, colName string, vals []int64) arrow.Record {
	t.Helper()
	schema := arrow.NewSchema([]arrow.Field{{Name: colName, Type: arrow.PrimitiveTypes.Int64}}, nil)
	b := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer b.Release()
	b.Field(0).(*array.Int64Builder).AppendValues(vals, nil)
	return b.NewRecord()
}

func TestExtractKeys_PrefersAliasedColumn(t *testing.T) {
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "left.id", Type: arrow.PrimitiveTypes.Int64},
		{Name: "id", Type: arrow.PrimitiveTypes.Int64},
	}, nil)
	b := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer b.Release()
	b.Field(0).(*array.Int64Builder).AppendValues([]int64{1, 2}, nil)
	b.Field(1).(*array.Int64Builder).AppendValues([]int64{99, 98}, nil)
	rec := b.NewRecord()
	defer rec.Release()

	got := ExtractKeys(rec, "left", []string{"id"}, 0)
	assert.Equal(t, []string{"1", "2"}, got)
}

func TestExtractKeys_FallsBackToBareColumn(t *testing.T) {
	rec := buildInt64Record(t, "id", []int64{5, 6})
	defer rec.Release()

	got := ExtractKeys(rec, "left", []string{"id"}, 0)
	assert.Equal(t, []string{"5", "6"}, got)
}

func TestExtractKeys_FallsBackToSyntheticRowKeys(t *testing.T) {
	rec := buildInt64Record(t, "unrelated", []int64{1, 2, 3})
	defer rec.Release()

	got := ExtractKeys(rec, "left", []string{"id"}, 0)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"row_0", "row_1", "row_2"}, got)
}

func TestExtractKeys_SyntheticRowKeysUseOffsetAcrossBatches(t *testing.T) {
	batch1 := buildInt64Record(t, "unrelated", []int64{1, 2})
	defer batch1.Release()
	batch2 := buildInt64Record(t, "unrelated", []int64{3, 4})
	defer batch2.Release()

	got1 := ExtractKeys(batch1, "left", []string{"id"}, 0)
	got2 := ExtractKeys(batch2, "left", []string{"id"}, int(batch1.NumRows()))

	assert.Equal(t, []string{"row_0", "row_1"}, got1)
	assert.Equal(t, []string{"row_2", "row_3"}, got2, "synthetic keys must stay unique across batches")
}

func TestUnmatchedCount_NeverNegative(t *testing.T) {
	assert.Equal(t, int64(3), UnmatchedCount(10, 7))
	assert.Equal(t, int64(0), UnmatchedCount(5, 9))
	assert.Equal(t, int64(0), UnmatchedCount(0, 0))
}
