package runner

import (
	"fmt"
	"regexp"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
)

// selectFromPrefix matches a leading "SELECT <cols> FROM" clause, case
// insensitively and across newlines, so RewriteForCluster can replace the
// projection list without disturbing the rest of the query.
var selectFromPrefix = regexp.MustCompile(`(?is)^\s*SELECT\s+.+?\s+(FROM)\b`)

// RewriteForCluster implements §4.4 stage 4's cluster-mode SQL rewrite:
// replace the leading "SELECT ..." projection with "SELECT *", keeping the
// FROM keyword as written, working around a cluster planner projection bug.
// Queries without a simple leading SELECT...FROM are returned unchanged.
func RewriteForCluster(sql string) string {
	if !selectFromPrefix.MatchString(sql) {
		return sql
	}
	return selectFromPrefix.ReplaceAllString(sql, "SELECT * ${1}")
}

// findKeyColumn locates the column index holding alias's primary key, tried
// as "<alias>.<pk>" first and then the bare "<pk>" name (§4.4 stage 6 "key
// extraction"). ok=false means no matching column exists and callers should
// fall back to synthetic row_<N> keys.
func findKeyColumn(schema *arrow.Schema, alias string, primaryKey []string) (idx int, ok bool) {
	if len(primaryKey) == 0 {
		return -1, false
	}
	pk := primaryKey[0]
	aliased := alias + "." + pk
	for i, f := range schema.Fields() {
		if f.Name == aliased {
			return i, true
		}
	}
	for i, f := range schema.Fields() {
		if f.Name == pk {
			return i, true
		}
	}
	return -1, false
}

// ExtractKeys returns one string key per row of rec for alias's primary key
// column, or synthetic "row_<N>" keys when no matching column is found.
// rowOffset is added to the in-record row index so synthetic keys stay
// unique across a multi-batch stream rather than colliding batch-to-batch.
func ExtractKeys(rec arrow.Record, alias string, primaryKey []string, rowOffset int) []string {
	n := int(rec.NumRows())
	keys := make([]string, n)

	idx, ok := findKeyColumn(rec.Schema(), alias, primaryKey)
	if !ok {
		for i := range keys {
			keys[i] = fmt.Sprintf("row_%d", rowOffset+i)
		}
		return keys
	}

	col := rec.Column(idx)
	for i := 0; i < n; i++ {
		keys[i] = cellToString(col, i)
	}
	return keys
}

func cellToString(col arrow.Array, row int) string {
	if col.IsNull(row) {
		return ""
	}
	switch c := col.(type) {
	case *array.Int16:
		return fmt.Sprintf("%d", c.Value(row))
	case *array.Int32:
		return fmt.Sprintf("%d", c.Value(row))
	case *array.Int64:
		return fmt.Sprintf("%d", c.Value(row))
	case *array.Float32:
		return fmt.Sprintf("%v", c.Value(row))
	case *array.Float64:
		return fmt.Sprintf("%v", c.Value(row))
	case *array.Boolean:
		return fmt.Sprintf("%v", c.Value(row))
	case *array.String:
		return c.Value(row)
	case *array.Binary:
		return string(c.Value(row))
	default:
		// Any other arrow type (dates, timestamps, decimals, ...) falls
		// back to the array's own generic per-value formatter per §4.4.
		return col.ValueStr(row)
	}
}

// UnmatchedCount implements §4.4 stage 7's unmatched-derivation formula:
// max(0, totalRows - |distinctMatchedKeys|). This is a subtraction against
// the distinct key set actually observed in the match output, not an
// anti-join.
func UnmatchedCount(totalRows int64, distinctMatchedKeys int) int64 {
	diff := totalRows - int64(distinctMatchedKeys)
	if diff < 0 {
		return 0
	}
	return diff
}
