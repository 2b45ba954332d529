package scan

import (
	"context"
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
)

// SQLTypeToArrow maps a source catalog's SQL type name to the fixed
// Arrow-style type table of §4.1. Unknown/compound types fall back to utf8,
// matching the spec's explicit "date/timestamp*/uuid/json*/array/user-defined
// -> utf8" rule.
func SQLTypeToArrow(sqlType string) arrow.DataType {
	t := strings.ToLower(strings.TrimSpace(sqlType))
	switch {
	case t == "smallint" || t == "int2":
		return arrow.PrimitiveTypes.Int16
	case t == "integer" || t == "int" || t == "int4":
		return arrow.PrimitiveTypes.Int32
	case t == "bigint" || t == "int8":
		return arrow.PrimitiveTypes.Int64
	case t == "real" || t == "float4":
		return arrow.PrimitiveTypes.Float32
	case t == "double precision" || t == "float8" || t == "numeric" || t == "decimal":
		return arrow.PrimitiveTypes.Float64
	case t == "boolean" || t == "bool":
		return arrow.FixedWidthTypes.Boolean
	case t == "bytea":
		return arrow.BinaryTypes.Binary
	case t == "text" || strings.HasPrefix(t, "varchar") || strings.HasPrefix(t, "char") || t == "name":
		return arrow.BinaryTypes.String
	default:
		// date, timestamp[tz], uuid, json[b], array, user-defined, and
		// anything else not named above.
		return arrow.BinaryTypes.String
	}
}

// ArrowTypeName renders an arrow.DataType to the short type-string used in
// wire payloads ("i16", "i32", "i64", "f32", "f64", "bool", "utf8", "binary").
func ArrowTypeName(t arrow.DataType) string {
	switch t.ID() {
	case arrow.INT16:
		return "i16"
	case arrow.INT32:
		return "i32"
	case arrow.INT64:
		return "i64"
	case arrow.FLOAT32:
		return "f32"
	case arrow.FLOAT64:
		return "f64"
	case arrow.BOOL:
		return "bool"
	case arrow.BINARY:
		return "binary"
	default:
		return "utf8"
	}
}

// ArrowTypeFromName is the inverse of ArrowTypeName, used to reconstruct a
// schema carried across the wire.
func ArrowTypeFromName(name string) arrow.DataType {
	switch name {
	case "i16":
		return arrow.PrimitiveTypes.Int16
	case "i32":
		return arrow.PrimitiveTypes.Int32
	case "i64":
		return arrow.PrimitiveTypes.Int64
	case "f32":
		return arrow.PrimitiveTypes.Float32
	case "f64":
		return arrow.PrimitiveTypes.Float64
	case "bool":
		return arrow.FixedWidthTypes.Boolean
	case "binary":
		return arrow.BinaryTypes.Binary
	default:
		return arrow.BinaryTypes.String
	}
}

// Column is one schema-introspected source column.
type Column struct {
	Name     string
	Type     arrow.DataType
	Nullable bool
}

// BuildArrowSchema converts an ordered column list into an arrow.Schema.
func BuildArrowSchema(cols []Column) *arrow.Schema {
	fields := make([]arrow.Field, len(cols))
	for i, c := range cols {
		fields[i] = arrow.Field{Name: c.Name, Type: c.Type, Nullable: c.Nullable}
	}
	return arrow.NewSchema(fields, nil)
}

// QuoteIdent double-quotes a SQL identifier per §4.1 ("column identifiers
// are always double-quoted to tolerate case and keywords").
func QuoteIdent(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

// TableProvider is the eager (local-mode) form of a C1 source: scan()
// computes ranges, fetches each, and returns an in-memory batch source of
// N partitions (§4.1 "the two forms").
type TableProvider interface {
	Schema() *arrow.Schema
	// RowCount reports the total row count if known at registration, or 0
	// meaning "unknown — query later" (object-store/local sources).
	RowCount() int64
	// Scan fetches every partition and returns one arrow.Record per
	// partition, schema-equal to Schema().
	Scan(ctx context.Context) ([]arrow.Record, error)
}

// LeafOperator is the lazy (cluster-mode) form of a C1 source: a single
// shippable leaf producing exactly one partition on execute(). Leaf
// operators must not have children.
type LeafOperator interface {
	Schema() *arrow.Schema
	// Execute performs the I/O and returns the operator's single output
	// batch. partition must be 0; any other value fails per §4.1's
	// "execute(partition != 0) fails" invariant.
	Execute(ctx context.Context, partition int) (arrow.Record, error)
}

// ErrNonZeroPartition is returned by a LeafOperator.Execute call for any
// partition other than 0.
var ErrNonZeroPartition = fmt.Errorf("leaf operator: execute(partition != 0) fails")
