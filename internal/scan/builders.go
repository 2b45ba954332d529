package scan

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
)

// AppendValueExported is the cross-package entry point to appendValue, used
// by internal/engine to build arrow records from generic SQL rows.
func AppendValueExported(bld array.Builder, typ arrow.DataType, v any) error {
	return appendValue(bld, typ, v)
}

// appendValue dispatches on the declared Arrow type and appends v (or a
// null) to the column builder, per §4.1's "walking the schema and
// dispatching on the declared type".
func appendValue(bld array.Builder, typ arrow.DataType, v any) error {
	if v == nil {
		bld.AppendNull()
		return nil
	}
	switch typ.ID() {
	case arrow.INT16:
		n, ok := toInt64(v)
		if !ok {
			return fmt.Errorf("expected int16-compatible value, got %T", v)
		}
		bld.(*array.Int16Builder).Append(int16(n))
	case arrow.INT32:
		n, ok := toInt64(v)
		if !ok {
			return fmt.Errorf("expected int32-compatible value, got %T", v)
		}
		bld.(*array.Int32Builder).Append(int32(n))
	case arrow.INT64:
		n, ok := toInt64(v)
		if !ok {
			return fmt.Errorf("expected int64-compatible value, got %T", v)
		}
		bld.(*array.Int64Builder).Append(n)
	case arrow.FLOAT32:
		f, ok := toFloat64(v)
		if !ok {
			return fmt.Errorf("expected float32-compatible value, got %T", v)
		}
		bld.(*array.Float32Builder).Append(float32(f))
	case arrow.FLOAT64:
		f, ok := toFloat64(v)
		if !ok {
			return fmt.Errorf("expected float64-compatible value, got %T", v)
		}
		bld.(*array.Float64Builder).Append(f)
	case arrow.BOOL:
		bv, ok := v.(bool)
		if !ok {
			return fmt.Errorf("expected bool value, got %T", v)
		}
		bld.(*array.BooleanBuilder).Append(bv)
	case arrow.BINARY:
		bv, ok := v.([]byte)
		if !ok {
			return fmt.Errorf("expected []byte value, got %T", v)
		}
		bld.(*array.BinaryBuilder).Append(bv)
	case arrow.STRING:
		bld.(*array.StringBuilder).Append(stringify(v))
	default:
		bld.(*array.StringBuilder).Append(stringify(v))
	}
	return nil
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int32:
		return int64(n), true
	case int16:
		return int64(n), true
	case int:
		return int64(n), true
	default:
		return 0, false
	}
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	default:
		return 0, false
	}
}

func stringify(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case fmt.Stringer:
		return s.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
