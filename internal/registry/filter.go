package registry

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/kallahq/kalla/internal/model"
	"github.com/kallahq/kalla/internal/scan"
)

// CompileFilters renders a list of FilterCondition values to a single
// WHERE-body fragment (no leading "WHERE"), each condition joined by AND,
// per §4.3.
func CompileFilters(filters []model.FilterCondition) string {
	if len(filters) == 0 {
		return ""
	}
	parts := make([]string, 0, len(filters))
	for _, f := range filters {
		parts = append(parts, compileFilter(f))
	}
	return strings.Join(parts, " AND ")
}

// compileFilter renders one condition. Ill-formed op/value combinations
// fall back to "col IS NOT NULL", a no-op filter, per §4.3.
func compileFilter(f model.FilterCondition) string {
	col := scan.QuoteIdent(f.Column)

	switch f.Op {
	case model.FilterEq:
		if lit, ok := renderScalar(f.Value); ok {
			return fmt.Sprintf("%s = %s", col, lit)
		}
	case model.FilterNeq:
		if lit, ok := renderScalar(f.Value); ok {
			return fmt.Sprintf("%s != %s", col, lit)
		}
	case model.FilterGt:
		if lit, ok := renderScalar(f.Value); ok {
			return fmt.Sprintf("%s > %s", col, lit)
		}
	case model.FilterGte:
		if lit, ok := renderScalar(f.Value); ok {
			return fmt.Sprintf("%s >= %s", col, lit)
		}
	case model.FilterLt:
		if lit, ok := renderScalar(f.Value); ok {
			return fmt.Sprintf("%s < %s", col, lit)
		}
	case model.FilterLte:
		if lit, ok := renderScalar(f.Value); ok {
			return fmt.Sprintf("%s <= %s", col, lit)
		}
	case model.FilterLike:
		if lit, ok := renderScalar(f.Value); ok {
			return fmt.Sprintf("%s LIKE %s", col, lit)
		}
	case model.FilterBetween:
		if pair, ok := f.Value.([]any); ok && len(pair) == 2 {
			lo, okLo := renderScalar(pair[0])
			hi, okHi := renderScalar(pair[1])
			if okLo && okHi {
				return fmt.Sprintf("%s BETWEEN %s AND %s", col, lo, hi)
			}
		}
	case model.FilterIn:
		if items, ok := toStringList(f.Value); ok && len(items) > 0 {
			quoted := make([]string, len(items))
			for i, s := range items {
				quoted[i] = quoteString(s)
			}
			return fmt.Sprintf("%s IN (%s)", col, strings.Join(quoted, ","))
		}
	}

	return fmt.Sprintf("%s IS NOT NULL", col)
}

// renderScalar renders a filter scalar value: numeric literals render as
// integers when exactly integral, otherwise as f64; string literals are
// single-quoted with no escaping (the URI-level trust boundary is assumed).
func renderScalar(v any) (string, bool) {
	switch n := v.(type) {
	case string:
		return quoteString(n), true
	case float64:
		if n == math.Trunc(n) {
			return strconv.FormatInt(int64(n), 10), true
		}
		return strconv.FormatFloat(n, 'f', -1, 64), true
	case int:
		return strconv.Itoa(n), true
	case int64:
		return strconv.FormatInt(n, 10), true
	case bool:
		if n {
			return "true", true
		}
		return "false", true
	default:
		return "", false
	}
}

func quoteString(s string) string {
	return "'" + s + "'"
}

func toStringList(v any) ([]string, bool) {
	switch items := v.(type) {
	case []string:
		return items, true
	case []any:
		out := make([]string, 0, len(items))
		for _, it := range items {
			s, ok := it.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}
