// Package udf implements the scalar user-defined functions available to
// match_sql (§4.2, §9) plus the process-wide name registry used to look one
// up by name when reconstructing a shipped UDF reference off the wire.
package udf

import "sync"

// ToleranceMatch implements the tolerance_match(a, b, t) scalar UDF:
// |a-b| <= t, with null-propagation — a null in any argument position
// yields a null result rather than a comparison.
func ToleranceMatch(a, b, t any) any {
	af, aok := toFloat64(a)
	bf, bok := toFloat64(b)
	tf, tok := toFloat64(t)
	if !aok || !bok || !tok {
		return nil
	}
	diff := af - bf
	if diff < 0 {
		diff = -diff
	}
	return diff <= tf
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case nil:
		return 0, false
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// Func is the shape of every registered scalar UDF: variadic args in,
// a single value (or nil) out.
type Func func(args ...any) any

var (
	registryMu sync.RWMutex
	registry   = map[string]Func{
		"tolerance_match": func(args ...any) any {
			if len(args) != 3 {
				return nil
			}
			return ToleranceMatch(args[0], args[1], args[2])
		},
	}
)

// Lookup returns the named scalar UDF, or ok=false if no UDF with that name
// has been registered in this process.
func Lookup(name string) (Func, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	fn, ok := registry[name]
	return fn, ok
}

// Register adds or replaces a named scalar UDF. Used at daemon start; the
// registry is write-once-read-many thereafter (§9 "global state").
func Register(name string, fn Func) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = fn
}
