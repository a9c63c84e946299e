package param

import (
	"fmt"
	"sort"
)

// Map is the flat parameter mapping. Values are int64, float64, string or
// []any; a []any holds scalars or, for R matrices, nested []any rows.
type Map map[string]any

// Insert appends v to the sequence bound to name. A name that is unbound,
// or bound to a scalar, is rebound to the one-element sequence [v].
func (m Map) Insert(name string, v any) {
	if seq, ok := m[name].([]any); ok {
		m[name] = append(seq, v)
		return
	}
	m[name] = []any{v}
}

// Demote replaces a one-element sequence bound to name with its element.
func (m Map) Demote(name string) {
	if seq, ok := m[name].([]any); ok && len(seq) == 1 {
		m[name] = seq[0]
	}
}

// Merge copies every entry of src into m, overwriting colliding names.
func (m Map) Merge(src Map) {
	for k, v := range src {
		m[k] = v
	}
}

// Keys returns the names in sorted order.
func (m Map) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Normalize converts a decoded value into the mapping's value types:
// signed and unsigned integers become int64, floats float64, sequences
// []any, and nested maps map[string]any.
func Normalize(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, fmt.Errorf("null value")
	case int64, float64, string:
		return x, nil
	case int:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case uint64:
		return int64(x), nil
	case float32:
		return float64(x), nil
	case bool:
		if x {
			return int64(1), nil
		}
		return int64(0), nil
	case []float64:
		out := make([]any, len(x))
		for i, f := range x {
			out[i] = f
		}
		return out, nil
	case []int64:
		out := make([]any, len(x))
		for i, n := range x {
			out[i] = n
		}
		return out, nil
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			n, err := Normalize(e)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out[i] = n
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			n, err := Normalize(e)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			out[k] = n
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported value type %T", v)
}
