package columnar

import (
	"fmt"

	"github.com/robert-malhotra/go-stanload/param"
)

// DefaultProvenanceTable names the table holding the sampler input.
const DefaultProvenanceTable = "stan_model_param"

// ProvenanceColumns derives the provenance columns of m, flattened and in
// key order. Empty strings, empty or nested lists, and values of any other
// type produce no column. A list takes its kind from its first element.
// Integers outside the int32 range widen their column to float.
func ProvenanceColumns(m param.Map) ([]Column, []any) {
	flat := param.Flatten(m)

	var (
		cols   []Column
		values []any
	)
	for _, key := range flat.Keys() {
		switch v := flat[key].(type) {
		case float64:
			cols = append(cols, Column{Name: key, Kind: param.Float, Size: 1})
		case int64:
			kind := param.Int
			if !fitsInt32(v) {
				kind = param.Float
			}
			cols = append(cols, Column{Name: key, Kind: kind, Size: 1})
		case string:
			if v == "" {
				continue
			}
			cols = append(cols, Column{Name: key, Kind: param.String, Size: len(v)})
		case []any:
			kind, ok := listKind(v)
			if !ok {
				continue
			}
			cols = append(cols, Column{Name: key, Kind: kind, Size: len(v)})
		default:
			continue
		}
		values = append(values, flat[key])
	}
	return cols, values
}

func listKind(list []any) (param.Kind, bool) {
	if len(list) == 0 {
		return 0, false
	}
	var kind param.Kind
	switch list[0].(type) {
	case float64:
		kind = param.Float
	case int64:
		kind = param.Int
	default:
		return 0, false
	}
	for _, e := range list {
		switch n := e.(type) {
		case float64:
		case int64:
			if !fitsInt32(n) {
				kind = param.Float
			}
		default:
			return 0, false
		}
	}
	return kind, true
}

// WriteProvenance writes m as a single-row table called name.
func WriteProvenance(b Backend, name string, m param.Map) error {
	cols, values := ProvenanceColumns(m)
	if len(cols) == 0 {
		return nil
	}

	row, err := NewRow(cols)
	if err != nil {
		return err
	}
	for i, v := range values {
		if err := setValue(row, i, v); err != nil {
			return err
		}
	}

	t, err := b.Table(name, name, row, 1)
	if err != nil {
		return err
	}
	if err := t.Fill(); err != nil {
		t.Close()
		return fmt.Errorf("filling %s: %w", name, err)
	}
	return t.Close()
}

func setValue(row *Row, col int, v any) error {
	switch x := v.(type) {
	case float64:
		return row.SetFloat(col, 0, x)
	case int64:
		return row.SetInt(col, 0, x)
	case string:
		return row.SetString(col, x)
	case []any:
		if len(x) == 1 {
			return setValue(row, col, x[0])
		}
		for i, e := range x {
			var err error
			switch n := e.(type) {
			case float64:
				err = row.SetFloat(col, i, n)
			case int64:
				err = row.SetInt(col, i, n)
			}
			if err != nil {
				return err
			}
		}
		return nil
	}
	return fmt.Errorf("column %s: unsupported value %T", row.cols[col].Name, v)
}
