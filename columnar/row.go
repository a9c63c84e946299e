// Package columnar writes parameter and sample tables to columnar files.
//
// A table is described by its columns; NewRow allocates one typed staging
// slot per column, a Backend binds the slots to its storage, and every Fill
// commits the current slot values as the next row.
package columnar

import (
	"fmt"
	"math"
	"reflect"

	"github.com/robert-malhotra/go-stanload/param"
)

// Column describes one output column. Size is the number of elements of a
// numeric column, or the byte length of a string column.
type Column struct {
	Name string
	Kind param.Kind
	Size int
}

var (
	float64Type = reflect.TypeOf(float64(0))
	int32Type   = reflect.TypeOf(int32(0))
	stringType  = reflect.TypeOf("")
)

// slotType returns the Go type of a slot holding n values of kind k:
// float64 or int32 for n = 1, [n]float64 or [n]int32 otherwise.
func slotType(k param.Kind, n int) (reflect.Type, error) {
	var elem reflect.Type
	switch k {
	case param.Float:
		elem = float64Type
	case param.Int:
		elem = int32Type
	case param.String:
		return stringType, nil
	default:
		return nil, fmt.Errorf("column kind %v has no slot type", k)
	}
	switch {
	case n == 1:
		return elem, nil
	case n > 1:
		return reflect.ArrayOf(n, elem), nil
	}
	return nil, fmt.Errorf("invalid column size %d", n)
}

// Row is a staging buffer with one slot per column. Slots are reused for
// every row written through it.
type Row struct {
	cols  []Column
	slots []reflect.Value
}

// NewRow allocates the slots for cols.
func NewRow(cols []Column) (*Row, error) {
	r := &Row{cols: cols, slots: make([]reflect.Value, len(cols))}
	seen := make(map[string]bool, len(cols))
	for i, c := range cols {
		if seen[c.Name] {
			return nil, fmt.Errorf("duplicate column %q", c.Name)
		}
		seen[c.Name] = true

		n := c.Size
		if c.Kind != param.String && n == 0 {
			n = 1
		}
		t, err := slotType(c.Kind, n)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", c.Name, err)
		}
		r.slots[i] = reflect.New(t)
	}
	return r, nil
}

// Columns returns the column descriptors.
func (r *Row) Columns() []Column {
	return r.cols
}

// Len returns the number of elements in slot col.
func (r *Row) Len(col int) int {
	v := r.slots[col].Elem()
	if v.Kind() == reflect.Array {
		return v.Len()
	}
	return 1
}

// Addr returns a pointer to slot col, for backends that bind by address.
func (r *Row) Addr(col int) any {
	return r.slots[col].Interface()
}

// Value returns the current value of slot col.
func (r *Row) Value(col int) any {
	return r.slots[col].Elem().Interface()
}

// SetFloat stores f in element i of numeric slot col. Integer slots
// truncate toward zero and reject values outside the int32 range.
func (r *Row) SetFloat(col, i int, f float64) error {
	v, err := r.elem(col, i)
	if err != nil {
		return err
	}
	switch v.Kind() {
	case reflect.Float64:
		v.SetFloat(f)
	case reflect.Int32:
		if !(f > math.MinInt32-1 && f < math.MaxInt32+1) {
			return fmt.Errorf("column %s: %v overflows int32", r.cols[col].Name, f)
		}
		v.SetInt(int64(f))
	default:
		return fmt.Errorf("column %s is not numeric", r.cols[col].Name)
	}
	return nil
}

// SetInt stores n in element i of numeric slot col. Integer slots reject
// values outside the int32 range.
func (r *Row) SetInt(col, i int, n int64) error {
	v, err := r.elem(col, i)
	if err != nil {
		return err
	}
	switch v.Kind() {
	case reflect.Float64:
		v.SetFloat(float64(n))
	case reflect.Int32:
		if !fitsInt32(n) {
			return fmt.Errorf("column %s: %d overflows int32", r.cols[col].Name, n)
		}
		v.SetInt(n)
	default:
		return fmt.Errorf("column %s is not numeric", r.cols[col].Name)
	}
	return nil
}

func fitsInt32(n int64) bool {
	return n >= math.MinInt32 && n <= math.MaxInt32
}

func (r *Row) elem(col, i int) (reflect.Value, error) {
	v := r.slots[col].Elem()
	if v.Kind() != reflect.Array {
		if i != 0 {
			return v, fmt.Errorf("column %s: index %d on a scalar slot", r.cols[col].Name, i)
		}
		return v, nil
	}
	if i < 0 || i >= v.Len() {
		return v, fmt.Errorf("column %s: index %d out of range [0,%d)", r.cols[col].Name, i, v.Len())
	}
	return v.Index(i), nil
}

// SetString stores s in string slot col.
func (r *Row) SetString(col int, s string) error {
	v := r.slots[col].Elem()
	if v.Kind() != reflect.String {
		return fmt.Errorf("column %s is not a string", r.cols[col].Name)
	}
	v.SetString(s)
	return nil
}
