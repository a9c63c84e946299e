package dtype

import (
	"fmt"
	"reflect"

	"github.com/robert-malhotra/go-stanload/internal/message"
)

// Convert decodes n elements of data into dest, a pointer to a slice. A
// slice shorter than n is replaced by a new one of length n.
func Convert(dt *message.Datatype, data []byte, n uint64, dest interface{}) error {
	e, err := newElement(dt)
	if err != nil {
		return err
	}
	size := int(dt.Size)
	if uint64(len(data)) < n*uint64(size) {
		return fmt.Errorf("have %d bytes for %d elements of size %d", len(data), n, size)
	}
	return fill(dest, int(n), func(i int) reflect.Value {
		return e.decode(data[i*size : (i+1)*size])
	})
}

// Strings stores vals into dest the way Convert stores decoded strings.
func Strings(vals []string, dest interface{}) error {
	return fill(dest, len(vals), func(i int) reflect.Value {
		return reflect.ValueOf(vals[i])
	})
}

func fill(dest interface{}, n int, elem func(i int) reflect.Value) error {
	dv := reflect.ValueOf(dest)
	if dv.Kind() != reflect.Ptr || dv.Elem().Kind() != reflect.Slice {
		return fmt.Errorf("dest must be a pointer to a slice, got %T", dest)
	}
	out := dv.Elem()
	want := out.Type().Elem()
	if out.Len() < n {
		out.Set(reflect.MakeSlice(out.Type(), n, n))
	}
	for i := 0; i < n; i++ {
		if err := assign(out.Index(i), want, elem(i)); err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
	}
	return nil
}

func assign(dst reflect.Value, t reflect.Type, v reflect.Value) error {
	if t.Kind() == reflect.Interface {
		dst.Set(v)
		return nil
	}
	if !v.Type().ConvertibleTo(t) || (v.Kind() == reflect.String) != (t.Kind() == reflect.String) {
		return fmt.Errorf("cannot convert %v to %v", v.Type(), t)
	}
	dst.Set(v.Convert(t))
	return nil
}

// Encode flattens src, a scalar, slice or array or a pointer to one, in
// row-major order and encodes it as elements of dt.
func Encode(dt *message.Datatype, src interface{}) ([]byte, error) {
	e, err := newElement(dt)
	if err != nil {
		return nil, err
	}
	var elems []reflect.Value
	var flatten func(v reflect.Value)
	flatten = func(v reflect.Value) {
		switch v.Kind() {
		case reflect.Ptr, reflect.Interface:
			flatten(v.Elem())
		case reflect.Slice, reflect.Array:
			for i := 0; i < v.Len(); i++ {
				flatten(v.Index(i))
			}
		default:
			elems = append(elems, v)
		}
	}
	flatten(reflect.ValueOf(src))

	size := int(dt.Size)
	out := make([]byte, len(elems)*size)
	for i, v := range elems {
		if err := e.encode(out[i*size:(i+1)*size], v); err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
	}
	return out, nil
}
