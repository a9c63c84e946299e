// Package param holds the flat parameter mapping shared by every source
// format, the sampler input and the provenance table.
package param

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

// Kind is the declared numeric kind of a variable.
type Kind int

const (
	Float Kind = iota
	Int
	String
)

var ErrKind = errors.New("unknown kind")

func (k Kind) String() string {
	switch k {
	case Int:
		return "int"
	case String:
		return "string"
	}
	return "float"
}

// ParseKind reads a kind name. An empty name is Float.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "", "float", "double", "real":
		return Float, nil
	case "int", "integer":
		return Int, nil
	case "string", "str":
		return String, nil
	}
	return Float, fmt.Errorf("%w: %q", ErrKind, s)
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(b []byte) error {
	v, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// Coerce converts one scalar read from a source to kind k. Float yields a
// float64, Int truncates toward zero into an int64.
func Coerce(k Kind, v any) (any, error) {
	switch k {
	case Float:
		f, err := toFloat(v)
		if err != nil {
			return nil, err
		}
		return f, nil
	case Int:
		f, err := toFloat(v)
		if err != nil {
			return nil, err
		}
		if i, ok := v.(int64); ok {
			return i, nil
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("cannot convert %v to int", v)
		}
		return int64(f), nil
	case String:
		switch s := v.(type) {
		case string:
			return s, nil
		case []byte:
			return string(s), nil
		}
		return fmt.Sprint(v), nil
	}
	return nil, fmt.Errorf("%w: %d", ErrKind, k)
}

func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int8:
		return float64(x), nil
	case int16:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case uint:
		return float64(x), nil
	case uint8:
		return float64(x), nil
	case uint16:
		return float64(x), nil
	case uint32:
		return float64(x), nil
	case uint64:
		return float64(x), nil
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	case string:
		return strconv.ParseFloat(x, 64)
	}
	return 0, fmt.Errorf("cannot convert %T to a number", v)
}
