package dtype

import (
	"encoding/binary"
	"fmt"
	"math"
	"reflect"

	binpkg "github.com/robert-malhotra/go-stanload/internal/binary"
	"github.com/robert-malhotra/go-stanload/internal/message"
)

// ForGoType returns the datatype stored for Go values of type t, looking
// through pointers, slices and arrays. Strings have no fixed size; use
// message.NewStringDatatype for them.
func ForGoType(t reflect.Type) (*message.Datatype, error) {
	for t.Kind() == reflect.Ptr || t.Kind() == reflect.Slice || t.Kind() == reflect.Array {
		t = t.Elem()
	}
	size := uint32(t.Size())
	switch {
	case isInt(t.Kind()):
		return message.NewFixedPointDatatype(size, true, message.OrderLE), nil
	case isUint(t.Kind()):
		return message.NewFixedPointDatatype(size, false, message.OrderLE), nil
	case t.Kind() == reflect.Float32 || t.Kind() == reflect.Float64:
		return message.NewFloatDatatype(size, message.OrderLE), nil
	}
	return nil, fmt.Errorf("unsupported Go type: %v", t)
}

func isInt(k reflect.Kind) bool {
	return k >= reflect.Int && k <= reflect.Int64
}

func isUint(k reflect.Kind) bool {
	return k >= reflect.Uint && k <= reflect.Uint64
}

// element encodes and decodes single values of one datatype.
type element struct {
	dt  *message.Datatype
	cfg binpkg.Config
}

func newElement(dt *message.Datatype) (element, error) {
	if dt == nil {
		return element{}, fmt.Errorf("nil datatype")
	}
	var order binary.ByteOrder = binary.LittleEndian
	if dt.ByteOrder == message.OrderBE {
		order = binary.BigEndian
	}
	e := element{dt: dt, cfg: binpkg.Config{ByteOrder: order}}
	switch dt.Class {
	case message.ClassFixedPoint:
		if dt.Size != 1 && dt.Size != 2 && dt.Size != 4 && dt.Size != 8 {
			return e, fmt.Errorf("unsupported integer size: %d", dt.Size)
		}
	case message.ClassFloatPoint:
		if dt.Size != 4 && dt.Size != 8 {
			return e, fmt.Errorf("unsupported float size: %d", dt.Size)
		}
	case message.ClassString:
	default:
		return e, fmt.Errorf("unsupported datatype class: %d", dt.Class)
	}
	return e, nil
}

// decode returns b as an int64, uint64, float64 or string.
func (e element) decode(b []byte) reflect.Value {
	switch e.dt.Class {
	case message.ClassFixedPoint:
		u := e.cfg.Uint(b)
		if !e.dt.Signed {
			return reflect.ValueOf(u)
		}
		shift := 64 - 8*uint(len(b))
		return reflect.ValueOf(int64(u<<shift) >> shift)
	case message.ClassFloatPoint:
		if len(b) == 4 {
			return reflect.ValueOf(float64(math.Float32frombits(uint32(e.cfg.Uint(b)))))
		}
		return reflect.ValueOf(math.Float64frombits(e.cfg.Uint(b)))
	}
	return reflect.ValueOf(TrimString(b, e.dt.StringPadding))
}

// TrimString cuts a stored string at its first NUL and, when space
// padded, drops the trailing spaces.
func TrimString(b []byte, pad message.StringPadding) string {
	end := len(b)
	for i, c := range b {
		if c == 0 {
			end = i
			break
		}
	}
	if pad == message.PadSpacePad {
		for end > 0 && b[end-1] == ' ' {
			end--
		}
	}
	return string(b[:end])
}

// encode writes v into b, which is exactly one element wide.
func (e element) encode(b []byte, v reflect.Value) error {
	k := v.Kind()
	switch e.dt.Class {
	case message.ClassFixedPoint:
		var u uint64
		switch {
		case isInt(k):
			u = uint64(v.Int())
		case isUint(k):
			u = v.Uint()
		case k == reflect.Float32 || k == reflect.Float64:
			u = uint64(int64(v.Float()))
		default:
			return fmt.Errorf("cannot encode %v as fixed-point", k)
		}
		copy(b, e.cfg.AppendUint(nil, u, len(b)))
	case message.ClassFloatPoint:
		var f float64
		switch {
		case k == reflect.Float32 || k == reflect.Float64:
			f = v.Float()
		case isInt(k):
			f = float64(v.Int())
		default:
			return fmt.Errorf("cannot encode %v as float", k)
		}
		bits := math.Float64bits(f)
		if len(b) == 4 {
			bits = uint64(math.Float32bits(float32(f)))
		}
		copy(b, e.cfg.AppendUint(nil, bits, len(b)))
	default:
		if k != reflect.String {
			return fmt.Errorf("cannot encode %v as string", k)
		}
		n := copy(b, v.String())
		if e.dt.StringPadding == message.PadSpacePad {
			for i := n; i < len(b); i++ {
				b[i] = ' '
			}
		}
	}
	return nil
}
