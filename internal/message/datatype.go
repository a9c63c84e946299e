package message

import (
	"fmt"

	"github.com/robert-malhotra/go-stanload/internal/binary"
)

// DatatypeClass is the class nibble of a datatype message.
type DatatypeClass uint8

const (
	ClassFixedPoint DatatypeClass = 0
	ClassFloatPoint DatatypeClass = 1
	ClassTime       DatatypeClass = 2
	ClassString     DatatypeClass = 3
	ClassBitfield   DatatypeClass = 4
	ClassOpaque     DatatypeClass = 5
	ClassCompound   DatatypeClass = 6
	ClassReference  DatatypeClass = 7
	ClassEnum       DatatypeClass = 8
	ClassVarLen     DatatypeClass = 9
	ClassArray      DatatypeClass = 10
)

type ByteOrder uint8

const (
	OrderLE ByteOrder = 0
	OrderBE ByteOrder = 1
)

// StringPadding says how a fixed-length string fills its slot.
type StringPadding uint8

const (
	PadNullTerm StringPadding = 0
	PadNullPad  StringPadding = 1
	PadSpacePad StringPadding = 2
)

type CharacterSet uint8

const (
	CharsetASCII CharacterSet = 0
	CharsetUTF8  CharacterSet = 1
)

// Datatype describes the element type of a dataset or attribute.
// Numeric and fixed-length string classes are decoded in full; other
// classes keep their class, size and raw properties so their objects can
// still be listed.
type Datatype struct {
	Class DatatypeClass
	Bits  uint32
	Size  uint32

	ByteOrder     ByteOrder
	Signed        bool
	BitOffset     uint16
	BitPrecision  uint16
	StringPadding StringPadding
	CharSet       CharacterSet

	Properties []byte
}

func (m *Datatype) Type() Type { return TypeDatatype }

func (m *Datatype) IsInteger() bool { return m.Class == ClassFixedPoint }

func (m *Datatype) IsFloat() bool { return m.Class == ClassFloatPoint }

// IsVarString reports a variable-length string, whose elements are global
// heap references.
func (m *Datatype) IsVarString() bool { return m.Class == ClassVarLen && m.Bits&0x0F == 1 }

// class-and-version(1) class bits(3) size(4) properties
func decodeDatatype(d *decoder) *Datatype {
	head := d.u8()
	bits := d.uint(3)
	m := &Datatype{Class: DatatypeClass(head & 0x0F), Bits: uint32(bits), Size: d.u32()}
	props := d.rest()
	if d.err != nil {
		return nil
	}

	switch m.Class {
	case ClassFixedPoint, ClassBitfield, ClassEnum:
		m.ByteOrder = ByteOrder(bits & 0x01)
		m.Signed = m.Class == ClassFixedPoint && bits&0x08 != 0
		if m.Class != ClassEnum && len(props) >= 4 {
			p := &decoder{cfg: d.cfg, b: props}
			m.BitOffset, m.BitPrecision = p.u16(), p.u16()
			props = props[:4]
		}
	case ClassFloatPoint:
		m.ByteOrder = ByteOrder(bits & 0x01)
		if len(props) >= 12 {
			props = props[:12]
		}
	case ClassString:
		m.StringPadding = StringPadding(bits & 0x0F)
		m.CharSet = CharacterSet(bits >> 4 & 0x0F)
		props = nil
	case ClassVarLen:
		m.StringPadding = StringPadding(bits >> 4 & 0x0F)
		m.CharSet = CharacterSet(bits >> 8 & 0x0F)
	}
	m.Properties = props
	return m
}

// Encode writes a version 1 datatype. Only fixed-point, floating-point
// and fixed-length string classes can be written.
func (m *Datatype) Encode(cfg binary.Config) ([]byte, error) {
	e := &encoder{cfg: cfg}
	e.u8(uint8(m.Class) | 1<<4)
	e.uint(uint64(m.Bits), 3)
	e.u32(m.Size)
	switch m.Class {
	case ClassFixedPoint:
		e.u16(m.BitOffset)
		e.u16(m.BitPrecision)
	case ClassFloatPoint:
		if len(m.Properties) < 12 {
			return nil, fmt.Errorf("float datatype has %d property bytes", len(m.Properties))
		}
		e.bytes(m.Properties[:12])
	case ClassString:
	default:
		return nil, fmt.Errorf("cannot encode datatype class %d", m.Class)
	}
	return e.b, nil
}

// NewFixedPointDatatype returns an integer type of size bytes.
func NewFixedPointDatatype(size uint32, signed bool, order ByteOrder) *Datatype {
	m := &Datatype{
		Class:        ClassFixedPoint,
		Bits:         uint32(order),
		Size:         size,
		ByteOrder:    order,
		Signed:       signed,
		BitPrecision: uint16(size * 8),
	}
	if signed {
		m.Bits |= 0x08
	}
	return m
}

// IEEE 754 layouts: bit offset(2) precision(2) exponent location and
// size, mantissa location and size, exponent bias(4).
var (
	float32Props = []byte{0, 0, 32, 0, 23, 8, 0, 23, 127, 0, 0, 0}
	float64Props = []byte{0, 0, 64, 0, 52, 11, 0, 52, 255, 3, 0, 0}
)

// NewFloatDatatype returns an IEEE float of 4 bytes, or 8 for any other
// size.
func NewFloatDatatype(size uint32, order ByteOrder) *Datatype {
	sign, props := uint32(63), float64Props
	if size == 4 {
		sign, props = 31, float32Props
	} else {
		size = 8
	}
	return &Datatype{
		Class:      ClassFloatPoint,
		Bits:       uint32(order) | 1<<5 | sign<<8,
		Size:       size,
		ByteOrder:  order,
		Properties: props,
	}
}

// NewStringDatatype returns a fixed-length string type.
func NewStringDatatype(size uint32, padding StringPadding, charset CharacterSet) *Datatype {
	return &Datatype{
		Class:         ClassString,
		Bits:          uint32(padding) | uint32(charset)<<4,
		Size:          size,
		StringPadding: padding,
		CharSet:       charset,
	}
}
