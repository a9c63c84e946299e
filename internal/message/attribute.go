package message

import (
	"fmt"

	"github.com/robert-malhotra/go-stanload/internal/binary"
)

// Attribute is a small named value stored in an object header.
type Attribute struct {
	Name      string
	Datatype  *Datatype
	Dataspace *Dataspace
	Data      []byte
}

func (m *Attribute) Type() Type { return TypeAttribute }

// NewAttribute returns an attribute holding data encoded as dt over ds.
func NewAttribute(name string, dt *Datatype, ds *Dataspace, data []byte) *Attribute {
	return &Attribute{Name: name, Datatype: dt, Dataspace: ds, Data: data}
}

// version(1) flags(1) name size(2) datatype size(2) dataspace size(2)
// [v3: charset(1)] name datatype dataspace data. Version 1 pads the three
// variable fields to 8 bytes.
func decodeAttribute(d *decoder) *Attribute {
	version := d.u8()
	if version < 1 || version > 3 {
		d.fail("attribute version %d", version)
		return nil
	}
	d.skip(1)
	nameSize, typeSize, spaceSize := int(d.u16()), int(d.u16()), int(d.u16())
	if version == 3 {
		d.skip(1)
	}
	field := func(n int) *decoder {
		sub := d.sub(n)
		if version == 1 {
			d.pad8(n)
		}
		return sub
	}

	m := &Attribute{Name: field(nameSize).cstring(nameSize)}
	td, sd := field(typeSize), field(spaceSize)
	m.Datatype = decodeDatatype(td)
	m.Dataspace = decodeDataspace(sd)
	for _, sub := range []*decoder{td, sd} {
		if sub.err != nil {
			d.fail("attribute %q: %w", m.Name, sub.err)
		}
	}
	m.Data = append([]byte(nil), d.rest()...)
	if d.err != nil {
		return nil
	}
	return m
}

// Encode writes a version 3 attribute with a UTF-8 name.
func (m *Attribute) Encode(cfg binary.Config) ([]byte, error) {
	dt, err := m.Datatype.Encode(cfg)
	if err != nil {
		return nil, fmt.Errorf("attribute %q: %w", m.Name, err)
	}
	ds, err := m.Dataspace.Encode(cfg)
	if err != nil {
		return nil, fmt.Errorf("attribute %q: %w", m.Name, err)
	}
	e := &encoder{cfg: cfg}
	e.bytes([]byte{3, 0})
	e.u16(uint16(len(m.Name) + 1))
	e.u16(uint16(len(dt)))
	e.u16(uint16(len(ds)))
	e.u8(uint8(CharsetUTF8))
	e.bytes(append([]byte(m.Name), 0))
	e.bytes(dt)
	e.bytes(ds)
	e.bytes(m.Data)
	return e.b, nil
}
