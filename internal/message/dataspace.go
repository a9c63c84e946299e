package message

import "github.com/robert-malhotra/go-stanload/internal/binary"

// SpaceKind is the dataspace class.
type SpaceKind uint8

const (
	SpaceScalar SpaceKind = 0
	SpaceSimple SpaceKind = 1
	SpaceNull   SpaceKind = 2
)

// Dataspace gives the shape of a dataset or attribute.
type Dataspace struct {
	Kind    SpaceKind
	Dims    []uint64
	MaxDims []uint64
}

func (m *Dataspace) Type() Type { return TypeDataspace }

// Rank returns the number of dimensions.
func (m *Dataspace) Rank() int { return len(m.Dims) }

func (m *Dataspace) IsScalar() bool { return m.Kind == SpaceScalar }

// NumElements returns the element count: 1 for a scalar, 0 for a null
// space or a simple space without dimensions.
func (m *Dataspace) NumElements() uint64 {
	switch {
	case m.Kind == SpaceScalar:
		return 1
	case m.Kind != SpaceSimple || len(m.Dims) == 0:
		return 0
	}
	n := uint64(1)
	for _, d := range m.Dims {
		n *= d
	}
	return n
}

// NewDataspace returns a simple dataspace. maxDims may be nil.
func NewDataspace(dims, maxDims []uint64) *Dataspace {
	return &Dataspace{Kind: SpaceSimple, Dims: dims, MaxDims: maxDims}
}

func NewScalarDataspace() *Dataspace {
	return &Dataspace{Kind: SpaceScalar}
}

// Version 1: version rank flags reserved(5) dims [maxdims]
// Version 2: version rank flags kind dims [maxdims]
func decodeDataspace(d *decoder) *Dataspace {
	version, rank, flags := d.u8(), int(d.u8()), d.u8()
	m := &Dataspace{Kind: SpaceSimple}
	switch version {
	case 1:
		d.skip(5)
		if rank == 0 {
			m.Kind = SpaceScalar
		}
	case 2:
		m.Kind = SpaceKind(d.u8())
	default:
		d.fail("dataspace version %d", version)
		return nil
	}
	if m.Kind != SpaceSimple || rank == 0 {
		return m
	}
	m.Dims = make([]uint64, rank)
	for i := range m.Dims {
		m.Dims[i] = d.length()
	}
	if flags&0x01 != 0 {
		m.MaxDims = make([]uint64, rank)
		for i := range m.MaxDims {
			m.MaxDims[i] = d.length()
		}
	}
	return m
}

// Encode writes a version 2 dataspace.
func (m *Dataspace) Encode(cfg binary.Config) ([]byte, error) {
	e := &encoder{cfg: cfg}
	var flags uint8
	if len(m.MaxDims) > 0 {
		flags = 0x01
	}
	e.bytes([]byte{2, uint8(len(m.Dims)), flags, uint8(m.Kind)})
	for _, dim := range m.Dims {
		e.length(dim)
	}
	if flags != 0 {
		for _, dim := range m.MaxDims {
			e.length(dim)
		}
	}
	return e.b, nil
}
