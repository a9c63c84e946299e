package message

import (
	"fmt"

	"github.com/robert-malhotra/go-stanload/internal/binary"
)

// LayoutClass says where a dataset's raw data lives.
type LayoutClass uint8

const (
	LayoutCompact    LayoutClass = 0
	LayoutContiguous LayoutClass = 1
	LayoutChunked    LayoutClass = 2
	LayoutVirtual    LayoutClass = 3
)

// ChunkIndexType names the index of a chunked layout. Layout versions 1
// to 3 always use a version 1 B-tree.
type ChunkIndexType uint8

const (
	ChunkIndexSingleChunk     ChunkIndexType = 1
	ChunkIndexImplicit        ChunkIndexType = 2
	ChunkIndexFixedArray      ChunkIndexType = 3
	ChunkIndexExtensibleArray ChunkIndexType = 4
	ChunkIndexBTreeV2         ChunkIndexType = 5
	ChunkIndexBTreeV1         ChunkIndexType = 6
)

// DataLayout locates a dataset's raw data.
type DataLayout struct {
	Version uint8
	Class   LayoutClass

	CompactData []byte

	Address uint64
	Size    uint64

	// ChunkDims leaves out the trailing element-size dimension.
	ChunkDims      []uint32
	ChunkIndexAddr uint64
	ChunkIndexType ChunkIndexType

	// A filtered single-chunk index records the stored chunk's size and
	// filter mask in the layout itself.
	SingleChunkSize uint64
	SingleChunkMask uint32
}

func (m *DataLayout) Type() Type { return TypeDataLayout }

// NewContiguousLayout returns a layout for size bytes stored at address.
func NewContiguousLayout(address, size uint64) *DataLayout {
	return &DataLayout{Version: 3, Class: LayoutContiguous, Address: address, Size: size}
}

func decodeLayout(d *decoder) *DataLayout {
	m := &DataLayout{Version: d.u8()}
	switch m.Version {
	case 1, 2:
		m.decodeLegacy(d)
	case 3:
		m.Class = LayoutClass(d.u8())
		m.decodeV3(d)
	case 4:
		m.Class = LayoutClass(d.u8())
		if m.Class == LayoutChunked {
			m.decodeChunkedV4(d)
		} else {
			m.decodeV3(d)
		}
	default:
		d.fail("data layout version %d", m.Version)
	}
	if d.err != nil {
		return nil
	}
	return m
}

// decodeLegacy reads versions 1 and 2: rank, class, reserved(5), address
// unless compact, rank 4-byte dimensions, then the compact payload.
func (m *DataLayout) decodeLegacy(d *decoder) {
	rank := int(d.u8())
	m.Class = LayoutClass(d.u8())
	d.skip(5)
	var addr uint64
	if m.Class != LayoutCompact {
		addr = d.offset()
	}
	dims := make([]uint32, rank)
	for i := range dims {
		dims[i] = d.u32()
	}

	switch m.Class {
	case LayoutCompact:
		m.CompactData = d.bytes(int(d.u32()))
	case LayoutContiguous:
		m.Address, m.Size = addr, 1
		for _, n := range dims {
			m.Size *= uint64(n)
		}
	case LayoutChunked:
		m.ChunkIndexAddr, m.ChunkIndexType = addr, ChunkIndexBTreeV1
		if rank > 0 {
			m.ChunkDims = dims[:rank-1]
		}
	}
}

// decodeV3 reads the class specific fields of version 3, and the compact
// and contiguous forms of version 4, which are identical.
func (m *DataLayout) decodeV3(d *decoder) {
	switch m.Class {
	case LayoutCompact:
		m.CompactData = d.bytes(int(d.u16()))
	case LayoutContiguous:
		m.Address, m.Size = d.offset(), d.length()
	case LayoutChunked:
		// rank, B-tree address, rank 4-byte dimensions (the last is the
		// element size), element size
		rank := int(d.u8())
		m.ChunkIndexAddr, m.ChunkIndexType = d.offset(), ChunkIndexBTreeV1
		dims := make([]uint32, rank)
		for i := range dims {
			dims[i] = d.u32()
		}
		if rank > 0 {
			m.ChunkDims = dims[:rank-1]
		}
	}
}

// decodeChunkedV4: flags, rank, dimension width, dimensions, index type,
// index parameters, index address.
func (m *DataLayout) decodeChunkedV4(d *decoder) {
	flags := d.u8()
	rank, width := int(d.u8()), int(d.u8())
	dims := make([]uint32, rank)
	for i := range dims {
		dims[i] = uint32(d.uint(width))
	}
	if rank > 0 {
		m.ChunkDims = dims[:rank-1]
	}
	m.ChunkIndexType = ChunkIndexType(d.u8())

	switch m.ChunkIndexType {
	case ChunkIndexSingleChunk:
		if flags&0x02 != 0 {
			m.SingleChunkSize, m.SingleChunkMask = d.length(), d.u32()
		}
	case ChunkIndexImplicit:
	case ChunkIndexFixedArray:
		d.skip(1)
	case ChunkIndexExtensibleArray:
		d.skip(5)
	case ChunkIndexBTreeV2:
		d.skip(6)
	default:
		d.fail("chunk index type %d", m.ChunkIndexType)
	}
	m.ChunkIndexAddr = d.offset()
}

// Encode writes a version 3 layout. Only compact and contiguous layouts
// are written.
func (m *DataLayout) Encode(cfg binary.Config) ([]byte, error) {
	e := &encoder{cfg: cfg}
	e.u8(3)
	e.u8(uint8(m.Class))
	switch m.Class {
	case LayoutCompact:
		e.u16(uint16(len(m.CompactData)))
		e.bytes(m.CompactData)
	case LayoutContiguous:
		e.offset(m.Address)
		e.length(m.Size)
	default:
		return nil, fmt.Errorf("cannot encode layout class %d", m.Class)
	}
	return e.b, nil
}
