package layout

import (
	"fmt"

	"github.com/robert-malhotra/go-stanload/internal/binary"
	"github.com/robert-malhotra/go-stanload/internal/btree"
	"github.com/robert-malhotra/go-stanload/internal/filter"
	"github.com/robert-malhotra/go-stanload/internal/message"
)

// Storage reads one dataset's elements in row-major order.
type Storage struct {
	msg      *message.DataLayout
	dims     []uint64
	elem     uint64
	pipeline *filter.Pipeline
	r        *binary.Reader
}

// New checks that the layout can be read and prepares its filters.
func New(msg *message.DataLayout, space *message.Dataspace, typ *message.Datatype, fp *message.FilterPipeline, r *binary.Reader) (*Storage, error) {
	if msg == nil || space == nil || typ == nil {
		return nil, fmt.Errorf("dataset needs layout, dataspace and datatype messages")
	}
	s := &Storage{msg: msg, dims: space.Dims, elem: uint64(typ.Size), r: r}
	if space.IsScalar() {
		s.dims = []uint64{1}
	} else if space.NumElements() == 0 {
		s.dims = nil
	}

	switch msg.Class {
	case message.LayoutCompact, message.LayoutContiguous:
	case message.LayoutChunked:
		switch msg.ChunkIndexType {
		case message.ChunkIndexBTreeV1, message.ChunkIndexBTreeV2, message.ChunkIndexSingleChunk, message.ChunkIndexImplicit:
		default:
			return nil, fmt.Errorf("chunk index type %d is not supported", msg.ChunkIndexType)
		}
		if len(msg.ChunkDims) < len(s.dims) {
			return nil, fmt.Errorf("chunked layout has %d chunk dimensions for rank %d", len(msg.ChunkDims), len(s.dims))
		}
		for _, d := range msg.ChunkDims[:len(s.dims)] {
			if d == 0 {
				return nil, fmt.Errorf("chunked layout has a zero chunk dimension")
			}
		}
		var err error
		if s.pipeline, err = filter.NewPipeline(fp); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("layout class %d is not supported", msg.Class)
	}
	return s, nil
}

func (s *Storage) Class() message.LayoutClass { return s.msg.Class }

// Size returns the byte size of the dataset's elements.
func (s *Storage) Size() uint64 {
	if len(s.dims) == 0 {
		return 0
	}
	n := s.elem
	for _, d := range s.dims {
		n *= d
	}
	return n
}

// Contiguous returns the data block of a contiguous layout.
func (s *Storage) Contiguous() (addr uint64, ok bool) {
	return s.msg.Address, s.msg.Class == message.LayoutContiguous
}

// Read returns every element. Unallocated storage reads as zeros.
func (s *Storage) Read() ([]byte, error) {
	switch s.msg.Class {
	case message.LayoutCompact:
		return append([]byte(nil), s.msg.CompactData...), nil
	case message.LayoutContiguous:
		size := s.msg.Size
		if size == 0 {
			size = s.Size()
		}
		if size == 0 || s.r.IsUndefinedOffset(s.msg.Address) {
			return make([]byte, size), nil
		}
		b, err := s.r.At(int64(s.msg.Address)).ReadBytes(int(size))
		if err != nil {
			return nil, fmt.Errorf("contiguous data at %d: %w", s.msg.Address, err)
		}
		return b, nil
	}
	return s.readChunks()
}

func (s *Storage) readChunks() ([]byte, error) {
	out := make([]byte, s.Size())
	if len(out) == 0 || s.r.IsUndefinedOffset(s.msg.ChunkIndexAddr) {
		return out, nil
	}
	chunks, err := s.chunks()
	if err != nil {
		return nil, fmt.Errorf("chunk index: %w", err)
	}
	shape := s.msg.ChunkDims[:len(s.dims)]
	for _, c := range chunks {
		raw, err := s.r.At(int64(c.Address)).ReadBytes(int(c.Size))
		if err != nil {
			return nil, fmt.Errorf("chunk %v: %w", c.Offset, err)
		}
		if !s.pipeline.Empty() {
			if raw, err = s.pipeline.Decode(raw, c.FilterMask); err != nil {
				return nil, fmt.Errorf("chunk %v: %w", c.Offset, err)
			}
		}
		place(out, raw, c.Offset, s.dims, shape, s.elem)
	}
	return out, nil
}

// chunks lists the stored chunks from the layout's index.
func (s *Storage) chunks() ([]btree.Chunk, error) {
	rank := len(s.dims)
	shape := s.msg.ChunkDims[:rank]
	full := s.elem
	for _, d := range shape {
		full *= uint64(d)
	}

	switch s.msg.ChunkIndexType {
	case message.ChunkIndexBTreeV2:
		return btree.ChunksV2(s.r, s.msg.ChunkIndexAddr, rank, shape, s.elem)
	case message.ChunkIndexSingleChunk:
		c := btree.Chunk{Offset: make([]uint64, rank), Size: uint32(full), Address: s.msg.ChunkIndexAddr}
		if s.msg.SingleChunkSize > 0 {
			c.Size, c.FilterMask = uint32(s.msg.SingleChunkSize), s.msg.SingleChunkMask
		}
		return []btree.Chunk{c}, nil
	case message.ChunkIndexImplicit:
		return implicit(s.msg.ChunkIndexAddr, s.dims, shape, full), nil
	}
	return btree.Chunks(s.r, s.msg.ChunkIndexAddr, rank)
}

// implicit lists the chunks of an implicit index: every chunk of the
// grid, stored back to back in row-major order from addr.
func implicit(addr uint64, dims []uint64, shape []uint32, size uint64) []btree.Chunk {
	n := len(dims)
	grid := make([]uint64, n)
	total := uint64(1)
	for d := 0; d < n; d++ {
		grid[d] = (dims[d] + uint64(shape[d]) - 1) / uint64(shape[d])
		total *= grid[d]
	}
	chunks := make([]btree.Chunk, total)
	idx := make([]uint64, n)
	for i := range chunks {
		c := btree.Chunk{Offset: make([]uint64, n), Size: uint32(size), Address: addr + uint64(i)*size}
		for d := 0; d < n; d++ {
			c.Offset[d] = idx[d] * uint64(shape[d])
		}
		chunks[i] = c
		for d := n - 1; d >= 0; d-- {
			if idx[d]++; idx[d] < grid[d] {
				break
			}
			idx[d] = 0
		}
	}
	return chunks
}

// place copies a decoded chunk whose first element is at origin into
// out, row by row along the last dimension. Edge chunks are clipped to
// the dataset extent.
func place(out, chunk []byte, origin, dims []uint64, shape []uint32, elem uint64) {
	n := len(dims)
	ext := make([]uint64, n)
	for d := 0; d < n; d++ {
		if origin[d] >= dims[d] {
			return
		}
		ext[d] = min(uint64(shape[d]), dims[d]-origin[d])
	}
	row := ext[n-1] * elem
	idx := make([]uint64, n)
	for {
		var o, c uint64
		for d := 0; d < n; d++ {
			o = o*dims[d] + origin[d] + idx[d]
			c = c*uint64(shape[d]) + idx[d]
		}
		o, c = o*elem, c*elem
		if o+row <= uint64(len(out)) && c+row <= uint64(len(chunk)) {
			copy(out[o:o+row], chunk[c:c+row])
		}

		d := n - 2
		for ; d >= 0; d-- {
			if idx[d]++; idx[d] < ext[d] {
				break
			}
			idx[d] = 0
		}
		if d < 0 {
			return
		}
	}
}
