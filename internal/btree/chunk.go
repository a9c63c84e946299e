package btree

import (
	"github.com/robert-malhotra/go-stanload/internal/binary"
)

// Chunk locates one stored chunk of a dataset.
type Chunk struct {
	// Offset is the chunk's first element in each dataset dimension.
	Offset     []uint64
	FilterMask uint32
	Size       uint32
	Address    uint64
}

// Chunks lists the allocated chunks of a rank-dimensional dataset. Keys
// are
//
//	size(4) filter mask(4) offsets(8 each, rank+1 of them)
//
// where the extra offset is the element byte offset, always zero.
func Chunks(r *binary.Reader, addr uint64, rank int) ([]Chunk, error) {
	undefined := r.Config().Undefined()
	var chunks []Chunk
	err := walk(r, addr, chunkNode, 8+8*(rank+1), 0, func(key []byte, child uint64) error {
		order := r.ByteOrder()
		c := Chunk{
			Size:       order.Uint32(key[0:4]),
			FilterMask: order.Uint32(key[4:8]),
			Address:    child,
			Offset:     make([]uint64, rank),
		}
		if c.Size == 0 || child == undefined {
			return nil
		}
		for i := range c.Offset {
			c.Offset[i] = order.Uint64(key[8+8*i:])
		}
		chunks = append(chunks, c)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return chunks, nil
}
