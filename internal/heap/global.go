package heap

import (
	"fmt"

	"github.com/robert-malhotra/go-stanload/internal/binary"
)

// Global is one global heap collection, the store behind variable-length
// data.
type Global struct {
	objects map[uint16][]byte
}

// ReadGlobal reads the collection at addr:
//
//	"GCOL" version(1) reserved(3) collection size(L)
//	{ index(2) refcount(2) reserved(4) size(L) data, padded to 8 } ...
//
// The object list ends at index 0 or at the end of the collection.
func ReadGlobal(r *binary.Reader, addr uint64) (*Global, error) {
	if addr == 0 || r.IsUndefinedOffset(addr) {
		return nil, fmt.Errorf("global heap address %d is not allocated", addr)
	}
	hr := r.At(int64(addr))
	head, err := hr.ReadBytes(8)
	if err != nil {
		return nil, fmt.Errorf("global heap at %d: %w", addr, err)
	}
	if string(head[:4]) != "GCOL" || head[4] != 1 {
		return nil, fmt.Errorf("global heap at %d: bad signature %q version %d", addr, head[:4], head[4])
	}
	size, err := hr.ReadLength()
	if err != nil {
		return nil, err
	}
	end := int64(addr) + int64(size)
	objHead := int64(8 + r.LengthSize())

	g := &Global{objects: map[uint16][]byte{}}
	for hr.Pos()+objHead <= end {
		index, err := hr.ReadUint16()
		if err != nil {
			return nil, err
		}
		if index == 0 {
			break
		}
		hr.Skip(6)
		n, err := hr.ReadLength()
		if err != nil {
			return nil, err
		}
		if hr.Pos()+int64(n) > end {
			return nil, fmt.Errorf("global heap at %d: object %d overruns the collection", addr, index)
		}
		data, err := hr.ReadBytes(int(n))
		if err != nil {
			return nil, err
		}
		g.objects[index] = data
		hr.Align(8)
	}
	return g, nil
}

// Object returns the bytes of object index.
func (g *Global) Object(index uint32) ([]byte, error) {
	data, ok := g.objects[uint16(index)]
	if index > 0xFFFF || !ok {
		return nil, fmt.Errorf("global heap object %d not found", index)
	}
	return data, nil
}
