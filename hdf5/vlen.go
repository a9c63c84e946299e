package hdf5

import (
	"fmt"

	"github.com/robert-malhotra/go-stanload/internal/dtype"
	"github.com/robert-malhotra/go-stanload/internal/heap"
)

// varStrings resolves the elements of a variable-length string dataset.
// Each element is
//
//	length(4) collection address(O) object index(4)
//
// naming an object in a global heap collection. A zero address is the
// empty string.
func (d *Dataset) varStrings(raw []byte) ([]string, error) {
	r := d.file.reader
	cfg := r.Config()
	o := cfg.OffsetSize
	size := 8 + o
	n := int(d.dataspace.NumElements())
	if len(raw) < n*size {
		return nil, fmt.Errorf("have %d bytes for %d string references", len(raw), n)
	}

	heaps := map[uint64]*heap.Global{}
	out := make([]string, n)
	for i := range out {
		ref := raw[i*size : (i+1)*size]
		addr, index := cfg.Uint(ref[4:4+o]), uint32(cfg.Uint(ref[4+o:]))
		if addr == 0 || r.IsUndefinedOffset(addr) {
			continue
		}
		g, ok := heaps[addr]
		if !ok {
			var err error
			if g, err = heap.ReadGlobal(r, addr); err != nil {
				return nil, err
			}
			heaps[addr] = g
		}
		b, err := g.Object(index)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out[i] = dtype.TrimString(b, d.datatype.StringPadding)
	}
	return out, nil
}
