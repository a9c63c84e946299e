package heap

import (
	"fmt"

	"github.com/robert-malhotra/go-stanload/internal/binary"
)

// Local is the data segment of a local heap.
type Local struct {
	data []byte
}

// ReadLocal reads the heap whose header is at addr:
//
//	"HEAP" version(1) reserved(3) data size(L) free list head(L) data address(O)
func ReadLocal(r *binary.Reader, addr uint64) (*Local, error) {
	hr := r.At(int64(addr))
	head, err := hr.ReadBytes(8)
	if err != nil {
		return nil, fmt.Errorf("local heap at %d: %w", addr, err)
	}
	if string(head[:4]) != "HEAP" || head[4] != 0 {
		return nil, fmt.Errorf("local heap at %d: bad signature %q version %d", addr, head[:4], head[4])
	}
	size, err := hr.ReadLength()
	if err != nil {
		return nil, err
	}
	hr.Skip(int64(hr.LengthSize()))
	dataAddr, err := hr.ReadOffset()
	if err != nil {
		return nil, err
	}
	data, err := r.At(int64(dataAddr)).ReadBytes(int(size))
	if err != nil {
		return nil, fmt.Errorf("local heap data at %d: %w", dataAddr, err)
	}
	return &Local{data: data}, nil
}

// String returns the NUL-terminated string at off, or "" past the end.
func (h *Local) String(off uint64) string {
	if off >= uint64(len(h.data)) {
		return ""
	}
	s := h.data[off:]
	for i, c := range s {
		if c == 0 {
			return string(s[:i])
		}
	}
	return string(s)
}
