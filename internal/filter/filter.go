// Package filter decodes the filter pipeline of chunked HDF5 datasets.
package filter

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"io"

	binpkg "github.com/robert-malhotra/go-stanload/internal/binary"
	"github.com/robert-malhotra/go-stanload/internal/message"
)

// Decoder reverses one filter stage.
type Decoder func(input []byte) ([]byte, error)

// Registry builds a decoder from a filter's client data.
var Registry = map[uint16]func(clientData []uint32) Decoder{
	message.FilterDeflate:    func([]uint32) Decoder { return inflate },
	message.FilterShuffle:    unshuffle,
	message.FilterFletcher32: func([]uint32) Decoder { return stripFletcher32 },
}

var names = map[uint16]string{
	message.FilterDeflate:     "deflate",
	message.FilterShuffle:     "shuffle",
	message.FilterFletcher32:  "fletcher32",
	message.FilterSZIP:        "szip",
	message.FilterNBit:        "nbit",
	message.FilterScaleOffset: "scaleoffset",
}

// Pipeline decodes chunks stored through a sequence of filters.
type Pipeline struct {
	ids      []uint16
	decoders []Decoder
}

// NewPipeline builds the decoders of fp. Optional filters without a
// decoder are left out; mandatory ones are an error.
func NewPipeline(fp *message.FilterPipeline) (*Pipeline, error) {
	p := &Pipeline{}
	if fp == nil {
		return p, nil
	}
	for _, info := range fp.Filters {
		build, ok := Registry[info.ID]
		if !ok {
			if info.IsOptional() {
				continue
			}
			if name, known := names[info.ID]; known {
				return nil, fmt.Errorf("%s filter (id %d) is not supported", name, info.ID)
			}
			return nil, fmt.Errorf("unknown filter id %d", info.ID)
		}
		p.ids = append(p.ids, info.ID)
		p.decoders = append(p.decoders, build(info.ClientData))
	}
	return p, nil
}

// Empty reports whether chunks are stored unfiltered.
func (p *Pipeline) Empty() bool {
	return len(p.decoders) == 0
}

// Decode applies the filters last to first. Bit i of mask skips filter i.
func (p *Pipeline) Decode(input []byte, mask uint32) ([]byte, error) {
	data := input
	for i := len(p.decoders) - 1; i >= 0; i-- {
		if mask&(1<<uint(i)) != 0 {
			continue
		}
		var err error
		if data, err = p.decoders[i](data); err != nil {
			return nil, fmt.Errorf("%s filter: %w", names[p.ids[i]], err)
		}
	}
	return data, nil
}

func inflate(input []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(input))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// unshuffle regroups bytes that the shuffle filter stored by significance.
func unshuffle(clientData []uint32) Decoder {
	size := 1
	if len(clientData) > 0 && clientData[0] > 0 {
		size = int(clientData[0])
	}
	return func(input []byte) ([]byte, error) {
		n := len(input) / size
		if size <= 1 || n == 0 {
			return input, nil
		}
		out := make([]byte, len(input))
		for i := 0; i < n; i++ {
			for j := 0; j < size; j++ {
				out[i*size+j] = input[j*n+i]
			}
		}
		// Trailing bytes that do not fill an element are stored as is.
		copy(out[n*size:], input[n*size:])
		return out, nil
	}
}

// stripFletcher32 verifies and removes the trailing checksum.
func stripFletcher32(input []byte) ([]byte, error) {
	if len(input) < 4 {
		return nil, fmt.Errorf("chunk of %d bytes has no checksum", len(input))
	}
	data := input[:len(input)-4]
	stored := binary.LittleEndian.Uint32(input[len(input)-4:])
	if sum := binpkg.Fletcher32(data); sum != stored {
		return nil, fmt.Errorf("checksum mismatch: stored 0x%08x, computed 0x%08x", stored, sum)
	}
	return data, nil
}
