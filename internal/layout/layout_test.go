package layout

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"math"
	"testing"

	binpkg "github.com/robert-malhotra/go-stanload/internal/binary"
	"github.com/robert-malhotra/go-stanload/internal/message"
)

func TestPlaceClipsEdgeChunks(t *testing.T) {
	// 3x5 dataset of bytes in 2x2 chunks; the chunk at (2,4) holds one
	// element of the dataset.
	dims := []uint64{3, 5}
	shape := []uint32{2, 2}
	out := make([]byte, 15)
	for _, origin := range [][]uint64{{0, 0}, {0, 2}, {0, 4}, {2, 0}, {2, 2}, {2, 4}} {
		chunk := make([]byte, 4)
		for i := range chunk {
			r, c := origin[0]+uint64(i/2), origin[1]+uint64(i%2)
			chunk[i] = byte(10*r + c)
		}
		place(out, chunk, origin, dims, shape, 1)
	}
	want := []byte{0, 1, 2, 3, 4, 10, 11, 12, 13, 14, 20, 21, 22, 23, 24}
	if !bytes.Equal(out, want) {
		t.Errorf("placed %v, want %v", out, want)
	}
}

func TestReadContiguousAndCompact(t *testing.T) {
	cfg := binpkg.Config{ByteOrder: binary.LittleEndian, OffsetSize: 8, LengthSize: 8}
	file := append(make([]byte, 16), 1, 2, 3, 4, 5, 6)
	r := binpkg.NewReader(bytes.NewReader(file), cfg)
	space := message.NewDataspace([]uint64{3}, nil)
	typ := message.NewFixedPointDatatype(2, false, message.OrderLE)

	s, err := New(message.NewContiguousLayout(16, 6), space, typ, nil, r)
	if err != nil {
		t.Fatal(err)
	}
	if addr, ok := s.Contiguous(); !ok || addr != 16 || s.Size() != 6 {
		t.Errorf("contiguous = %d, %v, size %d", addr, ok, s.Size())
	}
	got, err := s.Read()
	if err != nil || !bytes.Equal(got, file[16:]) {
		t.Errorf("Read = %v, %v", got, err)
	}

	compact := &message.DataLayout{Class: message.LayoutCompact, CompactData: []byte{9, 8, 7, 6, 5, 4}}
	s, err = New(compact, space, typ, nil, r)
	if err != nil {
		t.Fatal(err)
	}
	if got, _ := s.Read(); !bytes.Equal(got, compact.CompactData) {
		t.Errorf("compact Read = %v", got)
	}
}

func TestNewRejectsUnsupported(t *testing.T) {
	space := message.NewDataspace([]uint64{4}, nil)
	typ := message.NewFloatDatatype(8, message.OrderLE)
	if _, err := New(&message.DataLayout{Class: message.LayoutVirtual}, space, typ, nil, nil); err == nil {
		t.Error("virtual layout accepted")
	}
	chunked := &message.DataLayout{Class: message.LayoutChunked, ChunkIndexType: message.ChunkIndexFixedArray, ChunkDims: []uint32{2}}
	if _, err := New(chunked, space, typ, nil, nil); err == nil {
		t.Error("fixed array chunk index accepted")
	}
	zero := &message.DataLayout{Class: message.LayoutChunked, ChunkIndexType: message.ChunkIndexImplicit, ChunkDims: []uint32{0}}
	if _, err := New(zero, space, typ, nil, nil); err == nil {
		t.Error("zero chunk dimension accepted")
	}
}

var cfg8 = binpkg.Config{ByteOrder: binary.LittleEndian, OffsetSize: 8, LengthSize: 8}

func put(file []byte, addr int, b []byte) []byte {
	if n := addr + len(b); n > len(file) {
		file = append(file, make([]byte, n-len(file))...)
	}
	copy(file[addr:], b)
	return file
}

func floats(vs ...float64) []byte {
	var b []byte
	for _, v := range vs {
		b = binary.LittleEndian.AppendUint64(b, math.Float64bits(v))
	}
	return b
}

func deflate(t *testing.T, b []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(b); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

var deflatePipeline = &message.FilterPipeline{Filters: []message.FilterInfo{{ID: message.FilterDeflate, ClientData: []uint32{6}}}}

func TestReadChunksDeflate(t *testing.T) {
	// float64[5] in chunks of 2 under a version 1 B-tree; the last chunk
	// is padded past the extent.
	var file []byte
	node := []byte("TREE\x01\x00")
	node = binary.LittleEndian.AppendUint16(node, 3)
	node = binary.LittleEndian.AppendUint64(node, ^uint64(0))
	node = binary.LittleEndian.AppendUint64(node, ^uint64(0))
	addr := 512
	for i, vals := range [][]float64{{0.5, 1.5}, {2.5, 3.5}, {4.5, 0}} {
		z := deflate(t, floats(vals...))
		node = binary.LittleEndian.AppendUint32(node, uint32(len(z)))
		node = binary.LittleEndian.AppendUint32(node, 0)
		node = binary.LittleEndian.AppendUint64(node, uint64(2*i))
		node = binary.LittleEndian.AppendUint64(node, 0)
		node = binary.LittleEndian.AppendUint64(node, uint64(addr))
		file = put(file, addr, z)
		addr += len(z)
	}
	node = append(node, make([]byte, 24)...)
	file = put(file, 64, node)

	l := &message.DataLayout{Class: message.LayoutChunked, ChunkIndexType: message.ChunkIndexBTreeV1, ChunkIndexAddr: 64, ChunkDims: []uint32{2}}
	s, err := New(l, message.NewDataspace([]uint64{5}, nil), message.NewFloatDatatype(8, message.OrderLE), deflatePipeline, binpkg.NewReader(bytes.NewReader(file), cfg8))
	if err != nil {
		t.Fatal(err)
	}
	got, err := s.Read()
	if err != nil {
		t.Fatal(err)
	}
	if want := floats(0.5, 1.5, 2.5, 3.5, 4.5); !bytes.Equal(got, want) {
		t.Errorf("Read = %v, want %v", got, want)
	}

	file[512] ^= 0xFF
	if _, err := s.Read(); err == nil {
		t.Error("damaged chunk decoded")
	}
}

func TestReadSingleChunk(t *testing.T) {
	z := deflate(t, floats(1, 2, 3))
	file := put(nil, 128, z)
	l := &message.DataLayout{
		Class:           message.LayoutChunked,
		ChunkIndexType:  message.ChunkIndexSingleChunk,
		ChunkIndexAddr:  128,
		ChunkDims:       []uint32{3},
		SingleChunkSize: uint64(len(z)),
	}
	s, err := New(l, message.NewDataspace([]uint64{3}, nil), message.NewFloatDatatype(8, message.OrderLE), deflatePipeline, binpkg.NewReader(bytes.NewReader(file), cfg8))
	if err != nil {
		t.Fatal(err)
	}
	got, err := s.Read()
	if err != nil || !bytes.Equal(got, floats(1, 2, 3)) {
		t.Errorf("Read = %v, %v", got, err)
	}
}

func TestReadImplicit(t *testing.T) {
	// 3x3 bytes in 2x2 chunks: four chunks back to back.
	chunks := [][]byte{{0, 1, 10, 11}, {2, 0, 12, 0}, {20, 21, 0, 0}, {22, 0, 0, 0}}
	var file []byte
	for i, c := range chunks {
		file = put(file, 32+4*i, c)
	}
	l := &message.DataLayout{Class: message.LayoutChunked, ChunkIndexType: message.ChunkIndexImplicit, ChunkIndexAddr: 32, ChunkDims: []uint32{2, 2}}
	s, err := New(l, message.NewDataspace([]uint64{3, 3}, nil), message.NewFixedPointDatatype(1, false, message.OrderLE), nil, binpkg.NewReader(bytes.NewReader(file), cfg8))
	if err != nil {
		t.Fatal(err)
	}
	got, err := s.Read()
	if want := []byte{0, 1, 2, 10, 11, 12, 20, 21, 22}; err != nil || !bytes.Equal(got, want) {
		t.Errorf("Read = %v, %v; want %v", got, err, want)
	}
}
