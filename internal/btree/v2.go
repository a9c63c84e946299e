package btree

import (
	"fmt"
	"math/bits"

	"github.com/robert-malhotra/go-stanload/internal/binary"
)

// Version 2 B-tree record types of chunk indexes.
const (
	chunkRecord         = 10
	filteredChunkRecord = 11
)

// prefix is the signature, version, type and checksum every version 2
// node carries around its records.
const prefix = 10

// treeV2 is a version 2 B-tree header:
//
//	"BTHD" version(1) type(1) node size(4) record size(2) depth(2)
//	split(1) merge(1) root(O) root records(2) total records(L) checksum(4)
type treeV2 struct {
	r        *binary.Reader
	kind     uint8
	nodeSize uint32
	recSize  int
	depth    int
	root     uint64
	rootRecs uint64

	// nrecSize is the width of a child's record count in internal nodes;
	// totalSize[d] is the width of the total record count below a child
	// at depth d.
	nrecSize  int
	totalSize []int
}

func readTreeV2(r *binary.Reader, addr uint64) (*treeV2, error) {
	o, l := r.OffsetSize(), r.LengthSize()
	n := 22 + o + l
	b, err := r.At(int64(addr)).ReadBytes(n)
	if err != nil {
		return nil, fmt.Errorf("B-tree header at %d: %w", addr, err)
	}
	if string(b[:4]) != "BTHD" || b[4] != 0 {
		return nil, fmt.Errorf("%w: header at %d has signature %q version %d", ErrCorrupt, addr, b[:4], b[4])
	}
	if err := checksum(b); err != nil {
		return nil, fmt.Errorf("B-tree header at %d: %w", addr, err)
	}
	cfg := r.Config()
	t := &treeV2{
		r:        r,
		kind:     b[5],
		nodeSize: uint32(cfg.Uint(b[6:10])),
		recSize:  int(cfg.Uint(b[10:12])),
		depth:    int(cfg.Uint(b[12:14])),
		root:     cfg.Uint(b[16 : 16+o]),
		rootRecs: cfg.Uint(b[16+o : 18+o]),
	}
	if t.recSize == 0 || t.nodeSize <= prefix || t.depth > maxDepth {
		return nil, fmt.Errorf("%w: header at %d has node size %d record size %d depth %d", ErrCorrupt, addr, t.nodeSize, t.recSize, t.depth)
	}
	t.sizes(o)
	return t, nil
}

// sizes derives the count widths the way the library does when it
// creates the tree: from the most records a node of each depth can hold.
func (t *treeV2) sizes(o int) {
	leafMax := (uint64(t.nodeSize) - prefix) / uint64(t.recSize)
	t.nrecSize = encodedSize(leafMax)
	t.totalSize = make([]int, t.depth+1)

	cumMax := leafMax
	for d := 1; d <= t.depth; d++ {
		ptr := uint64(o + t.nrecSize + t.totalSize[d-1])
		var maxRecs uint64
		if room := uint64(t.nodeSize) - prefix; room > ptr {
			maxRecs = (room - ptr) / (uint64(t.recSize) + ptr)
		}
		cumMax = (maxRecs+1)*cumMax + maxRecs
		t.totalSize[d] = encodedSize(cumMax)
	}
}

// encodedSize is the byte width that holds n.
func encodedSize(n uint64) int {
	if n == 0 {
		return 1
	}
	return (bits.Len64(n)-1)/8 + 1
}

// checksum verifies the lookup3 checksum closing b.
func checksum(b []byte) error {
	n := len(b) - 4
	want := uint32(b[n]) | uint32(b[n+1])<<8 | uint32(b[n+2])<<16 | uint32(b[n+3])<<24
	if got := binary.Lookup3Checksum(b[:n]); got != want {
		return fmt.Errorf("%w: checksum %#x, stored %#x", ErrCorrupt, got, want)
	}
	return nil
}

// node reads the node at addr holding nrec records and passes every
// record below it to visit in key order. Leaves are
//
//	"BTLF" version(1) type(1) records checksum(4)
//
// and internal nodes
//
//	"BTIN" version(1) type(1) records pointers checksum(4)
//
// with nrec+1 pointers of child address(O), child records and, above
// depth 1, the child's total records.
func (t *treeV2) node(addr, nrec uint64, depth int, visit func(rec []byte) error) error {
	o := t.r.OffsetSize()
	sig, ptr := "BTLF", 0
	if depth > 0 {
		sig, ptr = "BTIN", o+t.nrecSize+t.totalSize[depth-1]
	}
	n := 6 + int(nrec)*t.recSize + int(nrec+1)*ptr + 4
	if uint64(n) > uint64(t.nodeSize) {
		return fmt.Errorf("%w: node at %d claims %d records", ErrCorrupt, addr, nrec)
	}
	b, err := t.r.At(int64(addr)).ReadBytes(n)
	if err != nil {
		return fmt.Errorf("B-tree node at %d: %w", addr, err)
	}
	if string(b[:4]) != sig || b[4] != 0 || b[5] != t.kind {
		return fmt.Errorf("%w: node at %d has signature %q version %d type %d", ErrCorrupt, addr, b[:4], b[4], b[5])
	}
	if err := checksum(b); err != nil {
		return fmt.Errorf("B-tree node at %d: %w", addr, err)
	}

	recs := b[6 : 6+int(nrec)*t.recSize]
	if depth == 0 {
		for i := 0; i < int(nrec); i++ {
			if err := visit(recs[i*t.recSize : (i+1)*t.recSize]); err != nil {
				return err
			}
		}
		return nil
	}

	cfg := t.r.Config()
	ptrs := b[6+len(recs) : n-4]
	for i := 0; i <= int(nrec); i++ {
		p := ptrs[i*ptr:]
		child, childRecs := cfg.Uint(p[:o]), cfg.Uint(p[o:o+t.nrecSize])
		if err := t.node(child, childRecs, depth-1, visit); err != nil {
			return err
		}
		if i < int(nrec) {
			if err := visit(recs[i*t.recSize : (i+1)*t.recSize]); err != nil {
				return err
			}
		}
	}
	return nil
}

// ChunksV2 lists the allocated chunks of a rank-dimensional dataset
// indexed by a version 2 B-tree. Records are
//
//	address(O) scaled offsets(8 each)                               type 10
//	address(O) size(variable) filter mask(4) scaled offsets(8 each) type 11
//
// Scaled offsets count chunks, not elements. Unfiltered chunks are
// always the full chunk size.
func ChunksV2(r *binary.Reader, addr uint64, rank int, chunkDims []uint32, elem uint64) ([]Chunk, error) {
	t, err := readTreeV2(r, addr)
	if err != nil {
		return nil, err
	}
	if len(chunkDims) < rank {
		return nil, fmt.Errorf("%d chunk dimensions for rank %d", len(chunkDims), rank)
	}

	o := r.OffsetSize()
	full := elem
	for _, d := range chunkDims[:rank] {
		full *= uint64(d)
	}
	var sizeWidth int
	switch t.kind {
	case chunkRecord:
		if t.recSize != o+8*rank {
			return nil, fmt.Errorf("%w: record size %d for rank %d", ErrCorrupt, t.recSize, rank)
		}
	case filteredChunkRecord:
		sizeWidth = t.recSize - o - 4 - 8*rank
		if sizeWidth < 1 || sizeWidth > 8 {
			return nil, fmt.Errorf("%w: record size %d for rank %d", ErrCorrupt, t.recSize, rank)
		}
	default:
		return nil, fmt.Errorf("%w: record type %d is not a chunk index", ErrCorrupt, t.kind)
	}

	if t.rootRecs == 0 || r.IsUndefinedOffset(t.root) {
		return nil, nil
	}

	cfg := r.Config()
	var chunks []Chunk
	err = t.node(t.root, t.rootRecs, t.depth, func(rec []byte) error {
		c := Chunk{Address: cfg.Uint(rec[:o]), Size: uint32(full), Offset: make([]uint64, rank)}
		rec = rec[o:]
		if t.kind == filteredChunkRecord {
			c.Size = uint32(cfg.Uint(rec[:sizeWidth]))
			c.FilterMask = uint32(cfg.Uint(rec[sizeWidth : sizeWidth+4]))
			rec = rec[sizeWidth+4:]
		}
		for i := range c.Offset {
			c.Offset[i] = cfg.Uint(rec[8*i:8*i+8]) * uint64(chunkDims[i])
		}
		if c.Size > 0 && !r.IsUndefinedOffset(c.Address) {
			chunks = append(chunks, c)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return chunks, nil
}
