package btree

import (
	"fmt"

	"github.com/robert-malhotra/go-stanload/internal/binary"
	"github.com/robert-malhotra/go-stanload/internal/heap"
	"github.com/robert-malhotra/go-stanload/internal/message"
)

// Symbol table entry cache types.
const (
	cacheNone     = 0
	cacheObject   = 1
	cacheSoftLink = 2
)

// GroupLinks returns the members of an old-style group as links, in tree
// order. Names and soft link targets come from names.
func GroupLinks(r *binary.Reader, addr uint64, names *heap.Local) ([]*message.Link, error) {
	var links []*message.Link
	err := walk(r, addr, groupNode, r.LengthSize(), 0, func(_ []byte, snod uint64) error {
		found, err := symbolNode(r, snod, names)
		links = append(links, found...)
		return err
	})
	if err != nil {
		return nil, err
	}
	return links, nil
}

// symbolNode reads a symbol table node:
//
//	"SNOD" version(1) reserved(1) count(2) entries
//
// and each entry:
//
//	name offset(O) header address(O) cache type(4) reserved(4) scratch(16)
func symbolNode(r *binary.Reader, addr uint64, names *heap.Local) ([]*message.Link, error) {
	nr := r.At(int64(addr))
	head, err := nr.ReadBytes(8)
	if err != nil {
		return nil, fmt.Errorf("symbol node at %d: %w", addr, err)
	}
	if string(head[:4]) != "SNOD" || head[4] != 1 {
		return nil, fmt.Errorf("%w: symbol node at %d has signature %q version %d", ErrCorrupt, addr, head[:4], head[4])
	}
	count := int(r.ByteOrder().Uint16(head[6:8]))

	links := make([]*message.Link, 0, count)
	for _i := 0; _i < count; _i++ {
		nameOff, err := nr.ReadOffset()
		if err != nil {
			return nil, err
		}
		objAddr, err := nr.ReadOffset()
		if err != nil {
			return nil, err
		}
		cache, err := nr.ReadUint32()
		if err != nil {
			return nil, err
		}
		nr.Skip(4)
		scratch, err := nr.ReadBytes(16)
		if err != nil {
			return nil, err
		}

		name := names.String(nameOff)
		if name == "" {
			continue
		}
		link := message.NewHardLink(name, objAddr)
		if cache == cacheSoftLink {
			link.Kind = message.LinkSoft
			link.Address = 0
			link.Target = names.String(uint64(r.ByteOrder().Uint32(scratch)))
		}
		links = append(links, link)
	}
	return links, nil
}
