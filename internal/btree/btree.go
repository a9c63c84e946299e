package btree

import (
	"errors"
	"fmt"

	"github.com/robert-malhotra/go-stanload/internal/binary"
)

const (
	groupNode = 0
	chunkNode = 1
)

// maxDepth bounds the recursion on corrupt files.
const maxDepth = 32

var ErrCorrupt = errors.New("corrupt B-tree")

// walk visits every leaf child of the tree at addr together with the key
// that precedes it. A node is
//
//	"TREE" type(1) level(1) entries(2) left(O) right(O)
//	key child key child ... key
func walk(r *binary.Reader, addr uint64, kind uint8, keySize int, depth int, visit func(key []byte, child uint64) error) error {
	if depth > maxDepth {
		return fmt.Errorf("%w: deeper than %d levels", ErrCorrupt, maxDepth)
	}
	nr := r.At(int64(addr))
	head, err := nr.ReadBytes(8)
	if err != nil {
		return fmt.Errorf("B-tree node at %d: %w", addr, err)
	}
	if string(head[:4]) != "TREE" || head[4] != kind {
		return fmt.Errorf("%w: node at %d has signature %q type %d", ErrCorrupt, addr, head[:4], head[4])
	}
	level := head[5]
	n := int(r.ByteOrder().Uint16(head[6:8]))
	nr.Skip(2 * int64(nr.OffsetSize()))

	for _i := 0; _i < n; _i++ {
		key, err := nr.ReadBytes(keySize)
		if err != nil {
			return err
		}
		child, err := nr.ReadOffset()
		if err != nil {
			return err
		}
		if level > 0 {
			err = walk(r, child, kind, keySize, depth+1, visit)
		} else {
			err = visit(key, child)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
