// Package btree walks the B-trees that index old-style groups and chunked
// datasets.
//
// # Version 1 trees
//
// Version 1 trees (signature "TREE") come in two node types:
//
//   - Group trees, whose leaves point to symbol table nodes ("SNOD").
//     [GroupLinks] resolves each entry's name through the group's local
//     heap and returns the members as links, in name order.
//   - Chunk trees, whose keys carry the chunk size, filter mask and element
//     offset of every chunk. [Chunks] lists the allocated chunks.
//
// # Version 2 trees
//
// Newer files index chunks with a version 2 tree (signature "BTHD").
// [ChunksV2] reads record types 10 and 11, unfiltered and filtered chunks,
// and scales their chunk coordinates to element offsets. Every node is
// checked against its lookup3 checksum.
//
// Structural damage in either version is reported as [ErrCorrupt].
package btree
