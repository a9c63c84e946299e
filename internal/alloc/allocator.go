// Package alloc hands out file space to the HDF5 writer.
package alloc

// Allocator places every block at the current end of file. Space is never
// reused: rewritten object headers leave their old copy behind.
type Allocator struct {
	base uint64
	eof  uint64
}

// New returns an allocator whose first block starts at base, the first
// address past the superblock.
func New(base uint64) *Allocator {
	return &Allocator{base: base, eof: base}
}

// Alloc reserves size bytes and returns their address. A zero size
// returns the end of file without reserving anything.
func (a *Allocator) Alloc(size uint64) uint64 {
	addr := a.eof
	a.eof += size
	return addr
}

// EOFAddr returns the end-of-file address to record in the superblock.
func (a *Allocator) EOFAddr() uint64 {
	return a.eof
}

// Used returns the number of bytes allocated past the base address.
func (a *Allocator) Used() uint64 {
	return a.eof - a.base
}
