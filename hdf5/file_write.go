package hdf5

import (
	"fmt"
	"os"

	"github.com/robert-malhotra/go-stanload/internal/alloc"
	binpkg "github.com/robert-malhotra/go-stanload/internal/binary"
	"github.com/robert-malhotra/go-stanload/internal/message"
	"github.com/robert-malhotra/go-stanload/internal/object"
	"github.com/robert-malhotra/go-stanload/internal/superblock"
)

// Create creates (or truncates) an HDF5 file with a version 3 superblock
// and an empty root group. The superblock is written by Flush and Close.
func Create(path string) (*File, error) {
	osFile, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating file: %w", err)
	}

	sb := superblock.New()
	bc := sb.ReaderConfig()

	f := &File{
		path:       path,
		file:       osFile,
		reader:     binpkg.NewReader(osFile, bc),
		superblock: sb,
		writable:   true,
		writer:     binpkg.NewWriter(osFile, bc),
		allocator:  alloc.New(uint64(sb.Size())),
	}
	rootAddr, err := f.writeHeader(object.GroupMessages(nil, nil), object.GroupChunk)
	if err == nil {
		sb.RootGroupAddress = rootAddr
		err = f.Flush()
	}
	if err != nil {
		osFile.Close()
		os.Remove(path)
		return nil, fmt.Errorf("creating %s: %w", path, err)
	}

	f.root = &Group{
		file:         f,
		path:         "/",
		addr:         rootAddr,
		pendingLinks: []*message.Link{},
		pendingAttrs: []*message.Attribute{},
	}
	return f, nil
}

// Flush rewrites the superblock with the current end of file and syncs.
func (f *File) Flush() error {
	if !f.writable {
		return nil
	}
	f.superblock.EOFAddress = f.allocator.EOFAddr()
	if _, err := f.superblock.Write(f.writer.At(0)); err != nil {
		return fmt.Errorf("writing superblock: %w", err)
	}
	return f.file.Sync()
}

func (f *File) allocate(size uint64) uint64 {
	return f.allocator.Alloc(size)
}

// writeHeader encodes an object header at the end of file and returns
// its address.
func (f *File) writeHeader(messages []message.Message, minChunk int) (uint64, error) {
	buf, err := object.Encode(f.writer.Config(), messages, minChunk)
	if err != nil {
		return 0, err
	}
	addr := f.allocate(uint64(len(buf)))
	if err := f.writer.At(int64(addr)).WriteBytes(buf); err != nil {
		return 0, fmt.Errorf("writing object header: %w", err)
	}
	return addr, nil
}
