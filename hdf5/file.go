package hdf5

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/robert-malhotra/go-stanload/internal/alloc"
	"github.com/robert-malhotra/go-stanload/internal/binary"
	"github.com/robert-malhotra/go-stanload/internal/object"
	"github.com/robert-malhotra/go-stanload/internal/superblock"
)

// File is an open HDF5 file, either read from disk or being written.
type File struct {
	path       string
	file       *os.File
	reader     *binary.Reader
	superblock *superblock.Superblock
	root       *Group
	closed     bool

	writable  bool
	writer    *binary.Writer
	allocator *alloc.Allocator
}

// Open opens an HDF5 file for reading.
func Open(path string) (*File, error) {
	osFile, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	f, err := open(path, osFile)
	if err != nil {
		osFile.Close()
		return nil, err
	}
	return f, nil
}

func open(path string, osFile *os.File) (*File, error) {
	sb, err := superblock.Read(osFile)
	if errors.Is(err, superblock.ErrNotHDF5) {
		return nil, fmt.Errorf("%s: %w", path, ErrNotHDF5)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: superblock: %w", path, err)
	}

	f := &File{
		path:       path,
		file:       osFile,
		reader:     binary.NewReader(osFile, sb.ReaderConfig()),
		superblock: sb,
	}
	if f.root, err = f.group(target{addr: sb.RootGroupAddress, path: "/"}); err != nil {
		return nil, fmt.Errorf("%s: root group: %w", path, err)
	}
	return f, nil
}

// Close flushes a writable file and releases the handle. Closing twice is
// a no-op.
func (f *File) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	err := f.Flush()
	if cerr := f.file.Close(); err == nil {
		err = cerr
	}
	return err
}

func (f *File) Root() *Group { return f.root }

func (f *File) Path() string { return f.path }

// Version returns the superblock version.
func (f *File) Version() int { return int(f.superblock.Version) }

// OpenGroup opens a group by absolute path.
func (f *File) OpenGroup(path string) (*Group, error) {
	if f.closed {
		return nil, ErrClosed
	}
	return f.root.OpenGroup(path)
}

// OpenDataset opens a dataset by absolute path.
func (f *File) OpenDataset(path string) (*Dataset, error) {
	if f.closed {
		return nil, ErrClosed
	}
	return f.root.OpenDataset(path)
}

// target is a resolved path: the object's header and the group holding
// the link that named it.
type target struct {
	addr   uint64
	path   string
	header *object.Header
	parent *Group
}

func (t target) isDataset() bool { return t.header != nil && t.header.Dataspace() != nil }

func (f *File) load(t *target) error {
	if t.header != nil {
		return nil
	}
	hdr, err := object.Read(f.reader, t.addr)
	if err != nil {
		return fmt.Errorf("%s: %w", t.path, err)
	}
	t.header = hdr
	return nil
}

func (f *File) group(t target) (*Group, error) {
	if err := f.load(&t); err != nil {
		return nil, err
	}
	return &Group{file: f, path: t.path, header: t.header, addr: t.addr, parent: t.parent}, nil
}

func (f *File) dataset(t target) (*Dataset, error) {
	if err := f.load(&t); err != nil {
		return nil, err
	}
	return newDataset(f, t.path, t.header)
}

// splitPath splits a slash separated path into its non-empty components.
func splitPath(path string) []string {
	return strings.FieldsFunc(path, func(r rune) bool { return r == '/' })
}
