// Package hdf5 reads and writes HDF5 files in pure Go.
//
// Reading covers superblock versions 0 to 3, both object header versions,
// symbol-table and compact link-message groups, and compact, contiguous or
// chunked datasets. Chunk indexes may be version 1 or 2 B-trees, a single
// chunk or implicit, with deflate, shuffle and fletcher32 filters.
// Variable-length strings are read through the global heap. Groups kept in
// dense (fractal heap) storage are reported with ErrDenseLinks.
//
// Writing produces version 3 superblocks with link-message groups and
// contiguous datasets, which can be filled whole or one row at a time.
package hdf5

import "errors"

var (
	ErrNotHDF5    = errors.New("not an HDF5 file")
	ErrBadName    = errors.New("invalid object name")
	ErrNotFound   = errors.New("object not found")
	ErrNotDataset = errors.New("object is not a dataset")
	ErrNotGroup   = errors.New("object is not a group")
	ErrClosed     = errors.New("file is closed")
	ErrReadOnly   = errors.New("file is not writable")
	ErrLinkDepth  = errors.New("maximum link depth exceeded")
	ErrDenseLinks = errors.New("dense link storage is not supported")
)

// MaxLinkDepth bounds the number of soft links followed while resolving a path.
const MaxLinkDepth = 100
