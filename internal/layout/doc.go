// Package layout reads the raw bytes of a dataset from its storage layout.
//
// [New] accepts compact, contiguous and chunked layouts. Chunked datasets
// may be indexed by a version 1 or version 2 B-tree, hold a single chunk,
// or use the implicit index of unfiltered fixed-size datasets. Chunks pass
// through the filter pipeline and are placed into a row-major buffer,
// clipping the edge chunks that extend past the dataset.
//
// Fixed and extensible array indexes are rejected by New.
package layout
