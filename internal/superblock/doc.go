// Package superblock reads and writes the HDF5 superblock, the fixed
// record at the start of a file that locates the root group.
//
// Versions 0 to 3 are read; the writer always emits version 3.
package superblock
