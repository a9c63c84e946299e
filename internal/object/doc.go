// Package object reads and writes HDF5 object headers, the message lists
// that describe groups and datasets.
//
// [Read] accepts version 1 and version 2 ("OHDR") headers and follows
// continuation blocks. [Encode] writes version 2 headers only.
package object
